// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/logging"
)

// requestContext copies the chi request id into the logging context.
func (h *handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.logger.ErrorContext(r.Context(), "panic serving request",
				"panic", fmt.Sprint(rec),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()))
			respond(w, r, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		h.metrics.Observe(r.Method, route, status, elapsed)
		h.logger.DebugContext(r.Context(), "request served",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed)
	})
}

func (h *handler) isPublic(path string) bool {
	for _, g := range h.public {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// authenticate puts the session's claims in the request context. Public
// routes and CORS preflights pass without a session.
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || h.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		bearer := h.bearer(r)
		if bearer == "" {
			respond(w, r, http.StatusUnauthorized, "Please login first")
			return
		}
		claims, err := h.svc.Authenticate(r.Context(), bearer)
		if err != nil {
			respond(w, r, http.StatusUnauthorized, "Please login first")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), claims)))
	})
}

func requireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := auth.FromContext(r.Context())
			if err := auth.RequireRole(claims, role); err != nil {
				status, message := statusFor(err)
				respond(w, r, status, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
