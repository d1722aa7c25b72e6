// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package httpapi exposes the auth service over HTTP with a cookie session.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/observability"
	"github.com/adminkit/adminkit/internal/otp"
)

// Route prefixes.
const (
	PublicPrefix = "/admin/public"
	APIPrefix    = "/admin/api"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "jwt"

// AuthService is the subset of *auth.Service the HTTP layer calls.
type AuthService interface {
	Login(ctx context.Context, cred auth.Credential) (string, error)
	Register(ctx context.Context, reg auth.Registration) (*auth.User, error)
	Authenticate(ctx context.Context, bearer string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, bearer string) (*auth.PublicUser, error)
	IssuePurposeToken(ctx context.Context, purpose otp.Purpose, email string) (string, error)
	ResendEmail(ctx context.Context, purposeToken string) (otp.Purpose, error)
	VerifyEmail(ctx context.Context, purposeToken, code string) error
	ResetPassword(ctx context.Context, purposeToken, code, newPassword, confirmation string) error
	FederatedLogin(ctx context.Context, identity auth.FederatedIdentity) (string, error)
}

// Config configures the router.
type Config struct {
	CookieName   string
	CookieMaxAge time.Duration
	CookieSecure bool
	CORSOrigins  []string
	// PublicRoutes are glob patterns ('/' separated) that skip authentication.
	PublicRoutes []string
}

// Option configures the router.
type Option func(*handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records per-route request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *handler) { h.metrics = m }
}

// WithIdentityVerifier enables POST /admin/public/federated/login.
func WithIdentityVerifier(v IdentityVerifier) Option {
	return func(h *handler) { h.verifier = v }
}

type handler struct {
	svc      AuthService
	cfg      Config
	public   []glob.Glob
	logger   *slog.Logger
	metrics  *observability.Metrics
	verifier IdentityVerifier
}

// NewRouter builds the HTTP API.
func NewRouter(svc AuthService, cfg Config, opts ...Option) (http.Handler, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	h := &handler{svc: svc, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	for _, pattern := range cfg.PublicRoutes {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.Code("HTTP_INVALID_ROUTE_PATTERN").With("pattern", pattern).Wrap(err)
		}
		h.public = append(h.public, g)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.requestContext)
	r.Use(h.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(h.observe)
	r.Use(h.authenticate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route(PublicPrefix, func(r chi.Router) {
		r.Post("/login", h.login)
		r.Get("/logout", h.logout)
		r.Post("/register", h.register)
		r.Get("/user", h.currentUser)
		r.Post("/token", h.issueToken)
		r.Post("/resend_email", h.resendEmail)
		r.Post("/verify_user_email", h.verifyEmail)
		r.Post("/reset_password", h.resetPassword)
		if h.verifier != nil {
			r.Post("/federated/login", h.federatedLogin)
		}
	})

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/me", h.me)
		r.With(requireRole(auth.RoleAdmin)).Get("/admin/ping", h.adminPing)
	})

	return r, nil
}
