// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/pkg/errutil"
)

// Envelope is the body of every API response.
type Envelope struct {
	Message any `json:"message"`
	Status  int `json:"status"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, message any) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{Message: message, Status: status})
}

var statusByCode = map[string]int{
	auth.CodeUserNotFound:              http.StatusBadRequest,
	auth.CodeDomainNotAllowed:          http.StatusBadRequest,
	auth.CodeEmailRegisteredVerified:   http.StatusBadRequest,
	auth.CodeEmailRegisteredUnverified: http.StatusBadRequest,
	auth.CodeUserNameTaken:             http.StatusBadRequest,
	auth.CodeInvalidUserName:           http.StatusBadRequest,
	auth.CodeInvalidEmail:              http.StatusBadRequest,
	auth.CodeEmptyPassword:             http.StatusBadRequest,
	auth.CodePasswordTooLong:           http.StatusBadRequest,
	auth.CodeInvalidCredential:         http.StatusBadRequest,
	auth.CodeInvalidPurpose:            http.StatusBadRequest,
	auth.CodePasswordMismatch:          http.StatusUnauthorized,
	auth.CodeInvalidToken:              http.StatusUnauthorized,
	auth.CodeWrongPurpose:              http.StatusUnauthorized,
	auth.CodeUnauthenticated:           http.StatusUnauthorized,
	auth.CodeInvalidOTP:                http.StatusForbidden,
	auth.CodePermissionDenied:          http.StatusForbidden,
	auth.CodeEmailNotVerified:          http.StatusForbidden,
}

// statusFor maps err to a status and client message. Unknown errors are 500.
func statusFor(err error) (int, string) {
	code, message, known := auth.Describe(err)
	if !known {
		return http.StatusInternalServerError, "Internal server error"
	}
	if status, ok := statusByCode[code]; ok {
		return status, message
	}
	return http.StatusBadRequest, message
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), h.logger, "request failed", err)
	} else {
		code, _, _ := auth.Describe(err)
		h.logger.DebugContext(r.Context(), "request rejected", slog.Int("status", status), slog.String("code", code))
	}
	respond(w, r, status, message)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		h.logger.DebugContext(r.Context(), "invalid request body", "error", err)
		respond(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
