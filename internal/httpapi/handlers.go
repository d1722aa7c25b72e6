// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package httpapi

import (
	"net/http"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/otp"
)

type loginRequest struct {
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

type registerRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Purpose otp.Purpose `json:"purpose"`
	Email   string      `json:"email"`
}

type purposeTokenRequest struct {
	Token string `json:"token"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Token                   string `json:"token"`
	Code                    string `json:"code"`
	NewPassword             string `json:"new_password"`
	PasswordForConfirmation string `json:"password_for_confirmation"`
}

func (h *handler) bearer(r *http.Request) string {
	cookie, err := r.Cookie(h.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// hasSession reports whether the request already carries a valid session.
func (h *handler) hasSession(r *http.Request) bool {
	bearer := h.bearer(r)
	if bearer == "" {
		return false
	}
	_, err := h.svc.Authenticate(r.Context(), bearer)
	return err == nil
}

func (h *handler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if h.hasSession(r) {
		respond(w, r, http.StatusOK, "Login success")
		return
	}

	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	var cred auth.Credential
	switch {
	case req.Email != "":
		cred = auth.EmailCredential(req.Email, req.Password)
	case req.UserName != "":
		cred = auth.UserNameCredential(req.UserName, req.Password)
	}

	token, err := h.svc.Login(r.Context(), cred)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSession(w, token)
	respond(w, r, http.StatusOK, "Login success")
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	respond(w, r, http.StatusOK, "Logout success")
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Register(r.Context(), auth.Registration(req)); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusAccepted, "Register success")
}

// currentUser answers 401 with a null message when there is no session.
func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	bearer := h.bearer(r)
	if bearer == "" {
		respond(w, r, http.StatusUnauthorized, nil)
		return
	}
	user, err := h.svc.CurrentUser(r.Context(), bearer)
	if err != nil {
		status, _ := statusFor(err)
		if status == http.StatusInternalServerError {
			h.fail(w, r, err)
			return
		}
		respond(w, r, http.StatusUnauthorized, nil)
		return
	}
	respond(w, r, http.StatusOK, user)
}

func (h *handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.svc.IssuePurposeToken(r.Context(), req.Purpose, req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusAccepted, token)
}

func (h *handler) resendEmail(w http.ResponseWriter, r *http.Request) {
	var req purposeTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	purpose, err := h.svc.ResendEmail(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	switch purpose {
	case otp.PurposePasswordReset:
		respond(w, r, http.StatusAccepted, "Reset password email sent")
	default:
		respond(w, r, http.StatusAccepted, "Verification email sent")
	}
}

func (h *handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Token, req.Code); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Email verified successfully")
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.svc.ResetPassword(r.Context(), req.Token, req.Code, req.NewPassword, req.PasswordForConfirmation)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.clearSession(w)
	respond(w, r, http.StatusOK, "Reset password success, please re-login")
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), h.bearer(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, user)
}

func (h *handler) adminPing(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, "pong")
}
