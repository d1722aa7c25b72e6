// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/adminkit/adminkit/internal/auth"
)

// IdentityVerifier turns an identity token from an external provider into a
// verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (auth.FederatedIdentity, error)
}

// identityClaims mirrors the OpenID Connect ID token claims AdminKit reads.
type identityClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	jwt.RegisteredClaims
}

// JWTIdentityVerifier accepts HS256 identity tokens minted by a trusted
// identity gateway that shares a secret with AdminKit.
type JWTIdentityVerifier struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewJWTIdentityVerifier creates a verifier. Empty issuer or audience skip
// that check.
func NewJWTIdentityVerifier(secret, issuer, audience string) (*JWTIdentityVerifier, error) {
	if secret == "" {
		return nil, oops.Errorf("federated identity secret is required")
	}
	return &JWTIdentityVerifier{
		key:      []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// Verify checks the signature, expiry, issuer and audience of idToken.
func (v *JWTIdentityVerifier) Verify(_ context.Context, idToken string) (auth.FederatedIdentity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims identityClaims
	if _, err := jwt.ParseWithClaims(idToken, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...); err != nil {
		return auth.FederatedIdentity{}, oops.Code(auth.CodeInvalidToken).Wrap(err)
	}
	if claims.Subject == "" {
		return auth.FederatedIdentity{}, oops.Code(auth.CodeInvalidToken).Errorf("identity token has no subject")
	}

	return auth.FederatedIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
	}, nil
}

type federatedLoginRequest struct {
	IDToken string `json:"id_token"`
}

func (h *handler) federatedLogin(w http.ResponseWriter, r *http.Request) {
	if h.hasSession(r) {
		respond(w, r, http.StatusOK, "Login success")
		return
	}

	var req federatedLoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	identity, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.svc.FederatedLogin(r.Context(), identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSession(w, token)
	respond(w, r, http.StatusOK, "Login success")
}
