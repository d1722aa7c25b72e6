// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
)

type claimsKey struct{}

// NewContext returns a copy of ctx carrying the authenticated claims.
func NewContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claims stored by NewContext.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// Authenticate verifies a bearer token and returns its claims.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*Claims, error) {
	if bearer == "" {
		return nil, oops.Code(CodeUnauthenticated).Errorf("please login first")
	}

	var claims Claims
	if err := s.tokens.DecodeSigned(bearer, &claims); err != nil {
		code, _, _ := Describe(err)
		s.logger.DebugContext(ctx, "bearer token rejected", "code", code, "error", err)
		return nil, oops.Code(CodeInvalidToken).Errorf("invalid token")
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, oops.Code(CodeInvalidToken).With("role", string(claims.Role)).Errorf("invalid token")
	}
	return &claims, nil
}

// RequireRole fails unless claims carry role.
func RequireRole(claims *Claims, role Role) error {
	if claims == nil {
		return oops.Code(CodeUnauthenticated).Errorf("please login first")
	}
	if claims.Role != role {
		return oops.Code(CodePermissionDenied).
			With("role", string(claims.Role)).
			With("required", string(role)).
			Errorf("permission denied")
	}
	return nil
}

// RequireVerified fails unless the user's email is verified.
func RequireVerified(claims *Claims) error {
	if claims == nil {
		return oops.Code(CodeUnauthenticated).Errorf("please login first")
	}
	if !claims.Verified {
		return oops.Code(CodeEmailNotVerified).With("user_id", claims.Subject).Errorf("email not verified")
	}
	return nil
}
