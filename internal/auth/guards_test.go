// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/token"
	"github.com/adminkit/adminkit/pkg/errutil"
)

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("accepts a token from the same codec", func(t *testing.T) {
		bearer, err := f.codec.Issue(auth.Claims{Subject: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Role: auth.RoleAdmin, Verified: true}, false)
		require.NoError(t, err)

		claims, err := f.svc.Authenticate(ctx, bearer)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
		assert.True(t, claims.Verified)
	})

	t.Run("empty bearer is unauthenticated", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthenticated)
	})

	t.Run("token from another secret", func(t *testing.T) {
		other, err := token.NewCodec("other-secret", "encryption-key")
		require.NoError(t, err)
		forged, err := other.Issue(auth.Claims{Subject: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Role: auth.RoleAdmin}, false)
		require.NoError(t, err)

		_, err = f.svc.Authenticate(ctx, forged)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		bearer, err := f.codec.Issue(auth.Claims{Subject: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Role: "root"}, false)
		require.NoError(t, err)
		_, err = f.svc.Authenticate(ctx, bearer)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		bearer, err := f.codec.Issue(auth.Claims{Role: auth.RoleGuest}, false)
		require.NoError(t, err)
		_, err = f.svc.Authenticate(ctx, bearer)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)
	})
}

func TestRequireRole(t *testing.T) {
	admin := &auth.Claims{Subject: "a", Role: auth.RoleAdmin}
	guest := &auth.Claims{Subject: "g", Role: auth.RoleGuest}

	require.NoError(t, auth.RequireRole(admin, auth.RoleAdmin))

	err := auth.RequireRole(guest, auth.RoleAdmin)
	errutil.AssertErrorCode(t, err, auth.CodePermissionDenied)
	errutil.AssertErrorContext(t, err, "required", "admin")

	errutil.AssertErrorCode(t, auth.RequireRole(nil, auth.RoleAdmin), auth.CodeUnauthenticated)
}

func TestRequireVerified(t *testing.T) {
	require.NoError(t, auth.RequireVerified(&auth.Claims{Subject: "a", Verified: true}))
	errutil.AssertErrorCode(t, auth.RequireVerified(&auth.Claims{Subject: "a"}), auth.CodeEmailNotVerified)
	errutil.AssertErrorCode(t, auth.RequireVerified(nil), auth.CodeUnauthenticated)
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	_, ok := auth.FromContext(ctx)
	assert.False(t, ok)

	_, ok = auth.FromContext(auth.NewContext(ctx, nil))
	assert.False(t, ok)

	want := &auth.Claims{Subject: "a", Role: auth.RoleGuest}
	got, ok := auth.FromContext(auth.NewContext(ctx, want))
	require.True(t, ok)
	assert.Same(t, want, got)
}
