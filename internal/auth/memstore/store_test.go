// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package memstore_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/auth/memstore"
)

func newUser(t *testing.T, name, email string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(name, email, "$2a$04$hash", auth.RoleGuest)
	require.NoError(t, err)
	return user
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	alice := newUser(t, "alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, alice))

	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	byName, err := repo.GetByUserName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Email, byName.Email)

	byID, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.UserName)

	// Returned users are copies.
	byID.Role = auth.RoleAdmin
	again, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleGuest, again.Role)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = repo.GetByUserName(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = repo.GetByID(ctx, ulid.Make())
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, "nobody@example.com", "h"), auth.ErrNotFound)
	assert.ErrorIs(t, repo.MarkEmailVerified(ctx, "nobody@example.com"), auth.ErrNotFound)
}

func TestUserRepository_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	require.NoError(t, repo.Create(ctx, newUser(t, "alice", "alice@example.com")))

	assert.ErrorIs(t, repo.Create(ctx, newUser(t, "alice", "other@example.com")), auth.ErrDuplicate)
	assert.ErrorIs(t, repo.Create(ctx, newUser(t, "alice2", "alice@example.com")), auth.ErrDuplicate)
	assert.Equal(t, 1, repo.Len())
}

func TestUserRepository_Mutations(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	alice := newUser(t, "alice", "alice@example.com")
	require.NoError(t, repo.Create(ctx, alice))

	require.NoError(t, repo.UpdatePassword(ctx, "alice@example.com", "$2a$04$new"))
	require.NoError(t, repo.MarkEmailVerified(ctx, "alice@example.com"))

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$new", got.PasswordHash)
	assert.True(t, got.Verified)
}
