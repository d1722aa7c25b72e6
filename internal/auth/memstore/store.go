// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package memstore provides an in-memory auth.UserRepository.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/adminkit/adminkit/internal/auth"
)

// UserRepository stores users in memory. It is safe for concurrent use.
type UserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]auth.User
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]auth.User)}
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find("email", email, func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

// GetByUserName retrieves a user by user name.
func (r *UserRepository) GetByUserName(_ context.Context, userName string) (*auth.User, error) {
	return r.find("user_name", userName, func(u *auth.User) bool { return u.UserName == userName })
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// Create stores a copy of user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.UserName == user.UserName {
			return oops.Code("USER_DUPLICATE").
				With("user_name", user.UserName).
				With("email", user.Email).
				Wrap(auth.ErrDuplicate)
		}
	}
	r.users[user.ID] = *user
	return nil
}

// UpdatePassword replaces the password hash of the user with email.
func (r *UserRepository) UpdatePassword(_ context.Context, email, passwordHash string) error {
	return r.update(email, func(u *auth.User) { u.PasswordHash = passwordHash })
}

// MarkEmailVerified flags the user with email as verified.
func (r *UserRepository) MarkEmailVerified(_ context.Context, email string) error {
	return r.update(email, func(u *auth.User) { u.Verified = true })
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *UserRepository) find(field, value string, match func(*auth.User) bool) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if match(&user) {
			return &user, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").With(field, value).Wrap(auth.ErrNotFound)
}

func (r *UserRepository) update(email string, apply func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			apply(&user)
			r.users[id] = user
			return nil
		}
	}
	return oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
}

var _ auth.UserRepository = (*UserRepository)(nil)
