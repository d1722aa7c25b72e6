// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package mocks provides testify mocks for auth interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/adminkit/adminkit/internal/auth"
)

// MockUserRepository is a mock implementation of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test ends.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userResult(ret mock.Arguments) (*auth.User, error) {
	var user *auth.User
	if v := ret.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, ret.Error(1)
}

// GetByEmail provides a mock function.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return userResult(m.Called(ctx, email))
}

// GetByUserName provides a mock function.
func (m *MockUserRepository) GetByUserName(ctx context.Context, userName string) (*auth.User, error) {
	return userResult(m.Called(ctx, userName))
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return userResult(m.Called(ctx, id))
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// UpdatePassword provides a mock function.
func (m *MockUserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return m.Called(ctx, email, passwordHash).Error(0)
}

// MarkEmailVerified provides a mock function.
func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

var _ auth.UserRepository = (*MockUserRepository)(nil)
