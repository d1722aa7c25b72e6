// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/mail"
)

// MockMailer is a mock implementation of auth.Mailer.
type MockMailer struct {
	mock.Mock
}

// NewMockMailer creates a MockMailer whose expectations are asserted when the
// test ends.
func NewMockMailer(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockMailer {
	m := &MockMailer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Submit provides a mock function.
func (m *MockMailer) Submit(to, subject, body string, contentType mail.ContentType) (bool, error) {
	ret := m.Called(to, subject, body, contentType)
	return ret.Bool(0), ret.Error(1)
}

var _ auth.Mailer = (*MockMailer)(nil)
