// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package otp provides an in-memory registry of short-lived one-time codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Registry configuration.
const (
	CodeLength = 6
	DefaultTTL = 5 * time.Minute
)

// Purpose scopes a code to a single flow.
type Purpose string

// Supported purposes.
const (
	PurposePasswordReset    Purpose = "password_reset"
	PurposeUserRegistration Purpose = "user_registration"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposePasswordReset, PurposeUserRegistration:
		return true
	default:
		return false
	}
}

// OneTimePassword is an issued code and the instant after which it is rejected.
type OneTimePassword struct {
	Code      string
	ExpiresAt time.Time
}

// Outcome is the result of validating a submitted code.
type Outcome int

// Validation outcomes, in the order they are checked.
const (
	OK Outcome = iota
	NotFound
	Expired
	Mismatched
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case Expired:
		return "expired"
	case Mismatched:
		return "mismatched"
	default:
		return "unknown"
	}
}

// Registry stores at most one live code per (subject, purpose).
// Issuing again for the same key replaces the previous code.
type Registry struct {
	mu      sync.Mutex
	entries map[string]map[Purpose]OneTimePassword

	now    func() time.Time
	random io.Reader
	ttl    time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRandom overrides the source of code digits.
func WithRandom(random io.Reader) Option {
	return func(r *Registry) { r.random = random }
}

// WithTTL overrides how long an issued code stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]map[Purpose]OneTimePassword),
		now:     time.Now,
		random:  rand.Reader,
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the lifetime given to issued codes.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Issue generates a code for subject and purpose, replacing any outstanding one.
func (r *Registry) Issue(purpose Purpose, subject string) (OneTimePassword, error) {
	if !purpose.Valid() {
		return OneTimePassword{}, oops.Code("OTP_INVALID_PURPOSE").
			With("purpose", string(purpose)).
			Errorf("unknown otp purpose")
	}

	// Digits are drawn before taking the lock so a slow reader never blocks other subjects.
	code, err := generateCode(r.random)
	if err != nil {
		return OneTimePassword{}, oops.Code("OTP_GENERATE_FAILED").Wrap(err)
	}

	password := OneTimePassword{
		Code:      code,
		ExpiresAt: r.now().Add(r.ttl),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	purposes, ok := r.entries[subject]
	if !ok {
		purposes = make(map[Purpose]OneTimePassword)
		r.entries[subject] = purposes
	}
	purposes[purpose] = password

	return password, nil
}

// Validate checks a submitted code without consuming it.
func (r *Registry) Validate(subject string, purpose Purpose, code string) Outcome {
	r.mu.Lock()
	purposes, ok := r.entries[subject]
	if !ok {
		r.mu.Unlock()
		return NotFound
	}
	password, ok := purposes[purpose]
	r.mu.Unlock()
	if !ok {
		return NotFound
	}

	if r.now().After(password.ExpiresAt) {
		return Expired
	}
	if subtle.ConstantTimeCompare([]byte(password.Code), []byte(code)) != 1 {
		return Mismatched
	}
	return OK
}

// Delete removes every code held for subject. Deleting an unknown subject is a no-op.
func (r *Registry) Delete(subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, subject)
}

// Len returns the number of subjects with at least one stored code.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var ten = big.NewInt(10)

func generateCode(random io.Reader) (string, error) {
	digits := make([]byte, CodeLength)
	for i := range digits {
		n, err := rand.Int(random, ten)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
