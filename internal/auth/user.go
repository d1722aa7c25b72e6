// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is the authorization level of a user.
type Role string

// Known roles.
const (
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleGuest
}

// User name validation constraints.
const (
	MinUserNameLength = 3
	MaxUserNameLength = 30
)

// userNameRegex matches names that start with a letter and contain only
// letters, numbers, and underscores.
var userNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is a stored account. PasswordHash never holds a raw password.
type User struct {
	ID           ulid.ULID
	UserName     string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
}

// PublicUser is the view of a user that may leave the service.
type PublicUser struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
	Role     Role   `json:"role"`
	Verified bool   `json:"is_verified"`
}

// Public returns the client-facing view of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID.String(),
		UserName: u.UserName,
		Role:     u.Role,
		Verified: u.Verified,
	}
}

// NewUser creates a User with validated fields and a fresh ID.
func NewUser(userName, email, passwordHash string, role Role) (*User, error) {
	if err := ValidateUserName(userName); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_USER").Errorf("password hash is required")
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_USER").With("role", string(role)).Errorf("unknown role")
	}

	return &User{
		ID:           ulid.Make(),
		UserName:     userName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUserName validates a user name against the naming rules.
func ValidateUserName(userName string) error {
	if userName == "" {
		return oops.Code(CodeInvalidUserName).Errorf("user name cannot be empty")
	}
	if len(userName) < MinUserNameLength {
		return oops.Code(CodeInvalidUserName).
			With("min", MinUserNameLength).
			Errorf("user name must be at least %d characters", MinUserNameLength)
	}
	if len(userName) > MaxUserNameLength {
		return oops.Code(CodeInvalidUserName).
			With("max", MaxUserNameLength).
			Errorf("user name must be at most %d characters", MaxUserNameLength)
	}
	if !userNameRegex.MatchString(userName) {
		return oops.Code(CodeInvalidUserName).
			Errorf("user name must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidEmail).Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return oops.Code(CodeInvalidEmail).With("email", email).Errorf("email is not a valid address")
	}
	return nil
}

// NormalizeEmail trims surrounding space and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository manages user persistence.
type UserRepository interface {
	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByUserName retrieves a user by user name.
	GetByUserName(ctx context.Context, userName string) (*User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// Create stores a new user. Returns ErrDuplicate when the email or user
	// name is taken.
	Create(ctx context.Context, user *User) error

	// UpdatePassword replaces the password hash of the user with email.
	UpdatePassword(ctx context.Context, email, passwordHash string) error

	// MarkEmailVerified flags the user with email as verified.
	MarkEmailVerified(ctx context.Context, email string) error
}
