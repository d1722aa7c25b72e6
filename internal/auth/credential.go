// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/adminkit/adminkit/internal/otp"
)

type credentialKind int

const (
	byEmail credentialKind = iota + 1
	byUserName
)

// Credential identifies a user by email or by user name, plus a password.
// The zero value is invalid; use EmailCredential or UserNameCredential.
type Credential struct {
	kind       credentialKind
	identifier string
	password   string
}

// EmailCredential builds a credential that resolves the user by email.
func EmailCredential(email, password string) Credential {
	return Credential{kind: byEmail, identifier: NormalizeEmail(email), password: password}
}

// UserNameCredential builds a credential that resolves the user by user name.
func UserNameCredential(userName, password string) Credential {
	return Credential{kind: byUserName, identifier: userName, password: password}
}

// Identifier returns the email or user name the credential names.
func (c Credential) Identifier() string {
	return c.identifier
}

func (c Credential) lookup(ctx context.Context, users UserRepository) (*User, error) {
	switch c.kind {
	case byEmail:
		return users.GetByEmail(ctx, c.identifier)
	case byUserName:
		return users.GetByUserName(ctx, c.identifier)
	default:
		return nil, oops.Code("AUTH_INVALID_CREDENTIAL").Errorf("credential has no identifier")
	}
}

// Claims is the payload of a bearer token.
type Claims struct {
	Subject  string `json:"sub"`
	Role     Role   `json:"role"`
	Verified bool   `json:"is_verified"`
	IssuedAt int64  `json:"iat"`
}

// UserID parses the subject as a user ID.
func (c *Claims) UserID() (ulid.ULID, error) {
	return ulid.Parse(c.Subject)
}

// PurposeClaims is the payload of an encrypted multi-step flow token.
type PurposeClaims struct {
	Purpose  otp.Purpose `json:"purpose" jsonschema:"enum=password_reset,enum=user_registration"`
	Email    string      `json:"email" jsonschema:"minLength=3"`
	IssuedAt int64       `json:"iat,omitempty"`
}
