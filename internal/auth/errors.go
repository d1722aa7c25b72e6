// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique field is already taken.
var ErrDuplicate = errors.New("duplicate")

// Error codes surfaced to clients.
const (
	CodeUserNotFound              = "AUTH_USER_NOT_FOUND"
	CodePasswordMismatch          = "AUTH_PASSWORD_MISMATCH"
	CodeInvalidToken              = "AUTH_INVALID_TOKEN"
	CodeWrongPurpose              = "AUTH_WRONG_PURPOSE"
	CodeInvalidOTP                = "AUTH_INVALID_OTP"
	CodePermissionDenied          = "AUTH_PERMISSION_DENIED"
	CodeEmailNotVerified          = "AUTH_EMAIL_NOT_VERIFIED"
	CodeUnauthenticated           = "AUTH_UNAUTHENTICATED"
	CodeEmailRegisteredVerified   = "AUTH_EMAIL_REGISTERED_VERIFIED"
	CodeEmailRegisteredUnverified = "AUTH_EMAIL_REGISTERED_UNVERIFIED"
	CodeUserNameTaken             = "AUTH_USER_NAME_TAKEN"
	CodeInvalidUserName           = "AUTH_INVALID_USERNAME"
	CodeInvalidEmail              = "AUTH_INVALID_EMAIL"
	CodeEmptyPassword             = "AUTH_EMPTY_PASSWORD"
	CodePasswordTooLong           = "AUTH_PASSWORD_TOO_LONG"
	CodeInvalidCredential         = "AUTH_INVALID_CREDENTIAL"
	CodeInvalidPurpose            = "AUTH_INVALID_PURPOSE"
	CodeDomainNotAllowed          = "MAIL_DOMAIN_NOT_ALLOWED"
)

var publicMessages = map[string]string{
	CodeUserNotFound:              "User not found",
	CodePasswordMismatch:          "Password does not match",
	CodeInvalidToken:              "Invalid token",
	CodeWrongPurpose:              "Invalid token for wrong purpose",
	CodeInvalidOTP:                "Invalid OTP",
	CodePermissionDenied:          "Permission denied",
	CodeEmailNotVerified:          "User email not verified",
	CodeUnauthenticated:           "Please login first",
	CodeEmailRegisteredVerified:   "User already exists",
	CodeEmailRegisteredUnverified: "User already exists",
	CodeUserNameTaken:             "User already exists",
	CodeDomainNotAllowed:          "Email domain not allowed",
}

// Validation codes echo the error text, which names the offending field.
var validationCodes = map[string]bool{
	CodeInvalidUserName:   true,
	CodeInvalidEmail:      true,
	CodeEmptyPassword:     true,
	CodePasswordTooLong:   true,
	CodeInvalidCredential: true,
	CodeInvalidPurpose:    true,
}

// Describe returns the code of err and the message that may be shown to a
// client. known is false for errors that must be reported as internal.
func Describe(err error) (code, message string, known bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "", "", false
	}
	code, _ = oopsErr.Code().(string)
	if msg, ok := publicMessages[code]; ok {
		return code, msg, true
	}
	if validationCodes[code] {
		return code, oopsErr.Error(), true
	}
	return code, "", false
}
