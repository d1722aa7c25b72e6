// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package auth provides authentication and credential recovery for AdminKit.
//
// # Domain Types
//
// Users should be created with NewUser, which validates the user name and
// email and requires a password hash rather than a raw password. Credentials
// are built with EmailCredential or UserNameCredential.
//
// # Services
//
// Service coordinates the flows:
//   - Login, LoginWithoutPassword, FederatedLogin - issue bearer tokens
//   - Register, CurrentUser, EnsureAdmin - account management
//   - IssuePurposeToken, RequestPasswordReset, RequestEmailVerification,
//     ResendEmail - start a recovery or verification flow
//   - VerifyEmail, ResetPassword - complete a flow with a one-time code
//
// Service is created with NewService, which validates its dependencies.
//
// # Errors
//
// Failures carry stable oops codes. Describe maps an error to its code and
// the message that may be shown to a client.
package auth
