// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package mail

import (
	_ "embed"
	"html"
	"strings"
)

// Subjects of the built-in notifications.
const (
	SubjectPasswordReset     = "Reset Password"
	SubjectEmailVerification = "User Verification"
)

//go:embed templates/password_reset.html
var passwordResetTemplate string

//go:embed templates/email_verification.html
var emailVerificationTemplate string

// TemplateData fills the {{user_name}}, {{otp_code}} and {{company_name}}
// placeholders.
type TemplateData struct {
	UserName    string
	OTPCode     string
	CompanyName string
}

// RenderPasswordReset returns the HTML body of a password reset email.
func RenderPasswordReset(data TemplateData) string {
	return render(passwordResetTemplate, data)
}

// RenderEmailVerification returns the HTML body of an email verification email.
func RenderEmailVerification(data TemplateData) string {
	return render(emailVerificationTemplate, data)
}

func render(tmpl string, data TemplateData) string {
	return strings.NewReplacer(
		"{{user_name}}", html.EscapeString(data.UserName),
		"{{otp_code}}", html.EscapeString(data.OTPCode),
		"{{company_name}}", html.EscapeString(data.CompanyName),
	).Replace(tmpl)
}
