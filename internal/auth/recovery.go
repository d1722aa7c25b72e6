// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/adminkit/adminkit/internal/mail"
	"github.com/adminkit/adminkit/internal/otp"
)

// IssuePurposeToken returns an encrypted token binding purpose to the email
// of an existing user. The token starts a verification or reset flow.
func (s *Service) IssuePurposeToken(ctx context.Context, purpose otp.Purpose, email string) (string, error) {
	if !purpose.Valid() {
		return "", oops.Code(CodeInvalidPurpose).With("purpose", string(purpose)).Errorf("unknown token purpose")
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	claims := PurposeClaims{
		Purpose:  purpose,
		Email:    user.Email,
		IssuedAt: s.now().Unix(),
	}
	token, err := s.tokens.Issue(claims, true)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return token, nil
}

// RequestPasswordReset emails a password reset code to the user with email.
// It reports whether the email was accepted for delivery.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	return s.sendCode(ctx, otp.PurposePasswordReset, email)
}

// RequestEmailVerification emails a verification code to the user with email.
// It reports whether the email was accepted for delivery.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) (bool, error) {
	return s.sendCode(ctx, otp.PurposeUserRegistration, email)
}

// ResendEmail sends a fresh code for the flow named by a purpose token and
// returns that purpose.
func (s *Service) ResendEmail(ctx context.Context, purposeToken string) (otp.Purpose, error) {
	claims, err := s.decodePurpose(ctx, purposeToken)
	if err != nil {
		return "", err
	}
	if _, err := s.sendCode(ctx, claims.Purpose, claims.Email); err != nil {
		return "", err
	}
	return claims.Purpose, nil
}

// VerifyEmail completes email verification with the code sent to the user.
func (s *Service) VerifyEmail(ctx context.Context, purposeToken, code string) error {
	claims, err := s.confirm(ctx, purposeToken, otp.PurposeUserRegistration, code)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, claims.Email); err != nil {
		return s.mutationError(err, "mark email verified", claims.Email)
	}
	s.otps.Delete(claims.Email)

	s.logger.InfoContext(ctx, "email verified", "email", claims.Email)
	return nil
}

// ResetPassword replaces the password of the user named by the purpose token
// once the code and the confirmation match.
func (s *Service) ResetPassword(ctx context.Context, purposeToken, code, newPassword, confirmation string) error {
	claims, err := s.confirm(ctx, purposeToken, otp.PurposePasswordReset, code)
	if err != nil {
		return err
	}
	if newPassword != confirmation {
		return oops.Code(CodePasswordMismatch).
			With("email", claims.Email).
			Errorf("passwords do not match")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, claims.Email, hash); err != nil {
		return s.mutationError(err, "update password", claims.Email)
	}
	s.otps.Delete(claims.Email)

	s.logger.InfoContext(ctx, "password reset", "email", claims.Email)
	return nil
}

// confirm decodes the purpose token, checks it was issued for want and
// validates the submitted code. The code is not consumed.
func (s *Service) confirm(ctx context.Context, purposeToken string, want otp.Purpose, code string) (*PurposeClaims, error) {
	claims, err := s.decodePurpose(ctx, purposeToken)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != want {
		return nil, oops.Code(CodeWrongPurpose).
			With("purpose", string(claims.Purpose)).
			With("expected", string(want)).
			Errorf("token issued for another purpose")
	}

	if outcome := s.otps.Validate(claims.Email, want, code); outcome != otp.OK {
		s.metrics.otpRejected(string(want), outcome.String())
		s.logger.InfoContext(ctx, "otp rejected",
			"email", claims.Email,
			"purpose", string(want),
			"outcome", outcome.String())
		return nil, oops.Code(CodeInvalidOTP).
			With("outcome", outcome.String()).
			Errorf("invalid otp")
	}
	return claims, nil
}

func (s *Service) decodePurpose(ctx context.Context, purposeToken string) (*PurposeClaims, error) {
	var claims PurposeClaims
	if err := s.tokens.DecodeEncrypted(purposeToken, &claims); err != nil {
		code, _, _ := Describe(err)
		s.logger.InfoContext(ctx, "purpose token rejected", "code", code, "error", err)
		return nil, oops.Code(CodeInvalidToken).Errorf("invalid token")
	}
	if !claims.Purpose.Valid() || claims.Email == "" {
		return nil, oops.Code(CodeInvalidToken).
			With("purpose", string(claims.Purpose)).
			Errorf("invalid token")
	}
	return &claims, nil
}

func (s *Service) sendCode(ctx context.Context, purpose otp.Purpose, email string) (bool, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return false, err
	}

	password, err := s.otps.Issue(purpose, user.Email)
	if err != nil {
		return false, oops.Code("AUTH_OTP_ISSUE_FAILED").With("purpose", string(purpose)).Wrap(err)
	}
	s.metrics.otpIssued(string(purpose))

	data := mail.TemplateData{
		UserName:    user.UserName,
		OTPCode:     password.Code,
		CompanyName: s.company,
	}
	var subject, body string
	switch purpose {
	case otp.PurposePasswordReset:
		subject, body = mail.SubjectPasswordReset, mail.RenderPasswordReset(data)
	case otp.PurposeUserRegistration:
		subject, body = mail.SubjectEmailVerification, mail.RenderEmailVerification(data)
	}

	accepted, err := s.mailer.Submit(user.Email, subject, body, mail.ContentTypeHTML)
	if err != nil {
		if _, _, known := Describe(err); known {
			return false, err
		}
		return false, oops.Code("AUTH_NOTIFY_FAILED").
			With("purpose", string(purpose)).
			With("email", user.Email).
			Wrap(err)
	}
	if !accepted {
		s.logger.WarnContext(ctx, "notification not queued", "purpose", string(purpose), "email", user.Email)
	}
	return accepted, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("email", email).Errorf("user not found")
		}
		return nil, oops.Code("AUTH_USER_LOOKUP_FAILED").With("email", email).Wrap(err)
	}
	return user, nil
}

func (s *Service) mutationError(err error, operation, email string) error {
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeUserNotFound).With("email", email).Errorf("user not found")
	}
	return oops.Code("AUTH_UPDATE_FAILED").
		With("operation", operation).
		With("email", email).
		Wrap(err)
}
