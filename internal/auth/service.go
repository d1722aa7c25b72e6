// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/adminkit/adminkit/internal/mail"
	"github.com/adminkit/adminkit/internal/otp"
	"github.com/adminkit/adminkit/pkg/errutil"
)

// TokenCodec signs and decodes claim sets.
type TokenCodec interface {
	Issue(claims any, encrypt bool) (string, error)
	DecodeSigned(token string, dst any) error
	DecodeEncrypted(token string, dst any) error
}

// OTPStore issues and checks one-time codes.
type OTPStore interface {
	Issue(purpose otp.Purpose, subject string) (otp.OneTimePassword, error)
	Validate(subject string, purpose otp.Purpose, code string) otp.Outcome
	Delete(subject string)
}

// Mailer accepts a notification for asynchronous delivery. accepted is false
// when the message could not be queued.
type Mailer interface {
	Submit(to, subject, body string, contentType mail.ContentType) (accepted bool, err error)
}

// DefaultCompanyName is used in notification templates when none is configured.
const DefaultCompanyName = "AdminKit"

// Service provides authentication and recovery operations.
type Service struct {
	users   UserRepository
	hasher  PasswordHasher
	tokens  TokenCodec
	otps    OTPStore
	mailer  Mailer
	company string
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// Option configures a Service.
type Option func(*Service)

// WithCompanyName sets the name shown in notification emails.
func WithCompanyName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.company = name
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source for token issue times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenCodec,
	otps OTPStore,
	mailer Mailer,
	opts ...Option,
) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if otps == nil {
		return nil, oops.Errorf("otp store is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}

	s := &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		otps:    otps,
		mailer:  mailer,
		company: DefaultCompanyName,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyHash returns a real hash from the configured hasher so that logins for
// unknown users cost the same as logins with a wrong password.
func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		secret, err := randomSecret()
		if err != nil {
			return
		}
		hash, err := s.hasher.Hash(secret)
		if err != nil {
			return
		}
		s.dummy = hash
	})
	return s.dummy
}

// Login authenticates a credential and returns an unencrypted bearer token.
func (s *Service) Login(ctx context.Context, cred Credential) (string, error) {
	if cred.kind == 0 || cred.identifier == "" {
		return "", oops.Code(CodeInvalidCredential).Errorf("email or user name is required")
	}
	method := "email"
	if cred.kind == byUserName {
		method = "user_name"
	}

	user, err := cred.lookup(ctx, s.users)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "lookup user").
				Wrap(err)
		}
		s.hasher.Verify(cred.password, s.dummyHash())
		s.metrics.login(method, "user_not_found")
		return "", oops.Code(CodeUserNotFound).
			With("identifier", cred.identifier).
			Errorf("user not found")
	}

	if !s.hasher.Verify(cred.password, user.PasswordHash) {
		s.metrics.login(method, "password_mismatch")
		s.logger.InfoContext(ctx, "login rejected", "user_id", user.ID.String(), "reason", "password mismatch")
		return "", oops.Code(CodePasswordMismatch).
			With("user_id", user.ID.String()).
			Errorf("password does not match")
	}

	token, err := s.issueBearer(user)
	if err != nil {
		return "", err
	}
	s.metrics.login(method, "success")
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String(), "method", method)
	return token, nil
}

// LoginWithoutPassword issues a bearer token for a user whose identity was
// already established elsewhere, such as a federated provider.
func (s *Service) LoginWithoutPassword(ctx context.Context, user *User) (string, error) {
	if user == nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").Errorf("user is required")
	}
	token, err := s.issueBearer(user)
	if err != nil {
		return "", err
	}
	s.metrics.login("passwordless", "success")
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String(), "method", "passwordless")
	return token, nil
}

func (s *Service) issueBearer(user *User) (string, error) {
	claims := Claims{
		Subject:  user.ID.String(),
		Role:     user.Role,
		Verified: user.Verified,
		IssuedAt: s.now().Unix(),
	}
	token, err := s.tokens.Issue(claims, false)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return token, nil
}

// Registration is a request to create a guest account.
type Registration struct {
	UserName string
	Email    string
	Password string
}

// Register creates an unverified guest account. An email that is already
// registered is rejected with a code that tells whether it was verified.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := ValidateUserName(reg.UserName); err != nil {
		return nil, err
	}
	email := NormalizeEmail(reg.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return nil, oops.Code(CodeEmailRegisteredVerified).With("email", email).Errorf("email is already registered")
	case err == nil:
		return nil, oops.Code(CodeEmailRegisteredUnverified).With("email", email).Errorf("email is already registered")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "lookup email").Wrap(err)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}
	user, err := NewUser(reg.UserName, email, hash, RoleGuest)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	s.metrics.registered()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "user_name", user.UserName)
	return user, nil
}

func (s *Service) create(ctx context.Context, user *User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return oops.Code(CodeUserNameTaken).
				With("user_name", user.UserName).
				Errorf("user already exists")
		}
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}
	return nil
}

// CurrentUser resolves a bearer token to the public view of its user.
func (s *Service) CurrentUser(ctx context.Context, bearer string) (*PublicUser, error) {
	claims, err := s.Authenticate(ctx, bearer)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, oops.Code(CodeInvalidToken).With("subject", claims.Subject).Errorf("invalid token")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("user_id", id.String()).Errorf("user not found")
		}
		return nil, oops.Code("AUTH_CURRENT_USER_FAILED").With("user_id", id.String()).Wrap(err)
	}
	return user.Public(), nil
}

// FederatedIdentity is a user asserted by an external identity provider.
type FederatedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

// FederatedLogin signs in the user with the identity's email, registering a
// guest with an unusable password on first sight.
func (s *Service) FederatedLogin(ctx context.Context, identity FederatedIdentity) (string, error) {
	email := NormalizeEmail(identity.Email)
	if err := ValidateEmail(email); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "lookup email").Wrap(err)
		}
		user, err = s.registerFederated(ctx, email, identity)
		if err != nil {
			return "", err
		}
	}
	return s.LoginWithoutPassword(ctx, user)
}

func (s *Service) registerFederated(ctx context.Context, email string, identity FederatedIdentity) (*User, error) {
	secret, err := randomSecret()
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "generate password").Wrap(err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	base := federatedUserName(identity, email)
	name := base
	for attempt := 0; ; attempt++ {
		user, err := NewUser(name, email, hash, RoleGuest)
		if err != nil {
			return nil, err
		}
		user.Verified = identity.EmailVerified

		err = s.create(ctx, user)
		if err == nil {
			s.metrics.registered()
			s.logger.InfoContext(ctx, "federated user registered",
				"user_id", user.ID.String(),
				"user_name", user.UserName,
				"subject", identity.Subject)
			return user, nil
		}
		if code, _, _ := Describe(err); code != CodeUserNameTaken || attempt >= 3 {
			return nil, err
		}
		name = withSuffix(base, user.ID.String()[20:])
	}
}

// federatedUserName derives a valid user name from the provider's name claims,
// falling back to the local part of the email.
func federatedUserName(identity FederatedIdentity, email string) string {
	raw := strings.TrimSpace(identity.GivenName + " " + identity.FamilyName)
	if raw == "" {
		raw, _, _ = strings.Cut(email, "@")
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '-' || r == '+':
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || !(name[0] >= 'a' && name[0] <= 'z' || name[0] >= 'A' && name[0] <= 'Z') {
		name = "user_" + name
	}
	for len(name) < MinUserNameLength {
		name += "_"
	}
	if len(name) > MaxUserNameLength {
		name = name[:MaxUserNameLength]
	}
	return name
}

func withSuffix(base, suffix string) string {
	suffix = "_" + strings.ToLower(suffix)
	if len(base)+len(suffix) > MaxUserNameLength {
		base = base[:MaxUserNameLength-len(suffix)]
	}
	return base + suffix
}

// AdminSeed describes the administrator account created at bootstrap.
type AdminSeed struct {
	UserName string
	Email    string
	Password string
}

// EnsureAdmin creates the seed administrator unless its user name is already
// taken. created reports whether a new account was stored.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (user *User, created bool, err error) {
	existing, err := s.users.GetByUserName(ctx, seed.UserName)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, oops.Code("AUTH_SEED_ADMIN_FAILED").With("operation", "lookup user name").Wrap(err)
	}

	hash, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return nil, false, err
	}
	user, err = NewUser(seed.UserName, seed.Email, hash, RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	user.Verified = true
	if err := s.create(ctx, user); err != nil {
		errutil.LogError(s.logger, "admin seed failed", err)
		return nil, false, err
	}

	s.logger.InfoContext(ctx, "admin user created", "user_id", user.ID.String(), "user_name", user.UserName)
	return user, true, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
