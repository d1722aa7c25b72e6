// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package config

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/adminkit/adminkit/internal/logging"
	"github.com/adminkit/adminkit/internal/mail"
)

func invalid(key string, value any, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").
		With("key", key).
		With("value", value).
		Errorf(format, args...)
}

// Validate checks c for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", c.Server.Addr, "server.addr is required")
	}
	if c.Server.CookieName == "" {
		return invalid("server.cookie_name", c.Server.CookieName, "server.cookie_name is required")
	}
	if c.Server.CookieMaxAge < 0 {
		return invalid("server.cookie_max_age", c.Server.CookieMaxAge, "server.cookie_max_age cannot be negative")
	}
	for _, pattern := range c.Server.PublicRoutes {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return oops.Code("CONFIG_INVALID").With("key", "server.public_routes").With("value", pattern).Wrap(err)
		}
	}

	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return invalid("security.bcrypt_cost", c.Security.BcryptCost,
			"security.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch c.SMTP.Provider {
	case "", mail.ProviderGoogle:
	default:
		return invalid("smtp.provider", c.SMTP.Provider, "smtp.provider must be empty or %q", mail.ProviderGoogle)
	}
	if c.SMTP.Provider == "" && (c.SMTP.Port < 1 || c.SMTP.Port > 65535) {
		return invalid("smtp.port", c.SMTP.Port, "smtp.port must be between 1 and 65535")
	}
	if !c.SMTP.DryRun && c.SMTP.Provider == "" && c.SMTP.Host == "" {
		return invalid("smtp.host", c.SMTP.Host, "smtp.host is required unless smtp.provider or smtp.dry_run is set")
	}

	if c.Mail.PollInterval <= 0 {
		return invalid("mail.poll_interval", c.Mail.PollInterval, "mail.poll_interval must be positive")
	}
	if c.Mail.RetryCap <= 0 {
		return invalid("mail.retry_cap", c.Mail.RetryCap, "mail.retry_cap must be positive")
	}
	if c.Mail.QueueCapacity < 0 {
		return invalid("mail.queue_capacity", c.Mail.QueueCapacity, "mail.queue_capacity cannot be negative")
	}
	if c.Mail.MaxAttempts < 0 {
		return invalid("mail.max_attempts", c.Mail.MaxAttempts, "mail.max_attempts cannot be negative")
	}

	if c.OTP.TTL <= 0 {
		return invalid("otp.ttl", c.OTP.TTL, "otp.ttl must be positive")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", c.Log.Format, "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}
	return nil
}
