// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/auth/memstore"
	"github.com/adminkit/adminkit/internal/auth/postgres"
	"github.com/adminkit/adminkit/internal/config"
	"github.com/adminkit/adminkit/internal/mail"
	"github.com/adminkit/adminkit/internal/otp"
	"github.com/adminkit/adminkit/internal/store"
	"github.com/adminkit/adminkit/internal/token"
)

// ServeDeps contains injectable dependencies for serve and seed-admin.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// UserRepositoryFactory opens the user store and returns its closer.
	// Default: PostgreSQL when database.url is set, in-memory otherwise.
	UserRepositoryFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserRepository, func(), error)

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// TransportFactory creates the outgoing mail transport.
	// Default: mail.NewSMTPTransport
	TransportFactory func(cfg *config.Config) (mail.Transport, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.UserRepositoryFactory == nil {
		out.UserRepositoryFactory = openUserRepository
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	if out.TransportFactory == nil {
		out.TransportFactory = newSMTPTransport
	}
	return &out
}

func openUserRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserRepository, func(), error) {
	if cfg.Database.URL == "" {
		logger.Warn("database.url is not set; users are kept in memory and lost on exit")
		return memstore.NewUserRepository(), func() {}, nil
	}
	pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database")
	return postgres.NewUserRepository(pool), pool.Close, nil
}

func newSMTPTransport(cfg *config.Config) (mail.Transport, error) {
	smtpCfg := mail.SMTPConfig{
		Provider: cfg.SMTP.Provider,
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	}
	if cfg.SMTP.DryRun && smtpCfg.Provider == "" && smtpCfg.Host == "" {
		// Never dialed: the dispatcher discards messages in dry-run mode.
		smtpCfg.Host = "localhost"
	}
	return mail.NewSMTPTransport(smtpCfg)
}

func newDispatcher(cfg *config.Config, deps *ServeDeps, logger *slog.Logger, reg prometheus.Registerer) (*mail.Dispatcher, error) {
	transport, err := deps.TransportFactory(cfg)
	if err != nil {
		return nil, err
	}
	return mail.NewDispatcher(transport,
		mail.NewPolicy(cfg.SMTP.Sender, cfg.SMTP.AllowedDomains),
		mail.Config{
			PollInterval:  cfg.Mail.PollInterval,
			QueueCapacity: cfg.Mail.QueueCapacity,
			RetryCap:      cfg.Mail.RetryCap,
			MaxAttempts:   cfg.Mail.MaxAttempts,
			DryRun:        cfg.SMTP.DryRun,
		},
		mail.WithLogger(logger),
		mail.WithMetrics(mail.NewMetrics(reg)),
	)
}

func newAuthService(cfg *config.Config, users auth.UserRepository, mailer auth.Mailer, logger *slog.Logger, reg prometheus.Registerer) (*auth.Service, error) {
	hasher, err := auth.NewBcryptHasher(cfg.Security.BcryptCost)
	if err != nil {
		return nil, err
	}
	codec, err := token.NewCodec(cfg.Security.SigningSecret, cfg.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if codec.Ephemeral() {
		logger.Warn("token keys are not configured; sessions and purpose tokens will not survive a restart")
	}

	return auth.NewService(users, hasher, codec,
		otp.NewRegistry(otp.WithTTL(cfg.OTP.TTL)),
		mailer,
		auth.WithLogger(logger),
		auth.WithMetrics(auth.NewMetrics(reg)),
		auth.WithCompanyName(cfg.SMTP.CompanyName),
	)
}
