// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/config"
	"github.com/adminkit/adminkit/internal/httpapi"
	"github.com/adminkit/adminkit/internal/observability"
)

const defaultShutdownTimeout = 10 * time.Second

type serveConfig struct {
	autoMigrate     bool
	shutdownTimeout time.Duration
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	flags := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, metrics server and mail worker",
		Long: `Start the AdminKit HTTP API together with the observability server
and the background worker that delivers verification and reset emails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, flags, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&flags.autoMigrate, "auto-migrate", false, "apply pending database migrations before serving")
	cmd.Flags().DurationVar(&flags.shutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "graceful shutdown timeout")

	return cmd
}

// runServeWithDeps runs the server until ctx is cancelled, a signal arrives
// or a server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, flags *serveConfig, deps *ServeDeps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ready atomic.Bool
	var (
		reg       *prometheus.Registry
		metrics   *observability.Metrics
		obsServer *observability.Server
		obsErrCh  <-chan error
	)
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, ready.Load, logger)
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer stopWithTimeout(logger, "observability server", flags.shutdownTimeout, obsServer.Stop)
		reg = obsServer.Registry()
		metrics = obsServer.Metrics()
	} else {
		reg = prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
	}

	if flags.autoMigrate {
		if err := autoMigrate(cmd, cfg, logger); err != nil {
			return err
		}
	}

	users, closeUsers, err := deps.UserRepositoryFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	dispatcher, err := newDispatcher(cfg, deps, logger, reg)
	if err != nil {
		return err
	}
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	svc, err := newAuthService(cfg, users, dispatcher, logger, reg)
	if err != nil {
		return err
	}

	if cfg.Admin.UserName != "" && cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if _, _, err := svc.EnsureAdmin(ctx, auth.AdminSeed{
			UserName: cfg.Admin.UserName,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		}); err != nil {
			return oops.Code("SEED_FAILED").With("user_name", cfg.Admin.UserName).Wrap(err)
		}
	}

	opts := []httpapi.Option{httpapi.WithLogger(logger), httpapi.WithMetrics(metrics)}
	if cfg.Federated.Secret != "" {
		verifier, err := httpapi.NewJWTIdentityVerifier(cfg.Federated.Secret, cfg.Federated.Issuer, cfg.Federated.Audience)
		if err != nil {
			return err
		}
		opts = append(opts, httpapi.WithIdentityVerifier(verifier))
	}
	router, err := httpapi.NewRouter(svc, httpapi.Config{
		CookieName:   cfg.Server.CookieName,
		CookieMaxAge: cfg.Server.CookieMaxAge,
		CookieSecure: cfg.Server.CookieSecure,
		CORSOrigins:  cfg.Server.CORSOrigins,
		PublicRoutes: cfg.Server.PublicRoutes,
	}, opts...)
	if err != nil {
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	errCh := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	ready.Store(true)
	cmd.Printf("AdminKit listening on %s\n", listener.Addr())
	logger.Info("adminkit ready", "addr", listener.Addr().String(), "metrics_addr", cfg.Metrics.Addr)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	case err := <-errCh:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case err, ok := <-obsErrCh:
		if ok {
			runErr = oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(err)
		}
	}

	ready.Store(false)
	stopWithTimeout(logger, "http server", flags.shutdownTimeout, httpServer.Shutdown)
	logger.Info("shutdown complete")
	return runErr
}

func stopWithTimeout(logger *slog.Logger, name string, timeout time.Duration, stopFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := stopFn(ctx); err != nil {
		logger.Warn("error stopping "+name, "error", err)
	}
}

func autoMigrate(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	url, err := databaseURL(cfg)
	if err != nil {
		return err
	}
	m, err := newMigrator(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "list pending").Wrap(err)
	}
	if len(pending) == 0 {
		return nil
	}
	logger.Info("applying migrations", "count", len(pending))
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
	}
	cmd.Printf("Applied %d migration(s)\n", len(pending))
	return nil
}
