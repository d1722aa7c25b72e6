// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package store provides the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connect defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
)

// pinger is the part of a pool Connect checks before returning it.
type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// ConnectOptions tunes Connect.
type ConnectOptions struct {
	// Attempts is how many times the first ping is tried.
	Attempts uint64
	// Backoff is the initial delay between attempts; it doubles each time.
	Backoff time.Duration
	Logger  *slog.Logger
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.Attempts == 0 {
		o.Attempts = DefaultConnectAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultConnectBackoff
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Connect opens a pgx pool for dsn and waits until the server answers a ping.
func Connect(ctx context.Context, dsn string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_INVALID_URL").With("operation", "parse database url").Wrap(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := waitReady(ctx, pool, opts); err != nil {
		return nil, err
	}
	return pool, nil
}

// waitReady pings until the database answers or the attempts run out. The
// pool is closed on failure.
func waitReady(ctx context.Context, pool pinger, opts ConnectOptions) error {
	opts = opts.withDefaults()
	backoff := retry.WithMaxRetries(opts.Attempts-1, retry.NewExponential(opts.Backoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			opts.Logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
