// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/config"
)

// Default timeout for the seed-admin command.
const defaultSeedTimeout = 30 * time.Second

type seedAdminConfig struct {
	timeout  time.Duration
	userName string
	email    string
}

// NewSeedAdminCmd creates the seed-admin subcommand.
func NewSeedAdminCmd() *cobra.Command {
	flags := &seedAdminConfig{}

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator account",
		Long: `Creates the administrator from admin.user_name, admin.email and
admin.password (or ADMINKIT_ADMIN_PASSWORD). Running it again is a no-op
once the user name exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedAdmin(cmd, flags, nil)
		},
	}

	cmd.Flags().DurationVar(&flags.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().StringVar(&flags.userName, "user-name", "", "administrator user name (overrides admin.user_name)")
	cmd.Flags().StringVar(&flags.email, "email", "", "administrator email (overrides admin.email)")

	return cmd
}

func runSeedAdmin(cmd *cobra.Command, flags *seedAdminConfig, deps *ServeDeps) error {
	cfg, err := loadConfig(cmd, withoutMail, func(c *config.Config) {
		if flags.userName != "" {
			c.Admin.UserName = flags.userName
		}
		if flags.email != "" {
			c.Admin.Email = flags.email
		}
	})
	if err != nil {
		return err
	}
	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}
	if _, err := databaseURL(cfg); err != nil {
		return err
	}
	if cfg.Admin.UserName == "" || cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return oops.Code("CONFIG_INVALID").Errorf("admin.user_name, admin.email and admin.password are required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	deps = deps.withDefaults()
	users, closeUsers, err := deps.UserRepositoryFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	// The dispatcher is never started; seeding sends no mail.
	reg := prometheus.NewRegistry()
	dispatcher, err := newDispatcher(cfg, deps, logger, reg)
	if err != nil {
		return err
	}
	svc, err := newAuthService(cfg, users, dispatcher, logger, reg)
	if err != nil {
		return err
	}
	user, created, err := svc.EnsureAdmin(ctx, auth.AdminSeed{
		UserName: cfg.Admin.UserName,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		return oops.Code("SEED_FAILED").With("user_name", cfg.Admin.UserName).Wrap(err)
	}

	if created {
		cmd.Printf("Created administrator %q (%s)\n", user.UserName, user.ID)
	} else {
		cmd.Printf("Administrator %q already exists\n", user.UserName)
	}
	return nil
}
