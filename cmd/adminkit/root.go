// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/adminkit/adminkit/internal/config"
	"github.com/adminkit/adminkit/internal/logging"
)

const serviceName = "adminkit"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the AdminKit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adminkit",
		Short: "AdminKit - authentication core for admin back offices",
		Long: `AdminKit serves cookie-session authentication for admin back offices:
password and federated login, registration, email verification and
password reset with one-time codes delivered by email.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/adminkit/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedAdminCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig loads configuration for cmd, applies overrides and validates
// the result.
func loadConfig(cmd *cobra.Command, overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(serviceName, version, cfg.Log.Format, level, cmd.ErrOrStderr()), nil
}

// withoutMail puts mail in dry-run mode for commands that never send any.
func withoutMail(cfg *config.Config) {
	cfg.SMTP.DryRun = true
}

func databaseURL(cfg *config.Config) (string, error) {
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database.url (or DATABASE_URL) is required")
	}
	return cfg.Database.URL, nil
}
