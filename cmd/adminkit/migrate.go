// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/adminkit/adminkit/internal/store"
)

// migrator is the subset of *store.Migrator the CLI drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back and inspect the PostgreSQL schema migrations.`,
	}

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				if all {
					return m.Down()
				}
				return m.Steps(-1)
			})
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m migrator) error {
					pending, err := m.PendingMigrations()
					if err != nil {
						return err
					}
					if len(pending) == 0 {
						cmd.Println("Database is up to date")
						return nil
					}
					cmd.Printf("Applying %d migration(s)...\n", len(pending))
					return m.Up()
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					if v == 0 {
						cmd.Println("No migrations applied")
						return nil
					}
					name, nameErr := store.MigrationName(v)
					if nameErr != nil {
						name = fmt.Sprintf("%06d", v)
					}
					cmd.Printf("Version: %d (%s)\n", v, name)
					if dirty {
						cmd.Println("WARNING: database is dirty; fix the failed migration and run 'adminkit migrate force'")
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseForceVersion(args[0])
				if err != nil {
					return err
				}
				return withMigrator(cmd, func(m migrator) error {
					return m.Force(v)
				})
			},
		},
	)

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(migrator) error) error {
	cfg, err := loadConfig(cmd, withoutMail)
	if err != nil {
		return err
	}
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
			cmd.PrintErrln("failed to close migrator:", closeErr)
		}
	}()

	if err := fn(m); err != nil {
		return oops.Code("MIGRATION_FAILED").With("command", cmd.Name()).Wrap(err)
	}
	cmd.Printf("migrate %s: done\n", cmd.Name())
	return nil
}

func parseForceVersion(s string) (int, error) {
	s = strings.TrimSpace(s)
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return v, nil
}
