// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/adminkit/adminkit/internal/config"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			if err := cfg.Validate(); err != nil {
				cmd.PrintErrln("configuration is invalid:", err)
			}
			return nil
		},
	}
	config.RegisterFlags(show.Flags())
	cmd.AddCommand(show)

	return cmd
}
