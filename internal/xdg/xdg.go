// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package xdg resolves XDG Base Directory paths for AdminKit.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "adminkit"

// ConfigFileName is the file looked up in ConfigDir when no --config is given.
const ConfigFileName = "config.yaml"

// ConfigDir returns the adminkit directory under XDG_CONFIG_HOME, falling
// back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the default config path and whether a regular
// file exists there.
func DefaultConfigFile() (string, bool) {
	path := filepath.Join(ConfigDir(), ConfigFileName)
	info, err := os.Stat(path)
	return path, err == nil && info.Mode().IsRegular()
}
