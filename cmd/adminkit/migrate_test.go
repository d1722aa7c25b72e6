// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package main

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/adminkit/pkg/errutil"
)

type mockMigrator struct {
	mock.Mock
}

func (m *mockMigrator) Up() error { return m.Called().Error(0) }
func (m *mockMigrator) Down() error { return m.Called().Error(0) }
func (m *mockMigrator) Steps(n int) error { return m.Called(n).Error(0) }
func (m *mockMigrator) Force(version int) error { return m.Called(version).Error(0) }
func (m *mockMigrator) Close() error { return m.Called().Error(0) }

func (m *mockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *mockMigrator) PendingMigrations() ([]uint, error) {
	args := m.Called()
	pending, _ := args.Get(0).([]uint)
	return pending, args.Error(1)
}

// useMockMigrator installs a mock migrator for the duration of the test.
func useMockMigrator(t *testing.T) *mockMigrator {
	t.Helper()
	isolateCLI(t)
	t.Setenv("DATABASE_URL", "postgres://adminkit@localhost:5432/adminkit")

	m := &mockMigrator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	original := newMigrator
	newMigrator = func(url string) (migrator, error) {
		assert.Equal(t, "postgres://adminkit@localhost:5432/adminkit", url)
		return m, nil
	}
	t.Cleanup(func() { newMigrator = original })
	return m
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "float parses as integer (Sscanf stops at dot)", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantVersion, version)
			}
		})
	}
}

func TestMigrateUp(t *testing.T) {
	t.Run("applies pending migrations", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("PendingMigrations").Return([]uint{1, 2}, nil).Once()
		m.On("Up").Return(nil).Once()
		m.On("Close").Return(nil).Once()

		out, err := execute(t, "migrate", "up")
		require.NoError(t, err)
		assert.Contains(t, out, "Applying 2 migration(s)")
	})

	t.Run("nothing pending", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("PendingMigrations").Return([]uint{}, nil).Once()
		m.On("Close").Return(nil).Once()

		out, err := execute(t, "migrate", "up")
		require.NoError(t, err)
		assert.Contains(t, out, "Database is up to date")
	})

	t.Run("failure keeps the store code", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("PendingMigrations").Return([]uint{2}, nil).Once()
		m.On("Up").Return(oops.Code("MIGRATION_UP_FAILED").Errorf("dirty database")).Once()
		m.On("Close").Return(nil).Once()

		_, err := execute(t, "migrate", "up")
		errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
		errutil.AssertErrorContext(t, err, "command", "up")
	})
}

func TestMigrateDown(t *testing.T) {
	t.Run("one step by default", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("Steps", -1).Return(nil).Once()
		m.On("Close").Return(nil).Once()

		_, err := execute(t, "migrate", "down")
		require.NoError(t, err)
	})

	t.Run("all", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("Down").Return(nil).Once()
		m.On("Close").Return(nil).Once()

		_, err := execute(t, "migrate", "down", "--all")
		require.NoError(t, err)
	})
}

func TestMigrateVersion(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("Version").Return(uint(2), false, nil).Once()
		m.On("Close").Return(nil).Once()

		out, err := execute(t, "migrate", "version")
		require.NoError(t, err)
		assert.Contains(t, out, "Version: 2 (000002_users_email_unique)")
		assert.NotContains(t, out, "dirty")
	})

	t.Run("dirty", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("Version").Return(uint(1), true, nil).Once()
		m.On("Close").Return(nil).Once()

		out, err := execute(t, "migrate", "version")
		require.NoError(t, err)
		assert.Contains(t, out, "database is dirty")
	})

	t.Run("fresh database", func(t *testing.T) {
		m := useMockMigrator(t)
		m.On("Version").Return(uint(0), false, nil).Once()
		m.On("Close").Return(nil).Once()

		out, err := execute(t, "migrate", "version")
		require.NoError(t, err)
		assert.Contains(t, out, "No migrations applied")
	})
}

func TestMigrateForce(t *testing.T) {
	m := useMockMigrator(t)
	m.On("Force", 1).Return(nil).Once()
	m.On("Close").Return(nil).Once()

	_, err := execute(t, "migrate", "force", "1")
	require.NoError(t, err)

	_, err = execute(t, "migrate", "force", "one")
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	isolateCLI(t)
	_, err := execute(t, "migrate", "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
