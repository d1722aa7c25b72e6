// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/pkg/errutil"
)

var userColumns = []string{"id", "user_name", "email", "password_hash", "role", "is_verified", "created_at"}

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})

	repo := NewUserRepository(mock)
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	return repo, mock
}

func TestUserRepository_GetByEmail(t *testing.T) {
	id := ulid.Make()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *auth.User
		wantCode  string
		notFound  bool
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users\s+WHERE LOWER\(email\) = LOWER\(\$1\)`).
					WithArgs("alice@example.com").
					WillReturnRows(pgxmock.NewRows(userColumns).
						AddRow(id.String(), "alice", "alice@example.com", "$2a$04$hash", "admin", true, created))
			},
			want: &auth.User{
				ID:           id,
				UserName:     "alice",
				Email:        "alice@example.com",
				PasswordHash: "$2a$04$hash",
				Role:         auth.RoleAdmin,
				Verified:     true,
				CreatedAt:    created,
			},
		},
		{
			name: "no rows",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("alice@example.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantCode: "USER_NOT_FOUND",
			notFound: true,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("alice@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_SCAN_FAILED",
		},
		{
			name: "corrupt id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("alice@example.com").
					WillReturnRows(pgxmock.NewRows(userColumns).
						AddRow("not-a-ulid", "alice", "alice@example.com", "h", "guest", false, created))
			},
			wantCode: "USER_INVALID_ID",
		},
		{
			name: "unknown role",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("alice@example.com").
					WillReturnRows(pgxmock.NewRows(userColumns).
						AddRow(id.String(), "alice", "alice@example.com", "h", "root", false, created))
			},
			wantCode: "USER_INVALID_ROLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setupMock(mock)

			got, err := repo.GetByEmail(context.Background(), "alice@example.com")
			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				assert.Equal(t, tt.notFound, errors.Is(err, auth.ErrNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserRepository_GetByUserNameAndID(t *testing.T) {
	id := ulid.Make()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE user_name = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(id.String(), "alice", "alice@example.com", "h", "guest", false, created))
	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.GetByUserName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, auth.RoleGuest, user.Role)

	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorContext(t, err, "id", id.String())
}

func TestUserRepository_Create(t *testing.T) {
	user, err := auth.NewUser("alice", "alice@example.com", "$2a$04$hash", auth.RoleGuest)
	require.NoError(t, err)

	expect := func(mock pgxmock.PgxPoolIface) *pgxmock.ExpectedExec {
		return mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), "alice", "alice@example.com", "$2a$04$hash", "guest", false, user.CreatedAt)
	}

	t.Run("inserts", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		expect(mock).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, repo.Create(context.Background(), user))
	})

	t.Run("unique violation is a duplicate", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		expect(mock).WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_user_name_key"})

		err := repo.Create(context.Background(), user)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicate)
		errutil.AssertErrorContext(t, err, "constraint", "users_user_name_key")
	})

	t.Run("other failures", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		expect(mock).WillReturnError(&pgconn.PgError{Code: pgerrcode.NotNullViolation})

		err := repo.Create(context.Background(), user)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
		assert.NotErrorIs(t, err, auth.ErrDuplicate)
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	tests := []struct {
		name     string
		result   pgconn.CommandTag
		execErr  error
		wantCode string
	}{
		{name: "updated", result: pgxmock.NewResult("UPDATE", 1)},
		{name: "no such email", result: pgxmock.NewResult("UPDATE", 0), wantCode: "USER_NOT_FOUND"},
		{name: "database error", execErr: errors.New("connection reset"), wantCode: "USER_UPDATE_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			exec := mock.ExpectExec(`UPDATE users SET password_hash`).
				WithArgs("alice@example.com", "$2a$04$new", repo.now())
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(tt.result)
			}

			err := repo.UpdatePassword(context.Background(), "alice@example.com", "$2a$04$new")
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestUserRepository_MarkEmailVerified(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE users SET is_verified = TRUE`).
		WithArgs("alice@example.com", repo.now()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET is_verified = TRUE`).
		WithArgs("ghost@example.com", repo.now()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.MarkEmailVerified(context.Background(), "alice@example.com"))
	assert.ErrorIs(t, repo.MarkEmailVerified(context.Background(), "ghost@example.com"), auth.ErrNotFound)
}
