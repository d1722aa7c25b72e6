// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package postgres implements auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/adminkit/adminkit/internal/auth"
)

// Querier is the part of a pgx pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectUser = `
	SELECT id, user_name, email, password_hash, role, is_verified, created_at
	FROM users
`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool Querier
	now  func() time.Time
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool Querier) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+`WHERE LOWER(email) = LOWER($1)`, email)
	return r.get(row, "email", email)
}

// GetByUserName retrieves a user by user name.
func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+`WHERE user_name = $1`, userName)
	return r.get(row, "user_name", userName)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id.String())
	return r.get(row, "id", id.String())
}

func (r *UserRepository) get(row pgx.Row, field, value string) (*auth.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(field, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+field).
			With(field, value).
			Wrap(err)
	}
	return user, nil
}

// Create stores a new user. A unique violation on user name or email is
// reported as auth.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, user_name, email, password_hash, role, is_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`,
		user.ID.String(),
		user.UserName,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Verified,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_DUPLICATE").
				With("user_name", user.UserName).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_name", user.UserName).
			Wrap(err)
	}
	return nil
}

// UpdatePassword replaces the password hash of the user with email.
func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return r.update(ctx, "update password", email, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE LOWER(email) = LOWER($1)
	`, email, passwordHash, r.now())
}

// MarkEmailVerified flags the user with email as verified.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, email string) error {
	return r.update(ctx, "mark email verified", email, `
		UPDATE users SET is_verified = TRUE, updated_at = $2
		WHERE LOWER(email) = LOWER($1)
	`, email, r.now())
}

func (r *UserRepository) update(ctx context.Context, operation, email, sql string, args ...any) error {
	result, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("email", email).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr    string
		user     auth.User
		roleName string
	)
	err := row.Scan(
		&idStr,
		&user.UserName,
		&user.Email,
		&user.PasswordHash,
		&roleName,
		&user.Verified,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	user.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	user.Role = auth.Role(roleName)
	if !user.Role.Valid() {
		return nil, oops.Code("USER_INVALID_ROLE").
			With("id", idStr).
			With("role", roleName).
			Errorf("stored role is not recognized")
	}
	return &user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
