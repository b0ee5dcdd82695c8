package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/accountadmin/apiserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, name, email, password_hash, status, created_at, last_login_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Email uniqueness is left to the users_email_key
// constraint so concurrent registrations cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (id, name, email, password_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Status),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// List returns all users, most recent login first. Users that never logged
// in come last.
func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY last_login_at DESC NULLS LAST, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateStatus sets status on every listed user and returns how many rows
// changed. Unknown ids are ignored.
func (r *UserRepository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status types.UserStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE users SET status = $1 WHERE id = ANY($2::uuid[])`
	result, err := r.db.ExecContext(ctx, query, string(status), pq.Array(uuidStrings(ids)))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ConfirmUnverified moves an unverified user to active. It reports false
// when the user is missing or not unverified.
func (r *UserRepository) ConfirmUnverified(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `UPDATE users SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, string(types.StatusActive), id, string(types.StatusUnverified))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RecordLogin stamps last_login_at unless the user was blocked or removed
// after it was read.
func (r *UserRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const query = `UPDATE users SET last_login_at = $1 WHERE id = $2 AND status <> $3`
	result, err := r.db.ExecContext(ctx, query, at, id, string(types.StatusBlocked))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM users WHERE id = ANY($1::uuid[])`
	result, err := r.db.ExecContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) DeleteByStatus(ctx context.Context, status types.UserStatus) (int64, error) {
	const query = `DELETE FROM users WHERE status = $1`
	result, err := r.db.ExecContext(ctx, query, string(status))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var status string
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&status,
		&user.CreatedAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.Status = types.UserStatus(status)
	if !user.Status.Valid() {
		return types.User{}, fmt.Errorf("user %s has unknown status %q", user.ID, status)
	}
	if lastLogin.Valid {
		at := lastLogin.Time
		user.LastLoginAt = &at
	}
	return user, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
