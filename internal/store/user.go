package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cjnewshub/apiserver/types"
)

const userColumns = `id, name, email, role, status, ip, subscription_plan, password_hash, joined_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Status,
		&user.IP,
		&user.SubscriptionPlan,
		&user.PasswordHash,
		&user.JoinedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail matches the address case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

// FindByIdentifier resolves an email or a display name, case-insensitively.
// When several accounts share a name the oldest one wins.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (types.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) OR lower(name) = lower($1)
		ORDER BY (lower(email) = lower($1)) DESC, joined_at
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, strings.TrimSpace(identifier)))
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY joined_at, id`
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

// Create inserts a user. A duplicate email (in any letter case) yields
// ErrAlreadyExists; the unique index makes check-and-insert atomic.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	if user.JoinedAt.IsZero() {
		user.JoinedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	const query = `
		INSERT INTO users (id, name, email, role, status, ip, subscription_plan, password_hash, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.Status,
		user.IP,
		user.SubscriptionPlan,
		user.PasswordHash,
		user.JoinedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrAlreadyExists
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *UserRepository) UpdateIP(ctx context.Context, id, ip string) error {
	const query = `UPDATE users SET ip = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, ip, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ToggleStatus flips active to blocked and anything else to active in one
// statement. The row whose id equals protectedID is never touched and is
// reported as ErrNotFound.
func (r *UserRepository) ToggleStatus(ctx context.Context, id, protectedID string) (types.User, error) {
	query := `
		UPDATE users
		SET status = CASE WHEN status = 'active' THEN 'blocked' ELSE 'active' END,
			updated_at = $3
		WHERE id = $1 AND id <> $2
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, protectedID, time.Now().UTC()))
}

// Delete removes a user. Authored content is left in place.
func (r *UserRepository) Delete(ctx context.Context, id, protectedID string) error {
	const query = `DELETE FROM users WHERE id = $1 AND id <> $2`
	result, err := r.db.ExecContext(ctx, query, id, protectedID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
