package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cjnewshub/apiserver/types"
)

// VerificationRepository keeps one-time codes for password recovery and
// profile updates. Each key (email or user id) has at most one live
// request, and consuming a request happens in the same transaction as
// the account change it authorizes.
type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// UpsertRecovery replaces any previous request for the same email.
func (r *VerificationRepository) UpsertRecovery(ctx context.Context, req types.RecoveryRequest) error {
	const query = `
		INSERT INTO recovery_requests (email, user_name, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET user_name = EXCLUDED.user_name,
			code = EXCLUDED.code,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`
	_, err := r.db.ExecContext(ctx, query,
		strings.ToLower(req.Email), req.UserName, req.Code, req.CreatedAt, req.ExpiresAt)
	return err
}

// ConsumeRecovery deletes the live request matching (email, code) and sets
// the account password. Without a match (wrong code, expired, or none
// issued) it returns ErrNotFound and changes nothing.
func (r *VerificationRepository) ConsumeRecovery(ctx context.Context, email, code, passwordHash string, now time.Time) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		const consume = `
			DELETE FROM recovery_requests
			WHERE email = lower($1) AND code = $2 AND expires_at > $3
			RETURNING email`
		var consumed string
		if err := tx.QueryRowContext(ctx, consume, email, code, now).Scan(&consumed); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		const update = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE lower(email) = $3`
		result, err := tx.ExecContext(ctx, update, passwordHash, now, consumed)
		if err != nil {
			return err
		}
		return checkAffected(result)
	})
}

// UpsertProfileUpdate replaces any previous request for the same user.
func (r *VerificationRepository) UpsertProfileUpdate(ctx context.Context, req types.ProfileUpdateRequest) error {
	const query = `
		INSERT INTO profile_update_requests (user_id, new_email, new_password_hash, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET new_email = EXCLUDED.new_email,
			new_password_hash = EXCLUDED.new_password_hash,
			code = EXCLUDED.code,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`
	_, err := r.db.ExecContext(ctx, query,
		req.UserID, strings.ToLower(req.NewEmail), req.NewPasswordHash, req.Code, req.CreatedAt, req.ExpiresAt)
	return err
}

// ConsumeProfileUpdate deletes the live request matching (userID, code)
// and applies its non-empty fields to the account, returning the updated
// user. A mismatch yields ErrNotFound; a new email taken by another
// account yields ErrAlreadyExists. Either way nothing changes.
func (r *VerificationRepository) ConsumeProfileUpdate(ctx context.Context, userID, code string, now time.Time) (types.User, error) {
	var updated types.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const consume = `
			DELETE FROM profile_update_requests
			WHERE user_id = $1 AND code = $2 AND expires_at > $3
			RETURNING new_email, new_password_hash`
		var newEmail, newPasswordHash string
		if err := tx.QueryRowContext(ctx, consume, userID, code, now).Scan(&newEmail, &newPasswordHash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		update := `
			UPDATE users
			SET email = COALESCE(NULLIF($1, ''), email),
				password_hash = COALESCE(NULLIF($2, ''), password_hash),
				updated_at = $3
			WHERE id = $4
			RETURNING ` + userColumns
		user, err := scanUser(tx.QueryRowContext(ctx, update, newEmail, newPasswordHash, now, userID))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return updated, nil
}

// DeleteExpired drops requests that can no longer be redeemed.
func (r *VerificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, query := range []string{
		`DELETE FROM recovery_requests WHERE expires_at <= $1`,
		`DELETE FROM profile_update_requests WHERE expires_at <= $1`,
	} {
		result, err := r.db.ExecContext(ctx, query, now)
		if err != nil {
			return total, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
