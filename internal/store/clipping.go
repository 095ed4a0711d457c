package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cjnewshub/apiserver/types"
)

// ClippingRepository handles persistence for clipping metadata. The image
// bytes live in object storage under ObjectKey.
type ClippingRepository struct {
	db *sql.DB
}

func NewClippingRepository(db *sql.DB) *ClippingRepository {
	return &ClippingRepository{db: db}
}

func scanClipping(row scanner) (types.Clipping, error) {
	var c types.Clipping
	if err := row.Scan(&c.ID, &c.ObjectKey, &c.ContentType, &c.UserID, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Clipping{}, ErrNotFound
		}
		return types.Clipping{}, err
	}
	return c, nil
}

// ListByUser returns a user's clippings, newest first.
func (r *ClippingRepository) ListByUser(ctx context.Context, userID string) ([]types.Clipping, error) {
	const query = `
		SELECT id, object_key, content_type, user_id, created_at
		FROM clippings
		WHERE user_id = $1
		ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clippings := make([]types.Clipping, 0)
	for rows.Next() {
		c, err := scanClipping(rows)
		if err != nil {
			return nil, err
		}
		clippings = append(clippings, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clippings, nil
}

func (r *ClippingRepository) Get(ctx context.Context, id string) (types.Clipping, error) {
	const query = `SELECT id, object_key, content_type, user_id, created_at FROM clippings WHERE id = $1`
	return scanClipping(r.db.QueryRowContext(ctx, query, id))
}

func (r *ClippingRepository) Create(ctx context.Context, c types.Clipping) (types.Clipping, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO clippings (id, object_key, content_type, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.ObjectKey, c.ContentType, c.UserID, c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return types.Clipping{}, ErrAlreadyExists
		}
		return types.Clipping{}, err
	}
	return c, nil
}

func (r *ClippingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM clippings WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
