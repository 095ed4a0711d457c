package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/cjnewshub/apiserver/types"
)

const adColumns = `id, advertiser_name, image_url, target_url, size, status, start_date, end_date,
	clicks, clicked_ips, created_at, updated_at`

// AdvertisementRepository handles persistence for advertisements.
type AdvertisementRepository struct {
	db *sql.DB
}

func NewAdvertisementRepository(db *sql.DB) *AdvertisementRepository {
	return &AdvertisementRepository{db: db}
}

func scanAdvertisement(row scanner) (types.Advertisement, error) {
	var ad types.Advertisement
	err := row.Scan(
		&ad.ID,
		&ad.AdvertiserName,
		&ad.ImageURL,
		&ad.TargetURL,
		&ad.Size,
		&ad.Status,
		&ad.StartDate,
		&ad.EndDate,
		&ad.Clicks,
		pq.Array(&ad.ClickedIPs),
		&ad.CreatedAt,
		&ad.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Advertisement{}, ErrNotFound
		}
		return types.Advertisement{}, err
	}
	if ad.ClickedIPs == nil {
		ad.ClickedIPs = []string{}
	}
	return ad, nil
}

// List returns advertisements, optionally restricted to one status.
func (r *AdvertisementRepository) List(ctx context.Context, status types.AdStatus) ([]types.Advertisement, error) {
	query := `SELECT ` + adColumns + `
		FROM advertisements
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ads := make([]types.Advertisement, 0)
	for rows.Next() {
		ad, err := scanAdvertisement(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *AdvertisementRepository) Get(ctx context.Context, id string) (types.Advertisement, error) {
	query := `SELECT ` + adColumns + ` FROM advertisements WHERE id = $1`
	return scanAdvertisement(r.db.QueryRowContext(ctx, query, id))
}

func (r *AdvertisementRepository) Create(ctx context.Context, ad types.Advertisement) (types.Advertisement, error) {
	now := time.Now().UTC()
	ad.CreatedAt = now
	ad.UpdatedAt = now
	if ad.ClickedIPs == nil {
		ad.ClickedIPs = []string{}
	}

	const query = `
		INSERT INTO advertisements (id, advertiser_name, image_url, target_url, size, status, start_date, end_date,
			clicks, clicked_ips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		ad.ID,
		ad.AdvertiserName,
		ad.ImageURL,
		ad.TargetURL,
		ad.Size,
		ad.Status,
		ad.StartDate,
		ad.EndDate,
		ad.Clicks,
		pq.Array(ad.ClickedIPs),
		ad.CreatedAt,
		ad.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Advertisement{}, ErrAlreadyExists
		}
		return types.Advertisement{}, err
	}
	return ad, nil
}

// Update rewrites the campaign fields and status. Click counters are only
// ever changed by TrackClick.
func (r *AdvertisementRepository) Update(ctx context.Context, ad types.Advertisement) (types.Advertisement, error) {
	query := `
		UPDATE advertisements
		SET advertiser_name = $1,
			image_url = $2,
			target_url = $3,
			size = $4,
			status = $5,
			start_date = $6,
			end_date = $7,
			updated_at = $8
		WHERE id = $9
		RETURNING ` + adColumns
	return scanAdvertisement(r.db.QueryRowContext(
		ctx,
		query,
		ad.AdvertiserName,
		ad.ImageURL,
		ad.TargetURL,
		ad.Size,
		ad.Status,
		ad.StartDate,
		ad.EndDate,
		time.Now().UTC(),
		ad.ID,
	))
}

func (r *AdvertisementRepository) SetStatus(ctx context.Context, id string, status types.AdStatus) error {
	const query = `UPDATE advertisements SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ToggleStatus flips active to inactive and anything else to active.
func (r *AdvertisementRepository) ToggleStatus(ctx context.Context, id string) (types.Advertisement, error) {
	query := `
		UPDATE advertisements
		SET status = CASE WHEN status = 'active' THEN 'inactive' ELSE 'active' END,
			updated_at = $2
		WHERE id = $1
		RETURNING ` + adColumns
	return scanAdvertisement(r.db.QueryRowContext(ctx, query, id, time.Now().UTC()))
}

// TrackClick credits origin once per advertisement. The membership test,
// append and increment run as one guarded UPDATE, so concurrent clicks
// from the same address cannot both be counted. credited is false when
// the address was already recorded.
func (r *AdvertisementRepository) TrackClick(ctx context.Context, id, origin string) (ad types.Advertisement, credited bool, err error) {
	query := `
		UPDATE advertisements
		SET clicks = clicks + 1,
			clicked_ips = array_append(clicked_ips, $2::text),
			updated_at = $3
		WHERE id = $1 AND NOT ($2::text = ANY(clicked_ips))
		RETURNING ` + adColumns
	ad, err = scanAdvertisement(r.db.QueryRowContext(ctx, query, id, origin, time.Now().UTC()))
	if err == nil {
		return ad, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return types.Advertisement{}, false, err
	}

	ad, err = r.Get(ctx, id)
	if err != nil {
		return types.Advertisement{}, false, err
	}
	return ad, false, nil
}

func (r *AdvertisementRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM advertisements WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
