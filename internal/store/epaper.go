package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cjnewshub/apiserver/types"
)

const epaperColumns = `id, page_number, image_url, date, status, created_at`

// EPaperFilter narrows List results. Zero values match everything.
type EPaperFilter struct {
	Date   string
	Status types.EPaperStatus
}

// EPaperRepository handles persistence for e-paper pages.
type EPaperRepository struct {
	db *sql.DB
}

func NewEPaperRepository(db *sql.DB) *EPaperRepository {
	return &EPaperRepository{db: db}
}

func scanEPaperPage(row scanner) (types.EPaperPage, error) {
	var page types.EPaperPage
	err := row.Scan(&page.ID, &page.PageNumber, &page.ImageURL, &page.Date, &page.Status, &page.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.EPaperPage{}, ErrNotFound
		}
		return types.EPaperPage{}, err
	}
	return page, nil
}

func (r *EPaperRepository) List(ctx context.Context, filter EPaperFilter) ([]types.EPaperPage, error) {
	query := `SELECT ` + epaperColumns + `
		FROM epaper_pages
		WHERE ($1 = '' OR date = $1) AND ($2 = '' OR status = $2)
		ORDER BY date DESC, page_number, id`
	rows, err := r.db.QueryContext(ctx, query, filter.Date, filter.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := make([]types.EPaperPage, 0)
	for rows.Next() {
		page, err := scanEPaperPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

// Dates lists the distinct edition dates that have active pages, newest
// first.
func (r *EPaperRepository) Dates(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT date FROM epaper_pages WHERE status = 'active' ORDER BY date DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]string, 0)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

func (r *EPaperRepository) Get(ctx context.Context, id string) (types.EPaperPage, error) {
	query := `SELECT ` + epaperColumns + ` FROM epaper_pages WHERE id = $1`
	return scanEPaperPage(r.db.QueryRowContext(ctx, query, id))
}

func (r *EPaperRepository) Create(ctx context.Context, page types.EPaperPage) (types.EPaperPage, error) {
	page.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO epaper_pages (id, page_number, image_url, date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, page.ID, page.PageNumber, page.ImageURL, page.Date, page.Status, page.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.EPaperPage{}, ErrAlreadyExists
		}
		return types.EPaperPage{}, err
	}
	return page, nil
}

func (r *EPaperRepository) SetStatus(ctx context.Context, id string, status types.EPaperStatus) error {
	const query = `UPDATE epaper_pages SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *EPaperRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM epaper_pages WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
