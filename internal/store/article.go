package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/cjnewshub/apiserver/types"
)

const articleColumns = `id, title, excerpt, category, author, author_id, date, image_url, video_url, content,
	tags, status, is_featured, views, created_at, updated_at`

// ArticleFilter narrows List results. Zero values match everything.
type ArticleFilter struct {
	Status   types.ArticleStatus
	Category string
	AuthorID string
}

// ArticleRepository handles persistence for articles.
type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func scanArticle(row scanner) (types.Article, error) {
	var article types.Article
	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Excerpt,
		&article.Category,
		&article.Author,
		&article.AuthorID,
		&article.Date,
		&article.ImageURL,
		&article.VideoURL,
		&article.Content,
		pq.Array(&article.Tags),
		&article.Status,
		&article.IsFeatured,
		&article.Views,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Article{}, ErrNotFound
		}
		return types.Article{}, err
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
	return article, nil
}

func (r *ArticleRepository) List(ctx context.Context, filter ArticleFilter, offset, limit int) ([]types.Article, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const where = `
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR author_id = $3)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles`+where,
		filter.Status, filter.Category, filter.AuthorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + articleColumns + ` FROM articles` + where + `
		ORDER BY created_at DESC, id
		OFFSET $4 LIMIT $5`
	rows, err := r.db.QueryContext(ctx, query, filter.Status, filter.Category, filter.AuthorID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	articles := make([]types.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

func (r *ArticleRepository) Get(ctx context.Context, id string) (types.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	return scanArticle(r.db.QueryRowContext(ctx, query, id))
}

func (r *ArticleRepository) Create(ctx context.Context, article types.Article) (types.Article, error) {
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now
	if article.Tags == nil {
		article.Tags = []string{}
	}

	const query = `
		INSERT INTO articles (id, title, excerpt, category, author, author_id, date, image_url, video_url, content,
			tags, status, is_featured, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		article.ID,
		article.Title,
		article.Excerpt,
		article.Category,
		article.Author,
		article.AuthorID,
		article.Date,
		article.ImageURL,
		article.VideoURL,
		article.Content,
		pq.Array(article.Tags),
		article.Status,
		article.IsFeatured,
		article.Views,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Article{}, ErrAlreadyExists
		}
		return types.Article{}, err
	}
	return article, nil
}

// Update rewrites the editable fields. Views, author and creation time
// are kept from the stored row.
func (r *ArticleRepository) Update(ctx context.Context, article types.Article) (types.Article, error) {
	if article.Tags == nil {
		article.Tags = []string{}
	}
	query := `
		UPDATE articles
		SET title = $1,
			excerpt = $2,
			category = $3,
			author = $4,
			date = $5,
			image_url = $6,
			video_url = $7,
			content = $8,
			tags = $9,
			status = $10,
			is_featured = $11,
			updated_at = $12
		WHERE id = $13
		RETURNING ` + articleColumns
	return scanArticle(r.db.QueryRowContext(
		ctx,
		query,
		article.Title,
		article.Excerpt,
		article.Category,
		article.Author,
		article.Date,
		article.ImageURL,
		article.VideoURL,
		article.Content,
		pq.Array(article.Tags),
		article.Status,
		article.IsFeatured,
		time.Now().UTC(),
		article.ID,
	))
}

func (r *ArticleRepository) SetStatus(ctx context.Context, id string, status types.ArticleStatus) error {
	const query = `UPDATE articles SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// IncrementViews adds one view atomically and returns the new count.
func (r *ArticleRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	const query = `UPDATE articles SET views = views + 1 WHERE id = $1 RETURNING views`
	var views int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM articles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
