package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/moderation"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

const dateLayout = "2006-01-02"

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	List(ctx context.Context, filter store.ArticleFilter, offset, limit int) ([]types.Article, int, error)
	Get(ctx context.Context, id string) (types.Article, error)
	Create(ctx context.Context, article types.Article) (types.Article, error)
	Update(ctx context.Context, article types.Article) (types.Article, error)
	SetStatus(ctx context.Context, id string, status types.ArticleStatus) error
	IncrementViews(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// ArticleService encapsulates article use-cases. The persisted status is
// always decided by the moderation policy from the acting user.
type ArticleService struct {
	repo   ArticleRepository
	policy moderation.Policy
	log    logging.Logger
}

func NewArticleService(repo ArticleRepository, policy moderation.Policy, log logging.Logger) *ArticleService {
	if log == nil {
		log = logging.Discard()
	}
	return &ArticleService{repo: repo, policy: policy, log: log}
}

func canSeeUnpublished(actor *types.User) bool {
	return actor != nil && actor.IsActive() && (actor.Role == types.RoleAdmin || actor.Role == types.RolePublisher)
}

// List returns a page of articles. Readers only ever see published ones.
func (s *ArticleService) List(ctx context.Context, actor *types.User, filter store.ArticleFilter, offset, limit int) ([]types.Article, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if !canSeeUnpublished(actor) {
		filter.Status = types.ArticlePublished
	}
	return s.repo.List(ctx, filter, offset, limit)
}

// Get returns one article. Unpublished articles are hidden from readers.
func (s *ArticleService) Get(ctx context.Context, actor *types.User, id string) (types.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Article{}, err
	}
	if article.Status != types.ArticlePublished && !canSeeUnpublished(actor) {
		return types.Article{}, store.ErrNotFound
	}
	return article, nil
}

// Create stores a new article attributed to actor.
func (s *ArticleService) Create(ctx context.Context, actor *types.User, article types.Article) (types.Article, error) {
	article.Title = strings.TrimSpace(article.Title)
	if article.Title == "" {
		return types.Article{}, ErrInvalidInput
	}

	status, err := s.policy.ArticleStatus(actor, article.Status)
	if err != nil {
		return types.Article{}, errors.Join(ErrInvalidInput, err)
	}

	article.ID = uuid.NewString()
	article.Status = status
	article.Views = 0
	article.AuthorID = ""
	if actor != nil {
		article.AuthorID = actor.ID
		if strings.TrimSpace(article.Author) == "" {
			article.Author = actor.Name
		}
	}
	if article.Date == "" {
		article.Date = time.Now().UTC().Format(dateLayout)
	}

	created, err := s.repo.Create(ctx, article)
	if err != nil {
		return types.Article{}, err
	}
	s.log.Info(ctx, "article created", "article_id", created.ID, "status", created.Status)
	return created, nil
}

// Update replaces the editable fields of an article. The status is
// recomputed, so an unprivileged edit sends a published article back to
// review.
func (s *ArticleService) Update(ctx context.Context, actor *types.User, article types.Article) (types.Article, error) {
	if actor == nil {
		return types.Article{}, ErrUnauthorized
	}
	article.Title = strings.TrimSpace(article.Title)
	if article.Title == "" {
		return types.Article{}, ErrInvalidInput
	}
	if _, err := s.repo.Get(ctx, article.ID); err != nil {
		return types.Article{}, err
	}

	status, err := s.policy.ArticleStatus(actor, article.Status)
	if err != nil {
		return types.Article{}, errors.Join(ErrInvalidInput, err)
	}
	article.Status = status
	return s.repo.Update(ctx, article)
}

// Delete permanently removes an article.
func (s *ArticleService) Delete(ctx context.Context, actor *types.User, id string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "article deleted", "article_id", id, "by", actor.ID)
	return nil
}

// IncrementView counts one read and returns the new total.
func (s *ArticleService) IncrementView(ctx context.Context, id string) (int64, error) {
	return s.repo.IncrementViews(ctx, id)
}
