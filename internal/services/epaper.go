package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/moderation"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

// EPaperRepository defines persistence operations for e-paper pages.
type EPaperRepository interface {
	List(ctx context.Context, filter store.EPaperFilter) ([]types.EPaperPage, error)
	Dates(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (types.EPaperPage, error)
	Create(ctx context.Context, page types.EPaperPage) (types.EPaperPage, error)
	SetStatus(ctx context.Context, id string, status types.EPaperStatus) error
	Delete(ctx context.Context, id string) error
}

// EPaperService encapsulates e-paper archive use-cases.
type EPaperService struct {
	repo   EPaperRepository
	policy moderation.Policy
	log    logging.Logger
}

func NewEPaperService(repo EPaperRepository, policy moderation.Policy, log logging.Logger) *EPaperService {
	if log == nil {
		log = logging.Discard()
	}
	return &EPaperService{repo: repo, policy: policy, log: log}
}

// Pages returns the pages of an edition (all editions when date is
// empty). Readers only see active pages.
func (s *EPaperService) Pages(ctx context.Context, actor *types.User, date string) ([]types.EPaperPage, error) {
	filter := store.EPaperFilter{Date: strings.TrimSpace(date)}
	if !isAdmin(actor) {
		filter.Status = types.EPaperActive
	}
	return s.repo.List(ctx, filter)
}

// Page returns one page. Pending pages are hidden from readers.
func (s *EPaperService) Page(ctx context.Context, actor *types.User, id string) (types.EPaperPage, error) {
	page, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.EPaperPage{}, err
	}
	if page.Status != types.EPaperActive && !isAdmin(actor) {
		return types.EPaperPage{}, store.ErrNotFound
	}
	return page, nil
}

// Dates lists the archive's edition dates, newest first.
func (s *EPaperService) Dates(ctx context.Context) ([]string, error) {
	return s.repo.Dates(ctx)
}

// Upload adds a page. Pages from anyone but the chief wait for review.
func (s *EPaperService) Upload(ctx context.Context, actor *types.User, page types.EPaperPage) (types.EPaperPage, error) {
	if actor == nil {
		return types.EPaperPage{}, ErrUnauthorized
	}
	page.ImageURL = strings.TrimSpace(page.ImageURL)
	if page.PageNumber < 1 || page.ImageURL == "" {
		return types.EPaperPage{}, ErrInvalidInput
	}
	if page.Date == "" {
		page.Date = time.Now().UTC().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, page.Date); err != nil {
		return types.EPaperPage{}, ErrInvalidInput
	}

	page.ID = uuid.NewString()
	page.Status = s.policy.EPaperStatus(actor)

	created, err := s.repo.Create(ctx, page)
	if err != nil {
		return types.EPaperPage{}, err
	}
	s.log.Info(ctx, "epaper page uploaded", "page_id", created.ID, "date", created.Date, "status", created.Status)
	return created, nil
}

// Delete permanently removes a page.
func (s *EPaperService) Delete(ctx context.Context, actor *types.User, id string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "epaper page deleted", "page_id", id, "by", actor.ID)
	return nil
}
