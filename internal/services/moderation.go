package services

import (
	"context"
	"errors"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/moderation"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

const queueLimit = 100

// ModerationService applies the chief's approve and reject decisions to
// articles, advertisements and e-paper pages.
type ModerationService struct {
	articles ArticleRepository
	ads      AdvertisementRepository
	pages    EPaperRepository
	policy   moderation.Policy
	log      logging.Logger
}

func NewModerationService(
	articles ArticleRepository,
	ads AdvertisementRepository,
	pages EPaperRepository,
	policy moderation.Policy,
	log logging.Logger,
) *ModerationService {
	if log == nil {
		log = logging.Discard()
	}
	return &ModerationService{
		articles: articles,
		ads:      ads,
		pages:    pages,
		policy:   policy,
		log:      log,
	}
}

// Queue is the content waiting for a decision.
type Queue struct {
	Articles       []types.Article       `json:"articles"`
	Advertisements []types.Advertisement `json:"advertisements"`
	Pages          []types.EPaperPage    `json:"pages"`
}

// Pending lists everything held for review.
func (s *ModerationService) Pending(ctx context.Context, actor *types.User) (Queue, error) {
	if !s.policy.CanModerate(actor) {
		return Queue{}, ErrUnauthorized
	}
	articles, _, err := s.articles.List(ctx, store.ArticleFilter{Status: types.ArticlePending}, 0, queueLimit)
	if err != nil {
		return Queue{}, err
	}
	ads, err := s.ads.List(ctx, types.AdPending)
	if err != nil {
		return Queue{}, err
	}
	pages, err := s.pages.List(ctx, store.EPaperFilter{Status: types.EPaperPending})
	if err != nil {
		return Queue{}, err
	}
	return Queue{Articles: articles, Advertisements: ads, Pages: pages}, nil
}

// Approve publishes or activates the entity.
func (s *ModerationService) Approve(ctx context.Context, actor *types.User, contentType, id string) error {
	return s.decide(ctx, actor, contentType, id, "approve", s.policy.Approve)
}

// Reject parks articles as drafts and ads as inactive. Rejected e-paper
// pages are deleted.
func (s *ModerationService) Reject(ctx context.Context, actor *types.User, contentType, id string) error {
	return s.decide(ctx, actor, contentType, id, "reject", s.policy.Reject)
}

func (s *ModerationService) decide(
	ctx context.Context,
	actor *types.User,
	contentType, id, decision string,
	outcomeFor func(moderation.ContentType) (moderation.Outcome, error),
) error {
	if !s.policy.CanModerate(actor) {
		return ErrUnauthorized
	}
	t, err := moderation.ParseContentType(contentType)
	if err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	outcome, err := outcomeFor(t)
	if err != nil {
		return errors.Join(ErrInvalidInput, err)
	}

	if err := s.apply(ctx, t, id, outcome); err != nil {
		return err
	}
	s.log.Info(ctx, "content moderated",
		"type", t, "id", id, "decision", decision, "status", outcome.Status, "removed", outcome.Remove)
	return nil
}

func (s *ModerationService) apply(ctx context.Context, t moderation.ContentType, id string, outcome moderation.Outcome) error {
	switch t {
	case moderation.Article:
		if outcome.Remove {
			return s.articles.Delete(ctx, id)
		}
		return s.articles.SetStatus(ctx, id, types.ArticleStatus(outcome.Status))
	case moderation.Advertisement:
		if outcome.Remove {
			return s.ads.Delete(ctx, id)
		}
		return s.ads.SetStatus(ctx, id, types.AdStatus(outcome.Status))
	case moderation.EPaper:
		if outcome.Remove {
			return s.pages.Delete(ctx, id)
		}
		return s.pages.SetStatus(ctx, id, types.EPaperStatus(outcome.Status))
	}
	return ErrInvalidInput
}
