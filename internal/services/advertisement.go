package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/moderation"
	"github.com/cjnewshub/apiserver/types"
)

// AdvertisementRepository defines persistence operations for ads.
type AdvertisementRepository interface {
	List(ctx context.Context, status types.AdStatus) ([]types.Advertisement, error)
	Get(ctx context.Context, id string) (types.Advertisement, error)
	Create(ctx context.Context, ad types.Advertisement) (types.Advertisement, error)
	Update(ctx context.Context, ad types.Advertisement) (types.Advertisement, error)
	SetStatus(ctx context.Context, id string, status types.AdStatus) error
	ToggleStatus(ctx context.Context, id string) (types.Advertisement, error)
	TrackClick(ctx context.Context, id, origin string) (types.Advertisement, bool, error)
	Delete(ctx context.Context, id string) error
}

// AdvertisementService encapsulates advertisement use-cases.
type AdvertisementService struct {
	repo   AdvertisementRepository
	policy moderation.Policy
	log    logging.Logger
}

func NewAdvertisementService(repo AdvertisementRepository, policy moderation.Policy, log logging.Logger) *AdvertisementService {
	if log == nil {
		log = logging.Discard()
	}
	return &AdvertisementService{repo: repo, policy: policy, log: log}
}

// List returns ads. Only admins see campaigns that are not running.
func (s *AdvertisementService) List(ctx context.Context, actor *types.User, status types.AdStatus) ([]types.Advertisement, error) {
	if !isAdmin(actor) {
		status = types.AdActive
	}
	return s.repo.List(ctx, status)
}

func (s *AdvertisementService) Get(ctx context.Context, id string) (types.Advertisement, error) {
	return s.repo.Get(ctx, id)
}

func validateAd(ad types.Advertisement) error {
	if strings.TrimSpace(ad.AdvertiserName) == "" || !ad.Size.Valid() {
		return ErrInvalidInput
	}
	return nil
}

// Create stores a new campaign. Anyone but the chief gets it held for
// review.
func (s *AdvertisementService) Create(ctx context.Context, actor *types.User, ad types.Advertisement) (types.Advertisement, error) {
	if actor == nil {
		return types.Advertisement{}, ErrUnauthorized
	}
	ad.AdvertiserName = strings.TrimSpace(ad.AdvertiserName)
	if err := validateAd(ad); err != nil {
		return types.Advertisement{}, err
	}
	status, err := s.policy.AdStatus(actor, ad.Status)
	if err != nil {
		return types.Advertisement{}, errors.Join(ErrInvalidInput, err)
	}

	ad.ID = uuid.NewString()
	ad.Status = status
	ad.Clicks = 0
	ad.ClickedIPs = []string{}

	created, err := s.repo.Create(ctx, ad)
	if err != nil {
		return types.Advertisement{}, err
	}
	s.log.Info(ctx, "advertisement created", "ad_id", created.ID, "status", created.Status)
	return created, nil
}

// Update replaces the campaign fields and recomputes the status.
func (s *AdvertisementService) Update(ctx context.Context, actor *types.User, ad types.Advertisement) (types.Advertisement, error) {
	if actor == nil {
		return types.Advertisement{}, ErrUnauthorized
	}
	ad.AdvertiserName = strings.TrimSpace(ad.AdvertiserName)
	if err := validateAd(ad); err != nil {
		return types.Advertisement{}, err
	}
	status, err := s.policy.AdStatus(actor, ad.Status)
	if err != nil {
		return types.Advertisement{}, errors.Join(ErrInvalidInput, err)
	}
	ad.Status = status
	return s.repo.Update(ctx, ad)
}

// ToggleStatus switches a campaign between active and inactive. Since it
// can activate a campaign it is reserved to the chief.
func (s *AdvertisementService) ToggleStatus(ctx context.Context, actor *types.User, id string) (types.Advertisement, error) {
	if !s.policy.IsChief(actor) {
		return types.Advertisement{}, ErrUnauthorized
	}
	ad, err := s.repo.ToggleStatus(ctx, id)
	if err != nil {
		return types.Advertisement{}, err
	}
	s.log.Info(ctx, "advertisement status toggled", "ad_id", id, "status", ad.Status)
	return ad, nil
}

// TrackClick credits a click from origin. Each origin is counted at most
// once per ad; repeats succeed without changing anything.
func (s *AdvertisementService) TrackClick(ctx context.Context, id, origin string) (types.Advertisement, bool, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return types.Advertisement{}, false, ErrInvalidInput
	}
	return s.repo.TrackClick(ctx, id, origin)
}

// Delete permanently removes a campaign.
func (s *AdvertisementService) Delete(ctx context.Context, actor *types.User, id string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "advertisement deleted", "ad_id", id, "by", actor.ID)
	return nil
}
