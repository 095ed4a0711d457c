package legacy

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/services"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

type UserWriter interface {
	Create(ctx context.Context, user types.User) (types.User, error)
}

type ArticleWriter interface {
	Create(ctx context.Context, article types.Article) (types.Article, error)
}

type AdvertisementWriter interface {
	Create(ctx context.Context, ad types.Advertisement) (types.Advertisement, error)
}

type PageWriter interface {
	Create(ctx context.Context, page types.EPaperPage) (types.EPaperPage, error)
}

// ClippingRestorer stores a clipping under its existing id.
type ClippingRestorer interface {
	Restore(ctx context.Context, c types.Clipping, data []byte) (types.Clipping, error)
}

// SettingsWriter stores a settings document under key.
type SettingsWriter interface {
	Import(ctx context.Context, key string, value any) error
}

// Targets are the destinations of an import.
type Targets struct {
	Users     UserWriter
	Articles  ArticleWriter
	Ads       AdvertisementWriter
	Pages     PageWriter
	Clippings ClippingRestorer
	Settings  SettingsWriter
}

// Count tallies one kind of record.
type Count struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Report summarizes an import run.
type Report struct {
	Users     Count `json:"users"`
	Articles  Count `json:"articles"`
	Ads       Count `json:"ads"`
	Pages     Count `json:"pages"`
	Clippings Count `json:"clippings"`
	Settings  int   `json:"settings"`
}

// Importer writes a Snapshot through the repositories. Records whose id
// or email already exists are skipped, so an import can be rerun.
type Importer struct {
	targets  Targets
	hashCost int
	log      logging.Logger
}

func NewImporter(targets Targets, log logging.Logger) *Importer {
	if log == nil {
		log = logging.Discard()
	}
	return &Importer{targets: targets, hashCost: bcrypt.DefaultCost, log: log}
}

// Import loads snap. It stops at the first error other than a duplicate.
func (im *Importer) Import(ctx context.Context, snap Snapshot) (Report, error) {
	var report Report

	for _, u := range snap.Users {
		user := u.User
		if u.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), im.hashCost)
			if err != nil {
				return report, fmt.Errorf("hash password for %s: %w", user.ID, err)
			}
			user.PasswordHash = string(hashed)
		}
		_, err := im.targets.Users.Create(ctx, user)
		if err := tally(&report.Users, err); err != nil {
			return report, fmt.Errorf("import user %s: %w", user.ID, err)
		}
	}

	for _, a := range snap.Articles {
		_, err := im.targets.Articles.Create(ctx, a)
		if err := tally(&report.Articles, err); err != nil {
			return report, fmt.Errorf("import article %s: %w", a.ID, err)
		}
	}

	for _, ad := range snap.Ads {
		_, err := im.targets.Ads.Create(ctx, ad)
		if err := tally(&report.Ads, err); err != nil {
			return report, fmt.Errorf("import advertisement %s: %w", ad.ID, err)
		}
	}

	for _, p := range snap.Pages {
		_, err := im.targets.Pages.Create(ctx, p)
		if err := tally(&report.Pages, err); err != nil {
			return report, fmt.Errorf("import e-paper page %s: %w", p.ID, err)
		}
	}

	for _, c := range snap.Clippings {
		contentType, data, err := services.DecodeDataURL(c.DataURL)
		if err != nil {
			im.log.Warn(ctx, "clipping skipped", "id", c.ID, "error", err)
			report.Clippings.Skipped++
			continue
		}
		_, err = im.targets.Clippings.Restore(ctx, types.Clipping{
			ID:          c.ID,
			ContentType: contentType,
			UserID:      c.UserID,
			CreatedAt:   c.CreatedAt,
		}, data)
		if errors.Is(err, services.ErrInvalidInput) {
			im.log.Warn(ctx, "clipping skipped", "id", c.ID, "error", err)
			report.Clippings.Skipped++
			continue
		}
		if err := tally(&report.Clippings, err); err != nil {
			return report, fmt.Errorf("import clipping %s: %w", c.ID, err)
		}
	}

	settings := []struct {
		key   string
		value any
		ok    bool
	}{
		{services.EmailSettingsKey, snap.Email, snap.Email != nil},
		{services.SubscriptionSettingsKey, snap.Subscription, snap.Subscription != nil},
		{services.WatermarkSettingsKey, snap.Watermark, snap.Watermark != nil},
	}
	for _, s := range settings {
		if !s.ok {
			continue
		}
		if err := im.targets.Settings.Import(ctx, s.key, s.value); err != nil {
			return report, fmt.Errorf("import %s: %w", s.key, err)
		}
		report.Settings++
	}

	im.log.Info(ctx, "legacy import finished",
		"users", report.Users.Imported,
		"articles", report.Articles.Imported,
		"ads", report.Ads.Imported,
		"pages", report.Pages.Imported,
		"clippings", report.Clippings.Imported,
		"settings", report.Settings,
	)
	return report, nil
}

func tally(c *Count, err error) error {
	switch {
	case err == nil:
		c.Imported++
	case errors.Is(err, store.ErrAlreadyExists):
		c.Skipped++
	default:
		return err
	}
	return nil
}
