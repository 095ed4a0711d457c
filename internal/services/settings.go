package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

// Settings keys in the gateway.
const (
	EmailSettingsKey        = "email_settings"
	SubscriptionSettingsKey = "subscription_settings"
	WatermarkSettingsKey    = "watermark_settings"
)

// SettingsService reads and writes the site settings documents. Absent
// documents fall back to the built-in defaults.
type SettingsService struct {
	kv  Gateway
	log logging.Logger
}

func NewSettingsService(kv Gateway, log logging.Logger) *SettingsService {
	if log == nil {
		log = logging.Discard()
	}
	return &SettingsService{kv: kv, log: log}
}

func loadSettings[T any](ctx context.Context, kv Gateway, key string, defaults T) (T, error) {
	data, err := kv.Load(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("load %s: %w", key, err)
	}
	value := defaults
	if err := json.Unmarshal(data, &value); err != nil {
		return defaults, fmt.Errorf("decode %s: %w", key, err)
	}
	return value, nil
}

func (s *SettingsService) save(ctx context.Context, actor *types.User, key string, value any) error {
	if !isAdmin(actor) {
		return ErrUnauthorized
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Save(ctx, key, data); err != nil {
		return err
	}
	s.log.Info(ctx, "settings updated", "key", key, "by", actor.ID)
	return nil
}

func (s *SettingsService) EmailSettings(ctx context.Context) (types.EmailSettings, error) {
	return loadSettings(ctx, s.kv, EmailSettingsKey, types.DefaultEmailSettings())
}

func (s *SettingsService) UpdateEmailSettings(ctx context.Context, actor *types.User, settings types.EmailSettings) error {
	if strings.TrimSpace(settings.EmailTemplate) == "" || strings.TrimSpace(settings.SenderEmail) == "" {
		return ErrInvalidInput
	}
	return s.save(ctx, actor, EmailSettingsKey, settings)
}

func (s *SettingsService) SubscriptionSettings(ctx context.Context) (types.SubscriptionSettings, error) {
	return loadSettings(ctx, s.kv, SubscriptionSettingsKey, types.DefaultSubscriptionSettings())
}

func (s *SettingsService) UpdateSubscriptionSettings(ctx context.Context, actor *types.User, settings types.SubscriptionSettings) error {
	return s.save(ctx, actor, SubscriptionSettingsKey, settings)
}

func (s *SettingsService) WatermarkSettings(ctx context.Context) (types.WatermarkSettings, error) {
	return loadSettings(ctx, s.kv, WatermarkSettingsKey, types.DefaultWatermarkSettings())
}

func (s *SettingsService) UpdateWatermarkSettings(ctx context.Context, actor *types.User, settings types.WatermarkSettings) error {
	return s.save(ctx, actor, WatermarkSettingsKey, settings)
}

// Reset drops a settings document so the defaults apply again.
func (s *SettingsService) Reset(ctx context.Context, actor *types.User, key string) error {
	if !isAdmin(actor) {
		return ErrUnauthorized
	}
	switch key {
	case EmailSettingsKey, SubscriptionSettingsKey, WatermarkSettingsKey:
	default:
		return ErrInvalidInput
	}
	if err := s.kv.Remove(ctx, key); err != nil {
		return err
	}
	s.log.Info(ctx, "settings reset", "key", key, "by", actor.ID)
	return nil
}

// Import stores a settings document without an acting user. It is used by
// the seed and legacy import commands.
func (s *SettingsService) Import(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Save(ctx, key, data)
}
