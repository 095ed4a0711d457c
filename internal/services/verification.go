package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/notify"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

const defaultVerificationTTL = 15 * time.Minute

// VerificationRepository stores one-time code requests.
type VerificationRepository interface {
	UpsertRecovery(ctx context.Context, req types.RecoveryRequest) error
	ConsumeRecovery(ctx context.Context, email, code, passwordHash string, now time.Time) error
	UpsertProfileUpdate(ctx context.Context, req types.ProfileUpdateRequest) error
	ConsumeProfileUpdate(ctx context.Context, userID, code string, now time.Time) (types.User, error)
}

// EmailSettingsSource supplies the message template and sender identity.
type EmailSettingsSource interface {
	EmailSettings(ctx context.Context) (types.EmailSettings, error)
}

// Notifier hands a rendered message to the delivery transport.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) (string, error)
}

// VerificationConfig holds the code lifetime and the chief's break-glass
// recovery key. An empty MasterKey disables the break-glass path.
type VerificationConfig struct {
	ChiefID   string
	MasterKey string
	TTL       time.Duration
}

// Verification is an issued code and the message sent for it.
type Verification struct {
	Code      string
	Message   notify.Message
	MessageID string
	ExpiresAt time.Time
}

// VerificationService runs the password recovery and profile update
// flows, both confirmed by a six digit code.
type VerificationService struct {
	users    UserRepository
	codes    VerificationRepository
	settings EmailSettingsSource
	notifier Notifier
	cfg      VerificationConfig
	log      logging.Logger
	now      func() time.Time
}

func NewVerificationService(
	users UserRepository,
	codes VerificationRepository,
	settings EmailSettingsSource,
	notifier Notifier,
	cfg VerificationConfig,
	log logging.Logger,
) *VerificationService {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultVerificationTTL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &VerificationService{
		users:    users,
		codes:    codes,
		settings: settings,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// InitiateRecovery issues a recovery code for the account named by
// identifier (email or display name), replacing any earlier one.
func (s *VerificationService) InitiateRecovery(ctx context.Context, identifier string) (Verification, error) {
	if strings.TrimSpace(identifier) == "" {
		return Verification{}, ErrInvalidInput
	}
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return Verification{}, err
	}

	code, err := generateCode()
	if err != nil {
		return Verification{}, err
	}
	now := s.now().UTC()
	req := types.RecoveryRequest{
		Email:     user.Email,
		UserName:  user.Name,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.codes.UpsertRecovery(ctx, req); err != nil {
		return Verification{}, err
	}

	v, err := s.deliver(ctx, notify.KindRecovery, user.Email, user.Name, code)
	if err != nil {
		return Verification{}, err
	}
	v.ExpiresAt = req.ExpiresAt
	s.log.Info(ctx, "recovery code issued", "user_id", user.ID)
	return v, nil
}

// CompleteRecovery sets a new password when code matches the live request
// for the account. For the chief account the master recovery key is also
// accepted, with or without a pending request. A mismatch changes nothing.
func (s *VerificationService) CompleteRecovery(ctx context.Context, identifier, code, newPassword string) error {
	if strings.TrimSpace(identifier) == "" || code == "" || newPassword == "" {
		return ErrInvalidInput
	}
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	if s.isMasterKey(user, code) {
		return s.breakGlassReset(ctx, user, hashed)
	}

	if err := s.codes.ConsumeRecovery(ctx, user.Email, code, hashed, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	s.log.Info(ctx, "password recovered", "user_id", user.ID)
	return nil
}

func (s *VerificationService) isMasterKey(user types.User, code string) bool {
	if s.cfg.MasterKey == "" || user.ID != s.cfg.ChiefID {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.cfg.MasterKey)) == 1
}

func (s *VerificationService) breakGlassReset(ctx context.Context, user types.User, passwordHash string) error {
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return err
	}
	s.log.Warn(ctx, "chief password reset with master recovery key", "user_id", user.ID, "audit", "break_glass")
	return nil
}

// InitiateProfileUpdate issues a code confirming a change of the actor's
// email and/or password. Empty fields are left unchanged on completion.
func (s *VerificationService) InitiateProfileUpdate(ctx context.Context, actor *types.User, newEmail, newPassword string) (Verification, error) {
	if actor == nil {
		return Verification{}, ErrUnauthorized
	}
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" && newPassword == "" {
		return Verification{}, ErrInvalidInput
	}
	if newEmail != "" && !strings.EqualFold(newEmail, actor.Email) {
		existing, err := s.users.GetByEmail(ctx, newEmail)
		if err == nil && existing.ID != actor.ID {
			return Verification{}, store.ErrAlreadyExists
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Verification{}, err
		}
	}

	var newHash string
	if newPassword != "" {
		hashed, err := hashPassword(newPassword)
		if err != nil {
			return Verification{}, err
		}
		newHash = hashed
	}

	code, err := generateCode()
	if err != nil {
		return Verification{}, err
	}
	now := s.now().UTC()
	req := types.ProfileUpdateRequest{
		UserID:          actor.ID,
		NewEmail:        newEmail,
		NewPasswordHash: newHash,
		Code:            code,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.TTL),
	}
	if err := s.codes.UpsertProfileUpdate(ctx, req); err != nil {
		return Verification{}, err
	}

	v, err := s.deliver(ctx, notify.KindProfileUpdate, actor.Email, actor.Name, code)
	if err != nil {
		return Verification{}, err
	}
	v.ExpiresAt = req.ExpiresAt
	s.log.Info(ctx, "profile update code issued", "user_id", actor.ID)
	return v, nil
}

// CompleteProfileUpdate applies the actor's pending change when code
// matches and returns the updated account. A mismatch changes nothing.
func (s *VerificationService) CompleteProfileUpdate(ctx context.Context, actor *types.User, code string) (types.User, error) {
	if actor == nil {
		return types.User{}, ErrUnauthorized
	}
	if code == "" {
		return types.User{}, ErrInvalidInput
	}
	user, err := s.codes.ConsumeProfileUpdate(ctx, actor.ID, code, s.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	s.log.Info(ctx, "profile updated", "user_id", user.ID)
	return user, nil
}

func (s *VerificationService) deliver(ctx context.Context, kind notify.Kind, to, name, code string) (Verification, error) {
	settings := types.DefaultEmailSettings()
	if s.settings != nil {
		loaded, err := s.settings.EmailSettings(ctx)
		if err != nil {
			return Verification{}, fmt.Errorf("load email settings: %w", err)
		}
		settings = loaded
	}

	msg := notify.Compose(kind, settings, to, name, code)
	v := Verification{Code: code, Message: msg}
	if s.notifier == nil {
		s.log.Warn(ctx, "no notifier configured, verification message not sent", "kind", kind)
		return v, nil
	}
	id, err := s.notifier.Send(ctx, msg)
	if err != nil {
		return Verification{}, err
	}
	v.MessageID = id
	return v, nil
}
