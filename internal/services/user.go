package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/moderation"
	"github.com/cjnewshub/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateIP(ctx context.Context, id, ip string) error
	ToggleStatus(ctx context.Context, id, protectedID string) (types.User, error)
	Delete(ctx context.Context, id, protectedID string) error
}

// UserService encapsulates account administration use-cases.
type UserService struct {
	repo   UserRepository
	policy moderation.Policy
	log    logging.Logger
}

func NewUserService(repo UserRepository, policy moderation.Policy, log logging.Logger) *UserService {
	if log == nil {
		log = logging.Discard()
	}
	return &UserService{repo: repo, policy: policy, log: log}
}

func isAdmin(actor *types.User) bool {
	return actor != nil && actor.Role == types.RoleAdmin && actor.IsActive()
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every account. Admins only.
func (s *UserService) List(ctx context.Context, actor *types.User) ([]types.User, error) {
	if !isAdmin(actor) {
		return nil, ErrUnauthorized
	}
	return s.repo.List(ctx)
}

// CreateAdmin adds an active administrator. Only the chief may do this.
func (s *UserService) CreateAdmin(ctx context.Context, actor *types.User, name, email, password, origin string) (types.User, error) {
	if !s.policy.IsChief(actor) {
		return types.User{}, ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return types.User{}, ErrInvalidInput
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return types.User{}, err
	}
	user, err := s.repo.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         types.RoleAdmin,
		Status:       types.UserStatusActive,
		IP:           origin,
		PasswordHash: hashed,
	})
	if err != nil {
		return types.User{}, err
	}
	s.log.Info(ctx, "admin created", "user_id", user.ID, "by", actor.ID)
	return user, nil
}

// ResetPassword overwrites the password of the account named by
// identifier (email or display name). Admins only, and only the chief
// may reset the chief's own password.
func (s *UserService) ResetPassword(ctx context.Context, actor *types.User, identifier, newPassword string) error {
	if !isAdmin(actor) {
		return ErrUnauthorized
	}
	if strings.TrimSpace(identifier) == "" || newPassword == "" {
		return ErrInvalidInput
	}

	target, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	if target.ID == s.policy.ChiefID() && !s.policy.IsChief(actor) {
		s.log.Warn(ctx, "password reset of chief account refused", "by", actor.ID)
		return ErrProtectedIdentity
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, target.ID, hashed); err != nil {
		return err
	}
	s.log.Info(ctx, "password reset", "user_id", target.ID, "by", actor.ID)
	return nil
}

// ToggleUserStatus flips active to blocked, and blocked or pending to
// active. The chief account is never touched, whoever asks.
func (s *UserService) ToggleUserStatus(ctx context.Context, actor *types.User, id string) (types.User, error) {
	if err := s.checkManageable(ctx, actor, id); err != nil {
		return types.User{}, err
	}
	user, err := s.repo.ToggleStatus(ctx, id, s.policy.ChiefID())
	if err != nil {
		return types.User{}, err
	}
	s.log.Info(ctx, "user status toggled", "user_id", id, "status", user.Status, "by", actor.ID)
	return user, nil
}

// DeleteUser removes an account. Authored content is kept. The chief
// account is never removed, whoever asks.
func (s *UserService) DeleteUser(ctx context.Context, actor *types.User, id string) error {
	if err := s.checkManageable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, s.policy.ChiefID()); err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "user_id", id, "by", actor.ID)
	return nil
}

func (s *UserService) checkManageable(ctx context.Context, actor *types.User, id string) error {
	if id == s.policy.ChiefID() {
		by := ""
		if actor != nil {
			by = actor.ID
		}
		s.log.Warn(ctx, "operation on chief account refused", "by", by)
		return ErrProtectedIdentity
	}
	if !isAdmin(actor) {
		return ErrUnauthorized
	}
	if strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	return nil
}
