package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/session"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

// SessionManager starts and ends authenticated sessions.
type SessionManager interface {
	Start(ctx context.Context, userID, origin string) (string, session.Session, error)
	End(ctx context.Context, id string) error
}

// AuthService implements sign-in, sign-out and self-registration.
type AuthService struct {
	users    UserRepository
	sessions SessionManager
	log      logging.Logger
}

func NewAuthService(users UserRepository, sessions SessionManager, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Discard()
	}
	return &AuthService{users: users, sessions: sessions, log: log}
}

// LoginResult is a signed-in user and the bearer token of the session.
type LoginResult struct {
	User    types.User
	Token   string
	Session session.Session
}

// Login checks email and password, and the role when one is given.
// Blocked and pending accounts fail exactly like a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string, role types.Role, origin string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if role != "" && user.Role != role {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.IsActive() {
		s.log.Info(ctx, "login refused for inactive account", "user_id", user.ID, "status", user.Status)
		return LoginResult{}, ErrInvalidCredentials
	}

	if origin != "" && origin != user.IP {
		if err := s.users.UpdateIP(ctx, user.ID, origin); err != nil {
			return LoginResult{}, err
		}
		user.IP = origin
	}

	token, sess, err := s.sessions.Start(ctx, user.ID, origin)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Token: token, Session: sess}, nil
}

// Logout ends the session. It always succeeds for unknown sessions.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.End(ctx, sessionID)
}

// RegisterInput holds a self-registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     types.Role
	Origin   string
}

// RegisterResult carries the new account and, when the caller was
// signed in automatically, the session token.
type RegisterResult struct {
	User    types.User
	Token   string
	Session *session.Session
}

// Register creates a publisher (the default) or subscriber account.
// Publishers wait in pending for activation; subscribers start active on
// the free plan. A session is started only when the caller has none and
// the account is active.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, hasSession bool) (RegisterResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return RegisterResult{}, ErrInvalidInput
	}
	if in.Role == "" {
		in.Role = types.RolePublisher
	}
	if !in.Role.Valid() || in.Role == types.RoleAdmin {
		return RegisterResult{}, ErrInvalidInput
	}

	user := types.User{
		ID:     uuid.NewString(),
		Name:   in.Name,
		Email:  in.Email,
		Role:   in.Role,
		Status: types.UserStatusActive,
		IP:     in.Origin,
	}
	if in.Role == types.RolePublisher {
		user.Status = types.UserStatusPending
	}
	if in.Role == types.RoleSubscriber {
		user.SubscriptionPlan = types.PlanFree
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}
	user.PasswordHash = hashed

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return RegisterResult{}, err
	}
	s.log.Info(ctx, "user registered", "user_id", created.ID, "role", created.Role, "status", created.Status)

	result := RegisterResult{User: created}
	if hasSession || !created.IsActive() {
		return result, nil
	}
	token, sess, err := s.sessions.Start(ctx, created.ID, in.Origin)
	if err != nil {
		return RegisterResult{}, err
	}
	result.Token = token
	result.Session = &sess
	return result, nil
}

// Me returns the account bound to a session.
func (s *AuthService) Me(ctx context.Context, userID string) (types.User, error) {
	return s.users.GetByID(ctx, userID)
}
