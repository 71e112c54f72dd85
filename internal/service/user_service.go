package service

import (
	"context"
	"strings"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/repository"
)

// UserService owns account registration and profile access.
type UserService struct {
	users UserStore
	log   *logger.Logger
}

// NewUserService creates a new user service.
func NewUserService(users UserStore, log *logger.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Username string
	Email    string
	Role     string
}

// Register creates an account with its profile. The profile row is
// created in the same store transaction as the user row.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*repository.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.InvalidInput("username", "username is required")
	}
	role := req.Role
	if role == "" {
		role = repository.RoleEmployee
	}
	if role != repository.RoleEmployee && role != repository.RoleManager {
		return nil, apperrors.InvalidInput("role", "role must be employee or manager")
	}

	u := &repository.User{
		Username: username,
		Email:    strings.TrimSpace(req.Email),
		Role:     role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", u.ID).
		Str("username", u.Username).
		Str("role", u.Role).
		Msg("User registered")

	return u, nil
}

// Get retrieves an account.
func (s *UserService) Get(ctx context.Context, id string) (*repository.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListEmployees retrieves employee accounts for the manager screens.
func (s *UserService) ListEmployees(ctx context.Context, actor *repository.User) ([]*repository.User, error) {
	if !actor.IsManager() {
		return nil, apperrors.Forbidden("only managers can list employees")
	}
	return s.users.ListEmployees(ctx)
}

// Profile retrieves the profile for an account.
func (s *UserService) Profile(ctx context.Context, userID string) (*repository.Profile, error) {
	return s.users.GetProfile(ctx, userID)
}

// UpdateAvatar stores the avatar path for an account's profile.
func (s *UserService) UpdateAvatar(ctx context.Context, actor *repository.User, path string) error {
	if strings.TrimSpace(path) == "" {
		return apperrors.InvalidInput("avatar", "avatar path is required")
	}
	return s.users.UpdateAvatar(ctx, actor.ID, path)
}
