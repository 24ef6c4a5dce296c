package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lineside/mes/internal/repository"
)

// Service handles account and preference operations.
type Service struct {
	users  Repository
	prefs  PreferenceRepository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(users Repository, prefs PreferenceRepository, logger *slog.Logger) *Service {
	return &Service{users: users, prefs: prefs, logger: logger}
}

// Create registers a new account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, username, password string, role Role) (*User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if role != RoleOperator && role != RoleAdmin {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return u, nil
}

// Authenticate verifies a username/password pair. Unknown usernames
// and wrong passwords both report ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// SetPreference stores one per-user preference value.
func (s *Service) SetPreference(ctx context.Context, userID, key, value string) error {
	if userID == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidInput
	}
	if err := s.prefs.Set(ctx, userID, key, value); err != nil {
		return fmt.Errorf("saving preference: %w", err)
	}
	return nil
}

// Preferences returns all preferences for a user.
func (s *Service) Preferences(ctx context.Context, userID string) (map[string]string, error) {
	prefs, err := s.prefs.All(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	return prefs, nil
}
