package instruction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lineside/mes/internal/repository"
)

// Service handles read/list/delete operations on persisted work
// instructions. Authoring goes through the editor workflow, which
// drives the repository directly through its gateway.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new work-instruction service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get fetches a work instruction with its nodes by ID.
func (s *Service) Get(ctx context.Context, id string) (*WorkInstruction, error) {
	wi, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInstructionNotFound
		}
		return nil, fmt.Errorf("getting work instruction: %w", err)
	}
	return wi, nil
}

// GetLatest fetches the latest member of a version chain.
func (s *Service) GetLatest(ctx context.Context, originalID string) (*WorkInstruction, error) {
	wi, err := s.repo.GetLatestInChain(ctx, originalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInstructionNotFound
		}
		return nil, fmt.Errorf("getting latest in chain: %w", err)
	}
	return wi, nil
}

// List returns summaries of all work instructions.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.repo.List(ctx)
}

// ListChain returns summaries of every version in a chain.
func (s *Service) ListChain(ctx context.Context, originalID string) ([]Summary, error) {
	return s.repo.ListChain(ctx, originalID)
}

// Delete removes a work instruction and its nodes. Instructions that
// production logs were recorded against cannot be removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrInstructionNotFound
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return ErrInstructionInUse
		}
		return fmt.Errorf("deleting work instruction: %w", err)
	}
	return nil
}
