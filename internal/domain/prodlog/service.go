package prodlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lineside/mes/internal/repository"
)

// Service handles production-log business logic.
type Service struct {
	logs         Repository
	instructions InstructionRepository
	logger       *slog.Logger
}

// NewService creates a new production-log service.
func NewService(logs Repository, instructions InstructionRepository, logger *slog.Logger) *Service {
	return &Service{logs: logs, instructions: instructions, logger: logger}
}

// CreateRequest describes a production-log submission.
type CreateRequest struct {
	WorkInstructionID string
	ProductID         string
	Operator          string
	BatchSize         int
	ProductSerial     string
	Steps             []LogStep
}

// UpdateRequest describes an edit of a recorded production log. Steps
// is the full surviving step list; steps absent from it are removed,
// attempts are reconciled per step.
type UpdateRequest struct {
	ID            string
	BatchSize     *int
	ProductSerial *string
	Steps         []LogStep
}

// Create records a new production run. Every submitted step must
// reference a step node of the run's work instruction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*ProductionLog, error) {
	if req.WorkInstructionID == "" || req.ProductID == "" || req.BatchSize <= 0 {
		return nil, ErrInvalidInput
	}

	wi, err := s.instructions.Get(ctx, req.WorkInstructionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidInput
		}
		return nil, fmt.Errorf("loading work instruction: %w", err)
	}

	for _, step := range req.Steps {
		if !wi.HasStep(step.StepID) {
			return nil, ErrUnknownStep
		}
	}

	now := time.Now()
	log := &ProductionLog{
		ID:                uuid.NewString(),
		WorkInstructionID: req.WorkInstructionID,
		ProductID:         req.ProductID,
		Operator:          req.Operator,
		BatchSize:         req.BatchSize,
		ProductSerial:     req.ProductSerial,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := ReconcileSteps(log, append([]LogStep{}, req.Steps...)); err != nil {
		return nil, err
	}

	if err := s.logs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("creating production log: %w", err)
	}

	return log, nil
}

// Update reconciles an edit request against the persisted log: step
// field updates in place, new steps and attempts appended, steps
// missing from the request removed. Attempts are never pruned here.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*ProductionLog, error) {
	if req.ID == "" || req.Steps == nil {
		return nil, ErrInvalidInput
	}

	log, err := s.logs.Get(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("loading production log: %w", err)
	}

	wi, err := s.instructions.Get(ctx, log.WorkInstructionID)
	if err != nil {
		return nil, fmt.Errorf("loading work instruction: %w", err)
	}
	for _, step := range req.Steps {
		if !wi.HasStep(step.StepID) {
			return nil, ErrUnknownStep
		}
	}

	if err := ReconcileSteps(log, req.Steps); err != nil {
		return nil, err
	}
	if req.BatchSize != nil {
		if *req.BatchSize <= 0 {
			return nil, ErrInvalidInput
		}
		log.BatchSize = *req.BatchSize
	}
	if req.ProductSerial != nil {
		log.ProductSerial = *req.ProductSerial
	}
	log.UpdatedAt = time.Now()

	if err := s.logs.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("updating production log: %w", err)
	}

	return log, nil
}

// Get fetches a production log with its steps and attempts.
func (s *Service) Get(ctx context.Context, id string) (*ProductionLog, error) {
	log, err := s.logs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("getting production log: %w", err)
	}
	return log, nil
}

// List returns production-log summaries.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	return s.logs.List(ctx, opts)
}

// Delete removes a production log with its steps and attempts.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.logs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLogNotFound
		}
		return fmt.Errorf("deleting production log: %w", err)
	}
	return nil
}
