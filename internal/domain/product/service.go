package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lineside/mes/internal/repository"
)

// Service handles product and part-definition operations.
type Service struct {
	products Repository
	parts    PartRepository
	logger   *slog.Logger
}

// NewService creates a new product service.
func NewService(products Repository, parts PartRepository, logger *slog.Logger) *Service {
	return &Service{products: products, parts: parts, logger: logger}
}

// CreateRequest defines product creation inputs.
type CreateRequest struct {
	Name     string
	IsActive bool
}

// Create creates a new product.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidInput
	}

	p := &Product{
		ID:        uuid.NewString(),
		Name:      req.Name,
		IsActive:  req.IsActive,
		CreatedAt: time.Now(),
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	return p, nil
}

// Get fetches a product by ID.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// Update modifies an existing product.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return ErrInvalidInput
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("updating product: %w", err)
	}
	return nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

// PartCreateRequest defines part-definition creation inputs.
type PartCreateRequest struct {
	PartNumber string
	PartName   string
}

// CreatePart creates a new part definition.
func (s *Service) CreatePart(ctx context.Context, req PartCreateRequest) (*PartDefinition, error) {
	if strings.TrimSpace(req.PartNumber) == "" || strings.TrimSpace(req.PartName) == "" {
		return nil, ErrInvalidInput
	}

	part := &PartDefinition{
		ID:         uuid.NewString(),
		PartNumber: req.PartNumber,
		PartName:   req.PartName,
	}

	if err := s.parts.Create(ctx, part); err != nil {
		return nil, fmt.Errorf("creating part definition: %w", err)
	}

	return part, nil
}

// GetPart fetches a part definition by ID.
func (s *Service) GetPart(ctx context.Context, id string) (*PartDefinition, error) {
	part, err := s.parts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPartNotFound
		}
		return nil, fmt.Errorf("getting part definition: %w", err)
	}
	return part, nil
}

// ListParts returns all part definitions.
func (s *Service) ListParts(ctx context.Context) ([]PartDefinition, error) {
	return s.parts.List(ctx)
}

// UpdatePart modifies an existing part definition.
func (s *Service) UpdatePart(ctx context.Context, part *PartDefinition) error {
	if part == nil || strings.TrimSpace(part.PartNumber) == "" {
		return ErrInvalidInput
	}
	if err := s.parts.Update(ctx, part); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPartNotFound
		}
		return fmt.Errorf("updating part definition: %w", err)
	}
	return nil
}

// DeletePart removes a part definition.
func (s *Service) DeletePart(ctx context.Context, id string) error {
	if err := s.parts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPartNotFound
		}
		return fmt.Errorf("deleting part definition: %w", err)
	}
	return nil
}
