package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lineside/mes/internal/domain/instruction"
	"github.com/lineside/mes/internal/domain/prodlog"
	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/domain/user"
)

// ProductRepository is a testify mock for product.Repository.
type ProductRepository struct {
	mock.Mock
}

func (m *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*product.Product); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]product.Product); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// PartRepository is a testify mock for product.PartRepository.
type PartRepository struct {
	mock.Mock
}

func (m *PartRepository) Create(ctx context.Context, part *product.PartDefinition) error {
	args := m.Called(ctx, part)
	return args.Error(0)
}

func (m *PartRepository) Get(ctx context.Context, id string) (*product.PartDefinition, error) {
	args := m.Called(ctx, id)
	if part, ok := args.Get(0).(*product.PartDefinition); ok {
		return part, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PartRepository) List(ctx context.Context) ([]product.PartDefinition, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]product.PartDefinition); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PartRepository) Update(ctx context.Context, part *product.PartDefinition) error {
	args := m.Called(ctx, part)
	return args.Error(0)
}

func (m *PartRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// InstructionRepository is a testify mock for instruction.Repository.
type InstructionRepository struct {
	mock.Mock
}

func (m *InstructionRepository) Create(ctx context.Context, wi *instruction.WorkInstruction) error {
	args := m.Called(ctx, wi)
	return args.Error(0)
}

func (m *InstructionRepository) Get(ctx context.Context, id string) (*instruction.WorkInstruction, error) {
	args := m.Called(ctx, id)
	if wi, ok := args.Get(0).(*instruction.WorkInstruction); ok {
		return wi, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InstructionRepository) GetLatestInChain(ctx context.Context, originalID string) (*instruction.WorkInstruction, error) {
	args := m.Called(ctx, originalID)
	if wi, ok := args.Get(0).(*instruction.WorkInstruction); ok {
		return wi, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InstructionRepository) List(ctx context.Context) ([]instruction.Summary, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]instruction.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InstructionRepository) ListChain(ctx context.Context, originalID string) ([]instruction.Summary, error) {
	args := m.Called(ctx, originalID)
	if list, ok := args.Get(0).([]instruction.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InstructionRepository) Update(ctx context.Context, wi *instruction.WorkInstruction) error {
	args := m.Called(ctx, wi)
	return args.Error(0)
}

func (m *InstructionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *InstructionRepository) MarkChainNotLatest(ctx context.Context, originalID, exceptID string) error {
	args := m.Called(ctx, originalID, exceptID)
	return args.Error(0)
}

func (m *InstructionRepository) MarkChainInactive(ctx context.Context, originalID, exceptID string) error {
	args := m.Called(ctx, originalID, exceptID)
	return args.Error(0)
}

func (m *InstructionRepository) DeleteNodes(ctx context.Context, nodeIDs []string) error {
	args := m.Called(ctx, nodeIDs)
	return args.Error(0)
}

// ProductionLogRepository is a testify mock for prodlog.Repository.
type ProductionLogRepository struct {
	mock.Mock
}

func (m *ProductionLogRepository) Create(ctx context.Context, log *prodlog.ProductionLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *ProductionLogRepository) Get(ctx context.Context, id string) (*prodlog.ProductionLog, error) {
	args := m.Called(ctx, id)
	if log, ok := args.Get(0).(*prodlog.ProductionLog); ok {
		return log, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProductionLogRepository) List(ctx context.Context, opts prodlog.ListOptions) ([]prodlog.Summary, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]prodlog.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProductionLogRepository) Update(ctx context.Context, log *prodlog.ProductionLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *ProductionLogRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// UserRepository is a testify mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) List(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// PreferenceRepository is a testify mock for user.PreferenceRepository.
type PreferenceRepository struct {
	mock.Mock
}

func (m *PreferenceRepository) Set(ctx context.Context, userID, key, value string) error {
	args := m.Called(ctx, userID, key, value)
	return args.Error(0)
}

func (m *PreferenceRepository) Get(ctx context.Context, userID, key string) (string, error) {
	args := m.Called(ctx, userID, key)
	return args.String(0), args.Error(1)
}

func (m *PreferenceRepository) All(ctx context.Context, userID string) (map[string]string, error) {
	args := m.Called(ctx, userID)
	if prefs, ok := args.Get(0).(map[string]string); ok {
		return prefs, args.Error(1)
	}
	return nil, args.Error(1)
}
