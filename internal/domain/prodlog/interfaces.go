package prodlog

import (
	"context"

	"github.com/lineside/mes/internal/domain/instruction"
)

// Repository provides persistence for production logs.
type Repository interface {
	Create(ctx context.Context, log *ProductionLog) error
	Get(ctx context.Context, id string) (*ProductionLog, error)
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	Update(ctx context.Context, log *ProductionLog) error
	Delete(ctx context.Context, id string) error
}

// ListOptions provides filtering options for listing production logs.
type ListOptions struct {
	WorkInstructionID string
	ProductID         string
	Operator          string
	Limit             int
	Offset            int
}

// InstructionRepository is the slice of the work-instruction repository
// the production-log service needs for step reference checks.
type InstructionRepository interface {
	Get(ctx context.Context, id string) (*instruction.WorkInstruction, error)
}
