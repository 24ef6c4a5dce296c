package editor

import (
	"context"

	"github.com/lineside/mes/internal/domain/instruction"
)

// Gateway is the work-instruction persistence surface the editor
// drives. instruction.Repository satisfies it.
type Gateway interface {
	Get(ctx context.Context, id string) (*instruction.WorkInstruction, error)
	GetLatestInChain(ctx context.Context, originalID string) (*instruction.WorkInstruction, error)
	Create(ctx context.Context, wi *instruction.WorkInstruction) error
	Update(ctx context.Context, wi *instruction.WorkInstruction) error
	MarkChainNotLatest(ctx context.Context, originalID, exceptID string) error
	MarkChainInactive(ctx context.Context, originalID, exceptID string) error
	DeleteNodes(ctx context.Context, nodeIDs []string) error
}
