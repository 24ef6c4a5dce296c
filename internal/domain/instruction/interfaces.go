package instruction

import "context"

// Repository provides persistence for work instructions.
type Repository interface {
	Create(ctx context.Context, wi *WorkInstruction) error
	Get(ctx context.Context, id string) (*WorkInstruction, error)
	GetLatestInChain(ctx context.Context, originalID string) (*WorkInstruction, error)
	List(ctx context.Context) ([]Summary, error)
	ListChain(ctx context.Context, originalID string) ([]Summary, error)
	Update(ctx context.Context, wi *WorkInstruction) error
	Delete(ctx context.Context, id string) error
	MarkChainNotLatest(ctx context.Context, originalID, exceptID string) error
	MarkChainInactive(ctx context.Context, originalID, exceptID string) error
	DeleteNodes(ctx context.Context, nodeIDs []string) error
}
