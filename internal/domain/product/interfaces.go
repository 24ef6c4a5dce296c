package product

import "context"

// Repository provides persistence for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// PartRepository provides persistence for part definitions.
type PartRepository interface {
	Create(ctx context.Context, part *PartDefinition) error
	Get(ctx context.Context, id string) (*PartDefinition, error)
	List(ctx context.Context) ([]PartDefinition, error)
	Update(ctx context.Context, part *PartDefinition) error
	Delete(ctx context.Context, id string) error
}
