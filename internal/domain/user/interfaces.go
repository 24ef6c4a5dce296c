package user

import "context"

// Repository provides persistence for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// PreferenceRepository stores small per-user key/value preferences
// (active product, batch size, dark mode).
type PreferenceRepository interface {
	Set(ctx context.Context, userID, key, value string) error
	Get(ctx context.Context, userID, key string) (string, error)
	All(ctx context.Context, userID string) (map[string]string, error)
}
