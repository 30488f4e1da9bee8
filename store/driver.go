package store

import (
	"context"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	// Migrate creates the schema (or directory layout) if it does not exist.
	Migrate(ctx context.Context) error
	Close() error

	// Model blob related methods.
	SaveModel(ctx context.Context, upsert *UpsertModel) (*ModelBlob, error)
	// GetModel returns ModelNotFound when no model has the name.
	GetModel(ctx context.Context, name string) (*ModelBlob, error)
	// ListModels returns models ordered by name; Blob is left empty.
	ListModels(ctx context.Context) ([]*ModelBlob, error)
	DeleteModel(ctx context.Context, name string) error
}
