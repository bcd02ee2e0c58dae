package storage

import (
	"context"
)

// Storage defines the durable key/text store used for persistence.
// Implementations must be safe for concurrent use.
type Storage interface {
	// GetItem returns the stored text for key.
	// Returns ("", false, nil) if the key has no value.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value under key, overwriting any previous value.
	SetItem(ctx context.Context, key, value string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	// Keys returns all stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)
}

// Remover is implemented by stores that can delete keys.
type Remover interface {
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
type ErrStoreClosed struct{}

func (e ErrStoreClosed) Error() string {
	return "storage is closed"
}
