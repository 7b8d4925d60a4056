package ports

import "context"

// ResultCache stores encoded validation results.
// Keys are content hashes, so an entry never needs invalidation on its own.
type ResultCache interface {
	// Get returns the value stored under key.
	// Returns domain.ErrCacheMiss if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the live keys.
	List(ctx context.Context) ([]string, error)
}
