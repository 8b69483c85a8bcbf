package interfaces

import "context"

// PersistenceService persists whole blobs by dispersing them across repositories.
//
// Operations on distinct data IDs may run concurrently. Operations on the same
// data ID are not serialized and must be ordered by the caller.
type PersistenceService interface {
	// Save splits data and stores every fragment. It succeeds only if all
	// fragments and their metadata were stored.
	Save(ctx context.Context, dataID string, data []byte) error

	// Load reconstructs the data from the minimum number of fragments,
	// substituting backup fragments for failed reads.
	Load(ctx context.Context, dataID string) ([]byte, error)

	// Delete removes every recorded fragment and returns how many were
	// removed. An unknown data ID yields 0.
	Delete(ctx context.Context, dataID string) (int, error)
}
