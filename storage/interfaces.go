package storage

import (
	"context"

	"github.com/poiesic/corpusvec/core"
)

// CheckpointRepository persists training checkpoints, one per corpus key.
// Implementations must be thread-safe and support concurrent access.
type CheckpointRepository interface {
	// LoadCheckpoint retrieves the checkpoint stored under key.
	// If nothing was stored it returns the zero checkpoint for key
	// (Offset 0, VocabularyBuilt false), never nil.
	LoadCheckpoint(ctx context.Context, key string) (*core.Checkpoint, error)

	// SaveCheckpoint validates and atomically overwrites the checkpoint
	// stored under checkpoint.Key. UpdatedAt is set on success.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// DeleteCheckpoint removes the checkpoint stored under key.
	// Deleting a missing checkpoint is not an error.
	DeleteCheckpoint(ctx context.Context, key string) error

	// Close releases the storage backend.
	Close() error
}
