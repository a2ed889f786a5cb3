// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/storage"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
type CheckpointRepository struct {
	backend *Backend
	owned   bool
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a CheckpointRepository over an open backend.
// Closing the repository leaves the backend open.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
	}
}

// OpenCheckpointRepository opens the database at dir and returns a
// repository that closes it on Close.
func OpenCheckpointRepository(dir string, opts ...BackendOption) (*CheckpointRepository, error) {
	backend, err := OpenBackend(dir, false, opts...)
	if err != nil {
		return nil, err
	}
	return &CheckpointRepository{backend: backend, owned: true}, nil
}

// SaveCheckpoint persists the checkpoint of a corpus in a single transaction.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if err := core.ValidateCheckpoint(checkpoint); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		saved := *checkpoint
		saved.UpdatedAt = time.Now().UTC()
		key := makeCheckpointKey(saved.Key)
		value := storage.MarshalCheckpoint(&saved)
		if err := tx.Set(key, value); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		checkpoint.UpdatedAt = saved.UpdatedAt
		return nil
	}, true)
}

// LoadCheckpoint retrieves the checkpoint of a corpus.
// Returns the zero checkpoint for key if none was saved.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, key string) (*core.Checkpoint, error) {
	if key == "" {
		return nil, core.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	checkpoint := &core.Checkpoint{Key: key}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			loaded, unmarshalErr := storage.UnmarshalCheckpoint(val)
			if unmarshalErr != nil {
				return unmarshalErr
			}
			checkpoint = loaded
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return checkpoint, nil
}

// DeleteCheckpoint removes the checkpoint of a corpus.
func (r *CheckpointRepository) DeleteCheckpoint(ctx context.Context, key string) error {
	if key == "" {
		return core.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCheckpointKey(key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close closes the backend if the repository opened it.
func (r *CheckpointRepository) Close() error {
	if !r.owned || r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}
