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
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/storage"
)

// ProgressRepository implements storage.ProgressRepository for BadgerDB.
type ProgressRepository struct {
	backend *Backend
}

var _ storage.ProgressRepository = (*ProgressRepository)(nil)

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(backend *Backend) *ProgressRepository {
	return &ProgressRepository{
		backend: backend,
	}
}

// GetOffset returns the last committed offset for fileID, or 0 if none.
func (r *ProgressRepository) GetOffset(ctx context.Context, fileID string) (uint64, error) {
	progress, err := r.GetProgress(ctx, fileID)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return progress.LastOffset, nil
}

// GetProgress retrieves the progress entry for fileID.
func (r *ProgressRepository) GetProgress(ctx context.Context, fileID string) (*core.FileProgress, error) {
	if fileID == "" {
		return nil, storage.ErrEmptyKey
	}
	var progress *core.FileProgress
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		progress, err = readProgress(tx, makeProgressKey(fileID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, storage.ErrNotFound
	}
	return progress, nil
}

// SetOffset commits offset for fileID. Committing the current offset again
// is a no-op apart from refreshing UpdatedAt.
func (r *ProgressRepository) SetOffset(ctx context.Context, fileID string, offset uint64) error {
	if fileID == "" {
		return storage.ErrEmptyKey
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeProgressKey(fileID)
		current, err := readProgress(tx, key)
		if err != nil {
			return err
		}
		if current != nil && offset < current.LastOffset {
			return fmt.Errorf("%w: %s at %d, got %d", storage.ErrOffsetRegression, fileID, current.LastOffset, offset)
		}

		progress := &core.FileProgress{
			FileID:     fileID,
			LastOffset: offset,
			UpdatedAt:  time.Now().UTC(),
		}
		if err := tx.Set(key, storage.MarshalFileProgress(progress)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteProgress removes the progress entry for fileID.
func (r *ProgressRepository) DeleteProgress(ctx context.Context, fileID string) (bool, error) {
	if fileID == "" {
		return false, storage.ErrEmptyKey
	}
	existed := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeProgressKey(fileID)
		_, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		existed = true
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return existed, err
}

// ListProgress returns every progress entry. Keys sort by file identifier.
func (r *ProgressRepository) ListProgress(ctx context.Context) ([]*core.FileProgress, error) {
	var results []*core.FileProgress
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(progressPrefix)
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !hasPrefix(item.Key(), prefix) {
				break
			}

			var progress *core.FileProgress
			err := item.Value(func(val []byte) error {
				var err error
				progress, err = storage.UnmarshalFileProgress(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, progress)
		}
		return nil
	}, false)

	return results, err
}

// readProgress reads a progress entry from the transaction.
// Returns nil, nil if the key does not exist.
func readProgress(tx *badger.Txn, key []byte) (*core.FileProgress, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var progress *core.FileProgress
	err = item.Value(func(val []byte) error {
		var err error
		progress, err = storage.UnmarshalFileProgress(val)
		return err
	})
	return progress, err
}
