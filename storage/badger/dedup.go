package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/storage"
)

var errAlreadyMarked = errors.New("identifier already marked")

// DedupRepository implements storage.DedupRepository for BadgerDB.
type DedupRepository struct {
	backend *Backend

	// afterRead runs inside Add between the read and the commit. Tests use
	// it to interleave a competing write.
	afterRead func()
}

var _ storage.DedupRepository = (*DedupRepository)(nil)

// NewDedupRepository creates a new DedupRepository.
func NewDedupRepository(backend *Backend) *DedupRepository {
	return &DedupRepository{
		backend: backend,
	}
}

// Contains reports whether identifier has been marked.
func (r *DedupRepository) Contains(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, storage.ErrEmptyKey
	}
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeDedupKey(identifier))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// maxAddAttempts bounds how often Add retries a transaction that lost a
// commit conflict.
const maxAddAttempts = 3

// Add marks entry.Identifier. The read and the write share one transaction,
// so of two concurrent callers only one can commit. A commit conflict only
// says that someone else wrote the key, possibly a Forget, so the
// transaction is retried and the re-read decides.
func (r *DedupRepository) Add(ctx context.Context, entry *core.DedupEntry) (bool, error) {
	if entry == nil || entry.Identifier == "" {
		return false, storage.ErrEmptyKey
	}
	if entry.MarkedAt.IsZero() {
		entry.MarkedAt = time.Now().UTC()
	}

	for attempt := 1; ; attempt++ {
		err := r.tryAdd(entry)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, errAlreadyMarked):
			return false, nil
		case errors.Is(err, badger.ErrConflict) && attempt < maxAddAttempts:
			continue
		default:
			return false, err
		}
	}
}

func (r *DedupRepository) tryAdd(entry *core.DedupEntry) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDedupKey(entry.Identifier)
		_, err := tx.Get(key)
		if err == nil {
			return errAlreadyMarked
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		if r.afterRead != nil {
			r.afterRead()
		}
		if err := tx.Set(key, storage.MarshalDedupEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetEntry retrieves the entry for identifier.
func (r *DedupRepository) GetEntry(ctx context.Context, identifier string) (*core.DedupEntry, error) {
	if identifier == "" {
		return nil, storage.ErrEmptyKey
	}
	var entry *core.DedupEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDedupKey(identifier))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			entry, err = storage.UnmarshalDedupEntry(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Forget removes identifier from the ledger.
func (r *DedupRepository) Forget(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, storage.ErrEmptyKey
	}
	existed := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDedupKey(identifier)
		if _, err := tx.Get(key); err != nil {
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
