package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/storage"
)

// DedupRepository implements storage.DedupRepository over database/sql.
type DedupRepository struct {
	store *Store
}

var _ storage.DedupRepository = (*DedupRepository)(nil)

// Contains reports whether identifier has been marked.
func (r *DedupRepository) Contains(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, storage.ErrEmptyKey
	}
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE identifier = %s`, r.store.dedupTable, r.store.ph(1))

	var one int
	err := r.store.db.QueryRowContext(ctx, query, identifier).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dedup entry: %w", err)
	}
	return true, nil
}

// Add marks entry.Identifier. The database's unique key decides the race;
// the affected row count says whether this call won it.
func (r *DedupRepository) Add(ctx context.Context, entry *core.DedupEntry) (bool, error) {
	if entry == nil || entry.Identifier == "" {
		return false, storage.ErrEmptyKey
	}
	if err := r.store.checkKeyLength(entry.Identifier); err != nil {
		return false, err
	}
	if entry.MarkedAt.IsZero() {
		entry.MarkedAt = time.Now().UTC()
	}

	query := r.store.dialect.InsertDedup(r.store.dedupTable)
	result, err := r.store.db.ExecContext(ctx, query, entry.Identifier, entry.FileID, entry.MarkedAt.UnixMicro())
	if err != nil {
		return false, fmt.Errorf("failed to add dedup entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// GetEntry returns the entry for identifier.
func (r *DedupRepository) GetEntry(ctx context.Context, identifier string) (*core.DedupEntry, error) {
	if identifier == "" {
		return nil, storage.ErrEmptyKey
	}
	query := fmt.Sprintf(`
		SELECT identifier, file_id, marked_at
		FROM %s
		WHERE identifier = %s
	`, r.store.dedupTable, r.store.ph(1))

	var (
		entry    core.DedupEntry
		markedAt int64
	)
	err := r.store.db.QueryRowContext(ctx, query, identifier).Scan(&entry.Identifier, &entry.FileID, &markedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dedup entry: %w", err)
	}
	entry.MarkedAt = time.UnixMicro(markedAt).UTC()
	return &entry, nil
}

// Forget removes identifier from the ledger.
func (r *DedupRepository) Forget(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, storage.ErrEmptyKey
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE identifier = %s`, r.store.dedupTable, r.store.ph(1))
	result, err := r.store.db.ExecContext(ctx, query, identifier)
	if err != nil {
		return false, fmt.Errorf("failed to forget dedup entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
