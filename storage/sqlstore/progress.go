package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/storage"
)

// ProgressRepository implements storage.ProgressRepository over database/sql.
type ProgressRepository struct {
	store *Store
}

var _ storage.ProgressRepository = (*ProgressRepository)(nil)

// GetOffset returns the last committed offset for fileID, or 0 if none.
func (r *ProgressRepository) GetOffset(ctx context.Context, fileID string) (uint64, error) {
	progress, err := r.GetProgress(ctx, fileID)
	if err == storage.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return progress.LastOffset, nil
}

// GetProgress returns the progress entry for fileID.
func (r *ProgressRepository) GetProgress(ctx context.Context, fileID string) (*core.FileProgress, error) {
	if fileID == "" {
		return nil, storage.ErrEmptyKey
	}
	query := fmt.Sprintf(`
		SELECT file_id, last_offset, updated_at
		FROM %s
		WHERE file_id = %s
	`, r.store.progressTable, r.store.ph(1))

	progress, err := scanProgress(r.store.db.QueryRowContext(ctx, query, fileID))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return progress, nil
}

// SetOffset commits offset for fileID inside a transaction that rejects regressions.
func (r *ProgressRepository) SetOffset(ctx context.Context, fileID string, offset uint64) error {
	if fileID == "" {
		return storage.ErrEmptyKey
	}
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT last_offset FROM %s WHERE file_id = %s%s`,
		r.store.progressTable, r.store.ph(1), r.store.dialect.LockClause())

	var current int64
	err = tx.QueryRowContext(ctx, query, fileID).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to read progress: %w", err)
	case offset < uint64(current):
		return fmt.Errorf("%w: %s at %d, got %d", storage.ErrOffsetRegression, fileID, current, offset)
	}

	upsert := r.store.dialect.UpsertProgress(r.store.progressTable)
	if _, err := tx.ExecContext(ctx, upsert, fileID, int64(offset), time.Now().UTC().UnixMicro()); err != nil {
		return fmt.Errorf("failed to set offset: %w", err)
	}
	return tx.Commit()
}

// DeleteProgress removes the entry for fileID.
func (r *ProgressRepository) DeleteProgress(ctx context.Context, fileID string) (bool, error) {
	if fileID == "" {
		return false, storage.ErrEmptyKey
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE file_id = %s`, r.store.progressTable, r.store.ph(1))
	result, err := r.store.db.ExecContext(ctx, query, fileID)
	if err != nil {
		return false, fmt.Errorf("failed to delete progress: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListProgress returns every progress entry ordered by file identifier.
func (r *ProgressRepository) ListProgress(ctx context.Context) ([]*core.FileProgress, error) {
	query := fmt.Sprintf(`
		SELECT file_id, last_offset, updated_at
		FROM %s
		ORDER BY file_id
	`, r.store.progressTable)

	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var results []*core.FileProgress
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		results = append(results, progress)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*core.FileProgress, error) {
	var (
		progress  core.FileProgress
		offset    int64
		updatedAt int64
	)
	if err := row.Scan(&progress.FileID, &offset, &updatedAt); err != nil {
		return nil, err
	}
	progress.LastOffset = uint64(offset)
	progress.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	return &progress, nil
}
