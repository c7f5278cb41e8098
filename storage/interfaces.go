package storage

import (
	"context"

	"github.com/poiesic/remessa/core"
)

// ProgressRepository stores the last committed record offset per file.
// Implementations must be thread-safe and support concurrent access.
type ProgressRepository interface {
	// GetOffset returns the last committed offset for fileID.
	// Returns 0 (and no error) when the file has no progress entry.
	GetOffset(ctx context.Context, fileID string) (uint64, error)

	// GetProgress returns the full progress entry for fileID.
	// Returns ErrNotFound if the file has no progress entry.
	GetProgress(ctx context.Context, fileID string) (*core.FileProgress, error)

	// SetOffset commits offset as the new last offset for fileID.
	// Creates the entry on first use and updates UpdatedAt.
	// Returns ErrOffsetRegression if offset is lower than the committed one.
	SetOffset(ctx context.Context, fileID string, offset uint64) error

	// DeleteProgress removes the entry for fileID.
	// Returns whether an entry existed.
	DeleteProgress(ctx context.Context, fileID string) (bool, error)

	// ListProgress returns every progress entry ordered by file identifier.
	ListProgress(ctx context.Context) ([]*core.FileProgress, error)
}

// DedupRepository is the identity-scoped ledger of attempted record identifiers.
// Implementations must be thread-safe and support concurrent access.
type DedupRepository interface {
	// Contains reports whether identifier has been marked.
	Contains(ctx context.Context, identifier string) (bool, error)

	// Add marks entry.Identifier in a single atomic operation.
	// Returns true if this call inserted the identifier and false if it was
	// already present, including when a concurrent caller won the race.
	// Sets MarkedAt if not already set.
	Add(ctx context.Context, entry *core.DedupEntry) (bool, error)

	// GetEntry returns the entry for identifier.
	// Returns ErrNotFound if the identifier is not marked.
	GetEntry(ctx context.Context, identifier string) (*core.DedupEntry, error)

	// Forget removes identifier from the ledger. This is an administrative
	// operation; the ingestion engine never calls it.
	// Returns whether the identifier was present.
	Forget(ctx context.Context, identifier string) (bool, error)
}
