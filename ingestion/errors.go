package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/remessa/core"
)

var (
	// ErrProgressRepositoryRequired is returned when a progress repository is not provided.
	ErrProgressRepositoryRequired = errors.New("progress repository required")

	// ErrDedupRepositoryRequired is returned when a dedup repository is not provided.
	ErrDedupRepositoryRequired = errors.New("dedup repository required")

	// ErrEffectorRequired is returned when a record effector is not provided.
	ErrEffectorRequired = errors.New("record effector required")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = fmt.Errorf("%w: invalid ingestion config", core.ErrValidation)

	// ErrFileIDRequired is returned when a run is submitted without a file identifier.
	ErrFileIDRequired = fmt.Errorf("%w: file identifier required", core.ErrValidation)

	// ErrSourceRequired is returned when a run is submitted without a record source.
	ErrSourceRequired = fmt.Errorf("%w: record source required", core.ErrValidation)

	// ErrNothingToProcess is returned when the committed offset already covers
	// every record of the file. Nothing is dispatched.
	ErrNothingToProcess = fmt.Errorf("%w: no new records to process", core.ErrValidation)

	// ErrControllerReleased is returned by Submit after Release.
	ErrControllerReleased = errors.New("controller released")
)

// TimeoutError reports a run whose join deadline elapsed.
// It matches core.ErrTimeout with errors.Is.
type TimeoutError struct {
	Deadline   time.Duration
	Dispatched int // Chunks handed to workers
	Partial    int // Chunk results collected before the deadline
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %s: %d of %d chunks finished", core.ErrTimeout, e.Deadline, e.Partial, e.Dispatched)
}

func (e *TimeoutError) Unwrap() error {
	return core.ErrTimeout
}

// ChunkError reports an infrastructure fault inside one chunk worker.
// It matches core.ErrInfrastructure with errors.Is.
type ChunkError struct {
	Index       int
	ChunkID     core.ID
	StartOffset uint64
	Err         error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d at offset %d: %v", e.Index, e.StartOffset, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
