package telemetry

import (
	"time"

	"github.com/poiesic/remessa/core"
)

// EventType names an engine event.
type EventType string

const (
	// EventRunStarted is emitted once the file has been counted and the
	// starting offset read.
	EventRunStarted EventType = "run-started"
	// EventChunkCommitted is emitted after a chunk's end offset is committed,
	// before the chunk is processed.
	EventChunkCommitted EventType = "chunk-committed"
	// EventChunkFinished is emitted when the join collects a chunk result.
	EventChunkFinished EventType = "chunk-finished"
	// EventRunTimedOut is emitted when the join deadline elapses.
	EventRunTimedOut EventType = "run-timed-out"
	// EventRunFailed is emitted when a run ends with an infrastructure fault.
	EventRunFailed EventType = "run-failed"
	// EventRunCompleted is emitted when every chunk of a run returned.
	EventRunCompleted EventType = "run-completed"
)

// Event is a single engine event. Fields not relevant to Type are zero.
type Event struct {
	Type   EventType
	RunID  string
	FileID string
	At     time.Time

	TotalRecords uint64 // run-started
	StartOffset  uint64 // run-started, chunk-committed
	EndOffset    uint64 // chunk-committed
	ChunkIndex   int    // chunk-committed, chunk-finished

	Result  *core.ChunkResult // chunk-finished
	Elapsed time.Duration     // chunk-finished: since dispatch; run end: since start
	Summary *core.RunSummary  // run-timed-out, run-failed, run-completed
	Err     error             // run-timed-out, run-failed
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventRunTimedOut, EventRunFailed, EventRunCompleted:
		return true
	default:
		return false
	}
}
