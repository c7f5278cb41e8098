package ingestion

import (
	"context"
	"sync"

	"github.com/poiesic/remessa/core"
)

// Run is the handle of one dispatched ingestion run. Chunks are committed
// and dispatched by the time the handle is returned; the join continues in
// the background.
type Run struct {
	id     string
	fileID string
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   RunState
	summary core.RunSummary
	err     error
}

func newRun(id, fileID string, summary core.RunSummary, cancel context.CancelFunc) *Run {
	return &Run{
		id:      id,
		fileID:  fileID,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   StateDispatched,
		summary: summary,
	}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// FileID returns the identifier of the file being ingested.
func (r *Run) FileID() string { return r.fileID }

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// State returns the current lifecycle state.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Summary returns a copy of the run summary. Before the run finishes only
// the fields known at dispatch are populated.
func (r *Run) Summary() *core.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := r.summary
	return &summary
}

// Err returns the run's error once finished: a *TimeoutError, a *ChunkError,
// or nil. It is nil while the run is in flight.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until the run finishes or ctx is done. Giving up on the wait
// does not cancel the run.
func (r *Run) Wait(ctx context.Context) (*core.RunSummary, error) {
	select {
	case <-r.done:
		return r.Summary(), r.Err()
	case <-ctx.Done():
		return r.Summary(), ctx.Err()
	}
}

// Cancel asks in-flight workers to stop at their next record boundary.
// The run still finishes through the join.
func (r *Run) Cancel() {
	r.cancel()
}

func (r *Run) setState(state RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() || state < r.state {
		return
	}
	r.state = state
}

func (r *Run) finish(state RunState, summary core.RunSummary, err error) {
	r.mu.Lock()
	r.state = state
	r.summary = summary
	r.err = err
	r.mu.Unlock()
	close(r.done)
}

func (r *Run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
