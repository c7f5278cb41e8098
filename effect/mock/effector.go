// Package mock provides a recording Effector for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/effect"
)

// Effector records every invocation and answers with a configurable outcome.
// It is safe for concurrent use.
type Effector struct {
	// Delay is slept before each invocation returns. The sleep ends early
	// only if ctx is cancelled; callers that shield records from
	// cancellation see the full delay.
	Delay time.Duration

	// OutcomeFunc decides the outcome. Default: succeed.
	OutcomeFunc func(record core.Record) core.Outcome

	// ErrFunc, if set, may return an infrastructure error for a record.
	ErrFunc func(record core.Record) error

	mu    sync.Mutex
	calls map[string]int
	order []string
}

var _ effect.Effector = (*Effector)(nil)

// NewEffector returns an effector that succeeds for every record.
func NewEffector() *Effector {
	return &Effector{}
}

// Effect records the call and returns the configured outcome.
func (e *Effector) Effect(ctx context.Context, record core.Record) (core.Outcome, error) {
	id := record.Identifier()
	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[id]++
	e.order = append(e.order, id)
	e.mu.Unlock()

	if e.Delay > 0 {
		timer := time.NewTimer(e.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	if e.ErrFunc != nil {
		if err := e.ErrFunc(record); err != nil {
			return core.Outcome{}, err
		}
	}
	if e.OutcomeFunc != nil {
		return e.OutcomeFunc(record), nil
	}
	return core.Succeeded(id), nil
}

// Calls returns how many times identifier was effected.
func (e *Effector) Calls(identifier string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[identifier]
}

// Total returns the number of invocations.
func (e *Effector) Total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

// Order returns the identifiers in invocation order.
func (e *Effector) Order() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// Reset forgets all recorded calls.
func (e *Effector) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
	e.order = nil
}
