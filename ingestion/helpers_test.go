package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/effect"
	"github.com/poiesic/remessa/source"
	"github.com/poiesic/remessa/storage"
	"github.com/poiesic/remessa/storage/badger"
	"github.com/poiesic/remessa/telemetry"
	"github.com/stretchr/testify/require"
)

// debt returns a valid debt record's fields.
func debt(id string) map[string]string {
	return map[string]string{
		core.FieldName:         "Test user",
		core.FieldGovernmentID: "12345678900",
		core.FieldRecipient:    "test@example.com",
		core.FieldAmount:       "1000",
		core.FieldDueDate:      "2024-07-12",
		core.FieldIdentifier:   id,
	}
}

// debts returns n records with identifiers debt-0 .. debt-(n-1).
func debts(n int) source.Records {
	records := make(source.Records, n)
	for i := range records {
		records[i] = debt(fmt.Sprintf("debt-%d", i))
	}
	return records
}

type testEnv struct {
	progress storage.ProgressRepository
	dedup    storage.DedupRepository
	sink     *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	progress, dedup, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return &testEnv{progress: progress, dedup: dedup, sink: &recordingSink{}}
}

func (e *testEnv) controller(t *testing.T, effector effect.Effector, opts ...ConfigOption) *Controller {
	t.Helper()
	cfg := NewConfig(append([]ConfigOption{WithJoinTimeout(10 * time.Second), WithWorkers(4)}, opts...)...)
	c, err := NewController(e.progress, e.dedup, effector, WithConfig(cfg), WithSink(e.sink))
	require.NoError(t, err)
	t.Cleanup(func() { c.Release(time.Second) })
	return c
}

// recordingSink keeps every emitted event.
type recordingSink struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (s *recordingSink) Emit(_ context.Context, event telemetry.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) types() []telemetry.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]telemetry.EventType, len(s.events))
	for i, e := range s.events {
		types[i] = e.Type
	}
	return types
}

func (s *recordingSink) count(eventType telemetry.EventType) int {
	n := 0
	for _, t := range s.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

// faultyDedup fails every operation on one identifier.
type faultyDedup struct {
	storage.DedupRepository
	failOn string
}

var errDedupDown = errors.New("dedup store unavailable")

func (d *faultyDedup) Contains(ctx context.Context, identifier string) (bool, error) {
	if identifier == d.failOn {
		return false, errDedupDown
	}
	return d.DedupRepository.Contains(ctx, identifier)
}

// faultyProgress fails commits at or past failAt.
type faultyProgress struct {
	storage.ProgressRepository
	failAt uint64
}

var errProgressDown = errors.New("progress store unavailable")

func (p *faultyProgress) SetOffset(ctx context.Context, fileID string, offset uint64) error {
	if offset >= p.failAt {
		return errProgressDown
	}
	return p.ProgressRepository.SetOffset(ctx, fileID, offset)
}
