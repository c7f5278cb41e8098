package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkResult(start, end uint64, outcomes ...core.Outcome) *core.ChunkResult {
	return &core.ChunkResult{
		StartOffset: start,
		EndOffset:   end,
		Attempted:   len(outcomes),
		Skipped:     int(end-start) - len(outcomes),
		Outcomes:    outcomes,
	}
}

func TestMulti(t *testing.T) {
	var a, b []EventType
	sink := Multi(
		SinkFunc(func(_ context.Context, e Event) { a = append(a, e.Type) }),
		nil,
		SinkFunc(func(_ context.Context, e Event) { b = append(b, e.Type) }),
	)

	sink.Emit(context.Background(), Event{Type: EventRunStarted})
	sink.Emit(context.Background(), Event{Type: EventRunCompleted})

	assert.Equal(t, []EventType{EventRunStarted, EventRunCompleted}, a)
	assert.Equal(t, a, b)
	assert.NotPanics(t, func() {
		Multi().Emit(context.Background(), Event{Type: EventRunStarted})
		Multi(nil, nil).Emit(context.Background(), Event{Type: EventRunStarted})
	})

	// A single sink is returned as is.
	var single []EventType
	only := Multi(nil, SinkFunc(func(_ context.Context, e Event) { single = append(single, e.Type) }))
	only.Emit(context.Background(), Event{Type: EventRunFailed})
	assert.Equal(t, []EventType{EventRunFailed}, single)
}

func TestEvent_Terminal(t *testing.T) {
	assert.True(t, Event{Type: EventRunCompleted}.Terminal())
	assert.True(t, Event{Type: EventRunTimedOut}.Terminal())
	assert.True(t, Event{Type: EventRunFailed}.Terminal())
	assert.False(t, Event{Type: EventChunkFinished}.Terminal())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewLogSink(logger)
	ctx := context.Background()

	sink.Emit(ctx, Event{Type: EventRunStarted, RunID: "r1", FileID: "debts.csv", TotalRecords: 235})
	sink.Emit(ctx, Event{Type: EventChunkFinished, RunID: "r1", Result: chunkResult(0, 2, core.Succeeded("a"))})
	sink.Emit(ctx, Event{
		Type:    EventRunTimedOut,
		RunID:   "r1",
		Summary: &core.RunSummary{DispatchedChunks: 3, CompletedChunks: 1},
		Err:     errors.New("time limit exceeded"),
	})

	out := buf.String()
	assert.Contains(t, out, "run started")
	assert.Contains(t, out, "total_records=235")
	assert.Contains(t, out, "chunk finished")
	assert.Contains(t, out, "skipped=1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "dispatched=3")
	assert.Contains(t, out, "time limit exceeded")
}

func TestCollector(t *testing.T) {
	c := NewCollector("test-collector")

	before := testutil.ToFloat64(RunsTotal.WithLabelValues("test-collector", OutcomeCompleted))
	c.IncRuns(OutcomeCompleted)
	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("test-collector", OutcomeCompleted)))

	c.AddRecords("skipped", 0)
	c.AddRecords("skipped", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(RecordsTotal.WithLabelValues("test-collector", "skipped")))

	c.SetCommittedOffset("debts.csv", 200)
	assert.Equal(t, 200.0, testutil.ToFloat64(CommittedOffset.WithLabelValues("test-collector", "debts.csv")))
}

func TestMetricsSink(t *testing.T) {
	const pipeline = "test-metrics-sink"
	sink := NewMetricsSink(pipeline)
	ctx := context.Background()

	sink.Emit(ctx, Event{Type: EventRunStarted, FileID: "debts.csv"})
	assert.Equal(t, 1.0, testutil.ToFloat64(ActiveRuns.WithLabelValues(pipeline)))

	sink.Emit(ctx, Event{Type: EventChunkCommitted, FileID: "debts.csv", EndOffset: 100})
	sink.Emit(ctx, Event{Type: EventChunkCommitted, FileID: "debts.csv", EndOffset: 200})
	assert.Equal(t, 2.0, testutil.ToFloat64(ChunksCommittedTotal.WithLabelValues(pipeline)))
	assert.Equal(t, 200.0, testutil.ToFloat64(CommittedOffset.WithLabelValues(pipeline, "debts.csv")))

	sink.Emit(ctx, Event{
		Type:    EventChunkFinished,
		Result:  chunkResult(0, 3, core.Succeeded("a"), core.Failed("b", "bad email")),
		Elapsed: 10 * time.Millisecond,
	})
	cancelled := chunkResult(100, 200)
	cancelled.Cancelled = true
	cancelled.Skipped = 0
	sink.Emit(ctx, Event{Type: EventChunkFinished, Result: cancelled})
	sink.Emit(ctx, Event{Type: EventChunkFinished})

	assert.Equal(t, 1.0, testutil.ToFloat64(ChunksFinishedTotal.WithLabelValues(pipeline, "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ChunksFinishedTotal.WithLabelValues(pipeline, "cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RecordsTotal.WithLabelValues(pipeline, "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RecordsTotal.WithLabelValues(pipeline, "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RecordsTotal.WithLabelValues(pipeline, "skipped")))

	sink.Emit(ctx, Event{Type: EventRunTimedOut, Elapsed: time.Second})
	assert.Equal(t, 0.0, testutil.ToFloat64(ActiveRuns.WithLabelValues(pipeline)))
	assert.Equal(t, 1.0, testutil.ToFloat64(RunsTotal.WithLabelValues(pipeline, OutcomeTimedOut)))
}

func TestProgressSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewProgressSink(&buf, 1)
	ctx := context.Background()

	sink.Emit(ctx, Event{Type: EventRunStarted, RunID: "r1", TotalRecords: 235, StartOffset: 35})
	assert.GreaterOrEqual(t, sink.Elapsed(), time.Duration(0))
	sink.Emit(ctx, Event{Type: EventChunkCommitted, RunID: "r1"})
	sink.Emit(ctx, Event{Type: EventChunkCommitted, RunID: "r1"})
	sink.Emit(ctx, Event{Type: EventChunkFinished, RunID: "r1", Result: chunkResult(35, 100, core.Succeeded("a"))})
	assert.Contains(t, buf.String(), "65/200")
	assert.Contains(t, buf.String(), "chunks 1/2")

	// Events of other runs are ignored.
	sink.Emit(ctx, Event{Type: EventChunkFinished, RunID: "other", Result: chunkResult(0, 100)})
	assert.NotContains(t, buf.String(), "165/200")

	sink.Emit(ctx, Event{Type: EventChunkFinished, RunID: "r1", Result: chunkResult(100, 235)})
	sink.Emit(ctx, Event{Type: EventRunCompleted, RunID: "r1"})

	out := buf.String()
	assert.Contains(t, out, "200/200 (100.0%)")
	assert.Contains(t, out, "chunks 2/2")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Equal(t, time.Duration(0), sink.Elapsed())
}

func TestServer(t *testing.T) {
	server := NewServer("127.0.0.1:0")
	require.NotNil(t, server)
	assert.NoError(t, server.Err())
	assert.NoError(t, server.Shutdown(context.Background()))
}
