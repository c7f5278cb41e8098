package ingestion

import (
	"errors"
	"testing"

	"github.com/poiesic/remessa/core"
	"github.com/stretchr/testify/assert"
)

func TestRunState(t *testing.T) {
	assert.Equal(t, "dispatched", StateDispatched.String())
	assert.Equal(t, "awaiting-join", StateAwaitingJoin.String())
	assert.Equal(t, "timed-out", StateTimedOut.String())
	assert.Equal(t, "unknown", RunState(0).String())

	assert.False(t, StateDispatched.Terminal())
	assert.False(t, StateAwaitingJoin.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateTimedOut.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestRun_StateNeverRegresses(t *testing.T) {
	run := newRun("r", "f", core.RunSummary{}, func() {})
	run.setState(StateAwaitingJoin)
	run.setState(StateDispatched)
	assert.Equal(t, StateAwaitingJoin, run.State())

	run.finish(StateTimedOut, core.RunSummary{TimedOut: true}, nil)
	run.setState(StateCompleted)
	assert.Equal(t, StateTimedOut, run.State())
	assert.True(t, run.finished())
	assert.True(t, run.Summary().TimedOut)
}

func TestAggregate_ToleratesMalformedResults(t *testing.T) {
	good := &core.ChunkResult{
		Index:     0,
		EndOffset: 4,
		Attempted: 3,
		Skipped:   1,
		Outcomes: []core.Outcome{
			core.Succeeded("a"),
			core.Succeeded("b"),
			core.Failed("c", "bad email"),
		},
	}
	inconsistent := &core.ChunkResult{Index: 1, Attempted: 5}
	cancelled := &core.ChunkResult{Index: 2, StartOffset: 4, EndOffset: 6, Cancelled: true, Attempted: 1, Outcomes: []core.Outcome{core.Succeeded("d")}}

	var summary core.RunSummary
	aggregate(&summary, []chunkDone{
		{index: 0, result: good},
		{index: 1, result: inconsistent},
		{index: 2, result: cancelled},
		{index: 3, result: nil},
		{index: 4, result: &core.ChunkResult{Index: 4}, err: errors.New("boom")},
	})

	assert.Equal(t, 1, summary.CompletedChunks)
	assert.Equal(t, 1, summary.FailedChunks)
	assert.Equal(t, 3, summary.SucceededRecords)
	assert.Equal(t, 1, summary.FailedRecords)
	assert.Equal(t, 1, summary.SkippedRecords)
}
