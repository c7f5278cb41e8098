// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/telemetry"
)

// RunState is the lifecycle state of a run.
type RunState int

const (
	// StateDispatched means chunks are being handed to workers.
	StateDispatched RunState = iota + 1
	// StateAwaitingJoin means every chunk was handed over and the join is waiting.
	StateAwaitingJoin
	// StateCompleted means every chunk returned before the deadline.
	StateCompleted
	// StateTimedOut means the deadline elapsed first.
	StateTimedOut
	// StateFailed means a chunk reported an infrastructure fault.
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateDispatched:
		return "dispatched"
	case StateAwaitingJoin:
		return "awaiting-join"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed-out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateFailed
}

// chunkDone is one worker's report to the join.
type chunkDone struct {
	index   int
	result  *core.ChunkResult
	err     error
	elapsed time.Duration
}

// joinOutcome is what the join hands back to the run.
type joinOutcome struct {
	state     RunState
	collected []chunkDone
	timedOut  bool
	err       error
}

// orchestrator fans chunks out to the worker pool and joins their results
// under a deadline.
type orchestrator struct {
	pool   *ants.Pool
	worker *chunkWorker
	sink   telemetry.Sink
	logger *slog.Logger
}

// join dispatches chunks and waits for them. ctx scopes the run: cancelling
// it stops workers at their next check point. onState is called as the run
// moves through Dispatched and AwaitingJoin.
//
// On the deadline every result already delivered is collected, the run is
// cancelled and a *TimeoutError is returned; results arriving later are
// dropped, although their records may already be marked. On the first chunk
// fault the remaining workers are cancelled and the join continues until all
// return or the deadline elapses.
func (o *orchestrator) join(ctx context.Context, run *Run, chunks []*core.Chunk, deadline time.Duration, onState func(RunState)) *joinOutcome {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan chunkDone, len(chunks))
	onState(StateDispatched)
	go o.dispatch(runCtx, chunks, results, func() { onState(StateAwaitingJoin) })

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	out := &joinOutcome{state: StateCompleted}
	var chunkErr error
	collect := func(done chunkDone) {
		out.collected = append(out.collected, done)
		o.sink.Emit(ctx, telemetry.Event{
			Type:       telemetry.EventChunkFinished,
			RunID:      run.id,
			FileID:     run.fileID,
			At:         time.Now().UTC(),
			ChunkIndex: done.index,
			Result:     done.result,
			Elapsed:    done.elapsed,
		})
		if done.err != nil && chunkErr == nil {
			chunk := chunks[done.index]
			chunkErr = &ChunkError{
				Index:       done.index,
				ChunkID:     chunk.ID,
				StartOffset: chunk.StartOffset,
				Err:         done.err,
			}
			o.logger.Error("chunk failed, cancelling run", "run_id", run.id, "chunk", done.index, "error", done.err)
			cancel()
		}
	}

	for len(out.collected) < len(chunks) && !out.timedOut {
		select {
		case done := <-results:
			collect(done)
		case <-timer.C:
			// Take whatever already arrived before stopping the workers.
			for drained := false; !drained; {
				select {
				case done := <-results:
					collect(done)
				default:
					drained = true
				}
			}
			if len(out.collected) < len(chunks) {
				out.timedOut = true
			}
		}
	}
	cancel()

	var timeoutErr error
	if out.timedOut {
		out.state = StateTimedOut
		timeoutErr = &TimeoutError{
			Deadline:   deadline,
			Dispatched: len(chunks),
			Partial:    len(out.collected),
		}
		o.logger.Warn("join deadline elapsed", "run_id", run.id, "deadline", deadline,
			"dispatched", len(chunks), "collected", len(out.collected))
	}
	if chunkErr != nil {
		out.state = StateFailed
	}
	out.err = errors.Join(chunkErr, timeoutErr)
	return out
}

// dispatch submits one pool task per chunk. Once ctx is cancelled the
// remaining chunks are reported as cancelled without running.
func (o *orchestrator) dispatch(ctx context.Context, chunks []*core.Chunk, results chan<- chunkDone, dispatched func()) {
	defer dispatched()
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			results <- chunkDone{index: i, result: cancelledResult(chunk)}
			continue
		}
		err := o.pool.Submit(func() {
			results <- o.runChunk(ctx, i, chunk)
		})
		if err != nil {
			results <- chunkDone{
				index:  i,
				result: cancelledResult(chunk),
				err:    fmt.Errorf("%w: submit chunk: %w", core.ErrInfrastructure, err),
			}
		}
	}
}

// runChunk is the body of a pool task.
func (o *orchestrator) runChunk(ctx context.Context, index int, chunk *core.Chunk) (done chunkDone) {
	start := time.Now()
	done.index = index
	defer func() {
		if r := recover(); r != nil {
			done.result = cancelledResult(chunk)
			done.err = fmt.Errorf("%w: chunk worker panic: %v", core.ErrInfrastructure, r)
		}
		done.elapsed = time.Since(start)
	}()
	done.result, done.err = o.worker.process(ctx, chunk)
	return done
}

func cancelledResult(chunk *core.Chunk) *core.ChunkResult {
	return &core.ChunkResult{
		ChunkID:     chunk.ID,
		Index:       chunk.Index,
		StartOffset: chunk.StartOffset,
		EndOffset:   chunk.EndOffset,
		Cancelled:   true,
	}
}

// aggregate folds the collected results into summary. Nil or inconsistent
// results contribute nothing.
func aggregate(summary *core.RunSummary, collected []chunkDone) {
	for _, done := range collected {
		if done.err != nil {
			summary.FailedChunks++
		}
		r := done.result
		if !r.WellFormed() {
			continue
		}
		if done.err == nil && !r.Cancelled {
			summary.CompletedChunks++
		}
		summary.SucceededRecords += r.Succeeded()
		summary.FailedRecords += r.Failed()
		summary.SkippedRecords += r.Skipped
	}
}
