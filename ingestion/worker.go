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

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/effect"
	"github.com/poiesic/remessa/storage"
)

// chunkWorker filters a chunk against the dedup set and effects the rest.
type chunkWorker struct {
	dedup    storage.DedupRepository
	effector effect.Effector
	logger   *slog.Logger
}

func newChunkWorker(dedup storage.DedupRepository, effector effect.Effector, logger *slog.Logger) *chunkWorker {
	return &chunkWorker{
		dedup:    dedup,
		effector: effector,
		logger:   logger.With("component", "chunk-worker"),
	}
}

// process handles the records of chunk in order. Cancellation of ctx is
// observed between records only; a record that has started runs to the end.
//
// Each identifier is claimed with an atomic Add before the effector runs, so
// of several workers holding the same identifier exactly one effects it. The
// claim stands whether the outcome is succeeded or failed; it is released only
// when the effector returns an error, since the record was never attempted.
//
// The returned result is always non-nil. A non-nil error wraps
// core.ErrInfrastructure and means the result covers only the records
// handled before the fault.
func (w *chunkWorker) process(ctx context.Context, chunk *core.Chunk) (*core.ChunkResult, error) {
	result := &core.ChunkResult{
		ChunkID:     chunk.ID,
		Index:       chunk.Index,
		StartOffset: chunk.StartOffset,
		EndOffset:   chunk.EndOffset,
		Outcomes:    make([]core.Outcome, 0, chunk.Len()),
	}
	// Records are not interrupted once started.
	recordCtx := context.WithoutCancel(ctx)

	for _, record := range chunk.Records {
		if ctx.Err() != nil {
			result.Cancelled = true
			w.logger.Debug("chunk cancelled", "chunk", chunk.Index, "offset", record.Offset)
			break
		}

		id := record.Identifier()
		if id == "" {
			result.Attempted++
			result.Outcomes = append(result.Outcomes, core.Failed("", fmt.Sprintf("offset %d: %s", record.Offset, core.ErrMissingIdentifier)))
			continue
		}

		seen, err := w.dedup.Contains(recordCtx, id)
		if err != nil {
			return result, fmt.Errorf("%w: dedup lookup %s: %w", core.ErrInfrastructure, id, err)
		}
		if seen {
			result.Skipped++
			continue
		}

		claimed, err := w.dedup.Add(recordCtx, &core.DedupEntry{Identifier: id, FileID: chunk.FileID})
		if err != nil {
			return result, fmt.Errorf("%w: dedup mark %s: %w", core.ErrInfrastructure, id, err)
		}
		if !claimed {
			result.Skipped++
			continue
		}

		outcome, err := w.effect(recordCtx, record)
		if err != nil {
			// The record was not attempted; release the claim so a later run can effect it.
			if _, forgetErr := w.dedup.Forget(recordCtx, id); forgetErr != nil {
				w.logger.Error("failed to release dedup claim", "debt_id", id, "error", forgetErr)
				err = errors.Join(err, forgetErr)
			}
			return result, fmt.Errorf("%w: effect %s: %w", core.ErrInfrastructure, id, err)
		}
		result.Attempted++
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

// effect invokes the effector, turning a panic into a failed outcome and
// normalizing the outcome's identity.
func (w *chunkWorker) effect(ctx context.Context, record core.Record) (outcome core.Outcome, err error) {
	id := record.Identifier()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("effector panic", "debt_id", id, "panic", r)
			outcome, err = core.Failed(id, fmt.Sprintf("%s: panic: %v", core.ErrRecordEffect, r)), nil
		}
	}()

	outcome, err = w.effector.Effect(ctx, record)
	if err != nil {
		return outcome, err
	}
	if outcome.Identifier == "" {
		outcome.Identifier = id
	}
	if outcome.Status != core.OutcomeSucceeded && outcome.Status != core.OutcomeFailed {
		outcome = core.Failed(id, fmt.Sprintf("%s: effector returned no status", core.ErrRecordEffect))
	}
	if !outcome.OK() {
		w.logger.Info("record failed", "debt_id", id, "reason", outcome.Reason, "elapsed", time.Since(start))
	} else {
		w.logger.Debug("record processed", "debt_id", id, "elapsed", time.Since(start))
	}
	return outcome, nil
}
