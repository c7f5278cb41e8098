package telemetry

import (
	"context"
	"log/slog"
)

// LogSink writes each event as a structured log record.
// Chunk events log at debug, run events at info, failures at warn or error.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger means slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "telemetry")}
}

// Emit logs event.
func (s *LogSink) Emit(ctx context.Context, event Event) {
	attrs := []any{"event", string(event.Type), "run_id", event.RunID, "file_id", event.FileID}

	switch event.Type {
	case EventRunStarted:
		s.logger.InfoContext(ctx, "run started",
			append(attrs, "total_records", event.TotalRecords, "start_offset", event.StartOffset)...)
	case EventChunkCommitted:
		s.logger.DebugContext(ctx, "chunk committed",
			append(attrs, "chunk", event.ChunkIndex, "start_offset", event.StartOffset, "end_offset", event.EndOffset)...)
	case EventChunkFinished:
		if r := event.Result; r != nil {
			attrs = append(attrs, "chunk", event.ChunkIndex,
				"attempted", r.Attempted, "skipped", r.Skipped,
				"succeeded", r.Succeeded(), "failed", r.Failed(),
				"cancelled", r.Cancelled)
		}
		s.logger.DebugContext(ctx, "chunk finished", append(attrs, "elapsed", event.Elapsed)...)
	case EventRunCompleted:
		s.logger.InfoContext(ctx, "run completed", append(attrs, summaryAttrs(event)...)...)
	case EventRunTimedOut:
		s.logger.WarnContext(ctx, "run timed out", append(append(attrs, summaryAttrs(event)...), "error", event.Err)...)
	case EventRunFailed:
		s.logger.ErrorContext(ctx, "run failed", append(append(attrs, summaryAttrs(event)...), "error", event.Err)...)
	default:
		s.logger.InfoContext(ctx, "telemetry event", attrs...)
	}
}

func summaryAttrs(event Event) []any {
	sum := event.Summary
	if sum == nil {
		return nil
	}
	return []any{
		"dispatched", sum.DispatchedChunks,
		"completed", sum.CompletedChunks,
		"partial", sum.PartialResults,
		"succeeded", sum.SucceededRecords,
		"failed", sum.FailedRecords,
		"skipped", sum.SkippedRecords,
		"committed_offset", sum.CommittedOffset,
		"elapsed", event.Elapsed,
	}
}
