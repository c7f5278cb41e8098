package telemetry

import "context"

// Run outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeTimedOut  = "timed_out"
	OutcomeFailed    = "failed"
)

// MetricsSink translates events into Prometheus metrics.
type MetricsSink struct {
	collector *Collector
}

// NewMetricsSink creates a MetricsSink labelled with pipeline.
func NewMetricsSink(pipeline string) *MetricsSink {
	return &MetricsSink{collector: NewCollector(pipeline)}
}

// Emit records event.
func (s *MetricsSink) Emit(ctx context.Context, event Event) {
	c := s.collector
	switch event.Type {
	case EventRunStarted:
		c.IncActiveRuns()
	case EventChunkCommitted:
		c.IncChunksCommitted()
		c.SetCommittedOffset(event.FileID, event.EndOffset)
	case EventChunkFinished:
		r := event.Result
		if r == nil {
			return
		}
		status := "completed"
		if r.Cancelled {
			status = "cancelled"
		}
		c.IncChunksFinished(status)
		c.AddRecords("succeeded", r.Succeeded())
		c.AddRecords("failed", r.Failed())
		c.AddRecords("skipped", r.Skipped)
		c.ObserveChunkDuration(event.Elapsed)
	case EventRunCompleted:
		s.finish(OutcomeCompleted, event)
	case EventRunTimedOut:
		s.finish(OutcomeTimedOut, event)
	case EventRunFailed:
		s.finish(OutcomeFailed, event)
	}
}

func (s *MetricsSink) finish(outcome string, event Event) {
	s.collector.DecActiveRuns()
	s.collector.IncRuns(outcome)
	s.collector.ObserveRunDuration(event.Elapsed)
}
