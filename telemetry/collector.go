package telemetry

import "time"

// Collector wraps metrics and provides helper methods with pre-filled labels.
type Collector struct {
	pipeline string
}

// NewCollector creates a new Collector for the given pipeline name.
func NewCollector(pipeline string) *Collector {
	return &Collector{pipeline: pipeline}
}

// IncRuns increments the runs counter for outcome.
func (c *Collector) IncRuns(outcome string) {
	RunsTotal.WithLabelValues(c.pipeline, outcome).Inc()
}

// IncActiveRuns increments the in-flight runs gauge.
func (c *Collector) IncActiveRuns() {
	ActiveRuns.WithLabelValues(c.pipeline).Inc()
}

// DecActiveRuns decrements the in-flight runs gauge.
func (c *Collector) DecActiveRuns() {
	ActiveRuns.WithLabelValues(c.pipeline).Dec()
}

// IncChunksCommitted increments the committed chunks counter.
func (c *Collector) IncChunksCommitted() {
	ChunksCommittedTotal.WithLabelValues(c.pipeline).Inc()
}

// IncChunksFinished increments the finished chunks counter for status.
func (c *Collector) IncChunksFinished(status string) {
	ChunksFinishedTotal.WithLabelValues(c.pipeline, status).Inc()
}

// AddRecords adds n to the records counter for outcome.
func (c *Collector) AddRecords(outcome string, n int) {
	if n <= 0 {
		return
	}
	RecordsTotal.WithLabelValues(c.pipeline, outcome).Add(float64(n))
}

// SetCommittedOffset sets the committed offset gauge for file.
func (c *Collector) SetCommittedOffset(file string, offset uint64) {
	CommittedOffset.WithLabelValues(c.pipeline, file).Set(float64(offset))
}

// ObserveChunkDuration records a chunk latency.
func (c *Collector) ObserveChunkDuration(d time.Duration) {
	ChunkDuration.WithLabelValues(c.pipeline).Observe(d.Seconds())
}

// ObserveRunDuration records a run latency.
func (c *Collector) ObserveRunDuration(d time.Duration) {
	RunDuration.WithLabelValues(c.pipeline).Observe(d.Seconds())
}
