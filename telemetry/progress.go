package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressSink prints a single updating progress line for the current run:
// records handled out of records to process, chunks finished out of chunks
// dispatched, and throughput.
type ProgressSink struct {
	writer         io.Writer
	reportInterval uint64

	mu           sync.Mutex
	runID        string
	total        uint64
	current      uint64
	lastReported uint64
	chunks       int
	finished     int
	startTime    time.Time
	started      bool
}

// NewProgressSink creates a progress sink.
// writer: where to write progress output (typically os.Stderr)
// reportInterval: report progress every N records
func NewProgressSink(writer io.Writer, reportInterval uint64) *ProgressSink {
	if reportInterval == 0 {
		reportInterval = 1
	}
	return &ProgressSink{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// Emit updates progress for the run most recently started.
func (p *ProgressSink) Emit(ctx context.Context, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Type == EventRunStarted {
		p.runID = event.RunID
		p.total = event.TotalRecords - min(event.StartOffset, event.TotalRecords)
		p.current = 0
		p.lastReported = 0
		p.chunks = 0
		p.finished = 0
		p.startTime = time.Now()
		p.started = true
		return
	}
	if !p.started || event.RunID != p.runID {
		return
	}

	switch event.Type {
	case EventChunkCommitted:
		p.chunks++
	case EventChunkFinished:
		p.finished++
		if r := event.Result; r != nil && !r.Cancelled {
			p.current = min(p.current+(r.EndOffset-r.StartOffset), p.total)
		}
		if p.current-p.lastReported >= p.reportInterval {
			p.report()
			p.lastReported = p.current
		}
	default:
		if event.Terminal() {
			p.report()
			fmt.Fprintln(p.writer)
			p.started = false
		}
	}
}

// Elapsed returns the time since the current run started.
func (p *ProgressSink) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressSink) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - chunks %d/%d - %.1f records/s",
		p.current, p.total, percentage, p.finished, p.chunks, rate)
}
