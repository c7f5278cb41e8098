package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/effect"
	"github.com/poiesic/remessa/source"
	"github.com/poiesic/remessa/storage"
	"github.com/poiesic/remessa/telemetry"
)

// Controller drives ingestion runs: it reads the committed offset, carves
// the file into chunks, commits each chunk's end offset as it is carved and
// hands the chunks to the worker pool.
type Controller struct {
	progress storage.ProgressRepository
	dedup    storage.DedupRepository
	effector effect.Effector
	config   *Config
	sink     telemetry.Sink
	logger   *slog.Logger

	pool         *ants.Pool
	orchestrator *orchestrator

	mu       sync.Mutex
	runs     map[string]*Run
	history  []string // run IDs, oldest first
	released bool
}

// Option configures a Controller.
type Option func(*Controller) error

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(c *Controller) error {
		if config == nil {
			return nil
		}
		copied := *config
		c.config = &copied
		return nil
	}
}

// WithPoolSize sets the number of chunk workers.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(c *Controller) error {
		if size < 1 {
			size = 1
		}
		c.config.PoolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithSink sets the telemetry sink.
// Default discards events.
func WithSink(sink telemetry.Sink) Option {
	return func(c *Controller) error {
		if sink == nil {
			sink = telemetry.Nop
		}
		c.sink = sink
		return nil
	}
}

// poolLogger adapts slog.Logger to the ants.Logger interface.
type poolLogger struct {
	logger *slog.Logger
}

func (l poolLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// NewController creates a controller. The repositories are owned by the
// caller and must outlive it.
func NewController(
	progress storage.ProgressRepository,
	dedup storage.DedupRepository,
	effector effect.Effector,
	opts ...Option,
) (*Controller, error) {
	if progress == nil {
		return nil, ErrProgressRepositoryRequired
	}
	if dedup == nil {
		return nil, ErrDedupRepositoryRequired
	}
	if effector == nil {
		return nil, ErrEffectorRequired
	}

	c := &Controller{
		progress: progress,
		dedup:    dedup,
		effector: effector,
		config:   DefaultConfig(),
		sink:     telemetry.Nop,
		logger:   slog.Default(),
		runs:     make(map[string]*Run),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	c.logger = c.logger.With("component", "ingestion")

	pool, err := ants.NewPool(c.config.PoolSize,
		ants.WithLogger(poolLogger{logger: c.logger}),
		ants.WithPanicHandler(func(p any) {
			c.logger.Error("worker pool task panic", "panic", p)
		}),
	)
	if err != nil {
		return nil, err
	}
	c.pool = pool
	c.orchestrator = &orchestrator{
		pool:   pool,
		worker: newChunkWorker(dedup, effector, c.logger),
		sink:   c.sink,
		logger: c.logger,
	}
	return c, nil
}

// Config returns a copy of the controller's configuration.
func (c *Controller) Config() Config {
	return *c.config
}

// plan is a run that has been counted, carved and committed.
type plan struct {
	summary core.RunSummary
	chunks  []*core.Chunk
}

// prepare performs the synchronous part of a run. On ErrNothingToProcess
// the returned plan carries a summary flagged NoNewRecords.
func (c *Controller) prepare(ctx context.Context, fileID string, src source.RecordSource) (*plan, error) {
	if fileID == "" {
		return nil, ErrFileIDRequired
	}
	if src == nil {
		return nil, ErrSourceRequired
	}

	p := &plan{summary: core.RunSummary{
		RunID:     uuid.NewString(),
		FileID:    fileID,
		StartedAt: time.Now().UTC(),
	}}

	lastOffset, err := c.progress.GetOffset(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: read progress: %w", core.ErrInfrastructure, err)
	}
	p.summary.StartOffset = lastOffset
	p.summary.CommittedOffset = lastOffset

	total, err := src.Count(ctx)
	if err != nil {
		return nil, sourceError("count records", err)
	}
	p.summary.TotalRecords = total

	if lastOffset >= total {
		p.summary.NoNewRecords = true
		p.summary.FinishedAt = time.Now().UTC()
		c.logger.Info("no new records", "file_id", fileID, "offset", lastOffset, "total", total)
		return p, ErrNothingToProcess
	}

	c.sink.Emit(ctx, telemetry.Event{
		Type:         telemetry.EventRunStarted,
		RunID:        p.summary.RunID,
		FileID:       fileID,
		At:           p.summary.StartedAt,
		TotalRecords: total,
		StartOffset:  lastOffset,
	})

	reader, err := src.Open(ctx)
	if err != nil {
		return nil, sourceError("open source", err)
	}
	defer reader.Close()

	partitioner, err := NewPartitioner(reader, fileID, lastOffset, c.config.ChunkSize)
	if err != nil {
		return nil, err
	}

	err = partitioner.ForEach(ctx, func(chunk *core.Chunk) error {
		// Committed before the chunk runs: a crash loses the chunk rather
		// than repeating it.
		if err := c.progress.SetOffset(ctx, fileID, chunk.EndOffset); err != nil {
			return fmt.Errorf("%w: commit offset %d: %w", core.ErrInfrastructure, chunk.EndOffset, err)
		}
		p.summary.CommittedOffset = chunk.EndOffset
		p.chunks = append(p.chunks, chunk)
		c.sink.Emit(ctx, telemetry.Event{
			Type:        telemetry.EventChunkCommitted,
			RunID:       p.summary.RunID,
			FileID:      fileID,
			At:          time.Now().UTC(),
			ChunkIndex:  chunk.Index,
			StartOffset: chunk.StartOffset,
			EndOffset:   chunk.EndOffset,
		})
		return nil
	})
	if err != nil {
		if !errors.Is(err, core.ErrInfrastructure) {
			err = sourceError("partition", err)
		}
		p.summary.FinishedAt = time.Now().UTC()
		c.emitEnd(ctx, telemetry.EventRunFailed, p.summary, err)
		return nil, err
	}
	if len(p.chunks) == 0 {
		// The source shrank between Count and Open.
		p.summary.NoNewRecords = true
		p.summary.FinishedAt = time.Now().UTC()
		c.emitEnd(ctx, telemetry.EventRunCompleted, p.summary, ErrNothingToProcess)
		return p, ErrNothingToProcess
	}

	p.summary.DispatchedChunks = len(p.chunks)
	return p, nil
}

// Submit starts a run for fileID. Offset lookup, counting, partitioning and
// offset commits happen before Submit returns, so their failures are
// returned directly; the join runs in the background and is observed
// through the returned handle.
//
// The run is detached from ctx's cancellation; use Run.Cancel to stop it.
// Returns ErrNothingToProcess when every record was already committed.
func (c *Controller) Submit(ctx context.Context, fileID string, src source.RecordSource) (*Run, error) {
	if c.isReleased() {
		return nil, ErrControllerReleased
	}
	p, err := c.prepare(ctx, fileID, src)
	if err != nil {
		return nil, err
	}
	return c.start(ctx, p), nil
}

// Ingest runs Submit and waits for the run to finish. If ctx is cancelled
// while waiting, the run is cancelled and Ingest waits for the join to wind
// down before returning.
//
// When there is nothing to process the summary has NoNewRecords set and the
// error is ErrNothingToProcess.
func (c *Controller) Ingest(ctx context.Context, fileID string, src source.RecordSource) (*core.RunSummary, error) {
	if c.isReleased() {
		return nil, ErrControllerReleased
	}
	p, err := c.prepare(ctx, fileID, src)
	if err != nil {
		if p != nil {
			return &p.summary, err
		}
		return nil, err
	}

	run := c.start(ctx, p)
	summary, err := run.Wait(ctx)
	if ctx.Err() != nil && !run.finished() {
		run.Cancel()
		<-run.Done()
		return run.Summary(), errors.Join(ctx.Err(), run.Err())
	}
	return summary, err
}

// Reset deletes the progress entry of fileID so the next run starts at
// offset 0. Dedup entries are kept, so records already attempted stay
// skipped.
func (c *Controller) Reset(ctx context.Context, fileID string) (bool, error) {
	if fileID == "" {
		return false, ErrFileIDRequired
	}
	existed, err := c.progress.DeleteProgress(ctx, fileID)
	if err != nil {
		return false, fmt.Errorf("%w: reset progress: %w", core.ErrInfrastructure, err)
	}
	c.logger.Info("progress reset", "file_id", fileID, "existed", existed)
	return existed, nil
}

// Progress returns the committed offset of fileID.
func (c *Controller) Progress(ctx context.Context, fileID string) (uint64, error) {
	if fileID == "" {
		return 0, ErrFileIDRequired
	}
	offset, err := c.progress.GetOffset(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("%w: read progress: %w", core.ErrInfrastructure, err)
	}
	return offset, nil
}

// Run returns a run by ID. Finished runs are kept up to Config.RunHistory.
func (c *Controller) Run(id string) (*Run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	run, ok := c.runs[id]
	return run, ok
}

// Runs returns the remembered runs, oldest first.
func (c *Controller) Runs() []*Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	runs := make([]*Run, 0, len(c.history))
	for _, id := range c.history {
		runs = append(runs, c.runs[id])
	}
	return runs
}

// Release cancels in-flight runs and releases the worker pool, waiting up
// to timeout for running workers to return.
// The controller should not be used after calling Release.
func (c *Controller) Release(timeout time.Duration) error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	for _, run := range c.runs {
		run.Cancel()
	}
	c.mu.Unlock()

	if timeout <= 0 {
		c.pool.Release()
		return nil
	}
	return c.pool.ReleaseTimeout(timeout)
}

func (c *Controller) isReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// start registers the run and joins it in the background.
func (c *Controller) start(ctx context.Context, p *plan) *Run {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := newRun(p.summary.RunID, p.summary.FileID, p.summary, cancel)
	c.register(run)

	c.logger.Info("run dispatched", "run_id", run.id, "file_id", run.fileID,
		"chunks", len(p.chunks), "start_offset", p.summary.StartOffset, "committed_offset", p.summary.CommittedOffset)

	go func() {
		defer cancel()
		out := c.orchestrator.join(runCtx, run, p.chunks, c.config.JoinTimeout, run.setState)

		summary := p.summary
		aggregate(&summary, out.collected)
		if out.timedOut {
			summary.TimedOut = true
			summary.PartialResults = len(out.collected)
		}
		summary.FinishedAt = time.Now().UTC()

		eventType := telemetry.EventRunCompleted
		switch out.state {
		case StateTimedOut:
			eventType = telemetry.EventRunTimedOut
		case StateFailed:
			eventType = telemetry.EventRunFailed
		}
		c.emitEnd(runCtx, eventType, summary, out.err)
		run.finish(out.state, summary, out.err)

		c.logger.Info("run finished", "run_id", run.id, "state", out.state.String(),
			"completed", summary.CompletedChunks, "dispatched", summary.DispatchedChunks,
			"succeeded", summary.SucceededRecords, "failed", summary.FailedRecords,
			"skipped", summary.SkippedRecords, "elapsed", summary.Duration())
	}()
	return run
}

// register adds run to the registry and evicts the oldest finished runs
// beyond the configured history.
func (c *Controller) register(run *Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[run.id] = run
	c.history = append(c.history, run.id)

	excess := len(c.history) - c.config.RunHistory
	if excess <= 0 {
		return
	}
	kept := c.history[:0]
	for _, id := range c.history {
		if excess > 0 && c.runs[id].finished() {
			delete(c.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	c.history = kept
}

// emitEnd emits the terminal event of a run.
func (c *Controller) emitEnd(ctx context.Context, eventType telemetry.EventType, summary core.RunSummary, err error) {
	c.sink.Emit(ctx, telemetry.Event{
		Type:    eventType,
		RunID:   summary.RunID,
		FileID:  summary.FileID,
		At:      summary.FinishedAt,
		Summary: &summary,
		Elapsed: summary.Duration(),
		Err:     err,
	})
}

// sourceError keeps validation failures as they are and classifies anything
// else from the source as an infrastructure fault.
func sourceError(op string, err error) error {
	if errors.Is(err, core.ErrValidation) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %w", core.ErrValidation, op, err)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrInfrastructure, op, err)
}
