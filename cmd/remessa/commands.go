package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/poiesic/remessa"
	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/effect"
	"github.com/poiesic/remessa/effect/boleto"
	"github.com/poiesic/remessa/effect/notify"
	"github.com/poiesic/remessa/httpapi"
	"github.com/poiesic/remessa/ingestion"
	"github.com/poiesic/remessa/source"
	"github.com/poiesic/remessa/storage"
	"github.com/poiesic/remessa/telemetry"
	"github.com/urfave/cli/v2"
)

const metricsPipeline = "remessa"

// openDatabase opens the store selected by the store flags.
func openDatabase(c *cli.Context) (*remessa.Database, error) {
	if driver := c.String("store-driver"); driver != "" {
		dsn := c.String("dsn")
		if dsn == "" {
			return nil, fmt.Errorf("dsn is required with store-driver %s", driver)
		}
		db, err := remessa.NewSQLDatabase(c.Context, driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
		}
		return db, nil
	}

	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required (--db or --store-driver)")
	}
	db, err := remessa.NewDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newEffector validates each record, then generates its slip and sends its
// notification.
func newEffector(c *cli.Context) (effect.Effector, error) {
	generator, err := boleto.New(boleto.WithOutputDir(c.String("slip-dir")))
	if err != nil {
		return nil, err
	}
	mailer, err := notify.New()
	if err != nil {
		return nil, err
	}
	return effect.Validated(effect.Chain(generator, mailer)), nil
}

// controllerConfig builds the controller configuration from the run flags.
func controllerConfig(c *cli.Context) (*ingestion.Config, error) {
	opts := []ingestion.ConfigOption{
		ingestion.WithChunkSize(c.Int("chunk-size")),
		ingestion.WithJoinTimeout(c.Duration("join-timeout")),
	}
	if workers := c.Int("workers"); workers > 0 {
		opts = append(opts, ingestion.WithWorkers(workers))
	}
	cfg := ingestion.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ingestCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("csv file argument is required")
	}
	fileID := c.String("file-id")
	if fileID == "" {
		fileID = filepath.Base(path)
	}

	cfg, err := controllerConfig(c)
	if err != nil {
		return err
	}
	effector, err := newEffector(c)
	if err != nil {
		return fmt.Errorf("failed to create effector: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if addr := c.String("metrics-addr"); addr != "" {
		server := telemetry.NewServer(addr)
		server.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
	}

	progress := telemetry.NewProgressSink(os.Stderr, c.Uint64("report-interval"))
	sink := telemetry.Multi(
		telemetry.NewLogSink(slog.Default()),
		telemetry.NewMetricsSink(metricsPipeline),
		progress,
	)

	controller, err := db.NewController(effector, ingestion.WithConfig(cfg), ingestion.WithSink(sink))
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer controller.Release(5 * time.Second)

	fmt.Fprintf(os.Stderr, "File: %s\n", path)
	fmt.Fprintf(os.Stderr, "File ID: %s\n", fileID)
	fmt.Fprintf(os.Stderr, "Chunk size: %d\n", cfg.ChunkSize)
	fmt.Fprintf(os.Stderr, "Workers: %d\n", cfg.PoolSize)
	fmt.Fprintln(os.Stderr)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := controller.Ingest(ctx, fileID, source.NewCSVFile(path))
	if errors.Is(err, ingestion.ErrNothingToProcess) {
		fmt.Fprintln(os.Stderr, "No new rows to process")
		return nil
	}
	if summary != nil {
		printSummary(summary)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func printSummary(summary *core.RunSummary) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Chunks completed: %d/%d\n", summary.CompletedChunks, summary.DispatchedChunks)
	fmt.Fprintf(os.Stderr, "Records succeeded: %d\n", summary.SucceededRecords)
	fmt.Fprintf(os.Stderr, "Records failed: %d\n", summary.FailedRecords)
	fmt.Fprintf(os.Stderr, "Records skipped: %d\n", summary.SkippedRecords)
	fmt.Fprintf(os.Stderr, "Committed offset: %d\n", summary.CommittedOffset)
	if summary.TimedOut {
		fmt.Fprintf(os.Stderr, "Timed out with %d partial results\n", summary.PartialResults)
	}
}

func resetCommand(c *cli.Context) error {
	fileID := c.Args().First()
	if fileID == "" {
		return fmt.Errorf("file-id argument is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	existed, err := db.ProgressRepository().DeleteProgress(c.Context, fileID)
	if err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	if !existed {
		fmt.Fprintf(c.App.Writer, "No progress recorded for file %s.\n", fileID)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Progress for file %s has been reset.\n", fileID)
	return nil
}

func statusCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var entries []*core.FileProgress
	if fileID := c.Args().First(); fileID != "" {
		entry, err := db.ProgressRepository().GetProgress(c.Context, fileID)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(c.App.Writer, "%s\t0\t-\n", fileID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read progress: %w", err)
		}
		entries = append(entries, entry)
	} else {
		entries, err = db.ProgressRepository().ListProgress(c.Context)
		if err != nil {
			return fmt.Errorf("failed to list progress: %w", err)
		}
	}

	for _, entry := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\n", entry.FileID, entry.LastOffset, entry.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := controllerConfig(c)
	if err != nil {
		return err
	}
	effector, err := newEffector(c)
	if err != nil {
		return fmt.Errorf("failed to create effector: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	sink := telemetry.Multi(telemetry.NewLogSink(slog.Default()), telemetry.NewMetricsSink(metricsPipeline))
	controller, err := db.NewController(effector, ingestion.WithConfig(cfg), ingestion.WithSink(sink))
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer controller.Release(cfg.JoinTimeout)

	api, err := httpapi.NewServer(controller, httpapi.WithUploadDir(c.String("upload-dir")))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	server := api.NewHTTPServer(c.String("addr"))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func dedupCheckCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("debt-id argument is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := db.DedupRepository().GetEntry(c.Context, id)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(c.App.Writer, "%s not attempted\n", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read dedup entry: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%s attempted from %s at %s\n", id, entry.FileID, entry.MarkedAt.Format(time.RFC3339))
	return nil
}

func dedupForgetCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("debt-id argument is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	existed, err := db.DedupRepository().Forget(c.Context, id)
	if err != nil {
		return fmt.Errorf("failed to forget %s: %w", id, err)
	}
	if !existed {
		fmt.Fprintf(c.App.Writer, "%s was not marked\n", id)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s forgotten\n", id)
	return nil
}
