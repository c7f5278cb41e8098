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


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "remessa",
		Usage: "Resumable chunked ingestion of debt files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"REMESSA_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Set logging format (text, json)",
				Value:   "text",
				EnvVars: []string{"REMESSA_LOG_FORMAT"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a CSV file, resuming from its committed offset",
				ArgsUsage: "<file.csv>",
				Action:    ingestCommand,
				Flags: append(storeFlags(), append(runFlags(),
					&cli.StringFlag{
						Name:  "file-id",
						Usage: "Identifier progress is tracked under (defaults to the file's base name)",
					},
					&cli.Uint64Flag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.StringFlag{
						Name:    "metrics-addr",
						Usage:   "Expose Prometheus metrics on this address while ingesting",
						EnvVars: []string{"REMESSA_METRICS_ADDR"},
					},
				)...),
			},
			{
				Name:      "reset",
				Usage:     "Delete a file's committed offset so the next run starts from the beginning",
				ArgsUsage: "<file-id>",
				Action:    resetCommand,
				Flags:     storeFlags(),
			},
			{
				Name:      "status",
				Usage:     "Show committed offsets",
				ArgsUsage: "[file-id]",
				Action:    statusCommand,
				Flags:     storeFlags(),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP upload API",
				Action: serveCommand,
				Flags: append(storeFlags(), append(runFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8000",
						EnvVars: []string{"REMESSA_ADDR"},
					},
					&cli.StringFlag{
						Name:    "upload-dir",
						Usage:   "Directory uploads are spooled to while their run is in flight",
						Value:   os.TempDir(),
						EnvVars: []string{"REMESSA_UPLOAD_DIR"},
					},
				)...),
			},
			{
				Name:  "dedup",
				Usage: "Inspect the set of already attempted record identifiers",
				Subcommands: []*cli.Command{
					{
						Name:      "check",
						Usage:     "Report whether a record identifier has been attempted",
						ArgsUsage: "<debt-id>",
						Action:    dedupCheckCommand,
						Flags:     storeFlags(),
					},
					{
						Name:      "forget",
						Usage:     "Remove a record identifier so it is effected again",
						ArgsUsage: "<debt-id>",
						Action:    dedupForgetCommand,
						Flags:     storeFlags(),
					},
				},
			},
		},
	}
}

// storeFlags select the progress and dedup storage.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			EnvVars: []string{"REMESSA_DB"},
		},
		&cli.StringFlag{
			Name:    "store-driver",
			Usage:   "Use a SQL store instead of BadgerDB (postgres, mysql, sqlite3)",
			EnvVars: []string{"REMESSA_STORE_DRIVER"},
		},
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "Data source name for the SQL store",
			EnvVars: []string{"REMESSA_DSN"},
		},
	}
}

// runFlags tune the ingestion controller and the record effects.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "chunk-size",
			Usage:   "Number of records per chunk",
			Value:   100,
			EnvVars: []string{"REMESSA_CHUNK_SIZE"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of chunk workers (defaults to the number of CPUs)",
			EnvVars: []string{"REMESSA_WORKERS"},
		},
		&cli.DurationFlag{
			Name:    "join-timeout",
			Usage:   "How long a run waits for its chunks",
			Value:   60 * time.Second,
			EnvVars: []string{"REMESSA_JOIN_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "slip-dir",
			Usage:   "Write payment slips into this directory (slips are only logged when empty)",
			EnvVars: []string{"REMESSA_SLIP_DIR"},
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
