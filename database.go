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


// Package remessa ingests debt files in resumable chunks, effecting each
// record at most once.
package remessa

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/remessa/effect"
	"github.com/poiesic/remessa/ingestion"
	"github.com/poiesic/remessa/storage"
	"github.com/poiesic/remessa/storage/badger"
	"github.com/poiesic/remessa/storage/sqlstore"
)

// Database bundles the progress store and the dedup set behind one handle.
type Database struct {
	closer   io.Closer
	progress storage.ProgressRepository
	dedup    storage.DedupRepository
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	inMemory bool
	logger   *slog.Logger
}

// WithInMemory keeps all state in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithDatabaseLogger sets the logger used when closing.
func WithDatabaseLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func applyOptions(opts []DatabaseOption) *databaseOptions {
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return options
}

// NewDatabase opens a BadgerDB-backed database in the directory filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := applyOptions(opts)
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	return &Database{
		closer:   backend,
		progress: badger.NewProgressRepository(backend),
		dedup:    badger.NewDedupRepository(backend),
		logger:   options.logger,
	}, nil
}

// NewSQLDatabase opens a database shared through a SQL server. driver is one
// of "postgres", "mysql" or "sqlite3"; the caller imports the driver.
func NewSQLDatabase(ctx context.Context, driver, dsn string, opts ...DatabaseOption) (*Database, error) {
	options := applyOptions(opts)
	store, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return &Database{
		closer:   store,
		progress: store.Progress(),
		dedup:    store.Dedup(),
		logger:   options.logger,
	}, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	if err := db.closer.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) ProgressRepository() storage.ProgressRepository {
	return db.progress
}

func (db *Database) DedupRepository() storage.DedupRepository {
	return db.dedup
}

// NewController builds an ingestion controller over this database. The
// controller must be released before the database is closed.
func (db *Database) NewController(effector effect.Effector, opts ...ingestion.Option) (*ingestion.Controller, error) {
	return ingestion.NewController(db.progress, db.dedup, effector, opts...)
}
