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


// Package sqlstore implements the progress and dedup repositories on top of
// database/sql, for deployments where several processes share one store.
//
// PostgreSQL (github.com/lib/pq), MySQL (github.com/go-sql-driver/mysql) and
// SQLite (github.com/mattn/go-sqlite3) are supported. The caller imports the
// driver it needs and owns the *sql.DB.
//
//	db, err := sql.Open("postgres", dsn)
//	store, err := sqlstore.New(db, sqlstore.Postgres{})
//	err = store.Migrate(ctx)
//	progress, dedup := store.Progress(), store.Dedup()
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"unicode/utf8"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for SQL.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidIdentifier, fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%w: %s must start with a letter and contain only letters, numbers, and underscores (got: %s)",
			ErrInvalidIdentifier, fieldName, name)
	}
	return nil
}

// TableConfig configures the table names used by the store.
type TableConfig struct {
	// ProgressTable holds one row per file: file_id, last_offset, updated_at.
	ProgressTable string

	// DedupTable holds one row per attempted record identifier.
	DedupTable string
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		ProgressTable: "remessa_progress",
		DedupTable:    "remessa_dedup",
	}
}

// Store is a database/sql backed store for ingestion progress and dedup state.
type Store struct {
	db            *sql.DB
	dialect       Dialect
	progressTable string
	dedupTable    string
}

// New creates a store with default table names.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	return NewWithConfig(db, dialect, DefaultTableConfig())
}

// NewWithConfig creates a store with custom table names.
func NewWithConfig(db *sql.DB, dialect Dialect, config TableConfig) (*Store, error) {
	if err := validateIdentifier(config.ProgressTable, "ProgressTable"); err != nil {
		return nil, err
	}
	if err := validateIdentifier(config.DedupTable, "DedupTable"); err != nil {
		return nil, err
	}
	return &Store{
		db:            db,
		dialect:       dialect,
		progressTable: config.ProgressTable,
		dedupTable:    config.DedupTable,
	}, nil
}

// Open opens a database with the given driver and DSN, selects the matching
// dialect and creates the tables. The returned store owns the connection and
// must be closed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if _, ok := dialect.(SQLite); ok {
		// One writer at a time; avoids "database is locked" under concurrent workers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	store, err := New(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the progress and dedup tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema(s.progressTable, s.dedupTable) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Progress returns the progress repository backed by this store.
func (s *Store) Progress() *ProgressRepository {
	return &ProgressRepository{store: s}
}

// Dedup returns the dedup repository backed by this store.
func (s *Store) Dedup() *DedupRepository {
	return &DedupRepository{store: s}
}

// checkKeyLength rejects a key the dialect's key columns would truncate.
func (s *Store) checkKeyLength(key string) error {
	limit := s.dialect.MaxKeyLength()
	if n := utf8.RuneCountInString(key); limit > 0 && n > limit {
		return fmt.Errorf("%w: %d characters, limit %d", ErrKeyTooLong, n, limit)
	}
	return nil
}

// ph returns the n-th placeholder of the store's dialect.
func (s *Store) ph(n int) string {
	return s.dialect.Placeholder(n)
}
