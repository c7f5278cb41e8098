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


package sqlstore

import (
	"fmt"
	"strconv"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect interface {
	// Name returns the database/sql driver name the dialect belongs to.
	Name() string

	// Placeholder returns the bind parameter for the n-th (1-based) argument.
	Placeholder(n int) string

	// Schema returns the statements that create the progress and dedup tables.
	Schema(progressTable, dedupTable string) []string

	// UpsertProgress returns an insert-or-update statement for
	// (file_id, last_offset, updated_at).
	UpsertProgress(progressTable string) string

	// InsertDedup returns an insert of (identifier, file_id, marked_at) that
	// affects no row when the identifier already exists. It must not
	// suppress other errors such as truncation.
	InsertDedup(dedupTable string) string

	// LockClause is appended to the offset read inside SetOffset.
	LockClause() string

	// MaxKeyLength is the longest identifier the key columns hold, in
	// characters. Zero means unbounded.
	MaxKeyLength() int
}

// DialectFor returns the dialect registered for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pq":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlite3", "sqlite":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Postgres is the PostgreSQL dialect, used with github.com/lib/pq.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) Schema(progressTable, dedupTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    file_id TEXT PRIMARY KEY,
    last_offset BIGINT NOT NULL DEFAULT 0,
    updated_at BIGINT NOT NULL
)`, progressTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    identifier TEXT PRIMARY KEY,
    file_id TEXT NOT NULL,
    marked_at BIGINT NOT NULL
)`, dedupTable),
	}
}

func (Postgres) UpsertProgress(progressTable string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (file_id, last_offset, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id) DO UPDATE
		SET last_offset = EXCLUDED.last_offset, updated_at = EXCLUDED.updated_at
	`, progressTable)
}

func (Postgres) InsertDedup(dedupTable string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (identifier, file_id, marked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (identifier) DO NOTHING
	`, dedupTable)
}

func (Postgres) LockClause() string { return " FOR UPDATE" }

func (Postgres) MaxKeyLength() int { return 0 }

// MySQL is the MySQL dialect, used with github.com/go-sql-driver/mysql.
type MySQL struct{}

const mysqlMaxKeyLength = 255

func (MySQL) Name() string { return "mysql" }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) Schema(progressTable, dedupTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    file_id VARCHAR(255) NOT NULL PRIMARY KEY,
    last_offset BIGINT NOT NULL DEFAULT 0,
    updated_at BIGINT NOT NULL
)`, progressTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    identifier VARCHAR(255) NOT NULL PRIMARY KEY,
    file_id VARCHAR(255) NOT NULL,
    marked_at BIGINT NOT NULL
)`, dedupTable),
	}
}

func (MySQL) UpsertProgress(progressTable string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (file_id, last_offset, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE last_offset = VALUES(last_offset), updated_at = VALUES(updated_at)
	`, progressTable)
}

// InsertDedup relies on the no-op update reporting zero affected rows, which
// holds unless the DSN sets clientFoundRows=true.
func (MySQL) InsertDedup(dedupTable string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (identifier, file_id, marked_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE identifier = identifier
	`, dedupTable)
}

func (MySQL) LockClause() string { return " FOR UPDATE" }

// MaxKeyLength matches the VARCHAR(255) key columns of the MySQL schema.
func (MySQL) MaxKeyLength() int { return mysqlMaxKeyLength }

// SQLite is the SQLite dialect, used with github.com/mattn/go-sqlite3.
// SQLite serializes writers, so SetOffset needs no row lock.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite3" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) Schema(progressTable, dedupTable string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    file_id TEXT PRIMARY KEY,
    last_offset INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
)`, progressTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    identifier TEXT PRIMARY KEY,
    file_id TEXT NOT NULL,
    marked_at INTEGER NOT NULL
)`, dedupTable),
	}
}

func (SQLite) UpsertProgress(progressTable string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (file_id, last_offset, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (file_id) DO UPDATE
		SET last_offset = excluded.last_offset, updated_at = excluded.updated_at
	`, progressTable)
}

func (SQLite) InsertDedup(dedupTable string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (identifier, file_id, marked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (identifier) DO NOTHING
	`, dedupTable)
}

func (SQLite) LockClause() string { return "" }

func (SQLite) MaxKeyLength() int { return 0 }
