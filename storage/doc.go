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


// Package storage provides the storage abstraction layer for remessa.
//
// This package defines the two durable ledgers the ingestion engine depends on and
// decouples them from any particular backend:
//
//   - ProgressRepository: file identifier -> last committed record offset
//   - DedupRepository: set of record identifiers that were already attempted
//
// Two implementations ship with the module. storage/badger keeps both ledgers in an
// embedded BadgerDB database and is the default for single-process deployments.
// storage/sqlstore keeps them in PostgreSQL, MySQL or SQLite tables so several
// processes can share one ledger.
//
// # Usage
//
// Open a BadgerDB backend and create the repositories:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	progress := badger.NewProgressRepository(backend)
//	dedup := badger.NewDedupRepository(backend)
//
// Use in tests with in-memory storage:
//
//	progress, dedup, backend, err := badger.NewMemoryRepositories()
//
// # Consistency
//
// Repositories never cache. Every call crosses the store boundary so concurrent
// ingestion runs observe each other's writes. DedupRepository.Add is a single atomic
// test-and-set: it reports whether this call inserted the identifier, and concurrent
// callers racing on the same identifier see exactly one winner.
//
// Lifecycles belong to the caller: repositories do not own the backend or
// connection they are created from.
package storage
