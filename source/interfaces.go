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


package source

import (
	"context"

	"github.com/poiesic/remessa/core"
)

// RecordSource is an ordered, re-readable collection of records.
type RecordSource interface {
	// Count returns the total number of records in the source.
	Count(ctx context.Context) (uint64, error)

	// Open returns a reader positioned at the first record.
	Open(ctx context.Context) (RecordReader, error)
}

// RecordReader yields records in file order. Each record carries its
// zero-based offset. Read returns io.EOF after the last record.
type RecordReader interface {
	Read() (core.Record, error)
	Close() error
}
