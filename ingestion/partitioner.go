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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/source"
)

// Partitioner carves a record stream into chunks, lazily, starting after a
// committed offset.
//
// Chunk boundaries sit on multiples of the chunk size, counted from the start
// of the file. Starting at offset 0 every chunk but the last holds exactly
// size records; starting mid-chunk (offset 150, size 100) the first chunk
// covers only the unprocessed tail [150, 200) and the rest follow the grid.
type Partitioner struct {
	reader  source.RecordReader
	fileID  string
	size    uint64
	start   uint64
	next    uint64 // offset of the next record to read
	index   int
	skipped bool
	done    bool
}

// NewPartitioner creates a partitioner over reader. Records before start
// are read and discarded on the first call to Next.
func NewPartitioner(reader source.RecordReader, fileID string, start uint64, size int) (*Partitioner, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, size)
	}
	return &Partitioner{
		reader: reader,
		fileID: fileID,
		size:   uint64(size),
		start:  start,
	}, nil
}

// Next returns the next chunk, or io.EOF when the stream is exhausted.
func (p *Partitioner) Next(ctx context.Context) (*core.Chunk, error) {
	if p.done {
		return nil, io.EOF
	}
	if !p.skipped {
		if err := p.skip(ctx); err != nil {
			return nil, p.finish(err)
		}
		p.skipped = true
	}

	startOffset := p.next
	endOffset := (startOffset/p.size + 1) * p.size
	records := make([]core.Record, 0, endOffset-startOffset)
	for p.next < endOffset {
		record, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			p.done = true
			break
		}
		if err != nil {
			return nil, p.finish(err)
		}
		record.Offset = p.next
		records = append(records, record)
		p.next++
	}
	if len(records) == 0 {
		p.done = true
		return nil, io.EOF
	}

	chunk := &core.Chunk{
		ID:          core.ChunkID(p.fileID, startOffset),
		FileID:      p.fileID,
		Index:       p.index,
		StartOffset: startOffset,
		EndOffset:   p.next,
		Records:     records,
	}
	p.index++
	return chunk, nil
}

// ForEach calls fn for every remaining chunk, stopping at the first error.
func (p *Partitioner) ForEach(ctx context.Context, fn func(*core.Chunk) error) error {
	for {
		chunk, err := p.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}

// skip discards the records before the start offset.
func (p *Partitioner) skip(ctx context.Context) error {
	for p.next < p.start {
		if p.next%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if _, err := p.reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return err
		}
		p.next++
	}
	return nil
}

func (p *Partitioner) finish(err error) error {
	p.done = true
	return err
}
