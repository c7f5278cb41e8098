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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/remessa/core"
)

// CSVFile is a header-aware CSV file on disk. The first row names the
// columns; every following row becomes one record.
type CSVFile struct {
	Path string
}

var _ RecordSource = (*CSVFile)(nil)

// NewCSVFile returns a source reading the CSV file at path.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{Path: path}
}

// Count scans the whole file and returns the number of data rows.
// Malformed rows fail the count, so a bad file is rejected before dispatch.
func (f *CSVFile) Count(ctx context.Context) (uint64, error) {
	reader, err := f.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var count uint64
	for {
		if count%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		_, err := reader.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, err
		}
		count++
	}
}

// Open opens the file and reads its header.
func (f *CSVFile) Open(ctx context.Context) (RecordReader, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Path, err)
	}
	reader, err := NewCSVReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// CSVReader reads records from a CSV stream with a header row.
type CSVReader struct {
	csv    *csv.Reader
	header []string
	offset uint64
	closer io.Closer
	closed bool
}

var _ RecordReader = (*CSVReader)(nil)

// NewCSVReader reads the header from r and returns a reader for the rows
// that follow. An empty stream yields a reader that is immediately at io.EOF.
func NewCSVReader(r io.Reader) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	reader := &CSVReader{csv: cr}
	header, err := cr.Read()
	if err == io.EOF {
		return reader, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedRow, err)
	}

	reader.header = make([]string, len(header))
	blank := true
	for i, name := range header {
		reader.header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if reader.header[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil, ErrMissingHeader
	}
	cr.FieldsPerRecord = len(header)
	return reader, nil
}

// Header returns the column names.
func (r *CSVReader) Header() []string {
	return r.header
}

// Read returns the next record, or io.EOF after the last one.
func (r *CSVReader) Read() (core.Record, error) {
	if r.closed {
		return core.Record{}, ErrReaderClosed
	}
	if r.header == nil {
		return core.Record{}, io.EOF
	}

	row, err := r.csv.Read()
	if err == io.EOF {
		return core.Record{}, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return core.Record{}, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, parseErr.Line, parseErr.Err)
		}
		return core.Record{}, err
	}

	fields := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if name == "" {
			continue
		}
		fields[name] = row[i]
	}
	record := core.NewRecord(r.offset, fields)
	r.offset++
	return record, nil
}

// Close releases the underlying file, if any.
func (r *CSVReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
