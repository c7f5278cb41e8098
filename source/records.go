package source

import (
	"context"
	"io"

	"github.com/poiesic/remessa/core"
)

// Records is an in-memory source. Each element is one record's fields.
type Records []map[string]string

var _ RecordSource = Records(nil)

// Count returns the number of records.
func (r Records) Count(ctx context.Context) (uint64, error) {
	return uint64(len(r)), nil
}

// Open returns a reader over the records.
func (r Records) Open(ctx context.Context) (RecordReader, error) {
	return &recordsReader{records: r}, nil
}

type recordsReader struct {
	records Records
	next    int
	closed  bool
}

func (r *recordsReader) Read() (core.Record, error) {
	if r.closed {
		return core.Record{}, ErrReaderClosed
	}
	if r.next >= len(r.records) {
		return core.Record{}, io.EOF
	}
	record := core.NewRecord(uint64(r.next), r.records[r.next])
	r.next++
	return record, nil
}

func (r *recordsReader) Close() error {
	r.closed = true
	return nil
}
