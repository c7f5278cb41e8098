package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID returns the stable identity of the chunk that starts at startOffset
// within fileID. Resubmitting the same file yields the same chunk IDs.
func ChunkID(fileID string, startOffset uint64) ID {
	return IDFromContent(fileID + "@" + strconv.FormatUint(startOffset, 10))
}

// Field names of the debt record layout.
const (
	FieldIdentifier   = "debtId"
	FieldRecipient    = "email"
	FieldAmount       = "debtAmount"
	FieldDueDate      = "debtDueDate"
	FieldName         = "name"
	FieldGovernmentID = "governmentId"
)

// Record is a single row of an ingested file: a flat mapping of named fields.
type Record struct {
	Offset uint64            // Zero-based position of the record in its file
	Fields map[string]string // Raw field values keyed by column name
}

// NewRecord creates a record at the given offset.
func NewRecord(offset uint64, fields map[string]string) Record {
	if fields == nil {
		fields = map[string]string{}
	}
	return Record{Offset: offset, Fields: fields}
}

// Field returns the trimmed value of the named field, or "" if it is absent.
func (r Record) Field(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// Identifier returns the globally unique record identifier.
func (r Record) Identifier() string { return r.Field(FieldIdentifier) }

// Recipient returns the email address the record's notification goes to.
func (r Record) Recipient() string { return r.Field(FieldRecipient) }

// Amount returns the raw debt amount.
func (r Record) Amount() string { return r.Field(FieldAmount) }

// DueDate returns the raw debt due date.
func (r Record) DueDate() string { return r.Field(FieldDueDate) }

// Name returns the debtor name.
func (r Record) Name() string { return r.Field(FieldName) }

// GovernmentID returns the debtor's government identifier.
func (r Record) GovernmentID() string { return r.Field(FieldGovernmentID) }

// Chunk is a contiguous, bounded slice of a file's records assigned to one worker.
// Chunks are immutable once built.
type Chunk struct {
	ID          ID
	FileID      string
	Index       int    // Position of the chunk within its run
	StartOffset uint64 // Offset of the first record (inclusive)
	EndOffset   uint64 // Offset after the last record (exclusive)
	Records     []Record
}

// Len returns the number of records in the chunk.
func (c *Chunk) Len() int {
	return len(c.Records)
}

// FileProgress is the last committed record offset for a file.
type FileProgress struct {
	FileID     string
	LastOffset uint64
	UpdatedAt  time.Time
}

// DedupEntry marks a record identifier as already attempted.
type DedupEntry struct {
	Identifier string
	FileID     string // File the identifier was first seen in
	MarkedAt   time.Time
}

// OutcomeStatus classifies the result of effecting a single record.
type OutcomeStatus int

const (
	// OutcomeSucceeded means the record's side effect was performed.
	OutcomeSucceeded OutcomeStatus = iota + 1
	// OutcomeFailed means the side effect could not be performed for this record.
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-record result reported by a record effector.
type Outcome struct {
	Identifier string
	Status     OutcomeStatus
	Reason     string // Populated for failed outcomes
}

// Succeeded returns a successful outcome for identifier.
func Succeeded(identifier string) Outcome {
	return Outcome{Identifier: identifier, Status: OutcomeSucceeded}
}

// Failed returns a failed outcome for identifier with the given reason.
func Failed(identifier, reason string) Outcome {
	return Outcome{Identifier: identifier, Status: OutcomeFailed, Reason: reason}
}

// OK reports whether the outcome succeeded.
func (o Outcome) OK() bool {
	return o.Status == OutcomeSucceeded
}

// ChunkResult summarizes the processing of one chunk.
type ChunkResult struct {
	ChunkID     ID
	Index       int
	StartOffset uint64
	EndOffset   uint64
	Attempted   int       // Records handed to the effector (or failed validation)
	Skipped     int       // Records skipped because their identifier was already marked
	Outcomes    []Outcome // One outcome per attempted record, in file order
	Cancelled   bool      // The worker stopped at a cancellation check point
}

// Succeeded returns the number of successful outcomes.
func (r *ChunkResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed outcomes.
func (r *ChunkResult) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// WellFormed reports whether the result is internally consistent.
// A nil result is not well formed.
func (r *ChunkResult) WellFormed() bool {
	if r == nil {
		return false
	}
	if r.Attempted < 0 || r.Skipped < 0 || r.EndOffset < r.StartOffset {
		return false
	}
	if r.Attempted != len(r.Outcomes) {
		return false
	}
	return uint64(r.Attempted+r.Skipped) <= r.EndOffset-r.StartOffset
}

// RunSummary is the result of one ingestion run. It is returned to the caller
// and never persisted.
type RunSummary struct {
	RunID            string
	FileID           string
	TotalRecords     uint64
	StartOffset      uint64 // Committed offset when the run began
	CommittedOffset  uint64 // Committed offset after all chunks were carved
	DispatchedChunks int
	CompletedChunks  int
	FailedChunks     int
	PartialResults   int // Results collected before the deadline, set on timeout
	SucceededRecords int
	FailedRecords    int
	SkippedRecords   int
	TimedOut         bool
	NoNewRecords     bool
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Duration returns how long the run took, or zero if it has not finished.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
