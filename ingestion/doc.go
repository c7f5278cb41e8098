// Package ingestion provides resumable, chunked ingestion of record files.
//
// The Controller type manages the ingestion workflow for a file, including:
//   - Resuming from the offset committed by the previous run
//   - Carving the remaining records into fixed-size chunks
//   - Committing each chunk's end offset before the chunk is processed
//   - Running the chunks on a shared worker pool and joining them under a deadline
//
// Records are deduplicated by identifier across files and runs: each
// identifier is claimed in the dedup set before its effect runs and is never
// effected again, whether the effect succeeded or not.
//
// Per-record failures are reported in the run summary and never fail the
// run. A chunk infrastructure fault cancels the remaining chunks. When the
// join deadline elapses the results already delivered are returned as a
// partial summary together with a *TimeoutError.
package ingestion
