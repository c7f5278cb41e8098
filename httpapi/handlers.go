package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/ingestion"
	"github.com/poiesic/remessa/source"
)

// csvMediaTypes are the content types accepted for uploads.
var csvMediaTypes = map[string]bool{
	"text/csv":        true,
	"application/csv": true,
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type uploadResponse struct {
	RunID           string `json:"run_id"`
	File            string `json:"file"`
	TotalRecords    uint64 `json:"total_records"`
	StartOffset     uint64 `json:"start_offset"`
	CommittedOffset uint64 `json:"committed_offset"`
	Chunks          int    `json:"chunks"`
}

type resetResponse struct {
	Message string `json:"message"`
	Existed bool   `json:"existed"`
}

type progressResponse struct {
	File   string `json:"file"`
	Offset uint64 `json:"offset"`
}

type summaryResponse struct {
	TotalRecords     uint64     `json:"total_records"`
	StartOffset      uint64     `json:"start_offset"`
	CommittedOffset  uint64     `json:"committed_offset"`
	DispatchedChunks int        `json:"dispatched_chunks"`
	CompletedChunks  int        `json:"completed_chunks"`
	FailedChunks     int        `json:"failed_chunks"`
	PartialResults   int        `json:"partial_results"`
	SucceededRecords int        `json:"succeeded_records"`
	FailedRecords    int        `json:"failed_records"`
	SkippedRecords   int        `json:"skipped_records"`
	TimedOut         bool       `json:"timed_out"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

type runResponse struct {
	ID      string          `json:"id"`
	File    string          `json:"file"`
	State   string          `json:"state"`
	Error   string          `json:"error,omitempty"`
	Summary summaryResponse `json:"summary"`
}

func newSummaryResponse(s *core.RunSummary) summaryResponse {
	resp := summaryResponse{
		TotalRecords:     s.TotalRecords,
		StartOffset:      s.StartOffset,
		CommittedOffset:  s.CommittedOffset,
		DispatchedChunks: s.DispatchedChunks,
		CompletedChunks:  s.CompletedChunks,
		FailedChunks:     s.FailedChunks,
		PartialResults:   s.PartialResults,
		SucceededRecords: s.SucceededRecords,
		FailedRecords:    s.FailedRecords,
		SkippedRecords:   s.SkippedRecords,
		TimedOut:         s.TimedOut,
		StartedAt:        s.StartedAt,
	}
	if !s.FinishedAt.IsZero() {
		finished := s.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}

// handleUpload spools the uploaded CSV to disk and submits a run for it.
// The body is either raw CSV or a multipart form with a "file" part.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	content, name, err := uploadContent(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer content.Close()

	fileID := r.URL.Query().Get("file")
	if fileID == "" {
		fileID = name
	}
	if fileID == "" {
		s.writeError(w, ErrFileNameRequired)
		return
	}

	path, err := s.spool(content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	run, err := s.ingester.Submit(r.Context(), fileID, source.NewCSVFile(path))
	if err != nil {
		os.Remove(path)
		s.writeError(w, err)
		return
	}
	go func() {
		<-run.Done()
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove spooled upload", "path", path, "error", err)
		}
	}()

	summary := run.Summary()
	s.logger.Info("upload accepted", "run_id", run.ID(), "file_id", fileID, "records", summary.TotalRecords)
	writeJSON(w, http.StatusAccepted, uploadResponse{
		RunID:           run.ID(),
		File:            fileID,
		TotalRecords:    summary.TotalRecords,
		StartOffset:     summary.StartOffset,
		CommittedOffset: summary.CommittedOffset,
		Chunks:          summary.DispatchedChunks,
	})
}

// uploadContent returns the CSV content of r and the client's file name,
// if it sent one.
func uploadContent(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", ErrNotCSV
	}
	if mediaType != "multipart/form-data" {
		if !csvMediaTypes[mediaType] {
			return nil, "", ErrNotCSV
		}
		return r.Body, "", nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", ErrEmptyUpload
		}
		return nil, "", err
	}
	partType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || !csvMediaTypes[partType] {
		file.Close()
		return nil, "", ErrNotCSV
	}
	return file, filepath.Base(header.Filename), nil
}

// spool copies content into a file under the upload directory.
func (s *Server) spool(content io.Reader) (string, error) {
	file, err := os.CreateTemp(s.uploadDir, "upload-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	n, err := io.Copy(file, content)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = ErrEmptyUpload
	}
	if err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

// handleReset deletes a file's progress entry. The file name is read from
// the query parameter param.
func (s *Server) handleReset(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := r.URL.Query().Get(param)
		existed, err := s.ingester.Reset(r.Context(), fileID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resetResponse{
			Message: fmt.Sprintf("Progress for file %s has been reset.", fileID),
			Existed: existed,
		})
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("file")
	offset, err := s.ingester.Progress(r.Context(), fileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{File: fileID, Offset: offset})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.ingester.Run(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "run not found"})
		return
	}
	resp := runResponse{
		ID:      run.ID(),
		File:    run.FileID(),
		State:   run.State().String(),
		Summary: newSummaryResponse(run.Summary()),
	}
	if err := run.Err(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps err to a status code and writes it as a JSON detail.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	status, detail := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, ingestion.ErrNothingToProcess):
		status, detail = http.StatusBadRequest, "No new rows to process"
	case errors.Is(err, ErrEmptyUpload):
		status, detail = http.StatusBadRequest, "Uploaded file is empty"
	case errors.Is(err, ErrNotCSV):
		status, detail = http.StatusBadRequest, "Invalid file type. Please upload a CSV file."
	case errors.As(err, &tooLarge):
		status, detail = http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, ErrFileNameRequired), errors.Is(err, ingestion.ErrFileIDRequired),
		errors.Is(err, core.ErrValidation):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, ingestion.ErrControllerReleased):
		status, detail = http.StatusServiceUnavailable, err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
