package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/remessa/effect/mock"
	"github.com/poiesic/remessa/ingestion"
	"github.com/poiesic/remessa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "name,governmentId,email,debtAmount,debtDueDate,debtId\n"

func csvBody(ids ...string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, id := range ids {
		fmt.Fprintf(&b, "John Doe,11111111111,johndoe@example.com,1000000,2022-10-12,%s\n", id)
	}
	return b.String()
}

type fixture struct {
	controller *ingestion.Controller
	effector   *mock.Effector
	uploadDir  string
	handler    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	progress, dedup, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	effector := mock.NewEffector()
	controller, err := ingestion.NewController(progress, dedup, effector,
		ingestion.WithConfig(ingestion.NewConfig(ingestion.WithChunkSize(2), ingestion.WithWorkers(2))))
	require.NoError(t, err)
	t.Cleanup(func() { controller.Release(time.Second) })

	dir := t.TempDir()
	server, err := NewServer(controller, WithUploadDir(dir))
	require.NoError(t, err)
	return &fixture{controller: controller, effector: effector, uploadDir: dir, handler: server.Handler()}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(file, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload_csv?file="+file, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return f.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (f *fixture) waitRun(t *testing.T, id string) *ingestion.Run {
	t.Helper()
	run, ok := f.controller.Run(id)
	require.True(t, ok)
	_, err := run.Wait(context.Background())
	require.NoError(t, err)
	return run
}

func TestNewServer_RequiresIngester(t *testing.T) {
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, ErrIngesterRequired)
}

func TestUpload_Accepted(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("debts.csv", "text/csv", csvBody("a", "b", "c"))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[uploadResponse](t, rec)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "debts.csv", resp.File)
	assert.Equal(t, uint64(3), resp.TotalRecords)
	assert.Equal(t, uint64(3), resp.CommittedOffset)
	assert.Equal(t, 2, resp.Chunks)

	f.waitRun(t, resp.RunID)
	assert.Equal(t, 3, f.effector.Total())

	// The spooled file is removed once the run finishes.
	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(f.uploadDir)
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpload_NoNewRows(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("debts.csv", "text/csv", csvBody("a"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.waitRun(t, decode[uploadResponse](t, rec).RunID)

	rec = f.upload("debts.csv", "text/csv", csvBody("a"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No new rows to process", decode[errorResponse](t, rec).Detail)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		body        string
		wantStatus  int
		wantDetail  string
	}{
		{"not csv", "debts.csv", "application/json", `{}`, http.StatusBadRequest, "Invalid file type. Please upload a CSV file."},
		{"no content type", "debts.csv", "", csvBody("a"), http.StatusBadRequest, "Invalid file type. Please upload a CSV file."},
		{"empty body", "debts.csv", "text/csv", "", http.StatusBadRequest, "Uploaded file is empty"},
		{"missing file name", "", "text/csv", csvBody("a"), http.StatusBadRequest, ErrFileNameRequired.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.upload(tt.file, tt.contentType, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDetail, decode[errorResponse](t, rec).Detail)
			assert.Equal(t, 0, f.effector.Total())
		})
	}
}

func TestUpload_MalformedCSV(t *testing.T) {
	f := newFixture(t)
	rec := f.upload("bad.csv", "text/csv", header+"only,three,fields\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	offset, err := f.controller.Progress(context.Background(), "bad.csv")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset)
}

func TestUpload_Multipart(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="january.csv"`},
		"Content-Type":        {"text/csv"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte(csvBody("x", "y")))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_csv", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := f.do(req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[uploadResponse](t, rec)
	assert.Equal(t, "january.csv", resp.File)
	f.waitRun(t, resp.RunID)
	assert.Equal(t, 2, f.effector.Total())
}

func TestUpload_TooLarge(t *testing.T) {
	progress, dedup, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	controller, err := ingestion.NewController(progress, dedup, mock.NewEffector())
	require.NoError(t, err)
	defer controller.Release(time.Second)

	server, err := NewServer(controller, WithUploadDir(t.TempDir()), WithMaxUploadSize(16))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/upload_csv?file=big.csv", strings.NewReader(csvBody("a", "b")))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestResetProgress(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("debts.csv", "text/csv", csvBody("a", "b"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.waitRun(t, decode[uploadResponse](t, rec).RunID)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/reset_progress?file_name=debts.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[resetResponse](t, rec)
	assert.True(t, resp.Existed)
	assert.Equal(t, "Progress for file debts.csv has been reset.", resp.Message)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/progress?file=debts.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(0), decode[progressResponse](t, rec).Offset)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/progress/reset?file=debts.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[resetResponse](t, rec).Existed)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/reset_progress", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/reset_progress?file_name=debts.csv", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("debts.csv", "text/csv", csvBody("a", "b", "c"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode[uploadResponse](t, rec).RunID
	f.waitRun(t, id)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/runs/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[runResponse](t, rec)
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "debts.csv", resp.File)
	assert.Equal(t, "completed", resp.State)
	assert.Empty(t, resp.Error)
	assert.Equal(t, 3, resp.Summary.SucceededRecords)
	assert.Equal(t, 2, resp.Summary.CompletedChunks)
	assert.NotNil(t, resp.Summary.FinishedAt)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/runs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestReleasedController(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.controller.Release(time.Second))

	rec := f.upload("debts.csv", "text/csv", csvBody("a"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
