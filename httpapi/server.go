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


// Package httpapi exposes ingestion over HTTP: CSV uploads, progress reset,
// run status and metrics.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/poiesic/remessa/ingestion"
	"github.com/poiesic/remessa/source"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxUploadSize bounds the size of an uploaded file.
const DefaultMaxUploadSize int64 = 512 << 20

// Ingester is the part of ingestion.Controller the API needs.
type Ingester interface {
	Submit(ctx context.Context, fileID string, src source.RecordSource) (*ingestion.Run, error)
	Reset(ctx context.Context, fileID string) (bool, error)
	Progress(ctx context.Context, fileID string) (uint64, error)
	Run(id string) (*ingestion.Run, bool)
}

var _ Ingester = (*ingestion.Controller)(nil)

// Server serves the ingestion API.
type Server struct {
	ingester      Ingester
	uploadDir     string
	maxUploadSize int64
	metrics       http.Handler
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithUploadDir sets where uploaded files are spooled while their run is
// in flight. Default is os.TempDir().
func WithUploadDir(dir string) Option {
	return func(s *Server) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		s.uploadDir = dir
		return nil
	}
}

// WithMaxUploadSize sets the largest accepted upload in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) error {
		if n > 0 {
			s.maxUploadSize = n
		}
		return nil
	}
}

// WithMetricsHandler replaces the handler mounted at /metrics.
// A nil handler removes the endpoint.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) error {
		s.metrics = h
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer creates an API server backed by ingester.
func NewServer(ingester Ingester, opts ...Option) (*Server, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	s := &Server{
		ingester:      ingester,
		uploadDir:     os.TempDir(),
		maxUploadSize: DefaultMaxUploadSize,
		metrics:       promhttp.Handler(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "httpapi")
	return s, nil
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload_csv", s.handleUpload)
	mux.HandleFunc("POST /reset_progress", s.handleReset("file_name"))
	mux.HandleFunc("POST /progress/reset", s.handleReset("file"))
	mux.HandleFunc("GET /progress", s.handleProgress)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// NewHTTPServer wraps the API in an http.Server listening on addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:     addr,
		Handler:  s.Handler(),
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
}
