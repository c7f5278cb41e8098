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


// Package boleto generates payment slips (boletos) for debt records.
package boleto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/effect"
)

// ErrUnsafeIdentifier is reported when a debt identifier cannot be used as a file name.
var ErrUnsafeIdentifier = errors.New("debt identifier is not a safe file name")

// Slip is the content of one payment slip.
type Slip struct {
	DebtID       string
	Name         string
	GovernmentID string
	Amount       uint64 // Smallest currency unit
	DueDate      time.Time
	Barcode      string
	IssuedAt     time.Time
}

var slipTemplate = template.Must(template.New("slip").Parse(`BOLETO
Debt:          {{.DebtID}}
Payer:         {{.Name}}
Government ID: {{.GovernmentID}}
Amount:        {{.Amount}}
Due date:      {{.DueDate.Format "2006-01-02"}}
Barcode:       {{.Barcode}}
Issued at:     {{.IssuedAt.Format "2006-01-02T15:04:05Z07:00"}}
`))

// Generator produces one slip per record. With an output directory the slip
// is written to <dir>/<debtId>.txt; without one generation is simulated by logging.
type Generator struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

var _ effect.Effector = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator) error

// WithOutputDir writes slips into dir, creating it if needed.
func WithOutputDir(dir string) Option {
	return func(g *Generator) error {
		if dir == "" {
			return nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create slip directory: %w", err)
		}
		g.dir = dir
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// New creates a slip generator.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "boleto")
	return g, nil
}

// Build derives the slip for record. The record must be valid.
func (g *Generator) Build(record core.Record) (*Slip, error) {
	amount, err := core.ParseAmount(record.Amount())
	if err != nil {
		return nil, err
	}
	due, err := core.ParseDueDate(record.DueDate())
	if err != nil {
		return nil, err
	}
	return &Slip{
		DebtID:       record.Identifier(),
		Name:         record.Name(),
		GovernmentID: record.GovernmentID(),
		Amount:       amount,
		DueDate:      due,
		Barcode:      barcode(record.Identifier(), amount, due),
		IssuedAt:     g.now().UTC(),
	}, nil
}

// Render formats a slip as text.
func Render(slip *Slip) ([]byte, error) {
	var buf bytes.Buffer
	if err := slipTemplate.Execute(&buf, slip); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Effect generates the slip for record.
func (g *Generator) Effect(ctx context.Context, record core.Record) (core.Outcome, error) {
	id := record.Identifier()
	slip, err := g.Build(record)
	if err != nil {
		return core.Failed(id, err.Error()), nil
	}

	if g.dir == "" {
		g.logger.Info("simulating slip generation", "debt_id", id, "amount", slip.Amount)
		return core.Succeeded(id), nil
	}

	if id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return core.Failed(id, ErrUnsafeIdentifier.Error()), nil
	}
	content, err := Render(slip)
	if err != nil {
		return core.Outcome{}, fmt.Errorf("failed to render slip %s: %w", id, err)
	}
	path := filepath.Join(g.dir, id+".txt")
	if err := os.WriteFile(path, content, 0644); err != nil {
		return core.Outcome{}, fmt.Errorf("failed to write slip %s: %w", id, err)
	}
	g.logger.Debug("slip written", "debt_id", id, "path", path)
	return core.Succeeded(id), nil
}

// barcode derives a stable 44-digit code from the slip's identity.
func barcode(id string, amount uint64, due time.Time) string {
	hash := uint64(core.IDFromContent(id))
	return fmt.Sprintf("%020d%08s%016d", hash, due.Format("20060102"), amount%1e16)
}
