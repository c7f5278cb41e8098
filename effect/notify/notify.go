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


// Package notify sends the "slip ready" email for debt records.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/remessa/core"
	"github.com/poiesic/remessa/effect"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. A returned error is treated as an
// infrastructure fault.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender simulates delivery by logging each message.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs msg.
func (s LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "simulating email", "to", msg.To, "message", msg.Body)
	return nil
}

// DefaultSubject is the subject line of slip notifications.
const DefaultSubject = "Your boleto is ready"

// Body returns the notification text for a debt.
func Body(debtID, amount string) string {
	return fmt.Sprintf("Your boleto with the debt uuid %s and value %s is ready.", debtID, amount)
}

// Mailer notifies the debtor of each record.
type Mailer struct {
	sender  Sender
	subject string
	logger  *slog.Logger
}

var _ effect.Effector = (*Mailer)(nil)

// Option configures a Mailer.
type Option func(*Mailer) error

// WithSender sets the delivery backend.
// Default is LogSender.
func WithSender(sender Sender) Option {
	return func(m *Mailer) error {
		if sender != nil {
			m.sender = sender
		}
		return nil
	}
}

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) Option {
	return func(m *Mailer) error {
		m.subject = subject
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mailer) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// New creates a Mailer.
func New(opts ...Option) (*Mailer, error) {
	m := &Mailer{
		subject: DefaultSubject,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "notify")
	if m.sender == nil {
		m.sender = LogSender{Logger: m.logger}
	}
	return m, nil
}

// Effect sends the notification for record.
func (m *Mailer) Effect(ctx context.Context, record core.Record) (core.Outcome, error) {
	id := record.Identifier()
	if record.Recipient() == "" {
		return core.Failed(id, core.ErrInvalidRecipient.Error()), nil
	}
	msg := Message{
		To:      record.Recipient(),
		Subject: m.subject,
		Body:    Body(id, record.Amount()),
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return core.Outcome{}, fmt.Errorf("failed to notify %s: %w", msg.To, err)
	}
	return core.Succeeded(id), nil
}
