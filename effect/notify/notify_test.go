package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/remessa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func debt() core.Record {
	return core.NewRecord(0, map[string]string{
		core.FieldIdentifier: "1adb6ccf-ff16-467f-bea7-5f05d494280f",
		core.FieldRecipient:  "johndoe@kanastra.com.br",
		core.FieldAmount:     "1000000",
	})
}

func TestMailer_Effect(t *testing.T) {
	sender := &recordingSender{}
	m, err := New(WithSender(sender))
	require.NoError(t, err)

	outcome, err := m.Effect(context.Background(), debt())
	require.NoError(t, err)
	assert.True(t, outcome.OK())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "johndoe@kanastra.com.br", sender.sent[0].To)
	assert.Equal(t, DefaultSubject, sender.sent[0].Subject)
	assert.Equal(t,
		"Your boleto with the debt uuid 1adb6ccf-ff16-467f-bea7-5f05d494280f and value 1000000 is ready.",
		sender.sent[0].Body)
}

func TestMailer_SenderError(t *testing.T) {
	boom := errors.New("smtp unavailable")
	m, err := New(WithSender(&recordingSender{err: boom}))
	require.NoError(t, err)

	_, err = m.Effect(context.Background(), debt())
	assert.ErrorIs(t, err, boom)
}

func TestMailer_MissingRecipient(t *testing.T) {
	sender := &recordingSender{}
	m, err := New(WithSender(sender), WithSubject("custom"))
	require.NoError(t, err)

	record := debt()
	delete(record.Fields, core.FieldRecipient)
	outcome, err := m.Effect(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeFailed, outcome.Status)
	assert.Empty(t, sender.sent)
}

func TestMailer_DefaultLogSender(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	outcome, err := m.Effect(context.Background(), debt())
	require.NoError(t, err)
	assert.True(t, outcome.OK())
}
