package storage

import (
	"testing"
	"time"

	"github.com/poiesic/remessa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalFileProgress(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name     string
		progress *core.FileProgress
	}{
		{"fresh file", &core.FileProgress{FileID: "debts.csv", LastOffset: 0, UpdatedAt: now}},
		{"large offset", &core.FileProgress{FileID: "debts.csv", LastOffset: 1 << 40, UpdatedAt: now}},
		{"unicode file name", &core.FileProgress{FileID: "cobrança-março.csv", LastOffset: 235, UpdatedAt: now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalFileProgress(tt.progress)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalFileProgress(data)
			require.NoError(t, err)
			assert.Equal(t, tt.progress.FileID, decoded.FileID)
			assert.Equal(t, tt.progress.LastOffset, decoded.LastOffset)
			assert.True(t, tt.progress.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestMarshalUnmarshalDedupEntry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &core.DedupEntry{
		Identifier: "76403498-cffe-4c06-895e-f60ba27443b3",
		FileID:     "debts.csv",
		MarkedAt:   now,
	}

	data := MarshalDedupEntry(entry)
	decoded, err := UnmarshalDedupEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry.Identifier, decoded.Identifier)
	assert.Equal(t, entry.FileID, decoded.FileID)
	assert.True(t, entry.MarkedAt.Equal(decoded.MarkedAt))
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalFileProgress([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalDedupEntry([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
