package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100, cfg.ChunkSize)
	assert.Equal(t, 60*time.Second, cfg.JoinTimeout)
	assert.GreaterOrEqual(t, cfg.PoolSize, 1)
	assert.Equal(t, 128, cfg.RunHistory)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithChunkSize(500),
		WithJoinTimeout(5*time.Minute),
		WithWorkers(16),
		WithRunHistory(0),
	)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 5*time.Minute, cfg.JoinTimeout)
	assert.Equal(t, 16, cfg.PoolSize)
	assert.Equal(t, 0, cfg.RunHistory)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		opt  ConfigOption
	}{
		{"zero chunk size", WithChunkSize(0)},
		{"negative chunk size", WithChunkSize(-1)},
		{"zero timeout", WithJoinTimeout(0)},
		{"zero workers", WithWorkers(0)},
		{"negative history", WithRunHistory(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opt).Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
