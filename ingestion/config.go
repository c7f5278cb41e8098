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


package ingestion

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds the tunables of an ingestion Controller.
type Config struct {
	// ChunkSize is the number of records per chunk.
	// Default: 100
	ChunkSize int

	// JoinTimeout bounds how long a run waits for its chunks once dispatched.
	// Default: 60s
	JoinTimeout time.Duration

	// PoolSize is the number of chunk workers shared by all runs.
	// Default: runtime.NumCPU()
	PoolSize int

	// RunHistory is how many finished runs the controller remembers for
	// status lookups. In-flight runs are always kept.
	// Default: 128
	RunHistory int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithChunkSize sets the number of records per chunk.
func WithChunkSize(size int) ConfigOption {
	return func(c *Config) {
		c.ChunkSize = size
	}
}

// WithJoinTimeout sets the join deadline.
func WithJoinTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.JoinTimeout = timeout
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(c *Config) {
		c.PoolSize = n
	}
}

// WithRunHistory sets how many finished runs are remembered.
func WithRunHistory(n int) ConfigOption {
	return func(c *Config) {
		c.RunHistory = n
	}
}

// DefaultConfig returns a Config with the default values.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:   100,
		JoinTimeout: 60 * time.Second,
		PoolSize:    max(runtime.NumCPU(), 1),
		RunHistory:  128,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithChunkSize(500),
//	    WithJoinTimeout(5*time.Minute),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: ChunkSize must be at least 1, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("%w: JoinTimeout must be positive, got %s", ErrInvalidConfig, c.JoinTimeout)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("%w: PoolSize must be at least 1, got %d", ErrInvalidConfig, c.PoolSize)
	}
	if c.RunHistory < 0 {
		return fmt.Errorf("%w: RunHistory cannot be negative, got %d", ErrInvalidConfig, c.RunHistory)
	}
	return nil
}
