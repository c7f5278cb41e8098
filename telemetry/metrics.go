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


package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunsTotal tracks finished runs by outcome (completed, timed_out, failed).
var RunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "remessa_runs_total",
		Help: "Total ingestion runs by outcome",
	},
	[]string{"pipeline", "outcome"},
)

// ActiveRuns tracks runs that have started and not yet finished.
var ActiveRuns = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "remessa_active_runs",
		Help: "Current in-flight ingestion runs",
	},
	[]string{"pipeline"},
)

// ChunksCommittedTotal tracks chunks whose offsets were committed.
var ChunksCommittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "remessa_chunks_committed_total",
		Help: "Total chunks committed and dispatched",
	},
	[]string{"pipeline"},
)

// ChunksFinishedTotal tracks collected chunk results (completed or cancelled).
var ChunksFinishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "remessa_chunks_finished_total",
		Help: "Total chunk results collected by the join",
	},
	[]string{"pipeline", "status"},
)

// RecordsTotal tracks records by outcome (succeeded, failed, skipped).
var RecordsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "remessa_records_total",
		Help: "Total records handled by chunk workers",
	},
	[]string{"pipeline", "outcome"},
)

// CommittedOffset tracks the last committed offset per file.
var CommittedOffset = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "remessa_committed_offset",
		Help: "Last committed record offset per file",
	},
	[]string{"pipeline", "file"},
)

// ChunkDuration tracks time from dispatch to result collection.
var ChunkDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "remessa_chunk_duration_seconds",
		Help:    "Chunk processing latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"pipeline"},
)

// RunDuration tracks end-to-end run latency.
var RunDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "remessa_run_duration_seconds",
		Help:    "Ingestion run latency",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	},
	[]string{"pipeline"},
)
