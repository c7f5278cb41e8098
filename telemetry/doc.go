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


// Package telemetry receives the ingestion engine's run and chunk events.
//
// The engine emits to a single Sink. Sinks shipped here:
//   - LogSink writes one structured slog record per event
//   - MetricsSink feeds Prometheus counters, gauges and histograms
//   - ProgressSink prints a progress line for interactive use
//
// Combine them with Multi. Emit is called from the engine's goroutines and
// must not block for long.
package telemetry
