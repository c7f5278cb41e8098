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


// Package effect defines the per-record side effect invoked by the ingestion
// engine, and the combinators used to build one.
//
// An Effector reports recoverable per-record problems as a Failed outcome and
// returns a non-nil error only for infrastructure faults. The engine counts
// Failed outcomes and moves on; an error fails the whole chunk.
//
// # Debt records
//
// The default effector for debt files validates the record, generates a
// payment slip and notifies the debtor:
//
//	generator, _ := boleto.New(boleto.WithOutputDir("slips"))
//	mailer, _ := notify.New()
//	effector := effect.Validated(effect.Chain(generator, mailer))
//
// Subpackages:
//   - boleto: payment slip generation
//   - notify: email notification
//   - mock: recording effector for tests
package effect
