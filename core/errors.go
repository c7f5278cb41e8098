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


package core

import "errors"

// Failure classes. Concrete errors wrap one of these so callers can classify
// them with errors.Is.
var (
	// ErrValidation marks input that cannot be processed as given: nothing new
	// to process, a malformed record or file. Reported to the caller, never retried.
	ErrValidation = errors.New("validation failure")

	// ErrInfrastructure marks a fault in a collaborator such as an unreachable
	// store. Fatal to the current run and surfaced without internal retry.
	ErrInfrastructure = errors.New("infrastructure failure")

	// ErrTimeout marks a run whose join deadline elapsed before every chunk finished.
	// Resubmitting the file resumes from the committed offset.
	ErrTimeout = errors.New("time limit exceeded")

	// ErrRecordEffect marks a per-record side effect failure. It is captured in
	// the chunk result and never aborts the chunk or the run.
	ErrRecordEffect = errors.New("record effect failure")
)

// Record validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrMissingIdentifier indicates the record identifier is empty.
	ErrMissingIdentifier = errors.New("record identifier cannot be empty")

	// ErrInvalidRecipient indicates the recipient is not a valid email address.
	ErrInvalidRecipient = errors.New("recipient must be a valid email address")

	// ErrInvalidAmount indicates the amount is not a non-negative integer.
	ErrInvalidAmount = errors.New("amount must be a non-negative integer")

	// ErrInvalidDueDate indicates the due date could not be parsed.
	ErrInvalidDueDate = errors.New("due date must be a date (YYYY-MM-DD) or RFC3339 timestamp")
)
