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

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DueDateLayout is the calendar date layout accepted for due dates.
const DueDateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRecord validates a Record according to the debt record rules.
//
// Validation rules:
//   - Identifier must not be empty
//   - Recipient must be a syntactically valid email address
//   - Amount must be a non-negative integer
//   - DueDate must parse as YYYY-MM-DD or RFC3339
//
// NOT validated:
//   - Name and GovernmentID (informational only)
//   - Offset (assigned by the partitioner)
func ValidateRecord(record Record) error {
	if record.Identifier() == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingIdentifier)
	}

	if err := validate.Var(record.Recipient(), "required,email"); err != nil {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecord, ErrInvalidRecipient, record.Recipient())
	}

	if _, err := ParseAmount(record.Amount()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if _, err := ParseDueDate(record.DueDate()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	return nil
}

// ParseAmount parses a debt amount expressed in the smallest currency unit.
func ParseAmount(raw string) (uint64, error) {
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return amount, nil
}

// ParseDueDate parses a due date given either as a calendar date or an RFC3339 timestamp.
func ParseDueDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DueDateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, raw)
}
