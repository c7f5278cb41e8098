package core

import (
	"errors"
	"testing"
)

func validDebt() map[string]string {
	return map[string]string{
		FieldName:         "Test user",
		FieldGovernmentID: "12345678900",
		FieldRecipient:    "test@example.com",
		FieldAmount:       "1000",
		FieldDueDate:      "2024-07-12",
		FieldIdentifier:   "76403498-cffe-4c06-895e-f60ba27443b3",
	}
}

func withField(name, value string) map[string]string {
	fields := validDebt()
	fields[name] = value
	return fields
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		wantErr error
	}{
		{
			name:    "valid record",
			fields:  validDebt(),
			wantErr: nil,
		},
		{
			name:    "valid record with RFC3339 due date",
			fields:  withField(FieldDueDate, "2024-07-12T00:00:00Z"),
			wantErr: nil,
		},
		{
			name:    "valid record without optional fields",
			fields:  withField(FieldName, ""),
			wantErr: nil,
		},
		{
			name:    "missing identifier",
			fields:  withField(FieldIdentifier, "  "),
			wantErr: ErrMissingIdentifier,
		},
		{
			name:    "invalid email",
			fields:  withField(FieldRecipient, "invalid_email"),
			wantErr: ErrInvalidRecipient,
		},
		{
			name:    "empty email",
			fields:  withField(FieldRecipient, ""),
			wantErr: ErrInvalidRecipient,
		},
		{
			name:    "negative amount",
			fields:  withField(FieldAmount, "-5"),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "non numeric amount",
			fields:  withField(FieldAmount, "ten"),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "bad due date",
			fields:  withField(FieldDueDate, "12/07/2024"),
			wantErr: ErrInvalidDueDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(NewRecord(0, tt.fields))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ValidateRecord() error should wrap ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount("1000")
	if err != nil {
		t.Fatalf("ParseAmount() unexpected error = %v", err)
	}
	if amount != 1000 {
		t.Errorf("ParseAmount() = %d, want 1000", amount)
	}
}

func TestParseDueDate(t *testing.T) {
	due, err := ParseDueDate("2024-07-12")
	if err != nil {
		t.Fatalf("ParseDueDate() unexpected error = %v", err)
	}
	if due.Year() != 2024 || due.Month() != 7 || due.Day() != 12 {
		t.Errorf("ParseDueDate() = %v", due)
	}
}
