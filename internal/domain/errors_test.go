package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Conflict error",
			code:      ErrCodeConflict,
			message:   "Appointment was modified concurrently",
			details:   "Expected version 3, found 4",
			requestID: "req-123",
		},
		{
			name:      "Invalid input",
			code:      ErrCodeInvalidInput,
			message:   "Unknown blood type code",
			details:   "Value 'C+' is not a valid ABO/Rh code",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}
			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expected := tt.code + ": " + tt.message
			if err.Error() != expected {
				t.Errorf("Expected error string %s, got %s", expected, err.Error())
			}
		})
	}
}

func TestMissingAnswerError(t *testing.T) {
	err := &MissingAnswerError{QuestionID: "q-3"}

	expected := `missing answer for question "q-3"`
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	var target *MissingAnswerError
	wrapped := fmt.Errorf("evaluating questionnaire: %w", err)
	if !errors.As(wrapped, &target) {
		t.Error("Expected errors.As to unwrap MissingAnswerError")
	}
	if target.QuestionID != "q-3" {
		t.Errorf("Expected question ID q-3, got %s", target.QuestionID)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{
		Current:   StatusDonated,
		Attempted: StatusCancelled,
	}
	expected := "invalid transition from DONATED to CANCELLED"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	withReason := &InvalidTransitionError{
		Current:   StatusEligible,
		Attempted: StatusCheckedIn,
		Reason:    "check-in is only permitted on the event day",
	}
	if withReason.Error() != "invalid transition from ELIGIBLE to CHECKED_IN: check-in is only permitted on the event day" {
		t.Errorf("Unexpected error string: %s", withReason.Error())
	}
}

func TestConflictError(t *testing.T) {
	id := uuid.New()
	err := &ConflictError{
		AppointmentID: id,
		Expected:      StatusEligible,
		Actual:        StatusCancelled,
	}

	var target *ConflictError
	wrapped := fmt.Errorf("saving appointment: %w", err)
	if !errors.As(wrapped, &target) {
		t.Fatal("Expected errors.As to unwrap ConflictError")
	}
	if target.Expected != StatusEligible || target.Actual != StatusCancelled {
		t.Errorf("Unexpected conflict fields: %+v", target)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("volume_ml", "must not be negative", -50)

	if err.Field != "volume_ml" {
		t.Errorf("Expected field volume_ml, got %s", err.Field)
	}
	expected := "validation error for field 'volume_ml': must not be negative"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}
