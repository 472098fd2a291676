package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error codes used in API error envelopes.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeMissingAnswer     = "MISSING_ANSWER"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalServer    = "INTERNAL_SERVER_ERROR"
)

// ErrNotFound is wrapped by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// APIError is the standardized error envelope returned by the HTTP surface.
// Business verdicts (eligibility outcomes, sufficiency results) never travel
// in this envelope; it is reserved for integration misuse and transient
// failures.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents malformed input: negative volumes, unknown blood
// type codes, or unknown question/option identifiers referenced in an answer.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MissingAnswerError indicates the caller supplied an incomplete answer set:
// a question in the questionnaire has no entry. This is an integration bug,
// not a user-facing eligibility outcome, and is never conflated with an
// Ineligible verdict.
type MissingAnswerError struct {
	QuestionID string `json:"question_id"`
}

// Error implements the error interface.
func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("missing answer for question %q", e.QuestionID)
}

// InvalidTransitionError indicates an attempted appointment state change that
// is not reachable from the current state. Always fatal to the call; the
// caller must not retry blindly.
type InvalidTransitionError struct {
	Current   AppointmentStatus `json:"current"`
	Attempted AppointmentStatus `json:"attempted"`
	Reason    string            `json:"reason,omitempty"`
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition from %s to %s: %s", e.Current, e.Attempted, e.Reason)
	}
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Attempted)
}

// ConflictError indicates an optimistic concurrency precondition failed: the
// stored status changed since the caller last read it. The caller should
// refetch the current record and decide whether to retry.
type ConflictError struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	Expected      AppointmentStatus `json:"expected"`
	Actual        AppointmentStatus `json:"actual,omitempty"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Actual != "" {
		return fmt.Sprintf("appointment %s: expected status %s, found %s", e.AppointmentID, e.Expected, e.Actual)
	}
	return fmt.Sprintf("appointment %s: concurrent modification detected (expected status %s)", e.AppointmentID, e.Expected)
}
