// Package domain contains the core business entities and types for the blood
// donation coordination platform: pre-donation questionnaires, appointment
// lifecycle states, and blood inventory.
//
// Status values form a closed enumeration. Legacy free-text status strings
// from the previous system are mapped to enum members exactly once at the
// integration boundary via ParseLegacyStatus; business logic never re-parses
// status strings.
package domain

import (
	"strings"
)

// AppointmentStatus represents the lifecycle state of a donation appointment.
type AppointmentStatus string

const (
	StatusRegistered    AppointmentStatus = "REGISTERED"
	StatusPendingReview AppointmentStatus = "PENDING_REVIEW"
	StatusEligible      AppointmentStatus = "ELIGIBLE"
	StatusIneligible    AppointmentStatus = "INELIGIBLE"
	StatusCheckedIn     AppointmentStatus = "CHECKED_IN"
	StatusDonated       AppointmentStatus = "DONATED"
	StatusDeferred      AppointmentStatus = "DEFERRED"
	StatusCancelled     AppointmentStatus = "CANCELLED"
)

// IsValid validates that the status is a member of the closed lifecycle set.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusRegistered, StatusPendingReview, StatusEligible, StatusIneligible,
		StatusCheckedIn, StatusDonated, StatusDeferred, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s AppointmentStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further staff or donor
// transitions. Deferred and Cancelled are near-terminal: both can lead to a
// fresh appointment through re-registration, never to a mutation of this one.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case StatusIneligible, StatusDonated, StatusDeferred, StatusCancelled:
		return true
	default:
		return false
	}
}

// AllowsDonorCancel reports whether the donor may cancel from this status.
func (s AppointmentStatus) AllowsDonorCancel() bool {
	switch s {
	case StatusRegistered, StatusPendingReview, StatusEligible:
		return true
	default:
		return false
	}
}

// LogFields returns structured logging fields for audit trails.
func (s AppointmentStatus) LogFields() map[string]any {
	return map[string]any{
		"status":       string(s),
		"is_valid":     s.IsValid(),
		"is_terminal":  s.IsTerminal(),
		"donor_cancel": s.AllowsDonorCancel(),
	}
}

// legacyStatuses maps the free-text status values found in the previous
// system (Vietnamese UI strings and assorted English variants) to enum
// members. Matching is case-insensitive on the trimmed value.
var legacyStatuses = map[string]AppointmentStatus{
	"đã đăng ký":          StatusRegistered,
	"registered":          StatusRegistered,
	"chờ duyệt":           StatusPendingReview,
	"chờ xét duyệt":       StatusPendingReview,
	"pending":             StatusPendingReview,
	"pending review":      StatusPendingReview,
	"đủ điều kiện":        StatusEligible,
	"eligible":            StatusEligible,
	"không đủ điều kiện":  StatusIneligible,
	"ineligible":          StatusIneligible,
	"đã điểm danh":        StatusCheckedIn,
	"checked in":          StatusCheckedIn,
	"checked-in":          StatusCheckedIn,
	"đã hiến":             StatusDonated,
	"đã hiến máu":         StatusDonated,
	"donated":             StatusDonated,
	"tạm hoãn":            StatusDeferred,
	"deferred":            StatusDeferred,
	"đã hủy":              StatusCancelled,
	"đã huỷ":              StatusCancelled,
	"cancelled":           StatusCancelled,
	"canceled":            StatusCancelled,
}

// ParseLegacyStatus maps a legacy free-text status string to its enum member.
// Returns a ValidationError for values outside the known legacy vocabulary.
func ParseLegacyStatus(raw string) (AppointmentStatus, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := legacyStatuses[key]; ok {
		return status, nil
	}
	// The enum values themselves round-trip.
	if status := AppointmentStatus(strings.ToUpper(key)); status.IsValid() {
		return status, nil
	}
	return "", NewValidationError("status", "unknown legacy status value", raw)
}

// EligibilityOutcome classifies the result of evaluating a pre-donation
// questionnaire. All three outcomes are legitimate business results and are
// returned as data, never as errors.
type EligibilityOutcome string

const (
	OutcomeEligible         EligibilityOutcome = "ELIGIBLE"
	OutcomeNeedsStaffReview EligibilityOutcome = "NEEDS_STAFF_REVIEW"
	OutcomeIneligible       EligibilityOutcome = "INELIGIBLE"
)

// IsValid validates the eligibility outcome.
func (o EligibilityOutcome) IsValid() bool {
	switch o {
	case OutcomeEligible, OutcomeNeedsStaffReview, OutcomeIneligible:
		return true
	default:
		return false
	}
}

// String returns the string representation of the outcome.
func (o EligibilityOutcome) String() string {
	return string(o)
}

// EligibilityVerdict is the terminal classification produced by evaluating a
// completed questionnaire. Reason is always set for outcomes other than
// Eligible. RequiresStaffReview can be true alongside an otherwise eligible
// determination: an answer that needed elaboration routes to staff, it does
// not reject.
type EligibilityVerdict struct {
	Outcome             EligibilityOutcome `json:"outcome"`
	Reason              string             `json:"reason,omitempty"`
	RequiresStaffReview bool               `json:"requires_staff_review"`
	FlaggedQuestionIDs  []string           `json:"flagged_question_ids,omitempty"`
}

// LogFields returns structured logging fields for audit trails.
func (v *EligibilityVerdict) LogFields() map[string]any {
	return map[string]any{
		"outcome":         string(v.Outcome),
		"requires_review": v.RequiresStaffReview,
		"flagged_count":   len(v.FlaggedQuestionIDs),
		"has_reason":      v.Reason != "",
	}
}

// BloodType represents an ABO/Rh blood type code.
type BloodType string

const (
	BloodONeg  BloodType = "O-"
	BloodOPos  BloodType = "O+"
	BloodANeg  BloodType = "A-"
	BloodAPos  BloodType = "A+"
	BloodBNeg  BloodType = "B-"
	BloodBPos  BloodType = "B+"
	BloodABNeg BloodType = "AB-"
	BloodABPos BloodType = "AB+"
)

// IsValid validates the blood type code.
func (b BloodType) IsValid() bool {
	switch b {
	case BloodONeg, BloodOPos, BloodANeg, BloodAPos,
		BloodBNeg, BloodBPos, BloodABNeg, BloodABPos:
		return true
	default:
		return false
	}
}

// String returns the string representation of the blood type.
func (b BloodType) String() string {
	return string(b)
}

// ParseBloodType normalizes a blood type string ("o+", " AB- ") to its enum
// member. Returns a ValidationError for unknown codes.
func ParseBloodType(raw string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(raw)))
	if !bt.IsValid() {
		return "", NewValidationError("blood_type", "unknown blood type code", raw)
	}
	return bt, nil
}

// StockStatus represents the freshness state of a stored blood batch.
type StockStatus string

const (
	StockInStock  StockStatus = "IN_STOCK"
	StockDepleted StockStatus = "DEPLETED"
	StockExpired  StockStatus = "EXPIRED"
)

// IsValid validates the stock status.
func (s StockStatus) IsValid() bool {
	switch s {
	case StockInStock, StockDepleted, StockExpired:
		return true
	default:
		return false
	}
}

// String returns the string representation of the stock status.
func (s StockStatus) String() string {
	return string(s)
}

// QuestionType represents how a questionnaire question is answered.
type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
)

// IsValid validates the question type.
func (t QuestionType) IsValid() bool {
	switch t {
	case SingleChoice, MultipleChoice:
		return true
	default:
		return false
	}
}

// String returns the string representation of the question type.
func (t QuestionType) String() string {
	return string(t)
}

// EmergencyStatus represents the state of an emergency blood request.
type EmergencyStatus string

const (
	EmergencyOpen               EmergencyStatus = "OPEN"
	EmergencyApproved           EmergencyStatus = "APPROVED"
	EmergencyTransferAuthorized EmergencyStatus = "TRANSFER_AUTHORIZED"
	EmergencyRejected           EmergencyStatus = "REJECTED"
)

// IsValid validates the emergency request status.
func (s EmergencyStatus) IsValid() bool {
	switch s {
	case EmergencyOpen, EmergencyApproved, EmergencyTransferAuthorized, EmergencyRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the emergency status.
func (s EmergencyStatus) String() string {
	return string(s)
}
