package domain

import (
	"time"

	"github.com/google/uuid"
)

// Appointment represents one donor's relationship to one donation event. It
// is owned by the donor who created it and mutated only through lifecycle
// transitions; it is never physically removed, a cancelled appointment stays
// as a historical record.
//
// Version implements optimistic concurrency: saves carry the version the
// caller read, and the store rejects the write with a ConflictError when the
// stored version has moved on.
type Appointment struct {
	ID      uuid.UUID `json:"id"`
	DonorID uuid.UUID `json:"donor_id"`
	EventID uuid.UUID `json:"event_id"`

	Status      AppointmentStatus `json:"status"`
	ScheduledAt time.Time         `json:"scheduled_at"`

	StaffNote      string `json:"staff_note,omitempty"`
	DeferralReason string `json:"deferral_reason,omitempty"`
	DeferralAdvice string `json:"deferral_advice,omitempty"`

	DonatedVolumeML int       `json:"donated_volume_ml,omitempty"`
	BloodType       BloodType `json:"blood_type,omitempty"`

	// EligibleAgainAt advises when the donor may donate again, set on
	// deferral and on a completed donation.
	EligibleAgainAt *time.Time `json:"eligible_again_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// Validate ensures the appointment record is internally consistent.
func (a *Appointment) Validate() error {
	if a.ID == uuid.Nil {
		return NewValidationError("id", "appointment ID is required", nil)
	}
	if a.DonorID == uuid.Nil {
		return NewValidationError("donor_id", "donor reference is required", nil)
	}
	if a.EventID == uuid.Nil {
		return NewValidationError("event_id", "event reference is required", nil)
	}
	if !a.Status.IsValid() {
		return NewValidationError("status", "unknown appointment status", string(a.Status))
	}
	if a.DonatedVolumeML < 0 {
		return NewValidationError("donated_volume_ml", "donated volume must not be negative", a.DonatedVolumeML)
	}
	if a.BloodType != "" && !a.BloodType.IsValid() {
		return NewValidationError("blood_type", "unknown blood type code", string(a.BloodType))
	}
	return nil
}

// DonationEvent is one scheduled donation drive a donor can register for.
type DonationEvent struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Capacity int       `json:"capacity"`

	CreatedAt time.Time `json:"created_at"`
}

// IsUpcoming reports whether the event has not yet started.
func (e *DonationEvent) IsUpcoming(now time.Time) bool {
	return e.Date.After(now)
}

// IsOnDay reports whether now falls on the event's calendar date, evaluated
// in the event's own time zone. Check-in is permitted only on that day.
func (e *DonationEvent) IsOnDay(now time.Time) bool {
	ey, em, ed := e.Date.Date()
	ny, nm, nd := now.In(e.Date.Location()).Date()
	return ey == ny && em == nm && ed == nd
}

// EmergencyRequest is a hospital request for a given volume of a blood type.
// The transfer path moves it to TransferAuthorized only when the sufficiency
// calculator reports enough matching stock and the request is approved.
type EmergencyRequest struct {
	ID               uuid.UUID       `json:"id"`
	Hospital         string          `json:"hospital"`
	BloodType        BloodType       `json:"blood_type"`
	RequiredVolumeML int             `json:"required_volume_ml"`
	Status           EmergencyStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate ensures the emergency request is internally consistent.
func (r *EmergencyRequest) Validate() error {
	if r.ID == uuid.Nil {
		return NewValidationError("id", "request ID is required", nil)
	}
	if !r.BloodType.IsValid() {
		return NewValidationError("blood_type", "unknown blood type code", string(r.BloodType))
	}
	if r.RequiredVolumeML < 0 {
		return NewValidationError("required_volume_ml", "required volume must not be negative", r.RequiredVolumeML)
	}
	if !r.Status.IsValid() {
		return NewValidationError("status", "unknown emergency status", string(r.Status))
	}
	return nil
}
