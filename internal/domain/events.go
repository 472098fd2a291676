package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what a notification event describes.
type EventKind string

const (
	EventAppointmentEligible EventKind = "appointment.eligible"
	EventAppointmentDeferred EventKind = "appointment.deferred"
	EventTransferAuthorized  EventKind = "emergency.transfer_authorized"
)

// IsValid validates the event kind.
func (k EventKind) IsValid() bool {
	switch k {
	case EventAppointmentEligible, EventAppointmentDeferred, EventTransferAuthorized:
		return true
	default:
		return false
	}
}

// NotificationEvent is the descriptor handed to the notification dispatcher
// when a transition reaches Eligible, Deferred, or a transfer is authorized.
// Delivery is the dispatcher's concern; the engine fires and forgets.
type NotificationEvent struct {
	Kind          EventKind `json:"kind"`
	AppointmentID uuid.UUID `json:"appointment_id,omitempty"`
	RequestID     uuid.UUID `json:"request_id,omitempty"`
	DonorID       uuid.UUID `json:"donor_id,omitempty"`
	BloodType     BloodType `json:"blood_type,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	Summary       string    `json:"summary"`
}
