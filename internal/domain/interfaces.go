package domain

import (
	"context"

	"github.com/google/uuid"
)

// QuestionnaireSource is a read-only source of questionnaire definitions.
// Identifiers are stable across calls.
type QuestionnaireSource interface {
	GetQuestionnaire(ctx context.Context, id string) (*Questionnaire, error)
}

// AppointmentStore persists appointments. Save enforces optimistic
// concurrency: the write only succeeds when the stored version equals
// expectedVersion, otherwise it fails with a ConflictError.
type AppointmentStore interface {
	Create(ctx context.Context, appointment *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Save(ctx context.Context, appointment *Appointment, expectedVersion int64) error
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*Appointment, error)
}

// EventSource provides donation event lookups.
type EventSource interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*DonationEvent, error)
}

// InventorySource provides a read-only snapshot of stored blood batches for a
// given blood type at call time.
type InventorySource interface {
	Snapshot(ctx context.Context, bloodType BloodType) ([]InventoryRecord, error)
}

// EmergencyRequestStore persists emergency blood requests.
type EmergencyRequestStore interface {
	GetRequest(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error)
	SaveRequest(ctx context.Context, request *EmergencyRequest) error
}

// NotificationDispatcher delivers notification events. Dispatch is
// fire-and-forget from the engine's perspective: a delivery failure is logged
// by the caller and never fails the transition that produced the event.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event NotificationEvent) error
}
