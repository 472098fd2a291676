// Package donationlog provides durable storage for completed donation
// records. Reporting screens and donor history read from here; the
// registration workflow appends one record per recorded donation.
package donationlog

import (
	"context"
	"io"
	"time"

	"github.com/blood-donation-support-server/internal/domain"
)

// Record is one completed donation.
type Record struct {
	ID            int64            `json:"id,omitempty"`
	AppointmentID string           `json:"appointment_id"`
	DonorID       string           `json:"donor_id"`
	EventID       string           `json:"event_id"`
	BloodType     domain.BloodType `json:"blood_type"`
	VolumeML      int              `json:"volume_ml"`
	DonatedAt     time.Time        `json:"donated_at"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at,omitempty"`
}

// Export is the JSON envelope for bulk export/import.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

// Store is the donation log persistence interface.
type Store interface {
	// Save stores a donation record, assigning its ID. One appointment
	// produces at most one record; saving again for the same appointment
	// updates the existing entry.
	Save(ctx context.Context, record *Record) error

	// GetByAppointment retrieves the record for an appointment, or nil when
	// none exists.
	GetByAppointment(ctx context.Context, appointmentID string) (*Record, error)

	// ListByDonor returns a donor's donation history, newest first.
	ListByDonor(ctx context.Context, donorID string) ([]*Record, error)

	// List returns records with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads records from a JSON reader, skipping appointments
	// already present.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close releases store resources.
	Close() error
}
