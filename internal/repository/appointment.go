// Package repository provides PostgreSQL persistence for the donation
// workflow, plus in-memory fallbacks used when the server runs without a
// database.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

// AppointmentRepository handles appointment persistence.
type AppointmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AppointmentRepository {
	return &AppointmentRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new appointment.
func (r *AppointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, donor_id, event_id, status, scheduled_at,
			staff_note, deferral_reason, deferral_advice,
			donated_volume_ml, blood_type, eligible_again_at,
			created_at, updated_at, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.db.Exec(ctx, query,
		appointment.ID,
		appointment.DonorID,
		appointment.EventID,
		string(appointment.Status),
		appointment.ScheduledAt,
		appointment.StaffNote,
		appointment.DeferralReason,
		appointment.DeferralAdvice,
		appointment.DonatedVolumeML,
		string(appointment.BloodType),
		appointment.EligibleAgainAt,
		appointment.CreatedAt,
		appointment.UpdatedAt,
		appointment.Version,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"appointment_id": appointment.ID,
			"donor_id":       appointment.DonorID,
			"error":          err,
		}).Error("Failed to create appointment")
		return fmt.Errorf("creating appointment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"donor_id":       appointment.DonorID,
		"status":         appointment.Status.String(),
	}).Info("Appointment created")

	return nil
}

// GetByID retrieves an appointment by its ID.
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	query := `
		SELECT id, donor_id, event_id, status, scheduled_at,
			   staff_note, deferral_reason, deferral_advice,
			   donated_volume_ml, blood_type, eligible_again_at,
			   created_at, updated_at, version
		FROM appointments
		WHERE id = $1`

	appointment, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("appointment not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"appointment_id": id,
			"error":          err,
		}).Error("Failed to get appointment by ID")
		return nil, fmt.Errorf("getting appointment by ID: %w", err)
	}

	return appointment, nil
}

// Save writes back a mutated appointment under optimistic concurrency: the
// update only applies when the stored version still equals expectedVersion.
// A version mismatch yields a ConflictError; a missing row yields
// ErrNotFound.
func (r *AppointmentRepository) Save(ctx context.Context, appointment *domain.Appointment, expectedVersion int64) error {
	query := `
		UPDATE appointments SET
			status = $3,
			scheduled_at = $4,
			staff_note = $5,
			deferral_reason = $6,
			deferral_advice = $7,
			donated_volume_ml = $8,
			blood_type = $9,
			eligible_again_at = $10,
			updated_at = $11,
			version = version + 1
		WHERE id = $1 AND version = $2`

	tag, err := r.db.Exec(ctx, query,
		appointment.ID,
		expectedVersion,
		string(appointment.Status),
		appointment.ScheduledAt,
		appointment.StaffNote,
		appointment.DeferralReason,
		appointment.DeferralAdvice,
		appointment.DonatedVolumeML,
		string(appointment.BloodType),
		appointment.EligibleAgainAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"appointment_id": appointment.ID,
			"error":          err,
		}).Error("Failed to save appointment")
		return fmt.Errorf("saving appointment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a stale version from a missing row.
		var current string
		err := r.db.QueryRow(ctx,
			"SELECT status FROM appointments WHERE id = $1", appointment.ID,
		).Scan(&current)
		if err == pgx.ErrNoRows {
			return fmt.Errorf("appointment not found: %w", domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("saving appointment: %w", err)
		}
		return &domain.ConflictError{
			AppointmentID: appointment.ID,
			Expected:      appointment.Status,
			Actual:        domain.AppointmentStatus(current),
		}
	}

	appointment.Version = expectedVersion + 1
	return nil
}

// ListByDonor returns all appointments belonging to a donor, newest first.
func (r *AppointmentRepository) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*domain.Appointment, error) {
	query := `
		SELECT id, donor_id, event_id, status, scheduled_at,
			   staff_note, deferral_reason, deferral_advice,
			   donated_volume_ml, blood_type, eligible_again_at,
			   created_at, updated_at, version
		FROM appointments
		WHERE donor_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	defer rows.Close()

	var result []*domain.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		result = append(result, appointment)
	}

	return result, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var appointment domain.Appointment
	var status, bloodType string
	var eligibleAgain *time.Time

	err := row.Scan(
		&appointment.ID,
		&appointment.DonorID,
		&appointment.EventID,
		&status,
		&appointment.ScheduledAt,
		&appointment.StaffNote,
		&appointment.DeferralReason,
		&appointment.DeferralAdvice,
		&appointment.DonatedVolumeML,
		&bloodType,
		&eligibleAgain,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
		&appointment.Version,
	)
	if err != nil {
		return nil, err
	}

	appointment.Status = domain.AppointmentStatus(status)
	appointment.BloodType = domain.BloodType(bloodType)
	appointment.EligibleAgainAt = eligibleAgain
	return &appointment, nil
}
