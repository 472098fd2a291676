package donationlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/blood-donation-support-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL donation log store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL donation log store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates the donation record for an appointment.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()

	// Use upsert (INSERT ... ON CONFLICT)
	query := `
		INSERT INTO donations (
			appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id) DO UPDATE SET
			donor_id = EXCLUDED.donor_id,
			event_id = EXCLUDED.event_id,
			blood_type = EXCLUDED.blood_type,
			volume_ml = EXCLUDED.volume_ml,
			donated_at = EXCLUDED.donated_at,
			notes = EXCLUDED.notes
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		record.AppointmentID,
		record.DonorID,
		record.EventID,
		string(record.BloodType),
		record.VolumeML,
		record.DonatedAt,
		record.Notes,
		now,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save donation record: %w", err)
	}

	return nil
}

// GetByAppointment retrieves the donation record for an appointment.
func (s *PostgresStore) GetByAppointment(ctx context.Context, appointmentID string) (*Record, error) {
	query := `
		SELECT id, appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		FROM donations
		WHERE appointment_id = $1
		LIMIT 1
	`

	rec := &Record{}
	var bloodType string

	err := s.db.QueryRowContext(ctx, query, appointmentID).Scan(
		&rec.ID, &rec.AppointmentID, &rec.DonorID, &rec.EventID,
		&bloodType, &rec.VolumeML, &rec.DonatedAt, &rec.Notes, &rec.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donation record: %w", err)
	}

	rec.BloodType = domain.BloodType(bloodType)
	return rec, nil
}

// ListByDonor returns a donor's donation history, newest first.
func (s *PostgresStore) ListByDonor(ctx context.Context, donorID string) ([]*Record, error) {
	query := `
		SELECT id, appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		FROM donations
		WHERE donor_id = $1
		ORDER BY donated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// List returns donation records with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		FROM donations
		ORDER BY donated_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Count returns the total number of donation records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM donations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count donations: %w", err)
	}
	return count, nil
}

// pgMaxExportLimit is the maximum number of entries to export at once.
const pgMaxExportLimit = 1000000

// ExportJSON exports all donation records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, pgMaxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list donations: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports donation records from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		// Check if exists
		existing, err := s.GetByAppointment(ctx, rec.AppointmentID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		// Import
		if err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
