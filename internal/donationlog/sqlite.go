package donationlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blood-donation-support-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite donation log store. It creates the
// database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record struct.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var bloodType string

	err := s.Scan(
		&rec.ID, &rec.AppointmentID, &rec.DonorID, &rec.EventID,
		&bloodType, &rec.VolumeML, &rec.DonatedAt, &rec.Notes, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.BloodType = domain.BloodType(bloodType)
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS donations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		appointment_id TEXT NOT NULL,
		donor_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		blood_type TEXT NOT NULL,
		volume_ml INTEGER NOT NULL,
		donated_at DATETIME NOT NULL,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(appointment_id)
	);

	CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations(donor_id);
	CREATE INDEX IF NOT EXISTS idx_donations_blood_type ON donations(blood_type);
	CREATE INDEX IF NOT EXISTS idx_donations_donated_at ON donations(donated_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates the donation record for an appointment.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()

	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM donations WHERE appointment_id = ?",
		record.AppointmentID,
	).Scan(&existingID)

	if err == nil {
		record.ID = existingID

		_, err = s.db.ExecContext(ctx, `
			UPDATE donations SET
				donor_id = ?,
				event_id = ?,
				blood_type = ?,
				volume_ml = ?,
				donated_at = ?,
				notes = ?
			WHERE id = ?
		`,
			record.DonorID,
			record.EventID,
			string(record.BloodType),
			record.VolumeML,
			record.DonatedAt,
			record.Notes,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	record.CreatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO donations (
			appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.AppointmentID,
		record.DonorID,
		record.EventID,
		string(record.BloodType),
		record.VolumeML,
		record.DonatedAt,
		record.Notes,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	record.ID = id

	return nil
}

// GetByAppointment retrieves the donation record for an appointment.
func (s *SQLiteStore) GetByAppointment(ctx context.Context, appointmentID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		FROM donations
		WHERE appointment_id = ?
		LIMIT 1
	`, appointmentID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// ListByDonor returns a donor's donation history, newest first.
func (s *SQLiteStore) ListByDonor(ctx context.Context, donorID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		FROM donations
		WHERE donor_id = ?
		ORDER BY donated_at DESC
	`, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// List returns donation records with pagination, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, appointment_id, donor_id, event_id,
			blood_type, volume_ml, donated_at, notes, created_at
		FROM donations
		ORDER BY donated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of donation records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM donations").Scan(&count)
	return count, err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all donation records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		existing, err := s.GetByAppointment(ctx, rec.AppointmentID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
