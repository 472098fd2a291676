package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

// EmergencyRepository handles emergency blood request persistence.
type EmergencyRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewEmergencyRepository creates a new emergency request repository.
func NewEmergencyRepository(db *pgxpool.Pool, logger *logrus.Logger) *EmergencyRepository {
	return &EmergencyRepository{
		db:  db,
		log: logger,
	}
}

// CreateRequest inserts a new emergency request.
func (r *EmergencyRepository) CreateRequest(ctx context.Context, request *domain.EmergencyRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO emergency_requests (
			id, hospital, blood_type, required_volume_ml, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		request.ID,
		request.Hospital,
		string(request.BloodType),
		request.RequiredVolumeML,
		string(request.Status),
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": request.ID,
			"error":      err,
		}).Error("Failed to create emergency request")
		return fmt.Errorf("creating emergency request: %w", err)
	}

	return nil
}

// GetRequest retrieves an emergency request by its ID.
func (r *EmergencyRepository) GetRequest(ctx context.Context, id uuid.UUID) (*domain.EmergencyRequest, error) {
	query := `
		SELECT id, hospital, blood_type, required_volume_ml, status, created_at, updated_at
		FROM emergency_requests
		WHERE id = $1`

	var request domain.EmergencyRequest
	var bloodType, status string

	err := r.db.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.Hospital,
		&bloodType,
		&request.RequiredVolumeML,
		&status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("emergency request not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting emergency request: %w", err)
	}

	request.BloodType = domain.BloodType(bloodType)
	request.Status = domain.EmergencyStatus(status)
	return &request, nil
}

// SaveRequest writes back a mutated emergency request.
func (r *EmergencyRepository) SaveRequest(ctx context.Context, request *domain.EmergencyRequest) error {
	query := `
		UPDATE emergency_requests SET
			hospital = $2,
			blood_type = $3,
			required_volume_ml = $4,
			status = $5,
			updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		request.ID,
		request.Hospital,
		string(request.BloodType),
		request.RequiredVolumeML,
		string(request.Status),
		request.UpdatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": request.ID,
			"error":      err,
		}).Error("Failed to save emergency request")
		return fmt.Errorf("saving emergency request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("emergency request not found: %w", domain.ErrNotFound)
	}

	return nil
}
