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

// EventRepository handles donation event persistence.
type EventRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *pgxpool.Pool, logger *logrus.Logger) *EventRepository {
	return &EventRepository{
		db:  db,
		log: logger,
	}
}

// CreateEvent inserts a new donation event.
func (r *EventRepository) CreateEvent(ctx context.Context, event *domain.DonationEvent) error {
	query := `
		INSERT INTO donation_events (id, title, location, event_date, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.Title,
		event.Location,
		event.Date,
		event.Capacity,
		event.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"event_id": event.ID,
			"error":    err,
		}).Error("Failed to create donation event")
		return fmt.Errorf("creating donation event: %w", err)
	}

	return nil
}

// GetEvent retrieves a donation event by its ID.
func (r *EventRepository) GetEvent(ctx context.Context, id uuid.UUID) (*domain.DonationEvent, error) {
	query := `
		SELECT id, title, location, event_date, capacity, created_at
		FROM donation_events
		WHERE id = $1`

	var event domain.DonationEvent
	err := r.db.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Location,
		&event.Date,
		&event.Capacity,
		&event.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("donation event not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting donation event: %w", err)
	}

	return &event, nil
}

// ListUpcoming returns events whose date is still in the future, soonest
// first.
func (r *EventRepository) ListUpcoming(ctx context.Context) ([]*domain.DonationEvent, error) {
	query := `
		SELECT id, title, location, event_date, capacity, created_at
		FROM donation_events
		WHERE event_date > NOW()
		ORDER BY event_date ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing donation events: %w", err)
	}
	defer rows.Close()

	var result []*domain.DonationEvent
	for rows.Next() {
		var event domain.DonationEvent
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Location,
			&event.Date,
			&event.Capacity,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning donation event: %w", err)
		}
		result = append(result, &event)
	}

	return result, rows.Err()
}
