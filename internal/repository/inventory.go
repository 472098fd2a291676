package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

// InventoryRepository reads and writes stored blood batches.
type InventoryRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *pgxpool.Pool, logger *logrus.Logger) *InventoryRepository {
	return &InventoryRepository{
		db:  db,
		log: logger,
	}
}

// AddRecord inserts a new blood batch.
func (r *InventoryRepository) AddRecord(ctx context.Context, record *domain.InventoryRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO inventory_records (id, blood_type, volume_ml, entered_at, status)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		record.ID,
		string(record.BloodType),
		record.VolumeML,
		record.EnteredAt,
		string(record.Status),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"record_id":  record.ID,
			"blood_type": record.BloodType.String(),
			"error":      err,
		}).Error("Failed to add inventory record")
		return fmt.Errorf("adding inventory record: %w", err)
	}

	return nil
}

// Snapshot returns all batches of the given blood type as stored right now,
// regardless of stock status. Filtering to usable stock is the sufficiency
// calculator's concern.
func (r *InventoryRepository) Snapshot(ctx context.Context, bloodType domain.BloodType) ([]domain.InventoryRecord, error) {
	query := `
		SELECT id, blood_type, volume_ml, entered_at, status
		FROM inventory_records
		WHERE blood_type = $1
		ORDER BY entered_at ASC`

	rows, err := r.db.Query(ctx, query, string(bloodType))
	if err != nil {
		return nil, fmt.Errorf("snapshotting inventory: %w", err)
	}
	defer rows.Close()

	var result []domain.InventoryRecord
	for rows.Next() {
		var record domain.InventoryRecord
		var recordType, status string

		err := rows.Scan(&record.ID, &recordType, &record.VolumeML, &record.EnteredAt, &status)
		if err != nil {
			return nil, fmt.Errorf("scanning inventory record: %w", err)
		}

		record.BloodType = domain.BloodType(recordType)
		record.Status = domain.StockStatus(status)
		result = append(result, record)
	}

	return result, rows.Err()
}

// MarkStatus updates the stock status of a batch, for example to Depleted
// after an authorized transfer drains it.
func (r *InventoryRepository) MarkStatus(ctx context.Context, id string, status domain.StockStatus) error {
	if !status.IsValid() {
		return domain.NewValidationError("status", "unknown stock status", string(status))
	}

	tag, err := r.db.Exec(ctx,
		"UPDATE inventory_records SET status = $2 WHERE id = $1",
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("marking inventory status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory record not found: %w", domain.ErrNotFound)
	}
	return nil
}
