package domain

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord is one batch of stored blood.
type InventoryRecord struct {
	ID        uuid.UUID   `json:"id"`
	BloodType BloodType   `json:"blood_type"`
	VolumeML  int         `json:"volume_ml"`
	EnteredAt time.Time   `json:"entered_at"`
	Status    StockStatus `json:"status"`
}

// Validate ensures the inventory record is internally consistent.
func (r *InventoryRecord) Validate() error {
	if !r.BloodType.IsValid() {
		return NewValidationError("blood_type", "unknown blood type code", string(r.BloodType))
	}
	if r.VolumeML < 0 {
		return NewValidationError("volume_ml", "volume must not be negative", r.VolumeML)
	}
	if !r.Status.IsValid() {
		return NewValidationError("status", "unknown stock status", string(r.Status))
	}
	return nil
}

// Sufficiency status labels. Display-only; the IsSufficient boolean is
// authoritative.
const (
	SufficiencyEnough       = "enough"
	SufficiencyInsufficient = "insufficient"
)

// SufficiencyVerdict is the computed, never stored, result of comparing a
// required blood volume against in-stock inventory of a matching type.
// MatchedRecords lists the batches that contributed to AvailableVolumeML for
// auditability.
type SufficiencyVerdict struct {
	BloodType         BloodType         `json:"blood_type"`
	RequiredVolumeML  int               `json:"required_volume_ml"`
	AvailableVolumeML int               `json:"available_volume_ml"`
	IsSufficient      bool              `json:"is_sufficient"`
	Status            string            `json:"status"`
	MatchedRecords    []InventoryRecord `json:"matched_records"`
}

// LogFields returns structured logging fields for audit trails.
func (v *SufficiencyVerdict) LogFields() map[string]any {
	return map[string]any{
		"blood_type":    string(v.BloodType),
		"required_ml":   v.RequiredVolumeML,
		"available_ml":  v.AvailableVolumeML,
		"is_sufficient": v.IsSufficient,
		"matched_count": len(v.MatchedRecords),
	}
}
