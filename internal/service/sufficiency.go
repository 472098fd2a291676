package service

import (
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

// BloodSufficiencyCalculator compares a required blood volume against
// available inventory of a given type. It has no side effects and may be
// called speculatively at any time; decrementing stock after an authorized
// transfer is the inventory owner's concern.
type BloodSufficiencyCalculator struct {
	logger *logrus.Logger
}

// NewBloodSufficiencyCalculator creates a new sufficiency calculator.
func NewBloodSufficiencyCalculator(logger *logrus.Logger) *BloodSufficiencyCalculator {
	return &BloodSufficiencyCalculator{logger: logger}
}

// Compare filters the inventory snapshot to in-stock batches of the requested
// blood type and sums their volumes. Sufficiency is non-strict: exactly
// enough counts as sufficient, and a zero requirement is vacuously
// sufficient. The matched batches are returned for auditability.
func (c *BloodSufficiencyCalculator) Compare(requiredVolumeML int, bloodType domain.BloodType, records []domain.InventoryRecord) (*domain.SufficiencyVerdict, error) {
	if requiredVolumeML < 0 {
		return nil, domain.NewValidationError("required_volume_ml", "required volume must not be negative", requiredVolumeML)
	}
	if !bloodType.IsValid() {
		return nil, domain.NewValidationError("blood_type", "unknown blood type code", string(bloodType))
	}

	available := 0
	var matched []domain.InventoryRecord
	for _, record := range records {
		if record.VolumeML < 0 {
			return nil, domain.NewValidationError("volume_ml", "inventory record volume must not be negative", record.VolumeML)
		}
		if record.BloodType != bloodType || record.Status != domain.StockInStock {
			continue
		}
		available += record.VolumeML
		matched = append(matched, record)
	}

	verdict := &domain.SufficiencyVerdict{
		BloodType:         bloodType,
		RequiredVolumeML:  requiredVolumeML,
		AvailableVolumeML: available,
		IsSufficient:      available >= requiredVolumeML,
		MatchedRecords:    matched,
	}
	verdict.Status = domain.SufficiencyInsufficient
	if verdict.IsSufficient {
		verdict.Status = domain.SufficiencyEnough
	}

	c.logger.WithFields(logrus.Fields(verdict.LogFields())).Info("Sufficiency comparison completed")

	return verdict, nil
}
