package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blood-donation-support-server/internal/domain"
)

func inventoryRecord(bloodType domain.BloodType, volumeML int, status domain.StockStatus) domain.InventoryRecord {
	return domain.InventoryRecord{
		ID:        uuid.New(),
		BloodType: bloodType,
		VolumeML:  volumeML,
		EnteredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:    status,
	}
}

func TestCompare(t *testing.T) {
	calculator := NewBloodSufficiencyCalculator(testLogger())

	tests := []struct {
		name           string
		required       int
		bloodType      domain.BloodType
		records        []domain.InventoryRecord
		wantAvailable  int
		wantSufficient bool
	}{
		{
			name:      "enough stock",
			required:  500,
			bloodType: domain.BloodONeg,
			records: []domain.InventoryRecord{
				inventoryRecord(domain.BloodONeg, 300, domain.StockInStock),
				inventoryRecord(domain.BloodONeg, 300, domain.StockInStock),
			},
			wantAvailable:  600,
			wantSufficient: true,
		},
		{
			name:      "expired stock does not count",
			required:  500,
			bloodType: domain.BloodONeg,
			records: []domain.InventoryRecord{
				inventoryRecord(domain.BloodONeg, 300, domain.StockInStock),
				inventoryRecord(domain.BloodONeg, 300, domain.StockExpired),
			},
			wantAvailable:  300,
			wantSufficient: false,
		},
		{
			name:      "other blood types do not count",
			required:  500,
			bloodType: domain.BloodONeg,
			records: []domain.InventoryRecord{
				inventoryRecord(domain.BloodONeg, 300, domain.StockInStock),
				inventoryRecord(domain.BloodOPos, 600, domain.StockInStock),
			},
			wantAvailable:  300,
			wantSufficient: false,
		},
		{
			name:      "exactly enough is sufficient",
			required:  450,
			bloodType: domain.BloodAPos,
			records: []domain.InventoryRecord{
				inventoryRecord(domain.BloodAPos, 450, domain.StockInStock),
			},
			wantAvailable:  450,
			wantSufficient: true,
		},
		{
			name:           "zero requirement is vacuously sufficient",
			required:       0,
			bloodType:      domain.BloodABNeg,
			records:        nil,
			wantAvailable:  0,
			wantSufficient: true,
		},
		{
			name:      "depleted stock does not count",
			required:  100,
			bloodType: domain.BloodBNeg,
			records: []domain.InventoryRecord{
				inventoryRecord(domain.BloodBNeg, 200, domain.StockDepleted),
			},
			wantAvailable:  0,
			wantSufficient: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := calculator.Compare(tt.required, tt.bloodType, tt.records)

			require.NoError(t, err)
			assert.Equal(t, tt.wantAvailable, verdict.AvailableVolumeML)
			assert.Equal(t, tt.wantSufficient, verdict.IsSufficient)
			assert.Equal(t, tt.required, verdict.RequiredVolumeML)
			assert.Equal(t, tt.bloodType, verdict.BloodType)

			wantStatus := domain.SufficiencyInsufficient
			if tt.wantSufficient {
				wantStatus = domain.SufficiencyEnough
			}
			assert.Equal(t, wantStatus, verdict.Status)
		})
	}
}

func TestCompare_MatchedRecordsAreReported(t *testing.T) {
	calculator := NewBloodSufficiencyCalculator(testLogger())

	matching := inventoryRecord(domain.BloodONeg, 300, domain.StockInStock)
	records := []domain.InventoryRecord{
		matching,
		inventoryRecord(domain.BloodONeg, 300, domain.StockExpired),
		inventoryRecord(domain.BloodAPos, 300, domain.StockInStock),
	}

	verdict, err := calculator.Compare(100, domain.BloodONeg, records)

	require.NoError(t, err)
	require.Len(t, verdict.MatchedRecords, 1)
	assert.Equal(t, matching.ID, verdict.MatchedRecords[0].ID)
}

func TestCompare_InputErrors(t *testing.T) {
	calculator := NewBloodSufficiencyCalculator(testLogger())

	t.Run("negative requirement", func(t *testing.T) {
		verdict, err := calculator.Compare(-1, domain.BloodONeg, nil)

		require.Error(t, err)
		assert.Nil(t, verdict)
		var validation *domain.ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("unknown blood type", func(t *testing.T) {
		verdict, err := calculator.Compare(100, "X-", nil)

		require.Error(t, err)
		assert.Nil(t, verdict)
	})

	t.Run("negative record volume", func(t *testing.T) {
		records := []domain.InventoryRecord{
			inventoryRecord(domain.BloodONeg, -10, domain.StockInStock),
		}
		verdict, err := calculator.Compare(100, domain.BloodONeg, records)

		require.Error(t, err)
		assert.Nil(t, verdict)
	})
}
