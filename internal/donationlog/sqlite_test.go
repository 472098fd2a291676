package donationlog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blood-donation-support-server/internal/domain"
)

func TestNewSQLiteStore(t *testing.T) {
	// Create temp directory
	tmpDir, err := os.MkdirTemp("", "donationlog-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	// Act
	store, err := NewSQLiteStore(dbPath)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Verify database file was created
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	record := &Record{
		AppointmentID: "b0a9f1a2-1111-4ccc-9999-000000000001",
		DonorID:       "donor-1",
		EventID:       "event-1",
		BloodType:     domain.BloodOPos,
		VolumeML:      450,
		DonatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Notes:         "smooth draw",
	}

	// Act
	err := store.Save(ctx, record)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, record.ID, "ID should be assigned")
	assert.False(t, record.CreatedAt.IsZero(), "CreatedAt should be set")
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Save initial record
	record := &Record{
		AppointmentID: "b0a9f1a2-1111-4ccc-9999-000000000001",
		DonorID:       "donor-1",
		EventID:       "event-1",
		BloodType:     domain.BloodOPos,
		VolumeML:      350,
		DonatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	err := store.Save(ctx, record)
	require.NoError(t, err)
	originalID := record.ID

	// Update with same appointment
	record.VolumeML = 450
	record.Notes = "corrected volume after scale recalibration"

	err = store.Save(ctx, record)
	require.NoError(t, err)

	// Assert - should update, not create new
	assert.Equal(t, originalID, record.ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	retrieved, err := store.GetByAppointment(ctx, record.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, 450, retrieved.VolumeML)
	assert.Equal(t, "corrected volume after scale recalibration", retrieved.Notes)
}

func TestSQLiteStore_GetByAppointment_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	retrieved, err := store.GetByAppointment(ctx, "does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSQLiteStore_ListByDonor(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	records := []*Record{
		{AppointmentID: "appt-1", DonorID: "donor-1", EventID: "event-1", BloodType: domain.BloodONeg, VolumeML: 450, DonatedAt: base},
		{AppointmentID: "appt-2", DonorID: "donor-1", EventID: "event-2", BloodType: domain.BloodONeg, VolumeML: 350, DonatedAt: base.Add(90 * 24 * time.Hour)},
		{AppointmentID: "appt-3", DonorID: "donor-2", EventID: "event-2", BloodType: domain.BloodAPos, VolumeML: 450, DonatedAt: base},
	}
	for _, rec := range records {
		require.NoError(t, store.Save(ctx, rec))
	}

	// Act
	history, err := store.ListByDonor(ctx, "donor-1")

	// Assert - newest first, other donors excluded
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "appt-2", history[0].AppointmentID)
	assert.Equal(t, "appt-1", history[1].AppointmentID)
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &Record{
			AppointmentID: fmt.Sprintf("appt-%d", i),
			DonorID:       "donor-1",
			EventID:       "event-1",
			BloodType:     domain.BloodBPos,
			VolumeML:      450,
			DonatedAt:     base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.Save(ctx, rec))
	}

	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	assert.NotEqual(t, page1[0].AppointmentID, page2[0].AppointmentID)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	record := &Record{
		AppointmentID: "appt-export",
		DonorID:       "donor-9",
		EventID:       "event-1",
		BloodType:     domain.BloodABNeg,
		VolumeML:      450,
		DonatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Notes:         "first-time donor",
	}
	err := store.Save(ctx, record)
	require.NoError(t, err)

	// Act
	var buf bytes.Buffer
	err = store.ExportJSON(ctx, &buf)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "appt-export")
	assert.Contains(t, buf.String(), "first-time donor")
	assert.Contains(t, buf.String(), `"version"`)
	assert.Contains(t, buf.String(), `"count"`)
}

func TestSQLiteStore_ImportJSON_SkipDuplicates(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Save existing record
	existing := &Record{
		AppointmentID: "appt-1",
		DonorID:       "donor-1",
		EventID:       "event-1",
		BloodType:     domain.BloodOPos,
		VolumeML:      450,
		DonatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	err := store.Save(ctx, existing)
	require.NoError(t, err)

	// Import with duplicate
	jsonData := `{
		"version": "1.0",
		"count": 2,
		"records": [
			{
				"appointment_id": "appt-1",
				"donor_id": "donor-1",
				"event_id": "event-1",
				"blood_type": "O+",
				"volume_ml": 250,
				"donated_at": "2026-03-14T09:30:00Z"
			},
			{
				"appointment_id": "appt-2",
				"donor_id": "donor-2",
				"event_id": "event-1",
				"blood_type": "A-",
				"volume_ml": 350,
				"donated_at": "2026-03-14T10:00:00Z"
			}
		]
	}`

	// Act
	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(jsonData)))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	// Verify existing wasn't overwritten
	appt1, _ := store.GetByAppointment(ctx, "appt-1")
	assert.Equal(t, 450, appt1.VolumeML, "Existing should not be overwritten")

	appt2, err := store.GetByAppointment(ctx, "appt-2")
	require.NoError(t, err)
	assert.Equal(t, domain.BloodANeg, appt2.BloodType)
}

// Helper function to create a test store
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "donationlog-test-*")
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	return store
}
