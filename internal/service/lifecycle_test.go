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

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func eligibleVerdict() *domain.EligibilityVerdict {
	return &domain.EligibilityVerdict{Outcome: domain.OutcomeEligible}
}

func reviewVerdict() *domain.EligibilityVerdict {
	return &domain.EligibilityVerdict{
		Outcome:             domain.OutcomeNeedsStaffReview,
		RequiresStaffReview: true,
	}
}

func testEvent(date time.Time) *domain.DonationEvent {
	return &domain.DonationEvent{
		ID:       uuid.New(),
		Title:    "Community blood drive",
		Location: "District 1 community hall",
		Date:     date,
		Capacity: 120,
	}
}

// appointmentAt builds an appointment already in the given status.
func appointmentAt(status domain.AppointmentStatus) *domain.Appointment {
	return &domain.Appointment{
		ID:          uuid.New(),
		DonorID:     uuid.New(),
		EventID:     uuid.New(),
		Status:      status,
		ScheduledAt: testNow,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
		Version:     1,
	}
}

func TestLifecycle_Create(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())
	donorID, eventID := uuid.New(), uuid.New()

	t.Run("eligible verdict starts at Registered", func(t *testing.T) {
		appt, err := lifecycle.Create(eligibleVerdict(), donorID, eventID, testNow, testNow)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRegistered, appt.Status)
		assert.Equal(t, int64(1), appt.Version)
		assert.NotEqual(t, uuid.Nil, appt.ID)
	})

	t.Run("review verdict starts at PendingReview", func(t *testing.T) {
		appt, err := lifecycle.Create(reviewVerdict(), donorID, eventID, testNow, testNow)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPendingReview, appt.Status)
	})

	t.Run("ineligible verdict is caller misuse", func(t *testing.T) {
		verdict := &domain.EligibilityVerdict{Outcome: domain.OutcomeIneligible}
		appt, err := lifecycle.Create(verdict, donorID, eventID, testNow, testNow)

		require.Error(t, err)
		assert.Nil(t, appt)
		var validation *domain.ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("nil verdict is caller misuse", func(t *testing.T) {
		appt, err := lifecycle.Create(nil, donorID, eventID, testNow, testNow)
		require.Error(t, err)
		assert.Nil(t, appt)
	})
}

func TestLifecycle_Decide(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())

	tests := []struct {
		name     string
		decision domain.AppointmentStatus
		want     domain.AppointmentStatus
	}{
		{"approve", domain.StatusEligible, domain.StatusEligible},
		{"reject", domain.StatusIneligible, domain.StatusIneligible},
		{"re-affirm pending", domain.StatusPendingReview, domain.StatusPendingReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appt := appointmentAt(domain.StatusPendingReview)

			err := lifecycle.Decide(appt, domain.StatusPendingReview, tt.decision, "reviewed by staff", testNow)

			require.NoError(t, err)
			assert.Equal(t, tt.want, appt.Status)
			assert.Equal(t, "reviewed by staff", appt.StaffNote)
		})
	}

	t.Run("decision must be a review outcome", func(t *testing.T) {
		appt := appointmentAt(domain.StatusPendingReview)

		err := lifecycle.Decide(appt, domain.StatusPendingReview, domain.StatusDonated, "", testNow)

		var validation *domain.ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("only pending appointments can be decided", func(t *testing.T) {
		appt := appointmentAt(domain.StatusRegistered)

		err := lifecycle.Decide(appt, domain.StatusRegistered, domain.StatusEligible, "", testNow)

		var invalid *domain.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestLifecycle_CheckIn(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())

	t.Run("on event day", func(t *testing.T) {
		appt := appointmentAt(domain.StatusEligible)
		event := testEvent(testNow.Add(4 * time.Hour))

		err := lifecycle.CheckIn(appt, domain.StatusEligible, event, testNow)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusCheckedIn, appt.Status)
	})

	t.Run("day before event", func(t *testing.T) {
		appt := appointmentAt(domain.StatusEligible)
		event := testEvent(testNow.Add(24 * time.Hour))

		err := lifecycle.CheckIn(appt, domain.StatusEligible, event, testNow)

		var invalid *domain.InvalidTransitionError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, domain.StatusEligible, appt.Status, "failed check-in must not mutate")
	})

	t.Run("day after event", func(t *testing.T) {
		appt := appointmentAt(domain.StatusEligible)
		event := testEvent(testNow.Add(-24 * time.Hour))

		err := lifecycle.CheckIn(appt, domain.StatusEligible, event, testNow)

		var invalid *domain.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("event day respects the event time zone", func(t *testing.T) {
		zone := time.FixedZone("UTC+7", 7*60*60)
		// 18:00 UTC on March 13 is already March 14 at UTC+7.
		event := testEvent(time.Date(2026, 3, 14, 8, 0, 0, 0, zone))
		appt := appointmentAt(domain.StatusEligible)

		err := lifecycle.CheckIn(appt, domain.StatusEligible, event, time.Date(2026, 3, 13, 18, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		assert.Equal(t, domain.StatusCheckedIn, appt.Status)
	})

	t.Run("not from registered", func(t *testing.T) {
		appt := appointmentAt(domain.StatusRegistered)
		event := testEvent(testNow)

		err := lifecycle.CheckIn(appt, domain.StatusRegistered, event, testNow)

		var invalid *domain.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestLifecycle_RecordDonation(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())

	t.Run("successful donation", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCheckedIn)

		err := lifecycle.RecordDonation(appt, domain.StatusCheckedIn, 450, domain.BloodONeg, true, "", testNow)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusDonated, appt.Status)
		assert.Equal(t, 450, appt.DonatedVolumeML)
		assert.Equal(t, domain.BloodONeg, appt.BloodType)
		require.NotNil(t, appt.EligibleAgainAt)
		assert.Equal(t, testNow.Add(donationRecoveryInterval), *appt.EligibleAgainAt)
	})

	t.Run("cannot donate defers instead", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCheckedIn)

		err := lifecycle.RecordDonation(appt, domain.StatusCheckedIn, 0, "", false, "low hemoglobin", testNow)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusDeferred, appt.Status)
		assert.Equal(t, "low hemoglobin", appt.DeferralReason)
		assert.NotNil(t, appt.EligibleAgainAt)
	})

	t.Run("volume must be positive", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCheckedIn)

		err := lifecycle.RecordDonation(appt, domain.StatusCheckedIn, 0, domain.BloodONeg, true, "", testNow)

		var validation *domain.ValidationError
		assert.True(t, errors.As(err, &validation))
		assert.Equal(t, domain.StatusCheckedIn, appt.Status)
	})

	t.Run("blood type must be known", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCheckedIn)

		err := lifecycle.RecordDonation(appt, domain.StatusCheckedIn, 450, "X-", true, "", testNow)

		var validation *domain.ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("only from checked in", func(t *testing.T) {
		appt := appointmentAt(domain.StatusEligible)

		err := lifecycle.RecordDonation(appt, domain.StatusEligible, 450, domain.BloodONeg, true, "", testNow)

		var invalid *domain.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})
}

func TestLifecycle_Defer(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())

	t.Run("requires a reason", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCheckedIn)

		err := lifecycle.Defer(appt, domain.StatusCheckedIn, "", "", testNow)

		var validation *domain.ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("records reason and advisory date", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCheckedIn)

		err := lifecycle.Defer(appt, domain.StatusCheckedIn, "blood pressure out of range", "re-measure after rest", testNow)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusDeferred, appt.Status)
		assert.Equal(t, "blood pressure out of range", appt.DeferralReason)
		assert.Equal(t, "re-measure after rest", appt.DeferralAdvice)
		require.NotNil(t, appt.EligibleAgainAt)
		assert.Equal(t, testNow.Add(donationRecoveryInterval), *appt.EligibleAgainAt)
	})
}

func TestLifecycle_Cancel(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())

	cancellable := []domain.AppointmentStatus{
		domain.StatusRegistered, domain.StatusPendingReview, domain.StatusEligible,
	}
	for _, status := range cancellable {
		t.Run("from "+status.String(), func(t *testing.T) {
			appt := appointmentAt(status)

			err := lifecycle.Cancel(appt, status, testNow)

			require.NoError(t, err)
			assert.Equal(t, domain.StatusCancelled, appt.Status)
		})
	}

	blocked := []domain.AppointmentStatus{
		domain.StatusCheckedIn, domain.StatusDonated, domain.StatusDeferred,
		domain.StatusIneligible, domain.StatusCancelled,
	}
	for _, status := range blocked {
		t.Run("not from "+status.String(), func(t *testing.T) {
			appt := appointmentAt(status)

			err := lifecycle.Cancel(appt, status, testNow)

			var invalid *domain.InvalidTransitionError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestLifecycle_ConcurrentModification(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())

	// Staff decided while the donor's cancel request was in flight: the
	// caller's expected status no longer matches.
	appt := appointmentAt(domain.StatusEligible)

	err := lifecycle.Cancel(appt, domain.StatusPendingReview, testNow)

	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, domain.StatusPendingReview, conflict.Expected)
	assert.Equal(t, domain.StatusEligible, conflict.Actual)
	assert.Equal(t, domain.StatusEligible, appt.Status, "conflict must not mutate")
}

func TestLifecycle_CanReregister(t *testing.T) {
	lifecycle := NewAppointmentLifecycle(testLogger())
	upcoming := testEvent(testNow.Add(14 * 24 * time.Hour))
	past := testEvent(testNow.Add(-24 * time.Hour))

	t.Run("from cancelled", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCancelled)
		assert.NoError(t, lifecycle.CanReregister(appt, upcoming, testNow))
	})

	t.Run("from deferred after the advisory date", func(t *testing.T) {
		appt := appointmentAt(domain.StatusDeferred)
		eligibleAgain := testNow.Add(-time.Hour)
		appt.EligibleAgainAt = &eligibleAgain

		assert.NoError(t, lifecycle.CanReregister(appt, upcoming, testNow))
	})

	t.Run("from deferred before the advisory date", func(t *testing.T) {
		appt := appointmentAt(domain.StatusDeferred)
		eligibleAgain := testNow.Add(30 * 24 * time.Hour)
		appt.EligibleAgainAt = &eligibleAgain

		err := lifecycle.CanReregister(appt, upcoming, testNow)

		var invalid *domain.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("not from donated", func(t *testing.T) {
		appt := appointmentAt(domain.StatusDonated)

		err := lifecycle.CanReregister(appt, upcoming, testNow)

		var invalid *domain.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("target event must be upcoming", func(t *testing.T) {
		appt := appointmentAt(domain.StatusCancelled)

		err := lifecycle.CanReregister(appt, past, testNow)

		var invalid *domain.InvalidTransitionError
		assert.True(t, errors.As(err, &invalid))
	})
}
