package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

// donationRecoveryInterval is the advisory wait before a whole-blood donor
// may donate again, applied when a donation is recorded.
const donationRecoveryInterval = 84 * 24 * time.Hour

// reachable is the appointment state graph. A transition may only target a
// state listed for the current one; everything else is an InvalidTransition.
var reachable = map[domain.AppointmentStatus][]domain.AppointmentStatus{
	domain.StatusRegistered:    {domain.StatusCancelled},
	domain.StatusPendingReview: {domain.StatusPendingReview, domain.StatusEligible, domain.StatusIneligible, domain.StatusCancelled},
	domain.StatusEligible:      {domain.StatusCheckedIn, domain.StatusCancelled},
	domain.StatusCheckedIn:     {domain.StatusDonated, domain.StatusDeferred},
	domain.StatusIneligible:    {},
	domain.StatusDonated:       {},
	domain.StatusDeferred:      {},
	domain.StatusCancelled:     {},
}

// AppointmentLifecycle is the state machine governing an appointment from
// creation to terminal state. Every transition is a compare-and-set: the
// caller supplies the status it last read, and the transition fails with a
// ConflictError when the appointment has since moved on. Date-sensitive
// transitions take the current time explicitly so behavior is deterministic
// under test.
type AppointmentLifecycle struct {
	logger *logrus.Logger
}

// NewAppointmentLifecycle creates a new appointment lifecycle engine.
func NewAppointmentLifecycle(logger *logrus.Logger) *AppointmentLifecycle {
	return &AppointmentLifecycle{logger: logger}
}

// Create builds a new appointment from an eligibility verdict. Eligible
// verdicts start at Registered, NeedsStaffReview at PendingReview. Passing an
// Ineligible verdict is caller misuse: the registration flow must surface the
// verdict instead of creating an appointment.
func (l *AppointmentLifecycle) Create(verdict *domain.EligibilityVerdict, donorID, eventID uuid.UUID, scheduledAt, now time.Time) (*domain.Appointment, error) {
	if verdict == nil || !verdict.Outcome.IsValid() {
		return nil, domain.NewValidationError("verdict", "a valid eligibility verdict is required", verdict)
	}
	if verdict.Outcome == domain.OutcomeIneligible {
		return nil, domain.NewValidationError("verdict", "an ineligible verdict cannot create an appointment", verdict.Reason)
	}

	status := domain.StatusRegistered
	if verdict.Outcome == domain.OutcomeNeedsStaffReview {
		status = domain.StatusPendingReview
	}

	appointment := &domain.Appointment{
		ID:          uuid.New(),
		DonorID:     donorID,
		EventID:     eventID,
		Status:      status,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}

	l.logger.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"donor_id":       donorID,
		"event_id":       eventID,
		"status":         status.String(),
	}).Info("Appointment created")

	return appointment, nil
}

// Decide records a staff decision on an appointment awaiting review. The
// decision must be Eligible, Ineligible, or PendingReview; re-affirming
// PendingReview is a permitted no-op used in correction workflows.
func (l *AppointmentLifecycle) Decide(appointment *domain.Appointment, expected, decision domain.AppointmentStatus, staffNote string, now time.Time) error {
	switch decision {
	case domain.StatusEligible, domain.StatusIneligible, domain.StatusPendingReview:
	default:
		return domain.NewValidationError("decision", "staff decision must be ELIGIBLE, INELIGIBLE, or PENDING_REVIEW", string(decision))
	}

	if err := l.transition(appointment, expected, domain.StatusPendingReview, decision, now); err != nil {
		return err
	}
	if staffNote != "" {
		appointment.StaffNote = staffNote
	}
	return nil
}

// CheckIn marks the donor as physically present. Permitted only from
// Eligible and only on the event's calendar date; early and late check-ins
// are invalid transitions, not conflicts.
func (l *AppointmentLifecycle) CheckIn(appointment *domain.Appointment, expected domain.AppointmentStatus, event *domain.DonationEvent, now time.Time) error {
	if event == nil {
		return domain.NewValidationError("event", "donation event is required for check-in", nil)
	}
	if err := l.guard(appointment, expected, domain.StatusCheckedIn); err != nil {
		return err
	}
	if !event.IsOnDay(now) {
		return &domain.InvalidTransitionError{
			Current:   appointment.Status,
			Attempted: domain.StatusCheckedIn,
			Reason:    "check-in is only permitted on the event day",
		}
	}
	l.apply(appointment, domain.StatusCheckedIn, now)
	return nil
}

// RecordDonation records the draw outcome for a checked-in donor. When the
// donor can donate the appointment completes as Donated with the recorded
// volume and blood type; otherwise it moves to Deferred carrying the reason.
func (l *AppointmentLifecycle) RecordDonation(appointment *domain.Appointment, expected domain.AppointmentStatus, volumeML int, bloodType domain.BloodType, canDonate bool, deferralReason string, now time.Time) error {
	if !canDonate {
		return l.Defer(appointment, expected, deferralReason, "identified during donation attempt", now)
	}

	if volumeML <= 0 {
		return domain.NewValidationError("volume_ml", "donated volume must be positive", volumeML)
	}
	if !bloodType.IsValid() {
		return domain.NewValidationError("blood_type", "unknown blood type code", string(bloodType))
	}

	if err := l.transition(appointment, expected, domain.StatusCheckedIn, domain.StatusDonated, now); err != nil {
		return err
	}

	eligibleAgain := now.Add(donationRecoveryInterval)
	appointment.DonatedVolumeML = volumeML
	appointment.BloodType = bloodType
	appointment.EligibleAgainAt = &eligibleAgain

	l.logger.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"volume_ml":      volumeML,
		"blood_type":     bloodType.String(),
	}).Info("Donation recorded")

	return nil
}

// Defer moves a checked-in donor to Deferred before any draw occurs, for
// example when vitals are out of range. The advisory re-eligibility date is
// the standard recovery interval unless staff overrides it later.
func (l *AppointmentLifecycle) Defer(appointment *domain.Appointment, expected domain.AppointmentStatus, reasonCode, note string, now time.Time) error {
	if reasonCode == "" {
		return domain.NewValidationError("reason", "a deferral reason is required", nil)
	}

	if err := l.transition(appointment, expected, domain.StatusCheckedIn, domain.StatusDeferred, now); err != nil {
		return err
	}

	eligibleAgain := now.Add(donationRecoveryInterval)
	appointment.DeferralReason = reasonCode
	appointment.DeferralAdvice = note
	appointment.EligibleAgainAt = &eligibleAgain

	l.logger.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"reason":         reasonCode,
	}).Info("Appointment deferred")

	return nil
}

// Cancel lets the donor withdraw. Permitted from Registered, PendingReview,
// and Eligible; once checked in or in a terminal state the appointment can no
// longer be cancelled.
func (l *AppointmentLifecycle) Cancel(appointment *domain.Appointment, expected domain.AppointmentStatus, now time.Time) error {
	if err := l.check(appointment, expected); err != nil {
		return err
	}
	if !appointment.Status.AllowsDonorCancel() {
		return &domain.InvalidTransitionError{
			Current:   appointment.Status,
			Attempted: domain.StatusCancelled,
		}
	}
	l.apply(appointment, domain.StatusCancelled, now)
	return nil
}

// CanReregister reports whether a fresh registration may be created after
// this appointment. Re-registration is permitted from Cancelled, and from
// Deferred once the advisory re-eligibility date has passed, and only for a
// still-upcoming event. The old appointment is never mutated; the caller runs
// the full create path to produce a new one.
func (l *AppointmentLifecycle) CanReregister(appointment *domain.Appointment, event *domain.DonationEvent, now time.Time) error {
	switch appointment.Status {
	case domain.StatusCancelled:
	case domain.StatusDeferred:
		if appointment.EligibleAgainAt != nil && now.Before(*appointment.EligibleAgainAt) {
			return &domain.InvalidTransitionError{
				Current:   appointment.Status,
				Attempted: domain.StatusRegistered,
				Reason:    "deferral period has not elapsed",
			}
		}
	default:
		return &domain.InvalidTransitionError{
			Current:   appointment.Status,
			Attempted: domain.StatusRegistered,
			Reason:    "re-registration requires a cancelled or deferred appointment",
		}
	}

	if event == nil {
		return domain.NewValidationError("event", "target event is required", nil)
	}
	if !event.IsUpcoming(now) {
		return &domain.InvalidTransitionError{
			Current:   appointment.Status,
			Attempted: domain.StatusRegistered,
			Reason:    "target event is no longer upcoming",
		}
	}
	return nil
}

// check enforces the compare-and-set precondition against the expected
// status supplied by the caller.
func (l *AppointmentLifecycle) check(appointment *domain.Appointment, expected domain.AppointmentStatus) error {
	if appointment == nil {
		return domain.NewValidationError("appointment", "appointment is required", nil)
	}
	if !expected.IsValid() {
		return domain.NewValidationError("expected", "unknown expected status", string(expected))
	}
	if appointment.Status != expected {
		return &domain.ConflictError{
			AppointmentID: appointment.ID,
			Expected:      expected,
			Actual:        appointment.Status,
		}
	}
	return nil
}

// guard combines the CAS precondition with the reachability check for the
// attempted target state.
func (l *AppointmentLifecycle) guard(appointment *domain.Appointment, expected, target domain.AppointmentStatus) error {
	if err := l.check(appointment, expected); err != nil {
		return err
	}
	for _, next := range reachable[appointment.Status] {
		if next == target {
			return nil
		}
	}
	return &domain.InvalidTransitionError{
		Current:   appointment.Status,
		Attempted: target,
	}
}

// transition runs the full CAS + reachability + required-source check and
// applies the target state.
func (l *AppointmentLifecycle) transition(appointment *domain.Appointment, expected, from, target domain.AppointmentStatus, now time.Time) error {
	if err := l.check(appointment, expected); err != nil {
		return err
	}
	if appointment.Status != from {
		return &domain.InvalidTransitionError{
			Current:   appointment.Status,
			Attempted: target,
		}
	}
	for _, next := range reachable[appointment.Status] {
		if next == target {
			l.apply(appointment, target, now)
			return nil
		}
	}
	return &domain.InvalidTransitionError{
		Current:   appointment.Status,
		Attempted: target,
	}
}

func (l *AppointmentLifecycle) apply(appointment *domain.Appointment, target domain.AppointmentStatus, now time.Time) {
	previous := appointment.Status
	appointment.Status = target
	appointment.UpdatedAt = now

	l.logger.WithFields(logrus.Fields{
		"appointment_id": appointment.ID,
		"from":           previous.String(),
		"to":             target.String(),
	}).Info("Appointment transitioned")
}
