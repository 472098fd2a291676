package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
	"github.com/blood-donation-support-server/internal/donationlog"
)

// RegisterParams carries a donor's registration request: the target event
// and the completed questionnaire answers.
type RegisterParams struct {
	DonorID         uuid.UUID        `json:"donor_id"`
	EventID         uuid.UUID        `json:"event_id"`
	QuestionnaireID string           `json:"questionnaire_id"`
	Answers         domain.AnswerSet `json:"answers"`
	ScheduledAt     time.Time        `json:"scheduled_at"`
}

// RegisterResult is the outcome of a registration attempt. The verdict is
// always present; the appointment is nil when the verdict is Ineligible.
type RegisterResult struct {
	Verdict     *domain.EligibilityVerdict `json:"verdict"`
	Appointment *domain.Appointment        `json:"appointment,omitempty"`
}

// RegistrationService orchestrates the donation workflow: it evaluates
// questionnaires, drives appointment transitions through the lifecycle
// engine, persists the results, appends completed donations to the donation
// log, and emits notification events. All persistence and delivery goes
// through the narrow interfaces it is constructed with.
type RegistrationService struct {
	logger         *logrus.Logger
	evaluator      *EligibilityEvaluator
	lifecycle      *AppointmentLifecycle
	sufficiency    *BloodSufficiencyCalculator
	questionnaires domain.QuestionnaireSource
	appointments   domain.AppointmentStore
	events         domain.EventSource
	inventory      domain.InventorySource
	emergencies    domain.EmergencyRequestStore
	donations      donationlog.Store
	notifier       domain.NotificationDispatcher
	now            func() time.Time
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(
	logger *logrus.Logger,
	questionnaires domain.QuestionnaireSource,
	appointments domain.AppointmentStore,
	events domain.EventSource,
	inventory domain.InventorySource,
	emergencies domain.EmergencyRequestStore,
	donations donationlog.Store,
	notifier domain.NotificationDispatcher,
) *RegistrationService {
	return &RegistrationService{
		logger:         logger,
		evaluator:      NewEligibilityEvaluator(logger),
		lifecycle:      NewAppointmentLifecycle(logger),
		sufficiency:    NewBloodSufficiencyCalculator(logger),
		questionnaires: questionnaires,
		appointments:   appointments,
		events:         events,
		inventory:      inventory,
		emergencies:    emergencies,
		donations:      donations,
		notifier:       notifier,
		now:            time.Now,
	}
}

// Register evaluates the donor's questionnaire and, unless the verdict is
// Ineligible, creates and persists an appointment for the event. An
// Ineligible verdict is returned as a successful result with no appointment.
func (s *RegistrationService) Register(ctx context.Context, params *RegisterParams) (*RegisterResult, error) {
	if params == nil {
		return nil, domain.NewValidationError("params", "registration parameters are required", nil)
	}
	if params.DonorID == uuid.Nil {
		return nil, domain.NewValidationError("donor_id", "donor reference is required", nil)
	}

	event, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	now := s.now()
	if !event.IsUpcoming(now) {
		return nil, domain.NewValidationError("event_id", "event is no longer open for registration", params.EventID)
	}

	questionnaire, err := s.questionnaires.GetQuestionnaire(ctx, params.QuestionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questionnaire: %w", err)
	}

	verdict, err := s.evaluator.Evaluate(questionnaire, params.Answers)
	if err != nil {
		return nil, err
	}

	if verdict.Outcome == domain.OutcomeIneligible {
		s.logger.WithFields(logrus.Fields{
			"donor_id": params.DonorID,
			"event_id": params.EventID,
			"reason":   verdict.Reason,
		}).Info("Registration refused by eligibility rules")
		return &RegisterResult{Verdict: verdict}, nil
	}

	scheduledAt := params.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = event.Date
	}

	appointment, err := s.lifecycle.Create(verdict, params.DonorID, params.EventID, scheduledAt, now)
	if err != nil {
		return nil, err
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to persist appointment: %w", err)
	}

	return &RegisterResult{Verdict: verdict, Appointment: appointment}, nil
}

// Decide applies a staff review decision to a pending appointment. A
// decision of Eligible notifies the donor.
func (s *RegistrationService) Decide(ctx context.Context, appointmentID uuid.UUID, expected, decision domain.AppointmentStatus, staffNote string) (*domain.Appointment, error) {
	return s.mutate(ctx, appointmentID, func(appointment *domain.Appointment, now time.Time) error {
		if err := s.lifecycle.Decide(appointment, expected, decision, staffNote, now); err != nil {
			return err
		}
		if appointment.Status == domain.StatusEligible {
			s.dispatch(ctx, domain.NotificationEvent{
				Kind:          domain.EventAppointmentEligible,
				AppointmentID: appointment.ID,
				DonorID:       appointment.DonorID,
				OccurredAt:    now,
				Summary:       "appointment approved for donation",
			})
		}
		return nil
	})
}

// CheckIn marks the donor present at the event venue.
func (s *RegistrationService) CheckIn(ctx context.Context, appointmentID uuid.UUID, expected domain.AppointmentStatus) (*domain.Appointment, error) {
	return s.mutate(ctx, appointmentID, func(appointment *domain.Appointment, now time.Time) error {
		event, err := s.events.GetEvent(ctx, appointment.EventID)
		if err != nil {
			return fmt.Errorf("failed to load event: %w", err)
		}
		return s.lifecycle.CheckIn(appointment, expected, event, now)
	})
}

// RecordDonationParams captures the on-site conclusion of a donation
// attempt, as entered by medical staff.
type RecordDonationParams struct {
	Expected       domain.AppointmentStatus `json:"expected_status"`
	CanDonate      bool                     `json:"can_donate"`
	VolumeML       int                      `json:"volume_ml"`
	BloodType      domain.BloodType         `json:"blood_type"`
	DeferralReason string                   `json:"deferral_reason,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
}

// RecordDonation concludes a checked-in appointment: Donated with the drawn
// volume when the donor could donate, Deferred otherwise. A completed
// donation is appended to the donation log; a deferral notifies the donor.
func (s *RegistrationService) RecordDonation(ctx context.Context, appointmentID uuid.UUID, params *RecordDonationParams) (*domain.Appointment, error) {
	if params == nil {
		return nil, domain.NewValidationError("params", "donation parameters are required", nil)
	}

	return s.mutate(ctx, appointmentID, func(appointment *domain.Appointment, now time.Time) error {
		err := s.lifecycle.RecordDonation(appointment, params.Expected, params.VolumeML, params.BloodType, params.CanDonate, params.DeferralReason, now)
		if err != nil {
			return err
		}

		switch appointment.Status {
		case domain.StatusDonated:
			record := &donationlog.Record{
				AppointmentID: appointment.ID.String(),
				DonorID:       appointment.DonorID.String(),
				EventID:       appointment.EventID.String(),
				BloodType:     appointment.BloodType,
				VolumeML:      appointment.DonatedVolumeML,
				DonatedAt:     now,
				Notes:         params.Notes,
			}
			if err := s.donations.Save(ctx, record); err != nil {
				// The appointment transition is the source of truth; a log
				// write failure must not roll it back.
				s.logger.WithError(err).WithField("appointment_id", appointment.ID).
					Error("Failed to append donation log record")
			}
		case domain.StatusDeferred:
			s.notifyDeferred(ctx, appointment, now)
		}
		return nil
	})
}

// Defer moves a checked-in donor to Deferred before any draw, recording the
// medical reason and advice, and notifies the donor.
func (s *RegistrationService) Defer(ctx context.Context, appointmentID uuid.UUID, expected domain.AppointmentStatus, reasonCode, note string) (*domain.Appointment, error) {
	return s.mutate(ctx, appointmentID, func(appointment *domain.Appointment, now time.Time) error {
		if err := s.lifecycle.Defer(appointment, expected, reasonCode, note, now); err != nil {
			return err
		}
		s.notifyDeferred(ctx, appointment, now)
		return nil
	})
}

// Cancel withdraws the donor's appointment.
func (s *RegistrationService) Cancel(ctx context.Context, appointmentID uuid.UUID, expected domain.AppointmentStatus) (*domain.Appointment, error) {
	return s.mutate(ctx, appointmentID, func(appointment *domain.Appointment, now time.Time) error {
		return s.lifecycle.Cancel(appointment, expected, now)
	})
}

// Reregister creates a fresh registration after a cancelled or elapsed
// deferred appointment. The prior appointment is left untouched; the new one
// goes through the full eligibility evaluation again.
func (s *RegistrationService) Reregister(ctx context.Context, priorAppointmentID uuid.UUID, params *RegisterParams) (*RegisterResult, error) {
	prior, err := s.appointments.GetByID(ctx, priorAppointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior appointment: %w", err)
	}

	event, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	if err := s.lifecycle.CanReregister(prior, event, s.now()); err != nil {
		return nil, err
	}

	return s.Register(ctx, params)
}

// GetAppointment loads one appointment by ID.
func (s *RegistrationService) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	return s.appointments.GetByID(ctx, appointmentID)
}

// ListDonorAppointments returns all of a donor's appointments.
func (s *RegistrationService) ListDonorAppointments(ctx context.Context, donorID uuid.UUID) ([]*domain.Appointment, error) {
	return s.appointments.ListByDonor(ctx, donorID)
}

// ApproveEmergencyTransfer checks whether current inventory covers an
// approved emergency request and, when it does, authorizes the transfer and
// emits a notification. The sufficiency verdict is returned either way.
func (s *RegistrationService) ApproveEmergencyTransfer(ctx context.Context, requestID uuid.UUID) (*domain.SufficiencyVerdict, *domain.EmergencyRequest, error) {
	request, err := s.emergencies.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load emergency request: %w", err)
	}

	if request.Status != domain.EmergencyApproved {
		return nil, nil, domain.NewValidationError("status",
			"transfer requires an approved emergency request", string(request.Status))
	}

	records, err := s.inventory.Snapshot(ctx, request.BloodType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot inventory: %w", err)
	}

	verdict, err := s.sufficiency.Compare(request.RequiredVolumeML, request.BloodType, records)
	if err != nil {
		return nil, nil, err
	}

	if !verdict.IsSufficient {
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"blood_type": request.BloodType.String(),
			"shortfall":  verdict.RequiredVolumeML - verdict.AvailableVolumeML,
		}).Warn("Emergency transfer refused, insufficient stock")
		return verdict, request, nil
	}

	now := s.now()
	request.Status = domain.EmergencyTransferAuthorized
	request.UpdatedAt = now
	if err := s.emergencies.SaveRequest(ctx, request); err != nil {
		return nil, nil, fmt.Errorf("failed to persist emergency request: %w", err)
	}

	s.dispatch(ctx, domain.NotificationEvent{
		Kind:       domain.EventTransferAuthorized,
		RequestID:  request.ID,
		BloodType:  request.BloodType,
		OccurredAt: now,
		Summary:    fmt.Sprintf("transfer of %d ml authorized for %s", request.RequiredVolumeML, request.Hospital),
	})

	return verdict, request, nil
}

// mutate loads an appointment, runs one lifecycle mutation against it, and
// saves it back under the version it was read at.
func (s *RegistrationService) mutate(ctx context.Context, appointmentID uuid.UUID, fn func(*domain.Appointment, time.Time) error) (*domain.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}

	readVersion := appointment.Version
	if err := fn(appointment, s.now()); err != nil {
		return nil, err
	}

	if err := s.appointments.Save(ctx, appointment, readVersion); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *RegistrationService) notifyDeferred(ctx context.Context, appointment *domain.Appointment, now time.Time) {
	s.dispatch(ctx, domain.NotificationEvent{
		Kind:          domain.EventAppointmentDeferred,
		AppointmentID: appointment.ID,
		DonorID:       appointment.DonorID,
		OccurredAt:    now,
		Summary:       "donation deferred: " + appointment.DeferralReason,
	})
}

// dispatch delivers a notification event, logging delivery failures without
// propagating them.
func (s *RegistrationService) dispatch(ctx context.Context, event domain.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Dispatch(ctx, event); err != nil {
		s.logger.WithError(err).WithField("kind", string(event.Kind)).
			Warn("Failed to dispatch notification event")
	}
}
