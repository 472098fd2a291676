package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blood-donation-support-server/internal/domain"
	"github.com/blood-donation-support-server/internal/service"
)

// registerRequest is the registration payload. Status-bearing fields accept
// both canonical codes and the legacy display strings.
type registerRequest struct {
	DonorID         uuid.UUID        `json:"donor_id" binding:"required"`
	EventID         uuid.UUID        `json:"event_id" binding:"required"`
	QuestionnaireID string           `json:"questionnaire_id" binding:"required"`
	Answers         domain.AnswerSet `json:"answers" binding:"required"`
	ScheduledAt     time.Time        `json:"scheduled_at"`
}

func (r *registerRequest) toParams() *service.RegisterParams {
	return &service.RegisterParams{
		DonorID:         r.DonorID,
		EventID:         r.EventID,
		QuestionnaireID: r.QuestionnaireID,
		Answers:         r.Answers,
		ScheduledAt:     r.ScheduledAt,
	}
}

type decisionRequest struct {
	ExpectedStatus string `json:"expected_status" binding:"required"`
	Decision       string `json:"decision" binding:"required"`
	StaffNote      string `json:"staff_note"`
}

type checkInRequest struct {
	ExpectedStatus string `json:"expected_status" binding:"required"`
}

type donationRequest struct {
	ExpectedStatus string `json:"expected_status" binding:"required"`
	CanDonate      bool   `json:"can_donate"`
	VolumeML       int    `json:"volume_ml"`
	BloodType      string `json:"blood_type"`
	DeferralReason string `json:"deferral_reason"`
	Notes          string `json:"notes"`
}

type deferralRequest struct {
	ExpectedStatus string `json:"expected_status" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	Note           string `json:"note"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError("body", "malformed registration payload", err.Error()))
		return
	}

	result, err := s.registration.Register(c.Request.Context(), req.toParams())
	if err != nil {
		s.renderError(c, err)
		return
	}

	// An ineligible verdict is a successful evaluation, not an error.
	status := http.StatusOK
	if result.Appointment != nil {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (s *Server) handleGetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed appointment ID", c.Param("id")))
		return
	}

	appointment, err := s.registration.GetAppointment(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (s *Server) handleListDonorAppointments(c *gin.Context) {
	donorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed donor ID", c.Param("id")))
		return
	}

	appointments, err := s.registration.ListDonorAppointments(c.Request.Context(), donorID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appointments, "count": len(appointments)})
}

func (s *Server) handleDecide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed appointment ID", c.Param("id")))
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError("body", "malformed decision payload", err.Error()))
		return
	}

	expected, err := domain.ParseLegacyStatus(req.ExpectedStatus)
	if err != nil {
		s.renderError(c, err)
		return
	}
	decision, err := domain.ParseLegacyStatus(req.Decision)
	if err != nil {
		s.renderError(c, err)
		return
	}

	appointment, err := s.registration.Decide(c.Request.Context(), id, expected, decision, req.StaffNote)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (s *Server) handleCheckIn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed appointment ID", c.Param("id")))
		return
	}

	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError("body", "malformed check-in payload", err.Error()))
		return
	}

	expected, err := domain.ParseLegacyStatus(req.ExpectedStatus)
	if err != nil {
		s.renderError(c, err)
		return
	}

	appointment, err := s.registration.CheckIn(c.Request.Context(), id, expected)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (s *Server) handleRecordDonation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed appointment ID", c.Param("id")))
		return
	}

	var req donationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError("body", "malformed donation payload", err.Error()))
		return
	}

	expected, err := domain.ParseLegacyStatus(req.ExpectedStatus)
	if err != nil {
		s.renderError(c, err)
		return
	}

	params := &service.RecordDonationParams{
		Expected:       expected,
		CanDonate:      req.CanDonate,
		VolumeML:       req.VolumeML,
		DeferralReason: req.DeferralReason,
		Notes:          req.Notes,
	}
	if req.CanDonate {
		bloodType, err := domain.ParseBloodType(req.BloodType)
		if err != nil {
			s.renderError(c, err)
			return
		}
		params.BloodType = bloodType
	}

	appointment, err := s.registration.RecordDonation(c.Request.Context(), id, params)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (s *Server) handleDefer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed appointment ID", c.Param("id")))
		return
	}

	var req deferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError("body", "malformed deferral payload", err.Error()))
		return
	}

	expected, err := domain.ParseLegacyStatus(req.ExpectedStatus)
	if err != nil {
		s.renderError(c, err)
		return
	}

	appointment, err := s.registration.Defer(c.Request.Context(), id, expected, req.Reason, req.Note)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (s *Server) handleCancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed appointment ID", c.Param("id")))
		return
	}

	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError("body", "malformed cancel payload", err.Error()))
		return
	}

	expected, err := domain.ParseLegacyStatus(req.ExpectedStatus)
	if err != nil {
		s.renderError(c, err)
		return
	}

	appointment, err := s.registration.Cancel(c.Request.Context(), id, expected)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func (s *Server) handleReregister(c *gin.Context) {
	priorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed appointment ID", c.Param("id")))
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, domain.NewValidationError("body", "malformed registration payload", err.Error()))
		return
	}

	result, err := s.registration.Reregister(c.Request.Context(), priorID, req.toParams())
	if err != nil {
		s.renderError(c, err)
		return
	}

	status := http.StatusOK
	if result.Appointment != nil {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (s *Server) handleTransferCheck(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, domain.NewValidationError("id", "malformed request ID", c.Param("id")))
		return
	}

	verdict, request, err := s.registration.ApproveEmergencyTransfer(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdict": verdict, "request": request})
}

// renderError maps domain errors onto HTTP status codes and the standard
// error envelope. Malformed input is 400, missing records 404, concurrency
// races 409, and unreachable state transitions 422.
func (s *Server) renderError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")

	var validation *domain.ValidationError
	var missing *domain.MissingAnswerError
	var invalid *domain.InvalidTransitionError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrCodeInvalidInput, validation.Message, validation.Field, requestID))
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrCodeMissingAnswer, missing.Error(), missing.QuestionID, requestID))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, domain.NewAPIError(
			domain.ErrCodeNotFound, err.Error(), "", requestID))
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, domain.NewAPIError(
			domain.ErrCodeConflict, conflict.Error(), "", requestID))
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, domain.NewAPIError(
			domain.ErrCodeInvalidTransition, invalid.Error(), "", requestID))
	default:
		s.logger.WithError(err).WithField("request_id", requestID).Error("Unhandled request error")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrCodeInternalServer, "internal server error", "", requestID))
	}
}
