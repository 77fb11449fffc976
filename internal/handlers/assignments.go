package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/internal/services"
	"github.com/hiredeck/hiredeck/pkg/errors"
	"github.com/hiredeck/hiredeck/pkg/response"
)

// AssignmentHandler exposes the offer/confirm/reschedule endpoints, including
// the candidate-facing capability links addressed by token alone.
type AssignmentHandler struct {
	assignments *services.AssignmentService
	tokens      *services.ActionTokenService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(db *gorm.DB, outbox *services.OutboxService, opts ...services.AssignmentOption) (*AssignmentHandler, error) {
	tokens, err := services.NewActionTokenService(db)
	if err != nil {
		return nil, err
	}
	assignments, err := services.NewAssignmentService(db, tokens, outbox, opts...)
	if err != nil {
		return nil, err
	}
	return &AssignmentHandler{assignments: assignments, tokens: tokens}, nil
}

type createOfferRequest struct {
	SlotID           string `json:"slot_id" binding:"required"`
	CandidateID      string `json:"candidate_id" binding:"required"`
	CandidateContact string `json:"candidate_contact"`
}

// Create offers a slot to a candidate and returns the minted capability links.
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid request body"))
		return
	}

	res, err := h.assignments.CreateOffer(c.Request.Context(), services.CreateOfferInput{
		SlotID:           req.SlotID,
		CandidateID:      req.CandidateID,
		CandidateContact: req.CandidateContact,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

type confirmByTokenRequest struct {
	CandidateContact string `json:"candidate_contact"`
}

// ConfirmByToken redeems a confirm link. The token alone addresses the
// assignment; no assignment id appears in the URL.
func (h *AssignmentHandler) ConfirmByToken(c *gin.Context) {
	token := c.Param("token")
	record := h.resolveToken(c, token, models.TokenActionConfirm)
	if record == nil {
		return
	}

	var req confirmByTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errors.NewBadRequest("invalid request body"))
			return
		}
	}

	result, err := h.assignments.Confirm(c.Request.Context(), record.EntityID, token, req.CandidateContact)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, result)
}

type rescheduleByTokenRequest struct {
	RequestedStart string `json:"requested_start" binding:"required"`
	Timezone       string `json:"timezone"`
	Comment        string `json:"comment"`
}

// RescheduleByToken redeems a reschedule link and records the request.
func (h *AssignmentHandler) RescheduleByToken(c *gin.Context) {
	token := c.Param("token")
	record := h.resolveToken(c, token, models.TokenActionReschedule)
	if record == nil {
		return
	}

	var req rescheduleByTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid request body"))
		return
	}
	requestedStart, err := parseTime(req.RequestedStart)
	if err != nil {
		response.Error(c, errors.NewBadRequest("invalid requested_start, expected RFC3339 or local datetime"))
		return
	}

	result, err := h.assignments.RequestReschedule(c.Request.Context(), record.EntityID, token, services.RequestRescheduleInput{
		RequestedStart: requestedStart,
		Timezone:       req.Timezone,
		Comment:        req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, result)
}

type decideRequest struct {
	DecidedBy string `json:"decided_by"`
}

// ApproveReschedule accepts the candidate's requested time.
func (h *AssignmentHandler) ApproveReschedule(c *gin.Context) {
	var req decideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errors.NewBadRequest("invalid request body"))
			return
		}
	}

	res, err := h.assignments.ApproveReschedule(c.Request.Context(), c.Param("id"), req.DecidedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

// DeclineReschedule rejects the candidate's requested time.
func (h *AssignmentHandler) DeclineReschedule(c *gin.Context) {
	var req decideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errors.NewBadRequest("invalid request body"))
			return
		}
	}

	res, err := h.assignments.DeclineReschedule(c.Request.Context(), c.Param("id"), req.DecidedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

type proposeAlternativeRequest struct {
	ProposedStart string `json:"proposed_start" binding:"required"`
	Timezone      string `json:"timezone"`
	DecidedBy     string `json:"decided_by"`
}

// ProposeAlternative counter-offers a different time with fresh links.
func (h *AssignmentHandler) ProposeAlternative(c *gin.Context) {
	var req proposeAlternativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid request body"))
		return
	}
	proposedStart, err := parseTime(req.ProposedStart)
	if err != nil {
		response.Error(c, errors.NewBadRequest("invalid proposed_start, expected RFC3339 or local datetime"))
		return
	}

	res, err := h.assignments.ProposeAlternative(c.Request.Context(), c.Param("id"), req.DecidedBy, services.ProposeAlternativeInput{
		ProposedStart: proposedStart,
		Timezone:      req.Timezone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

// Cancel retires an assignment and invalidates its links.
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	res, err := h.assignments.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

// resolveToken looks the token up without consuming it, enforcing only that it
// exists and matches the expected action. Expiry and single-use checks run
// atomically inside the service transaction. When the returned record is nil
// the response has already been written.
func (h *AssignmentHandler) resolveToken(c *gin.Context, token string, action models.TokenAction) *models.ActionToken {
	record, err := h.tokens.Peek(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return nil
	}
	if record == nil {
		respondResult(c, &services.Result{
			Outcome: services.OutcomeTokenNotFound,
			Message: "unknown link",
		})
		return nil
	}
	if record.Action != action {
		respondResult(c, &services.Result{
			Outcome: services.OutcomeTokenMismatch,
			Message: "this link cannot perform that action",
		})
		return nil
	}
	return record
}
