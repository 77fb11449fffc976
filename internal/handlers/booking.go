package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/internal/services"
	"github.com/hiredeck/hiredeck/pkg/errors"
	"github.com/hiredeck/hiredeck/pkg/metrics"
	"github.com/hiredeck/hiredeck/pkg/response"
)

// BookingHandler exposes the slot reservation endpoints.
type BookingHandler struct {
	slots *services.SlotStore
}

// NewBookingHandler constructs a booking handler.
func NewBookingHandler(db *gorm.DB, outbox *services.OutboxService, opts ...services.SlotStoreOption) (*BookingHandler, error) {
	slots, err := services.NewSlotStore(db, outbox, opts...)
	if err != nil {
		return nil, err
	}
	return &BookingHandler{slots: slots}, nil
}

type reserveRequest struct {
	CandidateID       string `json:"candidate_id" binding:"required"`
	CandidateName     string `json:"candidate_name"`
	CandidateContact  string `json:"candidate_contact"`
	CandidateTimezone string `json:"candidate_timezone"`

	ExpectedOwnerID    *string `json:"expected_owner_id"`
	ExpectedLocationID *string `json:"expected_location_id"`

	Purpose      string `json:"purpose"`
	AllowReplace bool   `json:"allow_replace"`
}

// Reserve claims a slot for a candidate.
func (h *BookingHandler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid request body"))
		return
	}

	res, err := h.slots.Reserve(c.Request.Context(), services.ReserveInput{
		SlotID:             c.Param("id"),
		CandidateID:        req.CandidateID,
		CandidateName:      req.CandidateName,
		CandidateContact:   req.CandidateContact,
		CandidateTimezone:  req.CandidateTimezone,
		ExpectedOwnerID:    req.ExpectedOwnerID,
		ExpectedLocationID: req.ExpectedLocationID,
		Purpose:            models.SlotPurpose(req.Purpose),
		AllowReplace:       req.AllowReplace,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	metrics.ReservationOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	respondResult(c, res)
}

// Approve moves a pending slot to booked.
func (h *BookingHandler) Approve(c *gin.Context) {
	res, err := h.slots.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

type rejectRequest struct {
	Notify bool `json:"notify"`
}

// Reject releases a slot back to free, optionally notifying the prior holder.
func (h *BookingHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errors.NewBadRequest("invalid request body"))
			return
		}
	}

	outboxType := ""
	if req.Notify {
		outboxType = services.NotificationBookingDeclined
	}

	res, err := h.slots.Reject(c.Request.Context(), c.Param("id"), outboxType)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

// Confirm records the candidate's confirmation click on a slot.
func (h *BookingHandler) Confirm(c *gin.Context) {
	res, err := h.slots.ConfirmByCandidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, res)
}

// parseTime is shared by the reschedule endpoints; request bodies carry local
// wall-clock times paired with an IANA zone name.
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", value)
}
