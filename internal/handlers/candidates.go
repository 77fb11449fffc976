package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/pipeline"
	"github.com/hiredeck/hiredeck/internal/services"
	appErrors "github.com/hiredeck/hiredeck/pkg/errors"
	"github.com/hiredeck/hiredeck/pkg/response"
)

// CandidateHandler exposes the pipeline status endpoints.
type CandidateHandler struct {
	statuses *services.CandidateStatusService
}

// NewCandidateHandler constructs a candidate handler.
func NewCandidateHandler(db *gorm.DB) (*CandidateHandler, error) {
	statuses, err := services.NewCandidateStatusService(db)
	if err != nil {
		return nil, err
	}
	return &CandidateHandler{statuses: statuses}, nil
}

type advanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdvanceStatus moves a candidate along the pipeline graph.
func (h *CandidateHandler) AdvanceStatus(c *gin.Context) {
	var req advanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid request body"))
		return
	}

	target, err := pipeline.Parse(req.Status)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unknown status"))
		return
	}

	changed, err := h.statuses.Advance(c.Request.Context(), c.Param("id"), target)
	if err != nil {
		if errors.Is(err, services.ErrTransitionNotAllowed) {
			// Out-of-order webhook delivery shows up as a backward move;
			// absorb it silently instead of surfacing a conflict.
			if current, getErr := h.statuses.Get(c.Request.Context(), c.Param("id")); getErr == nil &&
				pipeline.IsRetreat(current, target) {
				response.Success(c, http.StatusOK, gin.H{
					"status":  current,
					"changed": false,
					"retreat": true,
				})
				return
			}
			response.Error(c, appErrors.NewConflict("TRANSITION_NOT_ALLOWED", err.Error()))
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":  target,
		"changed": changed,
	})
}

type forceStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// ForceStatus overrides the pipeline graph with a mandatory audit reason.
func (h *CandidateHandler) ForceStatus(c *gin.Context) {
	var req forceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid request body, status and reason are required"))
		return
	}

	target, err := pipeline.Parse(req.Status)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unknown status"))
		return
	}

	changed, err := h.statuses.Force(c.Request.Context(), c.Param("id"), target, req.Reason)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": target, "changed": changed})
}

// GetStatus returns the candidate's current pipeline status.
func (h *CandidateHandler) GetStatus(c *gin.Context) {
	status, err := h.statuses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": status})
}
