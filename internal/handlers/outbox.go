package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/services"
	appErrors "github.com/hiredeck/hiredeck/pkg/errors"
	"github.com/hiredeck/hiredeck/pkg/response"
)

// OutboxHandler exposes the administrative requeue endpoint.
type OutboxHandler struct {
	outbox *services.OutboxService
}

// NewOutboxHandler constructs an outbox handler.
func NewOutboxHandler(outbox *services.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// Reset returns a failed notification to pending with a cleared attempt counter.
func (h *OutboxHandler) Reset(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := h.outbox.Reset(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
