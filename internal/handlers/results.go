package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hiredeck/hiredeck/internal/services"
	"github.com/hiredeck/hiredeck/pkg/response"
)

// respondResult renders a booking Result with the HTTP status its outcome
// implies. Conflicts keep the envelope shape of successes so clients always
// parse the same body: ok, outcome, message and optional slot/assignment.
func respondResult(c *gin.Context, res *services.Result) {
	c.JSON(resultStatus(res), response.Response{
		Success: res.OK,
		Data:    res,
	})
}

func resultStatus(res *services.Result) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Outcome {
	case services.OutcomeNotFound, services.OutcomeTokenNotFound:
		return http.StatusNotFound
	case services.OutcomeTokenExpired:
		return http.StatusGone
	default:
		return http.StatusConflict
	}
}
