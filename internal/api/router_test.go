package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/app"
	"github.com/hiredeck/hiredeck/internal/database/testutil"
	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/internal/pipeline"
	"github.com/hiredeck/hiredeck/internal/services"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	outbox, err := services.NewOutboxService(db)
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Server.Port = 8000
	cfg.Booking.ReservationLockTTL = 5 * time.Minute
	cfg.Booking.OfferTokenTTL = 48 * time.Hour

	router, err := NewRouter(db, outbox, cfg)
	require.NoError(t, err)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestReserveEndpointFlow(t *testing.T) {
	router, db := newTestRouter(t)

	slot := &models.Slot{
		OwnerID:         uuid.NewString(),
		StartAt:         time.Now().UTC().Add(24 * time.Hour),
		DurationMinutes: 60,
		Status:          models.SlotFree,
		Capacity:        1,
		Purpose:         models.PurposeInterview,
	}
	require.NoError(t, db.Create(slot).Error)

	candidate := uuid.NewString()
	path := fmt.Sprintf("/api/slots/%s/reserve", slot.ID)

	rec := doJSON(t, router, http.MethodPost, path, gin.H{
		"candidate_id":   candidate,
		"candidate_name": "Dana Voss",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Success bool             `json:"success"`
		Data    *services.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Equal(t, services.OutcomeReserved, envelope.Data.Outcome)

	// A competing candidate gets a 409 with the slot_taken outcome.
	rec = doJSON(t, router, http.MethodPost, path, gin.H{
		"candidate_id": uuid.NewString(),
	})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.Equal(t, services.OutcomeSlotTaken, envelope.Data.Outcome)
}

func TestOfferAndTokenLinkFlow(t *testing.T) {
	router, db := newTestRouter(t)

	slot := &models.Slot{
		OwnerID:         uuid.NewString(),
		StartAt:         time.Now().UTC().Add(24 * time.Hour),
		DurationMinutes: 60,
		Status:          models.SlotFree,
		Capacity:        1,
		Purpose:         models.PurposeInterview,
	}
	require.NoError(t, db.Create(slot).Error)

	rec := doJSON(t, router, http.MethodPost, "/api/assignments", gin.H{
		"slot_id":      slot.ID,
		"candidate_id": uuid.NewString(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data *services.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, services.OutcomeOffered, envelope.Data.Outcome)
	require.NotEmpty(t, envelope.Data.ConfirmToken)

	// Redeem the confirm link.
	rec = doJSON(t, router, http.MethodPost, "/api/b/"+envelope.Data.ConfirmToken+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, services.OutcomeConfirmed, envelope.Data.Outcome)

	// An unknown link is a 404.
	rec = doJSON(t, router, http.MethodPost, "/api/b/bogus/confirm", nil)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestCandidateStatusEndpoints(t *testing.T) {
	router, db := newTestRouter(t)

	candidate := &models.Candidate{FullName: "Dana Voss", Status: pipeline.StatusLead}
	require.NoError(t, db.Create(candidate).Error)

	base := "/api/candidates/" + candidate.ID + "/status"

	rec := doJSON(t, router, http.MethodPost, base, gin.H{"status": "test_sent"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Illegal forward jump conflicts.
	rec = doJSON(t, router, http.MethodPost, base, gin.H{"status": "hired"})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// A backward move is absorbed as an out-of-order event.
	rec = doJSON(t, router, http.MethodPost, base, gin.H{"status": "lead"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"retreat":true`)

	// Force requires a reason.
	rec = doJSON(t, router, http.MethodPost, base+"/force", gin.H{"status": "hired"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, base+"/force", gin.H{
		"status": "hired",
		"reason": "offer signed outside the pipeline",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "hired")
}
