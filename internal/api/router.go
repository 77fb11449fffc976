package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/app"
	"github.com/hiredeck/hiredeck/internal/handlers"
	"github.com/hiredeck/hiredeck/internal/middleware"
	"github.com/hiredeck/hiredeck/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
// Authentication lives in front of this service; every /api route except the
// token-addressed /api/b/ links is expected to sit behind the gateway.
func NewRouter(db *gorm.DB, outbox *services.OutboxService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	bookingHandler, err := handlers.NewBookingHandler(db, outbox,
		services.WithReservationLockTTL(cfg.Booking.ReservationLockTTL))
	if err != nil {
		return nil, err
	}
	assignmentHandler, err := handlers.NewAssignmentHandler(db, outbox,
		services.WithOfferTokenTTL(cfg.Booking.OfferTokenTTL))
	if err != nil {
		return nil, err
	}
	candidateHandler, err := handlers.NewCandidateHandler(db)
	if err != nil {
		return nil, err
	}
	outboxHandler := handlers.NewOutboxHandler(outbox)

	api := r.Group("/api")

	slots := api.Group("/slots")
	{
		slots.POST("/:id/reserve", bookingHandler.Reserve)
		slots.POST("/:id/approve", bookingHandler.Approve)
		slots.POST("/:id/reject", bookingHandler.Reject)
		slots.POST("/:id/confirm", bookingHandler.Confirm)
	}

	assignments := api.Group("/assignments")
	{
		assignments.POST("", assignmentHandler.Create)
		assignments.POST("/:id/reschedule/approve", assignmentHandler.ApproveReschedule)
		assignments.POST("/:id/reschedule/decline", assignmentHandler.DeclineReschedule)
		assignments.POST("/:id/reschedule/propose", assignmentHandler.ProposeAlternative)
		assignments.POST("/:id/cancel", assignmentHandler.Cancel)
	}

	// Candidate-facing capability links, addressed by token alone.
	links := api.Group("/b")
	{
		links.POST("/:token/confirm", assignmentHandler.ConfirmByToken)
		links.POST("/:token/reschedule", assignmentHandler.RescheduleByToken)
	}

	candidates := api.Group("/candidates")
	{
		candidates.GET("/:id/status", candidateHandler.GetStatus)
		candidates.POST("/:id/status", candidateHandler.AdvanceStatus)
		candidates.POST("/:id/status/force", candidateHandler.ForceStatus)
	}

	api.POST("/outbox/:id/reset", outboxHandler.Reset)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
