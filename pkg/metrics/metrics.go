package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationOutcomes counts slot reservation attempts by tagged outcome
	// (reserved|already_reserved|duplicate_candidate|slot_taken).
	ReservationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hiredeck_reservation_outcomes_total",
			Help: "Total number of slot reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// OutboxDeliveries counts outbox delivery attempts by result (sent|retried|failed).
	OutboxDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hiredeck_outbox_deliveries_total",
			Help: "Total number of outbox delivery attempts",
		},
		[]string{"result"},
	)

	// OutboxBatchSize tracks the size of each claimed batch.
	OutboxBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hiredeck_outbox_batch_size",
			Help:    "Number of notifications claimed per worker cycle",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hiredeck_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
