package notifications

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/internal/services"
	"github.com/hiredeck/hiredeck/pkg/logger"
	"github.com/hiredeck/hiredeck/pkg/metrics"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 25
	defaultMaxAttempts  = 8
	defaultBackoffBase  = 30 * time.Second
	maxBackoff          = time.Hour
)

// WorkerOption customises the Worker.
type WorkerOption func(*Worker)

// WithPollInterval overrides how often the worker polls for due rows.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithBatchSize overrides how many rows are claimed per poll.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithMaxAttempts overrides how many delivery attempts precede terminal failure.
func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithWorkerClock injects a custom time source.
func WithWorkerClock(clock func() time.Time) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

// Worker drains the outbox: claim a batch, deliver each row through the
// notifier, report success or schedule a retry. A delivery failure never
// stops the batch; each row carries its own attempt counter.
type Worker struct {
	outbox   *services.OutboxService
	notifier Notifier

	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	now          func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWorker constructs an outbox delivery worker.
func NewWorker(outbox *services.OutboxService, notifier Notifier, opts ...WorkerOption) *Worker {
	if notifier == nil {
		notifier = LogNotifier{}
	}

	w := &Worker{
		outbox:       outbox,
		notifier:     notifier,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		maxAttempts:  defaultMaxAttempts,
		now:          time.Now,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start runs the polling loop until the context is canceled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				if _, err := w.RunOnce(ctx); err != nil {
					logger.Error("outbox poll failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it to drain.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// RunOnce claims and processes a single batch. Returns the number of rows
// processed; only claim errors propagate, per-row delivery errors are
// absorbed into retry bookkeeping.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	batch, err := w.outbox.ClaimBatch(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	metrics.OutboxBatchSize.Observe(float64(len(batch)))

	for i := range batch {
		w.deliver(ctx, &batch[i])
	}
	return len(batch), nil
}

func (w *Worker) deliver(ctx context.Context, row *models.OutboxNotification) {
	providerID, err := w.notifier.Send(ctx, FromRow(row))
	if err == nil {
		if markErr := w.outbox.MarkSent(ctx, row.ID); markErr != nil {
			logger.Error("mark sent failed", zap.String("id", row.ID), zap.Error(markErr))
			return
		}
		metrics.OutboxDeliveries.WithLabelValues("sent").Inc()
		logger.Debug("notification sent",
			zap.String("id", row.ID),
			zap.String("type", row.Type),
			zap.String("provider_id", providerID),
		)
		return
	}

	attempts := row.Attempts + 1
	if attempts >= w.maxAttempts {
		if markErr := w.outbox.MarkFailed(ctx, row.ID, attempts, nil, err.Error()); markErr != nil {
			logger.Error("mark failed failed", zap.String("id", row.ID), zap.Error(markErr))
			return
		}
		metrics.OutboxDeliveries.WithLabelValues("failed").Inc()
		logger.Error("notification retired after max attempts",
			zap.String("id", row.ID),
			zap.String("type", row.Type),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return
	}

	retryAt := w.now().UTC().Add(backoff(attempts))
	if markErr := w.outbox.MarkFailed(ctx, row.ID, attempts, &retryAt, err.Error()); markErr != nil {
		logger.Error("mark failed failed", zap.String("id", row.ID), zap.Error(markErr))
		return
	}
	metrics.OutboxDeliveries.WithLabelValues("retried").Inc()
	logger.Warn("notification delivery failed, scheduled retry",
		zap.String("id", row.ID),
		zap.String("type", row.Type),
		zap.Int("attempts", attempts),
		zap.Time("next_retry_at", retryAt),
		zap.Error(err),
	)
}

// backoff doubles from the base per attempt, capped at an hour.
func backoff(attempts int) time.Duration {
	d := defaultBackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
