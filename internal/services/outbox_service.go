package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hiredeck/hiredeck/internal/models"
)

const (
	defaultOutboxLockTimeout = 30 * time.Second
	defaultOutboxBatchSize   = 25
)

// OutboxOption customises the OutboxService.
type OutboxOption func(*OutboxService)

// WithOutboxClock injects a custom time source.
func WithOutboxClock(clock func() time.Time) OutboxOption {
	return func(s *OutboxService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithOutboxLockTimeout overrides how long a worker claim is honoured before
// another worker may re-claim the row.
func WithOutboxLockTimeout(d time.Duration) OutboxOption {
	return func(s *OutboxService) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// OutboxService owns the durable notification queue. Producers enqueue inside
// the transaction that performs the state change; a decoupled worker claims
// batches and reports delivery outcomes back.
type OutboxService struct {
	db          *gorm.DB
	now         func() time.Time
	lockTimeout time.Duration
}

// NewOutboxService constructs an outbox service.
func NewOutboxService(db *gorm.DB, opts ...OutboxOption) (*OutboxService, error) {
	if db == nil {
		return nil, errors.New("outbox service: db is required")
	}

	service := &OutboxService{
		db:          db,
		now:         time.Now,
		lockTimeout: defaultOutboxLockTimeout,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// EnqueueInput describes a notification to enqueue. Type, BookingID and
// CandidateID together form the dedup key.
type EnqueueInput struct {
	Type          string
	BookingID     string
	CandidateID   string
	RecruiterID   *string
	CorrelationID *string
	Payload       map[string]any
}

// Enqueue inserts or refreshes a notification row. When tx is non-nil the write
// joins the caller's transaction so enqueuing never diverges from the state
// change it documents. Re-enqueuing an existing dedup key updates the row in
// place while it is still pending and is a no-op once it reached sent/failed.
func (s *OutboxService) Enqueue(ctx context.Context, tx *gorm.DB, input EnqueueInput) (*models.OutboxNotification, error) {
	if input.Type == "" || input.BookingID == "" || input.CandidateID == "" {
		return nil, errors.New("outbox service: type, booking id and candidate id are required")
	}

	h := tx
	if h == nil {
		h = s.db.WithContext(ctx)
	}

	payload, err := marshalPayload(input.Payload)
	if err != nil {
		return nil, err
	}

	var existing models.OutboxNotification
	findErr := h.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("type = ? AND booking_id = ? AND candidate_id = ?", input.Type, input.BookingID, input.CandidateID).
		First(&existing).Error
	if findErr == nil {
		if existing.Status != models.OutboxPending {
			// Never resurrect a completed delivery.
			return &existing, nil
		}
		return s.refreshPending(h, &existing, input, payload)
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("outbox service: lookup: %w", findErr)
	}

	entry := models.OutboxNotification{
		Type:          input.Type,
		BookingID:     input.BookingID,
		CandidateID:   input.CandidateID,
		RecruiterID:   input.RecruiterID,
		CorrelationID: input.CorrelationID,
		Payload:       payload,
		Status:        models.OutboxPending,
	}

	if createErr := h.Create(&entry).Error; createErr != nil {
		if !isUniqueConstraintError(createErr) {
			return nil, fmt.Errorf("outbox service: enqueue: %w", createErr)
		}
		if tx != nil {
			// Every in-transaction producer enqueues while holding the row
			// lock on the slot or assignment its booking id names, which
			// serializes duplicate dedup keys before the insert. A violation
			// here means a caller enqueued without that lock, and the aborted
			// transaction cannot be recovered from inside.
			return nil, fmt.Errorf("outbox service: enqueue: %w", createErr)
		}
		// A concurrent standalone producer committed the same dedup key
		// first; a fresh read on the pool sees the winner.
		reread := s.db.WithContext(ctx)
		if rereadErr := reread.Where("type = ? AND booking_id = ? AND candidate_id = ?",
			input.Type, input.BookingID, input.CandidateID).First(&existing).Error; rereadErr != nil {
			return nil, fmt.Errorf("outbox service: re-read after race: %w", rereadErr)
		}
		if existing.Status != models.OutboxPending {
			return &existing, nil
		}
		return s.refreshPending(reread, &existing, input, payload)
	}

	return &entry, nil
}

func (s *OutboxService) refreshPending(h *gorm.DB, existing *models.OutboxNotification, input EnqueueInput, payload datatypes.JSON) (*models.OutboxNotification, error) {
	updates := map[string]any{
		"payload":        payload,
		"recruiter_id":   input.RecruiterID,
		"correlation_id": input.CorrelationID,
		"attempts":       0,
		"locked_at":      nil,
		"next_retry_at":  nil,
		"last_error":     nil,
	}
	if err := h.Model(existing).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("outbox service: refresh pending: %w", err)
	}

	existing.Payload = payload
	existing.RecruiterID = input.RecruiterID
	existing.CorrelationID = input.CorrelationID
	existing.Attempts = 0
	existing.LockedAt = nil
	existing.NextRetryAt = nil
	existing.LastError = nil
	return existing, nil
}

// ClaimBatch selects due pending rows whose worker lock is absent or stale,
// stamps locked_at, and returns them. SKIP LOCKED keeps parallel workers from
// blocking on each other's in-flight claims; the locked_at staleness window is
// the recovery path for a worker that crashed mid-delivery.
func (s *OutboxService) ClaimBatch(ctx context.Context, batchSize int) ([]models.OutboxNotification, error) {
	if batchSize <= 0 {
		batchSize = defaultOutboxBatchSize
	}

	var claimed []models.OutboxNotification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()
		staleBefore := now.Add(-s.lockTimeout)

		var rows []models.OutboxNotification
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", models.OutboxPending).
			Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
			Where("locked_at IS NULL OR locked_at < ?", staleBefore).
			Order("created_at ASC").
			Limit(batchSize).
			Find(&rows).Error; err != nil {
			return fmt.Errorf("outbox service: select batch: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}

		if err := tx.Model(&models.OutboxNotification{}).
			Where("id IN ?", ids).
			Update("locked_at", now).Error; err != nil {
			return fmt.Errorf("outbox service: stamp locks: %w", err)
		}

		for i := range rows {
			lockedAt := now
			rows[i].LockedAt = &lockedAt
		}
		claimed = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// MarkSent records a successful delivery and releases the worker lock.
func (s *OutboxService) MarkSent(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&models.OutboxNotification{}).
		Where("id = ? AND status = ?", id, models.OutboxPending).
		Updates(map[string]any{
			"status":    models.OutboxSent,
			"locked_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("outbox service: mark sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox service: mark sent: no pending row %s", id)
	}
	return nil
}

// MarkFailed records a failed delivery attempt. A non-nil nextRetryAt keeps the
// row pending with backoff; nil retires it to the terminal failed state until
// an operator calls Reset.
func (s *OutboxService) MarkFailed(ctx context.Context, id string, attempts int, nextRetryAt *time.Time, lastError string) error {
	updates := map[string]any{
		"attempts":   attempts,
		"locked_at":  nil,
		"last_error": lastError,
	}
	if nextRetryAt != nil {
		retry := nextRetryAt.UTC()
		updates["status"] = models.OutboxPending
		updates["next_retry_at"] = retry
	} else {
		updates["status"] = models.OutboxFailed
		updates["next_retry_at"] = nil
	}

	result := s.db.WithContext(ctx).Model(&models.OutboxNotification{}).
		Where("id = ? AND status = ?", id, models.OutboxPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("outbox service: mark failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox service: mark failed: no pending row %s", id)
	}
	return nil
}

// Reset is the administrative requeue: lock, retry schedule and attempt counter
// are cleared and the row returns to pending.
func (s *OutboxService) Reset(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&models.OutboxNotification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        models.OutboxPending,
			"attempts":      0,
			"locked_at":     nil,
			"next_retry_at": nil,
			"last_error":    nil,
		})
	if result.Error != nil {
		return fmt.Errorf("outbox service: reset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox service: reset %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func marshalPayload(payload map[string]any) (datatypes.JSON, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("outbox service: payload must be JSON serialisable: %w", err)
	}
	return datatypes.JSON(raw), nil
}
