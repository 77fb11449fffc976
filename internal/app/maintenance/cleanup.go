package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/pkg/logger"
)

const (
	defaultSchedule        = "@every 1h"
	defaultTokenRetention  = 30 * 24 * time.Hour
	defaultOutboxRetention = 7 * 24 * time.Hour
)

// Cleaner coordinates background maintenance: purging expired reservation
// locks, removing stale action tokens, and pruning delivered outbox rows.
type Cleaner struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time
	log  *zap.Logger

	schedule        string
	tokenRetention  time.Duration
	outboxRetention time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithTokenRetention adjusts how long used or expired tokens are kept.
func WithTokenRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.tokenRetention = d
		}
	}
}

// WithOutboxRetention adjusts how long sent outbox rows are kept.
func WithOutboxRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.outboxRetention = d
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		now:             time.Now,
		schedule:        defaultSchedule,
		tokenRetention:  defaultTokenRetention,
		outboxRetention: defaultOutboxRetention,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	now := c.now().UTC()

	if _, err := CleanupReservationLocks(ctx, c.db, now); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := CleanupActionTokens(ctx, c.db, now.Add(-c.tokenRetention)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := CleanupSentOutbox(ctx, c.db, now.Add(-c.outboxRetention)); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// CleanupReservationLocks removes locks that expired before now.
func CleanupReservationLocks(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup locks: db is required")
	}

	result := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.ReservationLock{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup locks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupActionTokens removes tokens that were used or expired before the cutoff.
func CleanupActionTokens(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup tokens: db is required")
	}

	result := db.WithContext(ctx).
		Where("expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)", cutoff, cutoff).
		Delete(&models.ActionToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupSentOutbox removes delivered notifications older than the cutoff.
// Pending and failed rows are never touched; failed rows hold the evidence an
// operator needs before calling reset.
func CleanupSentOutbox(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup outbox: db is required")
	}

	result := db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.OutboxSent, cutoff).
		Delete(&models.OutboxNotification{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup outbox: %w", result.Error)
	}
	return result.RowsAffected, nil
}
