package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/internal/pipeline"
	"github.com/hiredeck/hiredeck/pkg/logger"
)

var (
	// ErrTransitionNotAllowed reports a status change the pipeline graph forbids.
	ErrTransitionNotAllowed = errors.New("candidate status: transition not allowed")
	// ErrReasonRequired reports a forced status change without an audit reason.
	ErrReasonRequired = errors.New("candidate status: reason is required for forced transitions")
)

// CandidateStatusOption customises the CandidateStatusService.
type CandidateStatusOption func(*CandidateStatusService)

// WithCandidateStatusClock injects a custom time source.
func WithCandidateStatusClock(clock func() time.Time) CandidateStatusOption {
	return func(s *CandidateStatusService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// CandidateStatusService moves candidates through the hiring pipeline. Advance
// follows the transition graph; Force bypasses it with a mandatory reason.
type CandidateStatusService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCandidateStatusService constructs a candidate status service.
func NewCandidateStatusService(db *gorm.DB, opts ...CandidateStatusOption) (*CandidateStatusService, error) {
	if db == nil {
		return nil, errors.New("candidate status: db is required")
	}

	service := &CandidateStatusService{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Advance moves the candidate to target if the pipeline graph allows it.
// Returns false without error when the candidate is already at target.
func (s *CandidateStatusService) Advance(ctx context.Context, candidateID string, target pipeline.Status) (bool, error) {
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate, err := s.lockCandidate(tx, candidateID)
		if err != nil {
			return err
		}

		if candidate.Status == target {
			return nil
		}
		if !pipeline.CanTransition(candidate.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, candidate.Status, target)
		}

		if err := s.applyStatus(tx, candidate, target, ""); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Force sets the candidate status regardless of the transition graph. The
// reason is mandatory and persisted, and the override is logged for audit.
// Returns false without touching the audit stamp when the candidate is
// already at target.
func (s *CandidateStatusService) Force(ctx context.Context, candidateID string, target pipeline.Status, reason string) (bool, error) {
	if reason == "" {
		return false, ErrReasonRequired
	}

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate, err := s.lockCandidate(tx, candidateID)
		if err != nil {
			return err
		}

		if candidate.Status == target {
			return nil
		}

		from := candidate.Status
		if err := s.applyStatus(tx, candidate, target, reason); err != nil {
			return err
		}
		changed = true

		logger.Warn("candidate status forced",
			zap.String("candidate_id", candidateID),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
			zap.String("reason", reason),
		)
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Get returns the candidate's current status.
func (s *CandidateStatusService) Get(ctx context.Context, candidateID string) (pipeline.Status, error) {
	var candidate models.Candidate
	if err := s.db.WithContext(ctx).First(&candidate, "id = ?", candidateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("candidate status: candidate %s not found: %w", candidateID, err)
		}
		return "", fmt.Errorf("candidate status: load candidate: %w", err)
	}
	return candidate.Status, nil
}

func (s *CandidateStatusService) lockCandidate(tx *gorm.DB, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&candidate, "id = ?", candidateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("candidate status: candidate %s not found: %w", candidateID, err)
		}
		return nil, fmt.Errorf("candidate status: lock candidate: %w", err)
	}
	return &candidate, nil
}

func (s *CandidateStatusService) applyStatus(tx *gorm.DB, candidate *models.Candidate, target pipeline.Status, reason string) error {
	now := s.now().UTC()
	candidate.Status = target
	candidate.StatusChangedAt = &now
	candidate.StatusChangeReason = reason
	if err := tx.Save(candidate).Error; err != nil {
		return fmt.Errorf("candidate status: persist: %w", err)
	}
	return nil
}
