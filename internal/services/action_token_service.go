package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/pkg/crypto"
	"github.com/hiredeck/hiredeck/pkg/timeutil"
)

const (
	defaultTokenTTL   = 48 * time.Hour
	defaultTokenBytes = 32
)

// TokenStatus is the outcome of a token consumption attempt. Mismatch is kept
// distinct from not_found so forged links can be told apart from stale ones.
type TokenStatus string

const (
	TokenOK       TokenStatus = "ok"
	TokenNotFound TokenStatus = "not_found"
	TokenMismatch TokenStatus = "mismatch"
	TokenUsed     TokenStatus = "used"
	TokenExpired  TokenStatus = "expired"
)

// TokenOption customises the ActionTokenService.
type TokenOption func(*ActionTokenService)

// WithTokenClock injects a custom time source.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(s *ActionTokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTokenSize adjusts the number of random bytes in generated tokens.
func WithTokenSize(size int) TokenOption {
	return func(s *ActionTokenService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// ActionTokenService issues and consumes single-use, time-boxed capability
// tokens bound to (action, entity) pairs. Consumption is the only mutation:
// used_at is set exactly once, inside the caller's transaction.
type ActionTokenService struct {
	db          *gorm.DB
	now         func() time.Time
	tokenLength int
}

// NewActionTokenService constructs a token service.
func NewActionTokenService(db *gorm.DB, opts ...TokenOption) (*ActionTokenService, error) {
	if db == nil {
		return nil, errors.New("action token service: db is required")
	}

	service := &ActionTokenService{
		db:          db,
		now:         time.Now,
		tokenLength: defaultTokenBytes,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue mints an opaque token for the given action and entity. When tx is
// non-nil the row joins the caller's transaction. The plaintext token is
// returned once and never stored.
func (s *ActionTokenService) Issue(ctx context.Context, tx *gorm.DB, action models.TokenAction, entityID string, ttl time.Duration) (string, *models.ActionToken, error) {
	if entityID == "" {
		return "", nil, errors.New("action token service: entity id is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	h := tx
	if h == nil {
		h = s.db.WithContext(ctx)
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return "", nil, fmt.Errorf("action token service: generate token: %w", err)
	}

	record := models.ActionToken{
		TokenHash: crypto.HashToken(token),
		Action:    action,
		EntityID:  entityID,
		ExpiresAt: s.now().UTC().Add(ttl),
	}

	if err := h.Create(&record).Error; err != nil {
		return "", nil, fmt.Errorf("action token service: store token: %w", err)
	}

	return token, &record, nil
}

// Peek resolves a token to its record without consuming it. Returns (nil, nil)
// when the token is unknown.
func (s *ActionTokenService) Peek(ctx context.Context, token string) (*models.ActionToken, error) {
	if token == "" {
		return nil, nil
	}

	var record models.ActionToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashToken(token)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("action token service: peek: %w", err)
	}
	return &record, nil
}

// Consume validates and burns a token in a single locked read-then-write.
// The expiry comparison normalizes stored timestamps to UTC defensively.
func (s *ActionTokenService) Consume(ctx context.Context, tx *gorm.DB, token string, action models.TokenAction, entityID string) (TokenStatus, error) {
	h := tx
	if h == nil {
		h = s.db.WithContext(ctx)
	}

	var record models.ActionToken
	err := h.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_hash = ?", crypto.HashToken(token)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("action token service: load token: %w", err)
	}

	if record.Action != action || record.EntityID != entityID {
		return TokenMismatch, nil
	}

	now := s.now().UTC()
	if timeutil.EnsureUTC(record.ExpiresAt).Before(now) {
		return TokenExpired, nil
	}
	if record.UsedAt != nil {
		return TokenUsed, nil
	}

	if err := h.Model(&record).Update("used_at", now).Error; err != nil {
		return "", fmt.Errorf("action token service: mark used: %w", err)
	}

	return TokenOK, nil
}

// InvalidateAll marks every unused token for an entity as used without
// executing its action. Called when an assignment moves to a new slot and the
// old confirm/reschedule links must stop working.
func (s *ActionTokenService) InvalidateAll(ctx context.Context, tx *gorm.DB, entityID string) (int64, error) {
	if entityID == "" {
		return 0, errors.New("action token service: entity id is required")
	}

	h := tx
	if h == nil {
		h = s.db.WithContext(ctx)
	}

	result := h.Model(&models.ActionToken{}).
		Where("entity_id = ? AND used_at IS NULL", entityID).
		Update("used_at", s.now().UTC())
	if result.Error != nil {
		return 0, fmt.Errorf("action token service: invalidate all: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func tokenOutcome(status TokenStatus) Outcome {
	switch status {
	case TokenNotFound:
		return OutcomeTokenNotFound
	case TokenMismatch:
		return OutcomeTokenMismatch
	case TokenUsed:
		return OutcomeTokenUsed
	case TokenExpired:
		return OutcomeTokenExpired
	default:
		return OutcomeInvalidStatus
	}
}
