package models

import "time"

// TokenAction identifies which protected operation a token unlocks.
type TokenAction string

const (
	TokenActionConfirm    TokenAction = "confirm"
	TokenActionReschedule TokenAction = "reschedule"
)

// ActionToken is a single-use, time-boxed capability bound to an (action, entity)
// pair. Only the SHA-256 digest of the opaque token is stored. UsedAt is written
// exactly once, atomically with the consuming operation.
type ActionToken struct {
	BaseModel

	TokenHash string      `gorm:"uniqueIndex;not null" json:"-"`
	Action    TokenAction `gorm:"type:varchar(32);not null" json:"action"`
	EntityID  string      `gorm:"type:uuid;not null;index" json:"entity_id"`
	ExpiresAt time.Time   `gorm:"not null;index" json:"expires_at"`
	UsedAt    *time.Time  `json:"used_at"`
}
