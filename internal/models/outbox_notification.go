package models

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxStatus enumerates the three delivery states of an outbox row.
// Producers only write none→pending and pending→pending; workers own
// pending→sent and pending→pending-with-backoff (or terminal failed).
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxNotification is a durable outbound notification enqueued in the same
// transaction as the state change it documents. The composite unique index on
// (type, booking_id, candidate_id) is the dedup key.
type OutboxNotification struct {
	BaseModel

	Type        string `gorm:"type:varchar(64);not null;uniqueIndex:uniq_outbox_dedup,priority:1" json:"type"`
	BookingID   string `gorm:"type:uuid;not null;uniqueIndex:uniq_outbox_dedup,priority:2" json:"booking_id"`
	CandidateID string `gorm:"type:uuid;not null;uniqueIndex:uniq_outbox_dedup,priority:3" json:"candidate_id"`

	RecruiterID   *string        `gorm:"type:uuid" json:"recruiter_id"`
	CorrelationID *string        `gorm:"type:uuid" json:"correlation_id"`
	Payload       datatypes.JSON `json:"payload"`

	Status      OutboxStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Attempts    int          `gorm:"not null;default:0" json:"attempts"`
	LockedAt    *time.Time   `gorm:"index" json:"locked_at"`
	NextRetryAt *time.Time   `gorm:"index" json:"next_retry_at"`
	LastError   *string      `gorm:"type:text" json:"last_error"`
}
