package models

import "time"

// RescheduleStatus enumerates the decision states of a reschedule request.
type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleApproved RescheduleStatus = "approved"
	RescheduleDeclined RescheduleStatus = "declined"
)

// RescheduleRequest records a candidate-initiated request to move an assignment.
// PendingKey mirrors SlotAssignmentID while the request is pending and is NULL
// once decided; its unique index enforces at most one pending request per
// assignment.
type RescheduleRequest struct {
	BaseModel

	SlotAssignmentID  string           `gorm:"type:uuid;not null;index" json:"slot_assignment_id"`
	RequestedStartAt  time.Time        `gorm:"not null" json:"requested_start_at"`
	RequestedTimezone string           `gorm:"type:varchar(64)" json:"requested_timezone"`
	Comment           string           `gorm:"type:text" json:"comment"`
	Status            RescheduleStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	PendingKey        *string          `gorm:"type:uuid;uniqueIndex" json:"-"`

	DecidedBy         *string `gorm:"type:uuid" json:"decided_by"`
	AlternativeSlotID *string `gorm:"type:uuid" json:"alternative_slot_id"`
}
