package models

import "time"

// ReservationLock is an ephemeral uniqueness guard preventing one candidate from
// holding two pending slots with the same recruiter on the same calendar day.
// Rows self-expire; the sweep at the top of every reserve call keeps the table
// small, a cron job handles eventual cleanup.
type ReservationLock struct {
	BaseModel

	CandidateID     string    `gorm:"type:uuid;not null;uniqueIndex:uniq_reservation_locks_scope,priority:1" json:"candidate_id"`
	OwnerID         string    `gorm:"type:uuid;not null;uniqueIndex:uniq_reservation_locks_scope,priority:2" json:"owner_id"`
	ReservationDate string    `gorm:"type:varchar(10);not null;uniqueIndex:uniq_reservation_locks_scope,priority:3" json:"reservation_date"`
	SlotID          string    `gorm:"type:uuid;not null;index" json:"slot_id"`
	ExpiresAt       time.Time `gorm:"not null;index" json:"expires_at"`
}

// Live reports whether the lock is still in force at the given instant.
func (l *ReservationLock) Live(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
