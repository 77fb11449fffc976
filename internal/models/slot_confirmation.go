package models

import "time"

// SlotConfirmation logs a candidate's confirmation click for a slot. The unique
// index converts a true concurrent duplicate confirmation into a constraint
// violation that the store maps back to already_confirmed.
type SlotConfirmation struct {
	BaseModel

	SlotID      string    `gorm:"type:uuid;not null;uniqueIndex:uniq_slot_confirmations,priority:1" json:"slot_id"`
	CandidateID *string   `gorm:"type:uuid;uniqueIndex:uniq_slot_confirmations,priority:2" json:"candidate_id"`
	ConfirmedAt time.Time `gorm:"not null" json:"confirmed_at"`
}
