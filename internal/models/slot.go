package models

import "time"

// SlotStatus enumerates the lifecycle states of a bookable slot.
type SlotStatus string

const (
	SlotFree                 SlotStatus = "free"
	SlotPending              SlotStatus = "pending"
	SlotBooked               SlotStatus = "booked"
	SlotConfirmedByCandidate SlotStatus = "confirmed_by_candidate"
	SlotCanceled             SlotStatus = "canceled"
)

// SlotPurpose distinguishes interview slots from intro-day slots.
type SlotPurpose string

const (
	PurposeInterview SlotPurpose = "interview"
	PurposeIntroDay  SlotPurpose = "intro_day"
)

// ActiveSlotStatuses are the states in which a slot counts as held by a candidate.
var ActiveSlotStatuses = []SlotStatus{SlotPending, SlotBooked, SlotConfirmedByCandidate}

// Slot is a bookable time unit owned by one recruiter at one calendar instant.
//
// The composite unique index on (owner_id, candidate_id) is the last line of
// defense behind the row lock: two different slot rows can both look claimable
// for the same candidate/owner pair inside the race window, and the constraint
// rejects the loser. CandidateID is only populated while the hold is active so
// released and canceled slots never collide with future claims.
type Slot struct {
	BaseModel

	OwnerID         string      `gorm:"type:uuid;not null;index:idx_slots_owner_start,priority:1;uniqueIndex:uniq_slots_owner_candidate,priority:1" json:"owner_id"`
	LocationID      *string     `gorm:"type:uuid;index" json:"location_id"`
	StartAt         time.Time   `gorm:"not null;index:idx_slots_owner_start,priority:2" json:"start_at"`
	DurationMinutes int         `gorm:"not null;default:60" json:"duration_minutes"`
	Status          SlotStatus  `gorm:"type:varchar(32);not null;default:'free';index" json:"status"`
	Capacity        int         `gorm:"not null;default:1" json:"capacity"`
	Purpose         SlotPurpose `gorm:"type:varchar(16);not null;default:'interview'" json:"purpose"`

	CandidateID       *string `gorm:"type:uuid;uniqueIndex:uniq_slots_owner_candidate,priority:2" json:"candidate_id"`
	CandidateName     string  `gorm:"type:varchar(255)" json:"candidate_name"`
	CandidateTimezone string  `gorm:"type:varchar(64)" json:"candidate_timezone"`
}

// HeldBy reports whether the slot is actively held by the given candidate.
func (s *Slot) HeldBy(candidateID string) bool {
	return s.IsActive() && s.CandidateID != nil && *s.CandidateID == candidateID
}

// IsActive reports whether the slot is in a held (pending/booked/confirmed) state.
func (s *Slot) IsActive() bool {
	for _, status := range ActiveSlotStatuses {
		if s.Status == status {
			return true
		}
	}
	return false
}

// ClearCandidate resets the candidate-facing fields when a hold is released.
func (s *Slot) ClearCandidate() {
	s.CandidateID = nil
	s.CandidateName = ""
	s.CandidateTimezone = ""
}
