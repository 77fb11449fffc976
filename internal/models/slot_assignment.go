package models

import "time"

// AssignmentStatus enumerates the candidate-facing booking envelope states.
type AssignmentStatus string

const (
	AssignmentOffered             AssignmentStatus = "offered"
	AssignmentConfirmed           AssignmentStatus = "confirmed"
	AssignmentRescheduleRequested AssignmentStatus = "reschedule_requested"
	AssignmentRescheduleConfirmed AssignmentStatus = "reschedule_confirmed"
	AssignmentCanceled            AssignmentStatus = "canceled"
)

// ActiveAssignmentStatuses are the states in which an assignment blocks a new offer.
var ActiveAssignmentStatuses = []AssignmentStatus{
	AssignmentOffered,
	AssignmentConfirmed,
	AssignmentRescheduleRequested,
	AssignmentRescheduleConfirmed,
}

// SlotAssignment is the booking envelope a candidate interacts with, distinct
// from the raw slot so reschedules keep their history.
//
// ActiveKey mirrors CandidateID while the assignment is in an active status and
// is NULL once it reaches a terminal state. The unique index on it enforces
// at most one active assignment per candidate; the pre-check in the coordinator
// produces the friendly conflict result, the constraint catches the race.
type SlotAssignment struct {
	BaseModel

	SlotID           string           `gorm:"type:uuid;not null;index" json:"slot_id"`
	OwnerID          string           `gorm:"type:uuid;not null;index" json:"owner_id"`
	CandidateID      string           `gorm:"type:uuid;not null;index" json:"candidate_id"`
	CandidateContact string           `gorm:"type:varchar(255)" json:"candidate_contact"`
	Status           AssignmentStatus `gorm:"type:varchar(32);not null;default:'offered'" json:"status"`
	ActiveKey        *string          `gorm:"type:uuid;uniqueIndex" json:"-"`

	StatusBeforeReschedule *AssignmentStatus `gorm:"type:varchar(32)" json:"status_before_reschedule"`

	OfferedAt   time.Time  `gorm:"not null" json:"offered_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
}

// IsActive reports whether the assignment is in a status that blocks new offers.
func (a *SlotAssignment) IsActive() bool {
	for _, status := range ActiveAssignmentStatuses {
		if a.Status == status {
			return true
		}
	}
	return false
}
