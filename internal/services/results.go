package services

import "github.com/hiredeck/hiredeck/internal/models"

// Outcome tags the result of a booking operation. Conflicts are values, not
// errors: only infrastructure failures propagate as Go errors.
type Outcome string

const (
	OutcomeReserved           Outcome = "reserved"
	OutcomeAlreadyReserved    Outcome = "already_reserved"
	OutcomeDuplicateCandidate Outcome = "duplicate_candidate"
	OutcomeSlotTaken          Outcome = "slot_taken"
	OutcomeSlotFull           Outcome = "slot_full"
	OutcomeSlotInPast         Outcome = "slot_in_past"

	OutcomeApproved         Outcome = "approved"
	OutcomeRejected         Outcome = "rejected"
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeAlreadyConfirmed Outcome = "already_confirmed"

	OutcomeOffered                      Outcome = "offered"
	OutcomeCandidateHasActiveAssignment Outcome = "candidate_has_active_assignment"
	OutcomeRescheduleRequested          Outcome = "reschedule_requested"
	OutcomeAlreadyRequested             Outcome = "already_requested"
	OutcomeRescheduleApproved           Outcome = "reschedule_approved"
	OutcomeRescheduleDeclined           Outcome = "reschedule_declined"
	OutcomeAlternativeProposed          Outcome = "alternative_proposed"
	OutcomeCanceled                     Outcome = "canceled"
	OutcomeRequestedTimeInPast          Outcome = "requested_time_in_past"

	OutcomeTokenNotFound Outcome = "token_not_found"
	OutcomeTokenMismatch Outcome = "token_mismatch"
	OutcomeTokenUsed     Outcome = "token_used"
	OutcomeTokenExpired  Outcome = "token_expired"

	OutcomeInvalidStatus Outcome = "invalid_status"
	OutcomeNotFound      Outcome = "not_found"
)

// Result is the structured return value of every booking operation. OK is true
// for successful and idempotent-positive outcomes (already_reserved,
// already_confirmed, already_requested).
type Result struct {
	OK      bool    `json:"ok"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`

	Slot       *models.Slot           `json:"slot,omitempty"`
	Assignment *models.SlotAssignment `json:"assignment,omitempty"`

	// Populated only when an offer mints fresh capability links.
	ConfirmToken    string `json:"confirm_token,omitempty"`
	RescheduleToken string `json:"reschedule_token,omitempty"`
}

func okResult(outcome Outcome) *Result {
	return &Result{OK: true, Outcome: outcome}
}

func conflict(outcome Outcome, message string) *Result {
	return &Result{OK: false, Outcome: outcome, Message: message}
}

func notFound(message string) *Result {
	return &Result{OK: false, Outcome: OutcomeNotFound, Message: message}
}
