package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/pkg/timeutil"
)

const defaultSlotDurationMinutes = 60

// Outbox notification types emitted by the assignment coordinator.
const (
	NotificationAssignmentOffer     = "assignment_offer"
	NotificationAssignmentConfirmed = "assignment_confirmed"
	NotificationAssignmentCanceled  = "assignment_canceled"
	NotificationRescheduleRequested = "reschedule_requested"
	NotificationRescheduleApproved  = "reschedule_approved"
	NotificationRescheduleDeclined  = "reschedule_declined"
)

// Statuses from which confirm and reschedule entry points are reachable.
var confirmableStatuses = []models.AssignmentStatus{
	models.AssignmentOffered,
	models.AssignmentConfirmed,
	models.AssignmentRescheduleConfirmed,
}

// AssignmentOption customises the AssignmentService.
type AssignmentOption func(*AssignmentService)

// WithAssignmentClock injects a custom time source.
func WithAssignmentClock(clock func() time.Time) AssignmentOption {
	return func(s *AssignmentService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithOfferTokenTTL overrides the lifetime of minted confirm/reschedule tokens.
func WithOfferTokenTTL(d time.Duration) AssignmentOption {
	return func(s *AssignmentService) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

// AssignmentService orchestrates the offer → confirm / reschedule-request →
// approve/decline flows on top of the slot store and the token service.
type AssignmentService struct {
	db       *gorm.DB
	tokens   *ActionTokenService
	outbox   *OutboxService
	now      func() time.Time
	tokenTTL time.Duration
}

// NewAssignmentService constructs an assignment coordinator.
func NewAssignmentService(db *gorm.DB, tokens *ActionTokenService, outbox *OutboxService, opts ...AssignmentOption) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("assignment service: token service is required")
	}
	if outbox == nil {
		return nil, errors.New("assignment service: outbox is required")
	}

	service := &AssignmentService{
		db:       db,
		tokens:   tokens,
		outbox:   outbox,
		now:      time.Now,
		tokenTTL: defaultTokenTTL,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateOfferInput describes a new offer for a candidate on a slot.
type CreateOfferInput struct {
	SlotID           string
	CandidateID      string
	CandidateContact string
}

// CreateOffer creates an OFFERED assignment with a fresh confirm/reschedule
// token pair and enqueues the offer notification, all in one transaction.
func (s *AssignmentService) CreateOffer(ctx context.Context, input CreateOfferInput) (*Result, error) {
	if input.SlotID == "" || input.CandidateID == "" {
		return nil, errors.New("assignment service: slot id and candidate id are required")
	}

	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()

		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", input.SlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = notFound("slot not found")
				return nil
			}
			return fmt.Errorf("assignment service: lock slot: %w", err)
		}

		if slot.Status == models.SlotCanceled {
			res = conflict(OutcomeSlotTaken, "this time is no longer available, pick another")
			return nil
		}
		if !slot.StartAt.After(now) {
			res = conflict(OutcomeSlotInPast, "slot start time is in the past")
			return nil
		}

		full, err := s.slotFull(tx, &slot, "")
		if err != nil {
			return err
		}
		if full {
			res = conflict(OutcomeSlotFull, "this slot is full")
			return nil
		}

		var active models.SlotAssignment
		activeErr := tx.Where("candidate_id = ? AND active_key IS NOT NULL", input.CandidateID).
			First(&active).Error
		if activeErr == nil {
			res = conflict(OutcomeCandidateHasActiveAssignment, "candidate already has an active assignment")
			res.Assignment = &active
			return nil
		}
		if !errors.Is(activeErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("assignment service: check active assignment: %w", activeErr)
		}

		candidateID := input.CandidateID
		assignment := models.SlotAssignment{
			SlotID:           slot.ID,
			OwnerID:          slot.OwnerID,
			CandidateID:      candidateID,
			CandidateContact: input.CandidateContact,
			Status:           models.AssignmentOffered,
			ActiveKey:        &candidateID,
			OfferedAt:        now,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errActiveOfferRace
			}
			return fmt.Errorf("assignment service: create assignment: %w", err)
		}

		confirmToken, rescheduleToken, err := s.mintTokenPair(ctx, tx, assignment.ID)
		if err != nil {
			return err
		}

		if err := s.enqueueOffer(ctx, tx, &assignment, &slot, confirmToken, rescheduleToken); err != nil {
			return err
		}

		res = okResult(OutcomeOffered)
		res.Assignment = &assignment
		res.Slot = &slot
		res.ConfirmToken = confirmToken
		res.RescheduleToken = rescheduleToken
		return nil
	})

	if errors.Is(err, errActiveOfferRace) {
		// Lost the insert race on the active-assignment constraint.
		var active models.SlotAssignment
		readErr := s.db.WithContext(ctx).
			Where("candidate_id = ? AND active_key IS NOT NULL", input.CandidateID).
			First(&active).Error
		if readErr != nil && !errors.Is(readErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assignment service: resolve offer race: %w", readErr)
		}
		res = conflict(OutcomeCandidateHasActiveAssignment, "candidate already has an active assignment")
		if readErr == nil {
			res.Assignment = &active
		}
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Confirm redeems a confirm token. A token failure against an
// already-confirmed assignment reports already_confirmed; any other token
// failure is surfaced as its own outcome.
func (s *AssignmentService) Confirm(ctx context.Context, assignmentID, token, candidateContact string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()

		assignment, slot, r, err := s.lockAssignment(tx, assignmentID)
		if r != nil || err != nil {
			res = r
			return err
		}

		if !statusIn(assignment.Status, confirmableStatuses) {
			res = conflict(OutcomeInvalidStatus, "assignment cannot be confirmed in its current state")
			return nil
		}

		// Another assignment may have filled the slot since the offer.
		full, err := s.slotFull(tx, slot, assignment.ID)
		if err != nil {
			return err
		}
		if full {
			res = conflict(OutcomeSlotFull, "this slot is full")
			return nil
		}

		status, err := s.tokens.Consume(ctx, tx, token, models.TokenActionConfirm, assignment.ID)
		if err != nil {
			return err
		}
		if status != TokenOK {
			if assignment.Status == models.AssignmentConfirmed {
				res = okResult(OutcomeAlreadyConfirmed)
				res.Assignment = assignment
				return nil
			}
			res = conflict(tokenOutcome(status), "this link has expired, request a new one")
			return nil
		}

		if assignment.Status == models.AssignmentConfirmed {
			res = okResult(OutcomeAlreadyConfirmed)
			res.Assignment = assignment
			return nil
		}

		assignment.Status = models.AssignmentConfirmed
		assignment.ConfirmedAt = &now
		if candidateContact != "" {
			assignment.CandidateContact = candidateContact
		}
		if err := tx.Save(assignment).Error; err != nil {
			return fmt.Errorf("assignment service: confirm: %w", err)
		}

		if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
			Type:        NotificationAssignmentConfirmed,
			BookingID:   assignment.ID,
			CandidateID: assignment.CandidateID,
			RecruiterID: &assignment.OwnerID,
			Payload: map[string]any{
				"assignment_id": assignment.ID,
				"slot_id":       assignment.SlotID,
				"start_at":      slot.StartAt,
			},
		}); err != nil {
			return err
		}

		res = okResult(OutcomeConfirmed)
		res.Assignment = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RequestRescheduleInput carries the candidate's requested new time.
type RequestRescheduleInput struct {
	RequestedStart time.Time
	Timezone       string
	Comment        string
}

// RequestReschedule redeems a reschedule token and records a pending request.
// A second request while one is pending is an idempotent no-op.
func (s *AssignmentService) RequestReschedule(ctx context.Context, assignmentID, token string, input RequestRescheduleInput) (*Result, error) {
	instant, err := timeutil.NormalizeLocal(input.RequestedStart, input.Timezone)
	if err != nil {
		return nil, err
	}

	var res *Result
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()

		assignment, _, r, err := s.lockAssignment(tx, assignmentID)
		if r != nil || err != nil {
			res = r
			return err
		}

		if assignment.Status == models.AssignmentRescheduleRequested {
			res = okResult(OutcomeAlreadyRequested)
			res.Assignment = assignment
			return nil
		}
		if !statusIn(assignment.Status, confirmableStatuses) {
			res = conflict(OutcomeInvalidStatus, "assignment cannot be rescheduled in its current state")
			return nil
		}

		var pending models.RescheduleRequest
		pendingErr := tx.Where("slot_assignment_id = ? AND pending_key IS NOT NULL", assignment.ID).
			First(&pending).Error
		if pendingErr == nil {
			res = okResult(OutcomeAlreadyRequested)
			res.Assignment = assignment
			return nil
		}
		if !errors.Is(pendingErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("assignment service: check pending request: %w", pendingErr)
		}

		if !instant.After(now) {
			res = conflict(OutcomeRequestedTimeInPast, "requested time is in the past")
			return nil
		}

		status, err := s.tokens.Consume(ctx, tx, token, models.TokenActionReschedule, assignment.ID)
		if err != nil {
			return err
		}
		if status != TokenOK {
			res = conflict(tokenOutcome(status), "this link has expired, request a new one")
			return nil
		}

		statusBefore := assignment.Status
		assignment.StatusBeforeReschedule = &statusBefore
		assignment.Status = models.AssignmentRescheduleRequested
		if err := tx.Save(assignment).Error; err != nil {
			return fmt.Errorf("assignment service: flip to reschedule_requested: %w", err)
		}

		assignmentID := assignment.ID
		request := models.RescheduleRequest{
			SlotAssignmentID:  assignmentID,
			RequestedStartAt:  instant,
			RequestedTimezone: input.Timezone,
			Comment:           input.Comment,
			Status:            models.ReschedulePending,
			PendingKey:        &assignmentID,
		}
		if err := tx.Create(&request).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errPendingRequestRace
			}
			return fmt.Errorf("assignment service: create reschedule request: %w", err)
		}

		if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
			Type:        NotificationRescheduleRequested,
			BookingID:   assignment.ID,
			CandidateID: assignment.CandidateID,
			RecruiterID: &assignment.OwnerID,
			Payload: map[string]any{
				"assignment_id":      assignment.ID,
				"requested_start_at": instant,
				"comment":            input.Comment,
			},
		}); err != nil {
			return err
		}

		res = okResult(OutcomeRescheduleRequested)
		res.Assignment = assignment
		return nil
	})

	if errors.Is(txErr, errPendingRequestRace) {
		var assignment models.SlotAssignment
		if readErr := s.db.WithContext(ctx).First(&assignment, "id = ?", assignmentID).Error; readErr != nil {
			return nil, fmt.Errorf("assignment service: resolve request race: %w", readErr)
		}
		res = okResult(OutcomeAlreadyRequested)
		res.Assignment = &assignment
		return res, nil
	}
	if txErr != nil {
		return nil, txErr
	}
	return res, nil
}

// ApproveReschedule moves the assignment onto a slot at the requested instant,
// creating the slot when none exists for that owner and time.
func (s *AssignmentService) ApproveReschedule(ctx context.Context, assignmentID, decidedBy string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, _, r, err := s.lockAssignment(tx, assignmentID)
		if r != nil || err != nil {
			res = r
			return err
		}

		request, r, err := s.lockPendingRequest(tx, assignment.ID)
		if r != nil || err != nil {
			res = r
			return err
		}

		target, r, err := s.findOrCreateSlot(tx, assignment, request.RequestedStartAt)
		if r != nil || err != nil {
			res = r
			return err
		}

		assignment.SlotID = target.ID
		assignment.Status = models.AssignmentRescheduleConfirmed
		assignment.StatusBeforeReschedule = nil
		if err := tx.Save(assignment).Error; err != nil {
			return fmt.Errorf("assignment service: approve reschedule: %w", err)
		}

		// The confirm/reschedule links were minted for the old slot time.
		if _, err := s.tokens.InvalidateAll(ctx, tx, assignment.ID); err != nil {
			return err
		}

		if err := s.decideRequest(tx, request, models.RescheduleApproved, decidedBy, &target.ID); err != nil {
			return err
		}

		if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
			Type:        NotificationRescheduleApproved,
			BookingID:   assignment.ID,
			CandidateID: assignment.CandidateID,
			RecruiterID: &assignment.OwnerID,
			Payload: map[string]any{
				"assignment_id": assignment.ID,
				"slot_id":       target.ID,
				"start_at":      target.StartAt,
			},
		}); err != nil {
			return err
		}

		res = okResult(OutcomeRescheduleApproved)
		res.Assignment = assignment
		res.Slot = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ProposeAlternativeInput carries the recruiter's counter-proposal.
type ProposeAlternativeInput struct {
	ProposedStart time.Time
	Timezone      string
}

// ProposeAlternative re-offers the assignment on a slot at the proposed
// instant with a fresh token pair, invalidating the old links.
func (s *AssignmentService) ProposeAlternative(ctx context.Context, assignmentID, decidedBy string, input ProposeAlternativeInput) (*Result, error) {
	instant, err := timeutil.NormalizeLocal(input.ProposedStart, input.Timezone)
	if err != nil {
		return nil, err
	}

	var res *Result
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()
		if !instant.After(now) {
			res = conflict(OutcomeRequestedTimeInPast, "proposed time is in the past")
			return nil
		}

		assignment, _, r, err := s.lockAssignment(tx, assignmentID)
		if r != nil || err != nil {
			res = r
			return err
		}

		request, r, err := s.lockPendingRequest(tx, assignment.ID)
		if r != nil || err != nil {
			res = r
			return err
		}

		target, r, err := s.findOrCreateSlot(tx, assignment, instant)
		if r != nil || err != nil {
			res = r
			return err
		}

		assignment.SlotID = target.ID
		assignment.Status = models.AssignmentOffered
		assignment.StatusBeforeReschedule = nil
		assignment.ConfirmedAt = nil
		if err := tx.Save(assignment).Error; err != nil {
			return fmt.Errorf("assignment service: propose alternative: %w", err)
		}

		if _, err := s.tokens.InvalidateAll(ctx, tx, assignment.ID); err != nil {
			return err
		}
		confirmToken, rescheduleToken, err := s.mintTokenPair(ctx, tx, assignment.ID)
		if err != nil {
			return err
		}

		if err := s.decideRequest(tx, request, models.RescheduleApproved, decidedBy, &target.ID); err != nil {
			return err
		}

		if err := s.enqueueOffer(ctx, tx, assignment, target, confirmToken, rescheduleToken); err != nil {
			return err
		}

		res = okResult(OutcomeAlternativeProposed)
		res.Assignment = assignment
		res.Slot = target
		res.ConfirmToken = confirmToken
		res.RescheduleToken = rescheduleToken
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return res, nil
}

// DeclineReschedule restores the assignment to its pre-request status.
func (s *AssignmentService) DeclineReschedule(ctx context.Context, assignmentID, decidedBy string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, slot, r, err := s.lockAssignment(tx, assignmentID)
		if r != nil || err != nil {
			res = r
			return err
		}

		request, r, err := s.lockPendingRequest(tx, assignment.ID)
		if r != nil || err != nil {
			res = r
			return err
		}

		restored := models.AssignmentConfirmed
		if assignment.StatusBeforeReschedule != nil {
			restored = *assignment.StatusBeforeReschedule
		}
		assignment.Status = restored
		assignment.StatusBeforeReschedule = nil
		if err := tx.Save(assignment).Error; err != nil {
			return fmt.Errorf("assignment service: decline reschedule: %w", err)
		}

		if err := s.decideRequest(tx, request, models.RescheduleDeclined, decidedBy, nil); err != nil {
			return err
		}

		if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
			Type:        NotificationRescheduleDeclined,
			BookingID:   assignment.ID,
			CandidateID: assignment.CandidateID,
			RecruiterID: &assignment.OwnerID,
			Payload: map[string]any{
				"assignment_id": assignment.ID,
				"slot_id":       assignment.SlotID,
				"start_at":      slot.StartAt,
			},
		}); err != nil {
			return err
		}

		res = okResult(OutcomeRescheduleDeclined)
		res.Assignment = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel retires an assignment, releasing its active-candidate key and
// invalidating any outstanding capability links.
func (s *AssignmentService) Cancel(ctx context.Context, assignmentID string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, _, r, err := s.lockAssignment(tx, assignmentID)
		if r != nil || err != nil {
			res = r
			return err
		}

		if assignment.Status == models.AssignmentCanceled {
			res = okResult(OutcomeCanceled)
			res.Assignment = assignment
			return nil
		}

		assignment.Status = models.AssignmentCanceled
		assignment.ActiveKey = nil
		assignment.StatusBeforeReschedule = nil
		if err := tx.Save(assignment).Error; err != nil {
			return fmt.Errorf("assignment service: cancel: %w", err)
		}

		if _, err := s.tokens.InvalidateAll(ctx, tx, assignment.ID); err != nil {
			return err
		}

		if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
			Type:        NotificationAssignmentCanceled,
			BookingID:   assignment.ID,
			CandidateID: assignment.CandidateID,
			RecruiterID: &assignment.OwnerID,
			Payload: map[string]any{
				"assignment_id": assignment.ID,
			},
		}); err != nil {
			return err
		}

		res = okResult(OutcomeCanceled)
		res.Assignment = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lockAssignment loads the assignment and its slot under row locks. The
// assignment lock is always taken first to keep lock ordering consistent
// across coordinator operations.
func (s *AssignmentService) lockAssignment(tx *gorm.DB, assignmentID string) (*models.SlotAssignment, *models.Slot, *Result, error) {
	var assignment models.SlotAssignment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&assignment, "id = ?", assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("assignment not found"), nil
		}
		return nil, nil, nil, fmt.Errorf("assignment service: lock assignment: %w", err)
	}

	var slot models.Slot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, "id = ?", assignment.SlotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("slot not found"), nil
		}
		return nil, nil, nil, fmt.Errorf("assignment service: lock slot: %w", err)
	}

	return &assignment, &slot, nil, nil
}

func (s *AssignmentService) lockPendingRequest(tx *gorm.DB, assignmentID string) (*models.RescheduleRequest, *Result, error) {
	var request models.RescheduleRequest
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("slot_assignment_id = ? AND pending_key IS NOT NULL", assignmentID).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("no pending reschedule request"), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("assignment service: lock pending request: %w", err)
	}
	return &request, nil, nil
}

func (s *AssignmentService) decideRequest(tx *gorm.DB, request *models.RescheduleRequest, status models.RescheduleStatus, decidedBy string, alternativeSlotID *string) error {
	request.Status = status
	request.PendingKey = nil
	request.AlternativeSlotID = alternativeSlotID
	if decidedBy != "" {
		request.DecidedBy = &decidedBy
	}
	if err := tx.Save(request).Error; err != nil {
		return fmt.Errorf("assignment service: decide request: %w", err)
	}
	return nil
}

// findOrCreateSlot locates a live slot for the owner at the exact instant,
// creating one when absent, and re-checks capacity on an existing slot.
func (s *AssignmentService) findOrCreateSlot(tx *gorm.DB, assignment *models.SlotAssignment, startAt time.Time) (*models.Slot, *Result, error) {
	var slot models.Slot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ? AND start_at = ? AND status <> ?",
			assignment.OwnerID, startAt.UTC(), models.SlotCanceled).
		First(&slot).Error
	if err == nil {
		full, fullErr := s.slotFull(tx, &slot, assignment.ID)
		if fullErr != nil {
			return nil, nil, fullErr
		}
		if full {
			return nil, conflict(OutcomeSlotFull, "this slot is full"), nil
		}
		return &slot, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("assignment service: find target slot: %w", err)
	}

	slot = models.Slot{
		OwnerID:         assignment.OwnerID,
		StartAt:         startAt.UTC(),
		DurationMinutes: defaultSlotDurationMinutes,
		Status:          models.SlotFree,
		Capacity:        1,
		Purpose:         models.PurposeInterview,
	}
	if err := tx.Create(&slot).Error; err != nil {
		return nil, nil, fmt.Errorf("assignment service: create target slot: %w", err)
	}
	return &slot, nil, nil
}

// slotFull counts active assignments riding on the slot, optionally excluding
// one assignment (the caller's own), against the slot capacity.
func (s *AssignmentService) slotFull(tx *gorm.DB, slot *models.Slot, excludeAssignmentID string) (bool, error) {
	query := tx.Model(&models.SlotAssignment{}).
		Where("slot_id = ? AND status IN ?", slot.ID, models.ActiveAssignmentStatuses)
	if excludeAssignmentID != "" {
		query = query.Where("id <> ?", excludeAssignmentID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("assignment service: count assignments: %w", err)
	}

	capacity := slot.Capacity
	if capacity < 1 {
		capacity = 1
	}
	return count >= int64(capacity), nil
}

func (s *AssignmentService) mintTokenPair(ctx context.Context, tx *gorm.DB, assignmentID string) (string, string, error) {
	confirmToken, _, err := s.tokens.Issue(ctx, tx, models.TokenActionConfirm, assignmentID, s.tokenTTL)
	if err != nil {
		return "", "", err
	}
	rescheduleToken, _, err := s.tokens.Issue(ctx, tx, models.TokenActionReschedule, assignmentID, s.tokenTTL)
	if err != nil {
		return "", "", err
	}
	return confirmToken, rescheduleToken, nil
}

func (s *AssignmentService) enqueueOffer(ctx context.Context, tx *gorm.DB, assignment *models.SlotAssignment, slot *models.Slot, confirmToken, rescheduleToken string) error {
	_, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
		Type:        NotificationAssignmentOffer,
		BookingID:   assignment.ID,
		CandidateID: assignment.CandidateID,
		RecruiterID: &assignment.OwnerID,
		Payload: map[string]any{
			"assignment_id":    assignment.ID,
			"slot_id":          slot.ID,
			"start_at":         slot.StartAt,
			"confirm_token":    confirmToken,
			"reschedule_token": rescheduleToken,
		},
	})
	return err
}

func statusIn(status models.AssignmentStatus, set []models.AssignmentStatus) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}
