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

const defaultReservationLockTTL = 5 * time.Minute

// Outbox notification types emitted by the slot store.
const (
	NotificationSlotReserved       = "slot_reserved"
	NotificationBookingConfirmed   = "booking_confirmed"
	NotificationBookingDeclined    = "booking_declined"
	NotificationCandidateConfirmed = "candidate_confirmed"
)

// SlotStoreOption customises the SlotStore.
type SlotStoreOption func(*SlotStore)

// WithSlotClock injects a custom time source.
func WithSlotClock(clock func() time.Time) SlotStoreOption {
	return func(s *SlotStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithReservationLockTTL overrides how long a reservation lock stays live.
func WithReservationLockTTL(d time.Duration) SlotStoreOption {
	return func(s *SlotStore) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// SlotStore owns slot rows. Every mutation locks the target row first and
// completes the full claim→decide→commit sequence in one short transaction;
// unique constraints are the second enforcement layer behind the lock.
type SlotStore struct {
	db      *gorm.DB
	outbox  *OutboxService
	now     func() time.Time
	lockTTL time.Duration
}

// NewSlotStore constructs a slot store.
func NewSlotStore(db *gorm.DB, outbox *OutboxService, opts ...SlotStoreOption) (*SlotStore, error) {
	if db == nil {
		return nil, errors.New("slot store: db is required")
	}
	if outbox == nil {
		return nil, errors.New("slot store: outbox is required")
	}

	store := &SlotStore{
		db:      db,
		outbox:  outbox,
		now:     time.Now,
		lockTTL: defaultReservationLockTTL,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// ReserveInput describes a candidate's claim on a slot.
type ReserveInput struct {
	SlotID            string
	CandidateID       string
	CandidateName     string
	CandidateContact  string
	CandidateTimezone string

	// Optional stale-UI guards: the claim fails when the slot no longer
	// belongs to the owner/location the caller was looking at.
	ExpectedOwnerID    *string
	ExpectedLocationID *string

	Purpose      models.SlotPurpose
	AllowReplace bool
}

// Reserve claims a slot for a candidate. Exactly one of N concurrent calls on
// the same free slot wins; the rest observe the committed state and receive
// slot_taken or already_reserved. A candidate may hold slots with different
// owners simultaneously but only one active slot per owner.
func (s *SlotStore) Reserve(ctx context.Context, input ReserveInput) (*Result, error) {
	if input.SlotID == "" || input.CandidateID == "" {
		return nil, errors.New("slot store: slot id and candidate id are required")
	}

	purpose := input.Purpose
	if purpose == "" {
		purpose = models.PurposeInterview
	}

	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()

		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", input.SlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = conflict(OutcomeSlotTaken, "this time is no longer available, pick another")
				return nil
			}
			return fmt.Errorf("slot store: lock slot: %w", err)
		}

		if slot.Status == models.SlotCanceled || slot.Purpose != purpose || !slot.StartAt.After(now) {
			res = conflict(OutcomeSlotTaken, "this time is no longer available, pick another")
			return nil
		}
		if input.ExpectedOwnerID != nil && *input.ExpectedOwnerID != slot.OwnerID {
			res = conflict(OutcomeSlotTaken, "this time is no longer available, pick another")
			return nil
		}
		if input.ExpectedLocationID != nil &&
			(slot.LocationID == nil || *slot.LocationID != *input.ExpectedLocationID) {
			res = conflict(OutcomeSlotTaken, "this time is no longer available, pick another")
			return nil
		}

		if slot.Status != models.SlotFree {
			if slot.HeldBy(input.CandidateID) {
				res = okResult(OutcomeAlreadyReserved)
				res.Slot = &slot
				return nil
			}
			res = conflict(OutcomeSlotTaken, "this time is no longer available, pick another")
			return nil
		}

		// One active slot per candidate per owner. Holding slots with
		// different owners at the same time stays allowed.
		var prior models.Slot
		priorErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ? AND candidate_id = ? AND status IN ? AND id <> ?",
				slot.OwnerID, input.CandidateID, models.ActiveSlotStatuses, slot.ID).
			First(&prior).Error
		if priorErr == nil {
			if !input.AllowReplace {
				res = conflict(OutcomeDuplicateCandidate, "an active slot with this recruiter already exists")
				res.Slot = &prior
				return nil
			}
			if err := s.release(tx, &prior); err != nil {
				return err
			}
		} else if !errors.Is(priorErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("slot store: find prior slot: %w", priorErr)
		}

		if err := tx.Where("expires_at <= ?", now).
			Delete(&models.ReservationLock{}).Error; err != nil {
			return fmt.Errorf("slot store: purge expired locks: %w", err)
		}

		day := timeutil.DayKey(slot.StartAt, "")

		var held models.ReservationLock
		lockErr := tx.Where("candidate_id = ? AND owner_id = ? AND reservation_date = ?",
			input.CandidateID, slot.OwnerID, day).
			First(&held).Error
		switch {
		case lockErr == nil && held.SlotID != slot.ID:
			// A claim from another tab is already in flight for this day.
			res = s.resolveHeldLock(tx, &held)
			return nil
		case lockErr == nil:
			if err := tx.Model(&held).Update("expires_at", now.Add(s.lockTTL)).Error; err != nil {
				return fmt.Errorf("slot store: refresh lock: %w", err)
			}
		case errors.Is(lockErr, gorm.ErrRecordNotFound):
			reservation := models.ReservationLock{
				CandidateID:     input.CandidateID,
				OwnerID:         slot.OwnerID,
				ReservationDate: day,
				SlotID:          slot.ID,
				ExpiresAt:       now.Add(s.lockTTL),
			}
			if err := tx.Create(&reservation).Error; err != nil {
				if isUniqueConstraintError(err) {
					return errReservationRace
				}
				return fmt.Errorf("slot store: create lock: %w", err)
			}
		default:
			return fmt.Errorf("slot store: find lock: %w", lockErr)
		}

		slot.Status = models.SlotPending
		candidateID := input.CandidateID
		slot.CandidateID = &candidateID
		slot.CandidateName = input.CandidateName
		slot.CandidateTimezone = input.CandidateTimezone

		if err := tx.Save(&slot).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errDuplicateHoldRace
			}
			return fmt.Errorf("slot store: claim slot: %w", err)
		}

		if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
			Type:        NotificationSlotReserved,
			BookingID:   slot.ID,
			CandidateID: input.CandidateID,
			RecruiterID: &slot.OwnerID,
			Payload: map[string]any{
				"slot_id":           slot.ID,
				"start_at":          slot.StartAt,
				"candidate_name":    input.CandidateName,
				"candidate_contact": input.CandidateContact,
			},
		}); err != nil {
			return err
		}

		res = okResult(OutcomeReserved)
		res.Slot = &slot
		return nil
	})

	switch {
	case errors.Is(err, errDuplicateHoldRace):
		// Lost the cross-row race on (owner, candidate): report the winner.
		return s.resolveDuplicate(ctx, input)
	case errors.Is(err, errReservationRace):
		return s.resolveLockRace(ctx, input)
	case err != nil:
		return nil, err
	}

	return res, nil
}

// resolveHeldLock maps a live lock pointing at a different slot to
// already_reserved against that slot, which absorbs double-claim races across
// two browser tabs.
func (s *SlotStore) resolveHeldLock(tx *gorm.DB, held *models.ReservationLock) *Result {
	res := okResult(OutcomeAlreadyReserved)
	var other models.Slot
	if err := tx.First(&other, "id = ?", held.SlotID).Error; err == nil {
		res.Slot = &other
	}
	res.Message = "a reservation with this recruiter is already in progress"
	return res
}

func (s *SlotStore) resolveDuplicate(ctx context.Context, input ReserveInput) (*Result, error) {
	var winner models.Slot
	err := s.db.WithContext(ctx).
		Where("candidate_id = ? AND status IN ?", input.CandidateID, models.ActiveSlotStatuses).
		Where("owner_id = (SELECT owner_id FROM slots WHERE id = ?)", input.SlotID).
		First(&winner).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("slot store: resolve duplicate: %w", err)
	}

	res := conflict(OutcomeDuplicateCandidate, "an active slot with this recruiter already exists")
	if err == nil {
		res.Slot = &winner
	}
	return res, nil
}

func (s *SlotStore) resolveLockRace(ctx context.Context, input ReserveInput) (*Result, error) {
	var slot models.Slot
	if err := s.db.WithContext(ctx).First(&slot, "id = ?", input.SlotID).Error; err != nil {
		return nil, fmt.Errorf("slot store: resolve lock race: %w", err)
	}

	day := timeutil.DayKey(slot.StartAt, "")
	var held models.ReservationLock
	err := s.db.WithContext(ctx).
		Where("candidate_id = ? AND owner_id = ? AND reservation_date = ?",
			input.CandidateID, slot.OwnerID, day).
		First(&held).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The competing claim released its lock already; let the caller retry.
			return conflict(OutcomeSlotTaken, "this time is no longer available, pick another"), nil
		}
		return nil, fmt.Errorf("slot store: resolve lock race: %w", err)
	}

	return s.resolveHeldLock(s.db.WithContext(ctx), &held), nil
}

// release frees a previously held slot and purges its lock and confirmation rows.
func (s *SlotStore) release(tx *gorm.DB, slot *models.Slot) error {
	if err := tx.Where("slot_id = ?", slot.ID).
		Delete(&models.ReservationLock{}).Error; err != nil {
		return fmt.Errorf("slot store: purge locks: %w", err)
	}
	// Includes legacy confirmation rows with a null candidate reference.
	if err := tx.Where("slot_id = ?", slot.ID).
		Delete(&models.SlotConfirmation{}).Error; err != nil {
		return fmt.Errorf("slot store: purge confirmations: %w", err)
	}

	slot.Status = models.SlotFree
	slot.Purpose = models.PurposeInterview
	slot.ClearCandidate()
	if err := tx.Save(slot).Error; err != nil {
		return fmt.Errorf("slot store: release slot: %w", err)
	}
	return nil
}

// Approve moves a pending slot to booked and notifies the candidate. Booked and
// candidate-confirmed slots are idempotently accepted without re-mutating.
func (s *SlotStore) Approve(ctx context.Context, slotID string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = notFound("slot not found")
				return nil
			}
			return fmt.Errorf("slot store: lock slot: %w", err)
		}

		switch slot.Status {
		case models.SlotBooked, models.SlotConfirmedByCandidate:
			res = okResult(OutcomeApproved)
			res.Slot = &slot
			return nil
		case models.SlotPending:
			// fall through to approve
		default:
			res = conflict(OutcomeInvalidStatus, "slot is not awaiting approval")
			return nil
		}

		slot.Status = models.SlotBooked
		if err := tx.Save(&slot).Error; err != nil {
			return fmt.Errorf("slot store: approve slot: %w", err)
		}

		if slot.CandidateID != nil {
			if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
				Type:        NotificationBookingConfirmed,
				BookingID:   slot.ID,
				CandidateID: *slot.CandidateID,
				RecruiterID: &slot.OwnerID,
				Payload: map[string]any{
					"slot_id":  slot.ID,
					"start_at": slot.StartAt,
				},
			}); err != nil {
				return err
			}
		}

		res = okResult(OutcomeApproved)
		res.Slot = &slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Reject releases a slot back to free, purging its lock and confirmation rows.
// When outboxType is non-empty a decline notification is enqueued for the
// candidate that held the slot.
func (s *SlotStore) Reject(ctx context.Context, slotID, outboxType string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = notFound("slot not found")
				return nil
			}
			return fmt.Errorf("slot store: lock slot: %w", err)
		}

		heldBy := slot.CandidateID

		if err := s.release(tx, &slot); err != nil {
			return err
		}

		if outboxType != "" && heldBy != nil {
			if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
				Type:        outboxType,
				BookingID:   slot.ID,
				CandidateID: *heldBy,
				RecruiterID: &slot.OwnerID,
				Payload: map[string]any{
					"slot_id":  slot.ID,
					"start_at": slot.StartAt,
				},
			}); err != nil {
				return err
			}
		}

		res = okResult(OutcomeRejected)
		res.Slot = &slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ConfirmByCandidate records the candidate's confirmation click. PENDING is
// accepted alongside BOOKED because the owner's approval may race with the
// click; the later action simply advances the state. Retries return
// already_confirmed instead of double-notifying.
func (s *SlotStore) ConfirmByCandidate(ctx context.Context, slotID string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()

		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = notFound("slot not found")
				return nil
			}
			return fmt.Errorf("slot store: lock slot: %w", err)
		}

		if slot.Status == models.SlotConfirmedByCandidate {
			res = okResult(OutcomeAlreadyConfirmed)
			res.Slot = &slot
			return nil
		}
		if slot.Status != models.SlotBooked && slot.Status != models.SlotPending {
			res = conflict(OutcomeInvalidStatus, "slot cannot be confirmed in its current state")
			return nil
		}

		var existing models.SlotConfirmation
		logErr := tx.Where("slot_id = ?", slot.ID).First(&existing).Error
		if logErr == nil {
			res = okResult(OutcomeAlreadyConfirmed)
			res.Slot = &slot
			return nil
		}
		if !errors.Is(logErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("slot store: check confirmation log: %w", logErr)
		}

		confirmation := models.SlotConfirmation{
			SlotID:      slot.ID,
			CandidateID: slot.CandidateID,
			ConfirmedAt: now,
		}
		if err := tx.Create(&confirmation).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errConfirmationRace
			}
			return fmt.Errorf("slot store: log confirmation: %w", err)
		}

		slot.Status = models.SlotConfirmedByCandidate
		if err := tx.Save(&slot).Error; err != nil {
			return fmt.Errorf("slot store: confirm slot: %w", err)
		}

		if slot.CandidateID != nil {
			if _, err := s.outbox.Enqueue(ctx, tx, EnqueueInput{
				Type:        NotificationCandidateConfirmed,
				BookingID:   slot.ID,
				CandidateID: *slot.CandidateID,
				RecruiterID: &slot.OwnerID,
				Payload: map[string]any{
					"slot_id":  slot.ID,
					"start_at": slot.StartAt,
				},
			}); err != nil {
				return err
			}
		}

		res = okResult(OutcomeConfirmed)
		res.Slot = &slot
		return nil
	})

	if errors.Is(err, errConfirmationRace) {
		// A concurrent duplicate won; re-read and report already_confirmed.
		var slot models.Slot
		if readErr := s.db.WithContext(ctx).First(&slot, "id = ?", slotID).Error; readErr != nil {
			return nil, fmt.Errorf("slot store: re-read after confirmation race: %w", readErr)
		}
		res = okResult(OutcomeAlreadyConfirmed)
		res.Slot = &slot
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
