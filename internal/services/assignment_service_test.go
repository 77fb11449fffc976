package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/models"
)

func newTestAssignmentService(t *testing.T, db *gorm.DB, clock *time.Time) (*AssignmentService, *ActionTokenService) {
	t.Helper()

	tokens, err := NewActionTokenService(db, WithTokenClock(func() time.Time { return *clock }))
	require.NoError(t, err)
	outbox, err := NewOutboxService(db, WithOutboxClock(func() time.Time { return *clock }))
	require.NoError(t, err)
	svc, err := NewAssignmentService(db, tokens, outbox,
		WithAssignmentClock(func() time.Time { return *clock }))
	require.NoError(t, err)
	return svc, tokens
}

func mustCreateOffer(t *testing.T, svc *AssignmentService, db *gorm.DB, clock time.Time) (*Result, *models.Slot) {
	t.Helper()
	slot := createSlot(t, db, newID(), clock.Add(24*time.Hour))
	res, err := svc.CreateOffer(context.Background(), CreateOfferInput{
		SlotID:      slot.ID,
		CandidateID: newID(),
	})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeOffered, res.Outcome)
	return res, slot
}

func TestCreateOfferMintsTokenPair(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)

	res, slot := mustCreateOffer(t, svc, db, now)
	require.NotEmpty(t, res.ConfirmToken)
	require.NotEmpty(t, res.RescheduleToken)
	require.NotEqual(t, res.ConfirmToken, res.RescheduleToken)
	require.Equal(t, models.AssignmentOffered, res.Assignment.Status)
	require.NotNil(t, res.Assignment.ActiveKey)

	row := findOutboxRow(t, db, NotificationAssignmentOffer, res.Assignment.ID)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(row.Payload, &payload))
	require.Equal(t, res.ConfirmToken, payload["confirm_token"])
	require.Equal(t, res.RescheduleToken, payload["reschedule_token"])
	require.Equal(t, slot.ID, payload["slot_id"])
}

func TestCreateOfferBlocksSecondActiveAssignment(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	candidate := newID()
	s1 := createSlot(t, db, newID(), now.Add(24*time.Hour))
	s2 := createSlot(t, db, newID(), now.Add(48*time.Hour))

	res, err := svc.CreateOffer(ctx, CreateOfferInput{SlotID: s1.ID, CandidateID: candidate})
	require.NoError(t, err)
	require.Equal(t, OutcomeOffered, res.Outcome)
	firstID := res.Assignment.ID

	res, err = svc.CreateOffer(ctx, CreateOfferInput{SlotID: s2.ID, CandidateID: candidate})
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, OutcomeCandidateHasActiveAssignment, res.Outcome)
	require.Equal(t, firstID, res.Assignment.ID)
}

func TestCreateOfferSlotFull(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	slot := createSlot(t, db, newID(), now.Add(24*time.Hour))

	res, err := svc.CreateOffer(ctx, CreateOfferInput{SlotID: slot.ID, CandidateID: newID()})
	require.NoError(t, err)
	require.Equal(t, OutcomeOffered, res.Outcome)

	res, err = svc.CreateOffer(ctx, CreateOfferInput{SlotID: slot.ID, CandidateID: newID()})
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, OutcomeSlotFull, res.Outcome)
}

func TestCreateOfferPastSlot(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)

	slot := createSlot(t, db, newID(), now.Add(-time.Hour))

	res, err := svc.CreateOffer(context.Background(), CreateOfferInput{
		SlotID:      slot.ID,
		CandidateID: newID(),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSlotInPast, res.Outcome)
}

func TestConfirmIsIdempotent(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, _ := mustCreateOffer(t, svc, db, now)
	assignmentID := offer.Assignment.ID

	res, err := svc.Confirm(ctx, assignmentID, offer.ConfirmToken, "dana@example.com")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeConfirmed, res.Outcome)
	require.Equal(t, models.AssignmentConfirmed, res.Assignment.Status)
	require.NotNil(t, res.Assignment.ConfirmedAt)
	findOutboxRow(t, db, NotificationAssignmentConfirmed, assignmentID)

	// Replaying the same link lands on the used token but the assignment is
	// already confirmed, so the candidate sees success.
	res, err = svc.Confirm(ctx, assignmentID, offer.ConfirmToken, "")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeAlreadyConfirmed, res.Outcome)
}

func TestConfirmRejectsWrongToken(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, _ := mustCreateOffer(t, svc, db, now)

	res, err := svc.Confirm(ctx, offer.Assignment.ID, offer.RescheduleToken, "")
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, OutcomeTokenMismatch, res.Outcome)

	// The real link still works afterwards.
	res, err = svc.Confirm(ctx, offer.Assignment.ID, offer.ConfirmToken, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, res.Outcome)
}

func TestConfirmExpiredToken(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, _ := mustCreateOffer(t, svc, db, now)

	now = frozenNow.Add(72 * time.Hour)

	res, err := svc.Confirm(ctx, offer.Assignment.ID, offer.ConfirmToken, "")
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, OutcomeTokenExpired, res.Outcome)
}

func TestRequestRescheduleFlow(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, _ := mustCreateOffer(t, svc, db, now)
	assignmentID := offer.Assignment.ID

	requested := now.Add(72 * time.Hour)
	res, err := svc.RequestReschedule(ctx, assignmentID, offer.RescheduleToken, RequestRescheduleInput{
		RequestedStart: requested,
		Comment:        "conflict with exams",
	})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeRescheduleRequested, res.Outcome)
	require.Equal(t, models.AssignmentRescheduleRequested, res.Assignment.Status)
	require.NotNil(t, res.Assignment.StatusBeforeReschedule)
	require.Equal(t, models.AssignmentOffered, *res.Assignment.StatusBeforeReschedule)

	var request models.RescheduleRequest
	require.NoError(t, db.Where("slot_assignment_id = ?", assignmentID).First(&request).Error)
	require.Equal(t, models.ReschedulePending, request.Status)
	require.NotNil(t, request.PendingKey)
	findOutboxRow(t, db, NotificationRescheduleRequested, assignmentID)

	// A second request while one is pending is an idempotent no-op.
	res, err = svc.RequestReschedule(ctx, assignmentID, offer.RescheduleToken, RequestRescheduleInput{
		RequestedStart: requested.Add(time.Hour),
	})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeAlreadyRequested, res.Outcome)
}

func TestRequestReschedulePastTime(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)

	offer, _ := mustCreateOffer(t, svc, db, now)

	res, err := svc.RequestReschedule(context.Background(), offer.Assignment.ID, offer.RescheduleToken,
		RequestRescheduleInput{RequestedStart: now.Add(-time.Hour)})
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, OutcomeRequestedTimeInPast, res.Outcome)
}

func TestApproveRescheduleMovesAssignment(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, tokens := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, original := mustCreateOffer(t, svc, db, now)
	assignmentID := offer.Assignment.ID

	confirmRes, err := svc.Confirm(ctx, assignmentID, offer.ConfirmToken, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, confirmRes.Outcome)

	requested := now.Add(72 * time.Hour)
	_, err = svc.RequestReschedule(ctx, assignmentID, offer.RescheduleToken, RequestRescheduleInput{
		RequestedStart: requested,
	})
	require.NoError(t, err)

	recruiter := newID()
	res, err := svc.ApproveReschedule(ctx, assignmentID, recruiter)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeRescheduleApproved, res.Outcome)
	require.Equal(t, models.AssignmentRescheduleConfirmed, res.Assignment.Status)
	require.Equal(t, requested, res.Slot.StartAt.UTC())
	require.NotEqual(t, original.ID, res.Slot.ID)

	// The original slot row is untouched by the move.
	var untouched models.Slot
	require.NoError(t, db.First(&untouched, "id = ?", original.ID).Error)
	require.Equal(t, models.SlotFree, untouched.Status)

	var request models.RescheduleRequest
	require.NoError(t, db.Where("slot_assignment_id = ?", assignmentID).First(&request).Error)
	require.Equal(t, models.RescheduleApproved, request.Status)
	require.Nil(t, request.PendingKey)
	require.Equal(t, recruiter, *request.DecidedBy)
	require.Equal(t, res.Slot.ID, *request.AlternativeSlotID)

	// The links minted for the old time must be dead.
	status, err := tokens.Consume(ctx, nil, offer.ConfirmToken, models.TokenActionConfirm, assignmentID)
	require.NoError(t, err)
	require.Equal(t, TokenUsed, status)

	findOutboxRow(t, db, NotificationRescheduleApproved, assignmentID)
}

func TestApproveRescheduleWithoutPendingRequest(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)

	offer, _ := mustCreateOffer(t, svc, db, now)

	res, err := svc.ApproveReschedule(context.Background(), offer.Assignment.ID, newID())
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, OutcomeNotFound, res.Outcome)
}

func TestDeclineRescheduleRestoresStatus(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, _ := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, _ := mustCreateOffer(t, svc, db, now)
	assignmentID := offer.Assignment.ID

	_, err := svc.Confirm(ctx, assignmentID, offer.ConfirmToken, "")
	require.NoError(t, err)
	_, err = svc.RequestReschedule(ctx, assignmentID, offer.RescheduleToken, RequestRescheduleInput{
		RequestedStart: now.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	res, err := svc.DeclineReschedule(ctx, assignmentID, newID())
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeRescheduleDeclined, res.Outcome)
	require.Equal(t, models.AssignmentConfirmed, res.Assignment.Status)
	require.Nil(t, res.Assignment.StatusBeforeReschedule)

	var request models.RescheduleRequest
	require.NoError(t, db.Where("slot_assignment_id = ?", assignmentID).First(&request).Error)
	require.Equal(t, models.RescheduleDeclined, request.Status)
	require.Nil(t, request.PendingKey)
	findOutboxRow(t, db, NotificationRescheduleDeclined, assignmentID)
}

func TestProposeAlternativeReoffersWithFreshTokens(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, tokens := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, _ := mustCreateOffer(t, svc, db, now)
	assignmentID := offer.Assignment.ID

	_, err := svc.RequestReschedule(ctx, assignmentID, offer.RescheduleToken, RequestRescheduleInput{
		RequestedStart: now.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	proposed := now.Add(96 * time.Hour)
	res, err := svc.ProposeAlternative(ctx, assignmentID, newID(), ProposeAlternativeInput{
		ProposedStart: proposed,
	})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeAlternativeProposed, res.Outcome)
	require.Equal(t, models.AssignmentOffered, res.Assignment.Status)
	require.Equal(t, proposed, res.Slot.StartAt.UTC())
	require.NotEmpty(t, res.ConfirmToken)
	require.NotEqual(t, offer.ConfirmToken, res.ConfirmToken)

	// Old links are dead, fresh links work.
	status, err := tokens.Consume(ctx, nil, offer.ConfirmToken, models.TokenActionConfirm, assignmentID)
	require.NoError(t, err)
	require.Equal(t, TokenUsed, status)

	confirmRes, err := svc.Confirm(ctx, assignmentID, res.ConfirmToken, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, confirmRes.Outcome)
}

func TestCancelReleasesActiveKey(t *testing.T) {
	db := openServiceTestDB(t)
	now := frozenNow
	svc, tokens := newTestAssignmentService(t, db, &now)
	ctx := context.Background()

	offer, _ := mustCreateOffer(t, svc, db, now)
	assignmentID := offer.Assignment.ID
	candidate := offer.Assignment.CandidateID

	res, err := svc.Cancel(ctx, assignmentID)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, OutcomeCanceled, res.Outcome)
	require.Equal(t, models.AssignmentCanceled, res.Assignment.Status)
	require.Nil(t, res.Assignment.ActiveKey)

	status, err := tokens.Consume(ctx, nil, offer.ConfirmToken, models.TokenActionConfirm, assignmentID)
	require.NoError(t, err)
	require.Equal(t, TokenUsed, status)
	findOutboxRow(t, db, NotificationAssignmentCanceled, assignmentID)

	// The candidate can receive a new offer once the old one is terminal.
	slot := createSlot(t, db, newID(), now.Add(24*time.Hour))
	next, err := svc.CreateOffer(ctx, CreateOfferInput{SlotID: slot.ID, CandidateID: candidate})
	require.NoError(t, err)
	require.Equal(t, OutcomeOffered, next.Outcome)
}
