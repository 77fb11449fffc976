package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/database/testutil"
	"github.com/hiredeck/hiredeck/internal/models"
)

// frozenNow anchors every clock-injected test at a fixed instant.
var frozenNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t)
}

func newTestOutbox(t *testing.T, db *gorm.DB) *OutboxService {
	t.Helper()
	outbox, err := NewOutboxService(db, WithOutboxClock(func() time.Time { return frozenNow }))
	require.NoError(t, err)
	return outbox
}

func newTestSlotStore(t *testing.T, db *gorm.DB) *SlotStore {
	t.Helper()
	store, err := NewSlotStore(db, newTestOutbox(t, db),
		WithSlotClock(func() time.Time { return frozenNow }))
	require.NoError(t, err)
	return store
}

func createSlot(t *testing.T, db *gorm.DB, ownerID string, startAt time.Time) *models.Slot {
	t.Helper()
	slot := &models.Slot{
		OwnerID:         ownerID,
		StartAt:         startAt,
		DurationMinutes: 60,
		Status:          models.SlotFree,
		Capacity:        1,
		Purpose:         models.PurposeInterview,
	}
	require.NoError(t, db.Create(slot).Error)
	return slot
}

func findOutboxRow(t *testing.T, db *gorm.DB, notifType, bookingID string) *models.OutboxNotification {
	t.Helper()
	var row models.OutboxNotification
	err := db.Where("type = ? AND booking_id = ?", notifType, bookingID).First(&row).Error
	require.NoError(t, err)
	return &row
}

func newID() string {
	return uuid.NewString()
}
