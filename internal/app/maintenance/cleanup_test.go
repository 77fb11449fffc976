package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/database/testutil"
	"github.com/hiredeck/hiredeck/internal/models"
)

var cleanupNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestCleaner(t *testing.T) (*Cleaner, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	cleaner := NewCleaner(db,
		WithNow(func() time.Time { return cleanupNow }),
		WithTokenRetention(24*time.Hour),
		WithOutboxRetention(24*time.Hour),
	)
	return cleaner, db
}

func TestRunOncePurgesExpiredLocks(t *testing.T) {
	cleaner, db := newTestCleaner(t)

	expired := models.ReservationLock{
		CandidateID:     uuid.NewString(),
		OwnerID:         uuid.NewString(),
		ReservationDate: "2026-03-09",
		SlotID:          uuid.NewString(),
		ExpiresAt:       cleanupNow.Add(-time.Minute),
	}
	live := models.ReservationLock{
		CandidateID:     uuid.NewString(),
		OwnerID:         uuid.NewString(),
		ReservationDate: "2026-03-10",
		SlotID:          uuid.NewString(),
		ExpiresAt:       cleanupNow.Add(5 * time.Minute),
	}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&live).Error)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.ReservationLock
	require.NoError(t, db.Where("id IN ?", []string{expired.ID, live.ID}).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, live.ID, remaining[0].ID)
}

func TestRunOncePurgesStaleTokens(t *testing.T) {
	cleaner, db := newTestCleaner(t)

	usedLongAgo := cleanupNow.Add(-48 * time.Hour)
	stale := models.ActionToken{
		TokenHash: uuid.NewString(),
		Action:    models.TokenActionConfirm,
		EntityID:  uuid.NewString(),
		ExpiresAt: cleanupNow.Add(-48 * time.Hour),
	}
	usedOld := models.ActionToken{
		TokenHash: uuid.NewString(),
		Action:    models.TokenActionConfirm,
		EntityID:  uuid.NewString(),
		ExpiresAt: cleanupNow.Add(time.Hour),
		UsedAt:    &usedLongAgo,
	}
	fresh := models.ActionToken{
		TokenHash: uuid.NewString(),
		Action:    models.TokenActionReschedule,
		EntityID:  uuid.NewString(),
		ExpiresAt: cleanupNow.Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&usedOld).Error)
	require.NoError(t, db.Create(&fresh).Error)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.ActionToken
	require.NoError(t, db.Where("id IN ?", []string{stale.ID, usedOld.ID, fresh.ID}).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, fresh.ID, remaining[0].ID)
}

func TestRunOncePurgesOnlySentOutboxRows(t *testing.T) {
	cleaner, db := newTestCleaner(t)

	old := cleanupNow.Add(-48 * time.Hour)

	sent := models.OutboxNotification{
		Type:        "slot_reserved",
		BookingID:   uuid.NewString(),
		CandidateID: uuid.NewString(),
		Status:      models.OutboxSent,
	}
	failed := models.OutboxNotification{
		Type:        "slot_reserved",
		BookingID:   uuid.NewString(),
		CandidateID: uuid.NewString(),
		Status:      models.OutboxFailed,
	}
	require.NoError(t, db.Create(&sent).Error)
	require.NoError(t, db.Create(&failed).Error)

	// Age both rows past the retention cutoff.
	require.NoError(t, db.Model(&models.OutboxNotification{}).
		Where("id IN ?", []string{sent.ID, failed.ID}).
		Update("updated_at", old).Error)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.OutboxNotification
	require.NoError(t, db.Where("id IN ?", []string{sent.ID, failed.ID}).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, failed.ID, remaining[0].ID)
}
