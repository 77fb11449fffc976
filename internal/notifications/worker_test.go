package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/database/testutil"
	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/internal/services"
)

var workerNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []Message
	failWith error
}

func (f *fakeNotifier) Send(_ context.Context, msg Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.sent = append(f.sent, msg)
	return "fake:" + msg.BookingID, nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newWorkerFixture(t *testing.T, clock *time.Time, notifier Notifier, opts ...WorkerOption) (*Worker, *services.OutboxService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	outbox, err := services.NewOutboxService(db,
		services.WithOutboxClock(func() time.Time { return *clock }))
	require.NoError(t, err)

	opts = append(opts, WithWorkerClock(func() time.Time { return *clock }))
	worker := NewWorker(outbox, notifier, opts...)
	return worker, outbox, db
}

func enqueueTest(t *testing.T, outbox *services.OutboxService, notifType string) *models.OutboxNotification {
	t.Helper()
	row, err := outbox.Enqueue(context.Background(), nil, services.EnqueueInput{
		Type:        notifType,
		BookingID:   uuid.NewString(),
		CandidateID: uuid.NewString(),
		Payload:     map[string]any{"hello": "world"},
	})
	require.NoError(t, err)
	return row
}

func TestWorkerDeliversAndMarksSent(t *testing.T) {
	now := workerNow
	notifier := &fakeNotifier{}
	worker, outbox, db := newWorkerFixture(t, &now, notifier)
	ctx := context.Background()

	row := enqueueTest(t, outbox, "slot_reserved")

	processed, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.Equal(t, 1, notifier.sentCount())

	var persisted models.OutboxNotification
	require.NoError(t, db.First(&persisted, "id = ?", row.ID).Error)
	require.Equal(t, models.OutboxSent, persisted.Status)
	require.Nil(t, persisted.LockedAt)
}

func TestWorkerSchedulesRetryOnFailure(t *testing.T) {
	now := workerNow
	notifier := &fakeNotifier{failWith: errors.New("smtp timeout")}
	worker, outbox, db := newWorkerFixture(t, &now, notifier)
	ctx := context.Background()

	row := enqueueTest(t, outbox, "slot_reserved")

	processed, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	var persisted models.OutboxNotification
	require.NoError(t, db.First(&persisted, "id = ?", row.ID).Error)
	require.Equal(t, models.OutboxPending, persisted.Status)
	require.Equal(t, 1, persisted.Attempts)
	require.NotNil(t, persisted.NextRetryAt)
	require.Equal(t, workerNow.Add(30*time.Second), persisted.NextRetryAt.UTC())
	require.Equal(t, "smtp timeout", *persisted.LastError)

	// Before the retry window opens nothing is claimable.
	processed, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, processed)

	// After the window the delivery succeeds and the row completes.
	now = workerNow.Add(2 * time.Minute)
	notifier.failWith = nil

	processed, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	require.NoError(t, db.First(&persisted, "id = ?", row.ID).Error)
	require.Equal(t, models.OutboxSent, persisted.Status)
}

func TestWorkerRetiresAfterMaxAttempts(t *testing.T) {
	now := workerNow
	notifier := &fakeNotifier{failWith: errors.New("mailbox gone")}
	worker, outbox, db := newWorkerFixture(t, &now, notifier, WithMaxAttempts(2))
	ctx := context.Background()

	row := enqueueTest(t, outbox, "slot_reserved")

	_, err := worker.RunOnce(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = worker.RunOnce(ctx)
	require.NoError(t, err)

	var persisted models.OutboxNotification
	require.NoError(t, db.First(&persisted, "id = ?", row.ID).Error)
	require.Equal(t, models.OutboxFailed, persisted.Status)
	require.Equal(t, 2, persisted.Attempts)

	// Terminal rows stay invisible to subsequent runs.
	now = now.Add(24 * time.Hour)
	processed, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, processed)
}

func TestWorkerIsolatesFailuresWithinBatch(t *testing.T) {
	now := workerNow
	notifier := &fakeNotifier{}
	worker, outbox, db := newWorkerFixture(t, &now, notifier)
	ctx := context.Background()

	good := enqueueTest(t, outbox, "slot_reserved")
	bad := enqueueTest(t, outbox, "booking_confirmed")

	// Fail only the second row's type.
	selective := &selectiveNotifier{failType: bad.Type, inner: notifier}
	worker.notifier = selective

	processed, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, processed)

	var sentRow models.OutboxNotification
	require.NoError(t, db.First(&sentRow, "id = ?", good.ID).Error)
	require.Equal(t, models.OutboxSent, sentRow.Status)

	var failedRow models.OutboxNotification
	require.NoError(t, db.First(&failedRow, "id = ?", bad.ID).Error)
	require.Equal(t, models.OutboxPending, failedRow.Status)
	require.Equal(t, 1, failedRow.Attempts)
}

type selectiveNotifier struct {
	failType string
	inner    Notifier
}

func (s *selectiveNotifier) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Type == s.failType {
		return "", errors.New("transport rejected")
	}
	return s.inner.Send(ctx, msg)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	require.Equal(t, 30*time.Second, backoff(1))
	require.Equal(t, time.Minute, backoff(2))
	require.Equal(t, 2*time.Minute, backoff(3))
	require.Equal(t, time.Hour, backoff(8))
	require.Equal(t, time.Hour, backoff(20))
}
