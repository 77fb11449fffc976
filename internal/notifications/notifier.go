package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/hiredeck/hiredeck/internal/models"
	"github.com/hiredeck/hiredeck/pkg/logger"
)

// Message is the transport-agnostic shape handed to a Notifier. The worker
// builds it from an outbox row; the notifier decides channel and formatting.
type Message struct {
	Type          string
	BookingID     string
	CandidateID   string
	RecruiterID   string
	CorrelationID string
	Payload       []byte
}

// Notifier delivers a single message to the outside world. Implementations
// return a provider message id on success. Send must be safe to retry: the
// outbox dedup key makes duplicate sends possible after a crash between
// delivery and mark-sent.
type Notifier interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// LogNotifier writes deliveries to the application log. It is the default
// transport for development and the fallback when no channel is configured.
type LogNotifier struct{}

// Send logs the message and reports success.
func (LogNotifier) Send(_ context.Context, msg Message) (string, error) {
	logger.Info("notification delivered",
		zap.String("type", msg.Type),
		zap.String("booking_id", msg.BookingID),
		zap.String("candidate_id", msg.CandidateID),
		zap.String("recruiter_id", msg.RecruiterID),
	)
	return "log:" + msg.BookingID, nil
}

// FromRow converts an outbox row into a transport message.
func FromRow(row *models.OutboxNotification) Message {
	msg := Message{
		Type:        row.Type,
		BookingID:   row.BookingID,
		CandidateID: row.CandidateID,
		Payload:     []byte(row.Payload),
	}
	if row.RecruiterID != nil {
		msg.RecruiterID = *row.RecruiterID
	}
	if row.CorrelationID != nil {
		msg.CorrelationID = *row.CorrelationID
	}
	return msg
}
