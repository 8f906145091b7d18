package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NoopSender is a no-op email sender for development, dry runs and testing.
// It logs sends but does not actually deliver emails.
type NoopSender struct{}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email but does not deliver it.
// PRE: req is a valid SendRequest
// POST: Returns a noop result with a unique message ID without actual delivery
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	id := "noop-" + uuid.NewString()
	slog.Info("noop_email_send", "message_id", id, "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: id,
		SentAt:    time.Now(),
	}, nil
}
