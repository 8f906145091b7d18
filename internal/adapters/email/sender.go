package email

import (
	"context"
	"sort"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string // Recipient addresses; more than one means a shared send
	From    string   // Sender address (e.g. "Acme <offers@acme.io>"); empty uses the sender default
	Subject string
	Text    string // Plain-text body
	HTML    string // HTML body
	ReplyTo string
	Headers map[string]string // Extra MIME headers
	Tags    map[string]string // Provider-side tags/metadata
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// sortedKeys gives providers a stable header/tag order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
