package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	emailAdapter "leadmail/internal/adapters/email"
	emailDomain "leadmail/internal/domain/email"
	"leadmail/internal/domain/lead"
)

// ErrBulkSendFailed marks a provider failure, as opposed to a rejected input.
var ErrBulkSendFailed = errors.New("bulk send")

// BulkInput is one shared-content message for a whole recipient list.
type BulkInput struct {
	Recipients []string
	Subject    string
	Text       string
	HTML       string
	From       string
	ReplyTo    string
}

// BulkDeps holds dependencies for ExecuteSendBulk.
type BulkDeps struct {
	EmailSender emailAdapter.Sender
}

// ExecuteSendBulk sends one message to every recipient in a single provider call.
// PRE: EmailSender is non-nil
// POST: Returns the provider result; any invalid recipient or provider failure fails the whole send
// INVARIANT: The sender is called at most once
func ExecuteSendBulk(ctx context.Context, input BulkInput, deps BulkDeps) (emailAdapter.SendResult, error) {
	if len(input.Recipients) == 0 {
		return emailAdapter.SendResult{}, emailDomain.ErrNoRecipient
	}
	to := make([]string, 0, len(input.Recipients))
	for i, r := range input.Recipients {
		v := lead.ValidateEmail(r)
		if !v.IsValid {
			return emailAdapter.SendResult{}, fmt.Errorf("recipient %d: %s", i, v.Reason)
		}
		to = append(to, v.NormalizedEmail)
	}
	msg := emailDomain.Message{Recipient: to[0], Subject: input.Subject, Text: input.Text, HTML: input.HTML}
	if err := msg.Validate(); err != nil {
		return emailAdapter.SendResult{}, err
	}

	res, err := deps.EmailSender.Send(ctx, emailAdapter.SendRequest{
		To:      to,
		From:    input.From,
		Subject: input.Subject,
		Text:    input.Text,
		HTML:    input.HTML,
		ReplyTo: input.ReplyTo,
	})
	if err != nil {
		slog.Error("bulk_send_failed", "recipients", len(to), "error", err)
		return emailAdapter.SendResult{}, fmt.Errorf("%w: %w", ErrBulkSendFailed, err)
	}
	slog.Info("email_event", "event", "bulk_sent", "recipients", len(to), "message_id", res.MessageID)
	return res, nil
}
