package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mrz1836/postmark"
)

// DefaultPostmarkStream is Postmark's stream for marketing traffic.
const DefaultPostmarkStream = "broadcast"

// ErrPostmarkRejected marks a send the Postmark API answered with a non-zero error code.
var ErrPostmarkRejected = errors.New("postmark rejected message")

// PostmarkSender sends emails via the Postmark API.
type PostmarkSender struct {
	client  *postmark.Client
	from    string
	replyTo string
	stream  string
}

// NewPostmarkSender creates a sender on the given message stream.
// PRE: serverToken is a Postmark server token; from is a verified sender signature
// POST: Returns a ready-to-use sender; an empty stream selects DefaultPostmarkStream
func NewPostmarkSender(serverToken, accountToken, from, replyTo, stream string) *PostmarkSender {
	if stream == "" {
		stream = DefaultPostmarkStream
	}
	return &PostmarkSender{
		client:  postmark.NewClient(serverToken, accountToken),
		from:    from,
		replyTo: replyTo,
		stream:  stream,
	}
}

// Send sends one email via Postmark.
// PRE: req has at least one recipient and a subject
// POST: Returns the Postmark MessageID; an API-level error code is returned as ErrPostmarkRejected
func (s *PostmarkSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	resp, err := s.client.SendEmail(ctx, s.email(req))
	if err != nil {
		slog.Error("postmark_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("postmark send failed: %w", err)
	}
	if resp.ErrorCode > 0 {
		slog.Error("postmark_send_rejected", "code", resp.ErrorCode, "message", resp.Message, "to", req.To)
		return SendResult{}, fmt.Errorf("%w: %d - %s", ErrPostmarkRejected, resp.ErrorCode, resp.Message)
	}

	slog.Info("postmark_sent", "message_id", resp.MessageID, "to", req.To, "subject", req.Subject)
	sentAt := resp.SubmittedAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return SendResult{
		MessageID: resp.MessageID,
		SentAt:    sentAt,
	}, nil
}

func (s *PostmarkSender) email(req SendRequest) postmark.Email {
	from := req.From
	if from == "" {
		from = s.from
	}
	msg := postmark.Email{
		From:          from,
		To:            strings.Join(req.To, ","),
		Subject:       req.Subject,
		TextBody:      req.Text,
		HTMLBody:      req.HTML,
		ReplyTo:       s.replyTo,
		TrackOpens:    true,
		MessageStream: s.stream,
	}
	if req.ReplyTo != "" {
		msg.ReplyTo = req.ReplyTo
	}
	for _, k := range sortedKeys(req.Headers) {
		msg.Headers = append(msg.Headers, postmark.Header{Name: k, Value: req.Headers[k]})
	}
	if len(req.Tags) > 0 {
		msg.Metadata = make(map[string]string, len(req.Tags))
		for k, v := range req.Tags {
			msg.Metadata[k] = v
		}
		// Postmark carries a single tag; the campaign tag is the one worth filtering on.
		msg.Tag = req.Tags["campaign"]
	}
	return msg
}
