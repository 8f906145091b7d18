package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	emailAdapter "leadmail/internal/adapters/email"
	emailDomain "leadmail/internal/domain/email"
)

// DefaultBatchSize is the batch size used when none is given.
const DefaultBatchSize = 5

// Deliverability header names.
const (
	HeaderEntityRefID         = "X-Entity-Ref-ID"
	HeaderPrecedence          = "Precedence"
	HeaderListUnsubscribe     = "List-Unsubscribe"
	HeaderListUnsubscribePost = "List-Unsubscribe-Post"
)

// DispatchInput carries the messages of one individualized dispatch run.
// A zero BatchSize selects DefaultBatchSize. InterBatchDelay is used as given; zero means
// no pause and a negative value is treated as zero.
type DispatchInput struct {
	Messages        []emailDomain.Message
	From            string
	ReplyTo         string
	BatchSize       int
	InterBatchDelay time.Duration
}

// DispatchDeps holds external dependencies for the dispatcher.
type DispatchDeps struct {
	EmailSender    emailAdapter.Sender
	Sleep          func(time.Duration) // pause between batches; defaults to time.Sleep
	GenerateID     func() string       // X-Entity-Ref-ID source; defaults to uuid.NewString
	UnsubscribeURL string              // adds List-Unsubscribe when set
}

// ExecuteDispatchIndividually sends every message on its own, in contiguous batches.
// PRE: EmailSender is non-nil
// POST: Returns one detail per message in input order; a failed message never aborts the run
// INVARIANT: Successful + Failed == len(Messages); Sleep is called exactly once between
//
//	consecutive batches and never after the last one
//
// A context that is already done prevents the run from starting; once started, sends
// receive a context that ignores cancellation so a batch is never abandoned half-way.
func ExecuteDispatchIndividually(ctx context.Context, input DispatchInput, deps DispatchDeps) (emailDomain.DispatchResult, error) {
	if err := ctx.Err(); err != nil {
		return emailDomain.DispatchResult{}, err
	}
	size := input.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	delay := max(input.InterBatchDelay, 0)
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	runCtx := context.WithoutCancel(ctx)
	total := len(input.Messages)
	batches := (total + size - 1) / size
	result := emailDomain.DispatchResult{Details: make([]emailDomain.DispatchDetail, 0, total)}

	for b := 0; b < batches; b++ {
		start := b * size
		end := min(start+size, total)
		slog.Info("dispatch_batch", "batch", b+1, "of", batches, "size", end-start)

		for _, msg := range input.Messages[start:end] {
			if err := msg.Validate(); err != nil {
				slog.Warn("dispatch_message_invalid", "recipient", msg.Recipient, "error", err)
				result.RecordFailure(msg.Recipient, err)
				continue
			}
			req := buildSendRequest(msg, input.From, input.ReplyTo, deps.GenerateID, deps.UnsubscribeURL)
			sent, err := deps.EmailSender.Send(runCtx, req)
			if err != nil {
				slog.Warn("dispatch_message_failed", "recipient", msg.Recipient, "error", err)
				result.RecordFailure(msg.Recipient, err)
				continue
			}
			result.RecordSuccess(msg.Recipient, sent.MessageID)
		}

		if end < total {
			sleep(delay)
		}
	}

	slog.Info("dispatch_complete",
		"total", total,
		"successful", result.Successful,
		"failed", result.Failed,
		"batches", batches,
	)
	return result, nil
}

// FailedMessages returns, in order, the messages whose dispatch detail is an error,
// so a caller can resubmit just that subset.
// PRE: res came from dispatching messages
// POST: Returns an empty slice when nothing failed
func FailedMessages(messages []emailDomain.Message, res emailDomain.DispatchResult) []emailDomain.Message {
	failed := make([]emailDomain.Message, 0, res.Failed)
	for i, d := range res.Details {
		if i >= len(messages) {
			break
		}
		if d.Status == emailDomain.StatusError {
			failed = append(failed, messages[i])
		}
	}
	return failed
}

// SendMessageInput carries one individualized message.
type SendMessageInput struct {
	Message emailDomain.Message
	From    string
	ReplyTo string
}

// SendMessageDeps holds dependencies for ExecuteSendMessage.
type SendMessageDeps struct {
	EmailSender    emailAdapter.Sender
	GenerateID     func() string
	UnsubscribeURL string
}

// ExecuteSendMessage validates and sends a single message with deliverability headers.
// PRE: EmailSender is non-nil
// POST: Returns the provider result; validation and provider errors are returned unchanged
func ExecuteSendMessage(ctx context.Context, input SendMessageInput, deps SendMessageDeps) (emailAdapter.SendResult, error) {
	if err := input.Message.Validate(); err != nil {
		return emailAdapter.SendResult{}, err
	}
	req := buildSendRequest(input.Message, input.From, input.ReplyTo, deps.GenerateID, deps.UnsubscribeURL)
	res, err := deps.EmailSender.Send(ctx, req)
	if err != nil {
		return emailAdapter.SendResult{}, err
	}
	slog.Info("email_event", "event", "message_sent", "recipient", input.Message.Recipient, "message_id", res.MessageID)
	return res, nil
}

// buildSendRequest addresses msg to its recipient and merges deliverability headers
// under the message's own headers.
func buildSendRequest(msg emailDomain.Message, from, replyTo string, generateID func() string, unsubscribeURL string) emailAdapter.SendRequest {
	if generateID == nil {
		generateID = uuid.NewString
	}
	headers := map[string]string{
		HeaderEntityRefID: generateID(),
		HeaderPrecedence:  "bulk",
	}
	if unsubscribeURL != "" {
		headers[HeaderListUnsubscribe] = "<" + unsubscribeURL + ">"
		headers[HeaderListUnsubscribePost] = "List-Unsubscribe=One-Click"
	}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	var tags map[string]string
	if len(msg.Tags) > 0 {
		tags = make(map[string]string, len(msg.Tags))
		for k, v := range msg.Tags {
			tags[k] = v
		}
	}

	return emailAdapter.SendRequest{
		To:      []string{msg.Recipient},
		From:    from,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
		ReplyTo: replyTo,
		Headers: headers,
		Tags:    tags,
	}
}
