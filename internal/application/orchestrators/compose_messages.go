package orchestrators

import (
	"context"
	"log/slog"

	emailDomain "leadmail/internal/domain/email"
	"leadmail/internal/domain/lead"
)

// ComposeInput pairs imported records with the template to merge into them.
type ComposeInput struct {
	Records  []lead.Record
	Template emailDomain.Template
	Campaign string // optional; tagged on every message
}

// ExecuteComposeMessages merges the template into every addressable record.
// PRE: none
// POST: Returns one message per record with an email field, in record order; records
//
//	without one are listed in Skipped. A template without a subject or body is an error.
func ExecuteComposeMessages(ctx context.Context, input ComposeInput) (emailDomain.MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return emailDomain.MergeResult{}, err
	}
	res, err := emailDomain.Merge(input.Records, input.Template)
	if err != nil {
		return emailDomain.MergeResult{}, err
	}
	for _, s := range res.Skipped {
		slog.Warn("compose_record_skipped", "index", s.Index, "reason", s.Reason)
	}
	if input.Campaign != "" {
		for i := range res.Messages {
			res.Messages[i].Tags = map[string]string{"campaign": input.Campaign}
		}
	}
	slog.Info("compose_complete", "records", len(input.Records), "messages", len(res.Messages), "skipped", len(res.Skipped))
	return res, nil
}
