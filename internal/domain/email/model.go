package email

import (
	"errors"
	"fmt"
)

// Dispatch status constants for per-recipient outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Domain errors
var (
	ErrNoRecipient            = errors.New("recipient is required")
	ErrEmptySubject           = errors.New("email subject is required")
	ErrEmptyBody              = errors.New("either text or html content is required")
	ErrTemplateMissingSubject = errors.New("template subject is required")
	ErrTemplateMissingBody    = errors.New("template requires text or html content")
)

// Message is one addressed email ready for delivery.
type Message struct {
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	Text      string            `json:"text,omitempty"`
	HTML      string            `json:"html,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Validate checks the delivery contract: a recipient, a subject and at least one body.
// PRE: Message struct is populated
// POST: Returns nil if valid, error otherwise
func (m *Message) Validate() error {
	if m.Recipient == "" {
		return ErrNoRecipient
	}
	if m.Subject == "" {
		return ErrEmptySubject
	}
	if m.Text == "" && m.HTML == "" {
		return ErrEmptyBody
	}
	return nil
}

// ValidateAll checks every message and reports problems by index.
// POST: Returns nil when all messages are valid
func ValidateAll(msgs []Message) []string {
	var problems []string
	for i := range msgs {
		if err := msgs[i].Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("Email at index %d: %v", i, err))
		}
	}
	return problems
}

// Template is a subject/text/html triple with {{key}} placeholders.
type Template struct {
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Validate rejects a template that could never produce a deliverable message.
// PRE: none
// POST: Returns nil if the template has a subject and at least one body
func (t Template) Validate() error {
	if t.Subject == "" {
		return ErrTemplateMissingSubject
	}
	if t.Text == "" && t.HTML == "" {
		return ErrTemplateMissingBody
	}
	return nil
}

// DispatchDetail is the outcome for one message of a dispatch run.
type DispatchDetail struct {
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	ID        string `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DispatchResult accumulates outcomes across a dispatch run.
// INVARIANT: Successful + Failed == len(Details), Details in input order
type DispatchResult struct {
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Details    []DispatchDetail `json:"details"`
}

// RecordSuccess appends a success detail.
// POST: Successful incremented
func (r *DispatchResult) RecordSuccess(recipient, id string) {
	r.Successful++
	r.Details = append(r.Details, DispatchDetail{Recipient: recipient, Status: StatusSuccess, ID: id})
}

// RecordFailure appends an error detail.
// POST: Failed incremented
func (r *DispatchResult) RecordFailure(recipient string, err error) {
	r.Failed++
	r.Details = append(r.Details, DispatchDetail{Recipient: recipient, Status: StatusError, Error: err.Error()})
}

// IsPartialFailure reports whether some, but not all, messages failed.
// INVARIANT: Result fields are not mutated
func (r DispatchResult) IsPartialFailure() bool {
	return r.Failed > 0 && r.Successful > 0
}
