package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/resend/resend-go/v2"

	"leadmail/internal/adapters/http/perf"
)

// TestResendRequest_MapsFields verifies the Resend payload carries bodies, headers and tags.
func TestResendRequest_MapsFields(t *testing.T) {
	s := NewResendSender("re_test", "Default <default@acme.io>", "support@acme.io")
	params := s.request(SendRequest{
		To:      []string{"jo@acme.com"},
		Subject: "Hi",
		Text:    "plain",
		HTML:    "<p>rich</p>",
		Headers: map[string]string{"Precedence": "bulk"},
		Tags:    map[string]string{"source": "import", "campaign": "spring"},
	})

	if params.From != "Default <default@acme.io>" {
		t.Errorf("From = %q, want sender default", params.From)
	}
	if params.Text != "plain" || params.Html != "<p>rich</p>" {
		t.Errorf("bodies = %q / %q", params.Text, params.Html)
	}
	if params.ReplyTo != "support@acme.io" {
		t.Errorf("ReplyTo = %q, want sender default", params.ReplyTo)
	}
	if params.Headers["Precedence"] != "bulk" {
		t.Errorf("Headers = %v", params.Headers)
	}
	want := []resend.Tag{{Name: "campaign", Value: "spring"}, {Name: "source", Value: "import"}}
	if len(params.Tags) != len(want) {
		t.Fatalf("Tags = %v, want %v", params.Tags, want)
	}
	for i := range want {
		if params.Tags[i] != want[i] {
			t.Errorf("Tags[%d] = %v, want %v", i, params.Tags[i], want[i])
		}
	}
}

// TestResendRequest_RequestOverridesDefaults verifies per-request From and ReplyTo win.
func TestResendRequest_RequestOverridesDefaults(t *testing.T) {
	s := NewResendSender("re_test", "default@acme.io", "support@acme.io")
	params := s.request(SendRequest{To: []string{"a@b.com"}, From: "offers@acme.io", ReplyTo: "sales@acme.io", Subject: "x", Text: "y"})

	if params.From != "offers@acme.io" || params.ReplyTo != "sales@acme.io" {
		t.Errorf("From/ReplyTo = %q/%q", params.From, params.ReplyTo)
	}
	if params.Headers != nil || params.Tags != nil {
		t.Errorf("expected no headers or tags, got %v %v", params.Headers, params.Tags)
	}
}

// TestPostmarkEmail_MapsFields verifies recipients are comma-joined and headers ordered.
func TestPostmarkEmail_MapsFields(t *testing.T) {
	s := NewPostmarkSender("server", "account", "default@acme.io", "", "")
	msg := s.email(SendRequest{
		To:      []string{"a@b.com", "c@d.com"},
		Subject: "Hi",
		Text:    "plain",
		Headers: map[string]string{"X-Entity-Ref-ID": "abc", "Precedence": "bulk"},
		Tags:    map[string]string{"campaign": "spring"},
	})

	if msg.To != "a@b.com,c@d.com" {
		t.Errorf("To = %q", msg.To)
	}
	if msg.From != "default@acme.io" {
		t.Errorf("From = %q", msg.From)
	}
	if msg.MessageStream != DefaultPostmarkStream {
		t.Errorf("MessageStream = %q, want %q", msg.MessageStream, DefaultPostmarkStream)
	}
	want := []postmark.Header{{Name: "Precedence", Value: "bulk"}, {Name: "X-Entity-Ref-ID", Value: "abc"}}
	if len(msg.Headers) != 2 || msg.Headers[0] != want[0] || msg.Headers[1] != want[1] {
		t.Errorf("Headers = %v, want %v", msg.Headers, want)
	}
	if msg.Tag != "spring" || msg.Metadata["campaign"] != "spring" {
		t.Errorf("Tag/Metadata = %q/%v", msg.Tag, msg.Metadata)
	}
}

// TestNoopSender_UniqueIDs verifies the noop sender never delivers but returns distinct IDs.
func TestNoopSender_UniqueIDs(t *testing.T) {
	s := NewNoopSender()
	a, err := s.Send(context.Background(), SendRequest{To: []string{"a@b.com"}, Subject: "x"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	b, _ := s.Send(context.Background(), SendRequest{To: []string{"a@b.com"}, Subject: "x"})
	if !strings.HasPrefix(a.MessageID, "noop-") || a.MessageID == b.MessageID {
		t.Errorf("ids = %q, %q", a.MessageID, b.MessageID)
	}
	if a.SentAt.IsZero() {
		t.Error("SentAt not set")
	}
}

type stubSender struct {
	err error
}

func (s stubSender) Send(_ context.Context, _ SendRequest) (SendResult, error) {
	if s.err != nil {
		return SendResult{}, s.err
	}
	return SendResult{MessageID: "stub-1", SentAt: time.Now()}, nil
}

// TestTimedSender_RecordsOutcome verifies one entry per call with the failure flag.
func TestTimedSender_RecordsOutcome(t *testing.T) {
	collector := perf.NewCollector(10)
	ok := NewTimedSender(stubSender{}, "resend", collector)
	bad := NewTimedSender(stubSender{err: errors.New("boom")}, "resend", collector)

	res, err := ok.Send(context.Background(), SendRequest{To: []string{"a@b.com"}})
	if err != nil || res.MessageID != "stub-1" {
		t.Fatalf("Send = %v, %v", res, err)
	}
	if _, err := bad.Send(context.Background(), SendRequest{To: []string{"a@b.com"}}); err == nil {
		t.Fatal("expected error to pass through")
	}

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 5)
	if len(snap.SlowestCalls) != 1 {
		t.Fatalf("SlowestCalls = %+v", snap.SlowestCalls)
	}
	if c := snap.SlowestCalls[0]; c.Path != "resend.Send" || c.Count != 2 || c.Failed != 1 {
		t.Errorf("stat = %+v", c)
	}
}

// TestTimedSender_NilCollector verifies instrumentation is optional.
func TestTimedSender_NilCollector(t *testing.T) {
	s := NewTimedSender(stubSender{}, "noop", nil)
	if _, err := s.Send(context.Background(), SendRequest{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
