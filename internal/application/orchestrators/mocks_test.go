package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	emailAdapter "leadmail/internal/adapters/email"
)

// mockEmailSender records every request and fails on selected calls.
type mockEmailSender struct {
	requests []emailAdapter.SendRequest
	contexts []context.Context
	failOn   map[int]bool // 0-based call indexes that fail
}

func newMockEmailSender() *mockEmailSender {
	return &mockEmailSender{failOn: make(map[int]bool)}
}

// Send records the request and returns a deterministic ID.
// PRE: none
// POST: Call recorded; returns an error when the call index is in failOn
func (m *mockEmailSender) Send(ctx context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	n := len(m.requests)
	m.requests = append(m.requests, req)
	m.contexts = append(m.contexts, ctx)
	if m.failOn[n] {
		return emailAdapter.SendResult{}, errors.New("provider rejected message")
	}
	return emailAdapter.SendResult{MessageID: fmt.Sprintf("msg-%d", n+1), SentAt: time.Now()}, nil
}

// mockGenerator returns canned output or an error and counts calls.
type mockGenerator struct {
	out   string
	err   error
	calls int
	seen  []map[string]string
}

// Generate returns the canned output.
// PRE: none
// POST: Call counted and fields recorded
func (g *mockGenerator) Generate(_ context.Context, fields map[string]string) (string, error) {
	g.calls++
	g.seen = append(g.seen, fields)
	return g.out, g.err
}

func fixedID() string { return "ref-1" }
