package email

import (
	"context"
	"log/slog"
	"time"

	"leadmail/internal/adapters/http/perf"
)

// DefaultSlowSendMs is the threshold above which a provider call logs at WARN.
const DefaultSlowSendMs = 2000

// TimedSender wraps a Sender to log slow provider calls and record them to a collector.
type TimedSender struct {
	next      Sender
	provider  string
	collector *perf.Collector
	threshold float64
}

// Compile-time check that *TimedSender satisfies Sender.
var _ Sender = (*TimedSender)(nil)

// NewTimedSender wraps next with timing instrumentation labelled by provider.
// PRE: next is non-nil
// POST: Returns a Sender that records one KindSend entry per call when collector is non-nil
func NewTimedSender(next Sender, provider string, collector *perf.Collector) *TimedSender {
	return &TimedSender{
		next:      next,
		provider:  provider,
		collector: collector,
		threshold: DefaultSlowSendMs,
	}
}

// Send delegates to the wrapped sender and records its duration.
func (t *TimedSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	start := time.Now()
	res, err := t.next.Send(ctx, req)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	if durationMs >= t.threshold {
		slog.Warn("slow_send", "provider", t.provider, "recipients", len(req.To), "duration_ms", durationMs)
	}
	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindSend,
			Path:       t.provider + ".Send",
			Failed:     err != nil,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
	return res, err
}
