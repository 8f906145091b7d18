// Package generator produces marketing email copy from a lead's fields.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leadmail/internal/adapters/http/perf"
)

// Generator returns raw model text for one lead. Parsing the text is the caller's job.
type Generator interface {
	Generate(ctx context.Context, fields map[string]string) (string, error)
}

// BuildPrompt renders the copywriter instruction for brand with the lead's fields embedded as JSON.
// PRE: brand is non-empty
// POST: Returns a prompt that asks for exactly {"subject","text","html"}
func BuildPrompt(brand string, fields map[string]string) string {
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		data = []byte("{}")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert email marketing copywriter writing for %s, "+
		"an email campaign platform that automates email writing and bulk sending.\n", brand)
	b.WriteString("Write one persuasive, professional marketing email for the client below.\n")
	b.WriteString("- Address the recipient by name and mention their company when known.\n")
	b.WriteString("- Tailor the content to the client's domain, position and notes.\n")
	b.WriteString("- End with a clear call to action such as booking a demo.\n")
	b.WriteString("- Avoid spammy language.\n\n")
	b.WriteString("Respond with a single JSON object and nothing else, in exactly this shape:\n")
	b.WriteString("{\n  \"subject\": \"string\",\n  \"text\": \"string\",\n  \"html\": \"string\"\n}\n\n")
	b.WriteString("Client data:\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String()
}

// Timed wraps a Generator to record each call to a perf collector.
type Timed struct {
	next      Generator
	name      string
	collector *perf.Collector
}

// NewTimed wraps next; name labels the entries (e.g. "gemini").
// PRE: next is non-nil
// POST: Returns a Generator recording one KindGenerate entry per call when collector is non-nil
func NewTimed(next Generator, name string, collector *perf.Collector) *Timed {
	return &Timed{next: next, name: name, collector: collector}
}

// Generate delegates to the wrapped generator and records its duration.
func (t *Timed) Generate(ctx context.Context, fields map[string]string) (string, error) {
	start := time.Now()
	out, err := t.next.Generate(ctx, fields)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	slog.Debug("generate_call", "generator", t.name, "duration_ms", durationMs, "failed", err != nil)
	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindGenerate,
			Path:       t.name + ".Generate",
			Failed:     err != nil,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
	return out, err
}
