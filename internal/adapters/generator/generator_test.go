package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leadmail/internal/adapters/http/perf"
)

// TestBuildPrompt_EmbedsBrandAndFields verifies the prompt names the brand, the shape and the lead data.
func TestBuildPrompt_EmbedsBrandAndFields(t *testing.T) {
	p := BuildPrompt("ECMP", map[string]string{"name": "Jo", "company": "Acme"})

	for _, want := range []string{
		"writing for ECMP",
		`"subject": "string"`,
		`"company": "Acme"`,
		`"name": "Jo"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	// encoding/json sorts map keys, so the prompt is deterministic.
	if strings.Index(p, `"company"`) > strings.Index(p, `"name"`) {
		t.Error("client data keys not sorted")
	}
}

// TestBuildPrompt_NoFields verifies an empty lead still yields a valid JSON block.
func TestBuildPrompt_NoFields(t *testing.T) {
	p := BuildPrompt("ECMP", nil)
	if !strings.Contains(p, "Client data:\nnull\n") {
		t.Errorf("unexpected client block:\n%s", p)
	}
}

type fakeGenerator struct {
	out string
	err error
}

func (f fakeGenerator) Generate(_ context.Context, _ map[string]string) (string, error) {
	return f.out, f.err
}

// TestTimed_RecordsCalls verifies the decorator passes results through and records each call.
func TestTimed_RecordsCalls(t *testing.T) {
	c := perf.NewCollector(10)
	ok := NewTimed(fakeGenerator{out: "{}"}, "gemini", c)
	bad := NewTimed(fakeGenerator{err: errors.New("quota")}, "gemini", c)

	if out, err := ok.Generate(context.Background(), nil); err != nil || out != "{}" {
		t.Fatalf("Generate = %q, %v", out, err)
	}
	if _, err := bad.Generate(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}

	snap := c.Snapshot(time.Now().Add(-time.Minute), 5)
	if len(snap.SlowestCalls) != 1 {
		t.Fatalf("SlowestCalls = %+v", snap.SlowestCalls)
	}
	if s := snap.SlowestCalls[0]; s.Path != "gemini.Generate" || s.Count != 2 || s.Failed != 1 {
		t.Errorf("stat = %+v", s)
	}
}
