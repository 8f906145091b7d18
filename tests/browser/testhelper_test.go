package browser_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"leadmail/internal/adapters/email"
	web "leadmail/internal/adapters/http"
	"leadmail/internal/adapters/http/perf"
)

// recordingSender accepts every message and remembers the recipients.
type recordingSender struct {
	mu         sync.Mutex
	recipients []string
}

func (s *recordingSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients = append(s.recipients, req.To...)
	return email.SendResult{MessageID: "msg-" + req.To[0], SentAt: time.Now()}, nil
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recipients...)
}

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	Sender  *recordingSender
	Browser playwright.Browser
}

// newTestApp wires the web handler to a recording sender and starts a headless browser.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	sender := &recordingSender{}
	deps := web.Deps{
		Sender:      sender,
		Collector:   perf.NewCollector(perf.DefaultRingSize),
		From:        "offers@acme.io",
		Brand:       "Acme",
		MaxFileSize: 1 << 20,
		BatchSize:   10,
		Sleep:       func(time.Duration) {},
		CSRFKey:     bytes.Repeat([]byte{7}, 32),
		RateLimit:   100,
	}
	srv := httptest.NewUnstartedServer(nil)
	u, err := url.Parse("http://" + srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("parse server address: %v", err)
	}
	deps.TrustedOrigins = []string{u.Host}
	srv.Config.Handler = web.NewMux(deps)
	srv.Start()
	t.Cleanup(srv.Close)

	pw, err := playwright.Run()
	if err != nil {
		t.Skipf("playwright unavailable: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		t.Skipf("chromium unavailable: %v", err)
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
	})

	return &testApp{BaseURL: srv.URL, Sender: sender, Browser: browser}
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// waitForText blocks until the locator's text equals want.
func waitForText(t *testing.T, loc playwright.Locator, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		got, err := loc.TextContent()
		if err == nil && got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("text = %q (err %v), want %q", got, err, want)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
