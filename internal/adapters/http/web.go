package web

import (
	"net/http"
	"time"

	"leadmail/internal/adapters/email"
	"leadmail/internal/adapters/generator"
	"leadmail/internal/adapters/http/middleware"
	"leadmail/internal/adapters/http/perf"
)

// Deps holds every collaborator and setting the HTTP layer needs.
type Deps struct {
	Sender    email.Sender
	Generator generator.Generator // nil serves fallback copy only
	Collector *perf.Collector     // nil disables request timing records

	From           string
	ReplyTo        string
	UnsubscribeURL string
	Brand          string
	MaxFileSize    int64
	BatchSize      int
	BatchDelay     time.Duration
	Sleep          func(time.Duration) // pause between dispatch batches; defaults to time.Sleep

	CSRFKey        []byte // 32 bytes
	SecureCookies  bool
	TrustedOrigins []string
	RateLimit      float64 // requests per second per client
	SlowRequestMs  float64
}

// server binds handlers to their dependencies.
type server struct {
	deps Deps
}

// NewMux wires HTTP handlers for the app.
// PRE: deps.Sender is non-nil; deps.CSRFKey is 32 bytes; deps.RateLimit > 0
// POST: Returns a handler wrapped as Timing -> RateLimit -> CSRF -> SecurityHeaders -> routes
func NewMux(deps Deps) http.Handler {
	s := &server{deps: deps}
	limiter := middleware.NewRateLimiter(deps.RateLimit)

	return middleware.Chain(s.routes(),
		middleware.SecurityHeaders,
		middleware.CSRF(deps.CSRFKey, deps.SecureCookies, deps.TrustedOrigins...),
		middleware.RateLimit(limiter),
		middleware.Timing(deps.Collector, deps.SlowRequestMs),
	)
}

// routes registers every endpoint on a fresh mux.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("POST /api/leads/parse", s.handleLeadsParse)
	mux.HandleFunc("POST /api/leads/summary", s.handleLeadsSummary)

	mux.HandleFunc("POST /api/emails/generate", s.handleEmailGenerate)
	mux.HandleFunc("POST /api/emails/generate-all", s.handleEmailGenerateAll)
	mux.HandleFunc("POST /api/emails/preview", s.handleEmailPreview)
	mux.HandleFunc("POST /api/emails/send", s.handleEmailSend)
	mux.HandleFunc("POST /api/emails/send-bulk", s.handleEmailSendBulk)
	mux.HandleFunc("POST /api/emails/send-shared", s.handleEmailSendShared)

	mux.HandleFunc("GET /api/perf", s.handlePerf)
	return mux
}
