// Package app turns a loaded Config into the collaborators both binaries share.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"leadmail/internal/adapters/email"
	"leadmail/internal/adapters/generator"
	"leadmail/internal/adapters/http/perf"
	"leadmail/internal/config"
)

// NewLogger builds the process logger from LEADMAIL_LOG_FORMAT and LEADMAIL_LOG_LEVEL.
// PRE: cfg passed Validate
// POST: Returns a JSON or text logger writing to w
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewSender selects the delivery provider and wraps it with send timing.
// PRE: cfg passed Validate
// POST: Returns a Sender whose calls are recorded in collector (when non-nil)
func NewSender(cfg config.Config, collector *perf.Collector) (email.Sender, error) {
	var next email.Sender
	switch cfg.Provider {
	case config.ProviderResend:
		next = email.NewResendSender(cfg.ResendKey, cfg.From, cfg.ReplyTo)
	case config.ProviderPostmark:
		next = email.NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.From, cfg.ReplyTo, cfg.PostmarkStream)
	case config.ProviderNoop:
		next = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_delivery_disabled", "provider", cfg.Provider)
		}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalidConfig, cfg.Provider)
	}
	slog.Info("email_sender_configured", "provider", cfg.Provider, "from", cfg.From)
	return email.NewTimedSender(next, cfg.Provider, collector), nil
}

// NewGenerator builds the Gemini copywriter when an API key is configured.
// PRE: cfg passed Validate
// POST: Returns nil, nil without a key; callers then serve fallback copy only
func NewGenerator(ctx context.Context, cfg config.Config, collector *perf.Collector) (generator.Generator, error) {
	if cfg.GeminiAPIKey == "" {
		slog.Info("generator_disabled", "hint", "set "+config.EnvPrefix+"GEMINI_API_KEY to enable content generation")
		return nil, nil
	}
	g, err := generator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Brand)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	slog.Info("generator_configured", "model", cfg.GeminiModel)
	return generator.NewTimed(g, "gemini", collector), nil
}
