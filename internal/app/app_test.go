package app_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadmail/internal/adapters/email"
	"leadmail/internal/adapters/http/perf"
	"leadmail/internal/app"
	"leadmail/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := app.NewLogger(config.Config{LogFormat: "JSON", LogLevel: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("dispatch_batch", "batch", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"dispatch_batch"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantErr  bool
		wantPath string
	}{
		{name: "noop", cfg: config.Config{Provider: config.ProviderNoop, From: "a@b.com"}, wantPath: "noop.Send"},
		{name: "resend", cfg: config.Config{Provider: config.ProviderResend, ResendKey: "re_x", From: "a@b.com"}},
		{name: "postmark", cfg: config.Config{Provider: config.ProviderPostmark, PostmarkServerToken: "pm", From: "a@b.com"}},
		{name: "unknown", cfg: config.Config{Provider: "smtp"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := perf.NewCollector(10)
			sender, err := app.NewSender(tt.cfg, collector)
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			require.IsType(t, &email.TimedSender{}, sender)

			if tt.wantPath == "" {
				return
			}
			_, err = sender.Send(context.Background(), email.SendRequest{To: []string{"jo@acme.com"}, Subject: "s", Text: "t"})
			require.NoError(t, err)
			snap := collector.Snapshot(time.Now().Add(-time.Minute), 5)
			require.Len(t, snap.SlowestCalls, 1)
			assert.Equal(t, tt.wantPath, snap.SlowestCalls[0].Path)
		})
	}
}

func TestNewGenerator_DisabledWithoutKey(t *testing.T) {
	g, err := app.NewGenerator(context.Background(), config.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, g)
}
