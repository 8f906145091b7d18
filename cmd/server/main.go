package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	web "leadmail/internal/adapters/http"
	"leadmail/internal/adapters/http/perf"
	"leadmail/internal/app"
	"leadmail/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// shutdownTimeout bounds how long in-flight dispatches may finish after a signal.
const shutdownTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	slog.SetDefault(app.NewLogger(cfg, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Performance instrumentation: request and provider-call timings
	collector := perf.NewCollector(perf.DefaultRingSize)

	sender, err := app.NewSender(cfg, collector)
	if err != nil {
		log.Fatalf("failed to configure email sender: %v", err)
	}
	gen, err := app.NewGenerator(ctx, cfg, collector)
	if err != nil {
		log.Fatalf("failed to configure generator: %v", err)
	}
	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		log.Fatalf("failed to load CSRF key: %v", err)
	}

	mux := web.NewMux(web.Deps{
		Sender:         sender,
		Generator:      gen,
		Collector:      collector,
		From:           cfg.From,
		ReplyTo:        cfg.ReplyTo,
		UnsubscribeURL: cfg.UnsubscribeURL,
		Brand:          cfg.Brand,
		MaxFileSize:    cfg.MaxFileSize,
		BatchSize:      cfg.BatchSize,
		BatchDelay:     cfg.BatchDelay,
		CSRFKey:        csrfKey,
		SecureCookies:  cfg.IsProduction(),
		TrustedOrigins: localOrigins(cfg.Addr),
		RateLimit:      cfg.RateLimit,
		SlowRequestMs:  cfg.SlowRequestMs,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server_shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "provider", cfg.Provider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	slog.Info("server_stopped")
}

// localOrigins lists the loopback origins a browser uses to reach addr.
func localOrigins(addr string) []string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return nil
	}
	return []string{"localhost:" + port, "127.0.0.1:" + port}
}
