// Package config loads leadmail settings from the environment and an optional .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "LEADMAIL_"

// Delivery providers.
const (
	ProviderResend   = "resend"
	ProviderPostmark = "postmark"
	ProviderNoop     = "noop"
)

// Config errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrParsingConfig = errors.New("failed to parse configuration")
)

// Config is the full runtime configuration for the server and CLI.
type Config struct {
	Env       string `env:"ENV" envDefault:"development"`
	Addr      string `env:"ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	MaxFileSize int64 `env:"MAX_FILE_SIZE" envDefault:"5242880"`

	Provider             string `env:"PROVIDER" envDefault:"noop"`
	ResendKey            string `env:"RESEND_KEY"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkStream       string `env:"POSTMARK_STREAM" envDefault:"broadcast"`
	From                 string `env:"FROM" envDefault:"testing@resend.dev"`
	ReplyTo              string `env:"REPLY_TO"`
	UnsubscribeURL       string `env:"UNSUBSCRIBE_URL"`

	BatchSize  int           `env:"BATCH_SIZE" envDefault:"5"`
	BatchDelay time.Duration `env:"BATCH_DELAY" envDefault:"1s"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	Brand        string `env:"BRAND" envDefault:"ECMP"`

	CSRFKey       string  `env:"CSRF_KEY"`
	RateLimit     float64 `env:"RATE_LIMIT" envDefault:"10"`
	SlowRequestMs float64 `env:"SLOW_REQUEST_MS" envDefault:"500"`
}

var dotenvLoaded sync.Once

// Load reads an optional .env file once per process, then parses LEADMAIL_* variables.
// PRE: none
// POST: Returns a validated Config or an error wrapping ErrParsingConfig / ErrInvalidConfig
func Load() (Config, error) {
	dotenvLoaded.Do(func() {
		// A missing .env is normal outside local development.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the deployment is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field rules that struct tags cannot express.
// PRE: none
// POST: Returns nil or an error wrapping ErrInvalidConfig naming the offending key
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Provider {
	case ProviderResend:
		if c.ResendKey == "" {
			invalid("%sRESEND_KEY is required for provider %q", EnvPrefix, c.Provider)
		}
	case ProviderPostmark:
		if c.PostmarkServerToken == "" {
			invalid("%sPOSTMARK_SERVER_TOKEN is required for provider %q", EnvPrefix, c.Provider)
		}
	case ProviderNoop:
		if c.IsProduction() {
			slog.Warn("config_noop_provider", "env", c.Env)
		}
	default:
		invalid("%sPROVIDER must be one of resend, postmark, noop; got %q", EnvPrefix, c.Provider)
	}

	if c.From == "" {
		invalid("%sFROM is required", EnvPrefix)
	}
	if c.MaxFileSize <= 0 {
		invalid("%sMAX_FILE_SIZE must be positive", EnvPrefix)
	}
	if c.BatchSize < 1 {
		invalid("%sBATCH_SIZE must be at least 1", EnvPrefix)
	}
	if c.BatchDelay < 0 {
		invalid("%sBATCH_DELAY must not be negative", EnvPrefix)
	}
	if c.RateLimit <= 0 {
		invalid("%sRATE_LIMIT must be positive", EnvPrefix)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		invalid("%sLOG_FORMAT must be text or json; got %q", EnvPrefix, c.LogFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		invalid("%sLOG_LEVEL: %v", EnvPrefix, err)
	}
	if c.CSRFKey != "" {
		if _, err := decodeCSRFKey(c.CSRFKey); err != nil {
			invalid("%sCSRF_KEY must be 64 hex characters (32 bytes)", EnvPrefix)
		}
	} else if c.IsProduction() {
		invalid("%sCSRF_KEY is required in production", EnvPrefix)
	}

	return errors.Join(errs...)
}

// CSRFKeyBytes returns the configured CSRF secret, or a random one outside production.
// PRE: Validate returned nil
// POST: Returns 32 bytes
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey != "" {
		return decodeCSRFKey(c.CSRFKey)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set "+EnvPrefix+"CSRF_KEY so form tokens survive restarts")
	return key, nil
}

func decodeCSRFKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("csrf key is %d bytes, want 32", len(key))
	}
	return key, nil
}

// ParseLevel maps a LEADMAIL_LOG_LEVEL value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return lvl, nil
}
