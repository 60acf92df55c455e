// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/policydesk/internal/dispatch"
	"github.com/dmitrymomot/policydesk/internal/settings"
	"github.com/dmitrymomot/policydesk/pkg/db"
	"github.com/dmitrymomot/policydesk/pkg/logger"
)

var (
	ErrLoadEnvFile = errors.New("config: failed to load env file")
	ErrParse       = errors.New("config: failed to parse environment")
	ErrInvalid     = errors.New("config: invalid configuration")
)

// HTTP configures the settings API listener.
type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Config is the full process configuration.
type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	RecipientMode string `env:"RECIPIENT_MODE" envDefault:"operator"`

	HTTP   HTTP
	DB     db.Config
	Sentry logger.SentryConfig
	Mail   settings.Defaults
}

// Load reads the optional env files, then parses and validates the environment.
// Missing files are ignored; variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(ErrLoadEnvFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if _, err := dispatch.ParseRecipientMode(c.RecipientMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Mail.MailPort < 0 || c.Mail.MailPort > 65535 {
		errs = append(errs, errors.New("MAIL_PORT must be within 0-65535"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}

// Mode returns the parsed recipient mode.
func (c *Config) Mode() dispatch.RecipientMode {
	m, err := dispatch.ParseRecipientMode(c.RecipientMode)
	if err != nil {
		return dispatch.RecipientOperator
	}
	return m
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return l, errors.New("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return l, nil
}

// Hostname is used as the SMTP HELO name; it falls back to "localhost".
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	return h
}
