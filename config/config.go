package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	WorkerPollIntervalSec int `env:"WORKER_POLL_INTERVAL_SEC" envDefault:"1" validate:"min=1,max=60"`
	PlannerTickSec        int `env:"PLANNER_TICK_SEC" envDefault:"60" validate:"min=1,max=3600"`
	MinCaptureIntervalSec int `env:"MIN_CAPTURE_INTERVAL_SEC" envDefault:"3600" validate:"min=1"`
	MetaBatchWindowMinutes int `env:"META_BATCH_WINDOW_MINUTES" envDefault:"30" validate:"min=1"`
	MaxCaptureAttempts    int `env:"MAX_CAPTURE_ATTEMPTS" envDefault:"5" validate:"min=1,max=20"`
	MaxJobRetries         int `env:"MAX_JOB_RETRIES" envDefault:"4" validate:"min=0,max=20"`

	ArchiveBaseURL           string `env:"ARCHIVE_BASE_URL" envDefault:"https://web.archive.org/save/" validate:"required"`
	ArchiveRequestTimeoutSec int    `env:"ARCHIVE_REQUEST_TIMEOUT_SEC" envDefault:"30" validate:"min=1,max=300"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	JWTSecret     string `env:"JWT_SECRET"`
	ResendAPIKey  string `env:"RESEND_API_KEY"      validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom    string `env:"RESEND_FROM"         validate:"required_if=Env production,required_if=Env staging"`
	MagicLinkBase string `env:"MAGIC_LINK_BASE_URL" envDefault:"http://localhost:8080"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
