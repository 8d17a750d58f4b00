package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level // parsed from RawLogLevel
	RawLogLevel string     `env:"LOG_LEVEL" envDefault:"info"`

	LLMProvider     string        `env:"LLM_PROVIDER" envDefault:"anthropic"` // anthropic, venice or mock
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	VeniceAPIKey    string        `env:"VENICE_API_KEY"`
	ModelName       string        `env:"MODEL_NAME"`
	NarratorTimeout time.Duration `env:"NARRATOR_TIMEOUT" envDefault:"90s"`
	ContentRating   string        `env:"CONTENT_RATING" envDefault:"PG-13"`

	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"` // redis or sqlite
	RedisURL       string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"anima.db"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	DataDir        string `env:"DATA_DIR" envDefault:"data"`
	MaxDicePerRoll int    `env:"MAX_DICE_PER_ROLL" envDefault:"1000"`

	OtelEndpoint string `env:"OTEL_ENDPOINT"` // tracing is off when empty
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.RawLogLevel)
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required when using anthropic provider"))
		}
	case "venice":
		if c.VeniceAPIKey == "" {
			errs = append(errs, errors.New("VENICE_API_KEY is required when using venice provider"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider))
	}
	switch c.StorageBackend {
	case "redis", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.MaxDicePerRoll <= 0 {
		errs = append(errs, errors.New("MAX_DICE_PER_ROLL must be positive"))
	}
	if c.NarratorTimeout <= 0 {
		errs = append(errs, errors.New("NARRATOR_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
