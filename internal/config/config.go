// Package config holds the dashboard's process configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/internal/observability"
	"github.com/signalsfoundry/rlnc-dashboard/playback"
)

// EnvPrefix is prepended to every variable name in Config.
const EnvPrefix = "DASHBOARD_"

// Config is populated from DASHBOARD_* environment variables; command-line
// flags override individual fields afterwards.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":50051"`

	// Dataset is a JSON or YAML file; empty selects the embedded dataset.
	Dataset string `env:"DATASET"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	PlaybackInterval time.Duration `env:"PLAYBACK_INTERVAL" envDefault:"300ms"`
	MaxStep          int           `env:"MAX_STEP" envDefault:"49"`

	ExportDir string `env:"EXPORT_DIR" envDefault:"."`

	Tracing observability.TracingConfig `envPrefix:"TRACING_"`
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		GRPCAddr:         ":50051",
		LogLevel:         "info",
		LogFormat:        "text",
		PlaybackInterval: playback.DefaultInterval,
		MaxStep:          playback.DefaultMaxStep,
		ExportDir:        ".",
		Tracing: observability.TracingConfig{
			ServiceName: "rlnc-dashboard",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address must not be empty"))
	}
	if c.PlaybackInterval <= 0 {
		errs = append(errs, fmt.Errorf("playback interval must be positive, got %s", c.PlaybackInterval))
	}
	if c.MaxStep < 0 {
		errs = append(errs, fmt.Errorf("max step must not be negative, got %d", c.MaxStep))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.LogFormat))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unsupported log level %q", c.LogLevel))
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Logging returns the logger settings carried by c.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat}
}
