// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Validation errors wrap this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8088".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory acknowledgement queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of acknowledgement workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the number of fan-out idempotency keys kept in memory.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxCandidates caps the candidates accepted by one rank-feed request.
	MaxCandidates int `koanf:"max_candidates"`

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8088",
		QueueSize:         10_000,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        50_000,
		MaxCandidates:     10_000,
		MaxBodyBytes:      4 << 20,
		ShutdownTimeoutMS: 30_000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive (got %d)", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive (got %d)", ErrInvalidConfig, c.WorkerCount)
	case c.MaxCandidates < 1:
		return fmt.Errorf("%w: max_candidates must be positive (got %d)", ErrInvalidConfig, c.MaxCandidates)
	case c.MaxBodyBytes < 1:
		return fmt.Errorf("%w: max_body_bytes must be positive (got %d)", ErrInvalidConfig, c.MaxBodyBytes)
	case c.ShutdownTimeoutMS < 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must not be negative (got %d)", ErrInvalidConfig, c.ShutdownTimeoutMS)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json (got %q)", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
