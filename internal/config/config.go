// Package config loads and validates the daemon's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/ayumu837/guildlog/config"
	"github.com/ayumu837/guildlog/internal/retention"
)

// Config represents the complete daemon configuration.
type Config struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// MessageLog configures the chat message log.
	MessageLog LogConfig `yaml:"message_log"`

	// VoiceLog configures the voice-state log.
	VoiceLog LogConfig `yaml:"voice_log"`

	// Sweep configures the daily retention sweep.
	Sweep SweepConfig `yaml:"sweep"`

	// Feed configures the event feed input.
	Feed FeedConfig `yaml:"feed"`

	// Query configures the ad-hoc SQL service.
	Query QueryConfig `yaml:"query"`

	// Archive configures Parquet exports.
	Archive ArchiveConfig `yaml:"archive"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches the output to JSON lines.
	JSON bool `yaml:"json"`
}

// LogConfig configures one event log.
type LogConfig struct {
	// Dir is the partition root of the log.
	Dir string `yaml:"dir"`

	// LifetimeDays is how many days a partition is kept. Fractional
	// values are allowed.
	LifetimeDays float64 `yaml:"lifetime_days"`
}

// SweepConfig configures the daily retention sweep.
type SweepConfig struct {
	// At is the wall-clock firing time, "15:04".
	At string `yaml:"at"`

	// Timezone is the IANA zone At is expressed in.
	Timezone string `yaml:"timezone"`
}

// FeedConfig configures the event feed input.
type FeedConfig struct {
	// Addr is where events are read from: "-" for stdin, or
	// "unix://<path>" to listen on a unix socket.
	Addr string `yaml:"addr"`
}

// QueryConfig configures the ad-hoc SQL service.
type QueryConfig struct {
	// MemoryLimit is the DuckDB memory limit.
	MemoryLimit string `yaml:"memory_limit"`

	// TimeoutSec is the per-query timeout in seconds.
	TimeoutSec int `yaml:"timeout_sec"`

	// MaxRows is the maximum number of rows returned.
	MaxRows int `yaml:"max_rows"`
}

// ArchiveConfig configures Parquet exports.
type ArchiveConfig struct {
	// Compression is the algorithm: snappy, zstd, lz4, gzip, none.
	Compression string `yaml:"compression"`

	// Level is the compression level (for zstd: 1-22).
	Level int `yaml:"level"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		MessageLog: LogConfig{
			Dir:          "/var/lib/guildlog/messages",
			LifetimeDays: defaults.DefaultLifetimeDays,
		},
		VoiceLog: LogConfig{
			Dir:          "/var/lib/guildlog/voice",
			LifetimeDays: defaults.DefaultLifetimeDays,
		},
		Sweep: SweepConfig{
			At:       defaults.DefaultSweepAt,
			Timezone: defaults.DefaultTimezone,
		},
		Feed: FeedConfig{
			Addr: defaults.DefaultFeedAddr,
		},
		Query: QueryConfig{
			MemoryLimit: defaults.DefaultQueryMemoryLimit,
			TimeoutSec:  defaults.DefaultQueryTimeoutSec,
			MaxRows:     defaults.DefaultQueryMaxRows,
		},
		Archive: ArchiveConfig{
			Compression: "zstd",
			Level:       3,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.MessageLog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("message_log: %w", err))
	}
	if err := c.VoiceLog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("voice_log: %w", err))
	}
	if err := c.Sweep.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sweep: %w", err))
	}
	if err := c.Query.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("query: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks one log configuration.
func (c *LogConfig) Validate() error {
	var errs []error

	if c.Dir == "" {
		errs = append(errs, errors.New("dir is required"))
	}
	if c.LifetimeDays <= 0 {
		errs = append(errs, errors.New("lifetime_days must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the sweep configuration. The schedule is parsed once
// here so a bad time-of-day or timezone fails at startup, not at the
// first firing.
func (c *SweepConfig) Validate() error {
	if _, err := retention.ParseSchedule(c.At, c.Timezone); err != nil {
		return err
	}
	return nil
}

// Validate checks the query configuration.
func (c *QueryConfig) Validate() error {
	var errs []error

	if c.TimeoutSec < 0 {
		errs = append(errs, errors.New("timeout_sec must not be negative"))
	}
	if c.MaxRows < 0 {
		errs = append(errs, errors.New("max_rows must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Schedule parses the sweep schedule. Validate has already checked it,
// so this does not fail after a successful Load.
func (c *SweepConfig) Schedule() (retention.Schedule, error) {
	return retention.ParseSchedule(c.At, c.Timezone)
}

// Timeout returns the query timeout as a duration.
func (c *QueryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
