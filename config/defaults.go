// Package config provides configuration defaults and utilities
// for the guildlog application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command-line flags.
package config

// =============================================================================
// Partition Layout
// =============================================================================

const (
	// PartitionDateLayout is the time layout for partition filenames.
	// One file per calendar day: 2024-06-10.json
	PartitionDateLayout = "2006-01-02"

	// PartitionExt is the extension of every partition file.
	PartitionExt = ".json"

	// DirMode is the permission mode for created partition directories.
	DirMode = 0o755

	// FileMode is the permission mode for written partition files.
	FileMode = 0o644
)

// =============================================================================
// Retention Defaults
// =============================================================================

const (
	// DefaultLifetimeDays is how long partitions are kept before the sweep
	// deletes them. Fractional values are allowed in the config file.
	// Override via config: message_log.lifetime_days / voice_log.lifetime_days
	DefaultLifetimeDays = 14.0

	// DefaultSweepAt is the wall-clock time of day the daily retention
	// sweep fires, expressed in DefaultTimezone.
	// Override via config: sweep.at
	DefaultSweepAt = "04:00"

	// DefaultTimezone is the IANA timezone the sweep time and record
	// timestamps are expressed in.
	// Override via config: sweep.timezone
	DefaultTimezone = "Asia/Tokyo"
)

// =============================================================================
// Query Defaults
// =============================================================================

const (
	// DefaultQueryMemoryLimit is the DuckDB memory limit for ad-hoc queries.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "1GB"

	// DefaultQueryMaxRows caps the number of rows an ad-hoc query returns.
	// Override via config: query.max_rows
	DefaultQueryMaxRows = 100000

	// DefaultQueryTimeoutSec is the per-query timeout in seconds.
	// Override via config: query.timeout_sec
	DefaultQueryTimeoutSec = 30
)

// =============================================================================
// Feed Defaults
// =============================================================================

const (
	// DefaultFeedAddr is where the daemon reads the event feed from.
	// "-" means stdin; "unix://<path>" listens on a unix socket.
	// Override via config: feed.addr
	DefaultFeedAddr = "-"

	// MaxFeedLineBytes limits the size of a single feed line to
	// prevent OOM on a misbehaving producer.
	MaxFeedLineBytes = 1 * 1024 * 1024
)
