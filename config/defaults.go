// Package config provides configuration defaults for the roundrobin tools.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via the YAML config file or CLI flags.
package config

import "time"

// =============================================================================
// Store Layout Defaults
// =============================================================================

const (
	// DefaultLevels is the number of resolution levels per series.
	// Override via config: defaults.levels
	DefaultLevels = 4

	// DefaultDataPoints is the number of values kept by the coarsest level.
	// Each finer level keeps DefaultReducingFactor times more.
	// Override via config: defaults.data_points
	DefaultDataPoints = 60

	// DefaultReducingFactor is how many finer values fold into one coarser
	// value. With a 10s step the levels resolve 10s, 1m, 6m and 36m.
	// Override via config: defaults.reducing_factor
	DefaultReducingFactor = 6

	// DefaultReducer names the consolidation function.
	// Override via config: defaults.reducer
	DefaultReducer = "average"

	// DefaultPercentileAccuracy is the DDSketch relative accuracy used by the
	// quantile reducers (p50, p90, p95, p99, median).
	// Override via config: defaults.percentile_accuracy
	DefaultPercentileAccuracy = 0.01

	// DefaultStep is the expected interval between raw pushes. It is only
	// used to describe level resolutions and retention.
	// Override via config: step
	DefaultStep = 10 * time.Second
)

// =============================================================================
// Registry Defaults
// =============================================================================

const (
	// DefaultShards is the number of independently locked series shards.
	// Override via config: registry.shards
	DefaultShards = 16

	// DefaultWorkers bounds the goroutines used by one batch ingestion.
	// Override via config: registry.workers
	DefaultWorkers = 4

	// DefaultMaxSeries caps the number of series a registry creates.
	// 0 means unlimited.
	// Override via config: registry.max_series
	DefaultMaxSeries = 100000
)

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is the slog level name.
	// Override via config: logging.level or -log-level
	DefaultLogLevel = "info"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxSeriesNameLength bounds series names.
	MaxSeriesNameLength = 255

	// MaxLevels bounds the number of resolution levels per series.
	MaxLevels = 32

	// MaxSlotsPerSeries bounds the backing slots of one series (all levels,
	// staging windows included): 16Mi slots is 128 MiB of float64.
	MaxSlotsPerSeries = 1 << 24

	// BytesPerValue is the in-memory size of one float64 slot, used for
	// memory requirement estimates.
	BytesPerValue = 8
)
