package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/roundrobin/config"
)

// Config represents the complete store configuration.
type Config struct {
	// Step is the expected interval between raw pushes.
	// Format: "10s", "1m"
	Step time.Duration `yaml:"step"`

	// Defaults is the layout used by every series without an override.
	Defaults Layout `yaml:"defaults"`

	// Series lists per-series overrides. The first matching entry wins.
	Series []SeriesLayout `yaml:"series"`

	// Registry configures the series registry.
	Registry RegistryConfig `yaml:"registry"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// Layout defines the shape of one round-robin store.
type Layout struct {
	// Levels is the number of resolution levels.
	Levels int `yaml:"levels"`

	// DataPoints is the number of values kept by the coarsest level.
	DataPoints int `yaml:"data_points"`

	// ReducingFactor is how many finer values fold into one coarser value.
	ReducingFactor int `yaml:"reducing_factor"`

	// Reducer names the consolidation function: average, min, max, sum,
	// first, last, median, p50, p90, p95, p99.
	Reducer string `yaml:"reducer"`

	// PercentileAccuracy is the relative accuracy for quantile reducers.
	PercentileAccuracy float64 `yaml:"percentile_accuracy"`
}

// SeriesLayout overrides the default layout for matching series.
type SeriesLayout struct {
	// Match is a path.Match pattern on the series name (e.g., "router-*:cpu").
	Match string `yaml:"match"`

	// Zero fields inherit from Config.Defaults.
	Layout `yaml:",inline"`
}

// RegistryConfig configures the series registry.
type RegistryConfig struct {
	// Shards is the number of independently locked shards.
	Shards int `yaml:"shards"`

	// Workers bounds the goroutines used by one batch ingestion.
	Workers int `yaml:"workers"`

	// MaxSeries caps the number of series. 0 means unlimited.
	MaxSeries int `yaml:"max_series"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches to JSON output.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration on top of DefaultConfig and validates it.
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Step: defaults.DefaultStep,
		Defaults: Layout{
			Levels:             defaults.DefaultLevels,
			DataPoints:         defaults.DefaultDataPoints,
			ReducingFactor:     defaults.DefaultReducingFactor,
			Reducer:            defaults.DefaultReducer,
			PercentileAccuracy: defaults.DefaultPercentileAccuracy,
		},
		Registry: RegistryConfig{
			Shards:    defaults.DefaultShards,
			Workers:   defaults.DefaultWorkers,
			MaxSeries: defaults.DefaultMaxSeries,
		},
		Logging: LoggingConfig{
			Level: defaults.DefaultLogLevel,
		},
	}
}

// LayoutFor returns the layout for a series: the first matching override
// merged over the defaults, or the defaults.
func (c *Config) LayoutFor(series string) Layout {
	for _, s := range c.Series {
		if ok, _ := path.Match(s.Match, series); ok {
			return s.Layout.inherit(c.Defaults)
		}
	}
	return c.Defaults
}

// inherit fills zero fields from base.
func (l Layout) inherit(base Layout) Layout {
	if l.Levels == 0 {
		l.Levels = base.Levels
	}
	if l.DataPoints == 0 {
		l.DataPoints = base.DataPoints
	}
	if l.ReducingFactor == 0 {
		l.ReducingFactor = base.ReducingFactor
	}
	if l.Reducer == "" {
		l.Reducer = base.Reducer
	}
	if l.PercentileAccuracy == 0 {
		l.PercentileAccuracy = base.PercentileAccuracy
	}
	return l
}
