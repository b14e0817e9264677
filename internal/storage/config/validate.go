package config

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	defaults "github.com/xtxerr/roundrobin/config"
	"github.com/xtxerr/roundrobin/internal/errors"
	"github.com/xtxerr/roundrobin/internal/storage/reduce"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	v := errors.NewValidationErrors()

	if c.Step <= 0 {
		v.AddField("step", "must be positive")
	}

	// Defaults
	v.Add(errors.Wrap(c.Defaults.Validate(), "defaults"))

	// Series overrides are validated after inheriting the defaults
	for i, s := range c.Series {
		v.Add(errors.Wrapf(s.Validate(c.Defaults), "series[%d] %q", i, s.Match))
	}

	v.Add(errors.Wrap(c.Registry.Validate(), "registry"))
	v.Add(errors.Wrap(c.Logging.Validate(), "logging"))

	return v.Err()
}

// Validate checks a store layout.
func (l *Layout) Validate() error {
	v := errors.NewValidationErrors()

	if l.Levels < 1 || l.Levels > defaults.MaxLevels {
		v.AddField("levels", fmt.Sprintf("must be between 1 and %d", defaults.MaxLevels))
	}

	if l.DataPoints <= 0 {
		v.AddField("data_points", "must be positive")
	}

	if l.ReducingFactor < 0 {
		v.AddField("reducing_factor", "must not be negative")
	} else if l.Levels > 1 && l.ReducingFactor == 0 {
		v.AddField("reducing_factor", "must be positive with more than one level")
	} else if l.ReducingFactor > 0 && l.DataPoints%l.ReducingFactor != 0 {
		v.AddField("data_points", "must be a multiple of reducing_factor")
	}

	if l.Reducer == "" {
		v.AddMissing("reducer")
	} else if !reduce.IsKnown(l.Reducer) {
		v.Add(fmt.Errorf("reducer %q must be one of %s: %w",
			l.Reducer, strings.Join(reduce.Names(), ", "), errors.ErrUnknownReducer))
	}

	if l.PercentileAccuracy <= 0 || l.PercentileAccuracy >= 1 {
		v.AddField("percentile_accuracy", "must be between 0 and 1")
	}

	if !v.HasErrors() && l.Slots() > defaults.MaxSlotsPerSeries {
		v.AddField("layout", fmt.Sprintf("needs more than %d slots per series", defaults.MaxSlotsPerSeries))
	}

	return v.Err()
}

// Validate checks a series override merged over base.
func (s *SeriesLayout) Validate(base Layout) error {
	v := errors.NewValidationErrors()

	if s.Match == "" {
		v.AddMissing("match")
	} else if _, err := path.Match(s.Match, ""); err != nil {
		v.AddField("match", err.Error())
	}

	merged := s.Layout.inherit(base)
	v.Add(merged.Validate())

	return v.Err()
}

// Validate checks the registry configuration.
func (c *RegistryConfig) Validate() error {
	v := errors.NewValidationErrors()

	if c.Shards <= 0 {
		v.AddField("shards", "must be positive")
	}

	if c.Workers <= 0 {
		v.AddField("workers", "must be positive")
	}

	if c.MaxSeries < 0 {
		v.AddField("max_series", "must be non-negative")
	}

	return v.Err()
}

// Validate checks the logging configuration.
func (c *LoggingConfig) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts the configured level name.
func (c *LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, errors.NewInvalidValue("level", c.Level, "must be one of debug, info, warn, error")
	}
	return level, nil
}
