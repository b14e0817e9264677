package config

import (
	"fmt"
	"strings"
	"time"

	defaults "github.com/xtxerr/roundrobin/config"
)

// Requirements represents the calculated footprint of one series layout.
type Requirements struct {
	// Slots is the number of backing slots across all levels, staging
	// windows included.
	Slots int64

	// MemoryBytes is Slots times the size of a float64.
	MemoryBytes int64

	// DataPoints is the number of visible values across all levels.
	DataPoints int64

	// Samples is the length of the uniform time axis.
	Samples int64

	// Levels describes each level, finest first.
	Levels []LevelRequirements
}

// LevelRequirements describes one level of a layout.
type LevelRequirements struct {
	Depth      int
	DataPoints int64

	// Resolution is the time one value of this level stands for.
	Resolution time.Duration

	// Retention is the time span the level covers.
	Retention time.Duration
}

// Sizes returns the visible size of each level, finest first. It stops
// growing once a size exceeds MaxSlotsPerSeries, so callers can detect
// oversized layouts without overflowing.
func (l Layout) Sizes() []int64 {
	if l.Levels < 1 || l.DataPoints <= 0 {
		return nil
	}
	factor := int64(l.ReducingFactor)
	if l.Levels == 1 || factor <= 0 {
		factor = 1
	}

	sizes := make([]int64, l.Levels)
	size := int64(l.DataPoints)
	for i := l.Levels - 1; i >= 0; i-- {
		sizes[i] = size
		if size <= defaults.MaxSlotsPerSeries && factor <= defaults.MaxSlotsPerSeries {
			size *= factor
		}
	}
	return sizes
}

// Slots returns the number of backing slots a store with this layout uses.
func (l Layout) Slots() int64 {
	staging := min(int64(l.ReducingFactor), defaults.MaxSlotsPerSeries+1)

	var slots int64
	for _, size := range l.Sizes() {
		slots += size + staging
		if slots > defaults.MaxSlotsPerSeries {
			break
		}
	}
	return slots
}

// CalculateRequirements computes the footprint of the layout used by series.
func (c *Config) CalculateRequirements(series string) Requirements {
	layout := c.LayoutFor(series)
	sizes := layout.Sizes()

	r := Requirements{
		Slots: layout.Slots(),
	}
	r.MemoryBytes = r.Slots * defaults.BytesPerValue

	perSample := int64(1)
	for depth, size := range sizes {
		resolution := c.Step * time.Duration(perSample)
		r.Levels = append(r.Levels, LevelRequirements{
			Depth:      depth,
			DataPoints: size,
			Resolution: resolution,
			Retention:  resolution * time.Duration(size),
		})
		r.DataPoints += size
		perSample *= int64(layout.ReducingFactor)
	}
	if len(sizes) > 0 {
		r.Samples = sizes[0] * int64(len(sizes))
	}

	return r
}

// FormatRequirements returns a human-readable summary of requirements.
func (r *Requirements) FormatRequirements() string {
	var b strings.Builder

	fmt.Fprintf(&b, `Resource Requirements
=====================

Memory:
  Slots:             %s
  Bytes:             %s

Addressing:
  Data points:       %s
  Samples:           %s

Levels:
`,
		formatNumber(r.Slots),
		formatBytes(r.MemoryBytes),
		formatNumber(r.DataPoints),
		formatNumber(r.Samples),
	)

	for _, level := range r.Levels {
		fmt.Fprintf(&b, "  %d: %s points, resolution %s, retention %s\n",
			level.Depth, formatNumber(level.DataPoints), level.Resolution, level.Retention)
	}

	return b.String()
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	if n < 1000000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1000000000)
}
