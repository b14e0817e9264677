// Package rrd implements a fixed-memory, multi-resolution round-robin store.
//
// A Store is a chain of reducing buffers. Raw values enter the finest level;
// every reducingFactor values a level folds its staging window into one value
// of the next coarser level. Memory is fixed at construction, so the store
// keeps recent history at full resolution and older history at progressively
// coarser resolution for as long as it runs.
//
// Two addressing schemes are offered:
//
//	DataPoint(i)  every stored value once, newest finest value first, then
//	              the next coarser level, and so on.
//	Sample(ago)   a uniform time axis where each level contributes
//	              SamplesPerLevel() slots by repeating its values
//	              reducingFactor^depth times.
//
// A Store is not safe for concurrent use; see package series for a
// synchronized registry of stores.
package rrd

import (
	"fmt"
	"math"
	"strings"

	"github.com/xtxerr/roundrobin/internal/errors"
	"github.com/xtxerr/roundrobin/internal/storage/buffer"
)

// Store is a multi-level round-robin store of values of type T.
type Store[T any] struct {
	// levels[0] is the coarsest level, levels[len-1] the finest.
	// levels[i+1] cascades into levels[i].
	levels []*buffer.Reducing[T]

	reducingFactor     int
	samplesPerLevel    int
	capacityDataPoints int
	capacitySamples    int
	pushes             uint64
}

// LevelInfo describes one level of a Store. Depth 0 is the finest level.
type LevelInfo struct {
	Depth int

	// DataPoints is the number of visible values the level holds.
	DataPoints int

	// DataPointsPerSample is how many raw pushes one value of this level
	// stands for (reducingFactor^Depth).
	DataPointsPerSample int

	// RawPoints is the span of raw pushes the level covers.
	RawPoints int
}

// New creates a store with numberOfLevels levels. The coarsest level holds
// dataPoints values and each finer level holds reducingFactor times more, so
// every level covers the same number of raw pushes. reducer folds windows of
// reducingFactor values; it is not used when numberOfLevels is 1.
func New[T any](numberOfLevels, dataPoints, reducingFactor int, reducer buffer.Reducer[T]) (*Store[T], error) {
	sizes, err := levelSizes(numberOfLevels, dataPoints, reducingFactor)
	if err != nil {
		return nil, err
	}

	levels := make([]*buffer.Reducing[T], 0, numberOfLevels)
	var downstream buffer.Sink[T] // untyped nil for the coarsest level
	for i, size := range sizes {
		level, err := buffer.NewReducing(size, reducingFactor, reducer, downstream)
		if err != nil {
			return nil, errors.Wrapf(err, "level %d", i)
		}
		levels = append(levels, level)
		downstream = level
	}

	s := &Store[T]{
		levels:         levels,
		reducingFactor: reducingFactor,
	}
	s.samplesPerLevel = s.finest().Len()
	for _, level := range levels {
		s.capacityDataPoints += level.Len()
	}
	s.capacitySamples = s.samplesPerLevel * numberOfLevels

	return s, nil
}

// levelSizes returns the visible size of each level, coarsest first.
func levelSizes(numberOfLevels, dataPoints, reducingFactor int) ([]int, error) {
	if numberOfLevels < 1 {
		return nil, errors.NewInvalidValue("number of levels", numberOfLevels, "must be at least 1")
	}
	if dataPoints <= 0 {
		return nil, errors.NewInvalidValue("data points", dataPoints, "must be positive")
	}
	if numberOfLevels > 1 && reducingFactor <= 0 {
		return nil, errors.NewInvalidValue("reducing factor", reducingFactor, "must be positive with more than one level")
	}

	// Keeps size+reducingFactor and the sample capacity within int.
	limit := math.MaxInt / 2 / numberOfLevels

	sizes := make([]int, numberOfLevels)
	size := dataPoints
	for i := range sizes {
		if size > limit {
			return nil, errors.NewInvalidValue("data points", dataPoints, "level sizes overflow")
		}
		sizes[i] = size
		if i < numberOfLevels-1 {
			if size > limit/reducingFactor {
				return nil, errors.NewInvalidValue("data points", dataPoints, "level sizes overflow")
			}
			size *= reducingFactor
		}
	}
	return sizes, nil
}

func (s *Store[T]) finest() *buffer.Reducing[T] {
	return s.levels[len(s.levels)-1]
}

// Push adds a raw value to the finest level. Reductions cascade into
// coarser levels as window boundaries are crossed.
func (s *Store[T]) Push(value T) {
	s.finest().Push(value)
	s.pushes++
}

// DataPoint returns stored value index across all levels. Index 0 is the
// newest value of the finest level; indexes run backwards through the finest
// level and continue with the next coarser one.
func (s *Store[T]) DataPoint(index int) (T, error) {
	if index < 0 || index >= s.capacityDataPoints {
		var zero T
		return zero, errors.NewOutOfRange("data point", index, s.capacityDataPoints)
	}

	level := len(s.levels) - 1
	for index >= s.levels[level].Len() {
		index -= s.levels[level].Len()
		level--
	}
	return s.levels[level].At(index)
}

// Sample returns the value ago slots back on the uniform time axis.
// Sample(0) is the most recently pushed raw value.
func (s *Store[T]) Sample(ago int) (T, error) {
	if ago < 0 || ago >= s.capacitySamples {
		var zero T
		return zero, errors.NewOutOfRange("sample", ago, s.capacitySamples)
	}

	depth := ago / s.samplesPerLevel
	perSample := pow(s.reducingFactor, depth)
	withinLevel := ago % s.samplesPerLevel
	return s.levels[len(s.levels)-depth-1].At(withinLevel / perSample)
}

// DataPoints returns every stored value in DataPoint order.
func (s *Store[T]) DataPoints() []T {
	out := make([]T, 0, s.capacityDataPoints)
	for level := len(s.levels) - 1; level >= 0; level-- {
		for ago := 0; ago < s.levels[level].Len(); ago++ {
			v, _ := s.levels[level].At(ago)
			out = append(out, v)
		}
	}
	return out
}

// Samples returns the whole uniform time axis in Sample order.
func (s *Store[T]) Samples() []T {
	out := make([]T, s.capacitySamples)
	for ago := range out {
		out[ago], _ = s.Sample(ago)
	}
	return out
}

// LevelValues returns the visible values of a level, oldest to newest.
// Depth 0 is the finest level.
func (s *Store[T]) LevelValues(depth int) ([]T, error) {
	if depth < 0 || depth >= len(s.levels) {
		return nil, errors.NewOutOfRange("depth", depth, len(s.levels))
	}
	return s.levels[len(s.levels)-depth-1].Values(), nil
}

// Levels describes every level, finest first.
func (s *Store[T]) Levels() []LevelInfo {
	infos := make([]LevelInfo, len(s.levels))
	for depth := range infos {
		level := s.levels[len(s.levels)-depth-1]
		perSample := pow(s.reducingFactor, depth)
		infos[depth] = LevelInfo{
			Depth:               depth,
			DataPoints:          level.Len(),
			DataPointsPerSample: perSample,
			RawPoints:           level.Len() * perSample,
		}
	}
	return infos
}

// CapacityDataPoints returns the number of values stored across all levels.
func (s *Store[T]) CapacityDataPoints() int {
	return s.capacityDataPoints
}

// CapacitySamples returns the length of the uniform time axis.
func (s *Store[T]) CapacitySamples() int {
	return s.capacitySamples
}

// SamplesPerLevel returns the number of time axis slots each level fills.
func (s *Store[T]) SamplesPerLevel() int {
	return s.samplesPerLevel
}

// NumLevels returns the number of levels.
func (s *Store[T]) NumLevels() int {
	return len(s.levels)
}

// ReducingFactor returns the number of finer values folded into one
// coarser value.
func (s *Store[T]) ReducingFactor() int {
	return s.reducingFactor
}

// Pushes returns the number of raw values pushed so far.
func (s *Store[T]) Pushes() uint64 {
	return s.pushes
}

// String renders each level's visible values, coarsest first.
func (s *Store[T]) String() string {
	parts := make([]string, len(s.levels))
	for i, level := range s.levels {
		parts[i] = fmt.Sprintf("%d: %s", i, level)
	}
	return strings.Join(parts, ",")
}

func pow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
