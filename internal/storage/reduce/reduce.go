// Package reduce provides the consolidation functions a round-robin store
// applies when it folds a window of finer values into one coarser value.
//
// Every function here matches buffer.Reducer: it takes the window oldest to
// newest and returns a single value. An empty window yields the zero value.
package reduce

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DataDog/sketches-go/ddsketch"
	"golang.org/x/exp/constraints"

	"github.com/xtxerr/roundrobin/internal/errors"
)

// Numeric is satisfied by every integer and floating point type.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// DefaultAccuracy is the relative accuracy used for quantile reducers when
// none is configured (1% error).
const DefaultAccuracy = 0.01

// Average returns the arithmetic mean. Integer types truncate.
func Average[T Numeric](values []T) T {
	if len(values) == 0 {
		var zero T
		return zero
	}
	return Sum(values) / T(len(values))
}

// Sum returns the sum of values.
func Sum[T Numeric](values []T) T {
	var sum T
	for _, v := range values {
		sum += v
	}
	return sum
}

// Min returns the smallest value.
func Min[T Numeric](values []T) T {
	if len(values) == 0 {
		var zero T
		return zero
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value.
func Max[T Numeric](values []T) T {
	if len(values) == 0 {
		var zero T
		return zero
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// First returns the oldest value of the window.
func First[T any](values []T) T {
	if len(values) == 0 {
		var zero T
		return zero
	}
	return values[0]
}

// Last returns the newest value of the window.
func Last[T any](values []T) T {
	if len(values) == 0 {
		var zero T
		return zero
	}
	return values[len(values)-1]
}

// Quantile returns a reducer estimating the q-quantile of each window with
// a DDSketch of the given relative accuracy.
func Quantile(q, accuracy float64) (func([]float64) float64, error) {
	if q < 0 || q > 1 {
		return nil, errors.NewInvalidValue("quantile", q, "must be between 0 and 1")
	}
	if accuracy <= 0 || accuracy >= 1 {
		return nil, errors.NewInvalidValue("accuracy", accuracy, "must be between 0 and 1")
	}
	// Fail at construction rather than on the first window.
	if _, err := ddsketch.NewDefaultDDSketch(accuracy); err != nil {
		return nil, errors.Wrap(err, "create sketch")
	}

	return func(values []float64) float64 {
		if len(values) == 0 {
			return 0
		}
		// A sketch per window: windows are small and DDSketch has no Clear.
		sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err != nil {
			return math.NaN()
		}
		for _, v := range values {
			if err := sketch.Add(v); err != nil {
				return math.NaN()
			}
		}
		result, err := sketch.GetValueAtQuantile(q)
		if err != nil {
			return math.NaN()
		}
		return result
	}, nil
}

var quantiles = map[string]float64{
	"median": 0.50,
	"p50":    0.50,
	"p90":    0.90,
	"p95":    0.95,
	"p99":    0.99,
}

var simple = map[string]func([]float64) float64{
	"average": Average[float64],
	"avg":     Average[float64],
	"mean":    Average[float64],
	"min":     Min[float64],
	"max":     Max[float64],
	"sum":     Sum[float64],
	"first":   First[float64],
	"last":    Last[float64],
}

// ByName resolves a reducer for float64 series by its configuration name.
// accuracy only matters for quantile reducers; zero selects DefaultAccuracy.
func ByName(name string, accuracy float64) (func([]float64) float64, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	if fn, ok := simple[key]; ok {
		return fn, nil
	}
	if q, ok := quantiles[key]; ok {
		if accuracy == 0 {
			accuracy = DefaultAccuracy
		}
		return Quantile(q, accuracy)
	}
	return nil, fmt.Errorf("%q: %w", name, errors.ErrUnknownReducer)
}

// Names lists every name ByName accepts, sorted.
func Names() []string {
	names := make([]string, 0, len(simple)+len(quantiles))
	for name := range simple {
		names = append(names, name)
	}
	for name := range quantiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnown reports whether ByName accepts name.
func IsKnown(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	_, ok := simple[key]
	if !ok {
		_, ok = quantiles[key]
	}
	return ok
}
