package buffer

import (
	"math"

	"github.com/xtxerr/roundrobin/internal/errors"
)

// Reducer combines a non-empty window of values into one value.
// It is called synchronously from Push and must not retain the slice.
type Reducer[T any] func(values []T) T

// Reducing is a ring of size visible values plus reducingFactor staging
// slots. Every reducingFactor pushes the staging window is reduced and the
// result is pushed to the downstream sink.
//
// The backing ring holds size+reducingFactor values. Values reports the size
// newest of them; the reducingFactor oldest form the staging window, which
// is exactly what has just dropped out of the visible range. Because size is
// a multiple of reducingFactor, tail%reducingFactor == 0 marks a window
// boundary on every lap of the ring.
type Reducing[T any] struct {
	ring       *Circular[T]
	factor     int
	reduce     Reducer[T]
	downstream Sink[T]
}

// NewReducing creates a reducing buffer. downstream may be nil, in which
// case the reducer is never invoked and may also be nil.
//
// Pass an untyped nil for "no downstream": a nil *Circular wrapped in the
// Sink interface is a non-nil sink.
func NewReducing[T any](size, reducingFactor int, reducer Reducer[T], downstream Sink[T]) (*Reducing[T], error) {
	if size <= 0 {
		return nil, errors.NewInvalidValue("size", size, "must be positive")
	}
	if downstream != nil && reducingFactor <= 0 {
		return nil, errors.NewInvalidValue("reducing factor", reducingFactor, "must be positive when a downstream buffer is set")
	}
	if reducingFactor < 0 {
		return nil, errors.NewInvalidValue("reducing factor", reducingFactor, "must not be negative")
	}
	if size > math.MaxInt-reducingFactor {
		return nil, errors.NewInvalidValue("size", size, "overflows with the reducing factor")
	}
	if reducingFactor > 0 && size%reducingFactor != 0 {
		return nil, errors.NewInvalidValue("size", size, "must be a multiple of the reducing factor")
	}
	if downstream != nil && reducer == nil {
		return nil, errors.NewMissingField("reducer")
	}

	return &Reducing[T]{
		ring:       newCircular[T](size + reducingFactor),
		factor:     reducingFactor,
		reduce:     reducer,
		downstream: downstream,
	}, nil
}

// Push appends value and, on a window boundary, forwards the reduced
// staging window downstream.
func (r *Reducing[T]) Push(value T) {
	r.ring.Push(value)
	if r.downstream != nil && r.ring.tail%r.factor == 0 {
		r.downstream.Push(r.reduce(r.ValuesToReduce()))
	}
}

// Values returns the visible values from oldest to newest.
func (r *Reducing[T]) Values() []T {
	values, _ := r.ring.Slice(r.oldestValueIndex(), r.Len())
	return values
}

// ValuesToReduce returns the staging window from oldest to newest.
func (r *Reducing[T]) ValuesToReduce() []T {
	values, _ := r.ring.Slice(r.ring.tail, r.factor)
	return values
}

// At returns the value pushed ago pushes before the most recent one.
// Unlike Values, it addresses the whole backing ring, staging slots included.
func (r *Reducing[T]) At(ago int) (T, error) {
	return r.ring.At(ago)
}

// Slice copies a wrapped range of the backing ring.
func (r *Reducing[T]) Slice(start, count int) ([]T, error) {
	return r.ring.Slice(start, count)
}

// Len returns the number of visible values.
func (r *Reducing[T]) Len() int {
	return r.ring.Cap() - r.factor
}

// Cap returns the number of backing slots, staging window included.
func (r *Reducing[T]) Cap() int {
	return r.ring.Cap()
}

// ReducingFactor returns the staging window width.
func (r *Reducing[T]) ReducingFactor() int {
	return r.factor
}

// String renders the visible values.
func (r *Reducing[T]) String() string {
	return format(r.Values())
}

func (r *Reducing[T]) oldestValueIndex() int {
	return (r.ring.tail + r.factor) % r.ring.Cap()
}
