// Package buffer provides the fixed-capacity rings the round-robin store is
// built from.
//
// Circular is a plain overwrite-oldest ring. Reducing wraps a Circular with a
// hidden staging window and forwards one reduced value downstream for every
// reducingFactor pushes. Neither type is safe for concurrent mutation.
package buffer

import (
	"fmt"
	"strings"

	"github.com/xtxerr/roundrobin/internal/errors"
)

// Sink receives values pushed by a Reducing buffer.
// *Circular and *Reducing both implement it.
type Sink[T any] interface {
	Push(value T)
}

// Circular is a fixed-capacity ring. Pushing overwrites the oldest slot.
type Circular[T any] struct {
	data []T
	tail int // Next write position, always in [0, len(data))
}

// NewCircular creates a ring holding capacity values.
func NewCircular[T any](capacity int) (*Circular[T], error) {
	if capacity <= 0 {
		return nil, errors.NewInvalidValue("capacity", capacity, "must be positive")
	}
	return newCircular[T](capacity), nil
}

func newCircular[T any](capacity int) *Circular[T] {
	return &Circular[T]{data: make([]T, capacity)}
}

// Push writes value at the tail and advances it.
// The value pushed Cap() pushes ago is overwritten.
func (c *Circular[T]) Push(value T) {
	c.data[c.tail] = value
	c.tail = (c.tail + 1) % len(c.data)
}

// At returns the value pushed ago pushes before the most recent one.
// At(0) is the newest value. Slots never written read as the zero value.
func (c *Circular[T]) At(ago int) (T, error) {
	n := len(c.data)
	if ago < 0 || ago >= n {
		var zero T
		return zero, errors.NewOutOfRange("ago", ago, n)
	}
	return c.data[(n+c.tail-ago-1)%n], nil
}

// Values returns the ring contents from oldest to newest.
func (c *Circular[T]) Values() []T {
	values, _ := c.Slice(c.tail, c.Len())
	return values
}

// Slice copies count values starting at backing position start, wrapping
// around the end of the ring.
func (c *Circular[T]) Slice(start, count int) ([]T, error) {
	n := len(c.data)
	if start < 0 || start >= n {
		return nil, errors.NewOutOfRange("start", start, n)
	}
	if count < 0 || count > n {
		return nil, errors.NewOutOfRange("count", count, n+1)
	}

	out := make([]T, count)
	if start+count <= n {
		copy(out, c.data[start:start+count])
		return out, nil
	}
	k := copy(out, c.data[start:])
	copy(out[k:], c.data[:count-k])
	return out, nil
}

// Len returns the logical length of the ring.
func (c *Circular[T]) Len() int {
	return len(c.data)
}

// Cap returns the number of backing slots.
func (c *Circular[T]) Cap() int {
	return len(c.data)
}

// String renders every backing slot, starting at the oldest.
func (c *Circular[T]) String() string {
	return format(c.Values())
}

func format[T any](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
