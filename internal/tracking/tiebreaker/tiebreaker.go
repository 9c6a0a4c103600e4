// Package tiebreaker provides the per-process counter mixed into every encoding attempt.
package tiebreaker

import (
	"sync/atomic"
	"time"
)

// Counter is a strictly increasing sequence. It is not globally unique across
// processes; the registry is responsible for cross-process uniqueness.
type Counter struct {
	value atomic.Int64
}

// NewCounter starts the sequence at seed.
func NewCounter(seed int64) *Counter {
	c := &Counter{}
	c.value.Store(seed)
	return c
}

// NewFromClock seeds the counter with the current Unix time in milliseconds.
func NewFromClock() *Counter {
	return NewCounter(time.Now().UnixMilli())
}

// Next returns the current value and advances the counter by one.
func (c *Counter) Next() int64 {
	return c.value.Add(1) - 1
}

// Peek returns the value the next call to Next will return.
func (c *Counter) Peek() int64 {
	return c.value.Load()
}

// Reset re-seeds the counter.
func (c *Counter) Reset(seed int64) {
	c.value.Store(seed)
}
