// Package clock provides the single time source shared by the rate
// limiter, the producer and the worker so that every wait computation in
// the dispatcher compares timestamps drawn from the same clock.
package clock

import "time"

// Clock reports the current time in milliseconds. All dispatcher
// components consume time through this interface rather than calling
// time.Now directly, so tests can substitute a deterministic fake.
type Clock interface {
	NowMillis() int64
}

// System is a Clock backed by the wall clock.
type System struct{}

// NowMillis returns time.Now truncated to milliseconds.
func (System) NowMillis() int64 {
	return time.Now().UnixMilli()
}

var _ Clock = System{}
