package clock

import "sync/atomic"

// Fake is a manually advanced Clock for deterministic tests.
type Fake struct {
	millis atomic.Int64
}

// NewFake returns a Fake clock starting at the given millisecond value.
func NewFake(startMillis int64) *Fake {
	f := &Fake{}
	f.millis.Store(startMillis)
	return f
}

// NowMillis implements Clock.
func (f *Fake) NowMillis() int64 {
	return f.millis.Load()
}

// Advance moves the clock forward by delta milliseconds and returns the
// new value.
func (f *Fake) Advance(delta int64) int64 {
	return f.millis.Add(delta)
}

// Set pins the clock to an absolute millisecond value.
func (f *Fake) Set(millis int64) {
	f.millis.Store(millis)
}

var _ Clock = (*Fake)(nil)
