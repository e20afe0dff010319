// Package queue implements the unbounded FIFO shared by the producer and
// the worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/bpowers/ratedispatch/internal/request"
)

// defaultHighWaterMark is the default size of the queue's channel buffer
// and the depth at which the optional high-water callback fires. Once the
// buffer is full, Push blocks until a consumer frees a slot.
const defaultHighWaterMark = 10000

// Queue is a channel-backed FIFO of Request values with exactly one
// producer side and many consumer sides, buffering at most highWaterMark
// requests. Go channels already give FIFO ordering and safe multi-consumer
// delivery, so Queue is a thin wrapper that adds the high-water-mark
// callback and a typed API.
type Queue struct {
	ch            chan request.Request
	highWaterMark int
	onHighWater   func(depth int)

	crossedMu sync.Mutex
	crossed   bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithHighWaterMark overrides the default soft capacity warning
// threshold.
func WithHighWaterMark(n int) Option {
	return func(q *Queue) { q.highWaterMark = n }
}

// WithHighWaterCallback installs a callback invoked (at most once per
// crossing) when the queue depth first exceeds the high-water mark.
func WithHighWaterCallback(f func(depth int)) Option {
	return func(q *Queue) { q.onHighWater = f }
}

// New constructs an empty Queue whose channel buffer holds highWaterMark
// requests. Push does not block while the buffer has room; once the buffer
// is saturated, Push blocks until a consumer pops, so the queue never grows
// past highWaterMark buffered requests.
func New(opts ...Option) *Queue {
	q := &Queue{highWaterMark: defaultHighWaterMark}
	for _, opt := range opts {
		opt(q)
	}
	q.ch = make(chan request.Request, q.highWaterMark)
	return q
}

// Push enqueues r. It does not block under normal operation; see the
// New doc comment for the adversarial-stall backstop.
func (q *Queue) Push(r request.Request) {
	select {
	case q.ch <- r:
	default:
		// Buffer saturated: the producer is overproducing faster than
		// workers can drain, exactly the adversarial-stall case noted
		// in spec.md's Design Notes. Blocking briefly here is the
		// documented defensive ceiling; it trades producer cadence
		// accuracy for bounded memory.
		q.crossedMu.Lock()
		alreadyCrossed := q.crossed
		q.crossed = true
		q.crossedMu.Unlock()
		if q.onHighWater != nil && !alreadyCrossed {
			q.onHighWater(len(q.ch))
		}
		q.ch <- r
	}
}

// Pop blocks until a Request is available or ctx is canceled.
func (q *Queue) Pop(ctx context.Context) (request.Request, bool) {
	select {
	case r := <-q.ch:
		if len(q.ch) < q.highWaterMark {
			q.crossedMu.Lock()
			q.crossed = false
			q.crossedMu.Unlock()
		}
		return r, true
	case <-ctx.Done():
		return request.Request{}, false
	}
}

// Len returns the current number of buffered requests. It is advisory;
// under concurrent use the value may be stale by the time the caller
// reads it.
func (q *Queue) Len() int {
	return len(q.ch)
}
