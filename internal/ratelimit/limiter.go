// Package ratelimit implements the per-worker rate gate described by the
// dispatcher: a minimum inter-acquisition gap plus a sliding 1-second
// quota enforced with a fixed-size ring buffer of past acquisition
// timestamps. One Limiter belongs to exactly one worker and must never be
// shared across goroutines — see the package-level Limiter doc.
package ratelimit

import (
	"errors"
	"sync"

	"github.com/bpowers/ratedispatch/internal/clock"
)

// ErrTimeout is returned by Acquire when the caller-supplied timeout
// elapses before a slot becomes available.
var ErrTimeout = errors.New("ratelimit: timed out waiting for a slot")

// windowMillis is the width of the sliding window enforced by ring.
const windowMillis = 1000

// Limiter gates entry to a critical section so that, at the moment of
// release, at least minGapMillis have elapsed since the previous release
// and no more than len(ring) releases have occurred in the last 1000ms.
//
// A Limiter is owned by a single goroutine. It is not safe for concurrent
// use; the dispatcher constructs one Limiter per worker specifically so
// that this single-owner invariant holds without needing its own mutex
// for the hot path. The mutex below guards lastAcquireMs, ring and idx;
// under the single-owner invariant the hot path never contends for it.
type Limiter struct {
	clock clock.Clock

	perSecondRate int
	minGapMillis  int64

	mu            sync.Mutex
	lastAcquireMs int64
	ring          []int64
	idx           int
}

// New builds a Limiter allowing at most perSecondRate acquisitions in any
// rolling 1000ms window, with at least minGapMillis between any two
// consecutive acquisitions.
func New(clk clock.Clock, perSecondRate int, minGapMillis int64) *Limiter {
	if perSecondRate <= 0 {
		panic("ratelimit: perSecondRate must be positive")
	}
	return &Limiter{
		clock:         clk,
		perSecondRate: perSecondRate,
		minGapMillis:  minGapMillis,
		ring:          make([]int64, perSecondRate),
	}
}

// Acquire blocks the calling goroutine until a slot is available, then
// returns nil. If timeoutMillis is positive and no slot becomes available
// within that many milliseconds of entering Acquire, it returns
// ErrTimeout instead. A timeoutMillis of zero or less means wait
// indefinitely.
//
// Acquire has no corresponding Release: enforcement happens entirely
// before a slot is granted, and granting a slot has no side effect that
// needs undoing. Callers that want a scoped-acquisition feel can wrap the
// call in their own defer-free block; the guard-object style used by some
// languages buys nothing here because release is a no-op.
func (l *Limiter) Acquire(timeoutMillis int64) error {
	enterMs := l.clock.NowMillis()

	for {
		now := l.clock.NowMillis()
		if timeoutMillis > 0 && now-enterMs > timeoutMillis {
			return ErrTimeout
		}

		l.mu.Lock()
		if now-l.lastAcquireMs < l.minGapMillis {
			waitMs := l.lastAcquireMs + l.minGapMillis - now
			l.mu.Unlock()
			l.sleep(waitMs)
			continue
		}

		oldest := l.ring[l.idx]
		if now-oldest < windowMillis {
			waitMs := oldest + windowMillis - now
			l.mu.Unlock()
			l.sleep(waitMs)
			continue
		}

		l.lastAcquireMs = now
		l.ring[l.idx] = now
		l.idx = (l.idx + 1) % len(l.ring)
		l.mu.Unlock()
		return nil
	}
}

// sleep always yields at least 1ms of wall-clock (or fake-clock) progress,
// even when a caller computes a zero-length wait at a gap or window
// boundary. Without this floor, a boundary wait of exactly zero would
// never advance the clock, and Acquire's loop would spin forever re-taking
// the same branch against the same now.
func (l *Limiter) sleep(ms int64) {
	if ms < 1 {
		ms = 1
	}
	sleepMillis(ms)
}
