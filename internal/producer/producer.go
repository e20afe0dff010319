// Package producer implements the single goroutine that synthesizes
// Request values at a randomized cadence whose expected rate is slightly
// below RPerSecondGlobal * Workers.
package producer

import (
	"context"
	"math"
	"math/rand"

	"github.com/bpowers/ratedispatch/internal/clock"
	"github.com/bpowers/ratedispatch/internal/queue"
	"github.com/bpowers/ratedispatch/internal/request"
)

// Config controls the producer's emission cadence, following the
// MAX_SLEEP_MS formula from spec.md §4.3:
//
//	MAX_SLEEP_MS = ceil(1000 / RPerSecondGlobal / Workers * 1.05 * 2.0)
type Config struct {
	// RPerSecondGlobal is the per-worker rate in the formula above; the
	// expected emission rate across all workers is about
	// RPerSecondGlobal * Workers / 1.05.
	RPerSecondGlobal int
	// Workers is the number of workers draining the queue.
	Workers int
}

// maxSleepMillis returns the upper bound of the uniform emission-interval
// distribution for the given config.
func (c Config) maxSleepMillis() int64 {
	perWorkerMs := 1000.0 / float64(c.RPerSecondGlobal) / float64(c.Workers)
	return int64(math.Ceil(perWorkerMs * 1.05 * 2.0))
}

// Producer emits Request values into a Queue at the cadence described by
// Config. Each emission is a Queue.Push, so the producer waits whenever
// the queue's buffer is full.
type Producer struct {
	cfg   Config
	clk   clock.Clock
	q     *queue.Queue
	rng   *rand.Rand
	nextID int64
}

// New constructs a Producer. rng may be nil, in which case a new source
// seeded from the clock's current time is used; tests pass a seeded
// *rand.Rand for determinism.
func New(cfg Config, clk clock.Clock, q *queue.Queue, rng *rand.Rand) *Producer {
	if rng == nil {
		rng = rand.New(rand.NewSource(clk.NowMillis()))
	}
	return &Producer{cfg: cfg, clk: clk, q: q, rng: rng}
}

// Run emits requests until ctx is canceled. sleepFn is injected so tests
// can replace real sleeping with an immediate return; production callers
// should pass Run's zero value behavior by using RunContext instead.
func (p *Producer) Run(ctx context.Context, sleepFn func(ctx context.Context, d int64) bool) {
	maxSleep := p.cfg.maxSleepMillis()
	if maxSleep <= 0 {
		maxSleep = 1
	}
	for {
		p.q.Push(request.New(p.nextID, p.clk.NowMillis()))
		p.nextID++

		sleepMs := int64(p.rng.Intn(int(maxSleep) + 1))
		if !sleepFn(ctx, sleepMs) {
			return
		}
	}
}

// RunContext is the production entry point: it emits requests until ctx
// is canceled, sleeping in real wall-clock time between emissions.
func (p *Producer) RunContext(ctx context.Context) {
	p.Run(ctx, sleepCtx)
}

// Emitted reports how many requests this producer has pushed so far. It
// is safe to call only from the producer's own goroutine or after Run has
// returned.
func (p *Producer) Emitted() int64 {
	return p.nextID
}
