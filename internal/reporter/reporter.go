// Package reporter aggregates the outcome counts reported by all workers
// (totals are not kept per worker) and periodically logs a throughput line, following the teacher's
// ratecounter-driven consoleReport/workReporter pattern in
// requester/requester.go, adapted from HTTP-latency percentiles to
// dispatch-outcome counts.
package reporter

import (
	"context"
	"sync"
	"time"

	"github.com/paulbellamy/ratecounter"
	"go.uber.org/zap"

	"github.com/bpowers/ratedispatch/internal/worker"
)

// Reporter implements worker.Reporter and additionally exposes a
// rolling 1-second throughput counter, mirroring the teacher's
// counter1s/counter5s pair in requester.Work.
type Reporter struct {
	logger *zap.Logger

	mu     sync.Mutex
	totals map[worker.Outcome]uint64

	rate1s *ratecounter.RateCounter
	rate5s *ratecounter.RateCounter
}

// New constructs a Reporter.
func New(logger *zap.Logger) *Reporter {
	return &Reporter{
		logger: logger.Named("reporter"),
		totals: make(map[worker.Outcome]uint64),
		rate1s: ratecounter.NewRateCounter(1 * time.Second),
		rate5s: ratecounter.NewRateCounter(5 * time.Second),
	}
}

// Observe implements worker.Reporter.
func (r *Reporter) Observe(_ worker.Credential, outcome worker.Outcome) {
	r.mu.Lock()
	r.totals[outcome]++
	r.mu.Unlock()
	r.rate1s.Incr(1)
	r.rate5s.Incr(1)
}

// snapshot is a point-in-time copy of the aggregate counters.
type snapshot struct {
	totals map[worker.Outcome]uint64
	rps1s  int64
	rps5s  int64
}

func (r *Reporter) snapshot() snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make(map[worker.Outcome]uint64, len(r.totals))
	for k, v := range r.totals {
		totals[k] = v
	}
	return snapshot{
		totals: totals,
		rps1s:  r.rate1s.Rate(),
		rps5s:  r.rate5s.Rate() / 5,
	}
}

// Run logs a throughput/health summary every interval until ctx is
// canceled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := r.snapshot()
			r.logger.Info("throughput",
				zap.Int64("rps_1s", s.rps1s),
				zap.Int64("rps_5s", s.rps5s),
				zap.Uint64("total_ok", s.totals[worker.OutcomeOK]),
				zap.Uint64("total_non_ok", s.totals[worker.OutcomeNonOK]),
				zap.Uint64("total_transport_error", s.totals[worker.OutcomeTransportError]),
				zap.Uint64("total_io_timeout", s.totals[worker.OutcomeIOTimeout]),
				zap.Uint64("total_malformed", s.totals[worker.OutcomeMalformed]),
				zap.Uint64("total_ttl_dropped_at_queue", s.totals[worker.OutcomeTTLDroppedAtQueue]),
				zap.Uint64("total_ttl_dropped_in_limiter", s.totals[worker.OutcomeTTLDroppedInLimiter]),
			)
		}
	}
}
