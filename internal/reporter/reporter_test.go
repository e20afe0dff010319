package reporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bpowers/ratedispatch/internal/worker"
)

func TestReporter_TracksTotalsPerOutcome(t *testing.T) {
	r := New(zap.NewNop())

	r.Observe("key", worker.OutcomeOK)
	r.Observe("key", worker.OutcomeOK)
	r.Observe("key", worker.OutcomeNonOK)
	r.Observe("key", worker.OutcomeTTLDroppedAtQueue)

	s := r.snapshot()
	assert.Equal(t, uint64(2), s.totals[worker.OutcomeOK])
	assert.Equal(t, uint64(1), s.totals[worker.OutcomeNonOK])
	assert.Equal(t, uint64(1), s.totals[worker.OutcomeTTLDroppedAtQueue])
}
