package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bpowers/ratedispatch/internal/clock"
	"github.com/bpowers/ratedispatch/internal/queue"
	"github.com/bpowers/ratedispatch/internal/ratelimit"
	"github.com/bpowers/ratedispatch/internal/request"
)

type recordingReporter struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recordingReporter) Observe(_ Credential, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingReporter) snapshot() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

func newTestWorker(t *testing.T, endpoint string, rep Reporter) (*Worker, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(1_000_000)
	limiter := ratelimit.New(clk, 20, 50)
	q := queue.New()
	cfg := Config{Credential: "TESTKEY1234567890", Endpoint: endpoint, TTLMillis: 1000}
	w := New(cfg, clk, limiter, q, &http.Client{Timeout: time.Second}, zap.NewNop(), rep)
	return w, clk
}

func TestWorker_ClassifiesOKResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","req_id":"1"}`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	w, _ := newTestWorker(t, srv.URL, rep)

	outcome := w.send(context.Background(), request.New(1, 0), 123)
	assert.Equal(t, OutcomeOK, outcome)
}

func TestWorker_ClassifiesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":"error","error_msg":"exceeded rate limit"}`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	w, _ := newTestWorker(t, srv.URL, rep)

	outcome := w.send(context.Background(), request.New(1, 0), 123)
	assert.Equal(t, OutcomeNonOK, outcome)
}

func TestWorker_ClassifiesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	w, _ := newTestWorker(t, srv.URL, rep)

	outcome := w.send(context.Background(), request.New(1, 0), 123)
	assert.Equal(t, OutcomeMalformed, outcome)
}

func TestWorker_DropsExpiredRequestAtDequeue(t *testing.T) {
	rep := &recordingReporter{}
	w, clk := newTestWorker(t, "http://unused.invalid", rep)

	req := request.New(1, clk.NowMillis())
	clk.Advance(2000) // exceeds TTLMillis of 1000

	w.handle(context.Background(), req)

	assert.Equal(t, []Outcome{OutcomeTTLDroppedAtQueue}, rep.snapshot())
}

func TestWorker_WaitsOutLimiterGapThenSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","req_id":"1"}`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	w, clk := newTestWorker(t, srv.URL, rep) // limiter: 20/sec, 50ms minimum gap

	// consume the first slot directly so the request below must wait out
	// the minimum gap inside Acquire rather than sailing through.
	require.NoError(t, w.limiter.Acquire(0))

	// Acquire's wait loop reads time from the fake clock but sleeps on
	// the real wall clock, so advance the fake clock from a background
	// goroutine to simulate time actually passing while handle blocks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				clk.Advance(10)
			case <-stop:
				return
			}
		}
	}()

	req := request.New(2, clk.NowMillis())
	w.handle(context.Background(), req)

	assert.Equal(t, []Outcome{OutcomeOK}, rep.snapshot())
}

func TestWorker_NonceStrictlyIncreasing(t *testing.T) {
	rep := &recordingReporter{}
	w, clk := newTestWorker(t, "http://unused.invalid", rep)

	n1 := w.nextNonce(clk.NowMillis())
	n2 := w.nextNonce(clk.NowMillis()) // same millisecond
	n3 := w.nextNonce(clk.NowMillis())

	assert.Less(t, n1, n2)
	assert.Less(t, n2, n3)
}

func TestCredential_Redacted(t *testing.T) {
	c := Credential("UT4NHL1J796WCHULA1750MXYF9F5JYA6")
	assert.Equal(t, "...JYA6", c.Redacted())
}
