// Package worker implements the per-credential loop that drains the
// shared queue and forwards each request to the HTTP endpoint, subject to
// the rate limiter and the end-to-end TTL.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/bpowers/ratedispatch/internal/clock"
	"github.com/bpowers/ratedispatch/internal/queue"
	"github.com/bpowers/ratedispatch/internal/ratelimit"
	"github.com/bpowers/ratedispatch/internal/request"
)

// apiResponse is the expected JSON success/error body shape.
type apiResponse struct {
	Status string `json:"status"`
	ReqID  string `json:"req_id"`
}

// Config holds the fixed parameters of a Worker.
type Config struct {
	Credential Credential
	Endpoint   string
	TTLMillis  int64
}

// Worker owns one credential, one rate limiter, and serializes HTTP calls
// for that credential. It is single-flight: no intra-worker concurrent
// HTTP calls, which is also what keeps the nonce stream strictly
// increasing without extra synchronization.
type Worker struct {
	cfg      Config
	clk      clock.Clock
	limiter  *ratelimit.Limiter
	q        *queue.Queue
	client   *http.Client
	logger   *zap.Logger
	reporter Reporter

	lastNonce int64
}

// New constructs a Worker. client is shared connection-pooling
// infrastructure built once by the dispatcher, matching the teacher's
// single *http.Client reused by every worker goroutine.
func New(cfg Config, clk clock.Clock, limiter *ratelimit.Limiter, q *queue.Queue, client *http.Client, logger *zap.Logger, reporter Reporter) *Worker {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Worker{
		cfg:      cfg,
		clk:      clk,
		limiter:  limiter,
		q:        q,
		client:   client,
		logger:   logger.Named("worker").With(zap.String("credential", cfg.Credential.Redacted())),
		reporter: reporter,
	}
}

// Run pops requests off the queue and dispatches them until ctx is
// canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, ok := w.q.Pop(ctx)
		if !ok {
			return
		}
		w.handle(ctx, req)
	}
}

func (w *Worker) handle(ctx context.Context, req request.Request) {
	now := w.clk.NowMillis()
	remainingTTL := req.RemainingTTLMillis(now, w.cfg.TTLMillis)
	if remainingTTL <= 0 {
		w.logger.Warn("ignoring request from queue due to TTL", zap.Int64("req_id", req.ID))
		w.reporter.Observe(w.cfg.Credential, OutcomeTTLDroppedAtQueue)
		return
	}

	nonce := w.nextNonce(w.clk.NowMillis())

	if err := w.limiter.Acquire(remainingTTL); err != nil {
		if errors.Is(err, ratelimit.ErrTimeout) {
			w.logger.Warn("ignoring request in limiter due to TTL", zap.Int64("req_id", req.ID))
			w.reporter.Observe(w.cfg.Credential, OutcomeTTLDroppedInLimiter)
			return
		}
		w.logger.Error("unexpected limiter error", zap.Int64("req_id", req.ID), zap.Error(err))
		w.reporter.Observe(w.cfg.Credential, OutcomeUnexpected)
		return
	}

	outcome := w.send(ctx, req, nonce)
	w.reporter.Observe(w.cfg.Credential, outcome)
}

// nextNonce returns a strictly-increasing nonce even when consecutive
// calls land within the same millisecond, per spec.md §9.
func (w *Worker) nextNonce(now int64) int64 {
	n := now
	if n <= w.lastNonce {
		n = w.lastNonce + 1
	}
	w.lastNonce = n
	return n
}

func (w *Worker) send(ctx context.Context, req request.Request, nonce int64) Outcome {
	u, err := url.Parse(w.cfg.Endpoint)
	if err != nil {
		w.logger.Error("invalid endpoint", zap.Error(err))
		return OutcomeUnexpected
	}
	q := u.Query()
	q.Set("api_key", string(w.cfg.Credential))
	q.Set("nonce", strconv.FormatInt(nonce, 10))
	q.Set("req_id", strconv.FormatInt(req.ID, 10))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		w.logger.Error("building request", zap.Int64("req_id", req.ID), zap.Error(err))
		return OutcomeUnexpected
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			w.logger.Error("I/O timeout", zap.Int64("req_id", req.ID), zap.Error(err))
			return OutcomeIOTimeout
		}
		w.logger.Error("transport error", zap.Int64("req_id", req.ID), zap.Error(err))
		return OutcomeTransportError
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		w.logger.Error("malformed response body", zap.Int64("req_id", req.ID), zap.Error(err))
		return OutcomeMalformed
	}
	if body.Status == "" {
		w.logger.Error("malformed response body: missing status", zap.Int64("req_id", req.ID), zap.Int("status_code", resp.StatusCode))
		return OutcomeMalformed
	}

	if resp.StatusCode == http.StatusOK && body.Status == "OK" {
		w.logger.Info("API response", zap.Int64("req_id", req.ID), zap.Int("status_code", resp.StatusCode), zap.String("body_status", body.Status))
		return OutcomeOK
	}

	w.logger.Warn("API response", zap.Int64("req_id", req.ID), zap.Int("status_code", resp.StatusCode), zap.String("body_status", body.Status))
	return OutcomeNonOK
}

type timeouter interface {
	Timeout() bool
}

func isTimeout(err error) bool {
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
