// Package dispatcher wires together the queue, the producer, and one
// worker per credential, and runs them concurrently until its context is
// canceled — the top-level construction generalized from the teacher's
// requester.Work.
package dispatcher

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/bpowers/ratedispatch/internal/clock"
	"github.com/bpowers/ratedispatch/internal/config"
	"github.com/bpowers/ratedispatch/internal/producer"
	"github.com/bpowers/ratedispatch/internal/queue"
	"github.com/bpowers/ratedispatch/internal/ratelimit"
	"github.com/bpowers/ratedispatch/internal/reporter"
	"github.com/bpowers/ratedispatch/internal/worker"
)

const (
	maxIdleConnsPerHost = 64
	reportInterval      = 5 * time.Second
)

// Config is the full set of knobs the dispatcher needs to build its
// workers and producer.
type Config struct {
	Endpoint    string
	Credentials []string
	UseHTTP2    bool
	APITimeout  time.Duration
}

// Dispatcher constructs the shared queue, one Producer, and one Worker
// per credential, and runs them until Run's context is canceled.
type Dispatcher struct {
	cfg      Config
	clk      clock.Clock
	logger   *zap.Logger
	reporter *reporter.Reporter

	q         *queue.Queue
	producer  *producer.Producer
	workers   []*worker.Worker
}

// New builds a Dispatcher ready to Run.
func New(cfg Config, clk clock.Clock, logger *zap.Logger) (*Dispatcher, error) {
	if clk == nil {
		clk = clock.System{}
	}

	q := queue.New(queue.WithHighWaterCallback(func(depth int) {
		logger.Warn("queue depth exceeds high-water mark", zap.Int("depth", depth))
	}))

	httpClient := buildHTTPClient(cfg)
	rep := reporter.New(logger)

	workers := make([]*worker.Worker, 0, len(cfg.Credentials))
	for _, cred := range cfg.Credentials {
		limiter := ratelimit.New(clk, config.PerSecondRate, config.DurationMillisBetweenReqs)
		w := worker.New(worker.Config{
			Credential: worker.Credential(cred),
			Endpoint:   cfg.Endpoint,
			TTLMillis:  config.RequestTTLMillis,
		}, clk, limiter, q, httpClient, logger, rep)
		workers = append(workers, w)
	}

	prod := producer.New(producer.Config{
		RPerSecondGlobal: config.PerSecondRate,
		Workers:          len(cfg.Credentials),
	}, clk, q, nil)

	return &Dispatcher{
		cfg:      cfg,
		clk:      clk,
		logger:   logger.Named("dispatcher"),
		reporter: rep,
		q:        q,
		producer: prod,
		workers:  workers,
	}, nil
}

func buildHTTPClient(cfg Config) *http.Client {
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
	}
	if cfg.UseHTTP2 {
		_ = http2.ConfigureTransport(transport)
	} else {
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
	}
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Run starts the producer, every worker, and the periodic reporter, and
// blocks until ctx is canceled. Shutdown is graceful: the producer stops
// emitting, each worker finishes its current queue-pop cycle, and Run
// returns once all goroutines have exited.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher starting", zap.Int("workers", len(d.workers)), zap.String("endpoint", d.cfg.Endpoint))

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.producer.RunContext(ctx)
	}()

	for _, w := range d.workers {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.reporter.Run(ctx, reportInterval)
	}()

	wg.Wait()
	d.logger.Info("dispatcher stopped")
}
