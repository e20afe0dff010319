// Command ratedispatch runs the rate-limited, TTL-aware request
// dispatcher against a configured HTTP endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bpowers/ratedispatch/internal/config"
	"github.com/bpowers/ratedispatch/internal/dispatcher"
	"github.com/bpowers/ratedispatch/internal/logging"
)

var usage = `Usage: ratedispatch [options...]

Options:
  -url      endpoint URL to dispatch requests to.
  -keys     comma-separated credential list; overrides the compiled-in keys.
  -h2       use HTTP/2 for the dispatch client.
  -log-dir  directory for the rotating log file.
`

func main() {
	urlFlag := flag.String("url", config.DefaultEndpoint, "")
	keysFlag := flag.String("keys", "", "")
	h2 := flag.Bool("h2", false, "")
	logDir := flag.String("log-dir", "./logs", "")

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	keys := config.DefaultAPIKeys
	if *keysFlag != "" {
		keys = strings.Split(*keysFlag, ",")
	}

	envCfg := config.FromEnv()

	logger, err := logging.Setup(logging.Options{LogDir: *logDir, Level: envCfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging.Setup: %s\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	d, err := dispatcher.New(dispatcher.Config{
		Endpoint:    *urlFlag,
		Credentials: keys,
		UseHTTP2:    *h2,
		APITimeout:  envCfg.APITimeout,
	}, nil, logger.Logger)
	if err != nil {
		logger.Sugar().Fatalf("dispatcher.New: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.Run(ctx)
}
