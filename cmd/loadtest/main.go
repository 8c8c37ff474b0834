package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/platforms/leaderboard/internal/loadtest"
	"github.com/platforms/leaderboard/pkg/logger"
)

const (
	defaultNumEvents  = 10000
	defaultTopN       = 50
	defaultWorkerMult = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultSettleWait = 10 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		instanceID = flag.String("instance", "load-test", "Leaderboard instance to target")
		feature    = flag.String("feature", "points", "Feature name carried by generated events")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch from the leaderboard")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkerMult, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settleWait = flag.Duration("settle", defaultSettleWait, "How long to wait for async processing before verifying")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:    *baseURL,
		InstanceID: *instanceID,
		Feature:    *feature,
		NumEvents:  *numEvents,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		SettleWait: *settleWait,
		Verbose:    *verbose,
	}

	if err := loadtest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
