package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/platforms/leaderboard/pkg/logger"
)

// Run executes a complete load run: health check, generate, submit, wait for
// the async pipeline to drain, then fetch ranks and the leaderboard page and
// verify they agree. The run targets a single highest-first instance.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting load run",
		logger.String("base_url", cfg.BaseURL),
		logger.String("instance_id", cfg.InstanceID),
		logger.Int("events", cfg.NumEvents),
		logger.Int("workers", cfg.Workers),
		logger.Int("top_n", cfg.TopN))

	if err := checkHealth(ctx, cfg); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	events, err := generateEvents(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	if err := submitEvents(ctx, cfg, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for events to settle",
		logger.String("wait", cfg.SettleWait.String()))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(cfg.SettleWait):
	}

	ranks, err := fetchRanks(ctx, cfg, events, stats)
	if err != nil {
		return fmt.Errorf("rank retrieval failed: %w", err)
	}

	leaderboard, err := fetchLeaderboard(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	if err := verifyResults(ctx, cfg, ranks, leaderboard, stats); err != nil {
		return err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, stats)
	return nil
}

func checkHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)

	resp, err := client.get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer resp.Body.Close()

	// Any 200 counts as healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func logFinalStats(ctx context.Context, stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsAccepted) / float64(stats.EventsSubmitted) * 100
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "load run completed",
		logger.Int("generated", stats.EventsGenerated),
		logger.Int("submitted", stats.EventsSubmitted),
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failed", stats.EventsFailed),
		logger.Int("ranks_retrieved", stats.RanksRetrieved),
		logger.Int("leaderboard_entries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("success_rate", successRate),
		logger.Float64("events_per_second", eventsPerSecond))
}
