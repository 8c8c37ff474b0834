package loadtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/platforms/leaderboard/pkg/logger"
)

// verifyResults cross-checks the per-user ranks against the leaderboard page.
// The board must be sorted, free of duplicate users, and its head must agree
// with the best score observed through the rank endpoint.
func verifyResults(ctx context.Context, cfg *Config, ranks, leaderboard []Entry, stats *Stats) error {
	if len(ranks) == 0 {
		return fmt.Errorf("no ranks to verify")
	}

	sorted := make([]Entry, len(ranks))
	copy(sorted, ranks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if len(leaderboard) > 0 {
		if err := checkLeaderboard(sorted, leaderboard); err != nil {
			return fmt.Errorf("leaderboard verification failed: %w", err)
		}
		logger.Get().Info(ctx, "leaderboard verified",
			logger.Int("entries", len(leaderboard)))
	}

	if cfg.Verbose {
		logScoreSummary(ctx, sorted)
	}
	return nil
}

func checkLeaderboard(sorted, leaderboard []Entry) error {
	top := leaderboard[0]
	best := sorted[0]
	if top.Score != best.Score {
		return fmt.Errorf("top leaderboard score %.3f does not match best observed score %.3f (user %s)",
			top.Score, best.Score, best.UserID)
	}

	seen := make(map[string]struct{}, len(leaderboard))
	for i, entry := range leaderboard {
		if _, dup := seen[entry.UserID]; dup {
			return fmt.Errorf("user %s appears twice in the leaderboard", entry.UserID)
		}
		seen[entry.UserID] = struct{}{}

		if entry.Rank != int64(i+1) {
			return fmt.Errorf("entry %d has rank %d, want %d", i, entry.Rank, i+1)
		}
		if i > 0 && entry.Score > leaderboard[i-1].Score {
			return fmt.Errorf("entry %d (%.3f) outscores entry %d (%.3f)",
				i, entry.Score, i-1, leaderboard[i-1].Score)
		}
	}
	return nil
}

func logScoreSummary(ctx context.Context, sorted []Entry) {
	sum := 0.0
	for _, entry := range sorted {
		sum += entry.Score
	}
	logger.Get().Info(ctx, "score summary",
		logger.Int("users", len(sorted)),
		logger.Float64("max", sorted[0].Score),
		logger.Float64("min", sorted[len(sorted)-1].Score),
		logger.Float64("avg", sum/float64(len(sorted))))
}
