// Package scoring defines the contract for computing scores from raw
// feature events.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/platforms/leaderboard/internal/domain/instance"
)

// ErrNotFinite is returned when a calculation produces NaN or an infinity.
var ErrNotFinite = errors.New("score is not finite")

// Input abstracts the event fields needed for scoring.
type Input struct {
	InstanceID string
	UserID     string
	Features   map[string]any
}

// Result contains the computed score for a user.
type Result struct {
	UserID string
	Score  float64
}

// Scorer computes a score from an input under an instance configuration.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input, cfg instance.Config) (Result, error)
}

// WeightedScorer implements Scorer as a weighted sum of numeric features.
// Each feature contributes weight * value, where the weight comes from the
// instance configuration and falls back to the instance default weight.
// Booleans count as 0 or 1; string features carry no numeric value and are
// ignored.
type WeightedScorer struct{}

// NewWeightedScorer creates a new weighted scorer.
func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{}
}

// Score implements Scorer.
func (s *WeightedScorer) Score(ctx context.Context, in Input, cfg instance.Config) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("scoring canceled: %w", ctx.Err())
	default:
	}

	var total float64
	for name, raw := range in.Features {
		val, ok := numericValue(raw)
		if !ok {
			continue
		}
		weight, ok := cfg.Weights[name]
		if !ok {
			weight = cfg.DefaultWeight
		}
		total += weight * val
	}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Result{}, fmt.Errorf("%w: user %s", ErrNotFinite, in.UserID)
	}
	return Result{UserID: in.UserID, Score: total}, nil
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

var _ Scorer = (*WeightedScorer)(nil)
