package loadtest

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/platforms/leaderboard/pkg/logger"
)

const randomFloatDivisor = 1_000_000

// Feature value distribution buckets. Most users land in the middle of the
// range, with thin tails at both ends so the top of the board stays contested.
const (
	bucketCount = 8

	averageMin   = 3.0
	averageRange = 4.0
	highMin      = 7.0
	highRange    = 2.0
	lowMin       = 0.1
	lowRange     = 2.9
	eliteMin     = 9.0
	eliteRange   = 1.0
	floorMin     = 0.1
	floorRange   = 0.9
	upperMidMin  = 6.0
	upperMidRng  = 2.0
	lowerMidMin  = 2.0
	lowerMidRng  = 2.0
	fullMin      = 0.1
	fullRange    = 9.9
)

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateEvents creates one event per synthetic user, so every event is a
// fresh row rather than an overwrite.
func generateEvents(ctx context.Context, cfg *Config, stats *Stats) ([]Event, error) {
	logger.Get().Info(ctx, "generating events",
		logger.Int("count", cfg.NumEvents),
		logger.String("instance_id", cfg.InstanceID),
		logger.String("feature", cfg.Feature))

	events := make([]Event, cfg.NumEvents)
	for i := range events {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		events[i] = newEvent(i, cfg)
	}

	stats.EventsGenerated = len(events)
	return events, nil
}

func newEvent(index int, cfg *Config) Event {
	return Event{
		EventID:    "load_" + strconv.Itoa(index) + "_" + uuid.NewString(),
		InstanceID: cfg.InstanceID,
		UserID:     "user-" + uuid.NewString(),
		Features:   map[string]float64{cfg.Feature: sampledValue()},
		TS:         time.Now().UTC().Format(time.RFC3339),
	}
}

// sampledValue draws a feature value from the bucketed distribution.
func sampledValue() float64 {
	bucket, _ := rand.Int(rand.Reader, big.NewInt(bucketCount))
	switch bucket.Int64() {
	case 0:
		return averageMin + randomFloat()*averageRange
	case 1:
		return highMin + randomFloat()*highRange
	case 2:
		return lowMin + randomFloat()*lowRange
	case 3:
		return eliteMin + randomFloat()*eliteRange
	case 4:
		return floorMin + randomFloat()*floorRange
	case 5:
		return upperMidMin + randomFloat()*upperMidRng
	case 6:
		return lowerMidMin + randomFloat()*lowerMidRng
	default:
		return fullMin + randomFloat()*fullRange
	}
}
