// Package repository defines the leaderboard store interface and errors.
//
// Three implementations exist: a Redis-backed ranked cache, a Postgres-backed
// durable store, and an in-memory store for development and tests. The
// Composite type sequences the first two behind the same interface so callers
// cannot tell which tier answered.
package repository

import (
	"context"

	"github.com/platforms/leaderboard/internal/domain/rank"
)

// Entry represents one leaderboard row in a query result. Rank is 1-based.
type Entry struct {
	UserID string
	Score  float64
	Rank   int64
	Data   map[string]any
}

// Store provides read/write access to one tier of leaderboard state.
// All operations are scoped to a single instance id.
type Store interface {
	// SaveScore upserts the score for (instanceID, userID). Repeated calls
	// with the same arguments are idempotent.
	SaveScore(ctx context.Context, instanceID, userID string, score float64) error

	// TopK returns up to limit entries starting at the best rank under
	// order, after skipping offset better-ranked entries. A limit of zero
	// or less yields an empty result, not an error.
	TopK(ctx context.Context, instanceID string, limit, offset int64, order rank.Order) ([]Entry, error)

	// UserRank returns the entry for userID with its 1-based rank under
	// order. Returns ErrNotFound if the user has no score.
	UserRank(ctx context.Context, instanceID, userID string, order rank.Order) (Entry, error)

	// AroundUser returns a window of up to limit entries centered on
	// userID's rank, clamped at the leaderboard boundaries. Returns
	// ErrNotFound if the user has no score.
	AroundUser(ctx context.Context, instanceID, userID string, limit int64, order rank.Order) ([]Entry, error)

	// Count returns the number of members in the instance.
	Count(ctx context.Context, instanceID string) (int64, error)
}
