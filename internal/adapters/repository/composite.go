package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/platforms/leaderboard/internal/domain/rank"
	"github.com/platforms/leaderboard/pkg/logger"
	"github.com/platforms/leaderboard/pkg/metrics"
)

// Composite sequences the ranked cache and the durable store behind the
// Store interface.
//
// Reads go cache-first and fall back to the durable store when the cache is
// unavailable. UserRank and AroundUser additionally fall back on a cache
// miss, covering users that exist durably but were never mirrored (for
// example after a partial dual write). Writes hit the durable store first;
// the cache mirror is best-effort and a failure there is logged and counted,
// never surfaced.
type Composite struct {
	cache   Store
	durable Store
	logger  logger.Logger
}

// CompositeOption applies a configuration option to the Composite.
type CompositeOption func(*Composite)

// WithLogger sets a custom logger for the composite store.
func WithLogger(l logger.Logger) CompositeOption {
	return func(c *Composite) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewComposite creates a composite store over a cache tier and a durable tier.
func NewComposite(cache, durable Store, opts ...CompositeOption) *Composite {
	c := &Composite{
		cache:   cache,
		durable: durable,
		logger:  logger.Get().Named("composite"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SaveScore writes the durable store first, then mirrors into the cache.
// A durable failure is fatal; a cache failure is swallowed and the next
// successful read repairs the staleness via the miss fallback.
func (c *Composite) SaveScore(ctx context.Context, instanceID, userID string, score float64) error {
	if err := c.durable.SaveScore(ctx, instanceID, userID, score); err != nil {
		return fmt.Errorf("durable save for %s/%s: %w", instanceID, userID, err)
	}
	metrics.RecordScoreWrite()

	if err := c.cache.SaveScore(ctx, instanceID, userID, score); err != nil {
		metrics.RecordCacheWriteFailure()
		c.logger.Warn(ctx, "cache mirror write failed; cache is stale until next read fallback",
			logger.String("instance", instanceID),
			logger.String("user", userID),
			logger.Error(err),
		)
	}
	return nil
}

// TopK returns the cache result verbatim and only retries against the
// durable store on a cache failure. An empty leaderboard is empty, not a
// signal to fall back.
func (c *Composite) TopK(ctx context.Context, instanceID string, limit, offset int64, order rank.Order) ([]Entry, error) {
	entries, err := c.cache.TopK(ctx, instanceID, limit, offset, order)
	if err == nil {
		return entries, nil
	}
	c.fallback(ctx, "top_k", instanceID, err)
	return c.durable.TopK(ctx, instanceID, limit, offset, order)
}

// UserRank falls back on cache failure and on cache miss.
func (c *Composite) UserRank(ctx context.Context, instanceID, userID string, order rank.Order) (Entry, error) {
	entry, err := c.cache.UserRank(ctx, instanceID, userID, order)
	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, ErrNotFound):
		metrics.RecordCacheMiss("user_rank")
	default:
		c.fallback(ctx, "user_rank", instanceID, err)
	}
	return c.durable.UserRank(ctx, instanceID, userID, order)
}

// AroundUser falls back on cache failure, on cache miss, and on an empty
// cache window: a user the caller expects to exist yielding no entries is
// treated as cache staleness rather than truth.
func (c *Composite) AroundUser(ctx context.Context, instanceID, userID string, limit int64, order rank.Order) ([]Entry, error) {
	entries, err := c.cache.AroundUser(ctx, instanceID, userID, limit, order)
	switch {
	case err == nil && len(entries) > 0:
		return entries, nil
	case err == nil || errors.Is(err, ErrNotFound):
		metrics.RecordCacheMiss("around_user")
	default:
		c.fallback(ctx, "around_user", instanceID, err)
	}
	return c.durable.AroundUser(ctx, instanceID, userID, limit, order)
}

// Count falls back on cache failure only.
func (c *Composite) Count(ctx context.Context, instanceID string) (int64, error) {
	n, err := c.cache.Count(ctx, instanceID)
	if err == nil {
		return n, nil
	}
	c.fallback(ctx, "count", instanceID, err)
	return c.durable.Count(ctx, instanceID)
}

func (c *Composite) fallback(ctx context.Context, operation, instanceID string, err error) {
	metrics.RecordCacheFallback(operation)
	c.logger.Error(ctx, "cache access failed, falling back to durable store",
		logger.String("operation", operation),
		logger.String("instance", instanceID),
		logger.Error(err),
	)
}

var _ Store = (*Composite)(nil)
