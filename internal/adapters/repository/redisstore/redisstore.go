// Package redisstore implements the ranked cache tier of the leaderboard on
// a Redis sorted set per instance.
//
// Data structure:
// - leaderboard:{instance_id} -> sorted set of user_id scored by score
//
// The sorted set keeps one physical order (score asc, member lex asc);
// HighestFirst queries traverse it in reverse, which is also where the
// deterministic tie-break comes from.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/domain/rank"
	"github.com/platforms/leaderboard/pkg/metrics"
)

const tier = "cache"

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements repository.Store using Redis as the backend.
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed store with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// leaderboardKey generates the Redis key for an instance's sorted set
func leaderboardKey(instanceID string) string {
	return "leaderboard:" + instanceID
}

// SaveScore implements repository.Store. ZADD is an insert-or-update on the
// member, so repeated identical calls are idempotent.
func (s *Store) SaveScore(ctx context.Context, instanceID, userID string, score float64) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	err := s.client.ZAdd(ctx, leaderboardKey(instanceID), redis.Z{
		Score:  score,
		Member: userID,
	}).Err()
	if err != nil {
		return unavailable("zadd", err)
	}
	return nil
}

// TopK implements repository.Store.
func (s *Store) TopK(ctx context.Context, instanceID string, limit, offset int64, order rank.Order) ([]repository.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	if limit <= 0 || offset < 0 {
		return []repository.Entry{}, nil
	}

	key := leaderboardKey(instanceID)
	stop := offset + limit - 1

	var zs []redis.Z
	var err error
	if order == rank.HighestFirst {
		zs, err = s.client.ZRevRangeWithScores(ctx, key, offset, stop).Result()
	} else {
		zs, err = s.client.ZRangeWithScores(ctx, key, offset, stop).Result()
	}
	if err != nil {
		return nil, unavailable("zrange", err)
	}

	entries := make([]repository.Entry, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		entries[i] = repository.Entry{
			UserID: member,
			Score:  z.Score,
			Rank:   rank.OneBased(offset + int64(i)),
		}
	}
	return entries, nil
}

// UserRank implements repository.Store.
func (s *Store) UserRank(ctx context.Context, instanceID, userID string, order rank.Order) (repository.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	key := leaderboardKey(instanceID)

	score, err := s.client.ZScore(ctx, key, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.Entry{}, repository.ErrNotFound
		}
		return repository.Entry{}, unavailable("zscore", err)
	}

	pos, err := s.position(ctx, key, userID, order)
	if err != nil {
		return repository.Entry{}, err
	}

	return repository.Entry{
		UserID: userID,
		Score:  score,
		Rank:   rank.OneBased(pos),
	}, nil
}

// AroundUser implements repository.Store. The window is computed with the
// shared ranking engine so the durable tier produces the identical shape.
func (s *Store) AroundUser(ctx context.Context, instanceID, userID string, limit int64, order rank.Order) ([]repository.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(tier, float64(time.Since(start).Milliseconds()))
	}()

	if limit <= 0 {
		return []repository.Entry{}, nil
	}

	key := leaderboardKey(instanceID)

	pos, err := s.position(ctx, key, userID, order)
	if err != nil {
		return nil, err
	}
	total, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return nil, unavailable("zcard", err)
	}

	lo, hi := rank.WindowAround(rank.OneBased(pos), limit, total)

	var zs []redis.Z
	if order == rank.HighestFirst {
		zs, err = s.client.ZRevRangeWithScores(ctx, key, lo-1, hi-1).Result()
	} else {
		zs, err = s.client.ZRangeWithScores(ctx, key, lo-1, hi-1).Result()
	}
	if err != nil {
		return nil, unavailable("zrange", err)
	}

	entries := make([]repository.Entry, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		entries[i] = repository.Entry{
			UserID: member,
			Score:  z.Score,
			Rank:   lo + int64(i),
		}
	}
	return entries, nil
}

// Count implements repository.Store.
func (s *Store) Count(ctx context.Context, instanceID string) (int64, error) {
	n, err := s.client.ZCard(ctx, leaderboardKey(instanceID)).Result()
	if err != nil {
		return 0, unavailable("zcard", err)
	}
	return n, nil
}

// position returns the zero-based position of userID under order.
func (s *Store) position(ctx context.Context, key, userID string, order rank.Order) (int64, error) {
	var pos int64
	var err error
	if order == rank.HighestFirst {
		pos, err = s.client.ZRevRank(ctx, key, userID).Result()
	} else {
		pos, err = s.client.ZRank(ctx, key, userID).Result()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, repository.ErrNotFound
		}
		return 0, unavailable("zrank", err)
	}
	return pos, nil
}

// unavailable classifies a connectivity failure. Emptiness (redis.Nil) is a
// different outcome and must never end up here.
func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %w", op, repository.ErrUnavailable, err)
}

var _ repository.Store = (*Store)(nil)
