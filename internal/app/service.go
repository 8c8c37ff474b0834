// Package service wires the domain components together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	eventqueue "github.com/platforms/leaderboard/internal/adapters/mq/queue"
	workerpool "github.com/platforms/leaderboard/internal/adapters/mq/worker"
	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/adapters/repository/memstore"
	"github.com/platforms/leaderboard/internal/domain/dedupe"
	"github.com/platforms/leaderboard/internal/domain/instance"
	"github.com/platforms/leaderboard/internal/domain/model"
	"github.com/platforms/leaderboard/internal/domain/scoring"
	"github.com/platforms/leaderboard/internal/domain/types"
	"github.com/platforms/leaderboard/internal/domain/validate"
	"github.com/platforms/leaderboard/pkg/logger"
	"github.com/platforms/leaderboard/pkg/metrics"
)

// Service implements the leaderboard operations on top of a ranked store,
// an instance registry, a scorer and the async ingest pipeline.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	registry   instance.Registry
	scorer     scoring.Scorer
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	maxLimit    int64

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the ranked store the service reads and writes. Defaults to
// an in-memory store, which is the development-mode fallback.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRegistry sets the instance configuration registry.
func WithRegistry(r instance.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithScorer sets the score calculator.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxLimit caps the page size of leaderboard queries.
func WithMaxLimit(limit int64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		registry:    instance.NewStaticRegistry(nil),
		scorer:      scoring.NewWeightedScorer(),
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
		maxLimit:    100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting leaderboard service")

	if s.store == nil {
		s.store = memstore.New()
		s.logger.Warn(ctx, "no store configured, using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.registry, s.scorer, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service")

	if s.eventQueue != nil {
		_ = s.eventQueue.Close()
	}
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// checkPage validates limit and offset before any store access and caps the
// limit at the configured maximum.
func (s *Service) checkPage(limit, offset int64) (int64, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: %d", repository.ErrInvalidLimit, limit)
	}
	if offset < 0 {
		return 0, fmt.Errorf("%w: %d", repository.ErrInvalidOffset, offset)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit, nil
}

// TopK returns the leaderboard page for an instance, ordered per its
// configured ranking order.
func (s *Service) TopK(ctx context.Context, instanceID string, limit, offset int64) ([]types.Entry, error) {
	limit, err := s.checkPage(limit, offset)
	if err != nil {
		metrics.RecordValidationError()
		return nil, err
	}

	order := s.registry.Lookup(ctx, instanceID).Order
	entries, err := s.store.TopK(ctx, instanceID, limit, offset, order)
	if err != nil {
		return nil, err
	}
	return toAPIEntries(entries), nil
}

// UserRank returns the rank entry for a single user in an instance.
func (s *Service) UserRank(ctx context.Context, instanceID, userID string) (types.Entry, error) {
	order := s.registry.Lookup(ctx, instanceID).Order
	entry, err := s.store.UserRank(ctx, instanceID, userID, order)
	if err != nil {
		return types.Entry{}, err
	}
	return toAPIEntry(entry), nil
}

// AroundUser returns the window of entries centered on a user.
func (s *Service) AroundUser(ctx context.Context, instanceID, userID string, limit int64) ([]types.Entry, error) {
	limit, err := s.checkPage(limit, 0)
	if err != nil {
		metrics.RecordValidationError()
		return nil, err
	}

	order := s.registry.Lookup(ctx, instanceID).Order
	entries, err := s.store.AroundUser(ctx, instanceID, userID, limit, order)
	if err != nil {
		return nil, err
	}
	return toAPIEntries(entries), nil
}

// SubmitScore is the synchronous ingest path: validate the features against
// the instance configuration, compute the score and persist it.
func (s *Service) SubmitScore(ctx context.Context, instanceID, userID string, features map[string]any) (types.Entry, error) {
	cfg := s.registry.Lookup(ctx, instanceID)

	if err := validate.Features(features, cfg); err != nil {
		metrics.RecordValidationError()
		return types.Entry{}, err
	}

	result, err := s.scorer.Score(ctx, scoring.Input{
		InstanceID: instanceID,
		UserID:     userID,
		Features:   features,
	}, cfg)
	if err != nil {
		metrics.RecordScoringError()
		return types.Entry{}, fmt.Errorf("score for %s/%s: %w", instanceID, userID, err)
	}

	if err := s.store.SaveScore(ctx, instanceID, result.UserID, result.Score); err != nil {
		return types.Entry{}, err
	}
	return types.Entry{UserID: result.UserID, Score: result.Score}, nil
}

// SeenAndRecord atomically checks if an event id was seen and records it if
// not. Returns true if the event was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an event id from the seen list, allowing a retry after a
// failed enqueue.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits an event for asynchronous processing. Returns false when
// the queue rejected the event.
func (s *Service) Enqueue(ctx context.Context, e model.Event) bool {
	ok := s.eventQueue.Enqueue(ctx, e)
	if !ok {
		s.logger.Warn(ctx, "event rejected by queue",
			logger.String("event_id", e.EventID),
			logger.String("instance", e.InstanceID),
		)
	}
	return ok
}

// Count returns the number of members in an instance.
func (s *Service) Count(ctx context.Context, instanceID string) (int64, error) {
	return s.store.Count(ctx, instanceID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
		"max_limit":    s.maxLimit,
	}
	if s.started {
		stats["queue_length"] = s.eventQueue.Len(context.Background())
		stats["dedupe_entries"] = s.deduper.Size()
	}
	return stats
}

func toAPIEntry(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:   e.Rank,
		UserID: e.UserID,
		Score:  e.Score,
		Data:   e.Data,
	}
}

func toAPIEntries(entries []repository.Entry) []types.Entry {
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = toAPIEntry(e)
	}
	return out
}
