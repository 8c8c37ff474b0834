// Package worker consumes queued score events and turns them into durable
// score writes: instance lookup, feature validation, score calculation, then
// a save through the composite store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/platforms/leaderboard/internal/domain/instance"
	"github.com/platforms/leaderboard/internal/domain/model"
	"github.com/platforms/leaderboard/internal/domain/scoring"
	"github.com/platforms/leaderboard/internal/domain/validate"
	"github.com/platforms/leaderboard/pkg/logger"
	"github.com/platforms/leaderboard/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 4
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = model.Event

// Saver persists a computed score.
type Saver interface {
	SaveScore(ctx context.Context, instanceID, userID string, score float64) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing events.
type InMemoryWorker struct {
	queue    Queue
	registry instance.Registry
	scorer   scoring.Scorer
	saver    Saver
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, registry instance.Registry, scorer scoring.Scorer, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		registry: registry,
		scorer:   scorer,
		saver:    saver,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "event processing failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent runs a single event through the full pipeline.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	cfg := w.registry.Lookup(ctx, event.InstanceID)

	if err := validate.Features(event.Features, cfg); err != nil {
		metrics.RecordValidationError()
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "event rejected by validation",
			logger.String("event_id", event.EventID),
			logger.String("instance", event.InstanceID),
			logger.Error(err),
		)
		return fmt.Errorf("validate event %s: %w", event.EventID, err)
	}

	result, err := w.scorer.Score(ctx, scoring.Input{
		InstanceID: event.InstanceID,
		UserID:     event.UserID,
		Features:   event.Features,
	}, cfg)
	if err != nil {
		metrics.RecordScoringError()
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "scoring failed",
			logger.String("event_id", event.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("score event %s: %w", event.EventID, err)
	}

	if err := w.saver.SaveScore(ctx, event.InstanceID, result.UserID, result.Score); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "score save failed",
			logger.String("event_id", event.EventID),
			logger.String("instance", event.InstanceID),
			logger.Error(err),
		)
		return fmt.Errorf("save score for event %s: %w", event.EventID, err)
	}

	metrics.RecordEventProcessed()
	return nil
}

// Pool manages multiple workers over a shared queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A non-positive count picks
// a size from the CPU count.
func NewPool(workerCount int, q Queue, registry instance.Registry, scorer scoring.Scorer, saver Saver) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q, registry, scorer, saver,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits briefly for each to drain.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for workers to finish the remaining
// events or the timeout to pass.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
