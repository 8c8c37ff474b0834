package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/platforms/leaderboard/internal/adapters/mq/queue"
	"github.com/platforms/leaderboard/internal/adapters/mq/worker"
	"github.com/platforms/leaderboard/internal/domain/instance"
	"github.com/platforms/leaderboard/internal/domain/model"
	"github.com/platforms/leaderboard/internal/domain/rank"
	"github.com/platforms/leaderboard/internal/domain/scoring"
	logging "github.com/platforms/leaderboard/pkg/logger"
)

type mockQueue struct {
	eventChan chan queue.Event
}

func newMockQueue() *mockQueue {
	return &mockQueue{eventChan: make(chan queue.Event, 100)}
}

func (mq *mockQueue) Dequeue(_ context.Context) <-chan queue.Event {
	return mq.eventChan
}

func (mq *mockQueue) Close() error {
	close(mq.eventChan)
	return nil
}

func (mq *mockQueue) addEvent(event queue.Event) {
	mq.eventChan <- event
}

type mockSaver struct {
	mu     sync.RWMutex
	saved  map[string]float64
	errors map[string]error
}

func newMockSaver() *mockSaver {
	return &mockSaver{
		saved:  make(map[string]float64),
		errors: make(map[string]error),
	}
}

func (ms *mockSaver) SaveScore(_ context.Context, instanceID, userID string, score float64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err, exists := ms.errors[userID]; exists {
		return err
	}
	ms.saved[instanceID+"/"+userID] = score
	return nil
}

func (ms *mockSaver) setError(userID string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[userID] = err
}

func (ms *mockSaver) getSaved(instanceID, userID string) (float64, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	score, exists := ms.saved[instanceID+"/"+userID]
	return score, exists
}

func testRegistry() instance.Registry {
	return instance.NewStaticRegistry(map[string]instance.Config{
		"L1": {
			Order: rank.HighestFirst,
			Features: []instance.FeatureSpec{
				{Name: "points", Type: instance.FeatureFloat, Required: true},
			},
			Weights: map[string]float64{"points": 2.0},
		},
	})
}

func pointsEvent(eventID, userID string, points float64) model.Event {
	return model.Event{
		EventID:    eventID,
		InstanceID: "L1",
		UserID:     userID,
		Features:   map[string]any{"points": points},
		TS:         time.Now(),
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		saver := newMockSaver()
		w := worker.NewInMemoryWorker(mq, testRegistry(), scoring.NewWeightedScorer(), saver)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)
		time.Sleep(10 * time.Millisecond)

		convey.Convey("When a valid event arrives", func() {
			mq.addEvent(pointsEvent("event-1", "u1", 50))
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then the weighted score is saved", func() {
				score, saved := saver.getSaved("L1", "u1")
				convey.So(saved, convey.ShouldBeTrue)
				convey.So(score, convey.ShouldEqual, 100.0)
			})
		})

		convey.Convey("When the event misses a required feature", func() {
			mq.addEvent(model.Event{
				EventID:    "event-2",
				InstanceID: "L1",
				UserID:     "u2",
				Features:   map[string]any{"other": 1.0},
			})
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then nothing is saved", func() {
				_, saved := saver.getSaved("L1", "u2")
				convey.So(saved, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When saving fails", func() {
			saver.setError("u3", errors.New("store down"))
			mq.addEvent(pointsEvent("event-3", "u3", 10))
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then the event is dropped without a save", func() {
				_, saved := saver.getSaved("L1", "u3")
				convey.So(saved, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerStopsOnQueueClose(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		saver := newMockSaver()
		w := worker.NewInMemoryWorker(mq, testRegistry(), scoring.NewWeightedScorer(), saver)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)
		time.Sleep(10 * time.Millisecond)

		convey.Convey("When the queue closes the worker drains and stops", func() {
			mq.addEvent(pointsEvent("event-1", "u1", 5))
			convey.So(mq.Close(), convey.ShouldBeNil)
			time.Sleep(50 * time.Millisecond)

			score, saved := saver.getSaved("L1", "u1")
			convey.So(saved, convey.ShouldBeTrue)
			convey.So(score, convey.ShouldEqual, 10.0)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		saver := newMockSaver()

		convey.Convey("When creating a pool with a non-positive count it sizes itself", func() {
			pool := worker.NewPool(0, mq, testRegistry(), scoring.NewWeightedScorer(), saver)
			convey.So(pool, convey.ShouldNotBeNil)
		})

		convey.Convey("When processing events across workers", func() {
			pool := worker.NewPool(3, mq, testRegistry(), scoring.NewWeightedScorer(), saver)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)
			time.Sleep(20 * time.Millisecond)

			for i := 1; i <= 3; i++ {
				mq.addEvent(pointsEvent(fmt.Sprintf("event-%d", i), fmt.Sprintf("u%d", i), float64(i*10)))
			}
			time.Sleep(100 * time.Millisecond)

			convey.Convey("Then every event results in a save", func() {
				for i := 1; i <= 3; i++ {
					score, saved := saver.getSaved("L1", fmt.Sprintf("u%d", i))
					convey.So(saved, convey.ShouldBeTrue)
					convey.So(score, convey.ShouldEqual, float64(i*20))
				}
			})

			convey.Convey("And when shutting down it drains gracefully", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()

				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerConcurrency(t *testing.T) {
	convey.Convey("Given a pool with several workers and many events", t, func() {
		_ = logging.Init()

		mq := newMockQueue()
		saver := newMockSaver()
		pool := worker.NewPool(4, mq, testRegistry(), scoring.NewWeightedScorer(), saver)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		time.Sleep(20 * time.Millisecond)

		convey.Convey("When producers race to enqueue", func() {
			const producers = 5
			const perProducer = 20
			var wg sync.WaitGroup
			for i := 0; i < producers; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for j := 0; j < perProducer; j++ {
						user := fmt.Sprintf("u%d-%d", id, j)
						mq.addEvent(pointsEvent(fmt.Sprintf("event-%d-%d", id, j), user, float64(j)))
					}
				}(i)
			}
			wg.Wait()
			time.Sleep(200 * time.Millisecond)

			convey.Convey("Then all events are processed", func() {
				processed := 0
				for i := 0; i < producers; i++ {
					for j := 0; j < perProducer; j++ {
						if _, saved := saver.getSaved("L1", fmt.Sprintf("u%d-%d", i, j)); saved {
							processed++
						}
					}
				}
				convey.So(processed, convey.ShouldEqual, producers*perProducer)
			})
		})
	})
}
