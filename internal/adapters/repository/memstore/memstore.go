// Package memstore provides an in-memory Store used in development mode and
// by service-level tests. It applies the same ordering and windowing
// semantics as the Redis and Postgres tiers.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/domain/rank"
)

type record struct {
	score     float64
	createdAt time.Time
	updatedAt time.Time
}

// Store implements repository.Store over per-instance maps. Boards are sorted
// on read; this is the durable tier's query model, not the cache's, which is
// fine at development scale.
type Store struct {
	mu     sync.RWMutex
	boards map[string]map[string]record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{boards: make(map[string]map[string]record)}
}

// SaveScore implements repository.Store.
func (s *Store) SaveScore(_ context.Context, instanceID, userID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, ok := s.boards[instanceID]
	if !ok {
		board = make(map[string]record)
		s.boards[instanceID] = board
	}
	now := time.Now().UTC()
	if existing, ok := board[userID]; ok {
		existing.score = score
		existing.updatedAt = now
		board[userID] = existing
		return nil
	}
	board[userID] = record{score: score, createdAt: now, updatedAt: now}
	return nil
}

// TopK implements repository.Store.
func (s *Store) TopK(_ context.Context, instanceID string, limit, offset int64, order rank.Order) ([]repository.Entry, error) {
	if limit <= 0 || offset < 0 {
		return []repository.Entry{}, nil
	}
	ranked := s.ranked(instanceID, order)
	if offset >= int64(len(ranked)) {
		return []repository.Entry{}, nil
	}
	end := offset + limit
	if end > int64(len(ranked)) {
		end = int64(len(ranked))
	}
	return ranked[offset:end], nil
}

// UserRank implements repository.Store.
func (s *Store) UserRank(_ context.Context, instanceID, userID string, order rank.Order) (repository.Entry, error) {
	for _, e := range s.ranked(instanceID, order) {
		if e.UserID == userID {
			return e, nil
		}
	}
	return repository.Entry{}, repository.ErrNotFound
}

// AroundUser implements repository.Store.
func (s *Store) AroundUser(ctx context.Context, instanceID, userID string, limit int64, order rank.Order) ([]repository.Entry, error) {
	if limit <= 0 {
		return []repository.Entry{}, nil
	}
	ranked := s.ranked(instanceID, order)
	center := int64(0)
	for _, e := range ranked {
		if e.UserID == userID {
			center = e.Rank
			break
		}
	}
	if center == 0 {
		return nil, repository.ErrNotFound
	}
	start, end := rank.WindowAround(center, limit, int64(len(ranked)))
	return ranked[start-1 : end], nil
}

// Count implements repository.Store.
func (s *Store) Count(_ context.Context, instanceID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.boards[instanceID])), nil
}

// ranked returns the full board sorted under order with 1-based ranks set.
func (s *Store) ranked(instanceID string, order rank.Order) []repository.Entry {
	s.mu.RLock()
	board := s.boards[instanceID]
	entries := make([]repository.Entry, 0, len(board))
	for userID, rec := range board {
		entries = append(entries, repository.Entry{UserID: userID, Score: rec.score})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return rank.Less(order, entries[i].Score, entries[i].UserID, entries[j].Score, entries[j].UserID)
	})
	for i := range entries {
		entries[i].Rank = int64(i) + 1
	}
	return entries
}

var _ repository.Store = (*Store)(nil)
