package redisstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/adapters/repository/redisstore"
	"github.com/platforms/leaderboard/internal/domain/rank"
)

func newTestStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisstore.NewWithClient(client), mr
}

func seed(t *testing.T, s *redisstore.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveScore(ctx, "L1", "a", 50))
	require.NoError(t, s.SaveScore(ctx, "L1", "b", 80))
	require.NoError(t, s.SaveScore(ctx, "L1", "c", 65))
}

func TestSaveScoreUpsert(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	n, err := s.Count(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Same member again must update in place, not grow the set.
	require.NoError(t, s.SaveScore(ctx, "L1", "a", 99))
	n, err = s.Count(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	entry, err := s.UserRank(ctx, "L1", "a", rank.HighestFirst)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Rank)
	assert.Equal(t, 99.0, entry.Score)
}

func TestTopK(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	t.Run("highest first", func(t *testing.T) {
		entries, err := s.TopK(ctx, "L1", 2, 0, rank.HighestFirst)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "b", entries[0].UserID)
		assert.Equal(t, 80.0, entries[0].Score)
		assert.Equal(t, int64(1), entries[0].Rank)
		assert.Equal(t, "c", entries[1].UserID)
		assert.Equal(t, int64(2), entries[1].Rank)
	})

	t.Run("lowest first", func(t *testing.T) {
		entries, err := s.TopK(ctx, "L1", 1, 0, rank.LowestFirst)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "a", entries[0].UserID)
		assert.Equal(t, int64(1), entries[0].Rank)
	})

	t.Run("offset shifts ranks", func(t *testing.T) {
		entries, err := s.TopK(ctx, "L1", 2, 1, rank.HighestFirst)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "c", entries[0].UserID)
		assert.Equal(t, int64(2), entries[0].Rank)
		assert.Equal(t, "a", entries[1].UserID)
		assert.Equal(t, int64(3), entries[1].Rank)
	})

	t.Run("offset past the end", func(t *testing.T) {
		entries, err := s.TopK(ctx, "L1", 5, 10, rank.HighestFirst)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unknown instance is empty", func(t *testing.T) {
		entries, err := s.TopK(ctx, "nope", 5, 0, rank.HighestFirst)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("non-positive limit is empty", func(t *testing.T) {
		entries, err := s.TopK(ctx, "L1", 0, 0, rank.HighestFirst)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestUserRank(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	entry, err := s.UserRank(ctx, "L1", "a", rank.HighestFirst)
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.Rank)
	assert.Equal(t, 50.0, entry.Score)

	entry, err = s.UserRank(ctx, "L1", "a", rank.LowestFirst)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Rank)

	_, err = s.UserRank(ctx, "L1", "ghost", rank.HighestFirst)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAroundUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		require.NoError(t, s.SaveScore(ctx, "L1", fmt.Sprintf("u%d", i), float64(i*10)))
	}

	t.Run("window fits", func(t *testing.T) {
		entries, err := s.AroundUser(ctx, "L1", "u4", 5, rank.HighestFirst)
		require.NoError(t, err)
		require.Len(t, entries, 5)
		assert.Equal(t, int64(2), entries[0].Rank)
		assert.Equal(t, "u4", entries[2].UserID)
		assert.Equal(t, int64(4), entries[2].Rank)
	})

	t.Run("clamped at the top", func(t *testing.T) {
		entries, err := s.AroundUser(ctx, "L1", "u7", 5, rank.HighestFirst)
		require.NoError(t, err)
		require.Len(t, entries, 5)
		assert.Equal(t, "u7", entries[0].UserID)
		assert.Equal(t, int64(1), entries[0].Rank)
	})

	t.Run("shrinks at the bottom", func(t *testing.T) {
		entries, err := s.AroundUser(ctx, "L1", "u1", 5, rank.HighestFirst)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "u1", entries[len(entries)-1].UserID)
		assert.Equal(t, int64(7), entries[len(entries)-1].Rank)
	})

	t.Run("lowest first window", func(t *testing.T) {
		entries, err := s.AroundUser(ctx, "L1", "u1", 3, rank.LowestFirst)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "u1", entries[0].UserID)
		assert.Equal(t, int64(1), entries[0].Rank)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.AroundUser(ctx, "L1", "ghost", 5, rank.HighestFirst)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestTieBreakMatchesDurableTier(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveScore(ctx, "L1", "alice", 50))
	require.NoError(t, s.SaveScore(ctx, "L1", "bob", 50))
	require.NoError(t, s.SaveScore(ctx, "L1", "carol", 70))

	entries, err := s.TopK(ctx, "L1", 3, 0, rank.HighestFirst)
	require.NoError(t, err)
	assert.Equal(t, "carol", entries[0].UserID)
	assert.Equal(t, "bob", entries[1].UserID)
	assert.Equal(t, "alice", entries[2].UserID)

	entries, err = s.TopK(ctx, "L1", 3, 0, rank.LowestFirst)
	require.NoError(t, err)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, "bob", entries[1].UserID)
	assert.Equal(t, "carol", entries[2].UserID)
}

func TestConnectivityErrorsAreUnavailable(t *testing.T) {
	ctx := context.Background()
	boom := fmt.Errorf("connection refused")

	t.Run("save", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectZAdd("leaderboard:L1", redis.Z{Score: 10, Member: "a"}).SetErr(boom)
		s := redisstore.NewWithClient(client)

		err := s.SaveScore(ctx, "L1", "a", 10)
		assert.ErrorIs(t, err, repository.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("top-k", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectZRevRangeWithScores("leaderboard:L1", 0, 4).SetErr(boom)
		s := redisstore.NewWithClient(client)

		_, err := s.TopK(ctx, "L1", 5, 0, rank.HighestFirst)
		assert.ErrorIs(t, err, repository.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user rank", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectZScore("leaderboard:L1", "a").SetErr(boom)
		s := redisstore.NewWithClient(client)

		_, err := s.UserRank(ctx, "L1", "a", rank.HighestFirst)
		assert.ErrorIs(t, err, repository.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectZCard("leaderboard:L1").SetErr(boom)
		s := redisstore.NewWithClient(client)

		_, err := s.Count(ctx, "L1")
		assert.ErrorIs(t, err, repository.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
