package memstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/adapters/repository/memstore"
	"github.com/platforms/leaderboard/internal/domain/rank"
	"github.com/smartystreets/goconvey/convey"
)

func seed(ctx context.Context, s *memstore.Store) {
	_ = s.SaveScore(ctx, "L1", "a", 50)
	_ = s.SaveScore(ctx, "L1", "b", 80)
	_ = s.SaveScore(ctx, "L1", "c", 65)
}

func TestMemStore(t *testing.T) {
	convey.Convey("Given an in-memory store with three members", t, func() {
		ctx := context.Background()
		s := memstore.New()
		seed(ctx, s)

		convey.Convey("When querying top-K highest first", func() {
			entries, err := s.TopK(ctx, "L1", 2, 0, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(entries), convey.ShouldEqual, 2)
			convey.So(entries[0].UserID, convey.ShouldEqual, "b")
			convey.So(entries[0].Score, convey.ShouldEqual, 80.0)
			convey.So(entries[0].Rank, convey.ShouldEqual, 1)
			convey.So(entries[1].UserID, convey.ShouldEqual, "c")
			convey.So(entries[1].Rank, convey.ShouldEqual, 2)
		})

		convey.Convey("When querying top-K lowest first", func() {
			entries, err := s.TopK(ctx, "L1", 1, 0, rank.LowestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(entries), convey.ShouldEqual, 1)
			convey.So(entries[0].UserID, convey.ShouldEqual, "a")
			convey.So(entries[0].Rank, convey.ShouldEqual, 1)
		})

		convey.Convey("When the limit exceeds the member count", func() {
			entries, err := s.TopK(ctx, "L1", 10, 0, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(entries), convey.ShouldEqual, 3)
			convey.So(entries[2].Rank, convey.ShouldEqual, 3)
		})

		convey.Convey("When paging with an offset", func() {
			entries, err := s.TopK(ctx, "L1", 2, 1, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(entries), convey.ShouldEqual, 2)
			convey.So(entries[0].UserID, convey.ShouldEqual, "c")
			convey.So(entries[0].Rank, convey.ShouldEqual, 2)
		})

		convey.Convey("When the offset runs past the board", func() {
			entries, err := s.TopK(ctx, "L1", 2, 10, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(entries, convey.ShouldBeEmpty)
		})

		convey.Convey("When looking up a user's rank", func() {
			entry, err := s.UserRank(ctx, "L1", "a", rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Rank, convey.ShouldEqual, 3)
			convey.So(entry.Score, convey.ShouldEqual, 50.0)

			entry, err = s.UserRank(ctx, "L1", "a", rank.LowestFirst)
			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Rank, convey.ShouldEqual, 1)
		})

		convey.Convey("When looking up an unknown user", func() {
			_, err := s.UserRank(ctx, "L1", "zz", rank.HighestFirst)

			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When saving the same score twice", func() {
			convey.So(s.SaveScore(ctx, "L1", "a", 50), convey.ShouldBeNil)
			entry, err := s.UserRank(ctx, "L1", "a", rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Rank, convey.ShouldEqual, 3)
			n, _ := s.Count(ctx, "L1")
			convey.So(n, convey.ShouldEqual, 3)
		})

		convey.Convey("When overwriting a score", func() {
			convey.So(s.SaveScore(ctx, "L1", "a", 99), convey.ShouldBeNil)
			entry, err := s.UserRank(ctx, "L1", "a", rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.Rank, convey.ShouldEqual, 1)
			convey.So(entry.Score, convey.ShouldEqual, 99.0)
		})

		convey.Convey("When instances are independent", func() {
			convey.So(s.SaveScore(ctx, "L2", "x", 1), convey.ShouldBeNil)
			n1, _ := s.Count(ctx, "L1")
			n2, _ := s.Count(ctx, "L2")

			convey.So(n1, convey.ShouldEqual, 3)
			convey.So(n2, convey.ShouldEqual, 1)
		})
	})
}

func TestMemStoreAroundUser(t *testing.T) {
	convey.Convey("Given a board with seven members", t, func() {
		ctx := context.Background()
		s := memstore.New()
		for i := 1; i <= 7; i++ {
			_ = s.SaveScore(ctx, "L1", fmt.Sprintf("u%d", i), float64(i*10))
		}

		convey.Convey("When the window fits inside the board", func() {
			// u4 has rank 4 under HighestFirst (scores 70..10).
			entries, err := s.AroundUser(ctx, "L1", "u4", 5, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(entries), convey.ShouldEqual, 5)
			ranks := []int64{}
			for _, e := range entries {
				ranks = append(ranks, e.Rank)
			}
			convey.So(ranks, convey.ShouldResemble, []int64{2, 3, 4, 5, 6})
			convey.So(entries[2].UserID, convey.ShouldEqual, "u4")
		})

		convey.Convey("When the user is at the top the window clamps", func() {
			entries, err := s.AroundUser(ctx, "L1", "u7", 5, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(entries), convey.ShouldEqual, 5)
			convey.So(entries[0].Rank, convey.ShouldEqual, 1)
			convey.So(entries[0].UserID, convey.ShouldEqual, "u7")
		})

		convey.Convey("When the user is at the bottom the window shrinks", func() {
			entries, err := s.AroundUser(ctx, "L1", "u1", 5, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(len(entries), convey.ShouldEqual, 3)
			convey.So(entries[len(entries)-1].UserID, convey.ShouldEqual, "u1")
		})

		convey.Convey("When the user is unknown", func() {
			_, err := s.AroundUser(ctx, "L1", "ghost", 5, rank.HighestFirst)

			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})
	})
}

func TestMemStoreTieBreak(t *testing.T) {
	convey.Convey("Given tied scores", t, func() {
		ctx := context.Background()
		s := memstore.New()
		_ = s.SaveScore(ctx, "L1", "alice", 50)
		_ = s.SaveScore(ctx, "L1", "bob", 50)
		_ = s.SaveScore(ctx, "L1", "carol", 70)

		convey.Convey("Then HighestFirst breaks ties by id descending", func() {
			entries, err := s.TopK(ctx, "L1", 3, 0, rank.HighestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(entries[0].UserID, convey.ShouldEqual, "carol")
			convey.So(entries[1].UserID, convey.ShouldEqual, "bob")
			convey.So(entries[2].UserID, convey.ShouldEqual, "alice")
		})

		convey.Convey("Then LowestFirst breaks ties by id ascending", func() {
			entries, err := s.TopK(ctx, "L1", 3, 0, rank.LowestFirst)

			convey.So(err, convey.ShouldBeNil)
			convey.So(entries[0].UserID, convey.ShouldEqual, "alice")
			convey.So(entries[1].UserID, convey.ShouldEqual, "bob")
			convey.So(entries[2].UserID, convey.ShouldEqual, "carol")
		})
	})
}
