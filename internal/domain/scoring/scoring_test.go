package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/platforms/leaderboard/internal/domain/instance"
	"github.com/platforms/leaderboard/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestWeightedScorer(t *testing.T) {
	convey.Convey("Given a weighted scorer and an instance config", t, func() {
		ctx := context.Background()
		scorer := scoring.NewWeightedScorer()
		cfg := instance.Config{
			Weights:       map[string]float64{"wins": 10, "accuracy": 100},
			DefaultWeight: 1.0,
		}

		convey.Convey("When scoring numeric features", func() {
			res, err := scorer.Score(ctx, scoring.Input{
				UserID:   "u1",
				Features: map[string]any{"wins": float64(3), "accuracy": 0.5},
			}, cfg)

			convey.Convey("Then the weighted sum should be returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.UserID, convey.ShouldEqual, "u1")
				convey.So(res.Score, convey.ShouldAlmostEqual, 80.0)
			})
		})

		convey.Convey("When a feature has no configured weight", func() {
			res, err := scorer.Score(ctx, scoring.Input{
				UserID:   "u1",
				Features: map[string]any{"bonus": float64(7)},
			}, cfg)

			convey.Convey("Then the default weight should apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Score, convey.ShouldAlmostEqual, 7.0)
			})
		})

		convey.Convey("When features include booleans and strings", func() {
			res, err := scorer.Score(ctx, scoring.Input{
				UserID:   "u1",
				Features: map[string]any{"wins": float64(1), "ranked": true, "region": "eu"},
			}, cfg)

			convey.Convey("Then booleans count as one and strings are ignored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Score, convey.ShouldAlmostEqual, 11.0)
			})
		})

		convey.Convey("When the result is not finite", func() {
			_, err := scorer.Score(ctx, scoring.Input{
				UserID:   "u1",
				Features: map[string]any{"wins": math.Inf(1)},
			}, cfg)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, scoring.ErrNotFinite), convey.ShouldBeTrue)
		})

		convey.Convey("When the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := scorer.Score(canceled, scoring.Input{UserID: "u1"}, cfg)

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the feature map is empty", func() {
			res, err := scorer.Score(ctx, scoring.Input{UserID: "u1"}, cfg)

			convey.Convey("Then the score should be zero", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Score, convey.ShouldEqual, 0.0)
			})
		})
	})
}
