package validate_test

import (
	"errors"
	"testing"

	"github.com/platforms/leaderboard/internal/domain/instance"
	"github.com/platforms/leaderboard/internal/domain/validate"
	"github.com/smartystreets/goconvey/convey"
)

func TestFeatures(t *testing.T) {
	convey.Convey("Given an instance config with typed features", t, func() {
		cfg := instance.Config{
			Features: []instance.FeatureSpec{
				{Name: "wins", Type: instance.FeatureInteger, Required: true},
				{Name: "accuracy", Type: instance.FeatureFloat},
				{Name: "region", Type: instance.FeatureString},
				{Name: "ranked", Type: instance.FeatureBoolean},
			},
		}

		convey.Convey("When all features are present with correct types", func() {
			err := validate.Features(map[string]any{
				"wins":     float64(12), // JSON decoding yields float64
				"accuracy": 0.87,
				"region":   "eu-west",
				"ranked":   true,
			}, cfg)

			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When a required feature is missing", func() {
			err := validate.Features(map[string]any{"accuracy": 0.5}, cfg)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, validate.ErrInvalidEvent), convey.ShouldBeTrue)
		})

		convey.Convey("When an optional feature is missing", func() {
			err := validate.Features(map[string]any{"wins": 3}, cfg)

			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When an integer feature carries a fraction", func() {
			err := validate.Features(map[string]any{"wins": 2.5}, cfg)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, validate.ErrInvalidEvent), convey.ShouldBeTrue)
		})

		convey.Convey("When a string feature holds a number", func() {
			err := validate.Features(map[string]any{"wins": 1, "region": 7}, cfg)

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a boolean feature holds a string", func() {
			err := validate.Features(map[string]any{"wins": 1, "ranked": "yes"}, cfg)

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When undeclared features are supplied", func() {
			err := validate.Features(map[string]any{"wins": 1, "extra": struct{}{}}, cfg)

			convey.Convey("Then they should pass through untouched", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}
