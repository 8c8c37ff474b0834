package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/platforms/leaderboard/internal/config"
	"github.com/platforms/leaderboard/internal/domain/rank"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.RedisAddr, convey.ShouldBeEmpty)
			convey.So(cfg.PostgresDSN, convey.ShouldBeEmpty)
		})
	})
}

func TestConfig_Registry(t *testing.T) {
	convey.Convey("Given a config with instance definitions", t, func() {
		cfg := config.New()
		cfg.Instances = map[string]config.InstanceConfig{
			"season-1": {
				Order: "lowest_first",
				Features: []config.FeatureConfig{
					{Name: "time_ms", Type: "integer", Required: true},
				},
				Weights:       map[string]float64{"time_ms": 0.5},
				DefaultWeight: 2.0,
			},
			"*": {Order: "highest_first"},
		}

		convey.Convey("When building the registry", func() {
			reg, err := cfg.Registry()

			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then configured instances resolve", func() {
				ic := reg.Lookup(context.Background(), "season-1")
				convey.So(ic.Order, convey.ShouldEqual, rank.LowestFirst)
				convey.So(len(ic.Features), convey.ShouldEqual, 1)
				convey.So(ic.Features[0].Required, convey.ShouldBeTrue)
				convey.So(ic.Weights["time_ms"], convey.ShouldEqual, 0.5)
				convey.So(ic.DefaultWeight, convey.ShouldEqual, 2.0)
			})

			convey.Convey("And unknown instances fall back to the default", func() {
				ic := reg.Lookup(context.Background(), "unknown")
				convey.So(ic.Order, convey.ShouldEqual, rank.HighestFirst)
			})
		})

		convey.Convey("When an order is invalid", func() {
			cfg.Instances["bad"] = config.InstanceConfig{Order: "sideways"}
			_, err := cfg.Registry()

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a feature type is invalid", func() {
			cfg.Instances["bad"] = config.InstanceConfig{
				Features: []config.FeatureConfig{{Name: "x", Type: "blob"}},
			}
			_, err := cfg.Registry()

			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
