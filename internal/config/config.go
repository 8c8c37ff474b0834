// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment sources on top.
// - External errors must be wrapped via this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"

	"github.com/platforms/leaderboard/internal/domain/instance"
	"github.com/platforms/leaderboard/internal/domain/rank"
)

// FeatureConfig declares one feature of an instance in the config file.
type FeatureConfig struct {
	Name     string `koanf:"name"`
	Type     string `koanf:"type"`
	Required bool   `koanf:"required"`
}

// InstanceConfig is the file shape of a per-instance configuration. The key
// "*" configures the fallback for unknown instances.
type InstanceConfig struct {
	Order         string             `koanf:"order"`
	Features      []FeatureConfig    `koanf:"features"`
	Weights       map[string]float64 `koanf:"weights"`
	DefaultWeight float64            `koanf:"default_weight"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps the page size of leaderboard queries.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Redis settings for the ranked cache tier. An empty addr disables the
	// cache tier and the durable store answers everything.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPoolSize int    `koanf:"redis_pool_size"`

	// Postgres settings for the durable tier. An empty DSN switches the
	// service to the in-memory development store.
	PostgresDSN          string `koanf:"postgres_dsn"`
	PostgresMaxOpenConns int    `koanf:"postgres_max_open_conns"`
	PostgresMaxIdleConns int    `koanf:"postgres_max_idle_conns"`

	// Instances holds per-leaderboard configuration keyed by instance id.
	Instances map[string]InstanceConfig `koanf:"instances"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		EventQueueSize:       100_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeSize:           50_000,
		MaxLeaderboardLimit:  100,
		RedisPoolSize:        10,
		PostgresMaxOpenConns: 25,
		PostgresMaxIdleConns: 5,
	}
}

// Registry converts the configured instances into a lookup registry.
func (c *Config) Registry() (instance.Registry, error) {
	configs := make(map[string]instance.Config, len(c.Instances))
	for id, ic := range c.Instances {
		order, err := rank.ParseOrder(ic.Order)
		if err != nil {
			return nil, fmt.Errorf("%w: instance %q: %v", ErrInvalidConfig, id, err)
		}
		specs := make([]instance.FeatureSpec, 0, len(ic.Features))
		for _, fc := range ic.Features {
			ft, err := instance.ParseFeatureType(fc.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: instance %q: %v", ErrInvalidConfig, id, err)
			}
			specs = append(specs, instance.FeatureSpec{
				Name:     fc.Name,
				Type:     ft,
				Required: fc.Required,
			})
		}
		configs[id] = instance.Config{
			Order:         order,
			Features:      specs,
			Weights:       ic.Weights,
			DefaultWeight: ic.DefaultWeight,
		}
	}
	return instance.NewStaticRegistry(configs), nil
}
