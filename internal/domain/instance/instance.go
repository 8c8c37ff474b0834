// Package instance provides per-leaderboard configuration lookup.
//
// The core never stores ranking order itself; every query is scoped to an
// instance id and the order, feature specs and scoring weights come from
// this registry. Unconfigured instances fall back to the "*" default.
package instance

import (
	"context"
	"fmt"
	"strings"

	"github.com/platforms/leaderboard/internal/domain/rank"
)

// DefaultKey is the registry key holding the fallback configuration.
const DefaultKey = "*"

// FeatureType is the declared data type of an event feature.
type FeatureType string

const (
	FeatureString  FeatureType = "string"
	FeatureInteger FeatureType = "integer"
	FeatureFloat   FeatureType = "float"
	FeatureBoolean FeatureType = "boolean"
)

// ParseFeatureType parses a configuration value into a FeatureType.
func ParseFeatureType(s string) (FeatureType, error) {
	switch FeatureType(strings.ToLower(strings.TrimSpace(s))) {
	case FeatureString:
		return FeatureString, nil
	case FeatureInteger, "int":
		return FeatureInteger, nil
	case FeatureFloat, "double":
		return FeatureFloat, nil
	case FeatureBoolean, "bool":
		return FeatureBoolean, nil
	default:
		return FeatureString, fmt.Errorf("unknown feature type: %q", s)
	}
}

// FeatureSpec declares one feature an instance accepts in events.
type FeatureSpec struct {
	Name     string
	Type     FeatureType
	Required bool
}

// Config is the resolved configuration of one leaderboard instance.
type Config struct {
	Order         rank.Order
	Features      []FeatureSpec
	Weights       map[string]float64
	DefaultWeight float64
}

// Registry resolves the configuration for an instance id.
type Registry interface {
	Lookup(ctx context.Context, instanceID string) Config
}

// StaticRegistry implements Registry over a fixed map, typically built from
// the service configuration file.
type StaticRegistry struct {
	configs  map[string]Config
	fallback Config
}

// NewStaticRegistry builds a registry from per-instance configs. The entry
// keyed DefaultKey, if present, becomes the fallback for unknown instances;
// otherwise a HighestFirst config with weight 1.0 is used.
func NewStaticRegistry(configs map[string]Config) *StaticRegistry {
	r := &StaticRegistry{
		configs: make(map[string]Config, len(configs)),
		fallback: Config{
			Order:         rank.HighestFirst,
			DefaultWeight: 1.0,
		},
	}
	for id, cfg := range configs {
		if cfg.DefaultWeight == 0 {
			cfg.DefaultWeight = 1.0
		}
		if id == DefaultKey {
			r.fallback = cfg
			continue
		}
		r.configs[id] = cfg
	}
	return r
}

// Lookup returns the configuration for instanceID, or the fallback.
func (r *StaticRegistry) Lookup(_ context.Context, instanceID string) Config {
	if cfg, ok := r.configs[instanceID]; ok {
		return cfg
	}
	return r.fallback
}

var _ Registry = (*StaticRegistry)(nil)
