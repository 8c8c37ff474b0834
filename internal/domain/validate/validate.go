// Package validate checks incoming feature events against the instance's
// feature specs before any score is calculated.
package validate

import (
	"errors"
	"fmt"

	"github.com/platforms/leaderboard/internal/domain/instance"
)

// ErrInvalidEvent is the sentinel kind wrapped by every validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// Features validates a raw feature map against cfg. Required features must be
// present and every supplied declared feature must match its declared type.
// Undeclared features pass through untouched; the scorer decides their weight.
func Features(features map[string]any, cfg instance.Config) error {
	for _, spec := range cfg.Features {
		val, ok := features[spec.Name]
		if !ok {
			if spec.Required {
				return fmt.Errorf("%w: missing required feature %q", ErrInvalidEvent, spec.Name)
			}
			continue
		}
		if err := checkType(val, spec.Type); err != nil {
			return fmt.Errorf("%w: feature %q: %v", ErrInvalidEvent, spec.Name, err)
		}
	}
	return nil
}

func checkType(val any, t instance.FeatureType) error {
	switch t {
	case instance.FeatureString:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
	case instance.FeatureInteger:
		// JSON numbers decode as float64; accept whole-valued floats.
		switch v := val.(type) {
		case int, int32, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
		default:
			return fmt.Errorf("expected integer, got %T", val)
		}
	case instance.FeatureFloat:
		switch val.(type) {
		case float32, float64, int, int32, int64:
		default:
			return fmt.Errorf("expected number, got %T", val)
		}
	case instance.FeatureBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", val)
		}
	}
	return nil
}
