// Package rank contains the pure ranking logic shared by every storage tier.
//
// All tiers keep a single physical order per leaderboard (score ascending,
// then user id ascending) and serve HighestFirst as the reversed traversal of
// the same order. Ranks are 1-based; rank 1 is the best entry under the
// requested order.
package rank

import (
	"fmt"
	"strings"
)

// Order selects which end of the score range holds rank 1.
type Order int

const (
	// HighestFirst ranks the numerically largest score first.
	HighestFirst Order = iota
	// LowestFirst ranks the numerically smallest score first.
	LowestFirst
)

// String returns the canonical configuration spelling of the order.
func (o Order) String() string {
	if o == LowestFirst {
		return "lowest_first"
	}
	return "highest_first"
}

// ParseOrder parses a configuration value into an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "highest_first", "desc", "descending":
		return HighestFirst, nil
	case "lowest_first", "asc", "ascending":
		return LowestFirst, nil
	default:
		return HighestFirst, fmt.Errorf("unknown ranking order: %q", s)
	}
}

// OneBased converts a zero-based position into a 1-based rank.
func OneBased(pos int64) int64 {
	return pos + 1
}

// Invert converts a zero-based position in one traversal direction into the
// 1-based rank in the opposite direction. Used when a single physical index
// serves both orders.
func Invert(total, pos int64) int64 {
	return total - pos
}

// WindowAround computes the rank window centered on center. The window holds
// exactly limit entries unless a boundary is hit, in which case it clamps
// instead of wrapping.
func WindowAround(center, limit, total int64) (start, end int64) {
	half := (limit - 1) / 2
	start = center - half
	if start < 1 {
		start = 1
	}
	end = start + limit - 1
	if end > total {
		end = total
	}
	return start, end
}

// Outranks reports whether score a ranks strictly ahead of score b under o.
func Outranks(o Order, a, b float64) bool {
	if o == LowestFirst {
		return a < b
	}
	return a > b
}

// Less is the total-order comparator under o, with the deterministic
// tie-break applied: ties follow the traversal direction of the shared
// physical index (user id ascending under LowestFirst, descending under
// HighestFirst). This matches a Redis sorted set read with ZRANGE and
// ZREVRANGE respectively.
func Less(o Order, aScore float64, aID string, bScore float64, bID string) bool {
	if o == HighestFirst {
		return ascLess(bScore, bID, aScore, aID)
	}
	return ascLess(aScore, aID, bScore, bID)
}

func ascLess(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aID < bID
}
