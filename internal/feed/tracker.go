package feed

import (
	"math"

	"github.com/marketpulse/marketpulse/internal/domain"
)

// shockDeltaThreshold is the lead-price move that triggers a shock override.
const shockDeltaThreshold = 0.02

// ShockTracker compares each snapshot against the previous one and boosts the
// shockwave signal of markets whose lead price moved sharply. It remembers
// exactly one snapshot back, so a boost decays on the next cycle unless the
// price keeps moving.
type ShockTracker struct {
	prev map[string]domain.Market
}

// NewShockTracker creates an empty tracker.
func NewShockTracker() *ShockTracker {
	return &ShockTracker{prev: make(map[string]domain.Market)}
}

// Enhance returns a copy of markets where any market whose lead price moved
// by more than the threshold since the previous snapshot has its shockwave
// strength replaced by min(delta*10, 1). Unseen IDs keep their
// aggregator-computed value. The lookback map is then swapped wholesale.
func (t *ShockTracker) Enhance(markets []domain.Market) []domain.Market {
	out := make([]domain.Market, len(markets))
	next := make(map[string]domain.Market, len(markets))

	for i, m := range markets {
		if prev, ok := t.prev[m.ID]; ok {
			delta := math.Abs(m.YesPrice() - prev.YesPrice())
			if delta > shockDeltaThreshold {
				m.ShockwaveStrength = math.Min(delta*10, 1)
			}
		}
		out[i] = m
		next[m.ID] = m
	}

	t.prev = next
	return out
}
