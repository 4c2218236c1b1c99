package domain

import "time"

// Platform identifies a prediction-market provider.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
	PlatformOpinion    Platform = "opinion"
)

// AllPlatforms lists every supported provider in fetch order.
var AllPlatforms = []Platform{PlatformPolymarket, PlatformKalshi, PlatformOpinion}

// ParsePlatform returns the Platform for a provider key, or false if the key
// is unknown.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformPolymarket, PlatformKalshi, PlatformOpinion:
		return Platform(s), true
	}
	return "", false
}

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Outcome is one side of a market. The first outcome in a market's list is
// the affirmative ("Yes") side; its price drives the derived signals.
type Outcome struct {
	Name    string  `json:"name"`
	Price   float64 `json:"price"` // probability in [0,1]
	TokenID string  `json:"tokenId,omitempty"`
}

// Market is the canonical record every provider response is normalized into.
// IDs are provider-prefixed (poly_*, kalshi_*, opinion_*) so they are unique
// across the combined snapshot.
type Market struct {
	ID          string       `json:"id"`
	Platform    Platform     `json:"platform"`
	Question    string       `json:"question"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Image       string       `json:"image,omitempty"`
	Outcomes    []Outcome    `json:"outcomes"`
	Volume      float64      `json:"volume"`
	Volume24h   float64      `json:"volume24h,omitempty"`
	Liquidity   float64      `json:"liquidity,omitempty"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	Status      MarketStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	URL         string       `json:"url"`
	Tags        []string     `json:"tags,omitempty"`

	// Derived display signals, both in [0,1].
	PulseIntensity    float64 `json:"pulseIntensity"`
	ShockwaveStrength float64 `json:"shockwaveStrength"`
}

// YesPrice returns the lead-outcome price, or 0.5 when the market has no
// outcomes (defensive; normalized markets always carry at least two).
func (m *Market) YesPrice() float64 {
	if len(m.Outcomes) == 0 {
		return 0.5
	}
	return m.Outcomes[0].Price
}

// FetchError attributes a provider-level failure to its platform.
type FetchError struct {
	Platform Platform `json:"platform"`
	Error    string   `json:"error"`
}

// FetchResult is one completed aggregation cycle: the merged, filtered,
// volume-sorted market set plus every provider failure observed during the
// cycle. It is immutable once returned and superseded wholesale by the next
// cycle.
type FetchResult struct {
	Markets   []Market     `json:"markets"`
	Errors    []FetchError `json:"errors"`
	Timestamp time.Time    `json:"timestamp"`
}
