package kalshi

import (
	"strconv"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/normalize"
)

// APIEventsResponse is the paginated events payload with nested markets.
type APIEventsResponse struct {
	Events []APIEvent `json:"events"`
	Cursor string     `json:"cursor"`
}

// APIEvent groups related Kalshi markets under one category and title.
type APIEvent struct {
	Title    string      `json:"title"`
	SubTitle string      `json:"sub_title"`
	Category string      `json:"category"`
	Markets  []APIMarket `json:"markets"`
}

// APIMarket is one Kalshi market. Prices come in two denominations: a
// dollar-string ask (preferred) and an integer cents ask.
type APIMarket struct {
	Ticker           string  `json:"ticker"`
	Title            string  `json:"title"`
	RulesPrimary     string  `json:"rules_primary"`
	YesSubTitle      string  `json:"yes_sub_title"`
	NoSubTitle       string  `json:"no_sub_title"`
	YesAskDollars    string  `json:"yes_ask_dollars"`
	YesAsk           float64 `json:"yes_ask"`
	Volume           float64 `json:"volume"`
	Volume24h        float64 `json:"volume_24h"`
	Liquidity        float64 `json:"liquidity"`
	LiquidityDollars string  `json:"liquidity_dollars"`
	CloseTime        string  `json:"close_time"`
	ExpirationTime   string  `json:"expiration_time"`
	Status           string  `json:"status"`
	CreatedTime      string  `json:"created_time"`
}

// yesPrice prefers the dollar-denominated ask, falls back to cents/100, and
// defaults to even odds when both are absent.
func (m *APIMarket) yesPrice() float64 {
	if m.YesAskDollars != "" {
		if p, err := strconv.ParseFloat(m.YesAskDollars, 64); err == nil {
			return p
		}
	}
	if m.YesAsk != 0 {
		return m.YesAsk / 100
	}
	return 0.5
}

// toDomainMarket normalizes one Kalshi market using its enclosing event for
// category and fallback title.
func (m *APIMarket) toDomainMarket(e *APIEvent) domain.Market {
	question := m.Title
	if question == "" {
		question = e.Title
	}

	description := m.RulesPrimary
	if description == "" {
		description = e.SubTitle
	}

	var tags []string
	if e.Category != "" {
		tags = []string{e.Category}
	}

	yes := m.yesPrice()

	yesName := m.YesSubTitle
	if yesName == "" {
		yesName = "Yes"
	}
	noName := m.NoSubTitle
	if noName == "" {
		noName = "No"
	}

	var liquidity float64
	if m.Liquidity != 0 {
		liquidity, _ = strconv.ParseFloat(m.LiquidityDollars, 64)
	}

	status := domain.MarketStatusClosed
	if m.Status == "open" || m.Status == "active" {
		status = domain.MarketStatusActive
	}

	endDate := parseTime(m.CloseTime)
	if endDate == nil {
		endDate = parseTime(m.ExpirationTime)
	}

	created := time.Now().UTC()
	if t := parseTime(m.CreatedTime); t != nil {
		created = *t
	}

	return domain.Market{
		ID:          "kalshi_" + m.Ticker,
		Platform:    domain.PlatformKalshi,
		Question:    question,
		Description: description,
		Category:    normalize.DeriveCategory([]string{e.Category}, question),
		Outcomes: []domain.Outcome{
			{Name: yesName, Price: yes, TokenID: m.Ticker},
			{Name: noName, Price: 1 - yes, TokenID: m.Ticker},
		},
		Volume:            m.Volume,
		Volume24h:         m.Volume24h,
		Liquidity:         liquidity,
		EndDate:           endDate,
		Status:            status,
		CreatedAt:         created,
		URL:               "https://kalshi.com/markets/" + m.Ticker,
		Tags:              tags,
		PulseIntensity:    normalize.PulseIntensity(yes),
		ShockwaveStrength: normalize.Shockwave(m.Volume24h, m.Volume),
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
