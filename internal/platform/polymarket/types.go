package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/normalize"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APITag is a label attached to a Gamma event.
type APITag struct {
	Label string `json:"label"`
}

// APIEvent represents an event as returned by the Gamma events API. An event
// groups one or more related markets.
type APIEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	EndDate     string      `json:"endDate"`
	CreatedAt   string      `json:"createdAt"`
	Tags        []APITag    `json:"tags"`
	Markets     []APIMarket `json:"markets"`
}

// APIMarket represents one sub-market of a Gamma event. Monetary fields
// arrive as strings; outcome prices arrive as a JSON-encoded array inside a
// string.
type APIMarket struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	GroupItemTitle string   `json:"groupItemTitle"`
	Description    string   `json:"description"`
	Slug           string   `json:"slug"`
	Image          string   `json:"image"`
	OutcomePrices  string   `json:"outcomePrices"`
	Volume         string   `json:"volume"`
	Volume24hr     float64  `json:"volume24hr"`
	Liquidity      string   `json:"liquidity"`
	EndDate        string   `json:"endDate"`
	Active         flexBool `json:"active"`
	Closed         flexBool `json:"closed"`
	CreatedAt      string   `json:"createdAt"`
}

// yesPrice parses the first entry of the outcomePrices payload, defaulting to
// 0.5 on any malformed field.
func (m *APIMarket) yesPrice() float64 {
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil || len(prices) == 0 {
		return 0.5
	}
	p, err := strconv.ParseFloat(prices[0], 64)
	if err != nil || p == 0 {
		return 0.5
	}
	return p
}

// toDomainMarket normalizes one sub-market into the canonical shape, pulling
// missing fields from the enclosing event.
func (m *APIMarket) toDomainMarket(e *APIEvent) domain.Market {
	question := m.Question
	if question == "" {
		question = m.GroupItemTitle
	}
	if question == "" {
		question = e.Title
	}

	description := m.Description
	if description == "" {
		description = e.Description
	}

	image := m.Image
	if image == "" {
		image = e.Image
	}

	tags := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		tags = append(tags, t.Label)
	}

	yes := m.yesPrice()
	volume, _ := strconv.ParseFloat(m.Volume, 64)
	liquidity, _ := strconv.ParseFloat(m.Liquidity, 64)

	status := domain.MarketStatusResolved
	if m.Active {
		status = domain.MarketStatusActive
	} else if m.Closed {
		status = domain.MarketStatusClosed
	}

	slug := e.Slug
	if slug == "" {
		slug = m.Slug
	}

	createdAt := parseTime(m.CreatedAt)
	if createdAt == nil {
		createdAt = parseTime(e.CreatedAt)
	}
	created := time.Now().UTC()
	if createdAt != nil {
		created = *createdAt
	}

	endDate := parseTime(m.EndDate)
	if endDate == nil {
		endDate = parseTime(e.EndDate)
	}

	return domain.Market{
		ID:          "poly_" + m.ID,
		Platform:    domain.PlatformPolymarket,
		Question:    question,
		Description: description,
		Category:    normalize.DeriveCategory(tags, question),
		Image:       image,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: yes},
			{Name: "No", Price: 1 - yes},
		},
		Volume:            volume,
		Volume24h:         m.Volume24hr,
		Liquidity:         liquidity,
		EndDate:           endDate,
		Status:            status,
		CreatedAt:         created,
		URL:               "https://polymarket.com/event/" + slug,
		Tags:              tags,
		PulseIntensity:    normalize.PulseIntensity(yes),
		ShockwaveStrength: normalize.Shockwave(m.Volume24hr, volume),
	}
}

// parseTime parses an RFC3339 timestamp, returning nil on empty or malformed
// input.
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
