package opinion

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/normalize"
)

// flexString unmarshals from a JSON string or number. The Opinion API mixes
// both for IDs, prices, and monetary fields.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// APITopic is one Opinion market ("topic").
type APITopic struct {
	TopicID        flexString `json:"topicId"`
	Title          string     `json:"title"`
	TitleShort     string     `json:"titleShort"`
	Abstract       string     `json:"abstract"`
	Rules          string     `json:"rules"`
	Status         flexString `json:"status"`
	YesBuyPrice    flexString `json:"yesBuyPrice"`
	YesMarketPrice flexString `json:"yesMarketPrice"`
	Volume         flexString `json:"volume"`
	Volume24h      flexString `json:"volume24h"`
	YesLabel       string     `json:"yesLabel"`
	NoLabel        string     `json:"noLabel"`
	LabelName      []string   `json:"labelName"`
	CutoffTime     int64      `json:"cutoffTime"`
	CreateTime     int64      `json:"createTime"`
	ThumbnailURL   string     `json:"thumbnailUrl"`
}

// activated reports whether the topic carries status code 2 ("Activated"),
// which arrives as a number, a numeric string, or the spelled-out name.
func (t *APITopic) activated() bool {
	s := string(t.Status)
	return s == "2" || s == "Activated"
}

// decodeTopics handles the API's polymorphic response nesting. The body may
// be a bare array or wrap the list under result.list, data, or list; the
// shapes are tried in that priority order, falling through to nil.
func decodeTopics(body []byte) []APITopic {
	var bare []APITopic
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare
	}

	var envelope struct {
		Result struct {
			List []APITopic `json:"list"`
		} `json:"result"`
		Data []APITopic `json:"data"`
		List []APITopic `json:"list"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	switch {
	case len(envelope.Result.List) > 0:
		return envelope.Result.List
	case len(envelope.Data) > 0:
		return envelope.Data
	default:
		return envelope.List
	}
}

// parseMoney strips currency symbols and thousands separators before parsing,
// returning 0 on malformed input.
func parseMoney(s flexString) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(string(s))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// yesPrice prefers the buy price over the last market price, defaulting to
// even odds when both are missing or zero.
func (t *APITopic) yesPrice() float64 {
	if p := parseMoney(t.YesBuyPrice); p != 0 {
		return p
	}
	if p := parseMoney(t.YesMarketPrice); p != 0 {
		return p
	}
	return 0.5
}

// toDomainMarket normalizes one topic into the canonical shape.
func (t *APITopic) toDomainMarket() domain.Market {
	question := t.Title
	if question == "" {
		question = t.TitleShort
	}

	description := t.Abstract
	if description == "" {
		description = t.Rules
	}

	yes := t.yesPrice()
	volume := parseMoney(t.Volume)
	v24h := parseMoney(t.Volume24h)

	yesName := t.YesLabel
	if yesName == "" {
		yesName = "Yes"
	}
	noName := t.NoLabel
	if noName == "" {
		noName = "No"
	}

	var endDate *time.Time
	if t.CutoffTime > 0 {
		e := time.Unix(t.CutoffTime, 0).UTC()
		endDate = &e
	}

	created := time.Now().UTC()
	if t.CreateTime > 0 {
		created = time.Unix(t.CreateTime, 0).UTC()
	}

	return domain.Market{
		ID:          "opinion_" + string(t.TopicID),
		Platform:    domain.PlatformOpinion,
		Question:    question,
		Description: description,
		Category:    normalize.DeriveCategory(t.LabelName, t.Title),
		Image:       t.ThumbnailURL,
		Outcomes: []domain.Outcome{
			{Name: yesName, Price: yes},
			{Name: noName, Price: 1 - yes},
		},
		Volume:            volume,
		Volume24h:         v24h,
		EndDate:           endDate,
		Status:            domain.MarketStatusActive,
		CreatedAt:         created,
		URL:               "https://opinion.trade/topic/" + string(t.TopicID),
		Tags:              t.LabelName,
		PulseIntensity:    normalize.PulseIntensity(yes),
		ShockwaveStrength: normalize.Shockwave(v24h, volume),
	}
}
