// Package normalize holds the pure derivation helpers shared by every
// provider fetcher: category inference from free text, the pulse/shockwave
// display signals, and volume formatting.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// categoryRule pairs a category with the keyword pattern that selects it.
type categoryRule struct {
	category string
	pattern  *regexp.Regexp
}

// categoryRules are tested in order; the first match wins, so a title hitting
// both the crypto and tech patterns resolves to crypto.
var categoryRules = []categoryRule{
	{"politics", regexp.MustCompile(`politic|election|president|trump|biden|vote|congress|senate`)},
	{"crypto", regexp.MustCompile(`crypto|bitcoin|btc|eth|solana|defi|token|blockchain`)},
	{"sports", regexp.MustCompile(`sport|nba|nfl|soccer|football|tennis|ufc|match`)},
	{"macro", regexp.MustCompile(`fed|rate|gdp|inflation|cpi|recession|economy|stock|s&p`)},
	{"geopolitics", regexp.MustCompile(`war|russia|china|iran|nato|geopolit|military|taiwan`)},
	{"tech", regexp.MustCompile(`ai|tech|apple|google|openai|spacex|tesla`)},
}

// DefaultCategory is assigned when no keyword rule matches.
const DefaultCategory = "culture"

// Categories lists every category a market can carry, in rule order.
var Categories = []string{"politics", "crypto", "sports", "macro", "geopolitics", "tech", DefaultCategory}

// DeriveCategory infers a category from a market's tags and title by matching
// their lower-cased concatenation against the keyword rules.
func DeriveCategory(tags []string, title string) string {
	parts := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		parts = append(parts, strings.ToLower(t))
	}
	parts = append(parts, strings.ToLower(title))
	text := strings.Join(parts, " ")

	for _, rule := range categoryRules {
		if rule.pattern.MatchString(text) {
			return rule.category
		}
	}
	return DefaultCategory
}

// PulseIntensity maps a lead-outcome price to a confidence signal: 0 at even
// odds, 1 at either extreme. Callers clamp price to [0,1] before calling.
func PulseIntensity(price float64) float64 {
	return math.Abs(price-0.5) * 2
}

// Shockwave derives a volume-spike signal from the 24h/total volume ratio,
// scaled by 10 and capped at 1. Zero when either volume is missing.
func Shockwave(volume24h, totalVolume float64) float64 {
	if volume24h == 0 || totalVolume == 0 {
		return 0
	}
	return math.Min(volume24h/totalVolume*10, 1)
}

// FormatVolume renders a dollar volume for display: $1.5M above a million,
// $2K above a thousand, $500 below.
func FormatVolume(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.0fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}
