package normalize

import (
	"math"
	"testing"
)

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name  string
		tags  []string
		title string
		want  string
	}{
		{"politics from title", nil, "Will Trump win the election?", "politics"},
		{"crypto from tag", []string{"Bitcoin"}, "Price above 100k?", "crypto"},
		{"sports", []string{"NBA"}, "Lakers to win?", "sports"},
		{"macro", nil, "Fed rate cut in March?", "macro"},
		{"geopolitics", nil, "Russia ceasefire this year?", "geopolitics"},
		{"tech", nil, "Tesla robotaxi launch?", "tech"},
		{"crypto beats tech on priority", nil, "OpenAI launches a blockchain token", "crypto"},
		{"politics beats crypto on priority", []string{"crypto"}, "Election night bitcoin rally", "politics"},
		{"no match falls back to culture", []string{"music"}, "Album of the year?", "culture"},
		{"case insensitive", nil, "BITCOIN ETF APPROVAL", "crypto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveCategory(tt.tags, tt.title); got != tt.want {
				t.Errorf("DeriveCategory(%v, %q) = %q, want %q", tt.tags, tt.title, got, tt.want)
			}
		})
	}
}

func TestPulseIntensity(t *testing.T) {
	tests := []struct {
		price float64
		want  float64
	}{
		{0.5, 0},
		{0.0, 1},
		{1.0, 1},
		{0.75, 0.5},
		{0.25, 0.5},
		{0.6, 0.2},
	}

	for _, tt := range tests {
		got := PulseIntensity(tt.price)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PulseIntensity(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestPulseIntensitySymmetry(t *testing.T) {
	for _, d := range []float64{0.05, 0.1, 0.25, 0.4, 0.5} {
		lo, hi := PulseIntensity(0.5-d), PulseIntensity(0.5+d)
		if math.Abs(lo-hi) > 1e-9 {
			t.Errorf("PulseIntensity not symmetric at d=%v: %v vs %v", d, lo, hi)
		}
	}
}

func TestShockwave(t *testing.T) {
	tests := []struct {
		name       string
		v24h, vTot float64
		want       float64
	}{
		{"zero 24h volume", 0, 1000, 0},
		{"zero total volume", 500, 0, 0},
		{"ten percent ratio scales to 1", 100, 1000, 1},
		{"small ratio", 10, 1000, 0.1},
		{"large ratio capped at 1", 900, 1000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shockwave(tt.v24h, tt.vTot)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Shockwave(%v, %v) = %v, want %v", tt.v24h, tt.vTot, got, tt.want)
			}
			if got > 1 {
				t.Errorf("Shockwave(%v, %v) = %v exceeds 1", tt.v24h, tt.vTot, got)
			}
		})
	}
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{1_500_000, "$1.5M"},
		{1_000_000, "$1.0M"},
		{2_000, "$2K"},
		{999_999, "$1000K"},
		{500, "$500"},
		{0, "$0"},
	}

	for _, tt := range tests {
		if got := FormatVolume(tt.v); got != tt.want {
			t.Errorf("FormatVolume(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
