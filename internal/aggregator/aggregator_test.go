package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/platform"
)

// stubFetcher is a scriptable platform.Fetcher for aggregator tests.
type stubFetcher struct {
	platform domain.Platform
	label    string
	timeout  time.Duration
	markets  []domain.Market
	err      error
	delay    time.Duration
	gotLimit int
}

func (s *stubFetcher) Platform() domain.Platform { return s.platform }
func (s *stubFetcher) Label() string             { return s.label }

func (s *stubFetcher) Timeout() time.Duration {
	if s.timeout == 0 {
		return time.Second
	}
	return s.timeout
}

func (s *stubFetcher) FetchMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	s.gotLimit = limit
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.markets, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mkMarket(id string, p domain.Platform, yes, volume float64) domain.Market {
	end := time.Now().Add(24 * time.Hour).UTC()
	return domain.Market{
		ID:       id,
		Platform: p,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: yes},
			{Name: "No", Price: 1 - yes},
		},
		Volume:  volume,
		EndDate: &end,
		Status:  domain.MarketStatusActive,
	}
}

func newTestAggregator(t *testing.T, fetchers ...platform.Fetcher) *Aggregator {
	t.Helper()
	reg := platform.NewRegistry()
	for _, f := range fetchers {
		if err := reg.Register(f); err != nil {
			t.Fatalf("register %s: %v", f.Label(), err)
		}
	}
	return New(reg, testLogger())
}

func TestFetchAllSettlesAllProviders(t *testing.T) {
	poly := &stubFetcher{
		platform: domain.PlatformPolymarket, label: "Polymarket",
		markets: []domain.Market{
			mkMarket("poly_1", domain.PlatformPolymarket, 0.6, 300),
			mkMarket("poly_2", domain.PlatformPolymarket, 0.4, 100),
		},
	}
	kalshi := &stubFetcher{
		platform: domain.PlatformKalshi, label: "Kalshi",
		err: errors.New("Kalshi: 500"),
	}
	opinion := &stubFetcher{
		platform: domain.PlatformOpinion, label: "Opinion",
		markets: []domain.Market{
			mkMarket("opinion_1", domain.PlatformOpinion, 0.5, 200),
		},
	}

	agg := newTestAggregator(t, poly, kalshi, opinion)
	result := agg.FetchAll(context.Background(), 40, nil)

	// One provider down: its markets are absent, the rest survive.
	if len(result.Markets) != 3 {
		t.Fatalf("got %d markets, want 3", len(result.Markets))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(result.Errors))
	}
	if result.Errors[0].Platform != domain.PlatformKalshi {
		t.Errorf("error attributed to %q, want kalshi", result.Errors[0].Platform)
	}
	if result.Errors[0].Error != "Kalshi: 500" {
		t.Errorf("error message = %q", result.Errors[0].Error)
	}

	// Volume-descending order across providers.
	wantOrder := []string{"poly_1", "opinion_1", "poly_2"}
	for i, want := range wantOrder {
		if result.Markets[i].ID != want {
			t.Errorf("markets[%d].ID = %q, want %q", i, result.Markets[i].ID, want)
		}
	}

	// Each provider was asked for three times the requested limit.
	if poly.gotLimit != 120 {
		t.Errorf("fetch limit = %d, want 120", poly.gotLimit)
	}
}

func TestFetchAllTotalOutage(t *testing.T) {
	agg := newTestAggregator(t,
		&stubFetcher{platform: domain.PlatformPolymarket, label: "Polymarket", err: errors.New("Polymarket: 502")},
		&stubFetcher{platform: domain.PlatformKalshi, label: "Kalshi", err: errors.New("Kalshi: 502")},
		&stubFetcher{platform: domain.PlatformOpinion, label: "Opinion", err: errors.New("Opinion: 502")},
	)

	result := agg.FetchAll(context.Background(), 40, nil)
	if len(result.Markets) != 0 {
		t.Errorf("got %d markets, want 0", len(result.Markets))
	}
	if len(result.Errors) != 3 {
		t.Errorf("got %d errors, want 3", len(result.Errors))
	}
	if result.Timestamp.IsZero() {
		t.Error("timestamp should be set even on total outage")
	}
}

func TestFetchAllTimeout(t *testing.T) {
	slow := &stubFetcher{
		platform: domain.PlatformKalshi, label: "Kalshi",
		timeout: 20 * time.Millisecond,
		delay:   time.Second,
		markets: []domain.Market{mkMarket("kalshi_1", domain.PlatformKalshi, 0.5, 10)},
	}
	agg := newTestAggregator(t, slow)

	start := time.Now()
	result := agg.FetchAll(context.Background(), 10, nil)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("FetchAll blocked %v, want return at fetcher deadline", elapsed)
	}

	if len(result.Markets) != 0 {
		t.Errorf("got %d markets, want 0 after timeout", len(result.Markets))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(result.Errors))
	}
	if result.Errors[0].Error != "Kalshi timed out" {
		t.Errorf("error = %q, want %q", result.Errors[0].Error, "Kalshi timed out")
	}
	if result.Errors[0].Platform != domain.PlatformKalshi {
		t.Errorf("timeout attributed to %q, want kalshi", result.Errors[0].Platform)
	}
}

func TestFetchAllPlatformSubset(t *testing.T) {
	poly := &stubFetcher{
		platform: domain.PlatformPolymarket, label: "Polymarket",
		markets: []domain.Market{mkMarket("poly_1", domain.PlatformPolymarket, 0.5, 10)},
	}
	kalshi := &stubFetcher{
		platform: domain.PlatformKalshi, label: "Kalshi",
		markets: []domain.Market{mkMarket("kalshi_1", domain.PlatformKalshi, 0.5, 20)},
	}
	agg := newTestAggregator(t, poly, kalshi)

	result := agg.FetchAll(context.Background(), 10, []domain.Platform{domain.PlatformKalshi})
	if len(result.Markets) != 1 || result.Markets[0].ID != "kalshi_1" {
		t.Fatalf("unexpected markets: %+v", result.Markets)
	}
	if poly.gotLimit != 0 {
		t.Error("polymarket fetcher should not have been called")
	}
}

func TestFilterMarkets(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	closed := mkMarket("closed", domain.PlatformKalshi, 0.5, 10)
	closed.Status = domain.MarketStatusClosed
	resolved := mkMarket("resolved", domain.PlatformKalshi, 0.5, 10)
	resolved.Status = domain.MarketStatusResolved
	expired := mkMarket("expired", domain.PlatformKalshi, 0.5, 10)
	expired.EndDate = &past
	noEnd := mkMarket("no-end", domain.PlatformKalshi, 0.5, 10)
	noEnd.EndDate = nil

	mk := func(id string, yes float64) domain.Market {
		m := mkMarket(id, domain.PlatformPolymarket, yes, 10)
		m.EndDate = &future
		return m
	}

	in := []domain.Market{
		mk("too-low", 0.05),
		mk("lower-bound", 0.10),
		mk("mid", 0.50),
		mk("upper-bound", 0.90),
		mk("too-high", 0.95),
		closed,
		resolved,
		expired,
		noEnd,
	}

	got := filterMarkets(in, now)
	want := map[string]bool{
		"lower-bound": true,
		"mid":         true,
		"upper-bound": true,
		"no-end":      true,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d markets, want %d: %+v", len(got), len(want), got)
	}
	for _, m := range got {
		if !want[m.ID] {
			t.Errorf("market %q should have been filtered out", m.ID)
		}
	}
}

func TestSortIsStableOnEqualVolume(t *testing.T) {
	poly := &stubFetcher{
		platform: domain.PlatformPolymarket, label: "Polymarket",
		markets: []domain.Market{
			mkMarket("a", domain.PlatformPolymarket, 0.5, 100),
			mkMarket("b", domain.PlatformPolymarket, 0.5, 100),
			mkMarket("c", domain.PlatformPolymarket, 0.5, 100),
		},
	}
	agg := newTestAggregator(t, poly)

	result := agg.FetchAll(context.Background(), 10, nil)
	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if result.Markets[i].ID != want {
			t.Errorf("markets[%d].ID = %q, want %q (stable order)", i, result.Markets[i].ID, want)
		}
	}
}

func TestAttributePlatform(t *testing.T) {
	tests := []struct {
		msg  string
		want domain.Platform
	}{
		{"Kalshi: 500", domain.PlatformKalshi},
		{"Opinion timed out", domain.PlatformOpinion},
		{"Polymarket: decode events: unexpected EOF", domain.PlatformPolymarket},
		{"connection refused", domain.PlatformPolymarket},
	}
	for _, tt := range tests {
		if got := attributePlatform(tt.msg); got != tt.want {
			t.Errorf("attributePlatform(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}
