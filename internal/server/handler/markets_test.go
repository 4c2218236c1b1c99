package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marketpulse/marketpulse/internal/aggregator"
	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/feed"
	"github.com/marketpulse/marketpulse/internal/platform"
)

// cannedFetcher serves a fixed market list for handler tests.
type cannedFetcher struct {
	markets []domain.Market
}

func (f *cannedFetcher) Platform() domain.Platform { return domain.PlatformPolymarket }
func (f *cannedFetcher) Label() string             { return "Polymarket" }
func (f *cannedFetcher) Timeout() time.Duration    { return time.Second }

func (f *cannedFetcher) FetchMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	return f.markets, nil
}

func cannedMarket(id string, p domain.Platform, category string, volume float64) domain.Market {
	end := time.Now().Add(24 * time.Hour).UTC()
	return domain.Market{
		ID:       id,
		Platform: p,
		Category: category,
		Outcomes: []domain.Outcome{
			{Name: "Yes", Price: 0.5},
			{Name: "No", Price: 0.5},
		},
		Volume:  volume,
		EndDate: &end,
		Status:  domain.MarketStatusActive,
	}
}

func newSnapshotPoller(t *testing.T, markets []domain.Market) *feed.Poller {
	t.Helper()
	reg := platform.NewRegistry()
	if err := reg.Register(&cannedFetcher{markets: markets}); err != nil {
		t.Fatalf("register fetcher: %v", err)
	}
	logger := discardLogger()
	p := feed.New(feed.Config{Interval: time.Hour, Limit: 10}, aggregator.New(reg, logger), nil, logger)
	if _, err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}
	return p
}

type marketsResponse struct {
	Markets []domain.Market     `json:"markets"`
	Errors  []domain.FetchError `json:"errors"`
	Count   int                 `json:"count"`
}

func TestListMarketsWithoutSnapshot(t *testing.T) {
	reg := platform.NewRegistry()
	logger := discardLogger()
	p := feed.New(feed.Config{Interval: time.Hour, Limit: 10}, aggregator.New(reg, logger), nil, logger)
	h := NewMarketsHandler(p, logger)

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 before first snapshot", rec.Code)
	}
}

func TestListMarketsFilters(t *testing.T) {
	p := newSnapshotPoller(t, []domain.Market{
		cannedMarket("m1", domain.PlatformPolymarket, "crypto", 300),
		cannedMarket("m2", domain.PlatformKalshi, "politics", 200),
		cannedMarket("m3", domain.PlatformKalshi, "crypto", 100),
	})
	h := NewMarketsHandler(p, discardLogger())

	tests := []struct {
		name    string
		url     string
		wantIDs []string
	}{
		{"all", "/api/markets", []string{"m1", "m2", "m3"}},
		{"category all passthrough", "/api/markets?category=all", []string{"m1", "m2", "m3"}},
		{"by category", "/api/markets?category=crypto", []string{"m1", "m3"}},
		{"by platform", "/api/markets?platform=kalshi", []string{"m2", "m3"}},
		{"combined", "/api/markets?category=crypto&platform=kalshi", []string{"m3"}},
		{"no matches", "/api/markets?category=sports", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			var resp marketsResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Count != len(tt.wantIDs) {
				t.Errorf("count = %d, want %d", resp.Count, len(tt.wantIDs))
			}
			if len(resp.Markets) != len(tt.wantIDs) {
				t.Fatalf("got %d markets, want %d", len(resp.Markets), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if resp.Markets[i].ID != want {
					t.Errorf("markets[%d].ID = %q, want %q", i, resp.Markets[i].ID, want)
				}
			}
		})
	}
}

func TestListMarketsUnknownPlatform(t *testing.T) {
	p := newSnapshotPoller(t, []domain.Market{
		cannedMarket("m1", domain.PlatformPolymarket, "crypto", 100),
	})
	h := NewMarketsHandler(p, discardLogger())

	rec := httptest.NewRecorder()
	h.ListMarkets(rec, httptest.NewRequest(http.MethodGet, "/api/markets?platform=nyse", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown platform", rec.Code)
	}
}

func TestTriggerRefresh(t *testing.T) {
	p := newSnapshotPoller(t, []domain.Market{
		cannedMarket("m1", domain.PlatformPolymarket, "crypto", 100),
	})
	h := NewMarketsHandler(p, discardLogger())

	rec := httptest.NewRecorder()
	h.TriggerRefresh(rec, httptest.NewRequest(http.MethodPost, "/api/markets/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result domain.FetchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode refresh result: %v", err)
	}
	if len(result.Markets) != 1 {
		t.Errorf("got %d markets, want 1", len(result.Markets))
	}
}

func TestHealthCheckReportsProviderErrors(t *testing.T) {
	reg := platform.NewRegistry()
	logger := discardLogger()
	if err := reg.Register(&cannedFetcher{markets: []domain.Market{
		cannedMarket("m1", domain.PlatformPolymarket, "crypto", 100),
	}}); err != nil {
		t.Fatalf("register fetcher: %v", err)
	}
	p := feed.New(feed.Config{Interval: time.Hour, Limit: 10}, aggregator.New(reg, logger), nil, logger)
	if _, err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	h := NewHealthHandler(p, logger)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Status     string            `json:"status"`
		Providers  map[string]string `json:"providers"`
		LastUpdate *time.Time        `json:"last_update"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	// Every platform gets an entry even when it was not part of the cycle.
	for _, p := range []string{"polymarket", "kalshi", "opinion"} {
		if resp.Providers[p] != "ok" {
			t.Errorf("providers[%s] = %q, want ok", p, resp.Providers[p])
		}
	}
	if resp.LastUpdate == nil {
		t.Error("last_update should be set after a refresh")
	}
}

func TestGetStatus(t *testing.T) {
	h := NewStatusHandler("serve", 8*time.Second, 40, nil)
	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Mode            string   `json:"mode"`
		RefreshInterval string   `json:"refresh_interval"`
		Limit           int      `json:"limit"`
		Platforms       []string `json:"platforms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if resp.Mode != "serve" || resp.RefreshInterval != "8s" || resp.Limit != 40 {
		t.Errorf("unexpected status payload: %+v", resp)
	}
	if len(resp.Platforms) != 3 {
		t.Errorf("got %d platforms, want all 3 by default", len(resp.Platforms))
	}
}
