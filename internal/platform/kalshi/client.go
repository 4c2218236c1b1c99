// Package kalshi fetches markets from the Kalshi events API via cursor
// pagination and normalizes them into the canonical feed shape.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/platform"
)

const (
	label = "Kalshi"

	// pageSize is the per-request event count; pagination walks the cursor
	// until ceil(limit/pageSize) pages or the cursor runs out.
	pageSize = 100

	fetchTimeout = 20 * time.Second
)

// Client fetches open Kalshi events with nested markets. The market-data
// endpoints are public, so requests are unsigned.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Kalshi fetcher.
//
// baseURL is the trade API root, e.g.
// "https://api.elections.kalshi.com/trade-api/v2".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform implements platform.Fetcher.
func (c *Client) Platform() domain.Platform { return domain.PlatformKalshi }

// Label implements platform.Fetcher.
func (c *Client) Label() string { return label }

// Timeout implements platform.Fetcher.
func (c *Client) Timeout() time.Duration { return fetchTimeout }

// FetchMarkets walks cursor pages of open events, flattening nested markets,
// and truncates the result to exactly limit entries. It stops early when a
// page returns no next cursor or enough markets have accumulated.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	maxPages := (limit + pageSize - 1) / pageSize
	if maxPages < 1 {
		maxPages = 1
	}

	var markets []domain.Market
	cursor := ""

	for page := 0; page < maxPages; page++ {
		resp, err := c.getEvents(ctx, cursor)
		if err != nil {
			return nil, err
		}

		for i := range resp.Events {
			e := &resp.Events[i]
			for j := range e.Markets {
				markets = append(markets, e.Markets[j].toDomainMarket(e))
			}
		}

		cursor = resp.Cursor
		if cursor == "" || len(markets) >= limit {
			break
		}
	}

	if len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

// getEvents fetches one page of open events with nested markets.
func (c *Client) getEvents(ctx context.Context, cursor string) (*APIEventsResponse, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("status", "open")
	params.Set("with_nested_markets", "true")
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", label, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %d", label, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", label, err)
	}

	var out APIEventsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%s: decode events: %w", label, err)
	}
	return &out, nil
}

// Compile-time interface check.
var _ platform.Fetcher = (*Client)(nil)
