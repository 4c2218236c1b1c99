// Package polymarket fetches markets from the Polymarket Gamma events API
// and normalizes them into the canonical feed shape.
package polymarket

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
	// label prefixes every error so the aggregator can attribute failures.
	label = "Polymarket"

	// maxMarketsPerEvent caps how many sub-markets one event contributes,
	// so a single large event cannot flood the feed.
	maxMarketsPerEvent = 2

	fetchTimeout = 15 * time.Second
)

// Client fetches events from the Gamma API in a single page per request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Polymarket fetcher.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform implements platform.Fetcher.
func (c *Client) Platform() domain.Platform { return domain.PlatformPolymarket }

// Label implements platform.Fetcher.
func (c *Client) Label() string { return label }

// Timeout implements platform.Fetcher.
func (c *Client) Timeout() time.Duration { return fetchTimeout }

// FetchMarkets requests the limit most-traded open events and flattens them
// into canonical markets, keeping at most two sub-markets per event.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volume")
	params.Set("ascending", "false")

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

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%s: decode events: %w", label, err)
	}

	var markets []domain.Market
	for i := range events {
		e := &events[i]
		top := e.Markets
		if len(top) > maxMarketsPerEvent {
			top = top[:maxMarketsPerEvent]
		}
		for j := range top {
			markets = append(markets, top[j].toDomainMarket(e))
		}
	}
	return markets, nil
}

// Compile-time interface check.
var _ platform.Fetcher = (*Client)(nil)
