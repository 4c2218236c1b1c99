// Package opinion fetches markets ("topics") from the Opinion API and
// normalizes them into the canonical feed shape. Pages are requested
// concurrently and individual page failures are tolerated.
package opinion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/platform"
)

const (
	label = "Opinion"

	// pageSize is fixed by the topic endpoint; up to maxConcurrentPages
	// page requests are issued at once.
	pageSize           = 20
	maxConcurrentPages = 5

	fetchTimeout = 20 * time.Second
)

// Client fetches topics from the Opinion public API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an Opinion fetcher.
//
// baseURL is the public API root, e.g.
// "https://proxy.opinion.trade:8443/api/bsc/api/v2".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform implements platform.Fetcher.
func (c *Client) Platform() domain.Platform { return domain.PlatformOpinion }

// Label implements platform.Fetcher.
func (c *Client) Label() string { return label }

// Timeout implements platform.Fetcher.
func (c *Client) Timeout() time.Duration { return fetchTimeout }

// FetchMarkets issues up to five page requests concurrently and merges the
// activated topics in page order. A failed page contributes zero records
// rather than failing the whole fetch, so a partial result is still a
// success.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	pages := (limit + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	if pages > maxConcurrentPages {
		pages = maxConcurrentPages
	}

	perPage := make([][]domain.Market, pages)

	var g errgroup.Group
	for i := 0; i < pages; i++ {
		i := i
		g.Go(func() error {
			topics, err := c.getTopicPage(ctx, i+1)
			if err != nil {
				// Tolerated: the page simply contributes nothing.
				return nil
			}
			markets := make([]domain.Market, 0, len(topics))
			for j := range topics {
				if !topics[j].activated() {
					continue
				}
				markets = append(markets, topics[j].toDomainMarket())
			}
			perPage[i] = markets
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}

	var markets []domain.Market
	for _, page := range perPage {
		markets = append(markets, page...)
	}
	if len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

// getTopicPage fetches one page of volume-sorted active topics.
func (c *Client) getTopicPage(ctx context.Context, page int) ([]APITopic, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("sortBy", "1") // volume
	params.Set("status", "2") // active

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/topic?"+params.Encode(), nil)
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

	return decodeTopics(body), nil
}

// Compile-time interface check.
var _ platform.Fetcher = (*Client)(nil)
