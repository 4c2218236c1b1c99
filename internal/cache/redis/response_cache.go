package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marketpulse/marketpulse/internal/domain"
)

// ResponseCache implements domain.ResponseCache on Redis. Entries carry a
// freshness horizon inside the value and expire from Redis after
// fresh+stale, giving the proxy handlers a stale-while-revalidate window.
//
// Key schema:
//
//	proxy:{provider}:{endpoint}?{query} - JSON CachedResponse
type ResponseCache struct {
	rdb *redis.Client
}

// NewResponseCache creates a ResponseCache backed by the given Client.
func NewResponseCache(c *Client) *ResponseCache {
	return &ResponseCache{rdb: c.Underlying()}
}

// Get retrieves a cached upstream body. It returns domain.ErrNotFound when
// the key is absent or has passed its stale expiry.
func (rc *ResponseCache) Get(ctx context.Context, key string) (domain.CachedResponse, error) {
	data, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CachedResponse{}, domain.ErrNotFound
		}
		return domain.CachedResponse{}, fmt.Errorf("redis: get response %s: %w", key, err)
	}

	var resp domain.CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.CachedResponse{}, fmt.Errorf("redis: unmarshal response %s: %w", key, err)
	}
	return resp, nil
}

// Set stores an upstream body, fresh for the fresh window and kept for
// fresh+stale in total.
func (rc *ResponseCache) Set(ctx context.Context, key string, body []byte, fresh, stale time.Duration) error {
	resp := domain.CachedResponse{
		Body:       body,
		FreshUntil: time.Now().UTC().Add(fresh),
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis: marshal response %s: %w", key, err)
	}

	if err := rc.rdb.Set(ctx, key, data, fresh+stale).Err(); err != nil {
		return fmt.Errorf("redis: set response %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ResponseCache = (*ResponseCache)(nil)
