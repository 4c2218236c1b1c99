package domain

import (
	"context"
	"time"
)

// CachedResponse is an upstream JSON body held by the proxy cache.
type CachedResponse struct {
	Body       []byte    `json:"body"`
	FreshUntil time.Time `json:"freshUntil"`
}

// Fresh reports whether the entry is still inside its freshness horizon.
// Stale entries may still be served while a background revalidation runs.
func (r *CachedResponse) Fresh(now time.Time) bool {
	return now.Before(r.FreshUntil)
}

// ResponseCache stores upstream proxy responses. Implementations keep an
// entry alive for fresh+stale, after which it expires outright.
// Get returns ErrNotFound when the key is absent or expired.
type ResponseCache interface {
	Get(ctx context.Context, key string) (CachedResponse, error)
	Set(ctx context.Context, key string, body []byte, fresh, stale time.Duration) error
}
