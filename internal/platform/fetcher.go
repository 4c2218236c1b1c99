// Package platform defines the provider fetcher contract and the registry
// that maps platform keys to implementations.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
)

// Fetcher produces canonical markets for one provider. Implementations own
// their transport and pagination; on any non-success outcome they fail with
// an error message carrying the provider label (e.g. "Kalshi: 404") so the
// aggregator can attribute the failure.
type Fetcher interface {
	// Platform returns the provider key this fetcher serves.
	Platform() domain.Platform

	// Label is the human-readable provider name used in error messages.
	Label() string

	// Timeout is the deadline the aggregator applies around FetchMarkets.
	Timeout() time.Duration

	// FetchMarkets returns up to limit canonical markets.
	FetchMarkets(ctx context.Context, limit int) ([]domain.Market, error)
}

// Registry maps platform keys to their fetcher implementations.
type Registry struct {
	fetchers map[domain.Platform]Fetcher
	order    []domain.Platform
}

// NewRegistry creates an empty fetcher registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[domain.Platform]Fetcher)}
}

// Register adds a fetcher, keeping registration order for deterministic
// iteration. Registering the same platform twice is a wiring bug.
func (r *Registry) Register(f Fetcher) error {
	p := f.Platform()
	if _, ok := r.fetchers[p]; ok {
		return fmt.Errorf("platform: fetcher for %q already registered", p)
	}
	r.fetchers[p] = f
	r.order = append(r.order, p)
	return nil
}

// Get returns the fetcher for a platform key.
func (r *Registry) Get(p domain.Platform) (Fetcher, bool) {
	f, ok := r.fetchers[p]
	return f, ok
}

// Platforms returns the registered platform keys in registration order.
func (r *Registry) Platforms() []domain.Platform {
	out := make([]domain.Platform, len(r.order))
	copy(out, r.order)
	return out
}
