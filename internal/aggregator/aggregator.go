// Package aggregator runs every enabled provider fetcher concurrently,
// tolerates per-provider failure, and merges the results into one filtered,
// volume-sorted snapshot.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/platform"
)

const (
	// overFetchFactor asks each provider for more records than the caller
	// wants, compensating for the extreme-probability filter below.
	overFetchFactor = 3

	// Markets whose lead price sits outside [minYesPrice, maxYesPrice]
	// are near-consensus and dropped from the live feed.
	minYesPrice = 0.10
	maxYesPrice = 0.90
)

// Aggregator fans a fetch out to every requested provider and settles all
// outcomes before returning. It never fails: a total provider outage yields
// an empty market set plus one error entry per provider.
type Aggregator struct {
	registry *platform.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Aggregator over the given fetcher registry.
func New(registry *platform.Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		logger:   logger.With(slog.String("component", "aggregator")),
		now:      time.Now,
	}
}

// fetchOutcome is one provider's settled result.
type fetchOutcome struct {
	markets []domain.Market
	err     error
}

// FetchAll fetches limit*overFetchFactor raw markets from each requested
// platform (all registered platforms when the slice is empty), each bounded
// by the fetcher's own timeout. Providers settle independently; failures
// become error entries instead of aborting the cycle.
func (a *Aggregator) FetchAll(ctx context.Context, limit int, platforms []domain.Platform) domain.FetchResult {
	if len(platforms) == 0 {
		platforms = a.registry.Platforms()
	}

	fetchers := make([]platform.Fetcher, 0, len(platforms))
	for _, p := range platforms {
		f, ok := a.registry.Get(p)
		if !ok {
			continue
		}
		fetchers = append(fetchers, f)
	}

	outcomes := make([]fetchOutcome, len(fetchers))
	done := make(chan int, len(fetchers))
	for i, f := range fetchers {
		i, f := i, f
		go func() {
			markets, err := fetchWithTimeout(ctx, f, limit*overFetchFactor)
			outcomes[i] = fetchOutcome{markets: markets, err: err}
			done <- i
		}()
	}
	for range fetchers {
		<-done
	}

	var (
		all  []domain.Market
		errs []domain.FetchError
	)
	for i, out := range outcomes {
		if out.err != nil {
			msg := out.err.Error()
			errs = append(errs, domain.FetchError{
				Platform: attributePlatform(msg),
				Error:    msg,
			})
			a.logger.Warn("provider fetch failed",
				slog.String("platform", string(fetchers[i].Platform())),
				slog.String("error", msg),
			)
			continue
		}
		all = append(all, out.markets...)
	}

	now := a.now().UTC()
	filtered := filterMarkets(all, now)

	// Stable sort keeps provider fetch order for equal volumes.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Volume > filtered[j].Volume
	})

	return domain.FetchResult{
		Markets:   filtered,
		Errors:    errs,
		Timestamp: now,
	}
}

// fetchWithTimeout races a fetch against the fetcher's deadline. On expiry
// the result is abandoned, not cancelled: the underlying request may still
// complete, its outcome discarded.
func fetchWithTimeout(ctx context.Context, f platform.Fetcher, limit int) ([]domain.Market, error) {
	type result struct {
		markets []domain.Market
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		markets, err := f.FetchMarkets(ctx, limit)
		ch <- result{markets: markets, err: err}
	}()

	timer := time.NewTimer(f.Timeout())
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.markets, r.err
	case <-timer.C:
		return nil, fmt.Errorf("%s timed out", f.Label())
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", f.Label(), ctx.Err())
	}
}

// filterMarkets drops near-consensus, closed/resolved, and already-expired
// markets. Both price boundaries are inclusive.
func filterMarkets(markets []domain.Market, now time.Time) []domain.Market {
	filtered := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		yes := m.YesPrice()
		if yes < minYesPrice || yes > maxYesPrice {
			continue
		}
		if m.Status == domain.MarketStatusClosed || m.Status == domain.MarketStatusResolved {
			continue
		}
		if m.EndDate != nil && m.EndDate.Before(now) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

// attributePlatform maps an error message back to a platform by looking for
// the provider label as a substring, defaulting to polymarket when no label
// is present.
func attributePlatform(msg string) domain.Platform {
	switch {
	case strings.Contains(msg, "Polymarket"):
		return domain.PlatformPolymarket
	case strings.Contains(msg, "Kalshi"):
		return domain.PlatformKalshi
	case strings.Contains(msg, "Opinion"):
		return domain.PlatformOpinion
	default:
		return domain.PlatformPolymarket
	}
}
