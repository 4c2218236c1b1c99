// Package feed owns the polling session: the refresh loop driving the
// aggregator, the one-step shock tracker, and the last-known-good snapshot
// served to display collaborators.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marketpulse/marketpulse/internal/aggregator"
	"github.com/marketpulse/marketpulse/internal/domain"
)

// Broadcaster receives every completed snapshot, e.g. the WebSocket hub.
type Broadcaster interface {
	BroadcastSnapshot(result domain.FetchResult)
}

// Config holds poller parameters.
type Config struct {
	Interval  time.Duration     // refresh period
	Limit     int               // requested feed size before over-fetch
	Platforms []domain.Platform // empty means all registered
}

// DefaultConfig returns the defaults used by the serve mode.
func DefaultConfig() Config {
	return Config{
		Interval: 8 * time.Second,
		Limit:    40,
	}
}

// Poller triggers the aggregator immediately on start, on every interval
// tick, and on demand. It owns the current snapshot and the shock tracker's
// previous-snapshot state; both are swapped whole at the end of a cycle.
type Poller struct {
	cfg         Config
	agg         *aggregator.Aggregator
	tracker     *ShockTracker
	broadcaster Broadcaster
	logger      *slog.Logger

	busy atomic.Bool

	mu      sync.RWMutex
	current domain.FetchResult
	hasSnap bool
}

// New creates a Poller. broadcaster may be nil for headless use.
func New(cfg Config, agg *aggregator.Aggregator, broadcaster Broadcaster, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	return &Poller{
		cfg:         cfg,
		agg:         agg,
		tracker:     NewShockTracker(),
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "poller")),
	}
}

// Run refreshes once immediately, then on every tick until the context is
// cancelled. A tick that fires while a cycle is still running is skipped.
func (p *Poller) Run(ctx context.Context) error {
	if _, err := p.Refresh(ctx); err != nil {
		p.logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				if err == domain.ErrRefreshBusy {
					p.logger.Debug("tick skipped, refresh in progress")
					continue
				}
				p.logger.Warn("refresh failed, keeping last snapshot",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Refresh runs one aggregation cycle and returns the resulting snapshot. If
// a cycle is already running it returns the current snapshot along with
// ErrRefreshBusy. On a pipeline-level failure the last-known-good snapshot
// is retained and returned with the error.
func (p *Poller) Refresh(ctx context.Context) (domain.FetchResult, error) {
	if !p.busy.CompareAndSwap(false, true) {
		snap, _ := p.Snapshot()
		return snap, domain.ErrRefreshBusy
	}
	defer p.busy.Store(false)

	result, err := p.runCycle(ctx)
	if err != nil {
		snap, _ := p.Snapshot()
		return snap, err
	}

	p.mu.Lock()
	p.current = result
	p.hasSnap = true
	p.mu.Unlock()

	if p.broadcaster != nil {
		p.broadcaster.BroadcastSnapshot(result)
	}
	return result, nil
}

// runCycle executes the aggregator and the shock enhancement, converting any
// pipeline panic into an error so the loop never loses its displayed data.
func (p *Poller) runCycle(ctx context.Context) (result domain.FetchResult, err error) {
	cycle := uuid.NewString()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("feed: refresh cycle panic: %v", r)
		}
	}()

	result = p.agg.FetchAll(ctx, p.cfg.Limit, p.cfg.Platforms)
	result.Markets = p.tracker.Enhance(result.Markets)

	p.logger.Info("refresh cycle complete",
		slog.String("cycle_id", cycle),
		slog.Int("markets", len(result.Markets)),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Snapshot returns the last-known-good snapshot and whether one exists yet.
func (p *Poller) Snapshot() (domain.FetchResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.hasSnap
}
