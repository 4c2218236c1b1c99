package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/feed"
)

// MarketsHandler serves the latest aggregated snapshot and the on-demand
// refresh trigger.
type MarketsHandler struct {
	poller *feed.Poller
	logger *slog.Logger
}

// NewMarketsHandler creates a MarketsHandler over the polling session.
func NewMarketsHandler(poller *feed.Poller, logger *slog.Logger) *MarketsHandler {
	return &MarketsHandler{poller: poller, logger: logHandler(logger, "markets")}
}

// ListMarkets responds with the last-known-good snapshot, optionally
// filtered by category and/or platform.
// GET /api/markets?category=crypto&platform=kalshi
func (h *MarketsHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.poller.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, domain.ErrNoSnapshot.Error())
		return
	}

	q := r.URL.Query()
	markets := snap.Markets

	if category := q.Get("category"); category != "" && category != "all" {
		markets = filterBy(markets, func(m *domain.Market) bool {
			return m.Category == category
		})
	}
	if platform := q.Get("platform"); platform != "" {
		p, valid := domain.ParsePlatform(platform)
		if !valid {
			writeError(w, http.StatusBadRequest, "unknown platform "+platform)
			return
		}
		markets = filterBy(markets, func(m *domain.Market) bool {
			return m.Platform == p
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"markets":   markets,
		"errors":    snap.Errors,
		"timestamp": snap.Timestamp,
		"count":     len(markets),
	})
}

// TriggerRefresh starts an aggregation cycle immediately and responds with
// its result. A cycle already in flight yields 409 with the current snapshot
// left untouched.
// POST /api/markets/refresh
func (h *MarketsHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.poller.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRefreshBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("on-demand refresh failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// filterBy returns the subset of markets matching keep, preserving order.
func filterBy(markets []domain.Market, keep func(*domain.Market) bool) []domain.Market {
	out := make([]domain.Market, 0, len(markets))
	for i := range markets {
		if keep(&markets[i]) {
			out = append(out, markets[i])
		}
	}
	return out
}
