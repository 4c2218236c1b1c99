package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/feed"
)

// HealthHandler serves liveness plus the per-provider health derived from
// the latest polling cycle's error list.
type HealthHandler struct {
	poller *feed.Poller
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler over the polling session.
func NewHealthHandler(poller *feed.Poller, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{poller: poller, logger: logHandler(logger, "health")}
}

// HealthCheck responds with overall status and one entry per provider: "ok",
// or the error message from the most recent cycle.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	providers := make(map[domain.Platform]string, len(domain.AllPlatforms))
	for _, p := range domain.AllPlatforms {
		providers[p] = "ok"
	}

	var lastUpdate *time.Time
	if snap, ok := h.poller.Snapshot(); ok {
		for _, fe := range snap.Errors {
			providers[fe.Platform] = fe.Error
		}
		lastUpdate = &snap.Timestamp
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"providers":   providers,
		"last_update": lastUpdate,
	})
}
