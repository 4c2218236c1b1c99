package handler

import (
	"net/http"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
)

// StatusHandler serves backend runtime metadata for the display front-end.
type StatusHandler struct {
	Mode      string
	Interval  time.Duration
	Limit     int
	Platforms []domain.Platform
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler with the given runtime settings.
func NewStatusHandler(mode string, interval time.Duration, limit int, platforms []domain.Platform) *StatusHandler {
	if len(platforms) == 0 {
		platforms = domain.AllPlatforms
	}
	return &StatusHandler{
		Mode:      mode,
		Interval:  interval,
		Limit:     limit,
		Platforms: platforms,
		StartedAt: time.Now().UTC(),
	}
}

// GetStatus responds with the current mode, refresh settings, and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":             h.Mode,
		"refresh_interval": h.Interval.String(),
		"limit":            h.Limit,
		"platforms":        h.Platforms,
		"uptime_seconds":   int64(time.Since(h.StartedAt).Seconds()),
	})
}
