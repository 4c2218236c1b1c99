package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marketpulse/marketpulse/internal/domain"
)

// ProxyTarget describes one upstream API the proxy handler passes through
// to. Endpoints outside the public and auth sets are rejected.
type ProxyTarget struct {
	Name            string        // provider key, used in cache keys and logs
	BaseURL         string        // upstream root without trailing slash
	AuthBaseURL     string        // upstream root for auth endpoints; BaseURL when empty
	DefaultEndpoint string        // used when the endpoint param is absent
	PublicEndpoints []string      // allowed without credentials
	AuthEndpoints   []string      // require APIKey, sent in AuthHeader
	APIKey          string        // server-held credential, never exposed to callers
	AuthHeader      string        // header name carrying APIKey
	FreshTTL        time.Duration // window during which a cached body is served as-is
	StaleTTL        time.Duration // extra window where a stale body is served while revalidating
}

// ProxyHandler is a thin allow-listed pass-through to one upstream API with
// response caching and a stale-while-revalidate window.
type ProxyHandler struct {
	target     ProxyTarget
	cache      domain.ResponseCache // nil disables caching
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProxyHandler creates a ProxyHandler for the given target.
func NewProxyHandler(target ProxyTarget, cache domain.ResponseCache, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		target: target,
		cache:  cache,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logHandler(logger, "proxy_"+target.Name),
	}
}

// Proxy validates the endpoint parameter, forwards every other query
// parameter verbatim to the upstream, and returns the upstream JSON body.
// Upstream 2xx bodies are cached; failures pass through uncached as
// {"error": ...} with the upstream (or 500) status code.
// GET /api/proxy/{provider}?endpoint=<name>&<other params>
func (h *ProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		endpoint = h.target.DefaultEndpoint
	}

	isPublic := endpointAllowed(endpoint, h.target.PublicEndpoints)
	isAuth := endpointAllowed(endpoint, h.target.AuthEndpoints)

	if strings.Contains(endpoint, "..") || (!isPublic && !isAuth) {
		writeError(w, http.StatusBadRequest, "invalid endpoint")
		return
	}
	if isAuth && !isPublic && h.target.APIKey == "" {
		writeError(w, http.StatusUnauthorized, h.target.Name+" API key not configured")
		return
	}

	// Forward everything except the endpoint selector.
	params := url.Values{}
	for key, values := range r.URL.Query() {
		if key == "endpoint" {
			continue
		}
		for _, v := range values {
			params.Add(key, v)
		}
	}

	cacheKey := fmt.Sprintf("proxy:%s:%s?%s", h.target.Name, endpoint, params.Encode())

	if h.cache != nil {
		entry, err := h.cache.Get(r.Context(), cacheKey)
		if err == nil {
			if entry.Fresh(time.Now().UTC()) {
				h.serve(w, entry.Body, "HIT")
				return
			}
			// Stale: serve immediately and revalidate in the background.
			go h.revalidate(cacheKey, endpoint, isAuth, params)
			h.serve(w, entry.Body, "STALE")
			return
		}
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("cache lookup failed", slog.String("error", err.Error()))
		}
	}

	body, status, err := h.fetchUpstream(r.Context(), endpoint, isAuth, params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if status < 200 || status > 299 {
		writeError(w, status, fmt.Sprintf("Upstream %d", status))
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, body, h.target.FreshTTL, h.target.StaleTTL); err != nil {
			h.logger.Warn("cache store failed", slog.String("error", err.Error()))
		}
	}
	h.serve(w, body, "MISS")
}

// serve writes a cached or freshly fetched upstream body verbatim.
func (h *ProxyHandler) serve(w http.ResponseWriter, body []byte, cacheState string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", cacheState)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d",
		int(h.target.FreshTTL.Seconds()), int(h.target.StaleTTL.Seconds())))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// revalidate refreshes a stale cache entry in the background. Failures leave
// the stale entry in place until its hard expiry.
func (h *ProxyHandler) revalidate(cacheKey, endpoint string, isAuth bool, params url.Values) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, status, err := h.fetchUpstream(ctx, endpoint, isAuth, params)
	if err != nil || status < 200 || status > 299 {
		h.logger.Debug("background revalidation failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", status),
		)
		return
	}
	if err := h.cache.Set(ctx, cacheKey, body, h.target.FreshTTL, h.target.StaleTTL); err != nil {
		h.logger.Warn("cache store failed", slog.String("error", err.Error()))
	}
}

// fetchUpstream performs the pass-through request and returns the raw body
// and status code.
func (h *ProxyHandler) fetchUpstream(ctx context.Context, endpoint string, isAuth bool, params url.Values) ([]byte, int, error) {
	base := h.target.BaseURL
	if isAuth && h.target.AuthBaseURL != "" {
		base = h.target.AuthBaseURL
	}

	u := base + "/" + endpoint
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("proxy %s: create request: %w", h.target.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	if isAuth && h.target.APIKey != "" {
		req.Header.Set(h.target.AuthHeader, h.target.APIKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("proxy %s: %w", h.target.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("proxy %s: read response: %w", h.target.Name, err)
	}
	return body, resp.StatusCode, nil
}

// endpointAllowed reports whether endpoint is one of the allowed names or a
// sub-path of one (e.g. "events/EVT-1" under "events").
func endpointAllowed(endpoint string, allowed []string) bool {
	for _, a := range allowed {
		if endpoint == a || strings.HasPrefix(endpoint, a+"/") {
			return true
		}
	}
	return false
}
