package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/marketpulse/marketpulse/internal/aggregator"
	redisc "github.com/marketpulse/marketpulse/internal/cache/redis"
	"github.com/marketpulse/marketpulse/internal/config"
	"github.com/marketpulse/marketpulse/internal/domain"
	"github.com/marketpulse/marketpulse/internal/feed"
	"github.com/marketpulse/marketpulse/internal/platform"
	"github.com/marketpulse/marketpulse/internal/platform/kalshi"
	"github.com/marketpulse/marketpulse/internal/platform/opinion"
	"github.com/marketpulse/marketpulse/internal/platform/polymarket"
	"github.com/marketpulse/marketpulse/internal/server"
	"github.com/marketpulse/marketpulse/internal/server/handler"
	"github.com/marketpulse/marketpulse/internal/server/ws"
)

// Deps carries every wired dependency the operating modes need.
type Deps struct {
	Registry   *platform.Registry
	Aggregator *aggregator.Aggregator
	Poller     *feed.Poller
	Hub        *ws.Hub
	Server     *server.Server
	Cache      domain.ResponseCache // nil when Redis is not configured
}

// Wire builds the full dependency graph from the configuration. The returned
// cleanup function closes owned resources and must be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Provider fetchers and registry.
	registry := platform.NewRegistry()
	for _, f := range []platform.Fetcher{
		polymarket.NewClient(cfg.Polymarket.GammaHost),
		kalshi.NewClient(cfg.Kalshi.BaseURL),
		opinion.NewClient(cfg.Opinion.BaseURL),
	} {
		if err := registry.Register(f); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	agg := aggregator.New(registry, logger)

	// WebSocket hub (only used by serve mode, harmless otherwise).
	hub := ws.NewHub(logger)

	poller := feed.New(feed.Config{
		Interval:  cfg.Feed.RefreshInterval.Duration,
		Limit:     cfg.Feed.Limit,
		Platforms: cfg.FeedPlatforms(),
	}, agg, hub, logger)

	// Proxy response cache; an empty Redis addr disables caching.
	var cache domain.ResponseCache
	if cfg.Redis.Addr != "" {
		client, err := redisc.New(ctx, redisc.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			logger.Warn("redis unavailable, proxy caching disabled",
				slog.String("error", err.Error()),
			)
		} else {
			closers = append(closers, func() { _ = client.Close() })
			cache = redisc.NewResponseCache(client)
		}
	}

	srv := buildServer(cfg, poller, hub, cache, logger)

	return &Deps{
		Registry:   registry,
		Aggregator: agg,
		Poller:     poller,
		Hub:        hub,
		Server:     srv,
		Cache:      cache,
	}, cleanup, nil
}

// buildServer assembles the HTTP handlers and proxy targets.
func buildServer(cfg *config.Config, poller *feed.Poller, hub *ws.Hub, cache domain.ResponseCache, logger *slog.Logger) *server.Server {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(poller, logger),
		Status: handler.NewStatusHandler(
			cfg.Mode,
			cfg.Feed.RefreshInterval.Duration,
			cfg.Feed.Limit,
			cfg.FeedPlatforms(),
		),
		Markets: handler.NewMarketsHandler(poller, logger),
		ProxyPolymarket: handler.NewProxyHandler(handler.ProxyTarget{
			Name:            "polymarket",
			BaseURL:         cfg.Polymarket.GammaHost,
			DefaultEndpoint: "events",
			PublicEndpoints: []string{"events", "markets", "series"},
			FreshTTL:        120 * time.Second,
			StaleTTL:        300 * time.Second,
		}, cache, logger),
		ProxyKalshi: handler.NewProxyHandler(handler.ProxyTarget{
			Name:            "kalshi",
			BaseURL:         cfg.Kalshi.BaseURL,
			DefaultEndpoint: "events",
			PublicEndpoints: []string{"events", "markets", "series"},
			FreshTTL:        120 * time.Second,
			StaleTTL:        300 * time.Second,
		}, cache, logger),
		ProxyOpinion: handler.NewProxyHandler(handler.ProxyTarget{
			Name:            "opinion",
			BaseURL:         cfg.Opinion.BaseURL,
			AuthBaseURL:     cfg.Opinion.OpenAPIURL,
			DefaultEndpoint: "topic",
			PublicEndpoints: []string{"topic", "label", "indicator", "currency", "activity"},
			AuthEndpoints:   []string{"market", "orderbook", "trade", "token"},
			APIKey:          cfg.Opinion.ApiKey,
			AuthHeader:      "apikey",
			FreshTTL:        30 * time.Second,
			StaleTTL:        60 * time.Second,
		}, cache, logger),
	}

	return server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}, handlers, hub, logger)
}
