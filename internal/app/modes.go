package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// ServeMode runs the full stack: the polling loop, the WebSocket hub, and
// the HTTP server. It blocks until the context is cancelled or a component
// fails.
func (a *App) ServeMode(ctx context.Context, deps *Deps) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := deps.Hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	g.Go(func() error {
		err := deps.Poller.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("poller: %w", err)
	})

	if a.cfg.Server.Enabled {
		g.Go(func() error {
			err := deps.Server.Start()
			if ctx.Err() != nil {
				return nil
			}
			return err
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return deps.Server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// PollMode runs only the polling loop, logging each cycle. Useful for
// verifying provider connectivity without exposing an API.
func (a *App) PollMode(ctx context.Context, deps *Deps) error {
	err := deps.Poller.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// OnceMode runs a single aggregation cycle and prints the snapshot as JSON
// to stdout.
func (a *App) OnceMode(ctx context.Context, deps *Deps) error {
	result, err := deps.Poller.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("app: single refresh: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("app: encode snapshot: %w", err)
	}
	return nil
}
