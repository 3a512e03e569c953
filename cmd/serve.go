package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/yagnikpt/tunebox/internal/server"
	"github.com/yagnikpt/tunebox/internal/services"
	"github.com/yagnikpt/tunebox/internal/web"
	"golang.org/x/sync/errgroup"
)

// Serve runs the HTTP API until the process is interrupted.
//
// The identity provider and the Redis search cache are optional: without them /auth/login answers
// 503 and live searches refresh directly after each write.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}

	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}

	tokens, err := web.NewTokenIssuer(r.config.Auth.JWTSecret, r.config.Auth.TokenTTL())
	if err != nil {
		return err
	}

	opts := web.Options{
		Catalog:       catalog,
		Store:         store,
		Tokens:        tokens,
		WebhookSecret: r.config.Auth.WebhookSecret,
		Debounce:      r.config.Search.Debounce(),
		Logger:        r.logger,
	}

	if identity, err := services.NewIdentityService(r.config.Auth, r.httpClient); err == nil {
		opts.Identity = identity
	} else {
		r.logger.Warn("identity provider disabled", "error", err)
	}

	searcher, err := r.searcher()
	if err != nil {
		return err
	}
	opts.Searcher = searcher
	opts.Cache = r.cache

	api := web.NewServer(opts)
	srv := &http.Server{
		Addr:              r.config.Server.Addr(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, srv, r.logger)
	})
	if r.redis != nil {
		g.Go(func() error {
			err := api.WatchCache(ctx, r.redis)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Warn("search cache watcher stopped", "error", err)
			}
			return nil
		})
	}

	r.writePlain("→ Serving on http://%s\n", r.config.Server.Addr())
	return g.Wait()
}
