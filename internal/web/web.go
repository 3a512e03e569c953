// Package web serves the tunebox HTTP API with chi.
//
// # Routes
//
//	GET    /health
//	GET    /auth/login                        → identity provider redirect (when configured)
//	GET    /auth/callback                     → exchange code, upsert user, issue API token
//	POST   /api/webhooks/identity             → HMAC-signed user.created events
//	GET    /api/search?q=                     → aggregated, typed results
//	GET    /api/tracks                        → newest tracks, paginated with limit/offset
//	POST   /api/tracks                        → multipart upload (auth)
//	GET    /api/tracks/{id}
//	DELETE /api/tracks/{id}                   → owner only, removes stored media
//	POST   /api/tracks/{id}/like              → auth
//	DELETE /api/tracks/{id}/like              → auth
//	GET    /api/me, /api/me/likes             → auth
//	GET    /api/users/{id}, /api/users/{id}/tracks, /api/users/{id}/playlists
//	POST   /api/playlists                     → auth
//	GET    /api/playlists/{id}                → with owner and tracks; private ones for the owner only
//	DELETE /api/playlists/{id}                → owner only
//	POST   /api/playlists/{id}/tracks         → owner only
//	DELETE /api/playlists/{id}/tracks/{trackID}
//	GET    /ws/search                         → debounced live search
//	GET    /ws/player                         → per-connection playback session
//	GET    /media/{key}                       → stored uploads
//
// # Authentication
//
// Bearer tokens are HS256 JWTs issued by [TokenIssuer] after login. Mutating endpoints require
// one; read endpoints use it when present to show the viewer's private playlists and likes.
//
// # Live Search
//
// Every /ws/search connection owns a search.Controller registered with a [Hub]. Catalog writes
// bump the search cache version; the resulting invalidation message (or a direct call when no
// cache is configured) makes the hub refresh every open controller.
package web

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/yagnikpt/tunebox/internal/repositories"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/server"
	"github.com/yagnikpt/tunebox/internal/services"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/storage"
)

// MediaStore holds uploaded files.
type MediaStore interface {
	Put(ctx context.Context, name string, r io.Reader) (storage.Object, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	MaxBytes() int64
}

// Options wires a [Server].
type Options struct {
	Catalog  *repositories.Catalog
	Store    MediaStore
	Searcher search.Searcher
	// Cache is optional. When set, catalog writes invalidate it and [Server.WatchCache] refreshes live searches.
	Cache  *search.Cache
	Tokens *TokenIssuer
	// Identity is optional; without it /auth/login answers 503.
	Identity      services.Identity
	WebhookSecret string
	Debounce      time.Duration
	Logger        *log.Logger
}

// Server holds the API handlers and their dependencies.
type Server struct {
	catalog       *repositories.Catalog
	store         MediaStore
	searcher      search.Searcher
	cache         *search.Cache
	tokens        *TokenIssuer
	identity      services.Identity
	webhookSecret string
	debounce      time.Duration
	hub           *Hub
	logger        *log.Logger
}

// NewServer creates a Server. The searcher defaults to the cache, then to a plain aggregator over the catalog.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "web")

	searcher := opts.Searcher
	if searcher == nil && opts.Cache != nil {
		searcher = opts.Cache
	}
	if searcher == nil {
		searcher = search.NewAggregator(opts.Catalog, opts.Catalog, opts.Catalog, logger)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = search.DefaultDebounce
	}

	return &Server{
		catalog:       opts.Catalog,
		store:         opts.Store,
		searcher:      searcher,
		cache:         opts.Cache,
		tokens:        opts.Tokens,
		identity:      opts.Identity,
		webhookSecret: opts.WebhookSecret,
		debounce:      debounce,
		hub:           NewHub(),
		logger:        logger,
	}
}

// Hub returns the registry of live search controllers.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the chi router. Extra middleware runs before the built-in logging and recovery.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}
	r.Use(server.RecoverMiddleware(s.logger), server.LoggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/auth/login", s.handleLogin)
	r.Get("/auth/callback", s.handleCallback)
	r.Get("/media/{key}", s.handleMedia)

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/identity", s.handleIdentityWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.optionalAuth)

			r.Get("/search", s.handleSearch)
			r.Get("/tracks", s.handleListTracks)
			r.Get("/tracks/{id}", s.handleGetTrack)
			r.Get("/users/{id}", s.handleGetUser)
			r.Get("/users/{id}/tracks", s.handleUserTracks)
			r.Get("/users/{id}/playlists", s.handleUserPlaylists)
			r.Get("/playlists/{id}", s.handleGetPlaylist)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/me", s.handleMe)
			r.Get("/me/likes", s.handleMyLikes)

			r.Post("/tracks", s.handleUploadTrack)
			r.Delete("/tracks/{id}", s.handleDeleteTrack)
			r.Post("/tracks/{id}/like", s.handleLike)
			r.Delete("/tracks/{id}/like", s.handleUnlike)

			r.Post("/playlists", s.handleCreatePlaylist)
			r.Delete("/playlists/{id}", s.handleDeletePlaylist)
			r.Post("/playlists/{id}/tracks", s.handleAddPlaylistTrack)
			r.Delete("/playlists/{id}/tracks/{trackID}", s.handleRemovePlaylistTrack)
		})
	})

	r.Get("/ws/search", s.handleSearchSocket)
	r.Get("/ws/player", s.handlePlayerSocket)

	return r
}

// WatchCache refreshes live searches whenever the search cache is invalidated, until ctx is done.
func (s *Server) WatchCache(ctx context.Context, sub search.Subscriber) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Watch(ctx, sub, func(version string) {
		s.logger.Debug("search cache invalidated", "version", version)
		s.hub.RefreshAll()
	})
}

// catalogChanged invalidates cached searches after a write.
func (s *Server) catalogChanged(ctx context.Context) {
	if s.cache == nil {
		s.hub.RefreshAll()
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to invalidate search cache", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tunebox",
	})
}
