package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
	"golang.org/x/sync/errgroup"
)

// TrackCatalog finds tracks by title, artist or genre.
type TrackCatalog interface {
	SearchTracks(ctx context.Context, q string) ([]models.Track, error)
}

// UserDirectory finds users by username.
type UserDirectory interface {
	SearchUsers(ctx context.Context, q string) ([]models.User, error)
}

// PlaylistCatalog finds playlists by name or description.
type PlaylistCatalog interface {
	SearchPlaylists(ctx context.Context, q string) ([]models.PlaylistSummary, error)
}

// Searcher runs a single search. [Aggregator] and [Cache] implement it.
type Searcher interface {
	Search(ctx context.Context, query string) (Results, error)
}

// Aggregator fans a query out to the three catalogs and merges the hits into one ranked list.
type Aggregator struct {
	tracks    TrackCatalog
	users     UserDirectory
	playlists PlaylistCatalog
	logger    *log.Logger
}

// NewAggregator creates an aggregator. A nil logger writes to stderr.
func NewAggregator(tracks TrackCatalog, users UserDirectory, playlists PlaylistCatalog, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Aggregator{
		tracks:    tracks,
		users:     users,
		playlists: playlists,
		logger:    shared.WithLogger(logger, "component", "search"),
	}
}

// Search queries every catalog concurrently with the normalized query.
//
// A blank query returns no results with HasSearched false. If any catalog fails the returned
// Results are empty with HasSearched true, and the error is returned alongside for the caller to
// report. Hits are ordered by descending score; ties keep tracks before users before playlists and
// each catalog's own order.
func (a *Aggregator) Search(ctx context.Context, query string) (Results, error) {
	q := shared.NormalizeQuery(query)
	if q == "" {
		return Results{Query: query}, nil
	}

	var (
		tracks    []models.Track
		users     []models.User
		playlists []models.PlaylistSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tracks, err = a.tracks.SearchTracks(gctx, q); err != nil {
			return fmt.Errorf("failed to search tracks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if users, err = a.users.SearchUsers(gctx, q); err != nil {
			return fmt.Errorf("failed to search users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if playlists, err = a.playlists.SearchPlaylists(gctx, q); err != nil {
			return fmt.Errorf("failed to search playlists: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("search failed", "query", q, "error", err)
		return Results{Query: query, HasSearched: true}, err
	}

	items := make([]Result, 0, len(tracks)+len(users)+len(playlists))
	for _, t := range tracks {
		items = append(items, NewTrackResult(t, q))
	}
	for _, u := range users {
		items = append(items, NewUserResult(u, q))
	}
	for _, p := range playlists {
		items = append(items, NewPlaylistResult(p, q))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score() > items[j].Score()
	})

	a.logger.Debug("search complete", "query", q, "tracks", len(tracks), "users", len(users), "playlists", len(playlists))
	return Results{Query: query, Items: items, HasSearched: true}, nil
}
