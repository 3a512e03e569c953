package repositories

import (
	"context"
	"database/sql"

	"github.com/yagnikpt/tunebox/internal/models"
)

// Catalog bundles the repositories behind one database handle and exposes
// read-side lookups as plain DTOs for search and HTTP consumers.
type Catalog struct {
	Users     *UserRepository
	Tracks    *TrackRepository
	Playlists *PlaylistRepository
	Likes     *LikeRepository
	Imports   *ImportJobRepository
}

// NewCatalog creates every repository over db.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{
		Users:     NewUserRepository(db),
		Tracks:    NewTrackRepository(db),
		Playlists: NewPlaylistRepository(db),
		Likes:     NewLikeRepository(db),
		Imports:   NewImportJobRepository(db),
	}
}

// SearchTracks returns catalog tracks matching q.
func (c *Catalog) SearchTracks(ctx context.Context, q string) ([]models.Track, error) {
	tracks, err := c.Tracks.SearchTracks(ctx, q)
	if err != nil {
		return nil, err
	}
	return Tracks(tracks), nil
}

// SearchUsers returns public profiles whose username matches q.
func (c *Catalog) SearchUsers(ctx context.Context, q string) ([]models.User, error) {
	persisted, err := c.Users.SearchUsers(ctx, q)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, len(persisted))
	for i, u := range persisted {
		users[i] = u.User.Public()
	}
	return users, nil
}

// SearchPlaylists returns public playlist summaries matching q.
func (c *Catalog) SearchPlaylists(ctx context.Context, q string) ([]models.PlaylistSummary, error) {
	return c.Playlists.SearchPlaylists(ctx, q)
}

// TracksByOwner returns the tracks uploaded by userID.
func (c *Catalog) TracksByOwner(ctx context.Context, userID string) ([]models.Track, error) {
	if _, err := c.Users.Get(userID); err != nil {
		return nil, err
	}

	tracks, err := c.Tracks.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Tracks(tracks), nil
}

// PlaylistsByOwner returns userID's playlists as summaries. Private playlists are
// included only when viewerID is the owner.
func (c *Catalog) PlaylistsByOwner(ctx context.Context, userID, viewerID string) ([]models.PlaylistSummary, error) {
	if _, err := c.Users.Get(userID); err != nil {
		return nil, err
	}

	playlists, err := c.Playlists.ListByOwner(ctx, userID, userID == viewerID)
	if err != nil {
		return nil, err
	}
	return c.Playlists.Summaries(ctx, playlists)
}

// PlaylistTracks returns the playlist's tracks in add order.
func (c *Catalog) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	export, err := c.Playlists.Export(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return export.Tracks, nil
}
