package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/yagnikpt/tunebox/internal/formatter"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/repositories"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/storage"
)

// arg returns the i-th positional argument or a missing argument error naming it.
func arg(cmd *cli.Command, i int, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().Get(i))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// resolveUser looks a user up by ID, then by username.
func resolveUser(catalog *repositories.Catalog, ref string) (*models.PersistedUser, error) {
	user, err := catalog.Users.Get(ref)
	if err == nil || !errors.Is(err, shared.ErrNotFound) {
		return user, err
	}
	return catalog.Users.GetByUsername(ref)
}

func (r *Runner) userFlag(cmd *cli.Command) (*repositories.Catalog, *models.PersistedUser, error) {
	catalog, err := r.openCatalog()
	if err != nil {
		return nil, nil, err
	}
	user, err := resolveUser(catalog, cmd.String("user"))
	if err != nil {
		return nil, nil, err
	}
	return catalog, user, nil
}

// Search runs one aggregated search and prints the ranked results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	searcher, err := r.searcher()
	if err != nil {
		return err
	}

	results, err := searcher.Search(ctx, query)
	if err != nil {
		return err
	}
	if limit := cmd.Int("limit"); limit > 0 && limit < len(results.Items) {
		results.Items = results.Items[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	if results.Len() == 0 {
		return r.writePlain("No results for %q\n", query)
	}

	r.writePlain("Found %d results for %q:\n\n", results.Len(), query)
	for i, item := range results.Items {
		switch res := item.(type) {
		case search.TrackResult:
			t := res.Track()
			r.writePlain("%2d. [track]    %s - %s (%s)  %s\n", i+1, t.Title, t.Artist, shared.FormatDuration(t.Duration), t.ID)
		case search.UserResult:
			u := res.User()
			r.writePlain("%2d. [user]     %s  %s\n", i+1, u.Username, u.ID)
		case search.PlaylistResult:
			p := res.Playlist()
			r.writePlain("%2d. [playlist] %s by %s, %d tracks  %s\n", i+1, p.Name, res.Owner().Username, res.TrackCount(), p.ID)
		}
	}
	return nil
}

// TracksList prints a page of the newest tracks.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}

	limit, offset := cmd.Int("limit"), cmd.Int("offset")
	if limit < 0 || offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", shared.ErrInvalidFlag)
	}

	page, total, err := catalog.Tracks.ListPaginated(ctx, limit, offset)
	if err != nil {
		return err
	}
	tracks := repositories.Tracks(page)

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"tracks": tracks, "total": total}, cmd.Bool("pretty"))
	}

	r.writePlain("Showing %d of %d tracks:\n\n", len(tracks), total)
	r.writeTracks(tracks, offset)
	return nil
}

func (r *Runner) writeTracks(tracks []models.Track, offset int) {
	for i, t := range tracks {
		r.writePlain("%3d. %s - %s (%s)\n", offset+i+1, t.Title, t.Artist, shared.FormatDuration(t.Duration))
		r.writePlain("     ID: %s\n", t.ID)
	}
}

// TracksUpload stores an audio file, and optionally a cover image, then creates the track.
func (r *Runner) TracksUpload(ctx context.Context, cmd *cli.Command) error {
	path, err := arg(cmd, 0, "audio file")
	if err != nil {
		return err
	}
	duration := cmd.Int("duration")
	if duration < 0 {
		return fmt.Errorf("%w: duration must be a non-negative integer", shared.ErrInvalidFlag)
	}

	catalog, user, err := r.userFlag(cmd)
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}

	dto := models.Track{
		OwnerID:     user.ID(),
		Title:       strings.TrimSpace(cmd.String("title")),
		Artist:      strings.TrimSpace(cmd.String("artist")),
		Genre:       strings.TrimSpace(cmd.String("genre")),
		Description: strings.TrimSpace(cmd.String("description")),
		Duration:    duration,
	}

	audio, err := putFile(ctx, store, path, storage.KindAudio)
	if err != nil {
		return err
	}
	dto.FileURL, dto.FileKey = audio.URL, audio.Key

	if cover := cmd.String("cover"); cover != "" {
		obj, err := putFile(ctx, store, cover, storage.KindImage)
		if err != nil {
			store.Delete(audio.Key)
			return err
		}
		dto.CoverURL, dto.CoverKey = obj.URL, obj.Key
	}

	track := models.NewPersistedTrack(0, dto)
	if err := catalog.Tracks.Create(track); err != nil {
		removeMedia(store, dto.FileKey, dto.CoverKey)
		return err
	}
	r.logger.Info("track uploaded", "track", track.ID(), "user", user.ID(), "title", dto.Title)

	if err := r.catalogChanged(ctx); err != nil {
		r.logger.Warn("failed to invalidate search cache", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(track.Track, cmd.Bool("pretty"))
	}
	r.writePlain("✓ Uploaded %s - %s\n", dto.Title, dto.Artist)
	r.writePlain("  ID:  %s\n", track.ID())
	r.writePlain("  URL: %s\n", dto.FileURL)
	return nil
}

func putFile(ctx context.Context, store *storage.Store, path string, want storage.Kind) (storage.Object, error) {
	kind, err := storage.KindOf(path)
	if err != nil {
		return storage.Object{}, err
	}
	if kind != want {
		return storage.Object{}, fmt.Errorf("%w: %s is not %s", shared.ErrUnsupportedFile, path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		return storage.Object{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return store.Put(ctx, filepath.Base(path), f)
}

func removeMedia(store *storage.Store, keys ...string) {
	for _, key := range keys {
		if key != "" {
			store.Delete(key)
		}
	}
}

// TracksDelete removes a track owned by --user and its stored media.
func (r *Runner) TracksDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := arg(cmd, 0, "track id")
	if err != nil {
		return err
	}
	catalog, user, err := r.userFlag(cmd)
	if err != nil {
		return err
	}

	track, err := catalog.Tracks.Get(id)
	if err != nil {
		return err
	}
	if track.Track.OwnerID != user.ID() {
		return fmt.Errorf("%w: only the uploader can delete a track", shared.ErrForbidden)
	}
	if err := catalog.Tracks.Delete(id); err != nil {
		return err
	}

	if store, err := r.openStore(); err == nil {
		removeMedia(store, track.Track.FileKey, track.Track.CoverKey)
	} else {
		r.logger.Warn("stored media left behind", "track", id, "error", err)
	}
	if err := r.catalogChanged(ctx); err != nil {
		r.logger.Warn("failed to invalidate search cache", "error", err)
	}

	r.writePlain("✓ Deleted %s - %s\n", track.Track.Title, track.Track.Artist)
	return nil
}

type userProfile struct {
	User      models.User              `json:"user"`
	Tracks    []models.Track           `json:"tracks"`
	Playlists []models.PlaylistSummary `json:"playlists"`
}

// UsersShow prints a user with their uploads and public playlists.
func (r *Runner) UsersShow(ctx context.Context, cmd *cli.Command) error {
	ref, err := arg(cmd, 0, "user")
	if err != nil {
		return err
	}
	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}
	user, err := resolveUser(catalog, ref)
	if err != nil {
		return err
	}

	tracks, err := catalog.TracksByOwner(ctx, user.ID())
	if err != nil {
		return err
	}
	playlists, err := catalog.PlaylistsByOwner(ctx, user.ID(), "")
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(userProfile{User: user.User, Tracks: tracks, Playlists: playlists}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(user.User.Username)
	r.writePlain("ID:        %s\n", user.ID())
	if user.User.Email != "" {
		r.writePlain("Email:     %s\n", user.User.Email)
	}
	r.writePlain("Joined:    %s\n", user.User.CreatedAt.Format("2006-01-02"))
	r.writePlain("Tracks:    %d\n", len(tracks))
	r.writePlain("Playlists: %d\n", len(playlists))

	if len(playlists) > 0 {
		r.writePlainln("Playlists:")
		for i, p := range playlists {
			r.writePlain("%3d. %s (%d tracks)  %s\n", i+1, p.Playlist.Name, p.TrackCount, p.Playlist.ID)
		}
	}
	return nil
}

// UsersTracks prints a user's uploads.
func (r *Runner) UsersTracks(ctx context.Context, cmd *cli.Command) error {
	ref, err := arg(cmd, 0, "user")
	if err != nil {
		return err
	}
	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}
	user, err := resolveUser(catalog, ref)
	if err != nil {
		return err
	}

	tracks, err := catalog.TracksByOwner(ctx, user.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	r.writePlain("%s has %d tracks:\n\n", user.User.Username, len(tracks))
	r.writeTracks(tracks, 0)
	return nil
}

// PlaylistsList prints every playlist of --user, private ones included.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	catalog, user, err := r.userFlag(cmd)
	if err != nil {
		return err
	}

	playlists, err := catalog.PlaylistsByOwner(ctx, user.ID(), user.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Playlist.Name)
		if p.Playlist.Description != "" {
			r.writePlain("   Description: %s\n", p.Playlist.Description)
		}
		r.writePlain("   Tracks: %d | %s\n", p.TrackCount, shared.VisibilityString(p.Playlist.Public))
		r.writePlain("   ID: %s\n\n", p.Playlist.ID)
	}
	return nil
}

// PlaylistsCreate creates a playlist owned by --user. Playlists are public unless --private is set.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := arg(cmd, 0, "name")
	if err != nil {
		return err
	}
	catalog, user, err := r.userFlag(cmd)
	if err != nil {
		return err
	}

	playlist := models.NewPersistedPlaylist(0, user.ID(), name, strings.TrimSpace(cmd.String("description")), !cmd.Bool("private"))
	if err := catalog.Playlists.Create(playlist); err != nil {
		return err
	}
	if playlist.Playlist.Public {
		if err := r.catalogChanged(ctx); err != nil {
			r.logger.Warn("failed to invalidate search cache", "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist.Playlist, cmd.Bool("pretty"))
	}
	r.writePlain("✓ Created %s playlist %q\n", shared.VisibilityString(playlist.Playlist.Public), name)
	r.writePlain("  ID: %s\n", playlist.ID())
	return nil
}

// PlaylistsShow prints a playlist with its owner and ordered tracks.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := arg(cmd, 0, "playlist id")
	if err != nil {
		return err
	}
	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}

	export, err := catalog.Playlists.Export(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, cmd.Bool("pretty"))
	}

	r.writePlainHeader(export.Playlist.Name)
	if export.Playlist.Description != "" {
		r.writePlain("%s\n", export.Playlist.Description)
	}
	r.writePlain("Owner:      %s\n", export.Owner.Username)
	r.writePlain("Visibility: %s\n", shared.VisibilityString(export.Playlist.Public))
	r.writePlain("Duration:   %s\n\n", shared.FormatDuration(export.Duration()))
	r.writeTracks(export.Tracks, 0)
	return nil
}

// ownedPlaylist loads playlist id and checks that --user owns it.
func (r *Runner) ownedPlaylist(cmd *cli.Command, id string) (*repositories.Catalog, *models.PersistedPlaylist, error) {
	catalog, user, err := r.userFlag(cmd)
	if err != nil {
		return nil, nil, err
	}
	playlist, err := catalog.Playlists.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if playlist.Playlist.OwnerID != user.ID() {
		return nil, nil, fmt.Errorf("%w: only the owner can change a playlist", shared.ErrForbidden)
	}
	return catalog, playlist, nil
}

// PlaylistsAdd appends a track to a playlist owned by --user.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := arg(cmd, 0, "playlist id")
	if err != nil {
		return err
	}
	trackID, err := arg(cmd, 1, "track id")
	if err != nil {
		return err
	}
	catalog, playlist, err := r.ownedPlaylist(cmd, id)
	if err != nil {
		return err
	}

	if err := catalog.Playlists.AddTrack(ctx, id, trackID); err != nil {
		return err
	}
	if err := r.catalogChanged(ctx); err != nil {
		r.logger.Warn("failed to invalidate search cache", "error", err)
	}
	r.writePlain("✓ Added %s to %s\n", trackID, playlist.Playlist.Name)
	return nil
}

// PlaylistsRemove removes a track from a playlist owned by --user.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := arg(cmd, 0, "playlist id")
	if err != nil {
		return err
	}
	trackID, err := arg(cmd, 1, "track id")
	if err != nil {
		return err
	}
	catalog, playlist, err := r.ownedPlaylist(cmd, id)
	if err != nil {
		return err
	}

	if err := catalog.Playlists.RemoveTrack(ctx, id, trackID); err != nil {
		return err
	}
	if err := r.catalogChanged(ctx); err != nil {
		r.logger.Warn("failed to invalidate search cache", "error", err)
	}
	r.writePlain("✓ Removed %s from %s\n", trackID, playlist.Playlist.Name)
	return nil
}

// PlaylistsDelete deletes a playlist owned by --user.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := arg(cmd, 0, "playlist id")
	if err != nil {
		return err
	}
	catalog, playlist, err := r.ownedPlaylist(cmd, id)
	if err != nil {
		return err
	}

	if err := catalog.Playlists.Delete(id); err != nil {
		return err
	}
	if err := r.catalogChanged(ctx); err != nil {
		r.logger.Warn("failed to invalidate search cache", "error", err)
	}
	r.writePlain("✓ Deleted playlist %s\n", playlist.Playlist.Name)
	return nil
}

// PlaylistsExport writes one playlist to disk in the requested format.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	id, err := arg(cmd, 0, "playlist id")
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}

	export, err := catalog.Playlists.Export(ctx, id)
	if err != nil {
		return err
	}

	opts := formatter.WriteOpts{
		Base: cmd.String("output"),
		Warn: func(msg string, err error) { r.logger.Warn(msg, "error", err) },
	}
	if cmd.Bool("cover") {
		opts.HTTPClient = r.httpClient
	}

	written, err := formatter.Write(export, format, opts)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %s (%d tracks) as %s\n", export.Playlist.Name, len(export.Tracks), format)
	for _, f := range written.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}
