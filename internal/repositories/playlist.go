package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// playlistSearchLimit caps playlist search results.
const playlistSearchLimit = 20

var playlistColumns = []string{"id", "sequence", "user_id", "name", "description", "is_public", "created_at", "updated_at", "deleted_at"}

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist] and manages playlist membership.
//
// Membership rows are ordered by the time a track was added. A track appears at most once per playlist.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	playlist.SetID(shared.GenerateID())
	playlist.SetSequence(sequence)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, user_id, name, description, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	p := playlist.Playlist
	_, err = r.db.Exec(query, p.ID, sequence, p.OwnerID, p.Name, p.Description, p.Public, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE id = ? AND deleted_at IS NULL", columns("", playlistColumns...))

	playlist, err := scanPlaylist(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return playlist, nil
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, description = ?, is_public = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	p := playlist.Playlist
	result, err := r.db.Exec(query, p.Name, p.Description, p.Public, now, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return expectAffected(result, fmt.Errorf("%w: not found or already deleted: %s", shared.ErrPlaylistNotFound, p.ID))
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `UPDATE playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return expectAffected(result, fmt.Errorf("%w: not found or already deleted: %s", shared.ErrPlaylistNotFound, id))
}

// List retrieves all playlists matching the given criteria ("user_id", "public"), excluding soft-deleted playlists
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE deleted_at IS NULL", columns("", playlistColumns...))
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if public, ok := criteria["public"].(bool); ok {
		query += " AND is_public = ?"
		args = append(args, public)
	}

	query += " ORDER BY created_at ASC, sequence ASC"

	return r.query(context.Background(), query, args...)
}

// ListByOwner returns userID's playlists. Private playlists are included only when includePrivate is set.
func (r *PlaylistRepository) ListByOwner(ctx context.Context, userID string, includePrivate bool) ([]*models.PersistedPlaylist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE user_id = ? AND deleted_at IS NULL", columns("", playlistColumns...))
	if !includePrivate {
		query += " AND is_public = 1"
	}
	query += " ORDER BY created_at DESC, sequence DESC"

	return r.query(ctx, query, userID)
}

// AddTrack appends trackID to the playlist. Adding a track twice returns [shared.ErrAlreadyExists].
func (r *PlaylistRepository) AddTrack(ctx context.Context, playlistID, trackID string) error {
	var live int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM playlists WHERE id = ? AND deleted_at IS NULL) +
			(SELECT COUNT(*) FROM tracks WHERE id = ? AND deleted_at IS NULL) * 2
	`, playlistID, trackID).Scan(&live)
	if err != nil {
		return fmt.Errorf("failed to check playlist membership: %w", err)
	}
	if live&1 == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	if live&2 == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, `INSERT INTO playlist_tracks (playlist_id, track_id, added_at) VALUES (?, ?, ?)`, playlistID, trackID, now)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: track %s is already in playlist %s", shared.ErrAlreadyExists, trackID, playlistID)
		}
		return fmt.Errorf("failed to add track to playlist: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `UPDATE playlists SET updated_at = ? WHERE id = ?`, now, playlistID)
	if err != nil {
		return fmt.Errorf("failed to touch playlist: %w", err)
	}
	return nil
}

// RemoveTrack drops trackID from the playlist.
func (r *PlaylistRepository) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?`, playlistID, trackID)
	if err != nil {
		return fmt.Errorf("failed to remove track from playlist: %w", err)
	}
	return expectAffected(result, fmt.Errorf("%w: track %s in playlist %s", shared.ErrNotFound, trackID, playlistID))
}

// Tracks returns the playlist's live tracks in the order they were added. A limit of zero returns all of them.
func (r *PlaylistRepository) Tracks(ctx context.Context, playlistID string, limit int) ([]*models.PersistedTrack, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ? AND t.deleted_at IS NULL
		ORDER BY pt.added_at ASC, pt.rowid ASC
	`, columns("t", trackColumns...))
	args := []any{playlistID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// TrackCount returns the number of live tracks in the playlist.
func (r *PlaylistRepository) TrackCount(ctx context.Context, playlistID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ? AND t.deleted_at IS NULL
	`, playlistID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist tracks: %w", err)
	}
	return count, nil
}

// Export loads the playlist, its owner and the full ordered track listing.
func (r *PlaylistRepository) Export(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := r.Get(playlistID)
	if err != nil {
		return nil, err
	}

	owner, err := r.owner(ctx, playlist.Playlist.OwnerID)
	if err != nil {
		return nil, err
	}

	tracks, err := r.Tracks(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{Playlist: playlist.Playlist, Owner: owner, Tracks: Tracks(tracks)}, nil
}

// Summaries decorates playlists with their owner, a preview of the first tracks and the track count.
func (r *PlaylistRepository) Summaries(ctx context.Context, playlists []*models.PersistedPlaylist) ([]models.PlaylistSummary, error) {
	summaries := make([]models.PlaylistSummary, 0, len(playlists))
	owners := make(map[string]models.User)

	for _, p := range playlists {
		owner, ok := owners[p.Playlist.OwnerID]
		if !ok {
			var err error
			if owner, err = r.owner(ctx, p.Playlist.OwnerID); err != nil {
				return nil, err
			}
			owners[p.Playlist.OwnerID] = owner
		}

		preview, err := r.Tracks(ctx, p.Playlist.ID, models.PreviewSize)
		if err != nil {
			return nil, err
		}

		count, err := r.TrackCount(ctx, p.Playlist.ID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, models.PlaylistSummary{
			Playlist:   p.Playlist,
			Owner:      owner,
			Preview:    Tracks(preview),
			TrackCount: count,
		})
	}

	return summaries, nil
}

// SearchPlaylists returns public playlists whose name or description contains q, newest first, as summaries.
func (r *PlaylistRepository) SearchPlaylists(ctx context.Context, q string) ([]models.PlaylistSummary, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM playlists
		WHERE deleted_at IS NULL AND is_public = 1
		AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')
		ORDER BY created_at DESC, sequence DESC
		LIMIT ?
	`, columns("", playlistColumns...))

	pattern := likePattern(q)
	playlists, err := r.query(ctx, query, pattern, pattern, playlistSearchLimit)
	if err != nil {
		return nil, err
	}
	return r.Summaries(ctx, playlists)
}

// owner loads the public profile of a playlist owner.
func (r *PlaylistRepository) owner(ctx context.Context, userID string) (models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = ?", columns("", userColumns...))

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query playlist owner: %w", err)
	}
	return user.User.Public(), nil
}

// query collects every row before returning so callers may issue follow-up queries on a single connection.
func (r *PlaylistRepository) query(ctx context.Context, query string, args ...any) ([]*models.PersistedPlaylist, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// scanPlaylist reads the columns listed in playlistColumns.
func scanPlaylist(s scanner) (*models.PersistedPlaylist, error) {
	var (
		p         models.Playlist
		sequence  int
		deletedAt sql.NullTime
	)

	if err := s.Scan(&p.ID, &sequence, &p.OwnerID, &p.Name, &p.Description, &p.Public, &p.CreatedAt, &p.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}

	playlist := &models.PersistedPlaylist{Playlist: p}
	playlist.SetSequence(sequence)
	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}
	return playlist, nil
}
