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

// trackSearchLimit caps catalog search results.
const trackSearchLimit = 50

var trackColumns = []string{
	"id", "sequence", "user_id", "title", "artist", "genre", "description",
	"file_url", "file_key", "cover_url", "cover_key", "duration", "created_at", "updated_at", "deleted_at",
}

// TrackRepository implements models.Repository[*models.PersistedTrack] for the uploaded track catalog.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	track.SetID(shared.GenerateID())
	track.SetSequence(sequence)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, user_id, title, artist, genre, description, file_url, file_key,
			cover_url, cover_key, duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	t := track.Track
	_, err = r.db.Exec(query,
		t.ID,
		sequence,
		t.OwnerID,
		t.Title,
		t.Artist,
		t.Genre,
		t.Description,
		t.FileURL,
		t.FileKey,
		t.CoverURL,
		t.CoverKey,
		nullDuration(t.Duration),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE id = ? AND deleted_at IS NULL", columns("", trackColumns...))

	track, err := scanTrack(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return track, nil
}

// Update modifies an existing track's metadata. Media locators are immutable.
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET title = ?, artist = ?, genre = ?, description = ?, cover_url = ?, cover_key = ?, duration = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	t := track.Track
	result, err := r.db.Exec(query, t.Title, t.Artist, t.Genre, t.Description, t.CoverURL, t.CoverKey, nullDuration(t.Duration), now, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return expectAffected(result, fmt.Errorf("%w: not found or already deleted: %s", shared.ErrTrackNotFound, t.ID))
}

// Delete soft-deletes a track by ID and drops it from every playlist and like list.
func (r *TrackRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	if err := expectAffected(result, fmt.Errorf("%w: not found or already deleted: %s", shared.ErrTrackNotFound, id)); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM playlist_tracks WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach track from playlists: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM likes WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove track likes: %w", err)
	}

	return tx.Commit()
}

// List retrieves all tracks matching the given criteria ("user_id", "genre"), excluding soft-deleted tracks
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE deleted_at IS NULL", columns("", trackColumns...))
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if genre, ok := criteria["genre"].(string); ok && genre != "" {
		query += " AND LOWER(genre) = LOWER(?)"
		args = append(args, genre)
	}

	query += " ORDER BY created_at ASC, sequence ASC"

	return r.query(context.Background(), query, args...)
}

// ListByOwner returns the tracks uploaded by userID in upload order.
func (r *TrackRepository) ListByOwner(ctx context.Context, userID string) ([]*models.PersistedTrack, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tracks
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC, sequence ASC
	`, columns("", trackColumns...))

	return r.query(ctx, query, userID)
}

// ListPaginated returns a page of the newest tracks and the total live track count.
func (r *TrackRepository) ListPaginated(ctx context.Context, limit, offset int) ([]*models.PersistedTrack, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks WHERE deleted_at IS NULL").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM tracks
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, sequence DESC
		LIMIT ? OFFSET ?
	`, columns("", trackColumns...))

	tracks, err := r.query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return tracks, total, nil
}

// SearchTracks returns tracks whose title, artist or genre contains q, oldest first.
func (r *TrackRepository) SearchTracks(ctx context.Context, q string) ([]*models.PersistedTrack, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tracks
		WHERE deleted_at IS NULL
		AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(artist) LIKE ? ESCAPE '\' OR LOWER(genre) LIKE ? ESCAPE '\')
		ORDER BY created_at ASC, sequence ASC
		LIMIT ?
	`, columns("", trackColumns...))

	pattern := likePattern(q)
	return r.query(ctx, query, pattern, pattern, pattern, trackSearchLimit)
}

// Exists reports whether a live track with the same title and artist exists, ignoring case.
func (r *TrackRepository) Exists(ctx context.Context, title, artist string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tracks
		WHERE deleted_at IS NULL AND LOWER(title) = LOWER(?) AND LOWER(artist) = LOWER(?)
	`, title, artist).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check track: %w", err)
	}
	return n > 0, nil
}

func (r *TrackRepository) query(ctx context.Context, query string, args ...any) ([]*models.PersistedTrack, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// nullDuration stores unknown (zero) durations as NULL.
func nullDuration(seconds int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(seconds), Valid: seconds > 0}
}

// trackDest returns scan targets for trackColumns.
func trackDest(t *models.Track, sequence *int, duration *sql.NullInt64, deletedAt *sql.NullTime) []any {
	return []any{
		&t.ID, sequence, &t.OwnerID, &t.Title, &t.Artist, &t.Genre, &t.Description,
		&t.FileURL, &t.FileKey, &t.CoverURL, &t.CoverKey, duration, &t.CreatedAt, &t.UpdatedAt, deletedAt,
	}
}

// scanTrack reads the columns listed in trackColumns.
func scanTrack(s scanner) (*models.PersistedTrack, error) {
	var (
		t         models.Track
		sequence  int
		duration  sql.NullInt64
		deletedAt sql.NullTime
	)

	if err := s.Scan(trackDest(&t, &sequence, &duration, &deletedAt)...); err != nil {
		return nil, err
	}
	t.Duration = int(duration.Int64)

	track := &models.PersistedTrack{Track: t}
	track.SetSequence(sequence)
	if deletedAt.Valid {
		track.SetDeletedAt(&deletedAt.Time)
	}
	return track, nil
}

// Tracks unwraps persisted tracks into DTOs.
func Tracks(persisted []*models.PersistedTrack) []models.Track {
	tracks := make([]models.Track, len(persisted))
	for i, p := range persisted {
		tracks[i] = p.Track
	}
	return tracks
}
