package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// LikeRepository records which users liked which tracks.
type LikeRepository struct {
	db *sql.DB
}

// NewLikeRepository creates a new LikeRepository with the given database connection
func NewLikeRepository(db *sql.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Like marks trackID as liked by userID. Liking twice is a no-op.
func (r *LikeRepository) Like(ctx context.Context, userID, trackID string) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks WHERE id = ? AND deleted_at IS NULL`, trackID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check track: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}

	_, err = r.db.ExecContext(ctx, `INSERT OR IGNORE INTO likes (user_id, track_id, created_at) VALUES (?, ?, ?)`, userID, trackID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to like track: %w", err)
	}
	return nil
}

// Unlike removes a like. Removing a missing like is a no-op.
func (r *LikeRepository) Unlike(ctx context.Context, userID, trackID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE user_id = ? AND track_id = ?`, userID, trackID); err != nil {
		return fmt.Errorf("failed to unlike track: %w", err)
	}
	return nil
}

// IsLiked reports whether userID likes trackID.
func (r *LikeRepository) IsLiked(ctx context.Context, userID, trackID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE user_id = ? AND track_id = ?`, userID, trackID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query like: %w", err)
	}
	return count > 0, nil
}

// Count returns how many users like trackID.
func (r *LikeRepository) Count(ctx context.Context, trackID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE track_id = ?`, trackID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

// ListLiked returns userID's liked tracks, most recently liked first.
func (r *LikeRepository) ListLiked(ctx context.Context, userID string) ([]*models.PersistedTrack, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM likes l
		JOIN tracks t ON t.id = l.track_id
		WHERE l.user_id = ? AND t.deleted_at IS NULL
		ORDER BY l.created_at DESC, l.rowid DESC
	`, columns("t", trackColumns...))

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liked track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}
