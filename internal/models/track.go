package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/yagnikpt/tunebox/internal/shared"
)

// Track is a single uploaded audio item.
//
// Duration is in seconds and is zero until known.
type Track struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Genre       string    `json:"genre,omitempty"`
	Description string    `json:"description,omitempty"`
	FileURL     string    `json:"file_url"`
	FileKey     string    `json:"-"`
	CoverURL    string    `json:"cover_url,omitempty"`
	CoverKey    string    `json:"-"`
	Duration    int       `json:"duration,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PersistedTrack implements [Model] for [Track] rows.
type PersistedTrack struct {
	lifecycle
	Track Track
}

// NewPersistedTrack wraps dto with timestamps set to now.
func NewPersistedTrack(sequence int, dto Track) *PersistedTrack {
	now := time.Now()
	dto.CreatedAt, dto.UpdatedAt = now, now
	return &PersistedTrack{lifecycle: lifecycle{sequence: sequence}, Track: dto}
}

func (t *PersistedTrack) ID() string               { return t.Track.ID }
func (t *PersistedTrack) CreatedAt() time.Time     { return t.Track.CreatedAt }
func (t *PersistedTrack) UpdatedAt() time.Time     { return t.Track.UpdatedAt }
func (t *PersistedTrack) SetID(id string)          { t.Track.ID = id }
func (t *PersistedTrack) SetUpdatedAt(u time.Time) { t.Track.UpdatedAt = u }

// Validate requires an owner, a title, an artist and a stored media file.
func (t *PersistedTrack) Validate() error {
	switch {
	case t.Track.ID == "":
		return fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	case t.Track.OwnerID == "":
		return fmt.Errorf("%w: track owner is required", shared.ErrInvalidInput)
	case strings.TrimSpace(t.Track.Title) == "":
		return fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	case strings.TrimSpace(t.Track.Artist) == "":
		return fmt.Errorf("%w: artist is required", shared.ErrInvalidInput)
	case t.Track.FileURL == "" || t.Track.FileKey == "":
		return fmt.Errorf("%w: media file is required", shared.ErrInvalidInput)
	case t.Track.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative", shared.ErrInvalidInput)
	}
	return nil
}
