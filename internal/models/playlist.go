package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/yagnikpt/tunebox/internal/shared"
)

// PreviewSize is the number of tracks attached to a [PlaylistSummary] for cover rendering.
const PreviewSize = 4

// Playlist holds playlist metadata.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Public      bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlaylistSummary is a playlist with its owner, the first tracks by add time and the total count.
type PlaylistSummary struct {
	Playlist   Playlist `json:"playlist"`
	Owner      User     `json:"owner"`
	Preview    []Track  `json:"preview"`
	TrackCount int      `json:"track_count"`
}

// PlaylistExport is a playlist with its owner and complete ordered track listing.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Owner    User     `json:"owner"`
	Tracks   []Track  `json:"tracks"`
}

// Duration sums known track durations in seconds.
func (e PlaylistExport) Duration() int {
	total := 0
	for _, t := range e.Tracks {
		total += t.Duration
	}
	return total
}

// PersistedPlaylist implements [Model] for [Playlist] rows.
type PersistedPlaylist struct {
	lifecycle
	Playlist Playlist
}

// NewPersistedPlaylist creates a playlist owned by ownerID with timestamps set to now.
func NewPersistedPlaylist(sequence int, ownerID, name, description string, public bool) *PersistedPlaylist {
	now := time.Now()
	return &PersistedPlaylist{
		lifecycle: lifecycle{sequence: sequence},
		Playlist: Playlist{
			OwnerID:     ownerID,
			Name:        name,
			Description: description,
			Public:      public,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

func (p *PersistedPlaylist) ID() string               { return p.Playlist.ID }
func (p *PersistedPlaylist) CreatedAt() time.Time     { return p.Playlist.CreatedAt }
func (p *PersistedPlaylist) UpdatedAt() time.Time     { return p.Playlist.UpdatedAt }
func (p *PersistedPlaylist) SetID(id string)          { p.Playlist.ID = id }
func (p *PersistedPlaylist) SetUpdatedAt(t time.Time) { p.Playlist.UpdatedAt = t }

// Validate requires an owner and a name.
func (p *PersistedPlaylist) Validate() error {
	if p.Playlist.ID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if p.Playlist.OwnerID == "" {
		return fmt.Errorf("%w: playlist owner is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(p.Playlist.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	return nil
}
