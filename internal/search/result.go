package search

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// Kind names the variant of a [Result].
type Kind string

const (
	KindTrack    Kind = "track"
	KindUser     Kind = "user"
	KindPlaylist Kind = "playlist"
)

// Result is one scored search hit. The set of implementations is closed: [TrackResult],
// [UserResult] and [PlaylistResult].
type Result interface {
	Kind() Kind
	Score() float64
	isResult()
}

// TrackResult is a matching track.
type TrackResult struct {
	track models.Track
	score float64
}

// NewTrackResult scores track by title, or by artist at the secondary weight.
func NewTrackResult(track models.Track, query string) TrackResult {
	return TrackResult{track: track, score: weighted(track.Title, track.Artist, query)}
}

func (r TrackResult) Kind() Kind          { return KindTrack }
func (r TrackResult) Score() float64      { return r.score }
func (r TrackResult) Track() models.Track { return r.track }
func (r TrackResult) isResult()           {}
func (r TrackResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResult{Kind: KindTrack, Score: r.score, Track: &r.track})
}

// UserResult is a matching user profile.
type UserResult struct {
	user  models.User
	score float64
}

// NewUserResult scores user by username.
func NewUserResult(user models.User, query string) UserResult {
	return UserResult{user: user, score: Score(user.Username, query)}
}

func (r UserResult) Kind() Kind        { return KindUser }
func (r UserResult) Score() float64    { return r.score }
func (r UserResult) User() models.User { return r.user }
func (r UserResult) isResult()         {}
func (r UserResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResult{Kind: KindUser, Score: r.score, User: &r.user})
}

// PlaylistResult is a matching playlist with its owner, preview tracks and track count.
type PlaylistResult struct {
	summary models.PlaylistSummary
	score   float64
}

// NewPlaylistResult scores a playlist by name, or by description at the secondary weight.
func NewPlaylistResult(summary models.PlaylistSummary, query string) PlaylistResult {
	summary.Preview = slices.Clone(summary.Preview)
	return PlaylistResult{
		summary: summary,
		score:   weighted(summary.Playlist.Name, summary.Playlist.Description, query),
	}
}

func (r PlaylistResult) Kind() Kind                { return KindPlaylist }
func (r PlaylistResult) Score() float64            { return r.score }
func (r PlaylistResult) Playlist() models.Playlist { return r.summary.Playlist }
func (r PlaylistResult) Owner() models.User        { return r.summary.Owner }
func (r PlaylistResult) TrackCount() int           { return r.summary.TrackCount }
func (r PlaylistResult) Preview() []models.Track   { return slices.Clone(r.summary.Preview) }
func (r PlaylistResult) isResult()                 {}
func (r PlaylistResult) MarshalJSON() ([]byte, error) {
	summary := r.summary
	return json.Marshal(wireResult{Kind: KindPlaylist, Score: r.score, Playlist: &summary})
}

// Results is the outcome of one search. HasSearched is false for blank queries.
type Results struct {
	Query       string
	Items       []Result
	HasSearched bool
}

// Len returns the number of hits.
func (r Results) Len() int { return len(r.Items) }

type wireResult struct {
	Kind     Kind                    `json:"kind"`
	Score    float64                 `json:"score"`
	Track    *models.Track           `json:"track,omitempty"`
	User     *models.User            `json:"user,omitempty"`
	Playlist *models.PlaylistSummary `json:"playlist,omitempty"`
}

type wireResults struct {
	Query       string            `json:"query"`
	HasSearched bool              `json:"has_searched"`
	Results     []json.RawMessage `json:"results"`
}

// MarshalJSON encodes results as {"query", "has_searched", "results": [{"kind", "score", <kind>: {...}}]}.
func (r Results) MarshalJSON() ([]byte, error) {
	out := wireResults{Query: r.Query, HasSearched: r.HasSearched, Results: make([]json.RawMessage, 0, len(r.Items))}
	for _, item := range r.Items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		out.Results = append(out.Results, data)
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores results encoded by MarshalJSON.
func (r *Results) UnmarshalJSON(data []byte) error {
	var in wireResults
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	items := make([]Result, 0, len(in.Results))
	for _, raw := range in.Results {
		var w wireResult
		if err := json.Unmarshal(raw, &w); err != nil {
			return err
		}

		switch {
		case w.Kind == KindTrack && w.Track != nil:
			items = append(items, TrackResult{track: *w.Track, score: w.Score})
		case w.Kind == KindUser && w.User != nil:
			items = append(items, UserResult{user: *w.User, score: w.Score})
		case w.Kind == KindPlaylist && w.Playlist != nil:
			items = append(items, PlaylistResult{summary: *w.Playlist, score: w.Score})
		default:
			return fmt.Errorf("%w: search result kind %q", shared.ErrInvalidInput, w.Kind)
		}
	}

	*r = Results{Query: in.Query, HasSearched: in.HasSearched, Items: items}
	return nil
}
