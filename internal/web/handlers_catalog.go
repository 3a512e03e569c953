package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/repositories"
	"github.com/yagnikpt/tunebox/internal/shared"
)

const (
	maxPlaylistName        = 200
	maxPlaylistDescription = 1000
)

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      *bool  `json:"is_public"`
}

type addTrackRequest struct {
	TrackID string `json:"track_id"`
}

type playlistDetail struct {
	models.PlaylistExport
	TrackCount int `json:"track_count"`
	Duration   int `json:"duration"`
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.searcher.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		// Results are already the empty, searched state; the failure was logged by the aggregator.
		s.logger.Debug("search returned error", "error", err)
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	user, err := s.catalog.Users.Get(claims.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.User)
}

func (s *Server) handleMyLikes(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	liked, err := s.catalog.Likes.ListLiked(r.Context(), claims.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": orEmpty(repositories.Tracks(liked))})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.catalog.Users.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.User.Public())
}

func (s *Server) handleUserTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.catalog.TracksByOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": orEmpty(tracks)})
}

func (s *Server) handleUserPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.catalog.PlaylistsByOwner(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": orEmpty(playlists)})
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	switch {
	case req.Name == "":
		s.fail(w, r, fmt.Errorf("%w: name", shared.ErrMissingArgument))
		return
	case len(req.Name) > maxPlaylistName:
		s.fail(w, r, fmt.Errorf("%w: name longer than %d characters", shared.ErrInvalidArgument, maxPlaylistName))
		return
	case len(req.Description) > maxPlaylistDescription:
		s.fail(w, r, fmt.Errorf("%w: description longer than %d characters", shared.ErrInvalidArgument, maxPlaylistDescription))
		return
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	playlist := models.NewPersistedPlaylist(0, claims.UserID, req.Name, req.Description, public)
	if err := s.catalog.Playlists.Create(playlist); err != nil {
		s.fail(w, r, err)
		return
	}

	s.catalogChanged(r.Context())
	writeJSON(w, http.StatusCreated, playlist.Playlist)
}

// visiblePlaylist loads a playlist, hiding private ones from everyone but the owner.
func (s *Server) visiblePlaylist(r *http.Request) (*models.PersistedPlaylist, error) {
	id := chi.URLParam(r, "id")
	playlist, err := s.catalog.Playlists.Get(id)
	if err != nil {
		return nil, err
	}
	if !playlist.Playlist.Public && playlist.Playlist.OwnerID != viewerID(r) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return playlist, nil
}

// ownedPlaylist loads a playlist the caller owns.
func (s *Server) ownedPlaylist(r *http.Request) (*models.PersistedPlaylist, error) {
	playlist, err := s.visiblePlaylist(r)
	if err != nil {
		return nil, err
	}
	if playlist.Playlist.OwnerID != viewerID(r) {
		return nil, fmt.Errorf("%w: only the owner can change a playlist", shared.ErrForbidden)
	}
	return playlist, nil
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.visiblePlaylist(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	export, err := s.catalog.Playlists.Export(r.Context(), playlist.ID())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	export.Owner = export.Owner.Public()
	export.Tracks = orEmpty(export.Tracks)

	writeJSON(w, http.StatusOK, playlistDetail{
		PlaylistExport: *export,
		TrackCount:     len(export.Tracks),
		Duration:       export.Duration(),
	})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.ownedPlaylist(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.catalog.Playlists.Delete(playlist.ID()); err != nil {
		s.fail(w, r, err)
		return
	}

	s.catalogChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddPlaylistTrack(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.ownedPlaylist(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req addTrackRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.TrackID == "" {
		s.fail(w, r, fmt.Errorf("%w: track_id", shared.ErrMissingArgument))
		return
	}

	if err := s.catalog.Playlists.AddTrack(r.Context(), playlist.ID(), req.TrackID); err != nil {
		s.fail(w, r, err)
		return
	}

	s.catalogChanged(r.Context())
	writeJSON(w, http.StatusCreated, map[string]string{"playlist_id": playlist.ID(), "track_id": req.TrackID})
}

func (s *Server) handleRemovePlaylistTrack(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.ownedPlaylist(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.catalog.Playlists.RemoveTrack(r.Context(), playlist.ID(), chi.URLParam(r, "trackID")); err != nil {
		s.fail(w, r, err)
		return
	}

	s.catalogChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
