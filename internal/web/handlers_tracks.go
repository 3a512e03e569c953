package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/repositories"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// multipartMemory is kept in memory before form files spill to disk.
	multipartMemory = 8 << 20
)

type trackPage struct {
	Tracks []models.Track `json:"tracks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type trackDetail struct {
	models.Track
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit = min(max(limit, 1), maxPageSize)

	tracks, total, err := s.catalog.Tracks.ListPaginated(r.Context(), limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page := trackPage{Tracks: repositories.Tracks(tracks), Total: total, Limit: limit, Offset: offset}
	if page.Tracks == nil {
		page.Tracks = []models.Track{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.catalog.Tracks.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	detail := trackDetail{Track: track.Track}
	if detail.Likes, err = s.catalog.Likes.Count(r.Context(), track.ID()); err != nil {
		s.fail(w, r, err)
		return
	}
	if viewer := viewerID(r); viewer != "" {
		if detail.Liked, err = s.catalog.Likes.IsLiked(r.Context(), viewer, track.ID()); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleUploadTrack stores a multipart upload: fields title, artist, genre, description,
// duration; files audio (required) and cover.
func (s *Server) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	// Form overhead on top of the audio and cover files.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.store.MaxBytes()+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, shared.ErrFileTooLarge)
			return
		}
		s.fail(w, r, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	dto := models.Track{
		OwnerID:     claims.UserID,
		Title:       strings.TrimSpace(r.FormValue("title")),
		Artist:      strings.TrimSpace(r.FormValue("artist")),
		Genre:       strings.TrimSpace(r.FormValue("genre")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if raw := r.FormValue("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			s.fail(w, r, fmt.Errorf("%w: duration must be a non-negative integer", shared.ErrInvalidArgument))
			return
		}
		dto.Duration = d
	}
	if dto.Title == "" || dto.Artist == "" {
		s.fail(w, r, fmt.Errorf("%w: title and artist", shared.ErrMissingArgument))
		return
	}

	audio, err := s.storeFormFile(r, "audio", storage.KindAudio)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dto.FileURL, dto.FileKey = audio.URL, audio.Key

	if len(r.MultipartForm.File["cover"]) > 0 {
		cover, err := s.storeFormFile(r, "cover", storage.KindImage)
		if err != nil {
			s.removeMedia(audio.Key)
			s.fail(w, r, err)
			return
		}
		dto.CoverURL, dto.CoverKey = cover.URL, cover.Key
	}

	track := models.NewPersistedTrack(0, dto)
	if err := s.catalog.Tracks.Create(track); err != nil {
		s.removeMedia(dto.FileKey, dto.CoverKey)
		s.fail(w, r, err)
		return
	}

	s.logger.Info("track uploaded", "track", track.ID(), "user", claims.UserID, "title", dto.Title)
	s.catalogChanged(r.Context())
	writeJSON(w, http.StatusCreated, track.Track)
}

func (s *Server) storeFormFile(r *http.Request, field string, kind storage.Kind) (storage.Object, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return storage.Object{}, fmt.Errorf("%w: %s file", shared.ErrMissingArgument, field)
	}
	if err != nil {
		return storage.Object{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer file.Close()

	if err := checkKind(header, kind); err != nil {
		return storage.Object{}, err
	}
	return s.store.Put(r.Context(), header.Filename, file)
}

func checkKind(header *multipart.FileHeader, want storage.Kind) error {
	kind, err := storage.KindOf(header.Filename)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: %s is not %s", shared.ErrUnsupportedFile, header.Filename, want)
	}
	return nil
}

func (s *Server) removeMedia(keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(key); err != nil && !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("failed to remove media", "key", key, "error", err)
		}
	}
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	track, err := s.catalog.Tracks.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if track.Track.OwnerID != claims.UserID {
		s.fail(w, r, fmt.Errorf("%w: only the uploader can delete a track", shared.ErrForbidden))
		return
	}

	if err := s.catalog.Tracks.Delete(track.ID()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.removeMedia(track.Track.FileKey, track.Track.CoverKey)

	s.logger.Info("track deleted", "track", track.ID(), "user", claims.UserID)
	s.catalogChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	if err := s.catalog.Likes.Like(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": true})
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	if err := s.catalog.Likes.Unlike(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": false})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	f, err := s.store.Open(key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	http.ServeContent(w, r, key, info.ModTime(), f)
}
