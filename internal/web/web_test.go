package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/repositories"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/storage"
)

const testSecret = "webhook-secret"

type apiFixture struct {
	catalog *repositories.Catalog
	store   *storage.Store
	tokens  *TokenIssuer
	server  *Server
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, shared.RunMigrations(db))

	store, err := storage.New(filepath.Join(t.TempDir(), "uploads"), "http://localhost/media", 1<<20)
	require.NoError(t, err)

	tokens, err := NewTokenIssuer("jwt-secret", time.Hour)
	require.NoError(t, err)

	catalog := repositories.NewCatalog(db)
	srv := NewServer(Options{
		Catalog:       catalog,
		Store:         store,
		Tokens:        tokens,
		WebhookSecret: testSecret,
		Debounce:      10 * time.Millisecond,
		Logger:        shared.NewLogger(io.Discard),
	})

	return &apiFixture{catalog: catalog, store: store, tokens: tokens, server: srv, handler: srv.Router()}
}

func (f *apiFixture) user(t *testing.T, name string) *models.PersistedUser {
	t.Helper()
	u := models.NewUser(0, "ext-"+name, name, name+"@example.com")
	require.NoError(t, f.catalog.Users.Create(u))
	return u
}

func (f *apiFixture) token(t *testing.T, u *models.PersistedUser) string {
	t.Helper()
	token, err := f.tokens.Issue(u.User)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) track(t *testing.T, owner *models.PersistedUser, title, artist string) *models.PersistedTrack {
	t.Helper()
	obj, err := f.store.Put(context.Background(), "song.mp3", strings.NewReader("audio"))
	require.NoError(t, err)

	track := models.NewPersistedTrack(0, models.Track{
		OwnerID:  owner.ID(),
		Title:    title,
		Artist:   artist,
		FileURL:  obj.URL,
		FileKey:  obj.Key,
		Duration: 120,
	})
	require.NoError(t, f.catalog.Tracks.Create(track))
	return track
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) doJSON(t *testing.T, method, path, token string, v any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return f.do(t, method, path, token, bytes.NewReader(data), "Content-Type", "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestTokenIssuer(t *testing.T) {
	user := models.User{ID: "u1", Username: "ada"}

	t.Run("round trip", func(t *testing.T) {
		issuer, err := NewTokenIssuer("secret", time.Hour)
		require.NoError(t, err)

		raw, err := issuer.Issue(user)
		require.NoError(t, err)

		claims, err := issuer.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		assert.Equal(t, "ada", claims.Username)
		assert.Equal(t, "tunebox", claims.Issuer)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := NewTokenIssuer("", time.Hour)
		assert.ErrorIs(t, err, shared.ErrMissingConfig)
	})

	t.Run("expired", func(t *testing.T) {
		issuer, err := NewTokenIssuer("secret", time.Minute)
		require.NoError(t, err)
		issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

		raw, err := issuer.Issue(user)
		require.NoError(t, err)

		issuer.now = time.Now
		_, err = issuer.Parse(raw)
		assert.ErrorIs(t, err, shared.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		a, _ := NewTokenIssuer("secret-a", time.Hour)
		b, _ := NewTokenIssuer("secret-b", time.Hour)

		raw, err := a.Issue(user)
		require.NoError(t, err)

		_, err = b.Parse(raw)
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		issuer, _ := NewTokenIssuer("secret", time.Hour)
		claims := &Claims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "tunebox",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = issuer.Parse(raw)
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		issuer, _ := NewTokenIssuer("secret", time.Hour)
		claims := &Claims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = issuer.Parse(raw)
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})
}

func TestAuthMiddleware(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{name: "missing token", path: "/api/me", status: http.StatusUnauthorized},
		{name: "garbage token", path: "/api/me", token: "not-a-jwt", status: http.StatusUnauthorized},
		{name: "valid token", path: "/api/me", token: f.token(t, ada), status: http.StatusOK},
		{name: "optional auth ignores garbage", path: "/api/tracks", token: "not-a-jwt", status: http.StatusOK},
		{name: "optional auth anonymous", path: "/api/tracks", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("me returns the caller", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/me", f.token(t, ada), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decode[models.User](t, rec)
		assert.Equal(t, ada.ID(), me.ID)
		assert.Equal(t, "ada@example.com", me.Email)
	})

	t.Run("no issuer configured", func(t *testing.T) {
		srv := NewServer(Options{Catalog: f.catalog, Store: f.store, Logger: shared.NewLogger(io.Discard)})
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer x")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestLoginWithoutIdentity(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/login", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIdentityWebhook(t *testing.T) {
	f := newAPIFixture(t)

	event := func(typ, id, email string) []byte {
		evt := map[string]any{
			"type": typ,
			"data": map[string]any{
				"id":              id,
				"username":        "grace",
				"email_addresses": []map[string]string{{"email_address": email}},
				"image_url":       "http://img/grace.png",
			},
		}
		data, err := json.Marshal(evt)
		require.NoError(t, err)
		return data
	}

	post := func(body []byte, signature string) *httptest.ResponseRecorder {
		return f.do(t, http.MethodPost, "/api/webhooks/identity", "", bytes.NewReader(body), SignatureHeader, signature)
	}

	t.Run("rejects bad signature", func(t *testing.T) {
		body := event("user.created", "ext-grace", "grace@example.com")
		rec := post(body, Sign("other-secret", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = post(body, "zz")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("creates user", func(t *testing.T) {
		body := event("user.created", "ext-grace", "grace@example.com")
		rec := post(body, Sign(testSecret, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "created", decode[map[string]any](t, rec)["status"])

		user, err := f.catalog.Users.GetByExternalID("ext-grace")
		require.NoError(t, err)
		assert.Equal(t, "grace", user.User.Username)
		assert.Equal(t, "http://img/grace.png", user.User.AvatarURL)
	})

	t.Run("existing user", func(t *testing.T) {
		body := event("user.created", "ext-grace", "grace@example.com")
		rec := post(body, Sign(testSecret, body))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "exists", decode[map[string]any](t, rec)["status"])
	})

	t.Run("no email", func(t *testing.T) {
		body := event("user.created", "ext-noemail", "")
		rec := post(body, Sign(testSecret, body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no email found", decode[errorBody](t, rec).Error)
	})

	t.Run("ignores other events", func(t *testing.T) {
		body := event("user.deleted", "ext-grace", "grace@example.com")
		rec := post(body, Sign(testSecret, body))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ignored", decode[map[string]any](t, rec)["status"])
	})

	t.Run("missing secret", func(t *testing.T) {
		srv := NewServer(Options{Catalog: f.catalog, Store: f.store, Logger: shared.NewLogger(io.Discard)})
		body := event("user.created", "ext-x", "x@example.com")
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

type formFile struct {
	field, name, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, file := range files {
		part, err := w.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestTracks(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")
	bob := f.user(t, "bob")

	upload := func(token string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, fields, files...)
		return f.do(t, http.MethodPost, "/api/tracks", token, body, "Content-Type", contentType)
	}

	var uploaded models.Track

	t.Run("upload", func(t *testing.T) {
		rec := upload(f.token(t, ada),
			map[string]string{"title": " Blue Train ", "artist": "Coltrane", "genre": "jazz", "duration": "642"},
			formFile{"audio", "train.mp3", "audio-bytes"},
			formFile{"cover", "cover.png", "png-bytes"},
		)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		uploaded = decode[models.Track](t, rec)
		assert.NotEmpty(t, uploaded.ID)
		assert.Equal(t, ada.ID(), uploaded.OwnerID)
		assert.Equal(t, "Blue Train", uploaded.Title)
		assert.Equal(t, 642, uploaded.Duration)
		assert.True(t, strings.HasPrefix(uploaded.FileURL, "http://localhost/media/"))
		assert.NotEmpty(t, uploaded.CoverURL)
	})

	t.Run("upload errors", func(t *testing.T) {
		tests := []struct {
			name   string
			token  string
			fields map[string]string
			files  []formFile
			status int
		}{
			{
				name:   "anonymous",
				fields: map[string]string{"title": "a", "artist": "b"},
				files:  []formFile{{"audio", "a.mp3", "x"}},
				status: http.StatusUnauthorized,
			},
			{
				name:   "missing audio",
				token:  f.token(t, ada),
				fields: map[string]string{"title": "a", "artist": "b"},
				status: http.StatusBadRequest,
			},
			{
				name:   "missing title",
				token:  f.token(t, ada),
				fields: map[string]string{"artist": "b"},
				files:  []formFile{{"audio", "a.mp3", "x"}},
				status: http.StatusBadRequest,
			},
			{
				name:   "image as audio",
				token:  f.token(t, ada),
				fields: map[string]string{"title": "a", "artist": "b"},
				files:  []formFile{{"audio", "a.png", "x"}},
				status: http.StatusBadRequest,
			},
			{
				name:   "unsupported extension",
				token:  f.token(t, ada),
				fields: map[string]string{"title": "a", "artist": "b"},
				files:  []formFile{{"audio", "a.exe", "x"}},
				status: http.StatusBadRequest,
			},
			{
				name:   "bad duration",
				token:  f.token(t, ada),
				fields: map[string]string{"title": "a", "artist": "b", "duration": "-3"},
				files:  []formFile{{"audio", "a.mp3", "x"}},
				status: http.StatusBadRequest,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := upload(tt.token, tt.fields, tt.files...)
				assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			})
		}
	})

	t.Run("list", func(t *testing.T) {
		f.track(t, bob, "Giant Steps", "Coltrane")

		rec := f.do(t, http.MethodGet, "/api/tracks?limit=1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decode[trackPage](t, rec)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, 1, page.Limit)
		assert.Len(t, page.Tracks, 1)

		rec = f.do(t, http.MethodGet, "/api/tracks?limit=abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/tracks/"+uploaded.ID, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		detail := decode[trackDetail](t, rec)
		assert.Equal(t, "Blue Train", detail.Title)
		assert.Equal(t, 0, detail.Likes)
		assert.False(t, detail.Liked)

		rec = f.do(t, http.MethodGet, "/api/tracks/missing", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("media", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/media/"+uploaded.FileKey, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio-bytes", rec.Body.String())

		rec = f.do(t, http.MethodGet, "/media/nope.mp3", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("user tracks", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/users/"+ada.ID()+"/tracks", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[struct {
			Tracks []models.Track `json:"tracks"`
		}](t, rec)
		require.Len(t, body.Tracks, 1)
		assert.Equal(t, uploaded.ID, body.Tracks[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/api/tracks/"+uploaded.ID, f.token(t, bob), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, http.MethodDelete, "/api/tracks/"+uploaded.ID, f.token(t, ada), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/tracks/"+uploaded.ID, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.do(t, http.MethodGet, "/media/"+uploaded.FileKey, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLikes(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")
	track := f.track(t, ada, "So What", "Miles Davis")
	token := f.token(t, ada)

	rec := f.do(t, http.MethodPost, "/api/tracks/"+track.ID()+"/like", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[map[string]bool](t, rec)["liked"])

	rec = f.do(t, http.MethodGet, "/api/tracks/"+track.ID(), token, nil)
	detail := decode[trackDetail](t, rec)
	assert.Equal(t, 1, detail.Likes)
	assert.True(t, detail.Liked)

	rec = f.do(t, http.MethodGet, "/api/tracks/"+track.ID(), "", nil)
	assert.False(t, decode[trackDetail](t, rec).Liked)

	rec = f.do(t, http.MethodGet, "/api/me/likes", token, nil)
	likes := decode[struct {
		Tracks []models.Track `json:"tracks"`
	}](t, rec)
	require.Len(t, likes.Tracks, 1)
	assert.Equal(t, track.ID(), likes.Tracks[0].ID)

	rec = f.do(t, http.MethodDelete, "/api/tracks/"+track.ID()+"/like", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[map[string]bool](t, rec)["liked"])

	rec = f.do(t, http.MethodPost, "/api/tracks/missing/like", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaylists(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")
	bob := f.user(t, "bob")
	track := f.track(t, ada, "Naima", "Coltrane")
	adaToken, bobToken := f.token(t, ada), f.token(t, bob)

	private := false
	rec := f.doJSON(t, http.MethodPost, "/api/playlists", adaToken, createPlaylistRequest{Name: " Late ", Public: &private})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	playlist := decode[models.Playlist](t, rec)
	assert.Equal(t, "Late", playlist.Name)
	assert.False(t, playlist.Public)

	path := "/api/playlists/" + playlist.ID

	t.Run("create validation", func(t *testing.T) {
		tests := []struct {
			name string
			body any
		}{
			{name: "blank name", body: map[string]any{"name": "  "}},
			{name: "long name", body: map[string]any{"name": strings.Repeat("x", 201)}},
			{name: "long description", body: map[string]any{"name": "ok", "description": strings.Repeat("x", 1001)}},
			{name: "unknown field", body: map[string]any{"name": "ok", "owner": "me"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := f.doJSON(t, http.MethodPost, "/api/playlists", adaToken, tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})

	t.Run("defaults to public", func(t *testing.T) {
		rec := f.doJSON(t, http.MethodPost, "/api/playlists", bobToken, map[string]any{"name": "Open"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, decode[models.Playlist](t, rec).Public)
	})

	t.Run("private visibility", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, "", nil).Code)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, bobToken, nil).Code)
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, adaToken, nil).Code)

		rec := f.do(t, http.MethodGet, "/api/users/"+ada.ID()+"/playlists", "", nil)
		anon := decode[struct {
			Playlists []models.PlaylistSummary `json:"playlists"`
		}](t, rec)
		assert.Empty(t, anon.Playlists)

		rec = f.do(t, http.MethodGet, "/api/users/"+ada.ID()+"/playlists", adaToken, nil)
		own := decode[struct {
			Playlists []models.PlaylistSummary `json:"playlists"`
		}](t, rec)
		assert.Len(t, own.Playlists, 1)
	})

	t.Run("tracks", func(t *testing.T) {
		add := func(token string) *httptest.ResponseRecorder {
			return f.doJSON(t, http.MethodPost, path+"/tracks", token, addTrackRequest{TrackID: track.ID()})
		}

		assert.Equal(t, http.StatusNotFound, add(bobToken).Code)
		assert.Equal(t, http.StatusCreated, add(adaToken).Code)
		assert.Equal(t, http.StatusConflict, add(adaToken).Code)

		rec := f.do(t, http.MethodGet, path, adaToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		detail := decode[playlistDetail](t, rec)
		assert.Equal(t, 1, detail.TrackCount)
		assert.Equal(t, 120, detail.Duration)
		assert.Equal(t, "ada", detail.Owner.Username)
		assert.Empty(t, detail.Owner.Email)

		rec = f.doJSON(t, http.MethodPost, path+"/tracks", adaToken, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, http.MethodDelete, path+"/tracks/"+track.ID(), adaToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		detail = decode[playlistDetail](t, f.do(t, http.MethodGet, path, adaToken, nil))
		assert.Equal(t, 0, detail.TrackCount)
		assert.NotNil(t, detail.Tracks)
	})

	t.Run("owner only changes", func(t *testing.T) {
		rec := f.doJSON(t, http.MethodPost, "/api/playlists", adaToken, map[string]any{"name": "Shared"})
		require.Equal(t, http.StatusCreated, rec.Code)
		shared := decode[models.Playlist](t, rec)

		rec = f.do(t, http.MethodDelete, "/api/playlists/"+shared.ID, bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, http.MethodDelete, "/api/playlists/"+shared.ID, adaToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/playlists/"+shared.ID, adaToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")
	f.track(t, ada, "Moanin", "Art Blakey")

	rec := f.do(t, http.MethodGet, "/api/search?q=moanin", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	results := decode[search.Results](t, rec)
	assert.True(t, results.HasSearched)
	require.Equal(t, 1, results.Len())
	assert.Equal(t, search.KindTrack, results.Items[0].Kind())

	rec = f.do(t, http.MethodGet, "/api/search?q=%20%20", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	blank := decode[search.Results](t, rec)
	assert.False(t, blank.HasSearched)
	assert.Zero(t, blank.Len())
}

type countingRefresher struct {
	n atomic.Int32
}

func (c *countingRefresher) Refresh() { c.n.Add(1) }

func TestHub(t *testing.T) {
	hub := NewHub()
	a, b := &countingRefresher{}, &countingRefresher{}

	unregisterA := hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.Len())

	hub.RefreshAll()
	unregisterA()
	hub.RefreshAll()

	assert.Equal(t, 1, hub.Len())
	assert.EqualValues(t, 1, a.n.Load())
	assert.EqualValues(t, 2, b.n.Load())
}

func TestCatalogChangeRefreshesLiveSearches(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")
	r := &countingRefresher{}
	f.server.Hub().Register(r)

	rec := f.doJSON(t, http.MethodPost, "/api/playlists", f.token(t, ada), map[string]any{"name": "Mix"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 1, r.n.Load())
}

func dial(t *testing.T, f *apiFixture, path string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.handler)
	t.Cleanup(ts.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+path, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSearchSocket(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")
	f.track(t, ada, "Footprints", "Wayne Shorter")

	conn := dial(t, f, "/ws/search")
	require.Eventually(t, func() bool { return f.server.Hub().Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("foot")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var results search.Results
	require.NoError(t, conn.ReadJSON(&results))
	assert.Equal(t, "foot", results.Query)
	assert.True(t, results.HasSearched)
	require.Equal(t, 1, results.Len())

	t.Run("catalog change refreshes", func(t *testing.T) {
		f.track(t, ada, "Footloose", "Kenny Loggins")
		f.server.Hub().RefreshAll()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var refreshed search.Results
		require.NoError(t, conn.ReadJSON(&refreshed))
		assert.Equal(t, 2, refreshed.Len())
	})

	conn.Close()
	assert.Eventually(t, func() bool { return f.server.Hub().Len() == 0 }, time.Second, 5*time.Millisecond)
}

type wireState struct {
	Current *models.Track  `json:"current"`
	Status  string         `json:"status"`
	Volume  float64        `json:"volume"`
	Queue   []models.Track `json:"queue"`
	Index   int            `json:"index"`
}

type wirePlayerMessage struct {
	Type  string     `json:"type"`
	State *wireState `json:"state"`
	Error string     `json:"error"`
}

func TestPlayerSocket(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.user(t, "ada")
	first := f.track(t, ada, "Autumn Leaves", "Cannonball Adderley")
	second := f.track(t, ada, "Blue in Green", "Miles Davis")

	conn := dial(t, f, "/ws/player")

	// read returns the next message matching pred, skipping intermediate states.
	read := func(pred func(wirePlayerMessage) bool) wirePlayerMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			var msg wirePlayerMessage
			require.NoError(t, conn.ReadJSON(&msg))
			if pred(msg) {
				return msg
			}
		}
	}
	send := func(v any) {
		t.Helper()
		require.NoError(t, conn.WriteJSON(v))
	}

	initial := read(func(m wirePlayerMessage) bool { return m.Type == "state" })
	assert.Equal(t, "idle", initial.State.Status)
	assert.Equal(t, -1, initial.State.Index)

	send(map[string]any{"type": "play", "track_id": first.ID(), "queue": []string{first.ID(), second.ID()}})
	playing := read(func(m wirePlayerMessage) bool {
		return m.Type == "state" && m.State.Status == "playing"
	})
	require.NotNil(t, playing.State.Current)
	assert.Equal(t, first.ID(), playing.State.Current.ID)
	assert.Len(t, playing.State.Queue, 2)

	send(map[string]any{"type": "next"})
	next := read(func(m wirePlayerMessage) bool {
		return m.Type == "state" && m.State.Current != nil && m.State.Current.ID == second.ID()
	})
	assert.Equal(t, 1, next.State.Index)

	send(map[string]any{"type": "volume", "volume": 0.25})
	read(func(m wirePlayerMessage) bool { return m.Type == "state" && m.State.Volume == 0.25 })

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			msg  any
		}{
			{name: "unknown track", msg: map[string]any{"type": "play", "track_id": "missing"}},
			{name: "missing seconds", msg: map[string]any{"type": "seek"}},
			{name: "unknown command", msg: map[string]any{"type": "rewind"}},
			{name: "malformed", msg: "not an object"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				send(tt.msg)
				msg := read(func(m wirePlayerMessage) bool { return m.Type == "error" })
				assert.NotEmpty(t, msg.Error)
			})
		}
	})

	send(map[string]any{"type": "clear"})
	cleared := read(func(m wirePlayerMessage) bool { return m.Type == "state" && len(m.State.Queue) == 0 })
	assert.Nil(t, cleared.State.Current)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{shared.ErrTrackNotFound, http.StatusNotFound},
		{shared.ErrAlreadyExists, http.StatusConflict},
		{shared.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{shared.ErrUnsupportedFile, http.StatusBadRequest},
		{shared.ErrInvalidSignature, http.StatusBadRequest},
		{shared.ErrTokenExpired, http.StatusUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden},
		{shared.ErrMissingConfig, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}
