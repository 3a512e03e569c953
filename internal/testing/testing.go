// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yagnikpt/tunebox/internal/models"
)

// MockCatalog is a test double for the track, user and playlist search collaborators.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) SearchTracks(ctx context.Context, q string) ([]models.Track, error) {
	args := m.Called(ctx, q)
	if v := args.Get(0); v != nil {
		return v.([]models.Track), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) SearchUsers(ctx context.Context, q string) ([]models.User, error) {
	args := m.Called(ctx, q)
	if v := args.Get(0); v != nil {
		return v.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) SearchPlaylists(ctx context.Context, q string) ([]models.PlaylistSummary, error) {
	args := m.Called(ctx, q)
	if v := args.Get(0); v != nil {
		return v.([]models.PlaylistSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// Track builds a track fixture with a media URL derived from id.
func Track(id, title, artist string) models.Track {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.Track{
		ID:        id,
		OwnerID:   "owner",
		Title:     title,
		Artist:    artist,
		FileURL:   "http://media/" + id + ".mp3",
		FileKey:   id + ".mp3",
		Duration:  180,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// User builds a user fixture.
func User(id, username string) models.User {
	return models.User{ID: id, Username: username}
}

// PlaylistSummary builds a public playlist summary fixture owned by owner.
func PlaylistSummary(id, name, description string, owner models.User, preview ...models.Track) models.PlaylistSummary {
	return models.PlaylistSummary{
		Playlist:   models.Playlist{ID: id, OwnerID: owner.ID, Name: name, Description: description, Public: true},
		Owner:      owner,
		Preview:    preview,
		TrackCount: len(preview),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	requests []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	return m.response, m.err
}

// Requests returns every request seen so far.
func (m *MockRoundTripper) Requests() []*http.Request { return m.requests }

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("File still exists: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustWriteFile writes content to path, failing the test on error.
func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
