// Package storage keeps uploaded audio and cover images on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// DefaultMaxBytes caps a single stored file when no limit is configured.
const DefaultMaxBytes int64 = 50 << 20

// Kind classifies a stored file by extension.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

var allowed = map[string]Kind{
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".ogg":  KindAudio,
	".flac": KindAudio,
	".m4a":  KindAudio,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
}

// KindOf returns the kind of file name by its extension.
func KindOf(name string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	kind, ok := allowed[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", shared.ErrUnsupportedFile, ext)
	}
	return kind, nil
}

// Object describes a stored file.
type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Kind Kind   `json:"kind"`
	Size int64  `json:"size"`
}

// Store writes files under a single directory and names them by random key.
type Store struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// New creates the upload directory if needed. Stored files are served at baseURL/<key>.
func New(dir, baseURL string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: storage directory is required", shared.ErrMissingConfig)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}, nil
}

// MaxBytes returns the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// URL returns the public address of key.
func (s *Store) URL(key string) string { return s.baseURL + "/" + key }

// Put copies r to a new file keyed <uuid><ext>, where ext comes from name.
//
// Unsupported extensions fail with [shared.ErrUnsupportedFile] and content beyond the size limit
// with [shared.ErrFileTooLarge]. Nothing is left on disk after a failure.
func (s *Store) Put(ctx context.Context, name string, r io.Reader) (Object, error) {
	kind, err := KindOf(name)
	if err != nil {
		return Object{}, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(&contextReader{ctx: ctx, r: r}, s.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Object{}, fmt.Errorf("failed to write upload: %w", err)
	}
	if n > s.maxBytes {
		return Object{}, fmt.Errorf("%w: limit is %d bytes", shared.ErrFileTooLarge, s.maxBytes)
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		return Object{}, fmt.Errorf("failed to store upload: %w", err)
	}

	return Object{Key: key, URL: s.URL(key), Kind: kind, Size: n}, nil
}

// Open returns the stored file for reading. Callers close it.
func (s *Store) Open(key string) (*os.File, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes the stored file.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: file %s", shared.ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// path resolves key inside the store, rejecting anything that is not a bare stored name.
func (s *Store) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: storage key %q", shared.ErrInvalidArgument, key)
	}
	if _, err := KindOf(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
