package tasks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/repositories"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/storage"
)

const (
	defaultWorkers = 5
	maxWorkers     = 10
	defaultRate    = 5.0
)

// TrackStore persists imported tracks.
type TrackStore interface {
	Create(track *models.PersistedTrack) error
	Exists(ctx context.Context, title, artist string) (bool, error)
}

// UserPicker resolves the uploader of imported tracks.
type UserPicker interface {
	Get(id string) (*models.PersistedUser, error)
	Random(ctx context.Context) (*models.PersistedUser, error)
}

// ImportJobStore records bulk import progress.
type ImportJobStore interface {
	Create(job *models.ImportJob) error
	Update(job *models.ImportJob) error
}

// PlaylistExporter loads a playlist with its owner and ordered tracks.
type PlaylistExporter interface {
	Export(ctx context.Context, playlistID string) (*models.PlaylistExport, error)
}

// ObjectStore holds uploaded media files.
type ObjectStore interface {
	Put(ctx context.Context, name string, r io.Reader) (storage.Object, error)
	Delete(key string) error
}

// Deps wires an [Engine].
type Deps struct {
	Tracks    TrackStore
	Users     UserPicker
	Jobs      ImportJobStore
	Playlists PlaylistExporter
	Store     ObjectStore
	// HTTPClient downloads remote manifest media and export covers. Defaults to a 60s-timeout client.
	HTTPClient *http.Client
	Logger     *log.Logger
	// OnCatalogChange runs after an import adds tracks, e.g. to invalidate the search cache.
	OnCatalogChange func(ctx context.Context) error
}

// DepsFromCatalog fills the persistence dependencies from catalog.
func DepsFromCatalog(catalog *repositories.Catalog, store ObjectStore) Deps {
	return Deps{
		Tracks:    catalog.Tracks,
		Users:     catalog.Users,
		Jobs:      catalog.Imports,
		Playlists: catalog.Playlists,
		Store:     store,
	}
}

// Engine runs long catalog operations: bulk imports from a manifest and bulk playlist exports.
type Engine struct {
	deps   Deps
	client *http.Client
	logger *log.Logger
}

// NewEngine creates an Engine.
func NewEngine(deps Deps) *Engine {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{deps: deps, client: client, logger: shared.WithLogger(logger, "component", "tasks")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// workerOpts normalizes pool size and rate.
func workerOpts(workers int, rate float64) (int, float64) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if rate <= 0 {
		rate = defaultRate
	}
	return workers, rate
}
