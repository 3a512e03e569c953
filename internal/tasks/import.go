package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/storage"
	"golang.org/x/time/rate"
)

// ManifestEntry describes one track to import.
//
// Audio and Cover are http(s) URLs or file paths relative to the manifest.
type ManifestEntry struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Genre       string `json:"genre,omitempty"`
	Description string `json:"description,omitempty"`
	Audio       string `json:"audio"`
	Cover       string `json:"cover,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

// Manifest is a bulk import source.
type Manifest struct {
	Source string          `json:"-"`
	Dir    string          `json:"-"`
	Tracks []ManifestEntry `json:"tracks"`
}

// LoadManifest reads a JSON manifest of the form {"tracks": [...]}.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", shared.ErrInvalidInput, err)
	}
	if len(m.Tracks) == 0 {
		return nil, fmt.Errorf("%w: manifest has no tracks", shared.ErrInvalidInput)
	}

	m.Source = path
	m.Dir = filepath.Dir(path)
	return &m, nil
}

// ImportOpts configures [Engine.Import].
type ImportOpts struct {
	UserID     string  // Uploader of every track; empty picks a random user per track
	NumWorkers int     // Concurrent downloads (default: 5, max: 10)
	RateLimit  float64 // Media fetches per second (default: 5)
}

// TrackImportResult is the outcome for one manifest entry.
type TrackImportResult struct {
	Entry   ManifestEntry
	Track   *models.Track
	Skipped bool
	Error   error
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Job      *models.ImportJob
	Imported int
	Skipped  int
	Failed   int
	Results  []TrackImportResult
}

type importJob struct {
	index int
	entry ManifestEntry
}

type prepared struct {
	index int
	entry ManifestEntry
	audio storage.Object
	cover *storage.Object
	err   error
}

// Import stores every manifest entry's media and creates its track, recording progress in an
// [models.ImportJob].
//
// Entries whose title and artist already exist, in the catalog or earlier in the manifest, are
// skipped. Media is fetched by a rate-limited worker pool; database writes happen on the calling
// goroutine. A single failed entry does not fail the import.
func (e *Engine) Import(ctx context.Context, prog chan<- ProgressUpdate, m *Manifest, opts ImportOpts) (*ImportResult, error) {
	if e.deps.Tracks == nil || e.deps.Users == nil || e.deps.Jobs == nil || e.deps.Store == nil {
		return nil, fmt.Errorf("%w: import dependencies not initialized", shared.ErrServiceUnavailable)
	}

	var fixed *models.PersistedUser
	if opts.UserID != "" {
		u, err := e.deps.Users.Get(opts.UserID)
		if err != nil {
			return nil, err
		}
		fixed = u
	} else if _, err := e.deps.Users.Random(ctx); err != nil {
		return nil, fmt.Errorf("%w: create at least one user before seeding", err)
	}

	job := models.NewImportJob(0, opts.UserID, m.Source)
	if err := e.deps.Jobs.Create(job); err != nil {
		return nil, fmt.Errorf("failed to record import job: %w", err)
	}

	total := len(m.Tracks)
	job.Start(total)
	if err := e.deps.Jobs.Update(job); err != nil {
		return nil, fmt.Errorf("failed to start import job: %w", err)
	}

	e.sendProgress(prog, loadManifestUpdate(total, m.Source))
	logger := e.logger.With("job", job.ID(), "source", m.Source)
	logger.Info("import started", "tracks", total)

	result := &ImportResult{Job: job, Results: make([]TrackImportResult, total)}
	for i, entry := range m.Tracks {
		result.Results[i].Entry = entry
	}

	workers, rps := workerOpts(opts.NumWorkers, opts.RateLimit)
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	jobs := make(chan importJob, total)
	ready := make(chan prepared, total)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go e.importWorker(ctx, &wg, limiter, m.Dir, jobs, ready)
	}

	seen := make(map[string]bool, total)
	for i, entry := range m.Tracks {
		if err := validateEntry(entry); err != nil {
			ready <- prepared{index: i, entry: entry, err: err}
			continue
		}

		key := strings.ToLower(entry.Title) + "\x00" + strings.ToLower(entry.Artist)
		exists := seen[key]
		if !exists {
			var err error
			if exists, err = e.deps.Tracks.Exists(ctx, entry.Title, entry.Artist); err != nil {
				ready <- prepared{index: i, entry: entry, err: err}
				continue
			}
		}
		seen[key] = true

		if exists {
			result.Results[i].Skipped = true
			result.Skipped++
			e.sendProgress(prog, trackSkippedUpdate(i+1, total, entry))
			continue
		}
		jobs <- importJob{index: i, entry: entry}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(ready)
	}()

	processed := result.Skipped
	for p := range ready {
		processed++
		res := &result.Results[p.index]

		if p.err == nil {
			res.Track, p.err = e.createTrack(ctx, p, fixed)
		}
		if p.err != nil {
			res.Error = p.err
			result.Failed++
			job.Record(false)
			logger.Warn("track import failed", "title", p.entry.Title, "artist", p.entry.Artist, "error", p.err)
			e.sendProgress(prog, trackFailedUpdate(processed, total, p.entry, p.err))
			continue
		}

		result.Imported++
		job.Record(true)
		e.sendProgress(prog, trackImportedUpdate(processed, total, *res.Track))
	}

	var runErr error
	if err := ctx.Err(); err != nil {
		runErr = fmt.Errorf("import interrupted: %w", err)
	}
	job.Finish(runErr)
	if err := e.deps.Jobs.Update(job); err != nil {
		logger.Error("failed to finish import job", "error", err)
	}

	if result.Imported > 0 && e.deps.OnCatalogChange != nil {
		if err := e.deps.OnCatalogChange(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("catalog change hook failed", "error", err)
		}
	}

	logger.Info("import finished", "imported", result.Imported, "skipped", result.Skipped, "failed", result.Failed)
	return result, runErr
}

func (e *Engine) importWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	dir string,
	jobs <-chan importJob,
	ready chan<- prepared,
) {
	defer wg.Done()

	for j := range jobs {
		p := prepared{index: j.index, entry: j.entry}

		if err := limiter.Wait(ctx); err != nil {
			p.err = err
			ready <- p
			continue
		}

		p.audio, p.err = e.fetch(ctx, dir, j.entry.Audio)
		if p.err == nil && j.entry.Cover != "" {
			if cover, err := e.fetch(ctx, dir, j.entry.Cover); err != nil {
				e.logger.Warn("skipping cover", "title", j.entry.Title, "error", err)
			} else {
				p.cover = &cover
			}
		}
		ready <- p
	}
}

// createTrack inserts the prepared track, removing its stored media if the insert fails.
func (e *Engine) createTrack(ctx context.Context, p prepared, fixed *models.PersistedUser) (*models.Track, error) {
	owner := fixed
	if owner == nil {
		u, err := e.deps.Users.Random(ctx)
		if err != nil {
			e.discard(p)
			return nil, err
		}
		owner = u
	}

	dto := models.Track{
		OwnerID:     owner.ID(),
		Title:       strings.TrimSpace(p.entry.Title),
		Artist:      strings.TrimSpace(p.entry.Artist),
		Genre:       p.entry.Genre,
		Description: p.entry.Description,
		FileURL:     p.audio.URL,
		FileKey:     p.audio.Key,
		Duration:    p.entry.Duration,
	}
	if p.cover != nil {
		dto.CoverURL, dto.CoverKey = p.cover.URL, p.cover.Key
	}

	track := models.NewPersistedTrack(0, dto)
	if err := e.deps.Tracks.Create(track); err != nil {
		e.discard(p)
		return nil, err
	}
	return &track.Track, nil
}

func (e *Engine) discard(p prepared) {
	keys := []string{p.audio.Key}
	if p.cover != nil {
		keys = append(keys, p.cover.Key)
	}
	for _, key := range keys {
		if err := e.deps.Store.Delete(key); err != nil && !errors.Is(err, shared.ErrNotFound) {
			e.logger.Warn("failed to remove orphaned media", "key", key, "error", err)
		}
	}
}

// fetch copies a manifest media reference into the object store.
func (e *Engine) fetch(ctx context.Context, dir, ref string) (storage.Object, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return storage.Object{}, fmt.Errorf("%w: media url %q", shared.ErrInvalidInput, ref)
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return storage.Object{}, fmt.Errorf("failed to download %s: %w", ref, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return storage.Object{}, fmt.Errorf("failed to download %s: status %d", ref, resp.StatusCode)
		}
		return e.deps.Store.Put(ctx, path.Base(req.URL.Path), resp.Body)
	}

	if !filepath.IsAbs(ref) {
		ref = filepath.Join(dir, ref)
	}
	f, err := os.Open(ref)
	if err != nil {
		return storage.Object{}, fmt.Errorf("failed to open %s: %w", ref, err)
	}
	defer f.Close()

	return e.deps.Store.Put(ctx, filepath.Base(ref), f)
}

func validateEntry(entry ManifestEntry) error {
	switch {
	case strings.TrimSpace(entry.Title) == "":
		return fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	case strings.TrimSpace(entry.Artist) == "":
		return fmt.Errorf("%w: artist is required", shared.ErrInvalidInput)
	case entry.Audio == "":
		return fmt.Errorf("%w: audio is required", shared.ErrInvalidInput)
	case entry.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative", shared.ErrInvalidInput)
	}
	return nil
}
