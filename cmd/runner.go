package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"github.com/yagnikpt/tunebox/internal/repositories"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/storage"
	"github.com/yagnikpt/tunebox/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, media store and search cache are opened on first use so commands that need none
// of them, like setup, never touch them.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	ownsDB  bool
	catalog *repositories.Catalog
	store   *storage.Store
	redis   *redis.Client
	cache   *search.Cache
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// DB, when set, is used instead of opening config.Database. The runner does not close it.
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
	if opts.DB != nil {
		r.catalog = repositories.NewCatalog(opts.DB)
	}
	return r
}

// SetLogger replaces the runner's logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, loginCommand, searchCommand, tracksCommand, usersCommand,
		playlistsCommand, seedCommand, exportCommand, playCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases whatever the runner opened.
func (r *Runner) Close() error {
	if r.redis != nil {
		r.redis.Close()
	}
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

// openCatalog opens the configured database, running pending migrations, on first use.
func (r *Runner) openCatalog() (*repositories.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	r.logger.Debug("opening database", "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r.db, r.ownsDB = db, true
	r.catalog = repositories.NewCatalog(db)
	return r.catalog, nil
}

// openStore creates the media store on first use.
func (r *Runner) openStore() (*storage.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	store, err := storage.New(r.config.Storage.Dir, r.config.Storage.BaseURL, r.config.Server.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

// searcher returns the catalog aggregator, wrapped in the Redis cache when search.redis_url is set.
func (r *Runner) searcher() (search.Searcher, error) {
	catalog, err := r.openCatalog()
	if err != nil {
		return nil, err
	}

	aggregator := search.NewAggregator(catalog, catalog, catalog, r.logger)
	cache, err := r.searchCache(aggregator)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		return cache, nil
	}
	return aggregator, nil
}

// searchCache returns nil when no Redis URL is configured.
func (r *Runner) searchCache(searcher search.Searcher) (*search.Cache, error) {
	if r.cache != nil {
		return r.cache, nil
	}
	if r.config.Search.RedisURL == "" {
		return nil, nil
	}

	client, err := search.NewRedisClient(r.config.Search.RedisURL)
	if err != nil {
		return nil, err
	}
	r.redis = client
	r.cache = search.NewCache(client, searcher, r.config.Search.CacheTTL(), r.logger)
	return r.cache, nil
}

// catalogChanged invalidates cached searches after a CLI write. Without Redis there is nothing to do.
func (r *Runner) catalogChanged(ctx context.Context) error {
	if r.config.Search.RedisURL == "" {
		return nil
	}

	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}
	cache, err := r.searchCache(search.NewAggregator(catalog, catalog, catalog, r.logger))
	if err != nil {
		return err
	}
	if err := cache.Invalidate(ctx); err != nil {
		r.logger.Warn("failed to invalidate search cache", "error", err)
	}
	return nil
}

// engine builds a task engine over the catalog and media store.
func (r *Runner) engine() (*tasks.Engine, error) {
	catalog, err := r.openCatalog()
	if err != nil {
		return nil, err
	}
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	deps := tasks.DepsFromCatalog(catalog, store)
	deps.HTTPClient = r.httpClient
	deps.Logger = r.logger
	deps.OnCatalogChange = r.catalogChanged
	return tasks.NewEngine(deps), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
