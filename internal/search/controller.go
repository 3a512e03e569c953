package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// DefaultDebounce is the quiet period after the last keystroke before a search runs.
const DefaultDebounce = 300 * time.Millisecond

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Debounce time.Duration
	Logger   *log.Logger
}

// Controller turns a stream of keystrokes into searches.
//
// Each Input restarts the quiet-period timer and issues a new generation. A search result is
// committed only while its generation is still the latest, so a slow search never overwrites the
// results of a newer query.
type Controller struct {
	searcher Searcher
	debounce time.Duration
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	committed  uint64
	query      string
	results    Results
	closed     bool
	updates    chan Results
}

// NewController creates an idle controller over searcher.
func NewController(searcher Searcher, opts ControllerOpts) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		searcher: searcher,
		debounce: opts.Debounce,
		logger:   shared.WithLogger(opts.Logger, "component", "search-controller"),
		ctx:      ctx,
		cancel:   cancel,
		updates:  make(chan Results, 1),
	}
}

// Input records the current contents of the search box.
//
// A blank query commits empty results immediately and discards any pending or in-flight search.
func (c *Controller) Input(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.generation++
	c.query = query
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if strings.TrimSpace(query) == "" {
		c.commitLocked(c.generation, Results{Query: query})
		return
	}

	generation := c.generation
	c.timer = time.AfterFunc(c.debounce, func() { c.run(generation, query) })
}

// Refresh re-runs the last non-blank query without waiting for the quiet period.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || strings.TrimSpace(c.query) == "" {
		return
	}

	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	generation, query := c.generation, c.query
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.search(generation, query)
	}()
}

// Results returns the last committed results.
func (c *Controller) Results() Results {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}

// Pending reports whether a search newer than the committed results is waiting or running.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != c.committed
}

// Updates streams committed results. Only the latest uncollected result is kept; the channel is
// closed by Close.
func (c *Controller) Updates() <-chan Results { return c.updates }

// Close stops the timer, cancels any running search and closes the updates channel.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
	close(c.updates)
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) run(generation uint64, query string) {
	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.search(generation, query)
}

func (c *Controller) search(generation uint64, query string) {
	results, err := c.searcher.Search(c.ctx, query)
	if errors.Is(c.ctx.Err(), context.Canceled) {
		return
	}
	if err != nil {
		c.logger.Debug("committing empty results after failure", "query", query, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitLocked(generation, results)
}

func (c *Controller) commitLocked(generation uint64, results Results) {
	if c.closed {
		return
	}
	if generation != c.generation {
		c.logger.Debug("discarding stale results", "query", results.Query, "generation", generation, "latest", c.generation)
		return
	}

	c.committed = generation
	c.results = results

	select {
	case <-c.updates:
	default:
	}
	c.updates <- results
}
