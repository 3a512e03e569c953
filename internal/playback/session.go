package playback

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// DefaultSubscriberBuffer is the snapshot buffer given to each subscriber.
const DefaultSubscriberBuffer = 32

// SessionOpts configures a [Session].
type SessionOpts struct {
	Logger           *log.Logger
	SubscriberBuffer int
}

// Session is the playback session: a queue, a current index and the transport state of one backend.
//
// Commands are serialized by a mutex. Backend events are applied by a single goroutine started in
// [NewSession] and stopped by [Session.Close].
type Session struct {
	mu      sync.Mutex
	backend Backend
	logger  *log.Logger

	queue       []models.Track
	index       int
	current     *models.Track
	status      Status
	isPlaying   bool
	volume      float64
	currentTime float64
	duration    float64
	generation  uint64
	// seeks counts Seek calls whose confirmation has not been applied yet.
	seeks int

	subs    map[int]chan State
	nextSub int
	buffer  int
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates an idle session driving backend and starts consuming its events.
func NewSession(backend Backend, opts SessionOpts) *Session {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = DefaultSubscriberBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend: backend,
		logger:  shared.WithLogger(opts.Logger, "component", "playback"),
		index:   -1,
		volume:  1,
		subs:    make(map[int]chan State),
		buffer:  opts.SubscriberBuffer,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.wg.Add(1)
	go s.consume()
	return s
}

// PlayTrack replaces the queue and starts track.
//
// An empty queue becomes [track]. The index is the first queue entry with track's ID, or 0.
// A start superseded by a newer load is ignored; any other start failure is logged and leaves the
// session idle.
func (s *Session) PlayTrack(ctx context.Context, track models.Track, queue []models.Track) {
	s.mu.Lock()
	if len(queue) == 0 {
		queue = []models.Track{track}
	}
	s.queue = slices.Clone(queue)
	s.index = max(slices.IndexFunc(s.queue, func(t models.Track) bool { return t.ID == track.ID }), 0)

	generation, ok := s.loadLocked(track)
	s.mu.Unlock()

	if ok {
		s.start(ctx, generation, track)
	}
}

// Pause asks the backend to pause. It is a no-op without a current track.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	if err := s.backend.Pause(); err != nil {
		s.logger.Warn("failed to pause playback", "track", s.current.ID, "err", err)
	}
}

// Resume asks the backend to continue the current track. It is a no-op without a current track.
func (s *Session) Resume(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	generation, track := s.generation, *s.current
	s.mu.Unlock()

	s.start(ctx, generation, track)
}

// Next advances the index with wraparound and plays that entry.
//
// It is a no-op when the queue holds at most one track or nothing is selected.
func (s *Session) Next(ctx context.Context) { s.step(ctx, 1) }

// Previous moves the index back with wraparound and plays that entry.
//
// It is a no-op when the queue holds at most one track or nothing is selected.
func (s *Session) Previous(ctx context.Context) { s.step(ctx, -1) }

func (s *Session) step(ctx context.Context, delta int) {
	s.mu.Lock()
	n := len(s.queue)
	if n <= 1 || s.index == -1 {
		s.mu.Unlock()
		return
	}

	s.index = (s.index + delta + n) % n
	track := s.queue[s.index]
	generation, ok := s.loadLocked(track)
	s.mu.Unlock()

	if ok {
		s.start(ctx, generation, track)
	}
}

// SeekTo moves the playhead to seconds.
//
// Negative targets clamp to 0. Targets past the end clamp to the duration once it is known. The
// reported time is updated before the backend confirms.
func (s *Session) SeekTo(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}

	if math.IsNaN(seconds) {
		seconds = 0
	}
	seconds = max(seconds, 0)
	if s.duration > 0 {
		seconds = min(seconds, s.duration)
	}

	if err := s.backend.Seek(seconds); err != nil {
		s.logger.Warn("failed to seek", "track", s.current.ID, "position", seconds, "err", err)
	} else {
		s.seeks++
	}
	s.currentTime = seconds
	s.publishLocked()
}

// SetVolume clamps v to [0, 1] and applies it. The volume persists across track changes.
func (s *Session) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = clampVolume(v)
	if err := s.backend.SetVolume(s.volume); err != nil {
		s.logger.Warn("failed to set volume", "volume", s.volume, "err", err)
	}
	s.publishLocked()
}

// AddToQueue appends track without touching the index or playback.
func (s *Session) AddToQueue(track models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, track)
	s.publishLocked()
}

// RemoveFromQueue removes the entry at i. Out-of-range positions are ignored.
//
// Removing the current entry keeps the backend playing; the index is clamped to the new queue and
// the current track becomes the entry it now addresses.
func (s *Session) RemoveFromQueue(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.queue) {
		return
	}
	s.queue = slices.Delete(s.queue, i, i+1)

	switch {
	case s.index == -1:
	case i < s.index:
		s.index = max(s.index-1, 0)
	case i == s.index:
		if len(s.queue) == 0 {
			s.index = -1
			s.current = nil
			break
		}
		s.index = min(s.index, len(s.queue)-1)
		current := s.queue[s.index]
		s.current = &current
	}

	s.publishLocked()
}

// ClearQueue empties the queue, clears the current track and pauses the backend.
func (s *Session) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Pause(); err != nil {
		s.logger.Debug("pause on clear failed", "err", err)
	}

	s.queue = nil
	s.index = -1
	s.current = nil
	s.status = Idle
	s.isPlaying = false
	s.currentTime = 0
	s.duration = 0
	s.generation = 0
	s.seeks = 0
	s.publishLocked()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives the current state followed by every change, and a
// function that cancels the subscription. A subscriber that falls behind loses its oldest buffered
// snapshots, never the latest.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, s.buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close stops event processing, closes subscriber channels and releases the backend.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := s.backend.Close()
	s.wg.Wait()

	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	return err
}

// loadLocked selects track and loads it into the backend. It reports false when loading failed,
// leaving the session idle.
func (s *Session) loadLocked(track models.Track) (uint64, bool) {
	s.current = &track
	s.status = Loading
	s.isPlaying = false
	s.currentTime = 0
	s.duration = 0
	s.seeks = 0

	generation, err := s.backend.Load(track.FileURL)
	if err != nil {
		s.logger.Warn("failed to load track", "track", track.ID, "uri", track.FileURL, "err", err)
		s.generation = 0
		s.status = Idle
		s.publishLocked()
		return 0, false
	}

	s.generation = generation
	s.publishLocked()
	return generation, true
}

// start requests playback for the load identified by generation.
func (s *Session) start(ctx context.Context, generation uint64, track models.Track) {
	err := s.backend.Play(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, ErrInterrupted) {
		s.logger.Debug("playback start superseded", "track", track.ID)
		return
	}

	s.logger.Warn("failed to start playback", "track", track.ID, "err", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return
	}
	s.status = Idle
	s.isPlaying = false
	s.publishLocked()
}

func (s *Session) consume() {
	defer s.wg.Done()

	events := s.backend.Events()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.apply(ev)
		}
	}
}

// apply maps one backend event to its state transition. Events from the loaded source still apply
// after its queue entry was removed.
func (s *Session) apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Generation != s.generation {
		s.logger.Debug("dropping stale event", "kind", ev.Kind, "generation", ev.Generation, "current", s.generation)
		return
	}

	switch ev.Kind {
	case MetadataReady:
		s.duration = ev.Duration
	case TimeAdvanced:
		if ev.Seeked && s.seeks > 0 {
			s.seeks--
		}
		if s.seeks > 0 {
			s.logger.Debug("dropping tick queued before seek", "position", ev.Position)
			return
		}
		s.currentTime = ev.Position
	case PlaybackStarted:
		s.isPlaying = true
		s.status = Playing
	case PlaybackPaused:
		s.isPlaying = false
		s.status = Paused
	case TrackEnded:
		s.endLocked()
		return
	}

	s.publishLocked()
}

// endLocked handles a finished track: advance to the next queued entry without wrapping, or stop
// and keep the current selection.
func (s *Session) endLocked() {
	s.status = Ended
	s.isPlaying = false
	s.publishLocked()

	if s.index < 0 || s.index >= len(s.queue)-1 {
		s.status = Idle
		s.publishLocked()
		return
	}

	s.index++
	track := s.queue[s.index]
	generation, ok := s.loadLocked(track)
	if !ok {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.start(s.ctx, generation, track)
	}()
}

func (s *Session) snapshotLocked() State {
	state := State{
		Current:     s.current,
		Status:      s.status,
		IsPlaying:   s.isPlaying,
		Volume:      s.volume,
		CurrentTime: s.currentTime,
		Duration:    s.duration,
		Queue:       s.queue,
		Index:       s.index,
	}
	return state.clone()
}

// publishLocked fans the current state out to subscribers without blocking.
func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}

	state := s.snapshotLocked()
	for id, ch := range s.subs {
		select {
		case ch <- state:
			continue
		default:
		}

		s.logger.Debug("subscriber buffer full, replacing oldest snapshot", "subscriber", id)
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}
