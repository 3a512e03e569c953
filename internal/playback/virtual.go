package playback

import (
	"context"
	"sync"
	"time"

	"github.com/yagnikpt/tunebox/internal/models"
)

const (
	// DefaultTick is how often the virtual clock reports progress.
	DefaultTick = 250 * time.Millisecond
	// DefaultDuration is used for sources with no known length.
	DefaultDuration = 180.0
)

// DurationFunc returns the length in seconds of the media at uri, or 0 when unknown.
type DurationFunc func(uri string) float64

// VirtualOpts configures a [VirtualBackend].
type VirtualOpts struct {
	// Tick is the wall-clock interval between TimeAdvanced events.
	Tick time.Duration
	// Speed is how many media seconds pass per wall-clock second. Zero means real time.
	Speed float64
	// StartDelay simulates buffering before the first start of each load.
	StartDelay time.Duration
	// Durations resolves source lengths. Unknown sources play for DefaultDuration.
	Durations DurationFunc
}

// VirtualBackend is a [Backend] that plays nothing but keeps a ticker-driven media clock.
type VirtualBackend struct {
	mu         sync.Mutex
	tick       time.Duration
	speed      float64
	startDelay time.Duration
	durations  DurationFunc

	generation uint64
	uri        string
	duration   float64
	position   float64
	volume     float64
	loaded     bool
	started    bool
	playing    bool
	closed     bool
	interrupt  chan struct{}
	stopTicker chan struct{}

	pump *eventPump
}

// NewVirtualBackend creates a stopped virtual backend.
func NewVirtualBackend(opts VirtualOpts) *VirtualBackend {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.Durations == nil {
		opts.Durations = func(string) float64 { return 0 }
	}

	return &VirtualBackend{
		tick:       opts.Tick,
		speed:      opts.Speed,
		startDelay: opts.StartDelay,
		durations:  opts.Durations,
		volume:     1,
		interrupt:  make(chan struct{}),
		pump:       newEventPump(),
	}
}

// Load stops the current source, interrupts any pending start and selects uri.
func (b *VirtualBackend) Load(uri string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBackendClosed
	}

	b.stopTickerLocked()
	close(b.interrupt)
	b.interrupt = make(chan struct{})

	b.generation++
	b.uri = uri
	b.duration = b.durations(uri)
	if b.duration <= 0 {
		b.duration = DefaultDuration
	}
	b.position = 0
	b.loaded = true
	b.started = false
	b.playing = false

	return b.generation, nil
}

// Play starts or resumes the loaded source.
//
// The first Play after a Load waits StartDelay and then reports metadata. Loading another source
// while waiting returns [ErrInterrupted].
func (b *VirtualBackend) Play(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBackendClosed
	}
	if !b.loaded {
		b.mu.Unlock()
		return ErrNothingLoaded
	}
	generation, interrupt, first := b.generation, b.interrupt, !b.started
	b.mu.Unlock()

	if first && b.startDelay > 0 {
		timer := time.NewTimer(b.startDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-interrupt:
			return ErrInterrupted
		case <-timer.C:
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	if b.generation != generation {
		return ErrInterrupted
	}

	if !b.started {
		b.started = true
		b.emitLocked(Event{Kind: MetadataReady, Duration: b.duration})
	}
	if b.playing {
		return nil
	}

	b.playing = true
	stop := make(chan struct{})
	b.stopTicker = stop
	go b.run(generation, stop)

	b.emitLocked(Event{Kind: PlaybackStarted})
	return nil
}

// Pause stops the clock. Pausing a stopped backend does nothing.
func (b *VirtualBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	if !b.playing {
		return nil
	}

	b.playing = false
	b.stopTickerLocked()
	b.emitLocked(Event{Kind: PlaybackPaused})
	return nil
}

// Seek moves the clock, bounded by the source length.
func (b *VirtualBackend) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	if !b.loaded {
		return ErrNothingLoaded
	}

	b.position = min(max(seconds, 0), b.duration)
	b.emitLocked(Event{Kind: TimeAdvanced, Position: b.position, Seeked: true})
	return nil
}

// SetVolume records the output level.
func (b *VirtualBackend) SetVolume(v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	b.volume = clampVolume(v)
	return nil
}

// Volume returns the last applied output level.
func (b *VirtualBackend) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

// Source returns the loaded uri.
func (b *VirtualBackend) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uri
}

// Events returns the event stream.
func (b *VirtualBackend) Events() <-chan Event { return b.pump.events() }

// Close stops the clock and closes the event stream.
func (b *VirtualBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.playing = false
	b.stopTickerLocked()
	close(b.interrupt)
	b.mu.Unlock()

	b.pump.close()
	return nil
}

func (b *VirtualBackend) run(generation uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()

	step := b.tick.Seconds() * b.speed
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		if b.generation != generation || !b.playing {
			b.mu.Unlock()
			return
		}

		b.position = min(b.position+step, b.duration)
		b.emitLocked(Event{Kind: TimeAdvanced, Position: b.position})

		if b.position >= b.duration {
			b.playing = false
			b.stopTicker = nil
			b.emitLocked(Event{Kind: TrackEnded})
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()
	}
}

func (b *VirtualBackend) stopTickerLocked() {
	if b.stopTicker != nil {
		close(b.stopTicker)
		b.stopTicker = nil
	}
}

func (b *VirtualBackend) emitLocked(ev Event) {
	ev.Generation = b.generation
	b.pump.emit(ev)
}

// DurationIndex maps media URIs to track lengths for a [VirtualBackend].
type DurationIndex struct {
	mu        sync.RWMutex
	durations map[string]float64
}

// NewDurationIndex creates an empty index.
func NewDurationIndex() *DurationIndex {
	return &DurationIndex{durations: make(map[string]float64)}
}

// Add records the known durations of tracks.
func (d *DurationIndex) Add(tracks ...models.Track) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range tracks {
		if t.Duration > 0 {
			d.durations[t.FileURL] = float64(t.Duration)
		}
	}
}

// Lookup implements [DurationFunc].
func (d *DurationIndex) Lookup(uri string) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.durations[uri]
}
