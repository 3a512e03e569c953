package playback

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrInterrupted is returned by [Backend.Play] when a newer Load supersedes the pending start.
	ErrInterrupted = errors.New("playback interrupted by a newer load")
	// ErrBackendClosed is returned by backend commands after Close.
	ErrBackendClosed = errors.New("playback backend closed")
	// ErrNothingLoaded is returned by [Backend.Play] before any source was loaded.
	ErrNothingLoaded = errors.New("no media source loaded")
)

// EventKind identifies what a backend [Event] reports.
type EventKind int

const (
	MetadataReady EventKind = iota
	TimeAdvanced
	PlaybackStarted
	PlaybackPaused
	TrackEnded
)

func (k EventKind) String() string {
	switch k {
	case MetadataReady:
		return "metadata_ready"
	case TimeAdvanced:
		return "time_advanced"
	case PlaybackStarted:
		return "playback_started"
	case PlaybackPaused:
		return "playback_paused"
	case TrackEnded:
		return "track_ended"
	default:
		return "unknown"
	}
}

// Event is an asynchronous notification from a [Backend].
//
// Duration is set on MetadataReady and Position on TimeAdvanced, both in seconds. Seeked marks
// the TimeAdvanced that confirms a Seek.
type Event struct {
	Kind       EventKind
	Generation uint64
	Duration   float64
	Position   float64
	Seeked     bool
}

// Backend is the media element a [Session] drives.
//
// Load replaces the current source, stops any previous playback and returns a generation that
// stamps every event produced for that source. Generations start at 1 and increase on each Load.
// Play starts or resumes the loaded source; a Play still pending when Load is called returns
// [ErrInterrupted]. Each successful Seek is confirmed by one TimeAdvanced event with Seeked set.
// Events are delivered in order on the channel returned by Events, which is
// closed by Close.
type Backend interface {
	Load(uri string) (uint64, error)
	Play(ctx context.Context) error
	Pause() error
	Seek(seconds float64) error
	SetVolume(v float64) error
	Events() <-chan Event
	Close() error
}

// eventPump decouples backend emitters from the consumer with an unbounded queue, so emitting
// never blocks while a backend or session lock is held.
type eventPump struct {
	mu      sync.Mutex
	pending []Event
	closed  bool
	signal  chan struct{}
	done    chan struct{}
	out     chan Event
	once    sync.Once
}

func newEventPump() *eventPump {
	p := &eventPump{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Event),
	}
	go p.run()
	return p
}

func (p *eventPump) emit(ev Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = append(p.pending, ev)
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *eventPump) run() {
	defer close(p.out)

	for {
		select {
		case <-p.done:
			return
		case <-p.signal:
		}

		for {
			p.mu.Lock()
			batch := p.pending
			p.pending = nil
			p.mu.Unlock()

			if len(batch) == 0 {
				break
			}

			for _, ev := range batch {
				select {
				case p.out <- ev:
				case <-p.done:
					return
				}
			}
		}
	}
}

func (p *eventPump) events() <-chan Event { return p.out }

func (p *eventPump) close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.pending = nil
		p.mu.Unlock()
		close(p.done)
	})
}
