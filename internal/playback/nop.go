package playback

import (
	"context"
	"sync"
)

// NopBackend acknowledges transport commands without a media clock.
//
// Server-side sessions use it to mirror a client's queue and transport state.
type NopBackend struct {
	mu         sync.Mutex
	generation uint64
	loaded     bool
	playing    bool
	closed     bool
	pump       *eventPump
}

// NewNopBackend creates a silent backend.
func NewNopBackend() *NopBackend {
	return &NopBackend{pump: newEventPump()}
}

func (b *NopBackend) Load(string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBackendClosed
	}
	b.generation++
	b.loaded = true
	b.playing = false
	return b.generation, nil
}

func (b *NopBackend) Play(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.closed:
		return ErrBackendClosed
	case !b.loaded:
		return ErrNothingLoaded
	case b.playing:
		return nil
	}
	b.playing = true
	b.pump.emit(Event{Kind: PlaybackStarted, Generation: b.generation})
	return nil
}

func (b *NopBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	if b.playing {
		b.playing = false
		b.pump.emit(Event{Kind: PlaybackPaused, Generation: b.generation})
	}
	return nil
}

func (b *NopBackend) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	b.pump.emit(Event{Kind: TimeAdvanced, Generation: b.generation, Position: seconds, Seeked: true})
	return nil
}

func (b *NopBackend) SetVolume(float64) error { return nil }

func (b *NopBackend) Events() <-chan Event { return b.pump.events() }

func (b *NopBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.pump.close()
	return nil
}
