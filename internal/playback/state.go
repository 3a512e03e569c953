package playback

import (
	"math"
	"slices"

	"github.com/yagnikpt/tunebox/internal/models"
)

// Status is the transport state of a [Session].
type Status int

const (
	Idle Status = iota
	Loading
	Playing
	Paused
	Ended
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is an immutable snapshot of a [Session].
//
// Current is nil when nothing is selected. Index is -1 in that case, otherwise it addresses Queue.
// CurrentTime and Duration are seconds; Duration stays 0 until the backend reports metadata.
type State struct {
	Current     *models.Track  `json:"current"`
	Status      Status         `json:"status"`
	IsPlaying   bool           `json:"is_playing"`
	Volume      float64        `json:"volume"`
	CurrentTime float64        `json:"current_time"`
	Duration    float64        `json:"duration"`
	Queue       []models.Track `json:"queue"`
	Index       int            `json:"index"`
}

// HasNext reports whether a later track is queued.
func (s State) HasNext() bool {
	return s.Index >= 0 && s.Index < len(s.Queue)-1
}

func (s State) clone() State {
	out := s
	out.Queue = slices.Clone(s.Queue)
	if s.Current != nil {
		current := *s.Current
		out.Current = &current
	}
	return out
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
