package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
)

var (
	_ list.Item = resultItem{}
	_ list.Item = queueItem{}
)

// resultItem wraps a [search.Result] to implement [list.Item].
type resultItem struct {
	result search.Result
}

func (i resultItem) FilterValue() string { return i.Title() }

func (i resultItem) Title() string {
	switch r := i.result.(type) {
	case search.TrackResult:
		return "♪ " + r.Track().Title
	case search.UserResult:
		return "@ " + r.User().Username
	case search.PlaylistResult:
		return "≡ " + r.Playlist().Name
	default:
		return ""
	}
}

func (i resultItem) Description() string {
	switch r := i.result.(type) {
	case search.TrackResult:
		t := r.Track()
		desc := fmt.Sprintf("%s • %s", t.Artist, shared.FormatDuration(t.Duration))
		if t.Genre != "" {
			desc = fmt.Sprintf("%s • %s", desc, t.Genre)
		}
		return desc
	case search.UserResult:
		return "user"
	case search.PlaylistResult:
		return fmt.Sprintf("%d tracks • by %s", r.TrackCount(), r.Owner().Username)
	default:
		return ""
	}
}

// queueItem is one queue entry; current marks the playing position.
type queueItem struct {
	track   models.Track
	pos     int
	current bool
}

func (i queueItem) FilterValue() string { return i.track.Title }

func (i queueItem) Title() string {
	title := fmt.Sprintf("%d. %s", i.pos+1, i.track.Title)
	if i.current {
		return styles.ok.Render("▶ " + title)
	}
	return title
}

func (i queueItem) Description() string {
	return fmt.Sprintf("%s • %s", i.track.Artist, shared.FormatDuration(i.track.Duration))
}

func resultItems(results search.Results) []list.Item {
	items := make([]list.Item, len(results.Items))
	for i, r := range results.Items {
		items[i] = resultItem{result: r}
	}
	return items
}

func queueItems(queue []models.Track, index int) []list.Item {
	items := make([]list.Item, len(queue))
	for i, t := range queue {
		items[i] = queueItem{track: t, pos: i, current: i == index}
	}
	return items
}

// tracksOf returns the track hits of results in result order.
func tracksOf(results search.Results) []models.Track {
	var tracks []models.Track
	for _, r := range results.Items {
		if tr, ok := r.(search.TrackResult); ok {
			tracks = append(tracks, tr.Track())
		}
	}
	return tracks
}
