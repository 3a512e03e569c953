package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/playback"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
	tu "github.com/yagnikpt/tunebox/internal/testing"
)

type stubSearcher struct {
	results search.Results
}

func (s stubSearcher) Search(ctx context.Context, query string) (search.Results, error) {
	r := s.results
	r.Query = query
	return r, nil
}

type stubSource struct {
	tracks []models.Track
	err    error
	asked  string
}

func (s *stubSource) TracksByOwner(_ context.Context, id string) ([]models.Track, error) {
	s.asked = "user:" + id
	return s.tracks, s.err
}

func (s *stubSource) PlaylistTracks(_ context.Context, id string) ([]models.Track, error) {
	s.asked = "playlist:" + id
	return s.tracks, s.err
}

type fixture struct {
	model     *Model
	session   *playback.Session
	source    *stubSource
	durations *playback.DurationIndex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := shared.NewLogger(io.Discard)
	session := playback.NewSession(playback.NewNopBackend(), playback.SessionOpts{Logger: logger})
	ctrl := search.NewController(stubSearcher{}, search.ControllerOpts{Debounce: time.Hour, Logger: logger})
	source := &stubSource{}
	durations := playback.NewDurationIndex()

	m := NewModel(context.Background(), Options{
		Session:   session,
		Search:    ctrl,
		Tracks:    source,
		Durations: durations,
	})
	t.Cleanup(func() {
		m.Close()
		ctrl.Close()
		session.Close()
	})

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &fixture{model: m, session: session, source: source, durations: durations}
}

func (f *fixture) press(keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = f.model.Update(k)
	}
	return cmd
}

func (f *fixture) results(items ...search.Result) {
	f.model.Update(resultsMsg(search.Results{Query: "q", Items: items, HasSearched: true}))
}

// sync feeds the latest session snapshot to the model as the state subscription would.
func (f *fixture) sync() {
	f.model.Update(stateMsg(f.session.Snapshot()))
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestModelResults(t *testing.T) {
	f := newFixture(t)
	a, b := tu.Track("t1", "Alpha", "One"), tu.Track("t2", "Beta", "Two")

	f.results(search.NewTrackResult(a, "q"), search.NewTrackResult(b, "q"), search.NewUserResult(tu.User("u1", "ada"), "q"))

	if got := len(f.model.results.Items()); got != 3 {
		t.Fatalf("expected 3 list items, got %d", got)
	}
	if view := f.model.View(); !strings.Contains(view, "3 results") {
		t.Errorf("expected result count in view, got:\n%s", view)
	}
	if d := f.durations.Lookup(a.FileURL); d != float64(a.Duration) {
		t.Errorf("expected duration index to learn %v, got %v", a.Duration, d)
	}

	t.Run("no results", func(t *testing.T) {
		f.results()
		if view := f.model.View(); !strings.Contains(view, `No results for "q"`) {
			t.Errorf("expected empty state, got:\n%s", view)
		}
	})
}

func TestModelTyping(t *testing.T) {
	f := newFixture(t)

	if !f.model.input.Focused() {
		t.Fatal("expected the search box to start focused")
	}

	f.press(runes("r"), runes("o"))
	if got := f.model.input.Value(); got != "ro" {
		t.Errorf("expected input %q, got %q", "ro", got)
	}
	if !f.model.search.Pending() {
		t.Error("expected a pending search after typing")
	}

	f.press(esc)
	if f.model.input.Focused() {
		t.Error("expected esc to leave the search box")
	}

	// q quits only outside the search box.
	if cmd := f.press(runes("q")); cmd == nil {
		t.Error("expected quit command")
	}
}

func TestModelPlayback(t *testing.T) {
	f := newFixture(t)
	a, b := tu.Track("t1", "Alpha", "One"), tu.Track("t2", "Beta", "Two")
	f.results(search.NewTrackResult(a, "q"), search.NewUserResult(tu.User("u1", "ada"), "q"), search.NewTrackResult(b, "q"))
	f.press(esc)

	f.press(enter)
	waitUntil(t, func() bool { return f.session.Snapshot().IsPlaying })

	st := f.session.Snapshot()
	if st.Current == nil || st.Current.ID != "t1" {
		t.Fatalf("expected t1 playing, got %+v", st.Current)
	}
	if len(st.Queue) != 2 {
		t.Errorf("expected the track hits as queue, got %d entries", len(st.Queue))
	}

	tests := []struct {
		name  string
		key   tea.KeyMsg
		check func(playback.State) bool
	}{
		{"pause", space, func(s playback.State) bool { return s.Status == playback.Paused }},
		{"resume", space, func(s playback.State) bool { return s.Status == playback.Playing }},
		{"next", runes("n"), func(s playback.State) bool { return s.Current != nil && s.Current.ID == "t2" }},
		{"previous", runes("p"), func(s playback.State) bool { return s.Current != nil && s.Current.ID == "t1" }},
		{"volume down", runes("-"), func(s playback.State) bool { return s.Volume < 1 }},
		{"seek forward", tea.KeyMsg{Type: tea.KeyRight}, func(s playback.State) bool { return s.CurrentTime >= 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.sync()
			f.press(tt.key)
			waitUntil(t, func() bool { return tt.check(f.session.Snapshot()) })
		})
	}

	f.sync()
	if view := f.model.View(); !strings.Contains(view, "Alpha - One") {
		t.Errorf("expected player bar to show the current track, got:\n%s", view)
	}
}

func TestModelQueue(t *testing.T) {
	f := newFixture(t)
	a, b := tu.Track("t1", "Alpha", "One"), tu.Track("t2", "Beta", "Two")
	f.results(search.NewTrackResult(a, "q"), search.NewTrackResult(b, "q"))
	f.press(esc)

	f.press(runes("a"), down, runes("a"))
	if got := len(f.session.Snapshot().Queue); got != 2 {
		t.Fatalf("expected 2 queued tracks, got %d", got)
	}

	f.sync()
	f.press(tab)
	if f.model.pane != QueuePane {
		t.Fatal("expected tab to show the queue")
	}
	if got := len(f.model.queue.Items()); got != 2 {
		t.Fatalf("expected 2 queue items, got %d", got)
	}

	f.press(runes("x"))
	if got := len(f.session.Snapshot().Queue); got != 1 {
		t.Errorf("expected remove to drop one entry, got %d", got)
	}

	f.press(runes("c"))
	if got := len(f.session.Snapshot().Queue); got != 0 {
		t.Errorf("expected clear to empty the queue, got %d", got)
	}
}

func TestModelLoadsTracks(t *testing.T) {
	owner := tu.User("u1", "ada")
	playlist := tu.PlaylistSummary("p1", "Mix", "", owner)

	tests := []struct {
		name   string
		result search.Result
		asked  string
	}{
		{"user", search.NewUserResult(owner, "q"), "user:u1"},
		{"playlist", search.NewPlaylistResult(playlist, "q"), "playlist:p1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.source.tracks = []models.Track{tu.Track("t9", "Nine", "Ada")}
			f.results(tt.result)
			f.press(esc)

			cmd := f.press(enter)
			if cmd == nil {
				t.Fatal("expected a load command")
			}
			f.model.Update(cmd())

			if f.source.asked != tt.asked {
				t.Errorf("expected %s, got %s", tt.asked, f.source.asked)
			}
			waitUntil(t, func() bool {
				st := f.session.Snapshot()
				return st.Current != nil && st.Current.ID == "t9"
			})
		})
	}

	t.Run("load error", func(t *testing.T) {
		f := newFixture(t)
		f.source.err = shared.ErrPlaylistNotFound
		f.results(search.NewPlaylistResult(playlist, "q"))
		f.press(esc)

		f.model.Update(f.press(enter)())
		if !errors.Is(f.model.err, shared.ErrNotFound) {
			t.Errorf("expected not found error, got %v", f.model.err)
		}
		if view := f.model.View(); !strings.Contains(view, "Error:") {
			t.Errorf("expected error in view, got:\n%s", view)
		}
	})

	t.Run("empty", func(t *testing.T) {
		f := newFixture(t)
		f.results(search.NewUserResult(owner, "q"))
		f.press(esc)

		f.model.Update(f.press(enter)())
		if !errors.Is(f.model.err, shared.ErrNotFound) {
			t.Errorf("expected not found error, got %v", f.model.err)
		}
	})
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pos, total float64
		filled     int
	}{
		{0, 0, 0},
		{30, 60, 5},
		{90, 60, 10},
		{-1, 60, 0},
	}

	for _, tt := range tests {
		bar := progressBar(tt.pos, tt.total, 10)
		if got := strings.Count(bar, "━"); got != tt.filled {
			t.Errorf("progressBar(%v, %v): expected %d filled, got %d", tt.pos, tt.total, tt.filled, got)
		}
		if got := len([]rune(bar)); got != 10 {
			t.Errorf("expected width 10, got %d", got)
		}
	}
}
