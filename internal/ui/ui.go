package ui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/playback"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// Pane is the list shown below the search box.
type Pane int

const (
	ResultsPane Pane = iota
	QueuePane
)

const (
	seekStep    = 5.0
	volumeStep  = 0.1
	progressLen = 30
)

// TrackSource loads the tracks behind user and playlist results.
type TrackSource interface {
	TracksByOwner(ctx context.Context, userID string) ([]models.Track, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
}

// Options wires a [Model].
type Options struct {
	Session *playback.Session
	Search  *search.Controller
	// Tracks is optional; without it user and playlist results cannot be played.
	Tracks TrackSource
	// Durations, when set, learns the catalog durations of every track the model sees.
	Durations *playback.DurationIndex
	// Query is typed into the search box on start.
	Query string
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	session     *playback.Session
	search      *search.Controller
	source      TrackSource
	durations   *playback.DurationIndex
	states      <-chan playback.State
	unsubscribe func()

	pane        Pane
	input       textinput.Model
	results     list.Model
	queue       list.Model
	lastResults search.Results
	state       playback.State
	width       int
	height      int
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates the player model and subscribes it to the session.
func NewModel(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "Search tracks, users and playlists"
	input.SetValue(opts.Query)
	input.Focus()

	states, unsubscribe := opts.Session.Subscribe()

	return &Model{
		ctx:         ctx,
		session:     opts.Session,
		search:      opts.Search,
		source:      opts.Tracks,
		durations:   opts.Durations,
		states:      states,
		unsubscribe: unsubscribe,
		pane:        ResultsPane,
		input:       input,
		results:     newList("Results"),
		queue:       newList("Queue"),
		state:       opts.Session.Snapshot(),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// Close releases the session subscription.
func (m *Model) Close() {
	m.unsubscribe()
}

// Init starts listening for results and states and runs the initial query, if any.
func (m *Model) Init() tea.Cmd {
	if q := m.input.Value(); q != "" {
		m.search.Input(q)
	}
	return tea.Batch(textinput.Blink, m.waitForResults(), m.waitForState())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.handleInputKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updatePane(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgResults:
		results := msg.data.(search.Results)
		m.lastResults = results
		if m.durations != nil {
			m.durations.Add(tracksOf(results)...)
		}
		cmd := m.results.SetItems(resultItems(results))
		return m, tea.Batch(cmd, m.waitForResults())

	case MsgState:
		m.state = msg.data.(playback.State)
		cmd := m.queue.SetItems(queueItems(m.state.Queue, m.state.Index))
		if m.state.Index >= 0 && m.pane == ResultsPane {
			m.queue.Select(m.state.Index)
		}
		return m, tea.Batch(cmd, m.waitForState())

	case MsgTracksLoaded:
		loaded := msg.data.(tracksLoaded)
		switch {
		case loaded.err != nil:
			m.err = loaded.err
		case len(loaded.tracks) == 0:
			m.err = fmt.Errorf("%w: no tracks to play", shared.ErrNotFound)
		default:
			m.play(loaded.tracks[0], loaded.tracks)
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter", "tab":
		m.input.Blur()
		m.pane = ResultsPane
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		m.search.Input(value)
	}
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.pane):
		if m.pane == ResultsPane {
			m.pane = QueuePane
		} else {
			m.pane = ResultsPane
		}
	case key.Matches(msg, m.keys.play):
		return m, m.playSelected()
	case key.Matches(msg, m.keys.toggle):
		if m.state.IsPlaying {
			m.session.Pause()
		} else {
			m.session.Resume(m.ctx)
		}
	case key.Matches(msg, m.keys.next):
		m.session.Next(m.ctx)
	case key.Matches(msg, m.keys.prev):
		m.session.Previous(m.ctx)
	case key.Matches(msg, m.keys.forward):
		m.session.SeekTo(m.state.CurrentTime + seekStep)
	case key.Matches(msg, m.keys.rewind):
		m.session.SeekTo(m.state.CurrentTime - seekStep)
	case key.Matches(msg, m.keys.louder):
		m.session.SetVolume(m.state.Volume + volumeStep)
	case key.Matches(msg, m.keys.quieter):
		m.session.SetVolume(m.state.Volume - volumeStep)
	case key.Matches(msg, m.keys.enqueue):
		if item, ok := m.results.SelectedItem().(resultItem); ok && m.pane == ResultsPane {
			if tr, ok := item.result.(search.TrackResult); ok {
				m.enqueue(tr.Track())
			}
		}
	case key.Matches(msg, m.keys.remove):
		if m.pane == QueuePane && len(m.state.Queue) > 0 {
			m.session.RemoveFromQueue(m.queue.Index())
		}
	case key.Matches(msg, m.keys.clear):
		m.session.ClearQueue()
	default:
		return m.updatePane(msg)
	}
	return m, nil
}

func (m *Model) updatePane(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.pane {
	case ResultsPane:
		m.results, cmd = m.results.Update(msg)
	case QueuePane:
		m.queue, cmd = m.queue.Update(msg)
	}
	return m, cmd
}

// playSelected plays the highlighted entry. Track results queue every track hit; user and
// playlist results load their tracks first.
func (m *Model) playSelected() tea.Cmd {
	if m.pane == QueuePane {
		if item, ok := m.queue.SelectedItem().(queueItem); ok {
			m.play(item.track, m.state.Queue)
		}
		return nil
	}

	item, ok := m.results.SelectedItem().(resultItem)
	if !ok {
		return nil
	}

	switch r := item.result.(type) {
	case search.TrackResult:
		m.play(r.Track(), tracksOf(m.lastResults))
		return nil
	case search.UserResult:
		id := r.User().ID
		return m.loadTracks(func(ctx context.Context, src TrackSource) ([]models.Track, error) {
			return src.TracksByOwner(ctx, id)
		})
	case search.PlaylistResult:
		id := r.Playlist().ID
		return m.loadTracks(func(ctx context.Context, src TrackSource) ([]models.Track, error) {
			return src.PlaylistTracks(ctx, id)
		})
	}
	return nil
}

func (m *Model) play(track models.Track, queue []models.Track) {
	m.err = nil
	if m.durations != nil {
		m.durations.Add(queue...)
		m.durations.Add(track)
	}
	m.session.PlayTrack(m.ctx, track, queue)
}

func (m *Model) enqueue(track models.Track) {
	if m.durations != nil {
		m.durations.Add(track)
	}
	m.session.AddToQueue(track)
}

func (m *Model) loadTracks(load func(context.Context, TrackSource) ([]models.Track, error)) tea.Cmd {
	if m.source == nil {
		m.err = fmt.Errorf("%w: no track source", shared.ErrServiceUnavailable)
		return nil
	}
	ctx, src := m.ctx, m.source
	return func() tea.Msg {
		tracks, err := load(ctx, src)
		return tracksLoadedMsg(tracks, err)
	}
}

func (m *Model) waitForResults() tea.Cmd {
	updates := m.search.Updates()
	return func() tea.Msg {
		results, ok := <-updates
		if !ok {
			return closedMsg()
		}
		return resultsMsg(results)
	}
}

func (m *Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return closedMsg()
		}
		return stateMsg(state)
	}
}

func (m *Model) resize() {
	h := max(m.height-14, 3)
	w := max(m.width-4, 20)
	m.results.SetSize(w, h)
	m.queue.SetSize(w, h)
	m.input.Width = w - 4
}

// View renders the search box, the active pane and the player bar.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("tunebox"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderSearchStatus())
	b.WriteString("\n\n")

	switch m.pane {
	case ResultsPane:
		b.WriteString(m.results.View())
	case QueuePane:
		b.WriteString(m.queue.View())
	}

	b.WriteString("\n")
	b.WriteString(m.renderPlayer())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderSearchStatus() string {
	switch {
	case m.search.Pending():
		return styles.help.Render("Searching...")
	case !m.lastResults.HasSearched:
		return ""
	case m.lastResults.Len() == 0:
		return styles.warn.Render(fmt.Sprintf("No results for %q", m.lastResults.Query))
	default:
		return styles.ok.Render(fmt.Sprintf("%d results", m.lastResults.Len()))
	}
}

func (m *Model) renderPlayer() string {
	st := m.state
	if st.Current == nil {
		return styles.bar.Render(styles.help.Render("Nothing playing"))
	}

	var icon string
	switch st.Status {
	case playback.Playing:
		icon = "▶"
	case playback.Paused:
		icon = "⏸"
	case playback.Loading:
		icon = "…"
	default:
		icon = "■"
	}

	now := fmt.Sprintf("%s %s - %s", icon, st.Current.Title, st.Current.Artist)
	clock := fmt.Sprintf("%s %s %s   vol %d%%   %d/%d",
		shared.FormatDuration(int(st.CurrentTime)),
		progressBar(st.CurrentTime, st.Duration, progressLen),
		shared.FormatDuration(int(st.Duration)),
		int(math.Round(st.Volume*100)),
		st.Index+1,
		len(st.Queue),
	)
	return styles.bar.Render(now + "\n" + clock)
}

func progressBar(pos, total float64, width int) string {
	filled := 0
	if total > 0 {
		filled = int(float64(width) * min(max(pos/total, 0), 1))
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

func (m *Model) renderHelp() string {
	var bindings []key.Binding
	switch {
	case m.input.Focused():
		bindings = []key.Binding{m.keys.blur, m.keys.quit}
	case m.pane == QueuePane:
		bindings = []key.Binding{m.keys.play, m.keys.remove, m.keys.clear, m.keys.toggle, m.keys.next, m.keys.prev, m.keys.pane, m.keys.quit}
	default:
		bindings = []key.Binding{m.keys.search, m.keys.play, m.keys.enqueue, m.keys.toggle, m.keys.forward, m.keys.rewind, m.keys.louder, m.keys.quieter, m.keys.pane, m.keys.quit}
	}
	return m.help.ShortHelpView(bindings)
}
