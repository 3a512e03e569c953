package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the player.
type keyMap struct {
	search  key.Binding
	blur    key.Binding
	up      key.Binding
	down    key.Binding
	play    key.Binding
	toggle  key.Binding
	next    key.Binding
	prev    key.Binding
	forward key.Binding
	rewind  key.Binding
	louder  key.Binding
	quieter key.Binding
	enqueue key.Binding
	remove  key.Binding
	clear   key.Binding
	pane    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		blur:    key.NewBinding(key.WithKeys("esc", "enter"), key.WithHelp("esc", "results")),
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		play:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
		next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		forward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+5s")),
		rewind:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-5s")),
		louder:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		enqueue: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "enqueue")),
		remove:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear queue")),
		pane:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "results/queue")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.search, k.play, k.toggle, k.pane, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.search, k.up, k.down, k.play, k.pane},
		{k.toggle, k.next, k.prev, k.forward, k.rewind},
		{k.louder, k.quieter, k.enqueue, k.remove, k.clear},
		{k.quit},
	}
}
