package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/playback"
	"github.com/yagnikpt/tunebox/internal/search"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgResults MsgKind = iota
	MsgState
	MsgTracksLoaded
	MsgClosed
)

// tracksLoaded carries the tracks of a selected user or playlist result.
type tracksLoaded struct {
	tracks []models.Track
	err    error
}

// resultsMsg is the constructor for [MsgResults]
func resultsMsg(results search.Results) Msg {
	return Msg{kind: MsgResults, data: results}
}

// stateMsg is the constructor for [MsgState]
func stateMsg(state playback.State) Msg {
	return Msg{kind: MsgState, data: state}
}

// tracksLoadedMsg is the constructor for [MsgTracksLoaded]
func tracksLoadedMsg(tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTracksLoaded, data: tracksLoaded{tracks, err}}
}

// closedMsg is the constructor for [MsgClosed], sent when a source channel closes.
func closedMsg() Msg {
	return Msg{kind: MsgClosed}
}
