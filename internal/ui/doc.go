// Package ui implements the tunebox terminal player using bubbletea's Elm architecture.
//
// The screen has three parts:
//  1. a search box feeding a debounced [search.Controller]
//  2. a pane showing either the mixed search results ([ResultsPane]) or the play queue ([QueuePane])
//  3. a player bar rendering the latest [playback.State] of the session
//
// Search results and playback states arrive on channels owned by the controller and the session.
// Each is read by a blocking [tea.Cmd] that turns one value into a [Msg] and is re-issued after the
// message is handled, so the model never touches either channel directly.
//
// Selecting a user or playlist result loads its tracks through a [TrackSource] and plays them as the
// queue. Keyboard navigation uses vim-style bindings with contextual help from charmbracelet/bubbles/help.
package ui
