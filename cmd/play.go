package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"github.com/yagnikpt/tunebox/internal/playback"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/ui"
)

// Play launches the terminal player: a live search box, a mixed result list and a player bar
// driven by a playback session on the virtual backend.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they do not interfere with TUI rendering
	logPath := r.config.Logging.File
	if logPath == "" {
		logPath = "tunebox.log"
	}
	fileLogger, logFile, err := shared.NewFileLogger(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	catalog, err := r.openCatalog()
	if err != nil {
		return err
	}
	searcher, err := r.searcher()
	if err != nil {
		return err
	}

	durations := playback.NewDurationIndex()
	backend := playback.NewVirtualBackend(playback.VirtualOpts{
		Tick:      time.Duration(r.config.Playback.TickMS) * time.Millisecond,
		Speed:     cmd.Float("speed"),
		Durations: durations.Lookup,
	})
	session := playback.NewSession(backend, playback.SessionOpts{Logger: fileLogger})
	defer session.Close()
	session.SetVolume(r.config.Playback.Volume)

	ctrl := search.NewController(searcher, search.ControllerOpts{
		Debounce: r.config.Search.Debounce(),
		Logger:   fileLogger,
	})
	defer ctrl.Close()

	if ref := cmd.String("user"); ref != "" {
		user, err := resolveUser(catalog, ref)
		if err != nil {
			return err
		}
		tracks, err := catalog.TracksByOwner(ctx, user.ID())
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			return fmt.Errorf("%w: %s has no tracks", shared.ErrNotFound, user.User.Username)
		}
		durations.Add(tracks...)
		session.PlayTrack(ctx, tracks[0], tracks)
	}

	model := ui.NewModel(ctx, ui.Options{
		Session:   session,
		Search:    ctrl,
		Tracks:    catalog,
		Durations: durations,
		Query:     cmd.String("query"),
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
