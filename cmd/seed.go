package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/yagnikpt/tunebox/internal/formatter"
	"github.com/yagnikpt/tunebox/internal/shared"
	"github.com/yagnikpt/tunebox/internal/tasks"
)

// printProgress prints updates until the channel closes, then signals done.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.LoadManifest:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ImportTracks, tasks.ExportPlaylist:
				r.writePlain("  [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()
	return done
}

// Seed bulk imports tracks from a JSON manifest.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	path, err := arg(cmd, 0, "manifest")
	if err != nil {
		return err
	}

	manifest, err := tasks.LoadManifest(path)
	if err != nil {
		return err
	}

	opts := tasks.ImportOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}
	if ref := cmd.String("user"); ref != "" {
		catalog, err := r.openCatalog()
		if err != nil {
			return err
		}
		user, err := resolveUser(catalog, ref)
		if err != nil {
			return err
		}
		opts.UserID = user.ID()
	}

	engine, err := r.engine()
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progressCh)

	result, err := engine.Import(ctx, progressCh, manifest, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Summary")
	r.writePlain("Job:      %s (%s)\n", result.Job.ID(), result.Job.Status())
	r.writePlain("Source:   %s\n", manifest.Source)
	r.writePlain("Imported: %d\n", result.Imported)
	r.writePlain("Skipped:  %d\n", result.Skipped)
	r.writePlain("Failed:   %d\n", result.Failed)

	if result.Failed > 0 {
		r.writePlainln("Failures:")
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  ✗ %s - %s: %v\n", res.Entry.Title, res.Entry.Artist, res.Error)
			}
		}
	}
	return nil
}

// Export writes every playlist of --user to disk with the bulk export worker pool.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	catalog, user, err := r.userFlag(cmd)
	if err != nil {
		return err
	}

	playlists, err := catalog.Playlists.ListByOwner(ctx, user.ID(), true)
	if err != nil {
		return err
	}
	if len(playlists) == 0 {
		return fmt.Errorf("%w: %s has no playlists", shared.ErrNotFound, user.User.Username)
	}

	ids := make([]string, len(playlists))
	for i, p := range playlists {
		ids[i] = p.ID()
	}

	engine, err := r.engine()
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progressCh)

	result, err := engine.BulkExport(ctx, progressCh, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Covers:     cmd.Bool("covers"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Summary")
	r.writePlain("Format:     %s\n", result.Format)
	r.writePlain("Playlists:  %d\n", result.TotalPlaylists)
	r.writePlain("Successful: %d\n", result.SuccessfulExports)
	r.writePlain("Failed:     %d\n", result.FailedExports)
	r.writePlain("Directory:  %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest:   %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlainln("Failures:")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  ✗ %s: %s\n", res.PlaylistName, res.ErrorMessage)
			}
		}
	}
	return nil
}
