package tasks

import (
	"fmt"

	"github.com/yagnikpt/tunebox/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadManifest Phase = iota
	ImportTracks
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case LoadManifest:
		return "load_manifest"
	case ImportTracks:
		return "import_tracks"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func loadManifestUpdate(total int, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Importing %d tracks from %s...", total, source),
	}
}

func trackImportedUpdate(step, total int, track models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s - %s", step, total, track.Artist, track.Title),
		Data:    track,
	}
}

func trackSkippedUpdate(step, total int, entry ManifestEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s - %s already exists", step, total, entry.Artist, entry.Title),
	}
}

func trackFailedUpdate(step, total int, entry ManifestEntry, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, entry.Artist, entry.Title, err),
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
