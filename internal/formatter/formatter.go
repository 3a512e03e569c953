// package formatter renders playlist exports as CSV, Markdown, plain text and JSON files
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

// Format names an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat maps a flag value to a [Format]. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: format %q (use json, csv, markdown or txt)", shared.ErrInvalidFlag, s)
	}
}

// ExportToCSV converts a PlaylistExport to CSV with columns: ID, Title, Artist, Genre, Duration, URL
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Genre", "Duration", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Genre,
			strconv.Itoa(track.Duration),
			track.FileURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown with an optional cover image
func ExportToMarkdown(export *models.PlaylistExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Playlist.Description)
	}
	if export.Owner.Username != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", export.Owner.Username)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Length**: %s\n", shared.FormatDuration(export.Duration()))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", shared.VisibilityString(export.Playlist.Public))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		genre := ""
		if track.Genre != "" {
			genre = fmt.Sprintf(" (%s)", track.Genre)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, genre, shared.FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the full export, tracks included.
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(export *models.PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(struct {
		models.Playlist
		Owner      string `json:"owner,omitempty"`
		TrackCount int    `json:"track_count"`
		Duration   int    `json:"duration"`
	}{export.Playlist, export.Owner.Username, len(export.Tracks), export.Duration()}, true)
}

// CoverURL returns the cover of the first track that has one.
func CoverURL(export *models.PlaylistExport) string {
	for _, t := range export.Tracks {
		if t.CoverURL != "" {
			return t.CoverURL
		}
	}
	return ""
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// Written lists the files produced by [Write].
type Written struct {
	Format     Format
	Files      []string
	CoverImage string
}

// WriteOpts controls [Write].
type WriteOpts struct {
	// Base is the output path without extension. Defaults to the playlist ID.
	Base string
	// HTTPClient fetches the cover image for Markdown exports. Nil skips the cover.
	HTTPClient *http.Client
	// Warn receives non-fatal problems, such as a missing cover image.
	Warn func(msg string, err error)
}

// Write exports a playlist to disk in format.
//
//   - json: {base}.json
//   - csv: {base}_tracks.csv and {base}_metadata.json
//   - markdown: {base}/README.md and, when a cover downloads, {base}/cover.jpg
//   - txt: {base}_tracks.txt
func Write(export *models.PlaylistExport, format Format, opts WriteOpts) (*Written, error) {
	base := opts.Base
	if base == "" {
		base = export.Playlist.ID
	}
	warn := opts.Warn
	if warn == nil {
		warn = func(string, error) {}
	}

	result := &Written{Format: format}

	switch format {
	case FormatCSV:
		csvData, err := ExportToCSV(export)
		if err != nil {
			return nil, fmt.Errorf("failed to generate CSV: %w", err)
		}
		metadata, err := ToMetadataJSON(export)
		if err != nil {
			return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
		}
		if err := writeFile(result, base+"_tracks.csv", csvData); err != nil {
			return nil, err
		}
		if err := writeFile(result, base+"_metadata.json", metadata); err != nil {
			return nil, err
		}

	case FormatMarkdown:
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		var cover string
		if url := CoverURL(export); url != "" && opts.HTTPClient != nil {
			if data, err := DownloadImage(opts.HTTPClient, url); err != nil {
				warn("failed to download cover image", err)
			} else if err := writeFile(result, filepath.Join(base, "cover.jpg"), data); err != nil {
				warn("failed to save cover image", err)
			} else {
				cover = "cover.jpg"
				result.CoverImage = filepath.Join(base, cover)
			}
		}

		md, err := ExportToMarkdown(export, cover)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Markdown: %w", err)
		}
		if err := writeFile(result, filepath.Join(base, "README.md"), md); err != nil {
			return nil, err
		}

	case FormatText:
		text, err := ExportToText(export)
		if err != nil {
			return nil, fmt.Errorf("failed to generate text: %w", err)
		}
		if err := writeFile(result, base+"_tracks.txt", text); err != nil {
			return nil, err
		}

	case FormatJSON, "":
		result.Format = FormatJSON
		data, err := ExportToJSON(export)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JSON: %w", err)
		}
		if err := writeFile(result, base+".json", data); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
	}

	return result, nil
}

func writeFile(result *Written, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	result.Files = append(result.Files, path)
	return nil
}
