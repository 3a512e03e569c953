// Package tasks runs long catalog operations with real-time progress reporting.
//
// # Operations
//
// [Engine] implements two bulk operations:
//
//  1. [Engine.Import] : seed the catalog from a JSON [Manifest]
//     - Skips entries whose title and artist already exist
//     - Fetches audio and cover files (local paths or URLs) into the object store through a
//     rate-limited worker pool
//     - Attributes each track to a fixed user, or a random one
//     - Records counts and status in a [models.ImportJob]
//
//  2. [Engine.BulkExport] : write many playlists to disk
//     - Loads playlists at a fixed rate and renders them with the formatter package
//     - Writes an export_manifest.json summarizing successes and failures
//
// # Progress Reporting
//
// Both operations accept a ProgressUpdate channel. Sends use select with default, so a slow or
// absent reader never blocks the operation.
package tasks
