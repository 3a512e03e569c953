// Package search implements the unified search aggregator.
//
// A query fans out to three collaborators (a [TrackCatalog], a [UserDirectory] and a
// [PlaylistCatalog]) concurrently. Each returned item is wrapped in a [Result] and scored with
// [Score]; the combined list is stably sorted by descending score, so ties keep the order tracks,
// users, playlists.
//
// [Controller] adds the interactive layer: input is debounced and results from superseded queries
// are discarded. [Cache] optionally memoizes aggregated results in Redis.
package search
