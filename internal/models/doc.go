// Package models defines catalog entities and persistence interfaces for tunebox.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs passed between the catalog, search, playback and HTTP layers
//   - [Track] : an uploaded audio item with its media locator
//   - [User] : an account federated from the identity provider
//   - [Playlist] : playlist metadata
//   - [PlaylistSummary] : playlist with owner, up to four preview tracks and a track count
//   - [PlaylistExport] : playlist with its owner and complete track listing
//
// 2. Persistent Entities: database-backed wrappers with soft delete support
//   - [PersistedUser], [PersistedTrack], [PersistedPlaylist]
//   - [ImportJob] : bulk import runs tracking progress and results
//
// All persistent entities implement the [Model] interface providing identity, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
