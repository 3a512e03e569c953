// Package repositories persists tunebox's catalog in SQLite.
//
// [UserRepository], [TrackRepository], [PlaylistRepository], [LikeRepository] and
// [ImportJobRepository] wrap a *sql.DB opened by shared.NewDatabase. Rows are soft deleted
// via deleted_at and every read filters them out.
//
// The Search* methods back the search aggregator's collaborators: a lower-cased LIKE
// substring match whose wildcards are escaped. [Catalog] bundles the three lookups behind
// the interfaces the search package consumes.
package repositories
