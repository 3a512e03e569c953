// Package playback implements the single shared playback session.
//
// A [Session] owns one [Backend], a linear queue of tracks and a current index. All mutation goes
// through the session's commands (PlayTrack, Pause, Resume, Next, Previous, SeekTo, SetVolume and
// the queue operations). Callers observe the session through [Session.Snapshot] and
// [Session.Subscribe].
//
// Backends report progress asynchronously on an [Event] channel. The session consumes that channel
// on one goroutine and maps each [EventKind] to a single state transition:
//
//	Idle -> Loading            PlayTrack, Next, Previous
//	Loading -> Playing         PlaybackStarted
//	Playing <-> Paused         PlaybackPaused / PlaybackStarted
//	Playing|Paused -> Ended    TrackEnded
//	Ended -> Loading           when a later track is queued
//	Ended -> Idle              at the end of the queue
//
// Every event carries the generation returned by [Backend.Load]. Events from a load that has
// since been replaced are dropped.
//
// Two backends are provided: [VirtualBackend] simulates a media clock with a ticker and
// [NopBackend] acknowledges commands without producing sound.
package playback
