// Package models defines the domain entities of the release-tracking daemon.
//
// The package contains two categories of types:
//
// 1. Catalog entities mirrored from MusicBrainz
//   - [Artist] : a followed artist keyed by its MusicBrainz id
//   - [ReleaseGroup] : one release group of an artist, soft-deleted when withdrawn upstream
//   - [ReleaseDate] : partial YYYYMMDD date packed into a sortable integer
//   - [ReleaseType] : the category a user can opt in or out of
//
// 2. User-facing records owned by the daemon or shared with the web layer
//   - [User] : account with [NotificationPrefs]
//   - [Subscription] : user follows artist
//   - [Notification] / [PendingNotification] : fan-out records drained by the dispatcher
//   - [Job] : durable queued unit of work
//   - [UserSearch] : an ambiguous artist search awaiting manual resolution
//   - [ReleaseListing] : release group joined with its artist, as shown to users
//
// Entities stored in the database implement [Model] and are persisted through a [Repository].
package models
