// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository wraps a [DBTX], which is either the shared *sql.DB or an open *sql.Tx.
// A [Store] bundles all repositories over one handle and [Store.InTx] hands a
// transaction-scoped Store to a callback, so a page of catalog writes commits or rolls back as a unit.
//
// Key Implementations:
//   - [UserRepository] : accounts and notification preferences
//   - [ArtistRepository] : artists keyed by MusicBrainz id, walked in id order
//   - [ReleaseGroupRepository] : release groups with soft deletes and the [ReleaseQuery] listing
//   - [SubscriptionRepository] : user to artist edges, re-pointed on artist merges
//   - [NotificationRepository] : fan-out records drained per user
//   - [JobRepository] : FIFO job queue
//   - [UserSearchRepository] and [StarRepository] : user bookkeeping
//
// Inserts that may race with the web process use INSERT OR IGNORE so a duplicate is "already exists", never an error.
package repositories
