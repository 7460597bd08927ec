// Package services implements the upstream clients the daemon talks to.
//
// # Catalog
//
// [MusicBrainzClient] implements [MetadataClient] against the MusicBrainz ws/2 JSON API.
// Every request, retries included, first waits on a shared [RateLimiter] and then runs
// through a [Breaker] so an outage fails fast instead of hammering upstream.
//
// # Listening history
//
// [LastFMClient] implements [Library] for the Last.fm import job.
//
// # Email
//
// [SMTPMailer] implements [Mailer] with net/smtp and embedded text and HTML templates.
//
// # Error Handling
//
// Clients map failures onto sentinels from the shared package:
//   - [shared.ErrTransient] : network error, malformed payload, 5xx, or an open breaker. Callers retry.
//   - [shared.ErrNotFound] : upstream answered 404. Callers must not retry.
//   - [shared.ErrSendFailed] : email delivery failed. Callers retry later.
package services
