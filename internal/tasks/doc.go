// Package tasks publishes albums to the backend with real-time progress reporting.
//
// # Core Operations
//
// [AlbumEngine] drives a [Backend] (services.Catalog in production):
//
//  1. [AlbumEngine.Upload] : Publish a pending album
//     - Uploads the cover image unless an edited album keeps its cover
//     - Backfills the artist display name when the artist row has none
//     - Creates or updates the album row
//     - Saves tags one category at a time; edited albums drop removed tags via delete_tags
//     - Uploads each track's audio and inserts or edits its song row, in position order
//     - Deletes songs removed from an edited album via delete_track
//     - Links every song to the album and to every tag
//
//  2. [AlbumEngine.LoadAlbum] : Rebuild a published album as a pending album for editing
//
//  3. [AlbumEngine.DeleteAlbum] : Remove an album with delete_album, then its stored files
//
//  4. [AlbumEngine.Explore] : Fetch all four tag categories concurrently
//
//  5. [AlbumEngine.ExportAlbums] : Export an artist's albums to files with a rate-limited worker pool
//
// # Failure Semantics
//
// An upload stops at the first failed step and returns an [*UploadError] naming the phase. Nothing written
// before the failure is rolled back: a failed track leaves the album row in place without songs or links.
// Callers show [shared.GenericErrorMessage] and log the details.
//
// Only one upload runs per engine. The gate is an atomic compare-and-swap, so a second call made while
// an upload is running returns [shared.ErrUploadInProgress] immediately.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking, so a slow reader misses updates rather than stalling an upload.
//
// # Upload History
//
// The optional [JobRecorder] interface records each upload attempt (repositories.UploadJobAdapter).
// Recording errors are logged and never fail the upload.
package tasks
