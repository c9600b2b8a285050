// Package repositories implements SQLite persistence for drafts and upload history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [DraftRepository] : Pending albums with their tracks, tags and selection
//   - [UploadRepository] : Upload attempts with status, counts and the phase a failure stopped in
//   - [UploadJobAdapter] : Records uploads for tasks.AlbumEngine
//
// Sequence numbers provide stable, human-readable ordering (e.g., draft #3, upload #12) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
