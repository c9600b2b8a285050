// Package models defines domain entities and persistence interfaces for the encore artist client.
//
// The package contains three categories of types:
//
// 1. Pending state: what an artist edits locally before publishing
//   - [Track] : an audio file with its payout settings
//   - [PendingAlbum] : album metadata, ordered tracks and tags
//   - [Tag] : a name in one of the four fixed [TagCategory] values
//
// 2. Remote records: JSON rows exchanged with the backend tables
//   - [AlbumRecord], [SongRecord], [TagRecord], [SongTagRecord], [SongAlbumRecord] and friends
//
// 3. Persistent entities: rows in the local SQLite database
//   - [Draft] : a pending album that survives between invocations
//   - [UploadJob] : one upload attempt with its outcome
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
