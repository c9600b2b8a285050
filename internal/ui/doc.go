// Package ui implements the interactive payout editor using bubbletea's Elm architecture.
//
// The TUI edits one pending album:
//  1. [TrackListView] : select tracks (space, a, c) and reorder them (K/J)
//  2. [InputView] : set the stream threshold or artist percentage of the selection
//  3. [ConfirmView] : review the album before publishing
//  4. [UploadView] : follow the upload phases
//  5. [ResultView] : the created album, or the generic failure message
//
// Free/paid (f) and payout mode (m) toggle directly on the selection. Every edit goes through [draft.State] inside
// Update and is then persisted through [Options.Save]. Progress updates flow through a channel from the
// album engine and are read one message at a time.
package ui
