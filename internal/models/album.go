package models

import (
	"errors"
	"fmt"
)

// PendingAlbum is an album being prepared locally. It is discarded once an upload succeeds.
//
// EditingAlbumID selects update semantics: when set, the album and its existing songs are changed in place.
type PendingAlbum struct {
	Title          string   `json:"title"`
	Year           int      `json:"year"`
	RecordLabel    string   `json:"record_label"`
	Explicit       bool     `json:"explicit"`
	CoverPath      string   `json:"cover_path,omitempty"`
	CoverURL       string   `json:"cover_url,omitempty"`
	ArtistName     string   `json:"artist_name,omitempty"`
	EditingAlbumID string   `json:"editing_album_id,omitempty"`
	Tracks         []Track  `json:"tracks"`
	Tags           []Tag    `json:"tags"`
	RemovedTags    []Tag    `json:"removed_tags,omitempty"`
	RemovedSongIDs []string `json:"removed_song_ids,omitempty"`
}

// Editing reports whether the album already exists remotely.
func (a *PendingAlbum) Editing() bool { return a.EditingAlbumID != "" }

// CoverChanged reports whether a new cover image must be uploaded.
func (a *PendingAlbum) CoverChanged() bool { return a.CoverPath != "" }

// TagsIn returns the album's tags in category c, in insertion order.
func (a *PendingAlbum) TagsIn(c TagCategory) []Tag {
	var tags []Tag
	for _, t := range a.Tags {
		if t.Category == c {
			tags = append(tags, t)
		}
	}
	return tags
}

// Validate checks that the album can be published.
func (a *PendingAlbum) Validate() error {
	var errs []error
	if a.Title == "" {
		errs = append(errs, errors.New("album title is required"))
	}
	if !a.Editing() && a.CoverPath == "" {
		errs = append(errs, errors.New("album cover is required"))
	}
	if a.Editing() && a.CoverPath == "" && a.CoverURL == "" {
		errs = append(errs, errors.New("album cover is required"))
	}
	if len(a.Tracks) == 0 {
		errs = append(errs, errors.New("album has no tracks"))
	}
	for i, t := range a.Tracks {
		if t.Position != i {
			errs = append(errs, fmt.Errorf("track %q has position %d, want %d", t.Name, t.Position, i))
		}
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
