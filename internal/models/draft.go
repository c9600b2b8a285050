package models

import (
	"errors"
	"time"
)

// Draft is a [PendingAlbum] persisted between invocations, along with the current track selection.
type Draft struct {
	id        string
	sequence  int
	album     *PendingAlbum
	selected  []string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewDraft wraps album in a new, unsaved draft.
func NewDraft(sequence int, album *PendingAlbum) *Draft {
	if album == nil {
		album = &PendingAlbum{}
	}
	now := time.Now()
	return &Draft{sequence: sequence, album: album, createdAt: now, updatedAt: now}
}

func (d *Draft) ID() string                { return d.id }
func (d *Draft) Sequence() int             { return d.sequence }
func (d *Draft) Album() *PendingAlbum      { return d.album }
func (d *Draft) Selected() []string        { return d.selected }
func (d *Draft) CreatedAt() time.Time      { return d.createdAt }
func (d *Draft) UpdatedAt() time.Time      { return d.updatedAt }
func (d *Draft) DeletedAt() *time.Time     { return d.deletedAt }
func (d *Draft) SetID(id string)           { d.id = id }
func (d *Draft) SetSequence(s int)         { d.sequence = s }
func (d *Draft) SetAlbum(a *PendingAlbum)  { d.album = a }
func (d *Draft) SetSelected(ids []string)  { d.selected = ids }
func (d *Draft) SetCreatedAt(t time.Time)  { d.createdAt = t }
func (d *Draft) SetUpdatedAt(t time.Time)  { d.updatedAt = t }
func (d *Draft) SetDeletedAt(t *time.Time) { d.deletedAt = t }

// Validate only checks that the draft holds an album; publish-time checks live on [PendingAlbum.Validate].
func (d *Draft) Validate() error {
	if d.album == nil {
		return errors.New("draft has no album")
	}
	return nil
}

// Title returns the album title or a placeholder.
func (d *Draft) Title() string {
	if d.album == nil || d.album.Title == "" {
		return "(untitled)"
	}
	return d.album.Title
}
