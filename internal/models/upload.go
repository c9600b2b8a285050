package models

import (
	"errors"
	"time"
)

// UploadStatus is the lifecycle state of an [UploadJob].
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadRunning   UploadStatus = "running"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// UploadJob records one attempt to publish a draft.
type UploadJob struct {
	id           string
	sequence     int
	draftID      string
	albumID      string
	albumTitle   string
	status       UploadStatus
	editing      bool
	trackCount   int
	songsWritten int
	tagCount     int
	phase        string
	errMsg       string
	startedAt    *time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewUploadJob creates a pending job for the album in draft draftID.
func NewUploadJob(sequence int, draftID string, album *PendingAlbum) *UploadJob {
	now := time.Now()
	j := &UploadJob{
		sequence:  sequence,
		draftID:   draftID,
		status:    UploadPending,
		createdAt: now,
		updatedAt: now,
	}
	if album != nil {
		j.albumTitle = album.Title
		j.albumID = album.EditingAlbumID
		j.editing = album.Editing()
		j.trackCount = len(album.Tracks)
		j.tagCount = len(album.Tags)
	}
	return j
}

func (j *UploadJob) ID() string              { return j.id }
func (j *UploadJob) Sequence() int           { return j.sequence }
func (j *UploadJob) DraftID() string         { return j.draftID }
func (j *UploadJob) AlbumID() string         { return j.albumID }
func (j *UploadJob) AlbumTitle() string      { return j.albumTitle }
func (j *UploadJob) Status() UploadStatus    { return j.status }
func (j *UploadJob) Editing() bool           { return j.editing }
func (j *UploadJob) TrackCount() int         { return j.trackCount }
func (j *UploadJob) SongsWritten() int       { return j.songsWritten }
func (j *UploadJob) TagCount() int           { return j.tagCount }
func (j *UploadJob) Phase() string           { return j.phase }
func (j *UploadJob) Error() string           { return j.errMsg }
func (j *UploadJob) StartedAt() *time.Time   { return j.startedAt }
func (j *UploadJob) CompletedAt() *time.Time { return j.completedAt }
func (j *UploadJob) CreatedAt() time.Time    { return j.createdAt }
func (j *UploadJob) UpdatedAt() time.Time    { return j.updatedAt }
func (j *UploadJob) DeletedAt() *time.Time   { return j.deletedAt }
func (j *UploadJob) SetID(id string)         { j.id = id }
func (j *UploadJob) SetSequence(s int)       { j.sequence = s }
func (j *UploadJob) SetAlbumID(id string)    { j.albumID = id }
func (j *UploadJob) SetEditing(e bool)       { j.editing = e }
func (j *UploadJob) SetCounts(tracks, songs, tags int) {
	j.trackCount, j.songsWritten, j.tagCount = tracks, songs, tags
}
func (j *UploadJob) SetPhase(p string)           { j.phase = p }
func (j *UploadJob) SetCreatedAt(t time.Time)    { j.createdAt = t }
func (j *UploadJob) SetUpdatedAt(t time.Time)    { j.updatedAt = t }
func (j *UploadJob) SetDeletedAt(t *time.Time)   { j.deletedAt = t }
func (j *UploadJob) SetStartedAt(t *time.Time)   { j.startedAt = t }
func (j *UploadJob) SetCompletedAt(t *time.Time) { j.completedAt = t }

// SetStatus records a status transition with an optional error message.
func (j *UploadJob) SetStatus(s UploadStatus, errMsg string) {
	j.status = s
	j.errMsg = errMsg
}

// Start marks the job running.
func (j *UploadJob) Start() {
	now := time.Now()
	j.status = UploadRunning
	j.startedAt = &now
}

// Complete marks the job finished successfully.
func (j *UploadJob) Complete(albumID string, songs int) {
	now := time.Now()
	j.status = UploadCompleted
	j.albumID = albumID
	j.songsWritten = songs
	j.completedAt = &now
}

// Fail marks the job failed at phase.
func (j *UploadJob) Fail(phase string, err error) {
	now := time.Now()
	j.status = UploadFailed
	j.phase = phase
	if err != nil {
		j.errMsg = err.Error()
	}
	j.completedAt = &now
}

// Validate checks the status value.
func (j *UploadJob) Validate() error {
	switch j.status {
	case UploadPending, UploadRunning, UploadCompleted, UploadFailed:
		return nil
	}
	return errors.New("invalid upload status: " + string(j.status))
}
