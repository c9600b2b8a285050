package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Backend is the subset of the remote catalog the engine drives.
// It is satisfied by services.Catalog.
type Backend interface {
	PlatformConstants(ctx context.Context) (*models.PlatformConstants, error)
	Artist(ctx context.Context, id string) (*models.ArtistRecord, error)
	SetArtistName(ctx context.Context, id, name string) error

	CreateAlbum(ctx context.Context, rec models.AlbumRecord) (*models.AlbumRecord, error)
	UpdateAlbum(ctx context.Context, rec models.AlbumRecord) error
	Album(ctx context.Context, id string) (*models.AlbumRecord, error)
	Albums(ctx context.Context, artistID string) ([]models.AlbumRecord, error)
	AlbumSongs(ctx context.Context, albumID string) ([]models.SongRecord, error)
	DeleteAlbum(ctx context.Context, albumID string) error

	UpsertTag(ctx context.Context, rec models.TagRecord) (*models.TagRecord, error)
	DeleteTags(ctx context.Context, albumID string, tagIDs []string) error
	TagsByCategory(ctx context.Context, category models.TagCategory) ([]models.TagRecord, error)
	SongTags(ctx context.Context, songID string) ([]models.TagRecord, error)

	InsertSong(ctx context.Context, rec models.SongRecord) (*models.SongRecord, error)
	EditTrack(ctx context.Context, rec models.SongRecord) error
	DeleteTrack(ctx context.Context, songID string) error

	LinkSongsToAlbum(ctx context.Context, links []models.SongAlbumRecord) error
	LinkSongsToTags(ctx context.Context, links []models.SongTagRecord) error

	StoreAudio(ctx context.Context, name string, data []byte) (string, error)
	StoreCover(ctx context.Context, name string, data []byte) (string, error)
	RemoveFiles(ctx context.Context, audioURLs []string, coverURL string) error
}

// JobRecorder persists upload attempts. Recording is best effort: failures are logged, never returned.
type JobRecorder interface {
	Begin(draftID string, album *models.PendingAlbum) (*models.UploadJob, error)
	Finish(job *models.UploadJob) error
}

// UploadRequest is one publish of a pending album.
type UploadRequest struct {
	Album   *models.PendingAlbum
	UserID  string // artist id, equal to the signed-in user's id
	DraftID string // local draft the album came from, optional
}

// UploadResult describes what an upload wrote.
type UploadResult struct {
	AlbumID  string
	CoverURL string
	SongIDs  []string // in track order
	TagIDs   []string
	Removed  []string // songs deleted from an edited album
	Editing  bool
}

// UploadError reports the phase an upload stopped in. It matches [shared.ErrUploadFailed].
//
// Steps completed before the failure are not rolled back.
type UploadError struct {
	Phase   Phase
	AlbumID string // set once the album row exists
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%v during %s: %v", shared.ErrUploadFailed, e.Phase, e.Err)
}

func (e *UploadError) Unwrap() []error { return []error{shared.ErrUploadFailed, e.Err} }

// ExploreResult holds every tag on the platform grouped by category.
type ExploreResult struct {
	Tags map[models.TagCategory][]models.TagRecord
}

// Count returns the total number of tags.
func (r *ExploreResult) Count() int {
	n := 0
	for _, tags := range r.Tags {
		n += len(tags)
	}
	return n
}

// AlbumEngine publishes, loads and deletes albums against a [Backend].
//
// At most one upload runs at a time per engine; a concurrent call fails fast with [shared.ErrUploadInProgress].
type AlbumEngine struct {
	backend  Backend
	jobs     JobRecorder
	logger   *log.Logger
	readFile func(string) ([]byte, error)
	newName  func(string) string
	newID    func() string
	inFlight atomic.Bool
}

// NewAlbumEngine creates a new AlbumEngine backed by backend.
func NewAlbumEngine(backend Backend, logger *log.Logger) *AlbumEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AlbumEngine{
		backend:  backend,
		logger:   logger,
		readFile: os.ReadFile,
		newName:  shared.GenerateFileName,
		newID:    shared.GenerateID,
	}
}

// SetJobRecorder enables upload history. A nil recorder disables it.
func (e *AlbumEngine) SetJobRecorder(r JobRecorder) { e.jobs = r }

// Uploading reports whether an upload is in flight.
func (e *AlbumEngine) Uploading() bool { return e.inFlight.Load() }

// sendProgress sends a progress update through the channel without blocking.
func (e *AlbumEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// MinStreamThreshold returns the platform minimum, or fallback when it cannot be fetched.
func (e *AlbumEngine) MinStreamThreshold(ctx context.Context, fallback int) int {
	pc, err := e.backend.PlatformConstants(ctx)
	if err != nil {
		e.logger.Warn("using configured minimum stream threshold", "fallback", fallback, "error", err)
		return fallback
	}
	return pc.MinStreamThreshold
}

// Upload publishes req.Album.
//
// The steps run in a fixed order and each one requires the previous to succeed: cover, artist name, album row,
// tags, tracks, then song_album and song_tag links. The first failure stops the upload and is returned as an
// [*UploadError]; nothing already written is undone.
func (e *AlbumEngine) Upload(ctx context.Context, req UploadRequest, progress chan<- ProgressUpdate) (*UploadResult, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, shared.ErrUploadInProgress
	}
	defer e.inFlight.Store(false)

	if req.Album == nil {
		return nil, fmt.Errorf("%w: no album to upload", shared.ErrInvalidArgument)
	}
	if req.UserID == "" {
		return nil, shared.ErrNotAuthenticated
	}
	if err := req.Album.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	job := e.beginJob(req)
	res, err := e.upload(ctx, req, progress)
	e.finishJob(job, res, err)
	if err != nil {
		var uerr *UploadError
		if errors.As(err, &uerr) {
			e.logger.Error("album upload failed", "phase", uerr.Phase, "album", uerr.AlbumID, "error", uerr.Err)
		}
		return res, err
	}

	e.sendProgress(progress, uploadDoneUpdate(res))
	e.logger.Info("album published", "album", res.AlbumID, "songs", len(res.SongIDs), "tags", len(res.TagIDs))
	return res, nil
}

func (e *AlbumEngine) upload(ctx context.Context, req UploadRequest, progress chan<- ProgressUpdate) (*UploadResult, error) {
	album := req.Album
	res := &UploadResult{Editing: album.Editing(), AlbumID: album.EditingAlbumID, CoverURL: album.CoverURL}
	fail := func(phase Phase, err error) (*UploadResult, error) {
		return res, &UploadError{Phase: phase, AlbumID: res.AlbumID, Err: err}
	}

	if album.CoverChanged() {
		e.sendProgress(progress, coverUpdate(album.CoverPath))
		data, err := e.readFile(album.CoverPath)
		if err != nil {
			return fail(UploadCover, fmt.Errorf("failed to read cover: %w", err))
		}
		url, err := e.backend.StoreCover(ctx, e.newName(album.CoverPath), data)
		if err != nil {
			return fail(UploadCover, err)
		}
		res.CoverURL = url
	} else {
		e.sendProgress(progress, keepCoverUpdate())
	}

	artist, err := e.backend.Artist(ctx, req.UserID)
	if err != nil {
		return fail(UpdateArtist, err)
	}
	if artist.Name == "" && album.ArtistName != "" {
		e.sendProgress(progress, artistUpdate(album.ArtistName))
		if err := e.backend.SetArtistName(ctx, req.UserID, album.ArtistName); err != nil {
			return fail(UpdateArtist, err)
		}
	}

	rec := models.AlbumRecord{
		ID:          album.EditingAlbumID,
		ArtistID:    req.UserID,
		Title:       album.Title,
		Year:        album.Year,
		RecordLabel: album.RecordLabel,
		Explicit:    album.Explicit,
		CoverURL:    res.CoverURL,
	}
	e.sendProgress(progress, albumUpdate(album.Title, res.Editing))
	if res.Editing {
		if err := e.backend.UpdateAlbum(ctx, rec); err != nil {
			return fail(SaveAlbum, err)
		}
	} else {
		created, err := e.backend.CreateAlbum(ctx, rec)
		if err != nil {
			return fail(SaveAlbum, err)
		}
		rec = *created
		res.AlbumID = created.ID
	}
	e.sendProgress(progress, albumSavedUpdate(rec))

	tagIDs, err := e.saveTags(ctx, album, progress)
	if err != nil {
		return fail(SaveTags, err)
	}
	res.TagIDs = tagIDs

	total := len(album.Tracks)
	songIDs := make([]string, 0, total)
	for i, t := range album.Tracks {
		e.sendProgress(progress, trackUpdate(i+1, total, t))
		song, err := e.saveTrack(ctx, req.UserID, t)
		if err != nil {
			return fail(UploadTracks, fmt.Errorf("track %q: %w", t.Name, err))
		}
		songIDs = append(songIDs, song.ID)
		e.sendProgress(progress, trackDoneUpdate(i+1, total, *song))
	}

	if res.Editing {
		for i, id := range album.RemovedSongIDs {
			e.sendProgress(progress, removeTrackUpdate(i+1, len(album.RemovedSongIDs), id))
			if err := e.backend.DeleteTrack(ctx, id); err != nil {
				return fail(RemoveTracks, err)
			}
			res.Removed = append(res.Removed, id)
		}
	}

	e.sendProgress(progress, linkUpdate(len(songIDs), len(tagIDs)))
	albumLinks := make([]models.SongAlbumRecord, 0, len(songIDs))
	tagLinks := make([]models.SongTagRecord, 0, len(songIDs)*len(tagIDs))
	for _, songID := range songIDs {
		albumLinks = append(albumLinks, models.SongAlbumRecord{SongID: songID, AlbumID: res.AlbumID})
		for _, tagID := range tagIDs {
			tagLinks = append(tagLinks, models.SongTagRecord{SongID: songID, TagID: tagID})
		}
	}
	if err := e.backend.LinkSongsToAlbum(ctx, albumLinks); err != nil {
		return fail(LinkSongs, err)
	}
	if len(tagLinks) > 0 {
		if err := e.backend.LinkSongsToTags(ctx, tagLinks); err != nil {
			return fail(LinkSongs, err)
		}
	}

	res.SongIDs = songIDs
	return res, nil
}

// saveTags writes the album's tags one category at a time and returns their remote ids.
func (e *AlbumEngine) saveTags(ctx context.Context, album *models.PendingAlbum, progress chan<- ProgressUpdate) ([]string, error) {
	var ids []string
	for i, category := range models.Categories {
		tags := album.TagsIn(category)
		e.sendProgress(progress, tagUpdate(i+1, len(models.Categories), category, len(tags)))

		var removed []string
		for _, t := range tags {
			if t.RemoteID != "" && !t.Renamed() {
				ids = append(ids, t.RemoteID)
				continue
			}
			saved, err := e.backend.UpsertTag(ctx, models.TagRecord{Name: t.Name, Category: string(category)})
			if err != nil {
				return nil, fmt.Errorf("save tag %q: %w", t.Name, err)
			}
			ids = append(ids, saved.ID)
			// Tag rows are shared by every album, so a rename relinks instead of updating the row.
			if t.Renamed() {
				removed = append(removed, t.RemoteID)
			}
		}

		if !album.Editing() {
			continue
		}
		for _, t := range album.RemovedTags {
			if t.Category == category && t.RemoteID != "" {
				removed = append(removed, t.RemoteID)
			}
		}
		removed = slices.DeleteFunc(removed, func(id string) bool { return slices.Contains(ids, id) })
		if len(removed) > 0 {
			if err := e.backend.DeleteTags(ctx, album.EditingAlbumID, removed); err != nil {
				return nil, fmt.Errorf("remove %s tags: %w", category, err)
			}
		}
	}
	return ids, nil
}

// saveTrack uploads a track's audio when it has a local file, then inserts or edits its song row.
func (e *AlbumEngine) saveTrack(ctx context.Context, artistID string, t models.Track) (*models.SongRecord, error) {
	var fileURL, fileName string
	if t.NeedsUpload() {
		data, err := e.readFile(t.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio: %w", err)
		}
		fileName = e.newName(t.FilePath)
		fileURL, err = e.backend.StoreAudio(ctx, fileName, data)
		if err != nil {
			return nil, err
		}
	}

	rec := models.NewSongRecord(artistID, t, fileURL, fileName)
	if t.Existing() {
		if err := e.backend.EditTrack(ctx, rec); err != nil {
			return nil, err
		}
		return &rec, nil
	}
	return e.backend.InsertSong(ctx, rec)
}

// DeleteAlbum removes an album and its songs through the delete_album procedure, then removes the stored files.
//
// Files are removed after the rows so a failed delete never leaves rows pointing at missing objects.
func (e *AlbumEngine) DeleteAlbum(ctx context.Context, albumID string, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, deleteAlbumUpdate(1, 3, "Fetching album..."))
	album, err := e.backend.Album(ctx, albumID)
	if err != nil {
		return err
	}
	songs, err := e.backend.AlbumSongs(ctx, albumID)
	if err != nil {
		return err
	}

	e.sendProgress(progress, deleteAlbumUpdate(2, 3, fmt.Sprintf("Deleting %s and %d songs...", album.Title, len(songs))))
	if err := e.backend.DeleteAlbum(ctx, albumID); err != nil {
		return err
	}

	urls := make([]string, 0, len(songs))
	for _, s := range songs {
		if s.FileURL != "" {
			urls = append(urls, s.FileURL)
		}
	}
	e.sendProgress(progress, deleteAlbumUpdate(3, 3, fmt.Sprintf("Removing %d files...", len(urls)+1)))
	if err := e.backend.RemoveFiles(ctx, urls, album.CoverURL); err != nil {
		e.logger.Warn("album deleted but files remain in storage", "album", albumID, "error", err)
	}
	return nil
}

// Explore fetches every tag category concurrently.
func (e *AlbumEngine) Explore(ctx context.Context, progress chan<- ProgressUpdate) (*ExploreResult, error) {
	results := make([][]models.TagRecord, len(models.Categories))
	var done atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	for i, category := range models.Categories {
		g.Go(func() error {
			tags, err := e.backend.TagsByCategory(ctx, category)
			if err != nil {
				return fmt.Errorf("fetch %s tags: %w", category, err)
			}
			results[i] = tags
			e.sendProgress(progress, exploreUpdate(int(done.Add(1)), len(models.Categories), category, len(tags)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ExploreResult{Tags: make(map[models.TagCategory][]models.TagRecord, len(models.Categories))}
	for i, category := range models.Categories {
		out.Tags[category] = results[i]
	}
	return out, nil
}

// LoadAlbum rebuilds a published album as a pending album so it can be edited and re-uploaded.
//
// Tags are collected from every song and deduplicated; the cover keeps its public URL.
func (e *AlbumEngine) LoadAlbum(ctx context.Context, albumID string, progress chan<- ProgressUpdate) (*models.PendingAlbum, error) {
	e.sendProgress(progress, loadAlbumUpdate(1, 3, "Fetching album..."))
	rec, err := e.backend.Album(ctx, albumID)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, loadAlbumUpdate(2, 3, "Fetching songs..."))
	songs, err := e.backend.AlbumSongs(ctx, albumID)
	if err != nil {
		return nil, err
	}

	album := &models.PendingAlbum{
		Title:          rec.Title,
		Year:           rec.Year,
		RecordLabel:    rec.RecordLabel,
		Explicit:       rec.Explicit,
		CoverURL:       rec.CoverURL,
		EditingAlbumID: rec.ID,
	}
	for i, s := range songs {
		t := models.TrackFromSong(e.newID(), s)
		t.Position = i
		album.Tracks = append(album.Tracks, t)
	}

	e.sendProgress(progress, loadAlbumUpdate(3, 3, "Fetching tags..."))
	seen := map[string]bool{}
	for _, s := range songs {
		tags, err := e.backend.SongTags(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			category, err := models.ParseCategory(t.Category)
			if err != nil {
				e.logger.Warn("skipping tag with unknown category", "tag", t.Name, "category", t.Category)
				continue
			}
			album.Tags = append(album.Tags, models.Tag{RemoteID: t.ID, Name: t.Name, Category: category})
		}
	}
	return album, nil
}

func (e *AlbumEngine) beginJob(req UploadRequest) *models.UploadJob {
	if e.jobs == nil {
		return nil
	}
	job, err := e.jobs.Begin(req.DraftID, req.Album)
	if err != nil {
		e.logger.Warn("failed to record upload start", "error", err)
		return nil
	}
	return job
}

func (e *AlbumEngine) finishJob(job *models.UploadJob, res *UploadResult, err error) {
	if job == nil {
		return
	}
	var uerr *UploadError
	switch {
	case err == nil:
		job.Complete(res.AlbumID, len(res.SongIDs))
	case errors.As(err, &uerr):
		job.SetAlbumID(uerr.AlbumID)
		job.Fail(uerr.Phase.String(), uerr.Err)
	default:
		job.Fail("", err)
	}
	if ferr := e.jobs.Finish(job); ferr != nil {
		e.logger.Warn("failed to record upload result", "job", job.ID(), "error", ferr)
	}
}
