package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) printUploadProgress(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.UploadCover:
		r.writePlain("🖼  %s\n", u.Message)
	case tasks.UpdateArtist, tasks.SaveAlbum:
		r.writePlain("💿 %s\n", u.Message)
	case tasks.SaveTags:
		r.writePlain("🏷  [%d/%d] %s\n", u.Step, u.Total, u.Message)
	case tasks.UploadTracks, tasks.RemoveTracks:
		r.writePlain("🎵 [%d/%d] %s\n", u.Step, u.Total, u.Message)
	case tasks.LinkSongs:
		r.writePlain("🔗 %s\n", u.Message)
	case tasks.UploadDone:
		r.writePlain("✓ %s\n", u.Message)
	default:
		r.writePlain("   %s\n", u.Message)
	}
}

// Upload publishes a draft: cover, album, tags, tracks, then song links. The draft is discarded on success.
//
// Failures print only a generic message; the phase and cause are logged.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	album := state.Album()
	if err := album.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	userID, err := r.userID()
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	verb := "Uploading"
	if album.Editing() {
		verb = "Updating"
	}
	r.writePlain("%s '%s' (%d tracks, %d tags)\n\n", verb, album.Title, len(album.Tracks), len(album.Tags))

	progressCh, stop := r.followProgress(r.printUploadProgress)
	result, err := engine.Upload(ctx, tasks.UploadRequest{Album: album, UserID: userID, DraftID: d.ID()}, progressCh)
	stop()

	if err != nil {
		var uerr *tasks.UploadError
		if errors.As(err, &uerr) {
			r.logger.Error("upload failed", "draft", d.Sequence(), "phase", uerr.Phase, "album", uerr.AlbumID, "error", uerr.Err)
		} else {
			r.logger.Error("upload failed", "draft", d.Sequence(), "error", err)
		}
		return err
	}

	if !cmd.Bool("keep") {
		repo, err := r.drafts()
		if err != nil {
			return err
		}
		if err := repo.Delete(d.ID()); err != nil {
			r.logger.Warn("album published but draft could not be discarded", "draft", d.Sequence(), "error", err)
		}
	}

	r.writePlain("\n")
	r.writePlainHeader("Upload Complete!")
	r.writePlain("Album: %s\n", result.AlbumID)
	r.writePlain("Cover: %s\n", result.CoverURL)
	r.writePlain("Songs: %d\n", len(result.SongIDs))
	r.writePlain("Tags: %d\n", len(result.TagIDs))
	if len(result.Removed) > 0 {
		r.writePlain("Removed songs: %d\n", len(result.Removed))
	}
	return nil
}

// UploadsHistory lists recorded upload attempts.
func (r *Runner) UploadsHistory(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.uploads()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}
	jobs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			ID        string              `json:"id"`
			Sequence  int                 `json:"sequence"`
			Album     string              `json:"album"`
			AlbumID   string              `json:"album_id,omitempty"`
			Status    models.UploadStatus `json:"status"`
			Songs     int                 `json:"songs_written"`
			Tracks    int                 `json:"tracks"`
			Phase     string              `json:"phase,omitempty"`
			Error     string              `json:"error,omitempty"`
			CreatedAt string              `json:"created_at"`
		}
		rows := make([]row, 0, len(jobs))
		for _, j := range jobs {
			rows = append(rows, row{j.ID(), j.Sequence(), j.AlbumTitle(), j.AlbumID(), j.Status(), j.SongsWritten(),
				j.TrackCount(), j.Phase(), j.Error(), j.CreatedAt().Format("2006-01-02T15:04:05Z07:00")})
		}
		return r.writeJSON(rows, true)
	}

	if len(jobs) == 0 {
		return r.writePlain("No uploads recorded\n")
	}
	for _, j := range jobs {
		line := fmt.Sprintf("#%-3d %-10s %-30s %d/%d songs  %s",
			j.Sequence(), j.Status(), j.AlbumTitle(), j.SongsWritten(), j.TrackCount(), j.CreatedAt().Format("2006-01-02 15:04"))
		if j.Status() == models.UploadFailed {
			line += "  (failed during " + j.Phase() + ")"
		}
		line += "  " + j.ID()
		r.writePlain("%s\n", line)
	}
	return nil
}

// UploadsClear removes an upload record.
func (r *Runner) UploadsClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.uploads()
	if err != nil {
		return err
	}
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: upload id is required", shared.ErrMissingArgument)
	}
	if err := repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return fmt.Errorf("%w: no upload with id %s", shared.ErrNotFound, id)
		}
		return err
	}
	return r.writePlain("✓ Upload record %s removed\n", id)
}
