package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// AlbumList lists the signed-in artist's published albums.
func (r *Runner) AlbumList(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.userID()
	if err != nil {
		return err
	}
	backend, err := r.remote()
	if err != nil {
		return err
	}

	albums, err := backend.Albums(ctx, userID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(albums, true)
	}
	if len(albums) == 0 {
		return r.writePlain("No published albums\n")
	}
	for _, a := range albums {
		explicit := ""
		if a.Explicit {
			explicit = " [E]"
		}
		r.writePlain("%s  %s (%d)%s\n", a.ID, a.Title, a.Year, explicit)
	}
	return nil
}

// AlbumEdit loads a published album into a new draft so it can be changed and re-uploaded.
func (r *Runner) AlbumEdit(ctx context.Context, cmd *cli.Command) error {
	albumID := cmd.StringArg("id")
	if albumID == "" {
		return fmt.Errorf("%w: album id is required", shared.ErrMissingArgument)
	}

	engine, err := r.engine()
	if err != nil {
		return err
	}
	repo, err := r.drafts()
	if err != nil {
		return err
	}

	progressCh, stop := r.followProgress(func(u tasks.ProgressUpdate) {
		r.writePlain("📥 %s\n", u.Message)
	})
	album, err := engine.LoadAlbum(ctx, albumID, progressCh)
	stop()
	if err != nil {
		return err
	}

	d := models.NewDraft(0, album)
	if err := repo.Create(d); err != nil {
		return err
	}

	r.logger.Info("album loaded for editing", "album", albumID, "draft", d.Sequence())
	return r.writePlain("✓ Draft #%d created from '%s' (%d tracks, %d tags)\n",
		d.Sequence(), album.Title, len(album.Tracks), len(album.Tags))
}

// AlbumDelete deletes a published album with its songs and stored files.
func (r *Runner) AlbumDelete(ctx context.Context, cmd *cli.Command) error {
	albumID := cmd.StringArg("id")
	if albumID == "" {
		return fmt.Errorf("%w: album id is required", shared.ErrMissingArgument)
	}
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: deleting an album cannot be undone; pass --yes to confirm", shared.ErrInvalidArgument)
	}

	engine, err := r.engine()
	if err != nil {
		return err
	}

	progressCh, stop := r.followProgress(func(u tasks.ProgressUpdate) {
		r.writePlain("🗑  [%d/%d] %s\n", u.Step, u.Total, u.Message)
	})
	err = engine.DeleteAlbum(ctx, albumID, progressCh)
	stop()
	if err != nil {
		return err
	}
	return r.writePlain("✓ Album %s deleted\n", albumID)
}

// AlbumExport exports published albums to files, all of the artist's albums unless ids are given.
func (r *Runner) AlbumExport(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine()
	if err != nil {
		return err
	}

	opts := tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		WithCovers: cmd.Bool("covers"),
	}

	r.logger.Info("starting album export", "format", opts.Format, "workers", opts.NumWorkers)

	progressCh, stop := r.followProgress(func(u tasks.ProgressUpdate) {
		r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
	})

	var result *tasks.ExportResult
	if ids := cmd.Args().Slice(); len(ids) > 0 {
		result, err = engine.ExportAlbumIDs(ctx, ids, opts, progressCh)
	} else {
		var userID string
		userID, err = r.userID()
		if err == nil {
			result, err = engine.ExportAlbums(ctx, userID, opts, progressCh)
		}
	}
	stop()
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Albums: %d\n", result.TotalAlbums)
	r.writePlain("Successful: %d\n", result.SuccessfulExports)
	r.writePlain("Failed: %d\n", result.FailedExports)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return nil
}
