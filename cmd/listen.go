package main

import (
	"context"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// listenerAction runs fn for the signed-in listener and the song argument.
func (r *Runner) listenerAction(cmd *cli.Command, fn func(listenerID, songID string) error) (string, error) {
	songID, err := songArg(cmd)
	if err != nil {
		return "", err
	}
	userID, err := r.userID()
	if err != nil {
		return "", err
	}
	return songID, fn(userID, songID)
}

// ListenLike likes a song.
func (r *Runner) ListenLike(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	songID, err := r.listenerAction(cmd, func(l, s string) error { return catalog.Like(ctx, l, s) })
	if err != nil {
		return err
	}
	return r.writePlain("♥ Liked %s\n", songID)
}

// ListenUnlike removes a like.
func (r *Runner) ListenUnlike(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	songID, err := r.listenerAction(cmd, func(l, s string) error { return catalog.Unlike(ctx, l, s) })
	if err != nil {
		return err
	}
	return r.writePlain("✓ Unliked %s\n", songID)
}

// ListenSave adds a song to the listener's library.
func (r *Runner) ListenSave(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	songID, err := r.listenerAction(cmd, func(l, s string) error { return catalog.AddToLibrary(ctx, l, s) })
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added %s to your library\n", songID)
}

// ListenForget removes a song from the listener's library.
func (r *Runner) ListenForget(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	songID, err := r.listenerAction(cmd, func(l, s string) error { return catalog.RemoveFromLibrary(ctx, l, s) })
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from your library\n", songID)
}

func (r *Runner) printSongs(songs []models.SongRecord, asJSON bool) error {
	if asJSON {
		return r.writeJSON(songs, true)
	}
	if len(songs) == 0 {
		return r.writePlain("No songs\n")
	}
	for _, s := range songs {
		payout := "free"
		if !s.IsFree && s.StreamThreshold != nil {
			payout = "pays after " + shared.FormatCount(*s.StreamThreshold) + " streams"
		}
		r.writePlain("%s  %-30s %s\n", s.ID, s.Title, payout)
	}
	return nil
}

// ListenLibrary prints the listener's library, or liked songs with --liked.
func (r *Runner) ListenLibrary(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.userID()
	if err != nil {
		return err
	}
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}

	var songs []models.SongRecord
	if cmd.Bool("liked") {
		songs, err = catalog.LikedSongs(ctx, userID)
	} else {
		songs, err = catalog.Library(ctx, userID)
	}
	if err != nil {
		return err
	}
	return r.printSongs(songs, cmd.Bool("json"))
}

// ListenStreams prints the listener's stream counts, or the total for one song with --song.
func (r *Runner) ListenStreams(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}

	if songID := cmd.String("song"); songID != "" {
		n, err := catalog.SongStreamCount(ctx, songID)
		if err != nil {
			return err
		}
		return r.writePlain("%s: %s streams\n", songID, shared.FormatCount(n))
	}

	userID, err := r.userID()
	if err != nil {
		return err
	}
	streams, err := catalog.Streams(ctx, userID)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(streams, true)
	}
	for _, s := range streams {
		r.writePlain("%s  %s streams\n", s.SongID, shared.FormatCount(s.Streams))
	}
	return nil
}
