package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/desertthunder/encore/internal/draft"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// checkMedia verifies that path exists and its contents are of the given top-level MIME type ("audio", "image").
func checkMedia(path, kind string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to detect file type: %w", err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), kind+"/") {
			return info.Size(), nil
		}
	}
	return 0, fmt.Errorf("%w: %s is %s, not %s", shared.ErrInvalidInput, filepath.Base(path), mt.String(), kind)
}

// parsePositions turns 1-based CLI positions ("1,3" or "1 3") into 0-based indices.
func parsePositions(args ...string) ([]int, error) {
	var out []int
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: track position %q must be a number from 1", shared.ErrInvalidArgument, part)
			}
			out = append(out, n-1)
		}
	}
	return out, nil
}

func (r *Runner) addFiles(state *draft.State, paths []string, name string) error {
	for _, path := range paths {
		size, err := checkMedia(path, "audio")
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		var t models.Track
		if name != "" && len(paths) == 1 {
			t = state.AddNamed(abs, name)
		} else {
			t = state.Add(abs)
		}
		r.logger.Debug("track added", "name", t.Name, "size", shared.FormatBytes(size))
		r.writePlain("  + %02d. %s (%s)\n", t.Position+1, t.Name, shared.FormatBytes(size))
	}
	return nil
}

// applyDetails copies album metadata flags that were set on cmd into state.
func (r *Runner) applyDetails(cmd *cli.Command, state *draft.State) error {
	album := state.Album()
	title, year, label, explicit := album.Title, album.Year, album.RecordLabel, album.Explicit
	if cmd.IsSet("title") {
		title = strings.TrimSpace(cmd.String("title"))
	}
	if cmd.IsSet("year") {
		year = cmd.Int("year")
	}
	if cmd.IsSet("label") {
		label = cmd.String("label")
	}
	if cmd.IsSet("explicit") {
		explicit = cmd.Bool("explicit")
	}
	state.SetMetadata(title, year, label, explicit)

	if cmd.IsSet("artist") {
		album.ArtistName = strings.TrimSpace(cmd.String("artist"))
	}
	if cover := cmd.String("cover"); cover != "" {
		if _, err := checkMedia(cover, "image"); err != nil {
			return err
		}
		abs, err := filepath.Abs(cover)
		if err != nil {
			return err
		}
		state.SetCover(abs)
	}
	return nil
}

// DraftNew starts a new album draft, optionally adding audio files given as arguments.
func (r *Runner) DraftNew(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.drafts()
	if err != nil {
		return err
	}

	state := draft.New(nil)
	if err := r.applyDetails(cmd, state); err != nil {
		return err
	}
	if state.Album().Title == "" {
		return fmt.Errorf("%w: --title is required", shared.ErrMissingArgument)
	}

	r.writePlain("New draft: %s\n", state.Album().Title)
	if err := r.addFiles(state, cmd.Args().Slice(), ""); err != nil {
		return err
	}

	d := models.NewDraft(0, state.Album())
	if err := repo.Create(d); err != nil {
		return err
	}

	r.logger.Info("draft created", "id", d.ID(), "sequence", d.Sequence())
	return r.writePlain("✓ Draft #%d created with %d tracks\n", d.Sequence(), state.Len())
}

// DraftAdd adds audio files to a draft.
func (r *Runner) DraftAdd(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one audio file is required", shared.ErrMissingArgument)
	}

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := r.addFiles(state, paths, cmd.String("name")); err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.writePlain("✓ Draft #%d now has %d tracks\n", d.Sequence(), state.Len())
}

// DraftRemove removes tracks by position. Published tracks are deleted on the next upload.
func (r *Runner) DraftRemove(ctx context.Context, cmd *cli.Command) error {
	positions, err := parsePositions(cmd.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return fmt.Errorf("%w: track position is required", shared.ErrMissingArgument)
	}

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}

	// Remove from the end so earlier positions stay valid.
	slices.Sort(positions)
	positions = slices.Compact(positions)
	slices.Reverse(positions)
	for _, pos := range positions {
		t, err := state.Track(pos)
		if err != nil {
			return err
		}
		if err := state.Remove(pos); err != nil {
			return err
		}
		r.writePlain("  - %s\n", t.Name)
	}

	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.writePlain("✓ Draft #%d now has %d tracks\n", d.Sequence(), state.Len())
}

// DraftMove moves the track at one position to another.
func (r *Runner) DraftMove(ctx context.Context, cmd *cli.Command) error {
	positions, err := parsePositions(cmd.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(positions) != 2 {
		return fmt.Errorf("%w: usage: encore draft move <from> <to>", shared.ErrInvalidArgument)
	}

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := state.Move(positions[0], positions[1]); err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.printTracks(state)
}

// DraftRename changes a track's display name.
func (r *Runner) DraftRename(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: encore draft rename <position> <name>", shared.ErrMissingArgument)
	}
	positions, err := parsePositions(args[0])
	if err != nil || len(positions) != 1 {
		return fmt.Errorf("%w: invalid position %q", shared.ErrInvalidArgument, args[0])
	}

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := state.Rename(positions[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.printTracks(state)
}

// DraftSelect sets the track selection that payout commands apply to.
func (r *Runner) DraftSelect(ctx context.Context, cmd *cli.Command) error {
	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := r.applySelection(cmd, state, cmd.Args().Slice()); err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.printTracks(state)
}

// applySelection replaces the selection from --all, --none, --tracks or position arguments. With none of
// them the stored selection is kept.
func (r *Runner) applySelection(cmd *cli.Command, state *draft.State, args []string) error {
	switch {
	case cmd.Bool("all"):
		state.SelectAll()
		return nil
	case cmd.Bool("none"):
		state.ClearSelection()
		return nil
	}

	if cmd.IsSet("tracks") {
		args = append(args, cmd.String("tracks"))
	}
	if len(args) == 0 {
		return nil
	}

	positions, err := parsePositions(args...)
	if err != nil {
		return err
	}
	state.ClearSelection()
	return state.Select(positions...)
}

// DraftDetails sets album metadata and the cover image.
func (r *Runner) DraftDetails(ctx context.Context, cmd *cli.Command) error {
	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := r.applyDetails(cmd, state); err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.DraftShow(ctx, cmd)
}

func (r *Runner) printTracks(state *draft.State) error {
	for i, t := range state.Tracks() {
		mark := " "
		if state.IsSelected(i) {
			mark = "*"
		}
		r.writePlain("%s %02d. %-30s %s\n", mark, i+1, t.Name, formatter.Payout(t))
	}
	return nil
}

// DraftShow prints a draft as text or JSON.
func (r *Runner) DraftShow(ctx context.Context, cmd *cli.Command) error {
	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			ID       string               `json:"id"`
			Sequence int                  `json:"sequence"`
			Selected []string             `json:"selected"`
			Album    *models.PendingAlbum `json:"album"`
		}{d.ID(), d.Sequence(), state.SelectedIDs(), state.Album()}, true)
	}

	text, err := formatter.ExportToText(state.Album())
	if err != nil {
		return err
	}
	r.writePlainHeader(fmt.Sprintf("Draft #%d", d.Sequence()))
	r.writePlain("%s\n", text)
	r.writePlain("Selected: %d of %d tracks (* below)\n", len(state.Selected()), state.Len())
	return r.printTracks(state)
}

// DraftList lists saved drafts.
func (r *Runner) DraftList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.drafts()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if cmd.IsSet("editing") {
		criteria["editing"] = cmd.Bool("editing")
	}
	drafts, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if len(drafts) == 0 {
		return r.writePlain("No drafts. Start one with 'encore draft new --title ...'\n")
	}

	for _, d := range drafts {
		kind := "new"
		if d.Album().Editing() {
			kind = "edit " + d.Album().EditingAlbumID
		}
		r.writePlain("#%-3d %-30s %2d tracks  %-12s updated %s\n",
			d.Sequence(), d.Title(), len(d.Album().Tracks), kind, d.UpdatedAt().Format("2006-01-02 15:04"))
	}
	return nil
}

// DraftDiscard deletes a draft.
func (r *Runner) DraftDiscard(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.drafts()
	if err != nil {
		return err
	}
	d, _, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := repo.Delete(d.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Draft #%d discarded\n", d.Sequence())
}

// DraftExport writes a draft as CSV, markdown or text.
func (r *Runner) DraftExport(ctx context.Context, cmd *cli.Command) error {
	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		output = fmt.Sprintf("draft_%d", d.Sequence())
	}

	files, err := formatter.Write(state.Album(), cmd.String("format"), output, state.Album().CoverURL)
	if err != nil {
		return err
	}
	for _, f := range files {
		r.writePlain("✓ Wrote %s\n", f)
	}
	return nil
}
