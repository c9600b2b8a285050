package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// followProgress prints progress updates until the returned stop func is called. stop closes the channel and
// waits for the printer to drain it.
func (r *Runner) followProgress(print func(tasks.ProgressUpdate)) (chan tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			print(update)
		}
	}()
	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

func categoryArg(cmd *cli.Command) (models.TagCategory, []string, error) {
	if cmd.Args().Len() == 0 {
		return "", nil, fmt.Errorf("%w: tag category is required (genre, mood, instrument, misc)", shared.ErrMissingArgument)
	}
	category, err := models.ParseCategory(cmd.Args().First())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return category, cmd.Args().Tail(), nil
}

// TagsAdd adds a tag to a draft.
func (r *Runner) TagsAdd(ctx context.Context, cmd *cli.Command) error {
	category, rest, err := categoryArg(cmd)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: tag name is required", shared.ErrMissingArgument)
	}

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	tag, err := state.AddTag(category, strings.Join(rest, " "))
	if err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s tag %q\n", category, tag.Name)
}

// TagsRename renames a draft tag. Usage: tags rename <category> <old> <new>.
func (r *Runner) TagsRename(ctx context.Context, cmd *cli.Command) error {
	category, rest, err := categoryArg(cmd)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return fmt.Errorf("%w: usage: encore tags rename <category> <old> <new>", shared.ErrInvalidArgument)
	}

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := state.RenameTag(category, rest[0], rest[1]); err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %s tag %q to %q\n", category, rest[0], models.NormalizeTagName(rest[1]))
}

// TagsDelete removes a tag from a draft. Published tags are removed remotely on the next upload.
func (r *Runner) TagsDelete(ctx context.Context, cmd *cli.Command) error {
	category, rest, err := categoryArg(cmd)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: tag name is required", shared.ErrMissingArgument)
	}

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	name := strings.Join(rest, " ")
	if err := state.DeleteTag(category, name); err != nil {
		return err
	}
	if err := r.saveDraft(d, state); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s tag %q\n", category, models.NormalizeTagName(name))
}

// TagsList prints a draft's tags by category.
func (r *Runner) TagsList(ctx context.Context, cmd *cli.Command) error {
	_, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	for _, category := range models.Categories {
		names := []string{}
		for _, t := range state.Tags(category) {
			names = append(names, t.Name)
		}
		r.writePlain("%-14s %s\n", category+":", strings.Join(names, ", "))
	}
	return nil
}

// TagsExplore lists every tag on the platform, fetched per category in parallel.
func (r *Runner) TagsExplore(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine()
	if err != nil {
		return err
	}

	progressCh, stop := r.followProgress(func(u tasks.ProgressUpdate) {
		r.logger.Debug(u.Message, "step", u.Step, "total", u.Total)
	})
	result, err := engine.Explore(ctx, progressCh)
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Tags, true)
	}

	r.writePlainHeader(fmt.Sprintf("%d tags", result.Count()))
	for _, category := range models.Categories {
		names := []string{}
		for _, t := range result.Tags[category] {
			names = append(names, t.Name)
		}
		r.writePlain("%-14s %s\n", category+":", strings.Join(names, ", "))
	}
	return nil
}

// TagsSearch finds platform tags whose name contains a term.
func (r *Runner) TagsSearch(ctx context.Context, cmd *cli.Command) error {
	term := strings.Join(cmd.Args().Slice(), " ")
	if term == "" {
		return fmt.Errorf("%w: search term is required", shared.ErrMissingArgument)
	}
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	tags, err := catalog.SearchTags(ctx, term, cmd.Int("limit"))
	if err != nil {
		return err
	}
	for _, t := range tags {
		r.writePlain("%-14s %s\n", t.Category+":", t.Name)
	}
	return nil
}
