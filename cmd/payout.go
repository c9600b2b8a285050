package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/draft"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// editPayout loads the draft, applies the selection flags, runs edit on the selected tracks and saves.
func (r *Runner) editPayout(cmd *cli.Command, positions []string, edit func(*draft.State) string) error {
	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	if err := r.applySelection(cmd, state, positions); err != nil {
		return err
	}

	selected := state.Selected()
	if len(selected) == 0 {
		r.logger.Warn("no tracks selected; nothing changed")
		return r.writePlain("No tracks selected. Use --tracks 1,2 or --all.\n")
	}

	summary := edit(state)
	if err := r.saveDraft(d, state); err != nil {
		return err
	}

	r.logger.Debug("payout updated", "draft", d.Sequence(), "tracks", len(selected), "change", summary)
	r.writePlain("✓ %s for %d tracks\n", summary, len(selected))
	return r.printTracks(state)
}

func valueArg(cmd *cli.Command, what string) (string, []string, error) {
	if cmd.Args().Len() == 0 {
		return "", nil, fmt.Errorf("%w: %s is required", shared.ErrMissingArgument, what)
	}
	return cmd.Args().First(), cmd.Args().Tail(), nil
}

// PayoutThreshold sets the stream count after which selected tracks pay out.
//
// Values that are not integers fall back to the default and values below the platform minimum are raised to it.
func (r *Runner) PayoutThreshold(ctx context.Context, cmd *cli.Command) error {
	text, positions, err := valueArg(cmd, "threshold")
	if err != nil {
		return err
	}
	minimum := r.minThreshold(ctx, cmd)

	return r.editPayout(cmd, positions, func(s *draft.State) string {
		v := s.ApplyThreshold(text, minimum)
		return fmt.Sprintf("Threshold set to %s streams (minimum %s)", shared.FormatCount(v), shared.FormatCount(minimum))
	})
}

// PayoutPercentage sets the artist's share for selected tracks; listeners receive the rest.
func (r *Runner) PayoutPercentage(ctx context.Context, cmd *cli.Command) error {
	text, positions, err := valueArg(cmd, "percentage")
	if err != nil {
		return err
	}

	return r.editPayout(cmd, positions, func(s *draft.State) string {
		v := s.ApplyPercentage(text)
		return fmt.Sprintf("Artist %s / listeners %s", shared.FormatPercent(v), shared.FormatPercent(100-v))
	})
}

// PayoutFree marks selected tracks free to stream.
func (r *Runner) PayoutFree(ctx context.Context, cmd *cli.Command) error {
	return r.editPayout(cmd, cmd.Args().Slice(), func(s *draft.State) string {
		s.SetFree(true)
		return "Marked free"
	})
}

// PayoutPaid marks selected tracks paid.
func (r *Runner) PayoutPaid(ctx context.Context, cmd *cli.Command) error {
	return r.editPayout(cmd, cmd.Args().Slice(), func(s *draft.State) string {
		s.SetFree(false)
		return "Marked paid"
	})
}

// PayoutMode sets how selected tracks distribute revenue: proportional or jackpot.
func (r *Runner) PayoutMode(ctx context.Context, cmd *cli.Command) error {
	text, positions, err := valueArg(cmd, "mode")
	if err != nil {
		return err
	}
	mode, err := models.ParsePayoutMode(text)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	return r.editPayout(cmd, positions, func(s *draft.State) string {
		s.SetMode(mode)
		return "Mode set to " + mode.String()
	})
}
