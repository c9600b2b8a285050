package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/draft"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/desertthunder/encore/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI opens a draft in the interactive payout editor and uploader.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Log lines would corrupt the terminal while the program owns it.
	fileLogger, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	d, state, err := r.loadDraft(cmd.String("draft"))
	if err != nil {
		return err
	}
	userID, err := r.userID()
	if err != nil {
		return err
	}
	minimum := r.minThreshold(ctx, cmd)

	engine, err := r.engine()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, state, engine, ui.Options{
		UserID:       userID,
		DraftID:      d.ID(),
		MinThreshold: minimum,
		Save: func(s *draft.State) error {
			return r.saveDraft(d, s)
		},
		OnUploaded: func(res *tasks.UploadResult) error {
			fileLogger.Info("album published", "album", res.AlbumID, "songs", len(res.SongIDs))
			repo, err := r.drafts()
			if err != nil {
				return err
			}
			return repo.Delete(d.ID())
		},
		Logger: shared.WithLogger(fileLogger, "component", "tui"),
	})

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
