package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track    models.Track
	selected bool
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = styles.selected.Render("[x]")
	}
	return fmt.Sprintf("%s %02d. %s", mark, i.track.Position+1, i.track.Name)
}
func (i trackItem) Description() string {
	desc := formatter.Payout(i.track)
	if i.track.Existing() && !i.track.NeedsUpload() {
		desc += " • published"
	}
	return desc
}
