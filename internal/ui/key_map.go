package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	moveUp    key.Binding
	moveDown  key.Binding
	toggle    key.Binding
	all       key.Binding
	none      key.Binding
	threshold key.Binding
	percent   key.Binding
	free      key.Binding
	mode      key.Binding
	upload    key.Binding
	enter     key.Binding
	back      key.Binding
	yes       key.Binding
	no        key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		moveUp:    key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move up")),
		moveDown:  key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move down")),
		toggle:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "select")),
		all:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
		none:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		threshold: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "threshold")),
		percent:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "artist %")),
		free:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "free/paid")),
		mode:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
		upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.threshold, k.percent, k.free, k.mode, k.upload, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.moveUp, k.moveDown},
		{k.toggle, k.all, k.none},
		{k.threshold, k.percent, k.free, k.mode},
		{k.upload, k.back, k.quit},
	}
}
