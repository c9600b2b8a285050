package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgUploadComplete
	MsgDraftSaved
)

type uploadOutcome struct {
	result *tasks.UploadResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// uploadCompleteMsg is the constructor for [MsgUploadComplete]
func uploadCompleteMsg(result *tasks.UploadResult, err error) Msg {
	return Msg{kind: MsgUploadComplete, data: uploadOutcome{result, err}}
}

// draftSavedMsg is the constructor for [MsgDraftSaved]
func draftSavedMsg(err error) Msg {
	return Msg{kind: MsgDraftSaved, data: err}
}
