package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/draft"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	InputView
	ConfirmView
	UploadView
	ResultView
)

type inputKind int

const (
	thresholdInput inputKind = iota
	percentageInput
)

// Uploader publishes a pending album. It is satisfied by [*tasks.AlbumEngine].
type Uploader interface {
	Upload(ctx context.Context, req tasks.UploadRequest, progress chan<- tasks.ProgressUpdate) (*tasks.UploadResult, error)
}

// Options configures a [Model].
type Options struct {
	UserID       string
	DraftID      string
	MinThreshold int
	// Save persists the draft after each edit. Optional.
	Save func(*draft.State) error
	// OnUploaded runs after a successful upload, typically to discard the local draft. Optional.
	OnUploaded func(*tasks.UploadResult) error
	Logger     *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	state        *draft.State
	engine       Uploader
	opts         Options
	logger       *log.Logger
	width        int
	height       int
	trackList    list.Model
	input        textinput.Model
	inputKind    inputKind
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan uploadOutcome
	progress     tasks.ProgressUpdate
	result       *tasks.UploadResult
	err          error
	status       string
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model editing state.
func NewModel(ctx context.Context, state *draft.State, engine Uploader, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	m := &Model{
		ctx:    ctx,
		view:   TrackListView,
		state:  state,
		engine: engine,
		opts:   opts,
		logger: opts.Logger,
		input:  textinput.New(),
		bar:    progress.New(progress.WithDefaultGradient()),
		help:   help.New(),
		keys:   newKeyMap(),
	}

	m.trackList = list.New(m.items(), list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = m.title()
	m.trackList.SetFilteringEnabled(false)
	m.trackList.SetShowHelp(false)
	m.trackList.DisableQuitKeybindings()
	return m
}

// ViewState returns the view being shown.
func (m *Model) ViewState() ViewState { return m.view }

// Init implements [tea.Model].
func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) title() string {
	name := m.state.Album().Title
	if name == "" {
		name = "Untitled album"
	}
	return fmt.Sprintf("%s (%d tracks)", name, m.state.Len())
}

func (m *Model) items() []list.Item {
	items := make([]list.Item, 0, m.state.Len())
	for i, t := range m.state.Tracks() {
		items = append(items, trackItem{track: t, selected: m.state.IsSelected(i)})
	}
	return items
}

// refresh rebuilds the list after the draft changed and moves the cursor to index.
func (m *Model) refresh(index int) tea.Cmd {
	cmd := m.trackList.SetItems(m.items())
	m.trackList.Title = m.title()
	if index >= 0 && index < m.state.Len() {
		m.trackList.Select(index)
	}
	return tea.Batch(cmd, m.save())
}

func (m *Model) save() tea.Cmd {
	if m.opts.Save == nil {
		return nil
	}
	state, save := m.state, m.opts.Save
	return func() tea.Msg {
		return draftSavedMsg(save(state))
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = max(10, msg.Width-10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case UploadView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgUploadComplete:
		out := msg.data.(uploadOutcome)
		m.result, m.err = out.result, out.err
		m.view = ResultView
		m.progressChan, m.doneChan = nil, nil
		if m.err != nil {
			m.logger.Error("upload failed", "phase", m.progress.Phase, "error", m.err)
			return m, nil
		}
		m.logger.Info("upload complete", "album", m.result.AlbumID, "songs", len(m.result.SongIDs))
		if m.opts.OnUploaded == nil {
			return m, nil
		}
		result, done := m.result, m.opts.OnUploaded
		return m, func() tea.Msg { return draftSavedMsg(done(result)) }

	case MsgDraftSaved:
		if err, _ := msg.data.(error); err != nil {
			m.logger.Warn("failed to save draft", "error", err)
			m.status = styles.warn.Render("Draft not saved: " + err.Error())
		}
	}
	return m, nil
}

func (m *Model) handleTrackKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	idx := m.trackList.Index()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.moveUp):
		if idx > 0 && m.state.Move(idx, idx-1) == nil {
			return m, m.refresh(idx - 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.moveDown):
		if idx < m.state.Len()-1 && m.state.Move(idx, idx+1) == nil {
			return m, m.refresh(idx + 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.toggle):
		if m.state.Toggle(idx) == nil {
			return m, m.refresh(idx)
		}
		return m, nil

	case key.Matches(msg, m.keys.all):
		m.state.SelectAll()
		return m, m.refresh(idx)

	case key.Matches(msg, m.keys.none):
		m.state.ClearSelection()
		return m, m.refresh(idx)

	case key.Matches(msg, m.keys.threshold):
		return m, m.openInput(thresholdInput)

	case key.Matches(msg, m.keys.percent):
		return m, m.openInput(percentageInput)

	case key.Matches(msg, m.keys.free):
		if !m.requireSelection() {
			return m, nil
		}
		m.state.SetFree(!m.allSelected(func(t models.Track) bool { return t.IsFree }))
		return m, m.refresh(idx)

	case key.Matches(msg, m.keys.mode):
		if !m.requireSelection() {
			return m, nil
		}
		mode := models.PayoutJackpot
		if m.allSelected(func(t models.Track) bool { return t.Mode == models.PayoutJackpot }) {
			mode = models.PayoutProportional
		}
		m.state.SetMode(mode)
		return m, m.refresh(idx)

	case key.Matches(msg, m.keys.upload):
		if err := m.state.Album().Validate(); err != nil {
			m.status = styles.err.Render(strings.ReplaceAll(err.Error(), "\n", "; "))
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) requireSelection() bool {
	if len(m.state.Selected()) == 0 {
		m.status = styles.warn.Render("Select one or more tracks first (space, a)")
		return false
	}
	return true
}

func (m *Model) allSelected(pred func(models.Track) bool) bool {
	for _, pos := range m.state.Selected() {
		t, err := m.state.Track(pos)
		if err != nil || !pred(t) {
			return false
		}
	}
	return true
}

func (m *Model) openInput(kind inputKind) tea.Cmd {
	if !m.requireSelection() {
		return nil
	}
	m.inputKind = kind
	m.input.Reset()
	switch kind {
	case thresholdInput:
		m.input.Prompt = "Stream threshold: "
		m.input.Placeholder = fmt.Sprintf("at least %d", m.opts.MinThreshold)
	case percentageInput:
		m.input.Prompt = "Artist percentage: "
		m.input.Placeholder = "0-100"
	}
	m.view = InputView
	return m.input.Focus()
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		m.view = TrackListView
		return m, nil

	case key.Matches(msg, m.keys.enter):
		text := m.input.Value()
		switch m.inputKind {
		case thresholdInput:
			v := m.state.ApplyThreshold(text, m.opts.MinThreshold)
			m.status = styles.ok.Render(fmt.Sprintf("Threshold set to %s streams", shared.FormatCount(v)))
		case percentageInput:
			v := m.state.ApplyPercentage(text)
			m.status = styles.ok.Render(fmt.Sprintf("Artist %s / listeners %s",
				shared.FormatPercent(v), shared.FormatPercent(100-v)))
		}
		m.input.Blur()
		m.view = TrackListView
		return m, m.refresh(m.trackList.Index())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = UploadView
		return m, m.startUpload()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case msg.String() == "r" && m.err != nil:
		m.err = nil
		m.result = nil
		m.view = TrackListView
		return m, nil
	}
	return m, nil
}

func (m *Model) startUpload() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan uploadOutcome, 1)
	m.progress = tasks.ProgressUpdate{}

	req := tasks.UploadRequest{Album: m.state.Album(), UserID: m.opts.UserID, DraftID: m.opts.DraftID}
	progressChan, doneChan := m.progressChan, m.doneChan

	go func() {
		result, err := m.engine.Upload(m.ctx, req, progressChan)
		close(progressChan)
		doneChan <- uploadOutcome{result, err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progressChan == nil {
			return uploadCompleteMsg(nil, fmt.Errorf("%w: no upload running", shared.ErrUploadFailed))
		}
		if update, ok := <-progressChan; ok {
			return progressUpdateMsg(update)
		}
		out := <-doneChan
		return uploadCompleteMsg(out.result, out.err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case TrackListView:
		return m.renderTrackList()
	case InputView:
		return m.renderInput()
	case ConfirmView:
		return m.renderConfirm()
	case UploadView:
		return m.renderUpload()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderTrackList() string {
	var b strings.Builder
	b.WriteString(m.trackList.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(fmt.Sprintf("%d selected\n\n", len(m.state.Selected())))
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderInput() string {
	title := styles.title.Render(fmt.Sprintf("Edit %d selected tracks", len(m.state.Selected())))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderConfirm() string {
	album := m.state.Album()
	verb := "Upload"
	if album.Editing() {
		verb = "Update"
	}
	title := styles.title.Render(fmt.Sprintf("%s '%s'?", verb, album.Title))

	var free int
	for _, t := range album.Tracks {
		if t.IsFree {
			free++
		}
	}
	info := fmt.Sprintf("Tracks: %d (%d free)\nTags: %d", len(album.Tracks), free, len(album.Tags))
	if len(album.RemovedSongIDs) > 0 {
		info += styles.warn.Render(fmt.Sprintf("\n%d published tracks will be deleted", len(album.RemovedSongIDs)))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n\n%s", title, styles.box.Render(info), helpView)
}

func (m *Model) renderUpload() string {
	title := styles.title.Render("Uploading " + m.state.Album().Title)

	var pct float64
	if m.progress.Total > 0 {
		pct = float64(m.progress.Step) / float64(m.progress.Total)
	}

	var phase string
	switch m.progress.Phase {
	case tasks.UploadTracks:
		phase = fmt.Sprintf("Uploading tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.SaveTags:
		phase = fmt.Sprintf("Saving tags (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.LinkSongs:
		phase = "Linking songs..."
	default:
		phase = m.progress.Message
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", title, phase, m.bar.ViewAs(pct), styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(shared.GenericErrorMessage) + "\n\n" + styles.help.Render("Press r to go back, q to quit")
	}
	if m.result == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Upload complete!")
	info := fmt.Sprintf("\nAlbum: %s\nSongs: %d\nTags: %d", m.result.AlbumID, len(m.result.SongIDs), len(m.result.TagIDs))
	if len(m.result.Removed) > 0 {
		info += fmt.Sprintf("\nRemoved: %d", len(m.result.Removed))
	}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, info, m.status, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}
