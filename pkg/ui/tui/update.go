package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	errs "gridpreview/pkg/errors"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/imagesource"
	"gridpreview/pkg/snapshot"
)

// StateMsg tells the model the engine state changed
type StateMsg struct{}

// PostsMsg is sent when a posts request finishes
type PostsMsg struct {
	Username string
	Posts    []imagesource.Post
	Err      error
}

// UploadsMsg is sent when an upload batch finishes
type UploadsMsg struct {
	State    grid.State
	Admitted int
	Err      error
}

// LayoutSavedMsg is sent when a layout save finishes
type LayoutSavedMsg struct {
	Layout *snapshot.Layout
	Err    error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.handleInputKey(msg)
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StateMsg:
		m.setState(m.deps.Engine.State())
		return m, nil

	case PostsMsg:
		m.handlePosts(msg)
		return m, nil

	case UploadsMsg:
		m.handleUploads(msg)
		return m, nil

	case LayoutSavedMsg:
		if msg.Err != nil {
			m.AddLogMessage("ERROR", "Failed to save layout: "+msg.Err.Error())
			return m, nil
		}
		m.AddLogMessage("SUCCESS", fmt.Sprintf("Saved layout %q (%d cells)", msg.Layout.Name, len(msg.Layout.Cells)))
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input while browsing the grid
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.beginInput(modeSearch, "Enter Instagram username", m.username)
		return m, nil

	case "u", "U":
		if !m.deps.Engine.CanUpload() {
			m.quotaNotice()
			return m, nil
		}
		m.beginInput(modeUpload, "Image paths, separated by spaces", "")
		return m, nil

	case "up", "k":
		m.moveCursor(-columns)
	case "down", "j":
		m.moveCursor(columns)
	case "left", "h":
		m.moveCursor(-1)
	case "right", "l":
		m.moveCursor(1)

	case "enter", " ":
		if cell, ok := m.cellAtCursor(); ok {
			m.setState(m.deps.Engine.ToggleDeletion(cell.ID))
		}

	case "x", "delete", "backspace":
		m.deleteSelected()

	case "[":
		m.moveUploaded(-1)
	case "]":
		m.moveUploaded(1)

	case "a", "A":
		m.setState(m.deps.Engine.ResetQuota())
		m.notice = ""
		m.AddLogMessage("SUCCESS", MsgAdWatched)

	case "s", "S":
		if m.deps.Layouts == nil {
			m.AddLogMessage("WARN", "Layout saving is not configured")
			return m, nil
		}
		return m, m.saveLayoutCmd()

	case "?":
		m.showHelp = !m.showHelp

	case "ctrl+l":
		m.logMessages = []LogMessage{}
	}

	return m, nil
}

// handleInputKey routes keys to the text input until it is submitted or dismissed
func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.endInput()
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.endInput()
		if mode == modeSearch {
			return m, m.submitSearch(value)
		}
		return m, m.submitUpload(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) beginInput(mode inputMode, placeholder, value string) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) submitSearch(username string) tea.Cmd {
	if imagesource.SanitizeUsername(username) == "" {
		m.notice = MsgUsernameRequired
		m.AddLogMessage("WARN", MsgUsernameRequired)
		return nil
	}
	m.loading = true
	m.notice = ""
	m.AddLogMessage("INFO", "Loading posts for "+username)
	return tea.Batch(m.spinner.Tick, m.fetchPostsCmd(username))
}

func (m *Model) submitUpload(value string) tea.Cmd {
	paths := strings.Fields(value)
	if len(paths) == 0 {
		return nil
	}
	if max := m.deps.Engine.MaxPerCall(); len(paths) > max {
		m.AddLogMessage("WARN", fmt.Sprintf("Only the first %d images are added", max))
	}
	if m.deps.Uploads == nil {
		m.AddLogMessage("WARN", "Uploads are not configured")
		return nil
	}
	return m.addUploadsCmd(paths)
}

func (m *Model) handlePosts(msg PostsMsg) {
	m.loading = false

	if msg.Err != nil {
		switch {
		case errs.IsType(msg.Err, errs.ErrorTypeValidation):
			m.notice = MsgUsernameRequired
		case errs.IsType(msg.Err, errs.ErrorTypeCircuitOpen):
			m.notice = "The image source is unavailable, try again shortly."
		default:
			m.notice = MsgUsernameWrong
		}
		m.AddLogMessage("ERROR", "Failed to load posts: "+msg.Err.Error())
		return
	}

	if len(msg.Posts) == 0 {
		m.notice = MsgUsernameNotFound
		m.AddLogMessage("WARN", MsgUsernameNotFound)
		return
	}

	m.username = imagesource.SanitizeUsername(msg.Username)
	m.notice = ""
	m.setState(m.deps.Engine.MergeFetched(imagesource.ToRecords(msg.Posts)))
	m.AddLogMessage("SUCCESS", fmt.Sprintf("Loaded %d posts for @%s", len(msg.Posts), m.username))
}

func (m *Model) handleUploads(msg UploadsMsg) {
	m.setState(msg.State)

	if errors.Is(msg.Err, grid.ErrQuotaExceeded) {
		m.quotaNotice()
		return
	}
	if msg.Err != nil {
		m.AddLogMessage("ERROR", "Upload failed: "+msg.Err.Error())
		return
	}

	m.AddLogMessage("SUCCESS", fmt.Sprintf("Added %d image(s)", msg.Admitted))
	if !m.state.CanUpload() {
		m.quotaNotice()
	}
}

func (m *Model) quotaNotice() {
	m.notice = fmt.Sprintf("You have uploaded %d images. Please watch an ad to upload more.", m.state.Quota.Limit)
	m.AddLogMessage("WARN", m.notice)
}

func (m *Model) moveCursor(delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(m.state.Cells) {
		return
	}
	m.cursor = next
}

func (m *Model) deleteSelected() {
	id := m.state.SelectedForDeletion
	if id == "" {
		m.AddLogMessage("INFO", "Press enter on a cell to reveal its delete action")
		return
	}
	m.setState(m.deps.Engine.DeleteCell(id))
	m.AddLogMessage("INFO", "Removed "+id)
}

// moveUploaded shifts the uploaded cell under the cursor by delta positions
// among the uploaded cells
func (m *Model) moveUploaded(delta int) {
	cell, ok := m.cellAtCursor()
	if !ok || cell.Origin != grid.Uploaded {
		return
	}
	// Uploaded cells occupy the front of the grid, so the cursor is also the
	// index among uploaded cells.
	source := m.cursor
	dest := source + delta
	if dest < 0 || dest >= len(m.state.Uploaded()) {
		return
	}
	m.setState(m.deps.Engine.ReorderUploaded(source, dest))
	m.cursor = dest
}

// Commands

func (m *Model) fetchPostsCmd(username string) tea.Cmd {
	source := m.deps.Source
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		posts, err := source.FetchPosts(ctx, username)
		return PostsMsg{Username: username, Posts: posts, Err: err}
	}
}

func (m *Model) addUploadsCmd(paths []string) tea.Cmd {
	uploads := m.deps.Uploads
	return func() tea.Msg {
		state, admitted, err := uploads.AddPaths(paths)
		return UploadsMsg{State: state, Admitted: admitted, Err: err}
	}
}

func (m *Model) saveLayoutCmd() tea.Cmd {
	layouts, name, username, state := m.deps.Layouts, m.deps.LayoutName, m.username, m.state
	return func() tea.Msg {
		layout, err := layouts.Save(name, username, state)
		return LayoutSavedMsg{Layout: layout, Err: err}
	}
}

// SendLog creates a log message
func SendLog(level, message string) tea.Msg {
	return LogMsg{Level: level, Message: message}
}
