package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/imagesource"
	"gridpreview/pkg/snapshot"
)

const (
	columns        = 3
	cellWidth      = 18
	cellHeight     = 3
	maxLogMessages = 50
)

// Messages shown to the user
const (
	MsgUsernameRequired = "Please enter an Instagram username!"
	MsgUsernameNotFound = "Username not found, please check the username."
	MsgUsernameWrong    = "It seems the username is incorrect. Please double-check and try again."
	MsgAdWatched        = "Thanks for watching the ad! You can now upload more images."
)

type inputMode int

const (
	modeBrowse inputMode = iota
	modeSearch
	modeUpload
)

// Uploads adds local image files to the grid
type Uploads interface {
	AddPaths(paths []string) (grid.State, int, error)
}

// Layouts persists the grid under a name
type Layouts interface {
	Save(name, username string, state grid.State) (*snapshot.Layout, error)
}

// Deps are the collaborators the model drives
type Deps struct {
	Engine     *grid.Engine
	Source     imagesource.Source
	Uploads    Uploads
	Layouts    Layouts
	LayoutName string
	Username   string
	Timeout    time.Duration
}

// Model is the bubbletea model for the grid preview
type Model struct {
	deps Deps

	spinner spinner.Model
	input   textinput.Model
	mode    inputMode

	state    grid.State
	cursor   int
	username string
	loading  bool
	notice   string

	width       int
	height      int
	showHelp    bool
	logMessages []LogMessage
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model over deps. Engine and Source are required.
func NewModel(deps Deps) *Model {
	if deps.Timeout <= 0 {
		deps.Timeout = 30 * time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	in := textinput.New()
	in.CharLimit = 512
	in.Prompt = "> "
	in.PromptStyle = lipgloss.NewStyle().Foreground(neonMagenta)

	return &Model{
		deps:        deps,
		spinner:     s,
		input:       in,
		state:       deps.Engine.State(),
		username:    deps.Username,
		logMessages: []LogMessage{},
	}
}

// Init loads the initial username when one was given
func (m *Model) Init() tea.Cmd {
	if m.username == "" {
		return nil
	}
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.fetchPostsCmd(m.username))
}

// State returns the last grid snapshot the model rendered
func (m *Model) State() grid.State {
	return m.state
}

// Cursor returns the index of the highlighted cell
func (m *Model) Cursor() int {
	return m.cursor
}

// Notice returns the current user facing message, if any
func (m *Model) Notice() string {
	return m.notice
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})
	if len(m.logMessages) > maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-maxLogMessages:]
	}
}

func (m *Model) setState(s grid.State) {
	m.state = s
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.state.Cells)
	switch {
	case n == 0:
		m.cursor = 0
	case m.cursor >= n:
		m.cursor = n - 1
	case m.cursor < 0:
		m.cursor = 0
	}
}

// cellAtCursor returns the highlighted cell, if the grid has one there
func (m *Model) cellAtCursor() (grid.Cell, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Cells) {
		return grid.Cell{}, false
	}
	return m.state.Cells[m.cursor], true
}

func (m *Model) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.deps.Timeout)
}
