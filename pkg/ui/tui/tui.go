package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"gridpreview/pkg/grid"
)

// TUI represents the terminal user interface
type TUI struct {
	program     *tea.Program
	model       *Model
	unsubscribe func()
}

// NewTUI creates a new TUI instance. Engine changes made outside the key
// handlers, such as the delete affordance timing out, reach the screen
// through an engine subscription. The model rereads the engine on every
// notification, so out of order delivery is harmless.
func NewTUI(deps Deps, opts ...tea.ProgramOption) *TUI {
	model := NewModel(deps)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	t := &TUI{
		program: program,
		model:   model,
	}
	t.unsubscribe = deps.Engine.Subscribe(func(grid.State) {
		go t.program.Send(StateMsg{})
	})
	return t
}

// Start runs the TUI until the user quits
func (t *TUI) Start() error {
	defer t.unsubscribe()
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(SendLog(level, fmt.Sprintf(format, args...)))
}
