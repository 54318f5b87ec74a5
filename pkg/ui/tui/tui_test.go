package tui

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gridpreview/pkg/grid"
)

func TestTUILogAndStop(t *testing.T) {
	engine := grid.NewEngine(grid.Options{})
	ui := NewTUI(Deps{Engine: engine, Source: &fakeSource{}},
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())

	done := make(chan error, 1)
	go func() { done <- ui.Start() }()

	ui.Log("WARN", "No saved layout named %s", "spring")
	ui.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("program did not stop")
	}

	require.Len(t, ui.model.logMessages, 1)
	assert.Equal(t, "WARN", ui.model.logMessages[0].Level)
	assert.Equal(t, "No saved layout named spring", ui.model.logMessages[0].Message)
}
