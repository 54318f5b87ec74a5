package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/storage"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Render("INSTAGRAM GRID PREVIEW"))
	sections = append(sections, m.renderPrompt())

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderGridPanel(),
		"  ",
		lipgloss.JoinVertical(lipgloss.Left, m.renderStatsPanel(), m.renderLogsPanel()),
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

// renderPrompt shows the active text input, the spinner or the last notice
func (m *Model) renderPrompt() string {
	switch {
	case m.mode != modeBrowse:
		return panelStyle.Render(m.input.View())
	case m.loading:
		return panelStyle.Render(m.spinner.View() + " Loading posts...")
	case m.notice != "":
		return panelStyle.Render(errorStyle.Render(m.notice))
	default:
		return panelStyle.Render(statsLabelStyle.Render("/") + " search   " + statsLabelStyle.Render("u") + " upload")
	}
}

// renderGridPanel draws the grid three cells per row, padding the last row
// and the remaining capacity with empty tiles
func (m *Model) renderGridPanel() string {
	title := titleStyle.Render(" GRID ")

	capacity := m.state.Capacity
	if capacity <= 0 {
		capacity = grid.DefaultCapacity
	}

	var rows []string
	for start := 0; start < capacity; start += columns {
		var tiles []string
		for i := start; i < start+columns; i++ {
			tiles = append(tiles, m.renderCell(i))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, tiles...))
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, rows...)...))
}

func (m *Model) renderCell(i int) string {
	if i >= len(m.state.Cells) {
		return emptyCellStyle.Render("·")
	}
	cell := m.state.Cells[i]

	style := cellStyle
	if cell.Origin == grid.Uploaded {
		style = uploadedCellStyle
	}
	if i == m.cursor {
		style = cursorCellStyle
	}
	if cell.ID == m.state.SelectedForDeletion {
		style = selectedCellStyle
	}

	label := cellLabel(cell)
	if cell.ID == m.state.SelectedForDeletion {
		label = errorStyle.Render("[x] delete") + "\n" + label
	}
	return style.Render(label)
}

// cellLabel is a short textual stand-in for the cell's image
func cellLabel(cell grid.Cell) string {
	switch {
	case cell.Origin == grid.Uploaded && storage.IsRef(cell.ImageURL):
		return successStyle.Render("▲ upload")
	case cell.Origin == grid.Uploaded:
		return successStyle.Render("▲ ") + truncate(cell.ImageURL, cellWidth-2)
	case cell.ImageURL == "":
		return "(no image)"
	case cell.Caption != "":
		return truncate(cell.Caption, cellWidth)
	default:
		return truncate(cell.ID, cellWidth)
	}
}

// renderStatsPanel renders username, counts and the upload quota
func (m *Model) renderStatsPanel() string {
	title := titleStyle.Render(" STATUS ")

	username := m.username
	if username == "" {
		username = "-"
	} else {
		username = "@" + username
	}

	quota := statsValueStyle.Render(fmt.Sprintf("%d/%d", m.state.Quota.Count, m.state.Quota.Limit))
	if !m.state.CanUpload() {
		quota = warningStyle.Render(fmt.Sprintf("%d/%d  press a to watch an ad", m.state.Quota.Count, m.state.Quota.Limit))
	}

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Account:"), statsValueStyle.Render(username)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Cells:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", len(m.state.Cells), m.state.Capacity))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Uploaded:"), statsValueStyle.Render(fmt.Sprint(len(m.state.Uploaded())))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Uploads used:"), quota),
	}

	return panelStyle.Width(m.sideWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderLogsPanel renders the most recent log messages
func (m *Model) renderLogsPanel() string {
	title := titleStyle.Render(" ACTIVITY ")

	if len(m.logMessages) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Nothing yet")
		return panelStyle.Width(m.sideWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	shown := m.logMessages
	if limit := 10; len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}

	var lines []string
	for _, msg := range shown {
		lines = append(lines, fmt.Sprintf("%s %s",
			logTimestampStyle.Render(msg.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(msg.Color).Render(truncate(msg.Message, m.sideWidth()-14)),
		))
	}

	return panelStyle.Width(m.sideWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)),
	)
}

func (m *Model) renderHelp() string {
	help := []string{
		"/         search username",
		"u         add uploads (file paths)",
		"arrows    move cursor",
		"enter     show or hide delete",
		"x         delete selected cell",
		"[ ]       move uploaded cell left or right",
		"a         watch ad (reset upload quota)",
		"s         save layout",
		"ctrl+l    clear activity",
		"q         quit",
	}
	return helpStyle.Render(strings.Join(help, "\n"))
}

func (m *Model) sideWidth() int {
	w := m.width - columns*(cellWidth+2) - 10
	if w < 30 {
		return 30
	}
	return w
}

func truncate(s string, max int) string {
	if max <= 3 {
		max = 3
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
