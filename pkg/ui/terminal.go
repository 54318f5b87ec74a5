package ui

import (
	"fmt"
	"io"
	"strings"

	"gridpreview/pkg/grid"
	"gridpreview/pkg/storage"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔════════════════════════════════════════════╗
    ║   ▄▄ ▄▄▄ ▄ ▄▄▄    ▄▄▄ ▄▄▄ ▄▄▄ ▄ ▄ ▄ ▄▄▄ ▄ ▄  ║
    ║   █▄█ █▀▄ █ █▄▀    █▀▀ █▀▄ █▀  ▀▄▀ █ █▀  █▄█  ║
    ║      INSTAGRAM GRID PREVIEW                ║
    ╚════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Println(Magenta(msg))
}

// WriteGrid writes the grid as rows of three cells. Uploaded cells are
// marked with a leading "^"; the cell selected for deletion with "x".
func WriteGrid(w io.Writer, state grid.State) {
	const columns, width = 3, 24

	if len(state.Cells) == 0 {
		fmt.Fprintln(w, Dim("(empty grid)"))
		return
	}

	border := "+" + strings.Repeat(strings.Repeat("-", width+2)+"+", columns)
	fmt.Fprintln(w, border)
	for start := 0; start < len(state.Cells); start += columns {
		row := make([]string, columns)
		for i := range row {
			if start+i < len(state.Cells) {
				row[i] = gridLabel(state.Cells[start+i], state.SelectedForDeletion, width)
			}
			row[i] = fmt.Sprintf(" %-*s ", width, row[i])
		}
		fmt.Fprintf(w, "|%s|\n", strings.Join(row, "|"))
		fmt.Fprintln(w, border)
	}
	fmt.Fprintf(w, "%d/%d cells, %d uploaded, uploads used %d/%d\n",
		len(state.Cells), state.Capacity, len(state.Uploaded()), state.Quota.Count, state.Quota.Limit)
}

func gridLabel(cell grid.Cell, selected string, width int) string {
	marker := " "
	switch {
	case cell.ID == selected:
		marker = "x"
	case cell.Origin == grid.Uploaded:
		marker = "^"
	}

	name := cell.ID
	if cell.Origin == grid.Uploaded && !storage.IsRef(cell.ImageURL) && cell.ImageURL != "" {
		name = cell.ImageURL
	}
	label := marker + " " + name
	if r := []rune(label); len(r) > width {
		label = string(r[:width-3]) + "..."
	}
	return label
}
