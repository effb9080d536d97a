package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(0, 1)

	styleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	styleKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	styleValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35"))

	styleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	styleOK = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	styleErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(0, 1)

	styleCell = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable lays rows out under headers. Cells of a column named ERROR
// are rendered in the error style.
func renderTable(headers []string, rows [][]string) string {
	errCol := -1
	for i, h := range headers {
		if h == "ERROR" {
			errCol = i
		}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case col == errCol:
				return styleCell.Foreground(lipgloss.Color("196"))
			}
			return styleCell
		})
	return t.String()
}
