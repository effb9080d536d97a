package main

import (
	"fmt"

	"reform/pkg/sheet"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var styleBase = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

// solveModel browses a solved sheet. r reloads the document from disk.
type solveModel struct {
	table  table.Model
	name   string
	rows   [][]string
	reload func() (sheet.Sheet, error)
	status string
	err    error
}

func newSolveModel(name string, s sheet.Sheet, reload func() (sheet.Sheet, error)) solveModel {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "NAME", Width: 16},
		{Title: "DEFINITION", Width: 28},
		{Title: "VALUE", Width: 16},
		{Title: "ERROR", Width: 32},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("99"))
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(st)

	m := solveModel{table: t, name: name, reload: reload}
	m.setSheet(s)
	return m
}

func (m *solveModel) setSheet(s sheet.Sheet) {
	m.rows = solveRows(s)
	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = table.Row(r)
	}
	m.table.SetRows(rows)
}

func (m solveModel) Init() tea.Cmd {
	return nil
}

func (m solveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			s, err := m.reload()
			m.err = err
			if err == nil {
				m.setSheet(s)
				m.status = fmt.Sprintf("reloaded %d definitions", len(m.rows))
			}
			return m, nil
		case "enter":
			if i := m.table.Cursor(); i >= 0 && i < len(m.rows) {
				r := m.rows[i]
				m.status = fmt.Sprintf("%s = %s", r[1], r[2])
				if r[4] != "" {
					m.status += "  ! " + r[4]
				}
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m solveModel) View() string {
	title := styleTitle.Render(appName + "  [" + m.name + "]  sheet")
	view := title + "\n" + styleBase.Render(m.table.View()) + "\n"
	switch {
	case m.err != nil:
		view += styleErr.Padding(0, 1).Render(m.err.Error()) + "\n"
	case m.status != "":
		view += styleOK.Padding(0, 1).Render(m.status) + "\n"
	}
	return view + styleHelp.Render("↑/↓  navigate    enter  details    r  reload    q  quit")
}
