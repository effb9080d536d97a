package main

import (
	"fmt"
	"slices"

	"reform/pkg/sheet"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var flagSolveTUI bool

var solveCmd = &cobra.Command{
	Use:               "solve <document>",
	Short:             "Solve the sheet of a document",
	Long:              "Solve the sheet of a document and print every definition with its value.",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeDocuments,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		if flagSolveTUI {
			path, _ := e.find(args[0])
			reload := func() (sheet.Sheet, error) {
				d, err := e.load(path)
				if err != nil {
					return nil, err
				}
				return d.Sheet, nil
			}
			p := tea.NewProgram(newSolveModel(documentName(path), doc.Sheet, reload), tea.WithAltScreen())
			_, err = p.Run()
			return err
		}
		rows := solveRows(doc.Sheet)
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no definitions")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(solveHeaders, rows))
		return nil
	},
}

func init() {
	solveCmd.Flags().BoolVar(&flagSolveTUI, "tui", false, "browse the solved sheet interactively")
}

var solveHeaders = []string{"#", "NAME", "DEFINITION", "VALUE", "ERROR"}

// solveRows solves s and returns one row per definition in declaration
// order. # is the position in solve order; definitions caught in a cycle
// are never solved and have none.
func solveRows(s sheet.Sheet) [][]string {
	ds := sheet.Solve(s)
	defs := s.Definitions()
	cyclic := sheet.Cyclic(defs)
	order := ds.Order()

	rows := make([][]string, 0, len(defs))
	for _, d := range defs {
		row := []string{"-", d.Name, d.Value.Format(s), "-", ""}
		if i := slices.Index(order, d.ID); i >= 0 {
			row[0] = fmt.Sprint(i + 1)
			row[3] = ds.Value(d.ID).String()
		}
		switch err := ds.Error(d.ID); {
		case err != nil:
			row[4] = err.Error()
		case slices.Contains(cyclic, d.ID):
			row[4] = errCycle.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
