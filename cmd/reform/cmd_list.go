package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		printDocuments(cmd.OutOrStdout(), e.describe())
		return nil
	},
}

// documentEntry is one line of the listing.
type documentEntry struct {
	name string
	path string
	info string // "3 forms, 2 definitions" or the load error
}

// describe loads every known document. Documents that fail to load are
// listed with their error.
func (e *env) describe() []documentEntry {
	entries := make([]documentEntry, 0, len(e.documents))
	for _, f := range e.documents {
		entry := documentEntry{name: documentName(f), path: f}
		doc, err := e.load(f)
		if err != nil {
			entry.info = "error: " + err.Error()
		} else {
			entry.info = fmt.Sprintf("%d forms, %d definitions", len(doc.Forms), len(doc.Sheet.Definitions()))
		}
		entries = append(entries, entry)
	}
	return entries
}

// printDocuments prints all entries aligned on the name column.
func printDocuments(w io.Writer, entries []documentEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no documents found")
		return
	}

	maxLen := 0
	for _, e := range entries {
		maxLen = max(maxLen, len(e.name))
	}

	for _, e := range entries {
		fmt.Fprintf(w, "%-*s  [%s]\n", maxLen, e.name, e.info)
	}
}
