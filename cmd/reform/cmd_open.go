package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Pick a document interactively and run it",
	Long: "Fuzzy-find a document among the known ones, with its source in a preview\n" +
		"pane, then evaluate it as `" + appName + " run` would.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		if len(e.documents) == 0 {
			_, err := e.find("")
			return err
		}
		path, err := pickDocument(e.documents)
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil
		}
		if err != nil {
			return err
		}
		doc, err := e.load(path)
		if err != nil {
			return err
		}
		return runDocument(cmd.Context(), e, doc, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// pickDocument opens a terminal finder over files and returns the chosen path.
func pickDocument(files []string) (string, error) {
	idx, err := fuzzyfinder.Find(
		files,
		func(i int) string { return documentName(files[i]) },
		fuzzyfinder.WithPromptString("document: "),
		fuzzyfinder.WithPreviewWindow(func(i, width, height int) string {
			if i < 0 {
				return ""
			}
			return previewDocument(files[i], height)
		}),
	)
	if err != nil {
		return "", err
	}
	return files[idx], nil
}

// previewDocument returns the first lines of a document file.
func previewDocument(path string, lines int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("cannot read %s: %v", path, err)
	}
	all := strings.Split(string(data), "\n")
	if lines > 0 && len(all) > lines {
		all = all[:lines]
	}
	return strings.Join(all, "\n")
}
