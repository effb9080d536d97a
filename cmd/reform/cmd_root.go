package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   appName + " <command>",
	Short: "Parametric drawing engine",
	Long: "Parametric drawing engine\n\n" +
		"A document is a sheet of named expressions plus a tree of drawing\n" +
		"instructions. " + appName + " solves the sheet, evaluates the tree and\n" +
		"reports where every form ended up.\n\n" +
		"Documents are auto-completable via shell completion (Tab).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// completeDocuments provides shell completion for document arguments.
func completeDocuments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	e, err := loadEnv()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var suggestions []string
	for _, f := range e.documents {
		if name := documentName(f); strings.HasPrefix(name, toComplete) {
			suggestions = append(suggestions, name)
		}
	}
	return suggestions, cobra.ShellCompDirectiveNoFileComp
}
