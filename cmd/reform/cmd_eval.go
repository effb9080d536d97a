package main

import (
	"fmt"
	"strings"

	"reform/pkg/sheet"

	"github.com/spf13/cobra"
)

var flagEvalDocument string

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an expression",
	Long: "Evaluate an expression and print its value.\n\n" +
		"With --doc, names are resolved against the sheet of that document.",
	Example: "  " + appName + " eval 'max(2, 3) * PI'\n" +
		"  " + appName + " eval --doc grid 'cols * width'",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var base *sheet.BaseSheet
		if flagEvalDocument != "" {
			_, doc, err := openDocument(flagEvalDocument)
			if err != nil {
				return err
			}
			base = doc.Sheet
		}
		out, err := newSession(base).evaluate(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens <expression>",
	Short: "Print the tokens of an expression",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), tokenListing(strings.Join(args, " ")))
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&flagEvalDocument, "doc", "", "resolve names against this document's sheet")
	_ = evalCmd.RegisterFlagCompletionFunc("doc", completeDocuments)
}
