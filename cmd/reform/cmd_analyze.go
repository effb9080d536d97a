package main

import (
	"fmt"
	"io"
	"strings"

	"reform/cmd/reform/docyaml"
	"reform/pkg/instr"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:               "analyze <document>",
	Short:             "Print the instruction outline of a document without running it",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeDocuments,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		return analyzeDocument(doc, cmd.OutOrStdout())
	},
}

// analyzeDocument writes the outline followed by the forms and sheet names
// the tree touches.
func analyzeDocument(doc *docyaml.Document, w io.Writer) error {
	var a instr.OutlineAnalyzer
	doc.Tree.Analyze(&a, doc.Sheet)

	fmt.Fprintln(w, styleTitle.Render("outline"))
	if _, err := a.WriteTo(w); err != nil {
		return err
	}

	var forms []string
	for _, f := range a.Forms() {
		forms = append(forms, fmt.Sprintf("%s (%s)", f.Name(), docyaml.Kind(f)))
	}
	var deps []string
	for _, id := range a.Dependencies() {
		if name, ok := doc.Sheet.Name(id); ok {
			deps = append(deps, name)
		}
	}
	fmt.Fprintf(w, "\n%s %s\n", styleKey.Render("forms:"), orNone(forms))
	fmt.Fprintf(w, "%s %s\n", styleKey.Render("uses: "), orNone(deps))
	return nil
}

func orNone(items []string) string {
	if len(items) == 0 {
		return styleDim.Render("none")
	}
	return strings.Join(items, ", ")
}
