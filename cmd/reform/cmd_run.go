package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"reform/cmd/reform/docyaml"
	"reform/pkg/driver"
	"reform/pkg/form"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	flagRunTrace  bool
	flagRunStats  bool
	flagRunAll    bool
	flagRunCanvas canvasFlag
)

// canvasFlag parses "WIDTHxHEIGHT".
type canvasFlag form.Vec2

var _ pflag.Value = (*canvasFlag)(nil)

func (c *canvasFlag) String() string {
	if c == nil || form.Vec2(*c).IsZero() {
		return ""
	}
	return fmt.Sprintf("%gx%g", c.X, c.Y)
}

func (c *canvasFlag) Set(s string) error {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return fmt.Errorf("expected WIDTHxHEIGHT, got %q", s)
	}
	x, err := strconv.ParseFloat(w, 64)
	if err != nil || x <= 0 {
		return fmt.Errorf("bad width %q", w)
	}
	y, err := strconv.ParseFloat(h, 64)
	if err != nil || y <= 0 {
		return fmt.Errorf("bad height %q", h)
	}
	*c = canvasFlag{X: x, Y: y}
	return nil
}

func (c *canvasFlag) Type() string { return "WxH" }

var runCmd = &cobra.Command{
	Use:   "run <document>",
	Short: "Evaluate a document and print the resulting forms",
	Long: "Solve the sheet of a document, evaluate its instruction tree and print\n" +
		"the anchors of every form as it left scope.\n\n" +
		"Runtime errors are printed per instruction node; the command then exits\n" +
		"with status 1.",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeDocuments,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		return runDocument(cmd.Context(), e, doc, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	runCmd.Flags().BoolVar(&flagRunTrace, "trace", false, "log every evaluated node to stderr")
	runCmd.Flags().BoolVar(&flagRunStats, "stats", false, "print timing and process memory after the run")
	runCmd.Flags().BoolVar(&flagRunAll, "all", false, "print every snapshot instead of the last one per form")
	runCmd.Flags().Var(&flagRunCanvas, "canvas", "override the document canvas, e.g. 300x200")
}

// runDocument evaluates doc on a driver worker and prints the result.
func runDocument(ctx context.Context, e *env, doc *docyaml.Document, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := e.driverOptions(doc)
	if c := form.Vec2(flagRunCanvas); !c.IsZero() {
		opts.Canvas = c
	}
	if flagRunTrace || e.settings.Trace {
		opts.Trace = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	d := driver.New(doc.Sheet, doc.Tree, opts)
	d.Start(ctx)
	defer d.Close()

	start := time.Now()
	d.Trigger()
	if err := d.Flush(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)
	res := d.Last()
	if res.Err != nil {
		return res.Err
	}

	for _, de := range res.Data.Errors() {
		name, _ := doc.Sheet.Name(de.ID)
		fmt.Fprintln(stderr, styleErr.Render(fmt.Sprintf("sheet %s: %v", name, de.Err)))
	}

	shots := res.Snapshots
	if !flagRunAll {
		shots = latestPerForm(shots)
	}
	if len(shots) == 0 {
		fmt.Fprintln(stdout, "no forms")
	} else {
		fmt.Fprintln(stdout, renderTable([]string{"FORM", "KIND", "SCOPE", "ANCHORS"}, snapshotRows(doc, shots)))
	}

	if flagRunStats {
		st, err := collectStats(elapsed, res.PeakWords)
		if err != nil {
			fmt.Fprintln(stderr, styleDim.Render(err.Error()))
		} else {
			fmt.Fprintln(stderr, styleDim.Render(st.String()))
		}
	}

	for _, ne := range res.Errors {
		where := "runtime"
		if !ne.Node.IsZero() {
			where = ne.Node.String()
		}
		fmt.Fprintln(stderr, styleErr.Render(fmt.Sprintf("%s: %v", where, ne.Err)))
	}
	if n := len(res.Errors); n > 0 {
		return fmt.Errorf("%d runtime error(s)", n)
	}
	return nil
}

// latestPerForm keeps the last snapshot of each form, ordered by the first
// time each form was captured.
func latestPerForm(shots []driver.Snapshot) []driver.Snapshot {
	var out []driver.Snapshot
	index := make(map[form.ID]int)
	for _, s := range shots {
		if i, ok := index[s.ID]; ok {
			out[i] = s
			continue
		}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	return out
}

func snapshotRows(doc *docyaml.Document, shots []driver.Snapshot) [][]string {
	rows := make([][]string, 0, len(shots))
	for _, s := range shots {
		kind := "?"
		if f, ok := doc.Form(s.Name); ok {
			kind = docyaml.Kind(f)
		}
		rows = append(rows, []string{s.Name, kind, fmt.Sprint(s.Scope), formatAnchors(s.Anchors)})
	}
	return rows
}

// formatAnchors renders anchors sorted by id.
func formatAnchors(anchors map[form.AnchorID]form.Vec2) string {
	ids := make([]form.AnchorID, 0, len(anchors))
	for id := range anchors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s=%s", id, formatVec(anchors[id]))
	}
	return strings.Join(parts, " ")
}

func formatVec(v form.Vec2) string {
	return fmt.Sprintf("(%g, %g)", round(v.X), round(v.Y))
}

// round drops float noise below 1e-9 so rotations print cleanly.
func round(f float64) float64 {
	const q = 1e9
	r := math.Round(f*q) / q
	if r == 0 {
		return 0
	}
	return r
}
