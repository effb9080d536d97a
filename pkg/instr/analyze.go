package instr

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"reform/pkg/expr"
	"reform/pkg/form"
)

// Analyzer walks a tree without evaluating it.
type Analyzer interface {
	Publish(ref NodeRef, label string)
	// PublishGroup reports a group node. block publishes its children.
	PublishGroup(ref NodeRef, label string, block func())
	AnnounceForm(f form.Form)
	AnnounceDependency(id expr.ReferenceID)
}

// Analyze drives a over the nodes attached to the root. Empty nodes are
// skipped. names labels references and may be nil.
func (t *Tree) Analyze(a Analyzer, names expr.Namer) {
	t.analyze(t.Root(), a, names)
}

func (t *Tree) analyze(id NodeID, a Analyzer, names expr.Namer) {
	n := t.nodes[id]
	ref := t.Ref(id)
	switch n.kind {
	case kindSingle:
		n.instruction.Analyze(a)
		a.Publish(ref, n.instruction.Label(names))
	case kindGroup:
		n.group.Analyze(a)
		a.PublishGroup(ref, n.group.Label(names), func() {
			for _, c := range n.children {
				t.analyze(c, a, names)
			}
		})
	}
}

// OutlineAnalyzer renders a tree as an indented outline and collects the
// forms and sheet references it mentions.
type OutlineAnalyzer struct {
	lines  []string
	indent int

	forms []form.Form
	seen  map[form.ID]bool
	deps  []expr.ReferenceID
}

func (o *OutlineAnalyzer) Publish(ref NodeRef, label string) {
	o.lines = append(o.lines, strings.Repeat("  ", o.indent)+label)
}

func (o *OutlineAnalyzer) PublishGroup(ref NodeRef, label string, block func()) {
	o.Publish(ref, label)
	o.indent++
	block()
	o.indent--
}

func (o *OutlineAnalyzer) AnnounceForm(f form.Form) {
	if o.seen == nil {
		o.seen = make(map[form.ID]bool)
	}
	if !o.seen[f.Identifier()] {
		o.seen[f.Identifier()] = true
		o.forms = append(o.forms, f)
	}
}

func (o *OutlineAnalyzer) AnnounceDependency(id expr.ReferenceID) {
	if !slices.Contains(o.deps, id) {
		o.deps = append(o.deps, id)
	}
}

func (o *OutlineAnalyzer) Lines() []string { return slices.Clone(o.lines) }

// Forms lists the announced forms in first-seen order.
func (o *OutlineAnalyzer) Forms() []form.Form { return slices.Clone(o.forms) }

// Dependencies lists the referenced definitions, sorted.
func (o *OutlineAnalyzer) Dependencies() []expr.ReferenceID {
	deps := slices.Clone(o.deps)
	slices.Sort(deps)
	return deps
}

func (o *OutlineAnalyzer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, l := range o.lines {
		n, err := fmt.Fprintln(w, l)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
