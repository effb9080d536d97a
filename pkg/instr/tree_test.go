package instr

import (
	"context"
	"slices"
	"strings"
	"testing"

	"reform/pkg/expr"
	"reform/pkg/form"
	"reform/pkg/vm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// recorder records errors and the anchor positions of forms leaving scope.
type recorder struct {
	vm.BaseListener
	rt     *vm.Runtime
	errs   []error
	on     []vm.Evaluable
	last   map[form.ID]map[form.AnchorID]form.Vec2
	exited []form.ID
}

func (p *recorder) ExitScope(forms []form.Form) {
	for _, f := range forms {
		p.exited = append(p.exited, f.Identifier())
		anchors := map[form.AnchorID]form.Vec2{}
		for _, a := range f.Anchors() {
			if v, ok := a.Position(p.rt); ok {
				anchors[a.ID()] = v
			}
		}
		p.last[f.Identifier()] = anchors
	}
}

func (p *recorder) ErrorTriggered(err error, n vm.Evaluable) {
	p.errs = append(p.errs, err)
	p.on = append(p.on, n)
}

func run(t *testing.T, tree *Tree, ds expr.DataSet) *recorder {
	t.Helper()
	p := &recorder{last: map[form.ID]map[form.AnchorID]form.Vec2{}}
	p.rt = vm.New(form.Vec2{X: 100, Y: 100}, p)
	if err := p.rt.Run(context.Background(), ds, tree); err != nil {
		t.Fatalf("run: %v", err)
	}
	return p
}

func requireAnchor(t *testing.T, p *recorder, f form.Form, anchor form.AnchorID, want form.Vec2) {
	t.Helper()
	got, ok := p.last[f.Identifier()][anchor]
	if !ok {
		t.Fatalf("%s.%s was never captured", f.Name(), anchor)
	}
	if !near(got, want) {
		t.Errorf("%s.%s: want %v, got %v", f.Name(), anchor, want, got)
	}
}

func near(a, b form.Vec2) bool {
	const eps = 1e-9
	d := a.Sub(b)
	return d.X < eps && d.X > -eps && d.Y < eps && d.Y > -eps
}

// appendAll adds one node per instruction to the root.
func appendAll(t *testing.T, tree *Tree, ins ...Instruction) []NodeID {
	t.Helper()
	ids := make([]NodeID, len(ins))
	for i, in := range ins {
		ids[i] = tree.NewNode(in)
		if !tree.AppendChild(tree.Root(), ids[i]) {
			t.Fatalf("append %d failed", i)
		}
	}
	return ids
}

func create(f form.Form, from, to form.Vec2) Create {
	return Create{Form: f, Destination: RelativeDestination{From: ConstantPoint{At: from}, To: ConstantPoint{At: to}}}
}

func move(f form.Form, dx, dy float64) Translate {
	return Translate{Form: f, Distance: ConstantDistance{Delta: form.Vec2{X: dx, Y: dy}}}
}

func outline(tree *Tree) string {
	var o OutlineAnalyzer
	tree.Analyze(&o, nil)
	return strings.Join(o.Lines(), "\n")
}

// requireDepths checks that every child sits one level below its parent.
func requireDepths(t *testing.T, tree *Tree) {
	t.Helper()
	tree.Walk(tree.Root(), func(id NodeID) bool {
		for _, c := range tree.Children(id) {
			if tree.Depth(c) != tree.Depth(id)+1 {
				t.Errorf("node %d at depth %d under node %d at depth %d", c, tree.Depth(c), id, tree.Depth(id))
			}
			if tree.Parent(c) != id {
				t.Errorf("node %d has parent %d, want %d", c, tree.Parent(c), id)
			}
		}
		return true
	})
}

// ---------------------------------------------------------------------------
// Structure
// ---------------------------------------------------------------------------

func TestTree_WrapInKeepsDepthsAndStopsAtMaxDepth(t *testing.T) {
	tree := NewTree()
	l := form.NewLine("l")
	ids := appendAll(t, tree, create(l, form.Vec2{}, form.Vec2{X: 1}), move(l, 1, 0))

	outer, ok := tree.WrapIn(ids[1], Sequence{Name: "outer"})
	if !ok {
		t.Fatal("first wrap refused")
	}
	requireDepths(t, tree)
	if got := tree.Depth(ids[1]); got != 2 {
		t.Errorf("wrapped node depth: want 2, got %d", got)
	}

	inner, ok := tree.WrapIn(ids[1], Sequence{Name: "inner"})
	if !ok {
		t.Fatal("second level wrap refused")
	}
	requireDepths(t, tree)
	if tree.Depth(inner) != 2 || tree.Depth(ids[1]) != 3 {
		t.Errorf("depths: inner %d, node %d", tree.Depth(inner), tree.Depth(ids[1]))
	}

	before := outline(tree)
	if _, ok := tree.WrapIn(ids[1], Sequence{Name: "third"}); ok {
		t.Error("wrap past the max depth must be refused")
	}
	if _, ok := tree.WrapIn(outer, Sequence{Name: "third"}); ok {
		t.Error("wrap pushing a nested group past the max depth must be refused")
	}
	if after := outline(tree); after != before {
		t.Errorf("refused wrap changed the tree:\n%s\nwant\n%s", after, before)
	}
	requireDepths(t, tree)
}

func TestTree_MaxDepthIsConfigurable(t *testing.T) {
	tree := NewTree()
	tree.MaxDepth = 1
	l := form.NewLine("l")
	ids := appendAll(t, tree, move(l, 1, 0))

	if _, ok := tree.WrapIn(ids[0], Sequence{}); !ok {
		t.Fatal("wrap at depth 1 refused")
	}
	if _, ok := tree.WrapIn(ids[0], Sequence{}); ok {
		t.Error("wrap at depth 2 accepted with MaxDepth 1")
	}
}

func TestTree_WrapInRefusals(t *testing.T) {
	tree := NewTree()
	empty := tree.NewEmptyNode()
	tree.AppendChild(tree.Root(), empty)

	if _, ok := tree.WrapIn(empty, Sequence{}); ok {
		t.Error("empty node wrapped")
	}
	if _, ok := tree.WrapIn(tree.Root(), Sequence{}); ok {
		t.Error("root wrapped")
	}
	detached := tree.NewNode(move(form.NewLine("l"), 1, 1))
	if _, ok := tree.WrapIn(detached, Sequence{}); ok {
		t.Error("detached node wrapped")
	}
}

func TestTree_SiblingsAndChildren(t *testing.T) {
	tree := NewTree()
	l := form.NewLine("l")
	ids := appendAll(t, tree, move(l, 1, 0))

	after := tree.NewNode(move(l, 2, 0))
	before := tree.NewNode(move(l, 3, 0))
	if !tree.AppendSibling(ids[0], after) || !tree.PrependSibling(ids[0], before) {
		t.Fatal("sibling insert refused")
	}
	want := []NodeID{before, ids[0], after}
	if got := tree.Children(tree.Root()); !slices.Equal(got, want) {
		t.Errorf("children: want %v, got %v", want, got)
	}

	t.Run("attached node cannot be inserted again", func(t *testing.T) {
		if tree.AppendSibling(ids[0], after) {
			t.Error("accepted")
		}
	})
	t.Run("root has no siblings", func(t *testing.T) {
		if tree.AppendSibling(tree.Root(), tree.NewNode(move(l, 1, 1))) {
			t.Error("accepted")
		}
	})
	t.Run("single node takes no children", func(t *testing.T) {
		if tree.AppendChild(ids[0], tree.NewNode(move(l, 1, 1))) {
			t.Error("accepted")
		}
	})
	t.Run("node cannot contain its ancestor", func(t *testing.T) {
		g := tree.NewGroupNode(Sequence{})
		c := tree.NewGroupNode(Sequence{})
		if !tree.AppendChild(g, c) {
			t.Fatal("nested group refused")
		}
		if tree.AppendChild(c, g) {
			t.Error("cycle accepted")
		}
	})
}

func TestTree_RemoveFromParent(t *testing.T) {
	tree := NewTree()
	l := form.NewLine("l")
	ids := appendAll(t, tree, move(l, 1, 0), move(l, 2, 0))

	if !tree.RemoveFromParent(ids[0]) {
		t.Fatal("remove refused")
	}
	if got := tree.Children(tree.Root()); !slices.Equal(got, ids[1:]) {
		t.Errorf("children: %v", got)
	}
	if tree.Parent(ids[0]) != NoNode || tree.Attached(ids[0]) {
		t.Error("removed node still attached")
	}
	if tree.RemoveFromParent(ids[0]) {
		t.Error("second remove accepted")
	}
	if tree.RemoveFromParent(tree.Root()) {
		t.Error("root removed")
	}

	// A removed node can be inserted again.
	if !tree.PrependSibling(ids[1], ids[0]) {
		t.Error("reinsert refused")
	}
}

func TestTree_ReplaceWithGroup(t *testing.T) {
	l := form.NewLine("l")

	t.Run("single → group gets one empty child", func(t *testing.T) {
		tree := NewTree()
		ids := appendAll(t, tree, move(l, 1, 0))
		if !tree.ReplaceWithGroup(ids[0], IfCondition{Condition: expr.MustParse("true")}) {
			t.Fatal("refused")
		}
		kids := tree.Children(ids[0])
		if len(kids) != 1 || !tree.IsEmpty(kids[0]) {
			t.Fatalf("children: %v", kids)
		}
		requireDepths(t, tree)
	})

	t.Run("group → group keeps children", func(t *testing.T) {
		tree := NewTree()
		ids := appendAll(t, tree, move(l, 1, 0))
		g, _ := tree.WrapIn(ids[0], Sequence{})
		if !tree.ReplaceWithGroup(g, ForLoop{Count: expr.MustParse("3")}) {
			t.Fatal("refused")
		}
		if kids := tree.Children(g); !slices.Equal(kids, ids) {
			t.Errorf("children: %v", kids)
		}
		if grp, _ := tree.Group(g); grp.Label(nil) != "repeat 3 times" {
			t.Errorf("label: %s", grp.Label(nil))
		}
	})
}

func TestTree_ReplaceWithInstructionAndNode(t *testing.T) {
	tree := NewTree()
	l := form.NewLine("l")
	ids := appendAll(t, tree, move(l, 1, 0))
	g, _ := tree.WrapIn(ids[0], Sequence{})

	if !tree.ReplaceWithInstruction(g, move(l, 5, 5)) {
		t.Fatal("refused")
	}
	if len(tree.Children(g)) != 0 || tree.Attached(ids[0]) {
		t.Error("children of a replaced group must be detached")
	}
	if tree.ReplaceWithInstruction(tree.Root(), move(l, 1, 1)) {
		t.Error("root became a single node")
	}

	other := tree.NewGroupNode(Sequence{Name: "moved"}, tree.NewNode(move(l, 7, 7)))
	if !tree.ReplaceWithNode(g, other) {
		t.Fatal("replace with node refused")
	}
	if grp, ok := tree.Group(g); !ok || grp.Label(nil) != "moved" {
		t.Errorf("content not moved: %v", grp)
	}
	if len(tree.Children(g)) != 1 || !tree.IsEmpty(other) {
		t.Error("children not moved")
	}
	requireDepths(t, tree)
}

func TestTree_Unwrap(t *testing.T) {
	tree := NewTree()
	l := form.NewLine("l")
	ids := appendAll(t, tree, move(l, 1, 0), move(l, 2, 0), move(l, 3, 0))
	g, _ := tree.WrapIn(ids[1], Sequence{})
	tree.AppendChild(g, tree.NewNode(move(l, 4, 0)))
	kids := tree.Children(g)

	if !tree.Unwrap(g) {
		t.Fatal("unwrap refused")
	}
	want := []NodeID{ids[0], kids[0], kids[1], ids[2]}
	if got := tree.Children(tree.Root()); !slices.Equal(got, want) {
		t.Errorf("children: want %v, got %v", want, got)
	}
	requireDepths(t, tree)
	if tree.Unwrap(ids[0]) {
		t.Error("single node unwrapped")
	}
	if tree.Unwrap(tree.Root()) {
		t.Error("root unwrapped")
	}
}

func TestTree_IsDegenerated(t *testing.T) {
	tree := NewTree()
	l := form.NewLine("l")
	cases := []struct {
		name string
		id   NodeID
		want bool
	}{
		{"empty", tree.NewEmptyNode(), true},
		{"zero translate", tree.NewNode(move(l, 0, 0)), true},
		{"translate", tree.NewNode(move(l, 1, 0)), false},
		{"unit scale", tree.NewNode(Scale{Form: l, Factor: ConstantFactor{Value: 1}, FixPoint: ConstantPoint{}}), true},
		{"zero angle", tree.NewNode(Rotate{Form: l, Angle: ConstantAngle{Radians: 0}, FixPoint: ConstantPoint{}}), true},
		{"childless group", tree.NewGroupNode(Sequence{}), true},
		{"group", tree.NewGroupNode(Sequence{}, tree.NewNode(move(l, 1, 0))), false},
		{"loop without count", tree.NewGroupNode(ForLoop{}, tree.NewNode(move(l, 1, 0))), true},
		{"create in a point", tree.NewNode(create(l, form.Vec2{X: 1}, form.Vec2{X: 1})), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := tree.IsDegenerated(c.id); got != c.want {
				t.Errorf("want %v, got %v", c.want, got)
			}
		})
	}
}

func TestTree_AnalyzeOutline(t *testing.T) {
	tree := NewTree()
	l := form.NewLine("l")
	ids := appendAll(t, tree, create(l, form.Vec2{}, form.Vec2{X: 10}), move(l, 1, 2))
	tree.WrapIn(ids[1], ForLoop{Count: expr.Reference{ID: 4}})

	var o OutlineAnalyzer
	tree.Analyze(&o, nil)
	want := []string{
		"sequence",
		"  create l from (0, 0) to (10, 0) (leading)",
		"  repeat $4 times",
		"    move l by (1, 2)",
	}
	if got := o.Lines(); !slices.Equal(got, want) {
		t.Errorf("outline:\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if forms := o.Forms(); len(forms) != 1 || forms[0] != form.Form(l) {
		t.Errorf("forms: %v", forms)
	}
	if deps := o.Dependencies(); !slices.Equal(deps, []expr.ReferenceID{4}) {
		t.Errorf("dependencies: %v", deps)
	}
}
