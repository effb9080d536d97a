package docyaml

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reform/pkg/driver"
	"reform/pkg/expr"
	"reform/pkg/form"
	"reform/pkg/instr"
	"reform/pkg/sheet"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func requireParseOK(t *testing.T, yml string) *Document {
	t.Helper()
	doc, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	return doc
}

func requireParseErr(t *testing.T, yml string, wantSubstrs ...string) error {
	t.Helper()
	_, err := Parse([]byte(yml))
	if err == nil {
		t.Fatalf("expected error but got none")
	}
	for _, sub := range wantSubstrs {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("error %q does not contain %q", err.Error(), sub)
		}
	}
	return err
}

// evaluate runs doc and fails on any runtime error.
func evaluate(t *testing.T, doc *Document) driver.Result {
	t.Helper()
	res := driver.New(doc.Sheet, doc.Tree, driver.Options{Canvas: doc.Canvas}).Evaluate(context.Background())
	if res.Err != nil {
		t.Fatalf("evaluation: %v", res.Err)
	}
	for _, e := range res.Errors {
		t.Errorf("%s: %v", e.Node, e.Err)
	}
	return res
}

func requireAnchor(t *testing.T, res driver.Result, f form.Form, id form.AnchorID, want form.Vec2) {
	t.Helper()
	var got form.Vec2
	found := false
	for _, s := range res.Snapshots {
		if s.ID == f.Identifier() {
			got, found = s.Anchor(id)
		}
	}
	if !found {
		t.Fatalf("no snapshot of %s.%s", f.Name(), id)
	}
	if got.Dist(want) > 1e-9 {
		t.Errorf("%s.%s: want %v, got %v", f.Name(), id, want, got)
	}
}

func requireForm(t *testing.T, doc *Document, name string) form.Form {
	t.Helper()
	f, ok := doc.Form(name)
	if !ok {
		t.Fatalf("form %q not declared", name)
	}
	return f
}

// ---------------------------------------------------------------------------
// Mapping form
// ---------------------------------------------------------------------------

func TestParse_MappingForm(t *testing.T) {
	doc := requireParseOK(t, `
canvas: [100, 50]
sheet:
  w: 10
  n: w / 5
  xs: [1, 2.5, 3]
forms:
  a: line
instructions:
  - create: a
    from: [0, 0]
    to: [10, 0]
  - repeat: n
    do:
      - translate: a
        by: [w, 0]
`)
	if doc.Canvas != (form.Vec2{X: 100, Y: 50}) {
		t.Errorf("canvas: got %v", doc.Canvas)
	}

	var names []string
	for _, d := range doc.Sheet.Definitions() {
		names = append(names, d.Name)
	}
	// Arrays are added while the mapping is read, scalars once it is done.
	if got := strings.Join(names, ","); got != "xs,w,n" {
		t.Errorf("definitions: got %s", got)
	}
	ds := sheet.Solve(doc.Sheet)
	xs, _ := doc.Sheet.ReferenceFor("xs")
	if v := ds.Value(xs); !v.Equal(expr.Int(3)) {
		t.Errorf("array count: got %v", v)
	}

	a := requireForm(t, doc, "a")
	res := evaluate(t, doc)
	requireAnchor(t, res, a, form.AnchorStart, form.Vec2{X: 20})
	requireAnchor(t, res, a, form.AnchorEnd, form.Vec2{X: 30})
}

func TestParse_OutlineOfTree(t *testing.T) {
	doc := requireParseOK(t, `
sheet:
  n: 3
forms:
  a: line
  r: rectangle
instructions:
  - create: a
    from: [0, 0]
    to: [10, 0]
  - create: r
    at: [5, 5]
    size: [4, 2]
    centered: true
  - if: n > 2
    do:
      - rotate: a
        angle: 90
        around: a.start
      - scale: r
        factor: "n / 2"
        axis: x
      - morph: a
        anchor: end
        by: [0, 1]
`)
	var o instr.OutlineAnalyzer
	doc.Tree.Analyze(&o, doc.Sheet)
	lines := o.Lines()
	if len(lines) != 6 {
		t.Fatalf("outline:\n%s", strings.Join(lines, "\n"))
	}
	for i, l := range lines[3:] {
		if !strings.HasPrefix(l, "  ") {
			t.Errorf("line %d of the if block is not indented: %q", i+3, l)
		}
	}
	deps := o.Dependencies()
	if len(deps) != 1 {
		t.Errorf("dependencies: got %v", deps)
	}
}

func TestParse_InstructionKinds(t *testing.T) {
	doc := requireParseOK(t, `
sheet:
  k: 2
forms:
  a: line
instructions:
  - rotate: a
    angle: 45
  - rotate: a
    angle: k * 45
  - rotate: a
    from: [1, 0]
    to: [0, 1]
  - scale: a
    factor: 2
    around: [0, 0]
  - scale: a
    from: [1, 0]
    to: [2, 0]
  - translate: a
    from: a.start
    to: a.end
  - translate: a
    by: [k, "k + 1"]
`)
	want := []string{
		"instr.ConstantAngle", "instr.ExprAngle", "instr.RelativeAngle",
		"instr.ConstantFactor", "instr.RelativeFactor",
		"instr.RelativeDistance", "instr.ExprDistance",
	}
	tree := doc.Tree
	kids := tree.Children(tree.Root())
	if len(kids) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(kids), len(want))
	}
	for i, id := range kids {
		ins, _ := tree.Instruction(id)
		var got string
		switch v := ins.(type) {
		case instr.Rotate:
			got = typeName(v.Angle)
			if i < 2 {
				if _, ok := v.FixPoint.(instr.AnchorPoint); !ok {
					t.Errorf("node %d: default fix point should be the center anchor", i)
				}
			}
		case instr.Scale:
			got = typeName(v.Factor)
		case instr.Translate:
			got = typeName(v.Distance)
		}
		if got != want[i] {
			t.Errorf("node %d: want %s, got %s", i, want[i], got)
		}
	}
}

func typeName(v any) string {
	switch v.(type) {
	case instr.ConstantAngle:
		return "instr.ConstantAngle"
	case instr.ExprAngle:
		return "instr.ExprAngle"
	case instr.RelativeAngle:
		return "instr.RelativeAngle"
	case instr.ConstantFactor:
		return "instr.ConstantFactor"
	case instr.RelativeFactor:
		return "instr.RelativeFactor"
	case instr.ExprFactor:
		return "instr.ExprFactor"
	case instr.ConstantDistance:
		return "instr.ConstantDistance"
	case instr.RelativeDistance:
		return "instr.RelativeDistance"
	case instr.ExprDistance:
		return "instr.ExprDistance"
	}
	return "?"
}

// ---------------------------------------------------------------------------
// Shorthand form and iteration
// ---------------------------------------------------------------------------

func TestParse_ShorthandDeclaresFormsOnCreate(t *testing.T) {
	doc := requireParseOK(t, `
- create: c
  type: circle
  at: [5, 5]
  size: [2, 2]
  centered: true
- translate: c
  by: [1, 1]
`)
	c := requireForm(t, doc, "c")
	if Kind(c) != "circle" {
		t.Errorf("kind: got %s", Kind(c))
	}
	res := evaluate(t, doc)
	requireAnchor(t, res, c, form.AnchorCenter, form.Vec2{X: 6, Y: 6})
}

func TestParse_EachBindsProxy(t *testing.T) {
	doc := requireParseOK(t, `
forms:
  a: line
  b: line
instructions:
  - create: a
    from: [0, 0]
    to: [1, 0]
  - create: b
    from: [0, 5]
    to: [1, 5]
  - each: [a, b]
    as: p
    do:
      - translate: p
        by: [0, 1]
`)
	p := requireForm(t, doc, "p")
	if Kind(p) != "line" {
		t.Errorf("proxy kind: got %s", Kind(p))
	}
	res := evaluate(t, doc)
	requireAnchor(t, res, requireForm(t, doc, "a"), form.AnchorStart, form.Vec2{Y: 1})
	requireAnchor(t, res, requireForm(t, doc, "b"), form.AnchorStart, form.Vec2{Y: 6})
}

func TestParse_ProxyIsScopedToBody(t *testing.T) {
	requireParseErr(t, `
forms:
  a: line
instructions:
  - each: [a]
    as: p
    do:
      - translate: p
        by: [0, 1]
  - translate: p
    by: [0, 1]
`, "path=instructions[1].translate", `unknown form "p"`)
}

// ---------------------------------------------------------------------------
// Depth
// ---------------------------------------------------------------------------

const nested = `
forms:
  a: line
instructions:
  - repeat: 1
    do:
      - repeat: 1
        do:
          - repeat: 1
            do:
              - translate: a
                by: [1, 0]
`

func TestParse_NestingIsBounded(t *testing.T) {
	requireParseErr(t, nested, "phase=build", "instructions[0].do[0].do[0]", "deeper than 2")

	doc, err := ParseWith([]byte(nested), Options{MaxDepth: 3})
	if err != nil {
		t.Fatalf("max depth 3: %v", err)
	}
	if doc.Tree.MaxDepth != 3 {
		t.Errorf("tree max depth: got %d", doc.Tree.MaxDepth)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		yml  string
		want []string
	}{
		{"empty → error", ``, []string{"empty YAML"}},
		{"scalar root → error", `hello`, []string{"unexpected YAML root kind"}},
		{"bad canvas → error", `canvas: [1]`, []string{"path=canvas"}},
		{"invalid definition → error", "sheet:\n  w: 1 +\n", []string{"path=sheet.w"}},
		{"unknown form type → error", "forms:\n  a: hexagon\n", []string{"path=forms.a", "unknown form type"}},
		{"proxy shadows form → error", "forms: {a: line}\ninstructions:\n  - each: [a]\n    as: a\n    do: []\n", []string{"path=instructions[0].as", "declared twice"}},
		{"two verbs → error", "forms: {a: line}\ninstructions:\n  - translate: a\n    rotate: a\n", []string{"exactly one of", "translate, rotate"}},
		{"no verb → error", "- by: [1, 1]\n", []string{"got 0"}},
		{"undeclared create → error", "- create: a\n  from: [0,0]\n  to: [1,1]\n", []string{"declare it under forms"}},
		{"unknown anchor → error", "forms: {a: line}\ninstructions:\n  - translate: a\n    from: a.nowhere\n    to: a.end\n", []string{"no anchor \"nowhere\""}},
		{"morph anchor → error", "forms: {a: circle}\ninstructions:\n  - morph: a\n    anchor: start\n    by: [1, 1]\n", []string{"path=instructions[0].anchor"}},
		{"expression point → error", "forms: {a: line}\ninstructions:\n  - create: a\n    from: [w, 0]\n    to: [1, 1]\n", []string{"must be numbers"}},
		{"missing amount → error", "forms: {a: line}\ninstructions:\n  - rotate: a\n", []string{"missing amount"}},
		{"bad axis → error", "forms: {a: line}\ninstructions:\n  - scale: a\n    factor: 2\n    axis: z\n", []string{"unknown axis"}},
		{"do on instruction → error", "forms: {a: line}\ninstructions:\n  - translate: a\n    by: [1, 1]\n    do:\n      - translate: a\n        by: [1, 1]\n", []string{"takes no 'do'"}},
		{"each without as → error", "forms: {a: line}\ninstructions:\n  - each: [a]\n    do: []\n", []string{"needs 'as'"}},
		{"bad repeat → error", "forms: {a: line}\ninstructions:\n  - repeat: 1 +\n    do: []\n", []string{"path=instructions[0].repeat"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireParseErr(t, tc.yml, tc.want...)
		})
	}
}

func TestParse_ReservedArrayName(t *testing.T) {
	err := requireParseErr(t, "sheet:\n  sin: [1, 2]\n", "path=sheet.sin")
	if !errors.Is(err, sheet.ErrReservedName) {
		t.Errorf("want ErrReservedName, got %v", err)
	}
}

func TestNewForm_RoundTripsKind(t *testing.T) {
	for _, kind := range []string{"line", "rectangle", "circle"} {
		f, err := NewForm(kind, "f")
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if got := Kind(f); got != kind {
			t.Errorf("Kind(NewForm(%q)) = %q", kind, got)
		}
	}
}
