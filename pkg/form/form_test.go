package form

import (
	"math"
	"testing"
)

// words is a Memory for a fixed set of forms.
type words map[ID][]uint64

func newWords(forms ...Form) words {
	w := words{}
	for _, f := range forms {
		w[f.Identifier()] = make([]uint64, f.Size())
	}
	return w
}

func (w words) Read(id ID, offset int) (uint64, bool) {
	block, ok := w[id]
	if !ok || offset < 0 || offset >= len(block) {
		return 0, false
	}
	return block[offset], true
}

func (w words) Write(id ID, offset int, word uint64) bool {
	block, ok := w[id]
	if !ok || offset < 0 || offset >= len(block) {
		return false
	}
	block[offset] = word
	return true
}

const eps = 1e-9

func near(a, b Vec2) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps
}

func requireAnchor(t *testing.T, mem Memory, f Form, id AnchorID, want Vec2) {
	t.Helper()
	a, ok := FindAnchor(f, id)
	if !ok {
		t.Fatalf("%s has no anchor %q", f.Name(), id)
	}
	got, ok := a.Position(mem)
	if !ok {
		t.Fatalf("%s.%s: position unavailable", f.Name(), id)
	}
	if !near(got, want) {
		t.Errorf("%s.%s: want %v, got %v", f.Name(), id, want, got)
	}
}

func TestWords_FloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, -1.5, math.Pi, math.Inf(1), math.MaxFloat64} {
		if got := WordFloat(FloatWord(f)); got != f {
			t.Errorf("%v: got %v back", f, got)
		}
	}
	if !math.IsNaN(WordFloat(FloatWord(math.NaN()))) {
		t.Error("NaN must survive the round trip")
	}
}

func TestStoredPoint_Unavailable(t *testing.T) {
	mem := words{}
	if _, ok := (StoredPoint{Form: 99}).Get(mem); ok {
		t.Error("reading an undeclared form must be unavailable")
	}
	l := NewLine("l")
	mem = newWords(l)
	if _, ok := (StoredPoint{Form: l.Identifier(), Offset: 3}).Get(mem); ok {
		t.Error("a point straddling the end of the block must be unavailable")
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := map[float64]float64{
		0:               0,
		math.Pi:         math.Pi,
		-math.Pi:        math.Pi,
		3 * math.Pi / 2: -math.Pi / 2,
	}
	for in, want := range cases {
		if got := NormalizeAngle(in); math.Abs(got-want) > eps {
			t.Errorf("NormalizeAngle(%v): want %v, got %v", in, want, got)
		}
	}
}

func TestLine(t *testing.T) {
	l := NewLine("line")
	mem := newWords(l)
	if !l.Init(mem, Vec2{0, 0}, Vec2{10, 0}) {
		t.Fatal("init failed")
	}
	requireAnchor(t, mem, l, AnchorCenter, Vec2{5, 0})

	if n, _ := l.Length(mem); math.Abs(n-10) > eps {
		t.Errorf("length: want 10, got %v", n)
	}
	if p, _ := l.Outline().Position(mem, 0.25); !near(p, Vec2{2.5, 0}) {
		t.Errorf("outline at 0.25: got %v", p)
	}

	l.Rotate(mem, math.Pi/2, Vec2{0, 0})
	requireAnchor(t, mem, l, AnchorEnd, Vec2{0, 10})

	l.Scale(mem, 2, Vec2{0, 0}, AxisNone)
	requireAnchor(t, mem, l, AnchorEnd, Vec2{0, 20})

	l.Translate(mem, Vec2{1, 1})
	requireAnchor(t, mem, l, AnchorStart, Vec2{1, 1})

	end, _ := FindAnchor(l, AnchorEnd)
	end.Move(mem, Vec2{5, 0})
	requireAnchor(t, mem, l, AnchorEnd, Vec2{6, 21})
	requireAnchor(t, mem, l, AnchorStart, Vec2{1, 1})
}

func TestRectangle(t *testing.T) {
	r := NewRectangle("rect")
	mem := newWords(r)
	r.Init(mem, Vec2{0, 0}, Vec2{4, 2})
	requireAnchor(t, mem, r, AnchorCenter, Vec2{2, 1})
	requireAnchor(t, mem, r, AnchorTopLeft, Vec2{0, 0})
	requireAnchor(t, mem, r, AnchorBottomRight, Vec2{4, 2})

	if n, _ := r.Outline().Length(mem); math.Abs(n-12) > eps {
		t.Errorf("perimeter: want 12, got %v", n)
	}
	if p, _ := r.Outline().Position(mem, 0.5); !near(p, Vec2{4, 2}) {
		t.Errorf("outline halfway should be the opposite corner, got %v", p)
	}

	corner, _ := FindAnchor(r, AnchorBottomRight)
	corner.Move(mem, Vec2{2, 2})
	requireAnchor(t, mem, r, AnchorTopLeft, Vec2{0, 0})
	requireAnchor(t, mem, r, AnchorBottomRight, Vec2{6, 4})

	r.Scale(mem, 0.5, Vec2{0, 0}, AxisHorizontal)
	requireAnchor(t, mem, r, AnchorBottomRight, Vec2{3, 4})

	r.Rotate(mem, math.Pi, Vec2{0, 0})
	requireAnchor(t, mem, r, AnchorCenter, Vec2{-1.5, -2})
	requireAnchor(t, mem, r, AnchorTopLeft, Vec2{0, 0})
}

func TestCircle(t *testing.T) {
	c := NewCircle("circle")
	mem := newWords(c)
	c.Init(mem, Vec2{-3, -4}, Vec2{3, 4})
	requireAnchor(t, mem, c, AnchorCenter, Vec2{0, 0})
	requireAnchor(t, mem, c, AnchorEdge, Vec2{5, 0})

	if n, _ := c.Length(mem); math.Abs(n-10*math.Pi) > eps {
		t.Errorf("circumference: got %v", n)
	}

	if c.Scale(mem, 2, Vec2{}, AxisVertical) {
		t.Error("single-axis scaling of a circle must be refused")
	}
	if !c.Scale(mem, 2, Vec2{}, AxisNone) {
		t.Fatal("uniform scaling failed")
	}
	requireAnchor(t, mem, c, AnchorEdge, Vec2{10, 0})

	edge, _ := FindAnchor(c, AnchorEdge)
	edge.Move(mem, Vec2{-10, 10})
	requireAnchor(t, mem, c, AnchorEdge, Vec2{0, 10})
	if r, _ := c.Radius().Get(mem); math.Abs(r-10) > eps {
		t.Errorf("radius: want 10, got %v", r)
	}
}

func TestForms_Kind(t *testing.T) {
	for _, tt := range []struct {
		f    Form
		want string
	}{
		{NewLine("l"), "line"},
		{NewRectangle("r"), "rectangle"},
		{NewCircle("c"), "circle"},
	} {
		if got := tt.f.Kind(); got != tt.want {
			t.Errorf("%s: kind %q, want %q", tt.f.Name(), got, tt.want)
		}
	}
	// Same layout size, different shapes.
	l, c := NewLine("l"), NewCircle("c")
	if l.Size() != c.Size() || l.Kind() == c.Kind() {
		t.Error("a line and a circle should differ in kind only")
	}
}

func TestTransformHelpers_AllOrNothing(t *testing.T) {
	l := NewLine("l")
	mem := newWords(l)
	l.Init(mem, Vec2{1, 1}, Vec2{2, 2})

	missing := StoredPoint{Form: l.Identifier() + 1000}
	if TranslatePoints(mem, Vec2{5, 5}, l.Start(), missing) {
		t.Fatal("expected failure when one point is unavailable")
	}
	requireAnchor(t, mem, l, AnchorStart, Vec2{1, 1})
}
