package vm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reform/pkg/expr"
	"reform/pkg/form"
)

type evalFunc func(rt *Runtime)

func (f evalFunc) Evaluate(rt *Runtime) { f(rt) }

// named is an Evaluable that is comparable, so tests can check attribution.
type named struct {
	name string
	body func(rt *Runtime)
}

func (n *named) Evaluate(rt *Runtime) {
	rt.Eval(n, func() {
		if n.body != nil {
			n.body(rt)
		}
	})
}

type recorder struct {
	BaseListener
	events []string
	exited [][]form.Form
	errs   []error
	on     []Evaluable
	evals  []Evaluable
	size   form.Vec2
}

func (r *recorder) BeginEvaluation(size form.Vec2) {
	r.size = size
	r.events = append(r.events, "begin")
}

func (r *recorder) FinishEvaluation() { r.events = append(r.events, "finish") }

func (r *recorder) DidEval(n Evaluable) { r.evals = append(r.evals, n) }

func (r *recorder) ExitScope(forms []form.Form) {
	r.exited = append(r.exited, forms)
	r.events = append(r.events, "exit")
}

func (r *recorder) ErrorTriggered(err error, n Evaluable) {
	r.errs = append(r.errs, err)
	r.on = append(r.on, n)
}

func ids(forms []form.Form) []form.ID {
	out := make([]form.ID, len(forms))
	for i, f := range forms {
		out[i] = f.Identifier()
	}
	return out
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func TestStack_DeclareAssignsConsecutiveOffsets(t *testing.T) {
	s := NewStack()
	s.PushFrame()
	a, b := form.NewLine("a"), form.NewRectangle("b")

	ok, err := s.Declare(a)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Declare(b)
	require.NoError(t, err)
	require.True(t, ok)

	offA, _ := s.Offset(a.Identifier())
	offB, _ := s.Offset(b.Identifier())
	assert.Equal(t, 0, offA)
	assert.Equal(t, a.Size(), offB)
	assert.Equal(t, a.Size()+b.Size(), s.Size())

	ok, err = s.Declare(a)
	require.NoError(t, err)
	assert.False(t, ok, "redeclaring a live form is a no-op")
	assert.Equal(t, a.Size()+b.Size(), s.Size())
}

func TestStack_DeclareWithoutFrame(t *testing.T) {
	_, err := NewStack().Declare(form.NewLine("l"))
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestStack_ReadWriteBounds(t *testing.T) {
	s := NewStack()
	s.PushFrame()
	l := form.NewLine("l")
	_, err := s.Declare(l)
	require.NoError(t, err)

	require.True(t, s.Write(l.Identifier(), 3, 42))
	w, ok := s.Read(l.Identifier(), 3)
	require.True(t, ok)
	assert.Equal(t, uint64(42), w)

	_, ok = s.Read(l.Identifier(), 4)
	assert.False(t, ok, "offset past the block")
	_, ok = s.Read(l.Identifier(), -1)
	assert.False(t, ok, "negative offset")
	_, ok = s.Read(form.ID(-5), 0)
	assert.False(t, ok, "unknown form")
	assert.False(t, s.Write(form.ID(-5), 0, 1))
}

func TestStack_PopFrameReleasesInReverse(t *testing.T) {
	s := NewStack()
	s.PushFrame()
	outer := form.NewLine("outer")
	_, _ = s.Declare(outer)

	s.PushFrame()
	a, b := form.NewLine("a"), form.NewCircle("b")
	_, _ = s.Declare(a)
	_, _ = s.Declare(b)
	require.True(t, s.Write(b.Identifier(), 0, 7))

	released := s.PopFrame()
	assert.Equal(t, []form.ID{a.Identifier(), b.Identifier()}, released)
	assert.Equal(t, outer.Size(), s.Size())
	assert.Equal(t, []form.ID{outer.Identifier()}, ids(s.Forms()))

	// The words of released forms are zeroed before reuse.
	s.PushFrame()
	c := form.NewRectangle("c")
	_, _ = s.Declare(c)
	for i := 0; i < c.Size(); i++ {
		w, ok := s.Read(c.Identifier(), i)
		require.True(t, ok)
		assert.Zero(t, w, "word %d", i)
	}
}

// ---------------------------------------------------------------------------
// Runtime
// ---------------------------------------------------------------------------

func TestRuntime_ScopedReleasesInnerForms(t *testing.T) {
	rec := &recorder{}
	rt := New(form.Vec2{X: 100, Y: 50}, rec)
	outer := form.NewLine("outer")
	a, b := form.NewLine("a"), form.NewRectangle("b")

	var inside, after []form.ID
	var offsetsReadable bool
	err := rt.Run(context.Background(), nil, evalFunc(func(rt *Runtime) {
		rt.Declare(outer)
		rt.Scoped(func() {
			rt.Declare(a)
			rt.Declare(b)
			rt.Write(a.Identifier(), 0, form.FloatWord(1.5))
			inside = ids(rt.Forms())
		})
		after = ids(rt.Forms())
		_, okA := rt.Read(a.Identifier(), 0)
		_, okB := rt.Read(b.Identifier(), 0)
		offsetsReadable = okA || okB
	}))
	require.NoError(t, err)

	assert.Equal(t, []form.ID{outer.Identifier(), a.Identifier(), b.Identifier()}, inside)
	assert.Equal(t, []form.ID{outer.Identifier()}, after)
	assert.False(t, offsetsReadable, "offsets of exited forms must be unavailable")

	require.Len(t, rec.exited, 2, "inner scope then root scope")
	assert.Equal(t, []form.ID{a.Identifier(), b.Identifier()}, ids(rec.exited[0]))
	assert.Equal(t, []form.ID{outer.Identifier()}, ids(rec.exited[1]))
	assert.Equal(t, []string{"begin", "exit", "exit", "finish"}, rec.events)
	assert.Equal(t, form.Vec2{X: 100, Y: 50}, rec.size)
	assert.Empty(t, rt.Forms(), "everything is released after the run")
}

// exitReader checks that words are still readable during ExitScope.
type exitReader struct {
	BaseListener
	rt   *Runtime
	seen []float64
}

func (e *exitReader) ExitScope(forms []form.Form) {
	for _, f := range forms {
		if v, ok := form.ReadFloat(e.rt, f.Identifier(), 0); ok {
			e.seen = append(e.seen, v)
		}
	}
}

func TestRuntime_ExitScopeSeesLiveWords(t *testing.T) {
	l := form.NewLine("l")
	rt := New(form.Vec2{})
	er := &exitReader{rt: rt}
	rt.AddListener(er)

	err := rt.Run(context.Background(), nil, evalFunc(func(rt *Runtime) {
		rt.Scoped(func() {
			rt.Declare(l)
			l.Init(rt, form.Vec2{X: 3, Y: 4}, form.Vec2{X: 5, Y: 6})
		})
	}))
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, er.seen)
}

func TestRuntime_ErrorAttribution(t *testing.T) {
	rec := &recorder{}
	rt := New(form.Vec2{}, rec)

	boom := NewError(ErrInvalidDistance, 3, "distance is %s", "NaN")
	inner := &named{name: "inner", body: func(rt *Runtime) { rt.ReportError(boom) }}
	sibling := &named{name: "sibling"}
	outer := &named{name: "outer", body: func(rt *Runtime) {
		inner.Evaluate(rt)
		rt.ReportError(errors.New("outer failure"))
		sibling.Evaluate(rt)
	}}

	require.NoError(t, rt.Run(context.Background(), nil, outer))

	require.Len(t, rec.errs, 2)
	assert.ErrorIs(t, rec.errs[0], ErrInvalidDistance)
	assert.Same(t, inner, rec.on[0])
	assert.Same(t, outer, rec.on[1])

	// Evaluation went on after the errors.
	assert.Equal(t, []Evaluable{inner, sibling, outer}, rec.evals)
}

func TestRuntime_RejectsReentrantRun(t *testing.T) {
	rt := New(form.Vec2{})
	var nested error
	err := rt.Run(context.Background(), nil, evalFunc(func(rt *Runtime) {
		assert.True(t, rt.Running())
		nested = rt.Run(context.Background(), nil, nil)
	}))
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrAlreadyRunning)
	assert.False(t, rt.Running())
}

func TestRuntime_StopAndContext(t *testing.T) {
	rt := New(form.Vec2{})
	var before, after bool
	require.NoError(t, rt.Run(context.Background(), nil, evalFunc(func(rt *Runtime) {
		before = rt.ShouldStop()
		rt.Stop()
		after = rt.ShouldStop()
	})))
	assert.False(t, before)
	assert.True(t, after)

	// A new run starts without the stop flag.
	require.NoError(t, rt.Run(context.Background(), nil, evalFunc(func(rt *Runtime) {
		assert.False(t, rt.ShouldStop())
	})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rt.Run(ctx, nil, evalFunc(func(rt *Runtime) {
		assert.True(t, rt.ShouldStop())
	}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuntime_EvaluateUsesDataSet(t *testing.T) {
	rt := New(form.Vec2{})
	e := expr.Binary{Op: mustBinary(t, "*"), Left: expr.Reference{ID: 1}, Right: expr.Constant{Value: expr.Int(2)}}

	var got expr.Value
	var err error
	require.NoError(t, rt.Run(context.Background(), expr.MapDataSet{1: expr.Int(21)}, evalFunc(func(rt *Runtime) {
		got, err = rt.Evaluate(e)
	})))
	require.NoError(t, err)
	assert.True(t, got.Equal(expr.Int(42)), "got %s", got)
}

func mustBinary(t *testing.T, name string) *expr.BinaryOperator {
	t.Helper()
	op, ok := expr.DefaultTable().Binary(name)
	require.True(t, ok)
	return op
}

func TestRuntimeError_Unwrap(t *testing.T) {
	err := WrapError(ErrInvalidExpression, 0, expr.ErrTypeMismatch)
	assert.ErrorIs(t, err, ErrInvalidExpression)
	assert.ErrorIs(t, err, expr.ErrTypeMismatch)
	assert.NotErrorIs(t, err, ErrInvalidAngle)
	assert.Contains(t, NewError(ErrUnknownAnchor, 4, "%q", "tip").Error(), "form 4")
}
