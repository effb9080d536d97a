package vm

import (
	"context"
	"sync/atomic"

	"reform/pkg/expr"
	"reform/pkg/form"
)

// Evaluable is anything the runtime can execute, typically a node of an
// instruction tree.
type Evaluable interface {
	Evaluate(rt *Runtime)
}

// Runtime executes one evaluation at a time. Apart from Stop and
// Running, its methods must only be called from the goroutine inside Run.
type Runtime struct {
	canvas    form.Vec2
	listeners []Listener

	stack     *Stack
	executing []Evaluable
	data      expr.DataSet
	ctx       context.Context

	running atomic.Bool
	stop    atomic.Bool
}

// New returns an idle runtime for a canvas of the given size.
func New(canvas form.Vec2, listeners ...Listener) *Runtime {
	return &Runtime{
		canvas:    canvas,
		listeners: listeners,
		stack:     NewStack(),
		ctx:       context.Background(),
	}
}

// AddListener registers l for future runs.
func (rt *Runtime) AddListener(l Listener) {
	rt.listeners = append(rt.listeners, l)
}

// Run evaluates root against ds inside a fresh root scope. Forms declared
// during the run are released when it ends. Run returns ErrAlreadyRunning if
// another run is in progress and ctx.Err() if ctx ended during the run.
func (rt *Runtime) Run(ctx context.Context, ds expr.DataSet, root Evaluable) error {
	if !rt.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer rt.running.Store(false)

	rt.stop.Store(false)
	rt.ctx = ctx
	rt.data = ds
	rt.stack = NewStack()
	rt.executing = rt.executing[:0]

	for _, l := range rt.listeners {
		l.BeginEvaluation(rt.canvas)
	}
	rt.Scoped(func() {
		if root != nil {
			root.Evaluate(rt)
		}
	})
	for _, l := range rt.listeners {
		l.FinishEvaluation()
	}
	return ctx.Err()
}

// Running reports whether a run is in progress.
func (rt *Runtime) Running() bool { return rt.running.Load() }

// Scoped runs body in a new frame. When body returns, listeners see the
// frame's forms and then the forms are released.
func (rt *Runtime) Scoped(body func()) {
	rt.stack.PushFrame()
	defer func() {
		if forms := rt.stack.FrameForms(); len(forms) > 0 {
			for _, l := range rt.listeners {
				l.ExitScope(forms)
			}
		}
		rt.stack.PopFrame()
	}()
	body()
}

// Declare makes f live in the current frame. It reports false when f was
// already live.
func (rt *Runtime) Declare(f form.Form) bool {
	ok, err := rt.stack.Declare(f)
	if err != nil {
		rt.ReportError(err)
	}
	return ok
}

func (rt *Runtime) Get(id form.ID) (form.Form, bool) { return rt.stack.Get(id) }

func (rt *Runtime) Read(id form.ID, offset int) (uint64, bool) {
	return rt.stack.Read(id, offset)
}

func (rt *Runtime) Write(id form.ID, offset int, word uint64) bool {
	return rt.stack.Write(id, offset, word)
}

// Forms returns the live forms in declaration order.
func (rt *Runtime) Forms() []form.Form { return rt.stack.Forms() }

// Eval marks n as executing while body runs, then notifies listeners.
func (rt *Runtime) Eval(n Evaluable, body func()) {
	rt.executing = append(rt.executing, n)
	defer func() { rt.executing = rt.executing[:len(rt.executing)-1] }()
	body()
	for _, l := range rt.listeners {
		l.DidEval(n)
	}
}

// Current returns the innermost executing evaluable.
func (rt *Runtime) Current() Evaluable {
	if len(rt.executing) == 0 {
		return nil
	}
	return rt.executing[len(rt.executing)-1]
}

// ReportError hands err to the listeners, attributed to the innermost
// executing evaluable. Evaluation continues.
func (rt *Runtime) ReportError(err error) {
	if err == nil {
		return
	}
	n := rt.Current()
	for _, l := range rt.listeners {
		l.ErrorTriggered(err, n)
	}
}

// Stop asks the current run to skip everything not yet started. It is safe
// to call from any goroutine.
func (rt *Runtime) Stop() { rt.stop.Store(true) }

// ShouldStop is consulted between siblings and loop iterations.
func (rt *Runtime) ShouldStop() bool {
	return rt.stop.Load() || rt.ctx.Err() != nil
}

// DataSet is the solved sheet of the current run.
func (rt *Runtime) DataSet() expr.DataSet { return rt.data }

// Evaluate evaluates e against the current data set.
func (rt *Runtime) Evaluate(e expr.Expression) (expr.Value, error) {
	return expr.Evaluate(e, rt.data)
}

// Size is the canvas size handed to listeners.
func (rt *Runtime) Size() form.Vec2 { return rt.canvas }

// Words is the number of words allocated right now.
func (rt *Runtime) Words() int { return rt.stack.Size() }

// Depth is the number of open scopes.
func (rt *Runtime) Depth() int { return rt.stack.Depth() }
