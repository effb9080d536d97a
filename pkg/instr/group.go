package instr

import (
	"fmt"
	"math"
	"strings"

	"reform/pkg/expr"
	"reform/pkg/form"
	"reform/pkg/vm"
)

// GroupInstruction controls whether and how often the children of a group
// node run. Every entry into the children is a separate runtime scope.
type GroupInstruction interface {
	isGroup()
	// Evaluate calls body zero or more times, each inside rt.Scoped.
	Evaluate(rt *vm.Runtime, body func())
	IsDegenerated() bool
	Label(names expr.Namer) string
	Analyze(a Analyzer)
}

// Sequence runs its children once. It is the group of a tree's root.
type Sequence struct {
	Name string
}

// ForLoop runs its children Count times.
type ForLoop struct {
	Count expr.Expression
}

// IfCondition runs its children when Condition is true.
type IfCondition struct {
	Condition expr.Expression
}

// FormIterator runs its children once per form, with Proxy standing in for
// the current form. Changes to Proxy are copied back after each pass.
type FormIterator struct {
	Proxy form.Form
	Forms []form.ID
}

func (Sequence) isGroup()     {}
func (ForLoop) isGroup()      {}
func (IfCondition) isGroup()  {}
func (FormIterator) isGroup() {}

func (s Sequence) Evaluate(rt *vm.Runtime, body func()) { rt.Scoped(body) }
func (Sequence) IsDegenerated() bool                    { return false }
func (Sequence) Analyze(Analyzer)                       {}

func (s Sequence) Label(expr.Namer) string {
	if s.Name == "" {
		return "sequence"
	}
	return s.Name
}

// control evaluates a controlling expression. Failures are reported and
// leave ok false.
func control(rt *vm.Runtime, e expr.Expression, want string, accept func(expr.Value) bool) (expr.Value, bool) {
	if e == nil {
		rt.ReportError(vm.NewError(vm.ErrInvalidExpression, 0, "missing %s", want))
		return expr.Value{}, false
	}
	v, err := rt.Evaluate(e)
	if err != nil {
		rt.ReportError(vm.WrapError(vm.ErrInvalidExpression, 0, err))
		return expr.Value{}, false
	}
	if !accept(v) {
		rt.ReportError(vm.WrapError(vm.ErrInvalidExpression, 0,
			&expr.EvaluationError{Kind: expr.ErrTypeMismatch, Detail: fmt.Sprintf("want %s, got %s", want, v.Kind())}))
		return expr.Value{}, false
	}
	return v, true
}

func (l ForLoop) Evaluate(rt *vm.Runtime, body func()) {
	v, ok := control(rt, l.Count, "a number", func(v expr.Value) bool {
		return v.Kind() == expr.KindInt || (v.Kind() == expr.KindDouble && finite(v.AsDouble()))
	})
	if !ok {
		return
	}
	n := v.AsInt()
	if v.Kind() == expr.KindDouble {
		n = expr.ClampInt(math.Floor(v.AsDouble()))
	}
	for i := 0; i < n; i++ {
		if rt.ShouldStop() {
			return
		}
		rt.Scoped(body)
	}
}

func (l ForLoop) IsDegenerated() bool { return l.Count == nil }

func (l ForLoop) Label(names expr.Namer) string {
	if l.Count == nil {
		return "repeat ?"
	}
	return "repeat " + l.Count.Format(names) + " times"
}

func (l ForLoop) Analyze(a Analyzer) {
	if l.Count != nil {
		announceExpressions(a, l.Count)
	}
}

func (c IfCondition) Evaluate(rt *vm.Runtime, body func()) {
	v, ok := control(rt, c.Condition, "a bool", func(v expr.Value) bool { return v.Kind() == expr.KindBool })
	if ok && v.AsBool() {
		rt.Scoped(body)
	}
}

func (c IfCondition) IsDegenerated() bool { return c.Condition == nil }

func (c IfCondition) Label(names expr.Namer) string {
	if c.Condition == nil {
		return "if ?"
	}
	return "if " + c.Condition.Format(names)
}

func (c IfCondition) Analyze(a Analyzer) {
	if c.Condition != nil {
		announceExpressions(a, c.Condition)
	}
}

func (it FormIterator) Evaluate(rt *vm.Runtime, body func()) {
	if it.Proxy == nil {
		rt.ReportError(vm.NewError(vm.ErrUnknownForm, 0, "iterator has no proxy"))
		return
	}
	for _, id := range it.Forms {
		if rt.ShouldStop() {
			return
		}
		f, ok := rt.Get(id)
		if !ok {
			rt.ReportError(vm.NewError(vm.ErrUnknownForm, id, "form %d is not live", id))
			continue
		}
		if f.Kind() != it.Proxy.Kind() || f.Size() != it.Proxy.Size() {
			rt.ReportError(vm.NewError(vm.ErrUnknownForm, id, "%s is not the kind of form %s stands for", f.Name(), it.Proxy.Name()))
			continue
		}
		rt.Scoped(func() {
			rt.Declare(it.Proxy)
			copyWords(rt, f.Identifier(), it.Proxy.Identifier(), f.Size())
			body()
			copyWords(rt, it.Proxy.Identifier(), f.Identifier(), f.Size())
		})
	}
}

func copyWords(rt *vm.Runtime, from, to form.ID, n int) {
	for i := range n {
		if w, ok := rt.Read(from, i); ok {
			rt.Write(to, i, w)
		}
	}
}

func (it FormIterator) IsDegenerated() bool { return it.Proxy == nil || len(it.Forms) == 0 }

func (it FormIterator) Label(expr.Namer) string {
	name := "?"
	if it.Proxy != nil {
		name = it.Proxy.Name()
	}
	ids := make([]string, len(it.Forms))
	for i, id := range it.Forms {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("for each %s in [%s]", name, strings.Join(ids, ", "))
}

func (it FormIterator) Analyze(a Analyzer) {
	if it.Proxy != nil {
		a.AnnounceForm(it.Proxy)
	}
}
