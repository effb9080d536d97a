// Package instr holds the instructions of a drawing, the groups that control
// them and the tree they are arranged in.
package instr

import (
	"fmt"

	"reform/pkg/expr"
	"reform/pkg/form"
	"reform/pkg/vm"
)

// Instruction is a single effect on one form. The implementations are
// Create, Translate, Rotate, Scale and Morph.
type Instruction interface {
	isInstruction()
	// Evaluate applies the effect. Problems are reported to rt and the
	// effect is skipped.
	Evaluate(rt *vm.Runtime)
	Target() form.ID
	IsDegenerated() bool
	// MergeWith combines the receiver with a later edit of the same kind on
	// the same form. With force the result takes other's parameters as is.
	MergeWith(other Instruction, force bool) (Instruction, bool)
	Label(names expr.Namer) string
	Analyze(a Analyzer)
}

// Create declares a form and lays it out in a destination box.
type Create struct {
	Form        form.Form
	Destination Destination
}

type Translate struct {
	Form     form.Form
	Distance Distance
}

// Rotate turns a form around a fix point.
type Rotate struct {
	Form     form.Form
	Angle    Angle
	FixPoint Point
}

// Scale grows a form away from a fix point, optionally along one axis.
type Scale struct {
	Form     form.Form
	Factor   Factor
	FixPoint Point
	Axis     form.Axis
}

// Morph moves a single anchor of a form.
type Morph struct {
	Form     form.Form
	Anchor   form.AnchorID
	Distance Distance
}

func (Create) isInstruction()    {}
func (Translate) isInstruction() {}
func (Rotate) isInstruction()    {}
func (Scale) isInstruction()     {}
func (Morph) isInstruction()     {}

func (c Create) Target() form.ID    { return c.Form.Identifier() }
func (t Translate) Target() form.ID { return t.Form.Identifier() }
func (r Rotate) Target() form.ID    { return r.Form.Identifier() }
func (s Scale) Target() form.ID     { return s.Form.Identifier() }
func (m Morph) Target() form.ID     { return m.Form.Identifier() }

// liveForm reports ErrUnknownForm when f is not declared in rt.
func liveForm(rt *vm.Runtime, f form.Form) bool {
	if _, ok := rt.Get(f.Identifier()); !ok {
		rt.ReportError(vm.NewError(vm.ErrUnknownForm, f.Identifier(), "%s is not live", f.Name()))
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func (c Create) Evaluate(rt *vm.Runtime) {
	id := c.Form.Identifier()
	min, max, err := c.Destination.Resolve(rt, id)
	if err != nil {
		rt.ReportError(asKind(vm.ErrInvalidDestination, id, err))
		return
	}
	rt.Declare(c.Form)
	if !c.Form.Init(rt, min, max) {
		rt.ReportError(vm.NewError(vm.ErrInvalidDestination, id, "%s could not be laid out", c.Form.Name()))
	}
}

func (c Create) IsDegenerated() bool { return c.Destination.IsDegenerated() }

func (c Create) MergeWith(other Instruction, force bool) (Instruction, bool) {
	o, ok := other.(Create)
	if !ok || o.Target() != c.Target() {
		return nil, false
	}
	return o, true
}

func (c Create) Label(names expr.Namer) string {
	return fmt.Sprintf("create %s %s", c.Form.Name(), c.Destination.Label(names))
}

func (c Create) Analyze(a Analyzer) {
	a.AnnounceForm(c.Form)
	switch d := c.Destination.(type) {
	case RelativeDestination:
		announcePoints(a, d.From, d.To)
	case FixSizeDestination:
		announcePoints(a, d.Origin)
	}
}

// ---------------------------------------------------------------------------
// Translate
// ---------------------------------------------------------------------------

func (t Translate) Evaluate(rt *vm.Runtime) {
	if !liveForm(rt, t.Form) {
		return
	}
	id := t.Form.Identifier()
	mover, ok := t.Form.(form.Translatable)
	if !ok {
		rt.ReportError(vm.NewError(vm.ErrInvalidDistance, id, "%s cannot be moved", t.Form.Name()))
		return
	}
	delta, err := t.Distance.Resolve(rt, id)
	if err != nil {
		rt.ReportError(asKind(vm.ErrInvalidDistance, id, err))
		return
	}
	if !finite(delta.X, delta.Y) {
		rt.ReportError(vm.NewError(vm.ErrInvalidDistance, id, "%s is not finite", formatVec(delta)))
		return
	}
	if !mover.Translate(rt, delta) {
		rt.ReportError(vm.NewError(vm.ErrInvalidDistance, id, "%s could not be moved", t.Form.Name()))
	}
}

func (t Translate) IsDegenerated() bool { return t.Distance.IsZero() }

func (t Translate) MergeWith(other Instruction, force bool) (Instruction, bool) {
	o, ok := other.(Translate)
	if !ok || o.Target() != t.Target() {
		return nil, false
	}
	if !force {
		a, aok := t.Distance.(ConstantDistance)
		b, bok := o.Distance.(ConstantDistance)
		if aok && bok {
			return Translate{Form: t.Form, Distance: ConstantDistance{Delta: a.Delta.Add(b.Delta)}}, true
		}
	}
	return o, true
}

func (t Translate) Label(names expr.Namer) string {
	return fmt.Sprintf("move %s by %s", t.Form.Name(), t.Distance.Label(names))
}

func (t Translate) Analyze(a Analyzer) {
	a.AnnounceForm(t.Form)
	analyzeDistance(a, t.Distance)
}

func analyzeDistance(a Analyzer, d Distance) {
	switch d := d.(type) {
	case RelativeDistance:
		announcePoints(a, d.From, d.To)
	case ExprDistance:
		announceExpressions(a, d.X, d.Y)
	}
}

// ---------------------------------------------------------------------------
// Rotate
// ---------------------------------------------------------------------------

func (r Rotate) Evaluate(rt *vm.Runtime) {
	if !liveForm(rt, r.Form) {
		return
	}
	id := r.Form.Identifier()
	rot, ok := r.Form.(form.Rotatable)
	if !ok {
		rt.ReportError(vm.NewError(vm.ErrInvalidAngle, id, "%s cannot be rotated", r.Form.Name()))
		return
	}
	angle, err := r.Angle.Resolve(rt, id)
	if err != nil {
		rt.ReportError(asKind(vm.ErrInvalidAngle, id, err))
		return
	}
	if !finite(angle) {
		rt.ReportError(vm.NewError(vm.ErrInvalidAngle, id, "angle is not finite"))
		return
	}
	fix, err := r.FixPoint.Resolve(rt)
	if err != nil {
		rt.ReportError(asKind(vm.ErrInvalidFixPoint, id, err))
		return
	}
	if !rot.Rotate(rt, angle, fix) {
		rt.ReportError(vm.NewError(vm.ErrInvalidAngle, id, "%s could not be rotated", r.Form.Name()))
	}
}

func (r Rotate) IsDegenerated() bool { return r.Angle.IsZero() }

func (r Rotate) MergeWith(other Instruction, force bool) (Instruction, bool) {
	o, ok := other.(Rotate)
	if !ok || o.Target() != r.Target() {
		return nil, false
	}
	if force {
		return o, true
	}
	if !samePoint(r.FixPoint, o.FixPoint) {
		return nil, false
	}
	a, aok := r.Angle.(ConstantAngle)
	b, bok := o.Angle.(ConstantAngle)
	if aok && bok {
		return Rotate{Form: r.Form, Angle: ConstantAngle{Radians: a.Radians + b.Radians}, FixPoint: r.FixPoint}, true
	}
	return o, true
}

func (r Rotate) Label(names expr.Namer) string {
	return fmt.Sprintf("rotate %s by %s around %s", r.Form.Name(), r.Angle.Label(names), r.FixPoint.Label(names))
}

func (r Rotate) Analyze(a Analyzer) {
	a.AnnounceForm(r.Form)
	announcePoints(a, r.FixPoint)
	switch an := r.Angle.(type) {
	case RelativeAngle:
		announcePoints(a, an.Center, an.From, an.To)
	case ExprAngle:
		announceExpressions(a, an.Degrees)
	}
}

// ---------------------------------------------------------------------------
// Scale
// ---------------------------------------------------------------------------

func (s Scale) Evaluate(rt *vm.Runtime) {
	if !liveForm(rt, s.Form) {
		return
	}
	id := s.Form.Identifier()
	sc, ok := s.Form.(form.Scalable)
	if !ok {
		rt.ReportError(vm.NewError(vm.ErrInvalidFactor, id, "%s cannot be scaled", s.Form.Name()))
		return
	}
	if s.Axis < form.AxisNone || s.Axis > form.AxisVertical {
		rt.ReportError(vm.NewError(vm.ErrInvalidAxis, id, "axis %d", s.Axis))
		return
	}
	factor, err := s.Factor.Resolve(rt, id)
	if err != nil {
		rt.ReportError(asKind(vm.ErrInvalidFactor, id, err))
		return
	}
	if !finite(factor) || factor == 0 {
		rt.ReportError(vm.NewError(vm.ErrInvalidFactor, id, "factor %g", factor))
		return
	}
	fix, err := s.FixPoint.Resolve(rt)
	if err != nil {
		rt.ReportError(asKind(vm.ErrInvalidFixPoint, id, err))
		return
	}
	if !sc.Scale(rt, factor, fix, s.Axis) {
		if s.Axis != form.AxisNone {
			rt.ReportError(vm.NewError(vm.ErrInvalidAxis, id, "%s cannot be scaled %s", s.Form.Name(), s.Axis))
			return
		}
		rt.ReportError(vm.NewError(vm.ErrInvalidFactor, id, "%s could not be scaled", s.Form.Name()))
	}
}

func (s Scale) IsDegenerated() bool { return s.Factor.IsOne() }

func (s Scale) MergeWith(other Instruction, force bool) (Instruction, bool) {
	o, ok := other.(Scale)
	if !ok || o.Target() != s.Target() {
		return nil, false
	}
	if force {
		return o, true
	}
	if !samePoint(s.FixPoint, o.FixPoint) || s.Axis != o.Axis {
		return nil, false
	}
	a, aok := s.Factor.(ConstantFactor)
	b, bok := o.Factor.(ConstantFactor)
	if aok && bok {
		return Scale{Form: s.Form, Factor: ConstantFactor{Value: a.Value * b.Value}, FixPoint: s.FixPoint, Axis: s.Axis}, true
	}
	return o, true
}

func (s Scale) Label(names expr.Namer) string {
	label := fmt.Sprintf("scale %s by %s around %s", s.Form.Name(), s.Factor.Label(names), s.FixPoint.Label(names))
	if s.Axis != form.AxisNone {
		label += " " + s.Axis.String()
	}
	return label
}

func (s Scale) Analyze(a Analyzer) {
	a.AnnounceForm(s.Form)
	announcePoints(a, s.FixPoint)
	switch f := s.Factor.(type) {
	case RelativeFactor:
		announcePoints(a, f.Center, f.From, f.To)
	case ExprFactor:
		announceExpressions(a, f.Expr)
	}
}

// ---------------------------------------------------------------------------
// Morph
// ---------------------------------------------------------------------------

func (m Morph) Evaluate(rt *vm.Runtime) {
	if !liveForm(rt, m.Form) {
		return
	}
	id := m.Form.Identifier()
	anchor, ok := form.FindAnchor(m.Form, m.Anchor)
	if !ok {
		rt.ReportError(vm.NewError(vm.ErrUnknownAnchor, id, "%s has no anchor %q", m.Form.Name(), m.Anchor))
		return
	}
	delta, err := m.Distance.Resolve(rt, id)
	if err != nil {
		rt.ReportError(asKind(vm.ErrInvalidDistance, id, err))
		return
	}
	if !finite(delta.X, delta.Y) {
		rt.ReportError(vm.NewError(vm.ErrInvalidDistance, id, "%s is not finite", formatVec(delta)))
		return
	}
	if !anchor.Move(rt, delta) {
		rt.ReportError(vm.NewError(vm.ErrUnknownAnchor, id, "%s.%s could not be moved", m.Form.Name(), m.Anchor))
	}
}

func (m Morph) IsDegenerated() bool { return m.Distance.IsZero() }

func (m Morph) MergeWith(other Instruction, force bool) (Instruction, bool) {
	o, ok := other.(Morph)
	if !ok || o.Target() != m.Target() || o.Anchor != m.Anchor {
		return nil, false
	}
	if !force {
		a, aok := m.Distance.(ConstantDistance)
		b, bok := o.Distance.(ConstantDistance)
		if aok && bok {
			return Morph{Form: m.Form, Anchor: m.Anchor, Distance: ConstantDistance{Delta: a.Delta.Add(b.Delta)}}, true
		}
	}
	return o, true
}

func (m Morph) Label(names expr.Namer) string {
	return fmt.Sprintf("morph %s.%s by %s", m.Form.Name(), m.Anchor, m.Distance.Label(names))
}

func (m Morph) Analyze(a Analyzer) {
	a.AnnounceForm(m.Form)
	analyzeDistance(a, m.Distance)
}

// asKind keeps runtime errors that already carry a kind, such as an unknown
// anchor, and files everything else under kind.
func asKind(kind error, id form.ID, err error) error {
	if _, ok := err.(*vm.RuntimeError); ok {
		return err
	}
	return vm.WrapError(kind, id, err)
}
