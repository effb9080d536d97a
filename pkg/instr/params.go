package instr

import (
	"fmt"
	"math"

	"reform/pkg/expr"
	"reform/pkg/form"
	"reform/pkg/vm"
)

// Point is where an instruction takes a position from.
type Point interface {
	isPoint()
	Resolve(rt *vm.Runtime) (form.Vec2, error)
	Label(names expr.Namer) string
}

// ConstantPoint is a fixed position.
type ConstantPoint struct {
	At form.Vec2
}

// AnchorPoint is the current position of an anchor of a live form.
type AnchorPoint struct {
	Form   form.Form
	Anchor form.AnchorID
}

func (ConstantPoint) isPoint() {}
func (AnchorPoint) isPoint()   {}

func (p ConstantPoint) Resolve(*vm.Runtime) (form.Vec2, error) { return p.At, nil }

func (p AnchorPoint) Resolve(rt *vm.Runtime) (form.Vec2, error) {
	id := p.Form.Identifier()
	if _, ok := rt.Get(id); !ok {
		return form.Vec2{}, vm.NewError(vm.ErrUnknownForm, id, "%s is not live", p.Form.Name())
	}
	a, ok := form.FindAnchor(p.Form, p.Anchor)
	if !ok {
		return form.Vec2{}, vm.NewError(vm.ErrUnknownAnchor, id, "%s has no anchor %q", p.Form.Name(), p.Anchor)
	}
	v, ok := a.Position(rt)
	if !ok {
		return form.Vec2{}, vm.NewError(vm.ErrUnknownAnchor, id, "%s.%s is unavailable", p.Form.Name(), p.Anchor)
	}
	return v, nil
}

func (p ConstantPoint) Label(expr.Namer) string { return formatVec(p.At) }
func (p AnchorPoint) Label(expr.Namer) string   { return fmt.Sprintf("%s.%s", p.Form.Name(), p.Anchor) }

func samePoint(a, b Point) bool {
	switch pa := a.(type) {
	case ConstantPoint:
		pb, ok := b.(ConstantPoint)
		return ok && pa.At == pb.At
	case AnchorPoint:
		pb, ok := b.(AnchorPoint)
		return ok && pa.Form.Identifier() == pb.Form.Identifier() && pa.Anchor == pb.Anchor
	}
	return false
}

func formatVec(v form.Vec2) string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

func finite(v ...float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// evalNumber evaluates e and requires a numeric result.
func evalNumber(rt *vm.Runtime, e expr.Expression, target form.ID) (float64, error) {
	v, err := rt.Evaluate(e)
	if err != nil {
		return 0, vm.WrapError(vm.ErrInvalidExpression, target, err)
	}
	if !v.IsNumeric() {
		return 0, vm.WrapError(vm.ErrInvalidExpression, target,
			&expr.EvaluationError{Kind: expr.ErrTypeMismatch, Detail: fmt.Sprintf("want a number, got %s", v.Kind())})
	}
	return v.AsDouble(), nil
}

func announceExpressions(a Analyzer, es ...expr.Expression) {
	for _, e := range es {
		for _, id := range expr.References(e) {
			a.AnnounceDependency(id)
		}
	}
}

func announcePoints(a Analyzer, ps ...Point) {
	for _, p := range ps {
		if ap, ok := p.(AnchorPoint); ok {
			a.AnnounceForm(ap.Form)
		}
	}
}

// ---------------------------------------------------------------------------
// Distances
// ---------------------------------------------------------------------------

// Distance is a displacement.
type Distance interface {
	isDistance()
	Resolve(rt *vm.Runtime, target form.ID) (form.Vec2, error)
	Label(names expr.Namer) string
	IsZero() bool
}

type ConstantDistance struct {
	Delta form.Vec2
}

// RelativeDistance is the displacement from one point to another.
type RelativeDistance struct {
	From, To Point
}

// ExprDistance computes each component from the sheet.
type ExprDistance struct {
	X, Y expr.Expression
}

func (ConstantDistance) isDistance() {}
func (RelativeDistance) isDistance() {}
func (ExprDistance) isDistance()     {}

func (d ConstantDistance) Resolve(*vm.Runtime, form.ID) (form.Vec2, error) { return d.Delta, nil }

func (d RelativeDistance) Resolve(rt *vm.Runtime, _ form.ID) (form.Vec2, error) {
	from, err := d.From.Resolve(rt)
	if err != nil {
		return form.Vec2{}, err
	}
	to, err := d.To.Resolve(rt)
	if err != nil {
		return form.Vec2{}, err
	}
	return to.Sub(from), nil
}

func (d ExprDistance) Resolve(rt *vm.Runtime, target form.ID) (form.Vec2, error) {
	x, err := evalNumber(rt, d.X, target)
	if err != nil {
		return form.Vec2{}, err
	}
	y, err := evalNumber(rt, d.Y, target)
	if err != nil {
		return form.Vec2{}, err
	}
	return form.Vec2{X: x, Y: y}, nil
}

func (d ConstantDistance) Label(expr.Namer) string { return formatVec(d.Delta) }
func (d RelativeDistance) Label(names expr.Namer) string {
	return d.From.Label(names) + " -> " + d.To.Label(names)
}
func (d ExprDistance) Label(names expr.Namer) string {
	return "(" + d.X.Format(names) + ", " + d.Y.Format(names) + ")"
}

func (d ConstantDistance) IsZero() bool { return d.Delta.IsZero() }
func (d RelativeDistance) IsZero() bool { return samePoint(d.From, d.To) }
func (d ExprDistance) IsZero() bool     { return false }

// ---------------------------------------------------------------------------
// Angles
// ---------------------------------------------------------------------------

// Angle is a rotation in radians.
type Angle interface {
	isAngle()
	Resolve(rt *vm.Runtime, target form.ID) (float64, error)
	Label(names expr.Namer) string
	IsZero() bool
}

type ConstantAngle struct {
	Radians float64
}

// RelativeAngle is the angle swept from From to To around Center.
type RelativeAngle struct {
	Center, From, To Point
}

// ExprAngle computes an angle in degrees from the sheet.
type ExprAngle struct {
	Degrees expr.Expression
}

func (ConstantAngle) isAngle() {}
func (RelativeAngle) isAngle() {}
func (ExprAngle) isAngle()     {}

func (a ConstantAngle) Resolve(*vm.Runtime, form.ID) (float64, error) { return a.Radians, nil }

func (a RelativeAngle) Resolve(rt *vm.Runtime, _ form.ID) (float64, error) {
	c, err := a.Center.Resolve(rt)
	if err != nil {
		return 0, err
	}
	from, err := a.From.Resolve(rt)
	if err != nil {
		return 0, err
	}
	to, err := a.To.Resolve(rt)
	if err != nil {
		return 0, err
	}
	return to.Sub(c).Angle() - from.Sub(c).Angle(), nil
}

func (a ExprAngle) Resolve(rt *vm.Runtime, target form.ID) (float64, error) {
	deg, err := evalNumber(rt, a.Degrees, target)
	if err != nil {
		return 0, err
	}
	return deg * math.Pi / 180, nil
}

func (a ConstantAngle) Label(expr.Namer) string {
	return fmt.Sprintf("%g°", a.Radians*180/math.Pi)
}
func (a RelativeAngle) Label(names expr.Namer) string {
	return fmt.Sprintf("%s -> %s around %s", a.From.Label(names), a.To.Label(names), a.Center.Label(names))
}
func (a ExprAngle) Label(names expr.Namer) string { return a.Degrees.Format(names) + "°" }

func (a ConstantAngle) IsZero() bool { return math.Mod(a.Radians, 2*math.Pi) == 0 }
func (a RelativeAngle) IsZero() bool { return samePoint(a.From, a.To) }
func (a ExprAngle) IsZero() bool     { return false }

// ---------------------------------------------------------------------------
// Factors
// ---------------------------------------------------------------------------

// Factor is a scale multiplier.
type Factor interface {
	isFactor()
	Resolve(rt *vm.Runtime, target form.ID) (float64, error)
	Label(names expr.Namer) string
	IsOne() bool
}

type ConstantFactor struct {
	Value float64
}

// RelativeFactor is the ratio of the distances of To and From to Center.
type RelativeFactor struct {
	Center, From, To Point
}

type ExprFactor struct {
	Expr expr.Expression
}

func (ConstantFactor) isFactor() {}
func (RelativeFactor) isFactor() {}
func (ExprFactor) isFactor()     {}

func (f ConstantFactor) Resolve(*vm.Runtime, form.ID) (float64, error) { return f.Value, nil }

func (f RelativeFactor) Resolve(rt *vm.Runtime, target form.ID) (float64, error) {
	c, err := f.Center.Resolve(rt)
	if err != nil {
		return 0, err
	}
	from, err := f.From.Resolve(rt)
	if err != nil {
		return 0, err
	}
	to, err := f.To.Resolve(rt)
	if err != nil {
		return 0, err
	}
	d := from.Dist(c)
	if d == 0 {
		return 0, vm.NewError(vm.ErrInvalidFactor, target, "reference point lies on the center")
	}
	return to.Dist(c) / d, nil
}

func (f ExprFactor) Resolve(rt *vm.Runtime, target form.ID) (float64, error) {
	return evalNumber(rt, f.Expr, target)
}

func (f ConstantFactor) Label(expr.Namer) string { return fmt.Sprintf("%g", f.Value) }
func (f RelativeFactor) Label(names expr.Namer) string {
	return fmt.Sprintf("%s -> %s around %s", f.From.Label(names), f.To.Label(names), f.Center.Label(names))
}
func (f ExprFactor) Label(names expr.Namer) string { return f.Expr.Format(names) }

func (f ConstantFactor) IsOne() bool { return f.Value == 1 }
func (f RelativeFactor) IsOne() bool { return samePoint(f.From, f.To) }
func (f ExprFactor) IsOne() bool     { return false }

// ---------------------------------------------------------------------------
// Destinations
// ---------------------------------------------------------------------------

// Alignment says how a destination's reference point relates to the box.
type Alignment int

const (
	// Leading puts the reference point at the minimum corner.
	Leading Alignment = iota
	// Centered puts the reference point at the center of the box.
	Centered
)

func (a Alignment) String() string {
	if a == Centered {
		return "centered"
	}
	return "leading"
}

// Destination is the box a created form is laid out in.
type Destination interface {
	isDestination()
	Resolve(rt *vm.Runtime, target form.ID) (min, max form.Vec2, err error)
	Label(names expr.Namer) string
	IsDegenerated() bool
}

// RelativeDestination spans the box from From to To. When centered, From is
// the center and To a corner.
type RelativeDestination struct {
	From, To Point
	Align    Alignment
}

// FixSizeDestination is a box of constant size at Origin.
type FixSizeDestination struct {
	Origin Point
	Size   form.Vec2
	Align  Alignment
}

func (RelativeDestination) isDestination() {}
func (FixSizeDestination) isDestination()  {}

func (d RelativeDestination) Resolve(rt *vm.Runtime, target form.ID) (form.Vec2, form.Vec2, error) {
	from, err := d.From.Resolve(rt)
	if err != nil {
		return form.Vec2{}, form.Vec2{}, err
	}
	to, err := d.To.Resolve(rt)
	if err != nil {
		return form.Vec2{}, form.Vec2{}, err
	}
	if d.Align == Centered {
		from = from.Scale(2).Sub(to)
	}
	return checkBox(from, to, target)
}

func (d FixSizeDestination) Resolve(rt *vm.Runtime, target form.ID) (form.Vec2, form.Vec2, error) {
	o, err := d.Origin.Resolve(rt)
	if err != nil {
		return form.Vec2{}, form.Vec2{}, err
	}
	if d.Align == Centered {
		o = o.Sub(d.Size.Scale(0.5))
	}
	return checkBox(o, o.Add(d.Size), target)
}

func checkBox(min, max form.Vec2, target form.ID) (form.Vec2, form.Vec2, error) {
	if !finite(min.X, min.Y, max.X, max.Y) {
		return form.Vec2{}, form.Vec2{}, vm.NewError(vm.ErrInvalidDestination, target, "box %s-%s is not finite", formatVec(min), formatVec(max))
	}
	return min, max, nil
}

func (d RelativeDestination) Label(names expr.Namer) string {
	return fmt.Sprintf("from %s to %s (%s)", d.From.Label(names), d.To.Label(names), d.Align)
}

func (d FixSizeDestination) Label(names expr.Namer) string {
	return fmt.Sprintf("at %s size %s (%s)", d.Origin.Label(names), formatVec(d.Size), d.Align)
}

func (d RelativeDestination) IsDegenerated() bool { return samePoint(d.From, d.To) }
func (d FixSizeDestination) IsDegenerated() bool  { return d.Size.IsZero() }
