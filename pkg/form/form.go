// Package form defines what the runtime needs from a drawable shape: a fixed
// block of words in runtime memory and a small set of capabilities the
// instructions call through.
package form

import (
	"math"
	"sync/atomic"
)

// ID identifies a form across evaluations.
type ID int64

var lastID atomic.Int64

// NewID returns a process-unique form id.
func NewID() ID {
	return ID(lastID.Add(1))
}

// AnchorID names a handle on a form, such as "start" or "center".
type AnchorID string

// Memory is word storage addressed by form and offset. Reads and writes
// outside a declared form report false instead of failing.
type Memory interface {
	Read(id ID, offset int) (uint64, bool)
	Write(id ID, offset int, word uint64) bool
}

// Form is the base capability every shape has.
type Form interface {
	Identifier() ID
	Name() string
	// Kind names the shape. Forms of one kind share a memory layout.
	Kind() string
	// Size is the number of words the form occupies in memory.
	Size() int
	// Init lays the form out inside the box spanned by min and max.
	Init(mem Memory, min, max Vec2) bool
	Anchors() []Anchor
	Outline() Outline
}

// Anchor is a movable handle of a form.
type Anchor interface {
	ID() AnchorID
	Position(mem Memory) (Vec2, bool)
	Move(mem Memory, delta Vec2) bool
}

// Point reads a position.
type Point interface {
	Get(mem Memory) (Vec2, bool)
}

type WritablePoint interface {
	Point
	Set(mem Memory, v Vec2) bool
}

type Length interface {
	Get(mem Memory) (float64, bool)
	Set(mem Memory, v float64) bool
}

type Angle interface {
	Get(mem Memory) (float64, bool)
	Set(mem Memory, v float64) bool
}

// Outline samples the path of a form. t runs from 0 to 1.
type Outline interface {
	Position(mem Memory, t float64) (Vec2, bool)
	Length(mem Memory) (float64, bool)
	Segments(mem Memory) int
}

type Translatable interface {
	Translate(mem Memory, delta Vec2) bool
}

// Rotatable forms turn by angle radians around fix.
type Rotatable interface {
	Rotate(mem Memory, angle float64, fix Vec2) bool
}

// Axis restricts a scale to one direction.
type Axis int

const (
	AxisNone Axis = iota
	AxisHorizontal
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	default:
		return "none"
	}
}

// Scalable forms grow by factor away from fix. Forms that cannot scale along
// a single axis return false for AxisHorizontal and AxisVertical.
type Scalable interface {
	Scale(mem Memory, factor float64, fix Vec2, axis Axis) bool
}

// FindAnchor returns the anchor of f with the given id.
func FindAnchor(f Form, id AnchorID) (Anchor, bool) {
	for _, a := range f.Anchors() {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Vec2 is a point or a displacement in drawing coordinates.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Length() }
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }
func (v Vec2) Lerp(o Vec2, t float64) Vec2 { return v.Add(o.Sub(v).Scale(t)) }

// Rotate turns v by angle radians around the origin.
func (v Vec2) Rotate(angle float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// RotateAround turns v by angle radians around fix.
func (v Vec2) RotateAround(angle float64, fix Vec2) Vec2 {
	return v.Sub(fix).Rotate(angle).Add(fix)
}

// ScaleAround moves v away from fix by factor along axis.
func (v Vec2) ScaleAround(factor float64, fix Vec2, axis Axis) Vec2 {
	d := v.Sub(fix)
	switch axis {
	case AxisHorizontal:
		d.X *= factor
	case AxisVertical:
		d.Y *= factor
	default:
		d = d.Scale(factor)
	}
	return fix.Add(d)
}

// Midpoint returns the point halfway between v and o.
func (v Vec2) Midpoint(o Vec2) Vec2 { return v.Lerp(o, 0.5) }
