package form

import "math"

// FloatWord stores f as a memory word by its IEEE-754 bits.
func FloatWord(f float64) uint64 { return math.Float64bits(f) }

// WordFloat is the inverse of FloatWord.
func WordFloat(w uint64) float64 { return math.Float64frombits(w) }

// ReadFloat reads the word at offset of id as a float64.
func ReadFloat(mem Memory, id ID, offset int) (float64, bool) {
	w, ok := mem.Read(id, offset)
	if !ok {
		return 0, false
	}
	return WordFloat(w), true
}

func WriteFloat(mem Memory, id ID, offset int, f float64) bool {
	return mem.Write(id, offset, FloatWord(f))
}

// StoredPoint is a point kept in two consecutive words of a form.
type StoredPoint struct {
	Form   ID
	Offset int
}

func (p StoredPoint) Get(mem Memory) (Vec2, bool) {
	x, ok := ReadFloat(mem, p.Form, p.Offset)
	if !ok {
		return Vec2{}, false
	}
	y, ok := ReadFloat(mem, p.Form, p.Offset+1)
	if !ok {
		return Vec2{}, false
	}
	return Vec2{x, y}, true
}

func (p StoredPoint) Set(mem Memory, v Vec2) bool {
	return WriteFloat(mem, p.Form, p.Offset, v.X) && WriteFloat(mem, p.Form, p.Offset+1, v.Y)
}

// StoredLength is a length kept in one word. Lengths are never negative.
type StoredLength struct {
	Form   ID
	Offset int
}

func (l StoredLength) Get(mem Memory) (float64, bool) {
	return ReadFloat(mem, l.Form, l.Offset)
}

func (l StoredLength) Set(mem Memory, v float64) bool {
	return WriteFloat(mem, l.Form, l.Offset, math.Abs(v))
}

// StoredAngle is an angle in radians kept in one word, normalized to
// (-π, π].
type StoredAngle struct {
	Form   ID
	Offset int
}

func (a StoredAngle) Get(mem Memory) (float64, bool) {
	return ReadFloat(mem, a.Form, a.Offset)
}

func (a StoredAngle) Set(mem Memory, v float64) bool {
	return WriteFloat(mem, a.Form, a.Offset, NormalizeAngle(v))
}

// NormalizeAngle maps a to (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a <= -math.Pi:
		a += 2 * math.Pi
	case a > math.Pi:
		a -= 2 * math.Pi
	}
	return a
}

// pointAnchor exposes a writable point as an anchor.
type pointAnchor struct {
	id AnchorID
	pt WritablePoint
}

func (a pointAnchor) ID() AnchorID { return a.id }
func (a pointAnchor) Position(mem Memory) (Vec2, bool) { return a.pt.Get(mem) }

func (a pointAnchor) Move(mem Memory, delta Vec2) bool {
	p, ok := a.pt.Get(mem)
	if !ok {
		return false
	}
	return a.pt.Set(mem, p.Add(delta))
}

// TranslatePoints moves every point by delta.
func TranslatePoints(mem Memory, delta Vec2, pts ...WritablePoint) bool {
	return mapPoints(mem, func(v Vec2) Vec2 { return v.Add(delta) }, pts)
}

// RotatePoints turns every point by angle around fix.
func RotatePoints(mem Memory, angle float64, fix Vec2, pts ...WritablePoint) bool {
	return mapPoints(mem, func(v Vec2) Vec2 { return v.RotateAround(angle, fix) }, pts)
}

// ScalePoints moves every point away from fix by factor along axis.
func ScalePoints(mem Memory, factor float64, fix Vec2, axis Axis, pts ...WritablePoint) bool {
	return mapPoints(mem, func(v Vec2) Vec2 { return v.ScaleAround(factor, fix, axis) }, pts)
}

// mapPoints reads all points before writing any so a failed read leaves
// memory untouched.
func mapPoints(mem Memory, f func(Vec2) Vec2, pts []WritablePoint) bool {
	vals := make([]Vec2, len(pts))
	for i, p := range pts {
		v, ok := p.Get(mem)
		if !ok {
			return false
		}
		vals[i] = f(v)
	}
	for i, p := range pts {
		if !p.Set(mem, vals[i]) {
			return false
		}
	}
	return true
}
