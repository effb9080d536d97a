package form

import "math"

// Anchor ids of the built-in shapes.
const (
	AnchorStart       AnchorID = "start"
	AnchorEnd         AnchorID = "end"
	AnchorCenter      AnchorID = "center"
	AnchorTopLeft     AnchorID = "topLeft"
	AnchorTopRight    AnchorID = "topRight"
	AnchorBottomLeft  AnchorID = "bottomLeft"
	AnchorBottomRight AnchorID = "bottomRight"
	AnchorEdge        AnchorID = "edge"
)

// funcAnchor is an anchor whose position is derived from other attributes.
type funcAnchor struct {
	id   AnchorID
	get  func(mem Memory) (Vec2, bool)
	move func(mem Memory, delta Vec2) bool
}

func (a funcAnchor) ID() AnchorID { return a.id }
func (a funcAnchor) Position(mem Memory) (Vec2, bool) { return a.get(mem) }
func (a funcAnchor) Move(mem Memory, delta Vec2) bool { return a.move(mem, delta) }

// ---------------------------------------------------------------------------
// Line
// ---------------------------------------------------------------------------

// Line is a segment between two points. Words: start.x start.y end.x end.y.
type Line struct {
	id   ID
	name string
}

func NewLine(name string) *Line { return &Line{id: NewID(), name: name} }

func (l *Line) Identifier() ID { return l.id }
func (l *Line) Name() string { return l.name }
func (l *Line) Kind() string { return "line" }
func (l *Line) Size() int { return 4 }

func (l *Line) Start() StoredPoint { return StoredPoint{Form: l.id, Offset: 0} }
func (l *Line) End() StoredPoint { return StoredPoint{Form: l.id, Offset: 2} }

func (l *Line) Init(mem Memory, min, max Vec2) bool {
	return l.Start().Set(mem, min) && l.End().Set(mem, max)
}

func (l *Line) Anchors() []Anchor {
	return []Anchor{
		pointAnchor{id: AnchorStart, pt: l.Start()},
		pointAnchor{id: AnchorEnd, pt: l.End()},
		funcAnchor{
			id: AnchorCenter,
			get: func(mem Memory) (Vec2, bool) {
				a, ok1 := l.Start().Get(mem)
				b, ok2 := l.End().Get(mem)
				return a.Midpoint(b), ok1 && ok2
			},
			move: func(mem Memory, delta Vec2) bool { return l.Translate(mem, delta) },
		},
	}
}

func (l *Line) Outline() Outline { return l }

func (l *Line) Position(mem Memory, t float64) (Vec2, bool) {
	a, ok1 := l.Start().Get(mem)
	b, ok2 := l.End().Get(mem)
	return a.Lerp(b, t), ok1 && ok2
}

func (l *Line) Length(mem Memory) (float64, bool) {
	a, ok1 := l.Start().Get(mem)
	b, ok2 := l.End().Get(mem)
	return a.Dist(b), ok1 && ok2
}

func (l *Line) Segments(Memory) int { return 1 }

func (l *Line) Translate(mem Memory, delta Vec2) bool {
	return TranslatePoints(mem, delta, l.Start(), l.End())
}

func (l *Line) Rotate(mem Memory, angle float64, fix Vec2) bool {
	return RotatePoints(mem, angle, fix, l.Start(), l.End())
}

func (l *Line) Scale(mem Memory, factor float64, fix Vec2, axis Axis) bool {
	return ScalePoints(mem, factor, fix, axis, l.Start(), l.End())
}

// ---------------------------------------------------------------------------
// Rectangle
// ---------------------------------------------------------------------------

// Rectangle is a possibly rotated rectangle. Words: center.x center.y width
// height angle.
type Rectangle struct {
	id   ID
	name string
}

func NewRectangle(name string) *Rectangle { return &Rectangle{id: NewID(), name: name} }

func (r *Rectangle) Identifier() ID { return r.id }
func (r *Rectangle) Name() string { return r.name }
func (r *Rectangle) Kind() string { return "rectangle" }
func (r *Rectangle) Size() int { return 5 }

func (r *Rectangle) Center() StoredPoint { return StoredPoint{Form: r.id, Offset: 0} }
func (r *Rectangle) Width() StoredLength { return StoredLength{Form: r.id, Offset: 2} }
func (r *Rectangle) Height() StoredLength { return StoredLength{Form: r.id, Offset: 3} }
func (r *Rectangle) Angle() StoredAngle { return StoredAngle{Form: r.id, Offset: 4} }

func (r *Rectangle) Init(mem Memory, min, max Vec2) bool {
	return r.Center().Set(mem, min.Midpoint(max)) &&
		r.Width().Set(mem, max.X-min.X) &&
		r.Height().Set(mem, max.Y-min.Y) &&
		r.Angle().Set(mem, 0)
}

type rectState struct {
	center        Vec2
	width, height float64
	angle         float64
}

func (r *Rectangle) load(mem Memory) (rectState, bool) {
	c, ok1 := r.Center().Get(mem)
	w, ok2 := r.Width().Get(mem)
	h, ok3 := r.Height().Get(mem)
	a, ok4 := r.Angle().Get(mem)
	return rectState{c, w, h, a}, ok1 && ok2 && ok3 && ok4
}

func (r *Rectangle) store(mem Memory, s rectState) bool {
	return r.Center().Set(mem, s.center) &&
		r.Width().Set(mem, s.width) &&
		r.Height().Set(mem, s.height) &&
		r.Angle().Set(mem, s.angle)
}

// corner returns the corner at local signs (sx, sy).
func (s rectState) corner(sx, sy float64) Vec2 {
	local := Vec2{sx * s.width / 2, sy * s.height / 2}
	return s.center.Add(local.Rotate(s.angle))
}

func (r *Rectangle) cornerAnchor(id AnchorID, sx, sy float64) Anchor {
	return funcAnchor{
		id: id,
		get: func(mem Memory) (Vec2, bool) {
			s, ok := r.load(mem)
			return s.corner(sx, sy), ok
		},
		// The opposite corner stays where it is.
		move: func(mem Memory, delta Vec2) bool {
			s, ok := r.load(mem)
			if !ok {
				return false
			}
			local := delta.Rotate(-s.angle)
			s.width += sx * local.X
			s.height += sy * local.Y
			s.center = s.center.Add(delta.Scale(0.5))
			return r.store(mem, s)
		},
	}
}

func (r *Rectangle) Anchors() []Anchor {
	return []Anchor{
		funcAnchor{
			id: AnchorCenter,
			get: func(mem Memory) (Vec2, bool) {
				return r.Center().Get(mem)
			},
			move: func(mem Memory, delta Vec2) bool { return r.Translate(mem, delta) },
		},
		r.cornerAnchor(AnchorTopLeft, -1, -1),
		r.cornerAnchor(AnchorTopRight, 1, -1),
		r.cornerAnchor(AnchorBottomLeft, -1, 1),
		r.cornerAnchor(AnchorBottomRight, 1, 1),
	}
}

func (r *Rectangle) Outline() Outline { return rectOutline{r} }

type rectOutline struct{ r *Rectangle }

func (o rectOutline) Position(mem Memory, t float64) (Vec2, bool) {
	s, ok := o.r.load(mem)
	if !ok {
		return Vec2{}, false
	}
	corners := []Vec2{s.corner(-1, -1), s.corner(1, -1), s.corner(1, 1), s.corner(-1, 1)}
	perimeter := 2 * (s.width + s.height)
	if perimeter == 0 {
		return s.center, true
	}
	t = math.Mod(t, 1)
	if t < 0 {
		t++
	}
	dist := t * perimeter
	sides := []float64{s.width, s.height, s.width, s.height}
	for i, side := range sides {
		if dist <= side || i == len(sides)-1 {
			if side == 0 {
				return corners[i], true
			}
			return corners[i].Lerp(corners[(i+1)%4], dist/side), true
		}
		dist -= side
	}
	return corners[0], true
}

func (o rectOutline) Length(mem Memory) (float64, bool) {
	s, ok := o.r.load(mem)
	return 2 * (s.width + s.height), ok
}

func (o rectOutline) Segments(Memory) int { return 4 }

func (r *Rectangle) Translate(mem Memory, delta Vec2) bool {
	return TranslatePoints(mem, delta, r.Center())
}

func (r *Rectangle) Rotate(mem Memory, angle float64, fix Vec2) bool {
	s, ok := r.load(mem)
	if !ok {
		return false
	}
	s.center = s.center.RotateAround(angle, fix)
	s.angle += angle
	return r.store(mem, s)
}

// Scale along an axis stretches the side that is closest to that axis.
func (r *Rectangle) Scale(mem Memory, factor float64, fix Vec2, axis Axis) bool {
	s, ok := r.load(mem)
	if !ok {
		return false
	}
	s.center = s.center.ScaleAround(factor, fix, axis)
	horizontal := math.Abs(math.Cos(s.angle)) >= math.Abs(math.Sin(s.angle))
	switch {
	case axis == AxisNone:
		s.width *= factor
		s.height *= factor
	case (axis == AxisHorizontal) == horizontal:
		s.width *= factor
	default:
		s.height *= factor
	}
	return r.store(mem, s)
}

// ---------------------------------------------------------------------------
// Circle
// ---------------------------------------------------------------------------

// Circle is given by center, radius and the angle its outline starts at.
// Words: center.x center.y radius angle.
type Circle struct {
	id   ID
	name string
}

func NewCircle(name string) *Circle { return &Circle{id: NewID(), name: name} }

func (c *Circle) Identifier() ID { return c.id }
func (c *Circle) Name() string { return c.name }
func (c *Circle) Kind() string { return "circle" }
func (c *Circle) Size() int { return 4 }

func (c *Circle) Center() StoredPoint { return StoredPoint{Form: c.id, Offset: 0} }
func (c *Circle) Radius() StoredLength { return StoredLength{Form: c.id, Offset: 2} }
func (c *Circle) Angle() StoredAngle { return StoredAngle{Form: c.id, Offset: 3} }

// Init uses the box diagonal as diameter.
func (c *Circle) Init(mem Memory, min, max Vec2) bool {
	return c.Center().Set(mem, min.Midpoint(max)) &&
		c.Radius().Set(mem, min.Dist(max)/2) &&
		c.Angle().Set(mem, 0)
}

func (c *Circle) edge(mem Memory) (Vec2, bool) {
	ctr, ok1 := c.Center().Get(mem)
	r, ok2 := c.Radius().Get(mem)
	a, ok3 := c.Angle().Get(mem)
	return ctr.Add(Vec2{r, 0}.Rotate(a)), ok1 && ok2 && ok3
}

func (c *Circle) Anchors() []Anchor {
	return []Anchor{
		funcAnchor{
			id:   AnchorCenter,
			get:  func(mem Memory) (Vec2, bool) { return c.Center().Get(mem) },
			move: func(mem Memory, delta Vec2) bool { return c.Translate(mem, delta) },
		},
		funcAnchor{
			id:  AnchorEdge,
			get: c.edge,
			move: func(mem Memory, delta Vec2) bool {
				e, ok := c.edge(mem)
				if !ok {
					return false
				}
				ctr, _ := c.Center().Get(mem)
				d := e.Add(delta).Sub(ctr)
				return c.Radius().Set(mem, d.Length()) && c.Angle().Set(mem, d.Angle())
			},
		},
	}
}

func (c *Circle) Outline() Outline { return c }

func (c *Circle) Position(mem Memory, t float64) (Vec2, bool) {
	ctr, ok1 := c.Center().Get(mem)
	r, ok2 := c.Radius().Get(mem)
	a, ok3 := c.Angle().Get(mem)
	return ctr.Add(Vec2{r, 0}.Rotate(a + 2*math.Pi*t)), ok1 && ok2 && ok3
}

func (c *Circle) Length(mem Memory) (float64, bool) {
	r, ok := c.Radius().Get(mem)
	return 2 * math.Pi * r, ok
}

func (c *Circle) Segments(Memory) int { return 1 }

func (c *Circle) Translate(mem Memory, delta Vec2) bool {
	return TranslatePoints(mem, delta, c.Center())
}

func (c *Circle) Rotate(mem Memory, angle float64, fix Vec2) bool {
	ctr, ok1 := c.Center().Get(mem)
	a, ok2 := c.Angle().Get(mem)
	if !ok1 || !ok2 {
		return false
	}
	return c.Center().Set(mem, ctr.RotateAround(angle, fix)) && c.Angle().Set(mem, a+angle)
}

// Scale refuses single-axis scaling; that would turn the circle into an
// ellipse.
func (c *Circle) Scale(mem Memory, factor float64, fix Vec2, axis Axis) bool {
	if axis != AxisNone {
		return false
	}
	ctr, ok1 := c.Center().Get(mem)
	r, ok2 := c.Radius().Get(mem)
	if !ok1 || !ok2 {
		return false
	}
	return c.Center().Set(mem, ctr.ScaleAround(factor, fix, AxisNone)) && c.Radius().Set(mem, r*factor)
}
