package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindInt Kind = iota
	KindDouble
	KindString
	KindColor
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindColor:
		return "color"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Color is an RGBA color with 8 bits per channel.
type Color struct {
	R, G, B, A uint8
}

// Packed returns the color as 0xRRGGBBAA.
func (c Color) Packed() uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// Hex returns the color as #rrggbbaa.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// UnpackColor is the inverse of Color.Packed.
func UnpackColor(v uint32) Color {
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// ParseHexColor parses #rrggbb or #rrggbbaa. The leading '#' is optional.
func ParseHexColor(s string) (Color, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return Color{}, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, false
	}
	if len(s) == 6 {
		n = n<<8 | 0xff
	}
	return UnpackColor(uint32(n)), true
}

// Value is the closed set of values the expression language computes with.
// The zero Value is Int(0).
type Value struct {
	kind Kind
	i    int
	d    float64
	s    string
	c    Color
	b    bool
}

func Int(i int) Value { return Value{kind: KindInt, i: i} }
func Double(d float64) Value { return Value{kind: KindDouble, d: d} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func ColorValue(c Color) Value { return Value{kind: KindColor, c: c} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func RGBA(r, g, b, a uint8) Value { return ColorValue(Color{R: r, G: g, B: b, A: a}) }

func (v Value) Kind() Kind { return v.kind }

// IsNumeric reports whether v is an Int or a Double.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindDouble }

// Equal is structural equality. Values of different kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindDouble:
		return v.d == o.d
	case KindString:
		return v.s == o.s
	case KindColor:
		return v.c == o.c
	case KindBool:
		return v.b == o.b
	}
	return false
}

// ClampInt truncates f toward zero, saturating at the int range.
// NaN yields 0.
func ClampInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= float64(math.MaxInt):
		return math.MaxInt
	case f <= float64(math.MinInt):
		return math.MinInt
	}
	return int(f)
}

// AsInt converts v to an int. Unconvertible strings yield 0; doubles
// outside the int range saturate.
func (v Value) AsInt() int {
	switch v.kind {
	case KindInt:
		return v.i
	case KindDouble:
		return ClampInt(v.d)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		s := strings.TrimSpace(v.s)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Double(f).AsInt()
		}
		return 0
	case KindColor:
		return int(v.c.Packed())
	}
	return 0
}

// AsDouble converts v to a float64. Unconvertible strings yield 0.
func (v Value) AsDouble() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindDouble:
		return v.d
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return f
		}
		return 0
	case KindColor:
		return float64(v.c.Packed())
	}
	return 0
}

// AsString converts v to its textual form. Strings are returned unquoted.
func (v Value) AsString() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.i)
	case KindDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindColor:
		return v.c.Hex()
	}
	return ""
}

// AsBool converts v to a bool. Unconvertible strings yield false.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindDouble:
		return v.d != 0
	case KindString:
		s := strings.TrimSpace(v.s)
		if strings.EqualFold(s, "true") {
			return true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return false
	case KindColor:
		return v.c.A != 0
	}
	return false
}

// AsColor converts v to a Color. Unconvertible values yield transparent black.
func (v Value) AsColor() Color {
	switch v.kind {
	case KindColor:
		return v.c
	case KindInt:
		return UnpackColor(uint32(v.i))
	case KindString:
		if c, ok := ParseHexColor(strings.TrimSpace(v.s)); ok {
			return c
		}
	}
	return Color{}
}

// String renders v as a literal the parser accepts.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindDouble:
		s := v.AsString()
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	}
	return v.AsString()
}
