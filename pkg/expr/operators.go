package expr

import (
	"math"
	"slices"
	"strings"
)

type Associativity int

const (
	LeftAssoc Associativity = iota
	RightAssoc
)

// Precedence of every unary operator. It binds tighter than * / % but
// looser than ^, so -2^2 is -(2^2).
const UnaryPrecedence = 45

type BinaryOperator struct {
	Name       string
	Precedence int
	Assoc      Associativity
	Apply      func(l, r Value) (Value, error)
}

type UnaryOperator struct {
	Name       string
	Precedence int
	Apply      func(v Value) (Value, error)
}

// Arity is the number of arguments a function accepts. Variadic functions
// require at least one argument.
type Arity struct {
	Variadic bool
	N        int
}

func Fixed(n int) Arity { return Arity{N: n} }

var Variadic = Arity{Variadic: true}

// Accepts reports whether n arguments satisfy the arity.
func (a Arity) Accepts(n int) bool {
	if a.Variadic {
		return n >= 1
	}
	return n == a.N
}

type Function struct {
	Name  string
	Arity Arity
	Apply func(args []Value) (Value, error)
}

// OperatorTable maps operator symbols, function names and constant names to
// their behavior.
type OperatorTable struct {
	binary    map[string]*BinaryOperator
	unary     map[string]*UnaryOperator
	functions map[string]*Function
	constants map[string]Value
}

// NewOperatorTable returns an empty table.
func NewOperatorTable() *OperatorTable {
	return &OperatorTable{
		binary:    make(map[string]*BinaryOperator),
		unary:     make(map[string]*UnaryOperator),
		functions: make(map[string]*Function),
		constants: make(map[string]Value),
	}
}

// DefaultTable returns a table with the built-in operators, functions and
// constants of the expression language.
func DefaultTable() *OperatorTable {
	t := NewOperatorTable()

	t.AddBinary(&BinaryOperator{Name: "^", Precedence: 50, Assoc: RightAssoc, Apply: power})
	t.AddBinary(&BinaryOperator{Name: "*", Precedence: 40, Apply: arithmetic(func(a, b int) (int, error) { return a * b, nil }, func(a, b float64) float64 { return a * b })})
	t.AddBinary(&BinaryOperator{Name: "/", Precedence: 40, Apply: arithmetic(intDiv, func(a, b float64) float64 { return a / b })})
	t.AddBinary(&BinaryOperator{Name: "%", Precedence: 40, Apply: arithmetic(intMod, math.Mod)})
	t.AddBinary(&BinaryOperator{Name: "+", Precedence: 30, Apply: add})
	t.AddBinary(&BinaryOperator{Name: "-", Precedence: 30, Apply: arithmetic(func(a, b int) (int, error) { return a - b, nil }, func(a, b float64) float64 { return a - b })})
	t.AddBinary(&BinaryOperator{Name: "<", Precedence: 20, Apply: compare(func(c int) bool { return c < 0 })})
	t.AddBinary(&BinaryOperator{Name: "<=", Precedence: 20, Apply: compare(func(c int) bool { return c <= 0 })})
	t.AddBinary(&BinaryOperator{Name: ">", Precedence: 20, Apply: compare(func(c int) bool { return c > 0 })})
	t.AddBinary(&BinaryOperator{Name: ">=", Precedence: 20, Apply: compare(func(c int) bool { return c >= 0 })})
	t.AddBinary(&BinaryOperator{Name: "==", Precedence: 10, Apply: func(l, r Value) (Value, error) { return Bool(l.Equal(r)), nil }})
	t.AddBinary(&BinaryOperator{Name: "!=", Precedence: 10, Apply: func(l, r Value) (Value, error) { return Bool(!l.Equal(r)), nil }})
	t.AddBinary(&BinaryOperator{Name: "&&", Precedence: 8, Apply: logical("&&", func(a, b bool) bool { return a && b })})
	t.AddBinary(&BinaryOperator{Name: "||", Precedence: 5, Apply: logical("||", func(a, b bool) bool { return a || b })})

	t.AddUnary(&UnaryOperator{Name: "+", Precedence: UnaryPrecedence, Apply: unaryPlus})
	t.AddUnary(&UnaryOperator{Name: "-", Precedence: UnaryPrecedence, Apply: unaryMinus})
	t.AddUnary(&UnaryOperator{Name: "~", Precedence: UnaryPrecedence, Apply: unaryNot})

	t.AddConstant("PI", Double(math.Pi))
	t.AddConstant("E", Double(math.E))

	for _, f := range builtinFunctions() {
		t.AddFunction(f)
	}
	return t
}

func (t *OperatorTable) AddBinary(op *BinaryOperator) { t.binary[op.Name] = op }
func (t *OperatorTable) AddUnary(op *UnaryOperator) { t.unary[op.Name] = op }
func (t *OperatorTable) AddFunction(f *Function) { t.functions[f.Name] = f }
func (t *OperatorTable) AddConstant(name string, v Value) { t.constants[name] = v }

func (t *OperatorTable) Binary(name string) (*BinaryOperator, bool) {
	op, ok := t.binary[name]
	return op, ok
}

func (t *OperatorTable) Unary(name string) (*UnaryOperator, bool) {
	op, ok := t.unary[name]
	return op, ok
}

func (t *OperatorTable) Function(name string) (*Function, bool) {
	f, ok := t.functions[name]
	return f, ok
}

func (t *OperatorTable) Constant(name string) (Value, bool) {
	v, ok := t.constants[name]
	return v, ok
}

// Names returns the sorted names of the functions and constants of t.
func (t *OperatorTable) Names() []string {
	names := make([]string, 0, len(t.functions)+len(t.constants))
	for n := range t.functions {
		names = append(names, n)
	}
	for n := range t.constants {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// IsReserved reports whether name is a function, a constant or a boolean
// literal and therefore cannot name a definition.
func (t *OperatorTable) IsReserved(name string) bool {
	if _, ok := t.functions[name]; ok {
		return true
	}
	if _, ok := t.constants[name]; ok {
		return true
	}
	return name == "true" || name == "false"
}

func intDiv(a, b int) (int, error) {
	if b == 0 {
		return 0, evalErr(ErrArithmetic, "integer division by zero")
	}
	return a / b, nil
}

func intMod(a, b int) (int, error) {
	if b == 0 {
		return 0, evalErr(ErrArithmetic, "integer modulo by zero")
	}
	return a % b, nil
}

// arithmetic uses the integer operation when both operands are Int and the
// float operation otherwise. Float division by zero is not guarded.
func arithmetic(ints func(a, b int) (int, error), floats func(a, b float64) float64) func(l, r Value) (Value, error) {
	return func(l, r Value) (Value, error) {
		if !l.IsNumeric() || !r.IsNumeric() {
			return Value{}, evalErr(ErrTypeMismatch, "arithmetic on %s and %s", l.Kind(), r.Kind())
		}
		if l.Kind() == KindInt && r.Kind() == KindInt {
			n, err := ints(l.AsInt(), r.AsInt())
			if err != nil {
				return Value{}, err
			}
			return Int(n), nil
		}
		return Double(floats(l.AsDouble(), r.AsDouble())), nil
	}
}

func add(l, r Value) (Value, error) {
	if l.Kind() == KindString || r.Kind() == KindString {
		return String(l.AsString() + r.AsString()), nil
	}
	return arithmetic(func(a, b int) (int, error) { return a + b, nil }, func(a, b float64) float64 { return a + b })(l, r)
}

func power(l, r Value) (Value, error) {
	if !l.IsNumeric() || !r.IsNumeric() {
		return Value{}, evalErr(ErrTypeMismatch, "power of %s and %s", l.Kind(), r.Kind())
	}
	if l.Kind() == KindInt && r.Kind() == KindInt && r.AsInt() >= 0 {
		base, exp, acc := l.AsInt(), r.AsInt(), 1
		for exp > 0 {
			if exp&1 == 1 {
				acc *= base
			}
			base *= base
			exp >>= 1
		}
		return Int(acc), nil
	}
	return Double(math.Pow(l.AsDouble(), r.AsDouble())), nil
}

func compare(pred func(c int) bool) func(l, r Value) (Value, error) {
	return func(l, r Value) (Value, error) {
		switch {
		case l.IsNumeric() && r.IsNumeric():
			if l.Kind() == KindInt && r.Kind() == KindInt {
				return Bool(pred(cmpInt(l.AsInt(), r.AsInt()))), nil
			}
			a, b := l.AsDouble(), r.AsDouble()
			if math.IsNaN(a) || math.IsNaN(b) {
				return Bool(false), nil
			}
			return Bool(pred(cmpFloat(a, b))), nil
		case l.Kind() == KindString && r.Kind() == KindString:
			return Bool(pred(strings.Compare(l.AsString(), r.AsString()))), nil
		}
		return Value{}, evalErr(ErrTypeMismatch, "cannot compare %s with %s", l.Kind(), r.Kind())
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func logical(name string, f func(a, b bool) bool) func(l, r Value) (Value, error) {
	return func(l, r Value) (Value, error) {
		if l.Kind() != KindBool || r.Kind() != KindBool {
			return Value{}, evalErr(ErrTypeMismatch, "%s on %s and %s", name, l.Kind(), r.Kind())
		}
		return Bool(f(l.AsBool(), r.AsBool())), nil
	}
}

func unaryPlus(v Value) (Value, error) {
	if !v.IsNumeric() {
		return Value{}, evalErr(ErrTypeMismatch, "unary + on %s", v.Kind())
	}
	return v, nil
}

func unaryMinus(v Value) (Value, error) {
	switch v.Kind() {
	case KindInt:
		return Int(-v.AsInt()), nil
	case KindDouble:
		return Double(-v.AsDouble()), nil
	}
	return Value{}, evalErr(ErrTypeMismatch, "unary - on %s", v.Kind())
}

func unaryNot(v Value) (Value, error) {
	switch v.Kind() {
	case KindBool:
		return Bool(!v.AsBool()), nil
	case KindInt:
		return Int(^v.AsInt()), nil
	}
	return Value{}, evalErr(ErrTypeMismatch, "~ on %s", v.Kind())
}
