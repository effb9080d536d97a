package expr

import (
	"fmt"
	"math"
	"strings"
)

// ReferenceID identifies a definition. It is the only way an expression can
// address another value.
type ReferenceID int64

// Expression is an immutable expression tree. The set of implementations is
// closed: Constant, NamedConstant, Reference, Unary, Binary and Call.
type Expression interface {
	isExpression()
	// Format renders the expression as source text; names resolves
	// references back to definition names and may be nil.
	Format(names Namer) string
}

// Namer maps reference ids back to names for display.
type Namer interface {
	Name(id ReferenceID) (string, bool)
}

type Constant struct {
	Value Value
}

type NamedConstant struct {
	Name  string
	Value Value
}

type Reference struct {
	ID ReferenceID
}

type Unary struct {
	Op      *UnaryOperator
	Operand Expression
}

type Binary struct {
	Op          *BinaryOperator
	Left, Right Expression
}

type Call struct {
	Func *Function
	Args []Expression
}

func (Constant) isExpression() {}
func (NamedConstant) isExpression() {}
func (Reference) isExpression() {}
func (Unary) isExpression() {}
func (Binary) isExpression() {}
func (Call) isExpression() {}

func (c Constant) Format(Namer) string { return c.Value.String() }
func (c NamedConstant) Format(Namer) string { return c.Name }

func (r Reference) Format(names Namer) string {
	if names != nil {
		if n, ok := names.Name(r.ID); ok {
			return n
		}
	}
	return fmt.Sprintf("$%d", r.ID)
}

func (u Unary) Format(names Namer) string {
	return u.Op.Name + formatOperand(u.Operand, names, u.Op.Precedence, false)
}

func (b Binary) Format(names Namer) string {
	left := formatOperand(b.Left, names, b.Op.Precedence, b.Op.Assoc == RightAssoc)
	right := formatOperand(b.Right, names, b.Op.Precedence, b.Op.Assoc == LeftAssoc)
	return left + " " + b.Op.Name + " " + right
}

func (c Call) Format(names Namer) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Format(names)
	}
	return c.Func.Name + "(" + strings.Join(args, ", ") + ")"
}

// formatOperand parenthesizes e when its own precedence would bind looser
// than the parent operator on that side.
func formatOperand(e Expression, names Namer, parent int, strictSide bool) string {
	s := e.Format(names)
	prec, ok := precedenceOf(e)
	if !ok {
		return s
	}
	if prec < parent || (prec == parent && strictSide) {
		return "(" + s + ")"
	}
	return s
}

func precedenceOf(e Expression) (int, bool) {
	switch n := e.(type) {
	case Binary:
		return n.Op.Precedence, true
	case Unary:
		return n.Op.Precedence, true
	case Constant:
		// A negative number prints with its sign and reads back as a
		// unary minus.
		if n.Value.IsNumeric() && math.Signbit(n.Value.AsDouble()) {
			return UnaryPrecedence, true
		}
	}
	return 0, false
}

// References returns the distinct reference ids e depends on, in order of
// first appearance.
func References(e Expression) []ReferenceID {
	var out []ReferenceID
	seen := map[ReferenceID]struct{}{}
	var walk func(Expression)
	walk = func(e Expression) {
		switch n := e.(type) {
		case Reference:
			if _, ok := seen[n.ID]; !ok {
				seen[n.ID] = struct{}{}
				out = append(out, n.ID)
			}
		case Unary:
			walk(n.Operand)
		case Binary:
			walk(n.Left)
			walk(n.Right)
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	if e != nil {
		walk(e)
	}
	return out
}

// IsConstant reports whether e evaluates without consulting a data set.
func IsConstant(e Expression) bool {
	return len(References(e)) == 0
}
