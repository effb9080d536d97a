// Package sheet holds named definitions, orders them by their references and
// solves them into a DataSet the expression evaluator reads from.
package sheet

import (
	"errors"
	"fmt"
	"strings"

	"reform/pkg/expr"
)

// ErrReservedName is returned when a definition name collides with a
// function, a constant or a boolean literal.
var ErrReservedName = errors.New("reserved name")

// Definition is one named entry of a sheet.
type Definition struct {
	ID    expr.ReferenceID
	Name  string
	Value Value
}

// Value is the content of a definition: Primitive, Expr, Array or Invalid.
type Value interface {
	isValue()
	Format(names expr.Namer) string
}

type Primitive struct {
	Value expr.Value
}

type Expr struct {
	Expression expr.Expression
}

// Array is a list of values. It solves to its element count; the elements
// are kept on the DataSet.
type Array struct {
	Values []expr.Value
}

// Invalid keeps source text that failed to compile so it can be shown and
// edited again.
type Invalid struct {
	Source string
	Reason error
}

func (Primitive) isValue() {}
func (Expr) isValue() {}
func (Array) isValue() {}
func (Invalid) isValue() {}

func (p Primitive) Format(expr.Namer) string { return p.Value.String() }
func (e Expr) Format(names expr.Namer) string { return e.Expression.Format(names) }
func (i Invalid) Format(expr.Namer) string { return i.Source }

func (a Array) Format(expr.Namer) string {
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// References returns the ids v depends on.
func References(v Value) []expr.ReferenceID {
	if e, ok := v.(Expr); ok {
		return expr.References(e.Expression)
	}
	return nil
}

// Compile parses source with p. Constant results become a Primitive; parse
// failures become Invalid.
func Compile(source string, p *expr.Parser) Value {
	e, err := p.Parse(source)
	if err != nil {
		return Invalid{Source: source, Reason: err}
	}
	if c, ok := e.(expr.Constant); ok {
		return Primitive{Value: c.Value}
	}
	return Expr{Expression: e}
}

// Source is a definition name paired with its expression text.
type Source struct {
	Name string
	Text string
}

func checkName(name string, table *expr.OperatorTable) error {
	if name == "" {
		return fmt.Errorf("empty definition name: %w", ErrReservedName)
	}
	if table != nil && table.IsReserved(name) {
		return fmt.Errorf("%q: %w", name, ErrReservedName)
	}
	return nil
}
