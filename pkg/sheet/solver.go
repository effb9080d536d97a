package sheet

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"reform/pkg/expr"
)

// ErrEmptyDefinition is recorded for a definition without a value.
var ErrEmptyDefinition = errors.New("empty definition")

// DefinitionError ties an error to the definition it was recorded for.
type DefinitionError struct {
	ID  expr.ReferenceID
	Err error
}

func (e DefinitionError) Error() string { return fmt.Sprintf("definition %d: %v", e.ID, e.Err) }
func (e DefinitionError) Unwrap() error { return e.Err }

// DataSet is the result of one solve. It is never updated in place; every
// solve builds a new one.
type DataSet struct {
	values map[expr.ReferenceID]expr.Value
	errors map[expr.ReferenceID]error
	arrays map[expr.ReferenceID][]expr.Value
	order  []expr.ReferenceID
}

func newDataSet() *DataSet {
	return &DataSet{
		values: make(map[expr.ReferenceID]expr.Value),
		errors: make(map[expr.ReferenceID]error),
		arrays: make(map[expr.ReferenceID][]expr.Value),
	}
}

// Lookup implements expr.DataSet.
func (ds *DataSet) Lookup(id expr.ReferenceID) (expr.Value, bool) {
	if ds == nil {
		return expr.Value{}, false
	}
	v, ok := ds.values[id]
	return v, ok
}

// Value returns the solved value of id, Int(0) when it has none.
func (ds *DataSet) Value(id expr.ReferenceID) expr.Value {
	v, _ := ds.Lookup(id)
	return v
}

func (ds *DataSet) Error(id expr.ReferenceID) error {
	if ds == nil {
		return nil
	}
	return ds.errors[id]
}

// Errors returns every recorded error ordered by id.
func (ds *DataSet) Errors() []DefinitionError {
	if ds == nil {
		return nil
	}
	out := make([]DefinitionError, 0, len(ds.errors))
	for id, err := range ds.errors {
		out = append(out, DefinitionError{ID: id, Err: err})
	}
	slices.SortFunc(out, func(a, b DefinitionError) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Array returns the elements of an array definition.
func (ds *DataSet) Array(id expr.ReferenceID) ([]expr.Value, bool) {
	if ds == nil {
		return nil, false
	}
	a, ok := ds.arrays[id]
	return a, ok
}

// Order returns the ids in the order they were evaluated.
func (ds *DataSet) Order() []expr.ReferenceID {
	if ds == nil {
		return nil
	}
	return slices.Clone(ds.order)
}

// Len is the number of solved definitions.
func (ds *DataSet) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.values)
}

// Solver evaluates a sheet into a DataSet.
type Solver struct {
	// OnSolved, when set, is called after each definition is evaluated.
	OnSolved func(d *Definition, v expr.Value, err error)
}

// Solve evaluates the definitions of s in dependency order. A failing
// definition gets Int(0) and an error; the others are unaffected.
func (sv Solver) Solve(s Sheet) *DataSet {
	ds := newDataSet()
	dups, order := s.SortedDefinitions()
	for _, d := range order {
		v, err := sv.evaluate(ds, d)
		if err != nil {
			v = expr.Int(0)
			ds.errors[d.ID] = err
		}
		ds.values[d.ID] = v
		ds.order = append(ds.order, d.ID)
		if sv.OnSolved != nil {
			sv.OnSolved(d, v, err)
		}
	}
	for _, id := range dups {
		ds.errors[id] = expr.NewDuplicateDefinitionError(id)
	}
	return ds
}

// Solve is Solver{}.Solve(s).
func Solve(s Sheet) *DataSet {
	return Solver{}.Solve(s)
}

func (sv Solver) evaluate(ds *DataSet, d *Definition) (expr.Value, error) {
	switch v := d.Value.(type) {
	case Primitive:
		return v.Value, nil
	case Expr:
		return expr.Evaluate(v.Expression, ds)
	case Array:
		ds.arrays[d.ID] = slices.Clone(v.Values)
		return expr.Int(len(v.Values)), nil
	case Invalid:
		if v.Reason == nil {
			return expr.Value{}, fmt.Errorf("%q: %w", v.Source, ErrEmptyDefinition)
		}
		return expr.Value{}, v.Reason
	case nil:
		return expr.Value{}, ErrEmptyDefinition
	}
	return expr.Value{}, fmt.Errorf("definition %d: unsupported value %T", d.ID, d.Value)
}
