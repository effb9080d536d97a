package sheet

import (
	"slices"

	"reform/pkg/expr"
)

// Sheet is a read-only view of definitions. It resolves names for the parser
// and ids for display.
type Sheet interface {
	expr.Resolver
	expr.Namer
	// Definitions returns every definition in declaration order. Ids may
	// repeat; SortedDefinitions reports those.
	Definitions() []*Definition
	Definition(id expr.ReferenceID) (*Definition, bool)
	SortedDefinitions() (duplicates []expr.ReferenceID, order []*Definition)
}

// BaseSheet is an editable, ordered list of definitions.
type BaseSheet struct {
	defs []*Definition
	next expr.ReferenceID
}

func NewBaseSheet() *BaseSheet {
	return &BaseSheet{next: 1}
}

func (s *BaseSheet) Definitions() []*Definition {
	return slices.Clone(s.defs)
}

func (s *BaseSheet) Definition(id expr.ReferenceID) (*Definition, bool) {
	for _, d := range s.defs {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

func (s *BaseSheet) ReferenceFor(name string) (expr.ReferenceID, bool) {
	for _, d := range s.defs {
		if d.Name == name {
			return d.ID, true
		}
	}
	return 0, false
}

func (s *BaseSheet) Name(id expr.ReferenceID) (string, bool) {
	if d, ok := s.Definition(id); ok {
		return d.Name, true
	}
	return "", false
}

func (s *BaseSheet) SortedDefinitions() ([]expr.ReferenceID, []*Definition) {
	return Sort(s.defs)
}

// NextID returns an id no definition of the sheet uses yet.
func (s *BaseSheet) NextID() expr.ReferenceID {
	if s.next < 1 {
		s.next = 1
	}
	id := s.next
	s.next++
	return id
}

// Add appends d as is. Adding an id that is already present makes both
// definitions duplicates.
func (s *BaseSheet) Add(d *Definition) {
	s.defs = append(s.defs, d)
	if d.ID >= s.next {
		s.next = d.ID + 1
	}
}

// Replace swaps the value of every definition with the given id.
func (s *BaseSheet) Replace(id expr.ReferenceID, v Value) bool {
	found := false
	for _, d := range s.defs {
		if d.ID == id {
			d.Value = v
			found = true
		}
	}
	return found
}

// Remove drops every definition with the given id. Expressions that
// referenced it fail with an unresolved reference on the next solve.
func (s *BaseSheet) Remove(id expr.ReferenceID) bool {
	n := len(s.defs)
	s.defs = slices.DeleteFunc(s.defs, func(d *Definition) bool { return d.ID == id })
	return len(s.defs) != n
}

// Define compiles source under name. See DefineAll.
func (s *BaseSheet) Define(name, source string, table *expr.OperatorTable) *Definition {
	return s.DefineAll(table, Source{Name: name, Text: source})[0]
}

// DefineAll assigns ids to every name first and then compiles the sources,
// so definitions may refer to each other regardless of order. A name that
// already exists keeps its id and gets the new value.
func (s *BaseSheet) DefineAll(table *expr.OperatorTable, srcs ...Source) []*Definition {
	return defineAll(s, table, srcs)
}

// DerivedSheet layers definitions over a parent sheet. Own definitions
// shadow parent definitions with the same id and new ids extend the parent.
type DerivedSheet struct {
	Parent Sheet
	own    BaseSheet
}

func NewDerivedSheet(parent Sheet) *DerivedSheet {
	return &DerivedSheet{Parent: parent}
}

func (s *DerivedSheet) Definitions() []*Definition {
	parent := s.Parent.Definitions()
	inParent := make(map[expr.ReferenceID]bool, len(parent))
	for _, d := range parent {
		inParent[d.ID] = true
	}
	shadow := make(map[expr.ReferenceID]*Definition)
	var extra []*Definition
	for _, d := range s.own.defs {
		if _, taken := shadow[d.ID]; inParent[d.ID] && !taken {
			shadow[d.ID] = d
			continue
		}
		extra = append(extra, d)
	}
	out := make([]*Definition, 0, len(parent)+len(extra))
	for _, d := range parent {
		if o, ok := shadow[d.ID]; ok {
			out = append(out, o)
			delete(shadow, d.ID)
			continue
		}
		out = append(out, d)
	}
	return append(out, extra...)
}

func (s *DerivedSheet) Definition(id expr.ReferenceID) (*Definition, bool) {
	if d, ok := s.own.Definition(id); ok {
		return d, true
	}
	return s.Parent.Definition(id)
}

func (s *DerivedSheet) ReferenceFor(name string) (expr.ReferenceID, bool) {
	if id, ok := s.own.ReferenceFor(name); ok {
		return id, true
	}
	return s.Parent.ReferenceFor(name)
}

func (s *DerivedSheet) Name(id expr.ReferenceID) (string, bool) {
	if d, ok := s.Definition(id); ok {
		return d.Name, true
	}
	return "", false
}

func (s *DerivedSheet) SortedDefinitions() ([]expr.ReferenceID, []*Definition) {
	return Sort(s.Definitions())
}

// NextID returns an id used neither by the parent nor by this layer.
func (s *DerivedSheet) NextID() expr.ReferenceID {
	for _, d := range s.Parent.Definitions() {
		if d.ID >= s.own.next {
			s.own.next = d.ID + 1
		}
	}
	return s.own.NextID()
}

// Add puts d into this layer. Using a parent id shadows that definition.
func (s *DerivedSheet) Add(d *Definition) {
	s.own.Add(d)
}

// Remove drops the definition from this layer, uncovering the parent's.
func (s *DerivedSheet) Remove(id expr.ReferenceID) bool {
	return s.own.Remove(id)
}

func (s *DerivedSheet) Define(name, source string, table *expr.OperatorTable) *Definition {
	return s.DefineAll(table, Source{Name: name, Text: source})[0]
}

// DefineAll works like BaseSheet.DefineAll. Names defined by the parent are
// shadowed under the parent's id.
func (s *DerivedSheet) DefineAll(table *expr.OperatorTable, srcs ...Source) []*Definition {
	return defineAll(s, table, srcs)
}

type editable interface {
	Sheet
	NextID() expr.ReferenceID
	Add(d *Definition)
}

// ownDefinition returns the definition of name that the sheet itself can
// edit, if any.
func ownDefinition(s editable, name string) (*Definition, bool) {
	var layer *BaseSheet
	switch t := s.(type) {
	case *BaseSheet:
		layer = t
	case *DerivedSheet:
		layer = &t.own
	default:
		return nil, false
	}
	id, ok := layer.ReferenceFor(name)
	if !ok {
		return nil, false
	}
	return layer.Definition(id)
}

func defineAll(s editable, table *expr.OperatorTable, srcs []Source) []*Definition {
	if table == nil {
		table = expr.DefaultTable()
	}
	defs := make([]*Definition, len(srcs))
	for i, src := range srcs {
		if d, ok := ownDefinition(s, src.Name); ok {
			defs[i] = d
			continue
		}
		id, ok := s.ReferenceFor(src.Name)
		if !ok {
			id = s.NextID()
		}
		d := &Definition{ID: id, Name: src.Name}
		s.Add(d)
		defs[i] = d
	}

	p := expr.NewParser(table, s)
	for i, src := range srcs {
		if err := checkName(src.Name, table); err != nil {
			defs[i].Value = Invalid{Source: src.Text, Reason: err}
			continue
		}
		defs[i].Value = Compile(src.Text, p)
	}
	return defs
}
