package main

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"reform/pkg/expr"
	"reform/pkg/sheet"
)

var (
	errQuit = errors.New("quit")
	// errCycle marks definitions the solver left out because they sit on,
	// or depend on, a reference cycle.
	errCycle = errors.New("dependency cycle")
)

// assignment matches "name = source" but not "name == source".
var assignment = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=([^=].*)?$`)

// session is an interactive sheet. Lines either define a name or evaluate
// an expression against the current definitions.
type session struct {
	sheet *sheet.BaseSheet
	table *expr.OperatorTable
}

func newSession(base *sheet.BaseSheet) *session {
	if base == nil {
		base = sheet.NewBaseSheet()
	}
	return &session{sheet: base, table: expr.DefaultTable()}
}

const sessionHelp = `name = expr   define or redefine name
expr          evaluate expr
:defs         list definitions
:del name     remove a definition
:tokens expr  show the tokens of expr
:help         this text
:q            quit`

// exec runs one line and returns what to print. errQuit ends the session.
func (s *session) exec(line string) (string, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return "", nil
	case line == ":q" || line == "exit":
		return "", errQuit
	case line == ":help":
		return sessionHelp, nil
	case line == ":defs":
		return s.definitions(), nil
	case strings.HasPrefix(line, ":del "):
		return s.remove(strings.TrimSpace(strings.TrimPrefix(line, ":del ")))
	case strings.HasPrefix(line, ":tokens "):
		return tokenListing(strings.TrimPrefix(line, ":tokens ")), nil
	case strings.HasPrefix(line, ":"):
		return "", fmt.Errorf("unknown command %q (try :help)", line)
	}
	if m := assignment.FindStringSubmatch(line); m != nil {
		return s.define(m[1], strings.TrimSpace(m[2]))
	}
	return s.evaluate(line)
}

// define keeps the previous definition of name when src does not compile.
func (s *session) define(name, src string) (string, error) {
	var prev sheet.Value
	if id, ok := s.sheet.ReferenceFor(name); ok {
		d, _ := s.sheet.Definition(id)
		prev = d.Value
	}
	d := s.sheet.Define(name, src, s.table)
	if inv, ok := d.Value.(sheet.Invalid); ok {
		if prev != nil {
			d.Value = prev
		} else {
			s.sheet.Remove(d.ID)
		}
		return "", inv.Reason
	}
	ds := sheet.Solve(s.sheet)
	if err := s.solveError(ds, d.ID); err != nil {
		return fmt.Sprintf("%s = %s", name, d.Value.Format(s.sheet)), err
	}
	return fmt.Sprintf("%s = %s", name, ds.Value(d.ID)), nil
}

// solveError is the recorded error of id, or errCycle when the solver
// skipped it.
func (s *session) solveError(ds *sheet.DataSet, id expr.ReferenceID) error {
	if err := ds.Error(id); err != nil {
		return err
	}
	if slices.Contains(sheet.Cyclic(s.sheet.Definitions()), id) {
		return errCycle
	}
	return nil
}

func (s *session) remove(name string) (string, error) {
	id, ok := s.sheet.ReferenceFor(name)
	if !ok {
		return "", fmt.Errorf("%q is not defined", name)
	}
	s.sheet.Remove(id)
	return "removed " + name, nil
}

func (s *session) evaluate(src string) (string, error) {
	e, err := expr.NewParser(s.table, s.sheet).Parse(src)
	if err != nil {
		return "", err
	}
	v, err := expr.Evaluate(e, sheet.Solve(s.sheet))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// definitions lists name, source and solved value of every definition.
func (s *session) definitions() string {
	ds := sheet.Solve(s.sheet)
	var b strings.Builder
	for _, d := range s.sheet.Definitions() {
		fmt.Fprintf(&b, "%s = %s", d.Name, d.Value.Format(s.sheet))
		if err := s.solveError(ds, d.ID); err != nil {
			fmt.Fprintf(&b, "  ! %v\n", err)
			continue
		}
		fmt.Fprintf(&b, "  → %s\n", ds.Value(d.ID))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// complete returns the known names that start with the identifier being
// typed at the end of line, and that identifier.
func (s *session) complete(line string) (candidates []string, prefix string) {
	i := len(line)
	for i > 0 && isIdentByte(line[i-1]) {
		i--
	}
	prefix = line[i:]
	if prefix == "" {
		return nil, ""
	}
	names := s.table.Names()
	for _, d := range s.sheet.Definitions() {
		names = append(names, d.Name)
	}
	slices.Sort(names)
	for _, n := range slices.Compact(names) {
		if strings.HasPrefix(n, prefix) && n != prefix {
			candidates = append(candidates, n)
		}
	}
	return candidates, prefix
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// tokenListing prints one token per line: type, position and text.
func tokenListing(src string) string {
	var b strings.Builder
	for tok := range expr.ExpressionRules().Tokens(src) {
		fmt.Fprintf(&b, "%-18s %-6s %q\n", tok.Type, tok.Pos, tok.Text)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
