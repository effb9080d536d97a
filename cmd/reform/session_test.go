package main

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"reform/pkg/expr"
)

func requireExec(t *testing.T, s *session, line, want string) {
	t.Helper()
	got, err := s.exec(line)
	if err != nil {
		t.Fatalf("%q: %v", line, err)
	}
	if got != want {
		t.Errorf("%q: want %q, got %q", line, want, got)
	}
}

func requireExecErr(t *testing.T, s *session, line string) error {
	t.Helper()
	_, err := s.exec(line)
	if err == nil {
		t.Fatalf("%q: expected an error", line)
	}
	return err
}

func TestSession_DefineAndEvaluate(t *testing.T) {
	s := newSession(nil)
	requireExec(t, s, "w = 10", "w = 10")
	requireExec(t, s, "h = w * 2", "h = 20")
	requireExec(t, s, "w + h", "30")
	requireExec(t, s, "w / 4.0", "2.5")

	// Redefining keeps dependents pointing at the name.
	requireExec(t, s, "w = 1", "w = 1")
	requireExec(t, s, "h", "2")
	requireExec(t, s, "w == 1", "true")
}

func TestSession_InvalidDefinitions(t *testing.T) {
	s := newSession(nil)
	requireExec(t, s, "w = 3", "w = 3")

	requireExecErr(t, s, "z = 1 +")
	if _, ok := s.sheet.ReferenceFor("z"); ok {
		t.Error("a definition that does not compile must not be added")
	}

	requireExecErr(t, s, "w = (")
	requireExec(t, s, "w", "3")

	err := requireExecErr(t, s, "sin = 1")
	if !strings.Contains(err.Error(), "reserved") {
		t.Errorf("want a reserved name error, got %v", err)
	}
}

func TestSession_EvaluationErrors(t *testing.T) {
	s := newSession(nil)
	err := requireExecErr(t, s, "1 / 0")
	if !errors.Is(err, expr.ErrArithmetic) {
		t.Errorf("want division by zero, got %v", err)
	}
	requireExecErr(t, s, "nope + 1")
	requireExecErr(t, s, ":what")
}

func TestSession_CyclesAreReported(t *testing.T) {
	s := newSession(nil)
	out, err := s.exec("x = x + 1")
	if !errors.Is(err, errCycle) {
		t.Fatalf("want a dependency cycle, got %q, %v", out, err)
	}
	if out != "x = x + 1" {
		t.Errorf("want the source echoed, got %q", out)
	}

	requireExec(t, s, "b = 1", "b = 1")
	requireExec(t, s, "a = b", "a = 1")
	if _, err := s.exec("b = a * 2"); !errors.Is(err, errCycle) {
		t.Errorf("b closes a cycle, got %v", err)
	}
	if got := s.definitions(); !strings.Contains(got, "a = b  ! dependency cycle") {
		t.Errorf("definitions should flag the cycle:\n%s", got)
	}

	requireExec(t, s, "b = 3", "b = 3")
	requireExec(t, s, "a", "3")
}

func TestSession_Commands(t *testing.T) {
	s := newSession(nil)
	requireExec(t, s, "", "")
	requireExec(t, s, "a = 2", "a = 2")
	requireExec(t, s, "b = a + 1", "b = 3")
	requireExec(t, s, ":defs", "a = 2  → 2\nb = a + 1  → 3")

	requireExec(t, s, ":del a", "removed a")
	requireExecErr(t, s, ":del a")
	if got := s.definitions(); !strings.Contains(got, "b = ") || !strings.Contains(got, "!") {
		t.Errorf("b should now fail to solve:\n%s", got)
	}

	help, _ := s.exec(":help")
	if !strings.Contains(help, ":tokens") {
		t.Errorf("help: %q", help)
	}
	for _, q := range []string{":q", "exit"} {
		if _, err := s.exec(q); !errors.Is(err, errQuit) {
			t.Errorf("%q: want errQuit, got %v", q, err)
		}
	}
}

func TestSession_Complete(t *testing.T) {
	s := newSession(nil)
	requireExec(t, s, "size = 3", "size = 3")

	got, prefix := s.complete("1 + si")
	if prefix != "si" {
		t.Errorf("prefix: got %q", prefix)
	}
	for _, want := range []string{"sin", "size"} {
		if !slices.Contains(got, want) {
			t.Errorf("candidates %v miss %q", got, want)
		}
	}
	if got, _ := s.complete("size"); slices.Contains(got, "size") {
		t.Error("a complete name is not its own candidate")
	}
	if got, _ := s.complete("1 + "); got != nil {
		t.Errorf("nothing to complete after an operator, got %v", got)
	}
}

func TestTokenListing(t *testing.T) {
	out := tokenListing("1 + x")
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("want 4 tokens, got:\n%s", out)
	}
	for i, want := range []string{"IntLiteral", "Operator", "Identifier", "EOF"} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d: want %s, got %q", i, want, lines[i])
		}
	}
}
