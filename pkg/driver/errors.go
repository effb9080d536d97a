package driver

import (
	"errors"
	"sync"

	"reform/pkg/form"
	"reform/pkg/instr"
	"reform/pkg/vm"
)

// NodeError is the latest error of one node. Node is the zero NodeRef for
// errors reported outside any node.
type NodeError struct {
	Node instr.NodeRef
	Err  error
}

// ErrorBook keeps the most recent error per node for the current
// evaluation. It is cleared when an evaluation begins.
type ErrorBook struct {
	vm.BaseListener

	mu    sync.RWMutex
	order []instr.NodeRef
	errs  map[instr.NodeRef]error
}

func NewErrorBook() *ErrorBook {
	return &ErrorBook{errs: make(map[instr.NodeRef]error)}
}

func (b *ErrorBook) BeginEvaluation(form.Vec2) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = b.order[:0]
	clear(b.errs)
}

func (b *ErrorBook) ErrorTriggered(err error, n vm.Evaluable) {
	ref, _ := n.(instr.NodeRef)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.errs[ref]; !seen {
		b.order = append(b.order, ref)
	}
	b.errs[ref] = err
}

// HasError reports whether ref failed in the latest evaluation.
func (b *ErrorBook) HasError(ref instr.NodeRef) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.errs[ref]
	return ok
}

func (b *ErrorBook) Error(ref instr.NodeRef) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.errs[ref]
}

// Errors lists the recorded errors in the order their nodes first failed.
func (b *ErrorBook) Errors() []NodeError {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]NodeError, 0, len(b.order))
	for _, ref := range b.order {
		out = append(out, NodeError{Node: ref, Err: b.errs[ref]})
	}
	return out
}

// Count returns how many nodes hold an error matching kind. A nil kind
// counts every node.
func (b *ErrorBook) Count(kind error) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, err := range b.errs {
		if kind == nil || errors.Is(err, kind) {
			n++
		}
	}
	return n
}

// ErrorLimiter stops the runtime once an evaluation reported Limit errors.
type ErrorLimiter struct {
	vm.BaseListener
	rt    *vm.Runtime
	Limit int
	seen  int
}

func NewErrorLimiter(rt *vm.Runtime, limit int) *ErrorLimiter {
	return &ErrorLimiter{rt: rt, Limit: limit}
}

func (l *ErrorLimiter) BeginEvaluation(form.Vec2) { l.seen = 0 }

func (l *ErrorLimiter) ErrorTriggered(error, vm.Evaluable) {
	l.seen++
	if l.Limit > 0 && l.seen >= l.Limit {
		l.rt.Stop()
	}
}
