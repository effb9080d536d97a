package vm

import "reform/pkg/form"

// Listener observes a run. Calls happen on the goroutine executing Run.
type Listener interface {
	BeginEvaluation(size form.Vec2)
	FinishEvaluation()
	DidEval(n Evaluable)
	// ExitScope is called with the forms of a closing scope while their
	// words are still readable.
	ExitScope(forms []form.Form)
	// ErrorTriggered reports err attributed to n, the innermost evaluable
	// executing when it was reported. n is nil outside any Eval.
	ErrorTriggered(err error, n Evaluable)
}

// BaseListener implements Listener with no-ops, for embedding.
type BaseListener struct{}

func (BaseListener) BeginEvaluation(form.Vec2)       {}
func (BaseListener) FinishEvaluation()               {}
func (BaseListener) DidEval(Evaluable)               {}
func (BaseListener) ExitScope([]form.Form)           {}
func (BaseListener) ErrorTriggered(error, Evaluable) {}
