package driver

import (
	"context"
	"log/slog"

	"reform/pkg/form"
	"reform/pkg/vm"
)

// TraceListener logs the progress of evaluations. Node evaluations and scope
// exits are logged at debug level, errors as warnings.
type TraceListener struct {
	log   *slog.Logger
	evals int
	errs  int
}

func NewTraceListener(log *slog.Logger) *TraceListener {
	return &TraceListener{log: log.With("component", "runtime")}
}

func (t *TraceListener) BeginEvaluation(size form.Vec2) {
	t.evals, t.errs = 0, 0
	t.log.Debug("evaluation started", "width", size.X, "height", size.Y)
}

func (t *TraceListener) FinishEvaluation() {
	t.log.Info("evaluation finished", "nodes", t.evals, "errors", t.errs)
}

func (t *TraceListener) DidEval(n vm.Evaluable) {
	t.evals++
	if t.log.Enabled(context.Background(), slog.LevelDebug) {
		t.log.Debug("evaluated", "node", n)
	}
}

func (t *TraceListener) ExitScope(forms []form.Form) {
	names := make([]string, len(forms))
	for i, f := range forms {
		names[i] = f.Name()
	}
	t.log.Debug("scope closed", "forms", names)
}

func (t *TraceListener) ErrorTriggered(err error, n vm.Evaluable) {
	t.errs++
	t.log.Warn("runtime error", "node", n, "err", err)
}
