package vm

import (
	"errors"
	"fmt"

	"reform/pkg/form"
)

var ErrAlreadyRunning = errors.New("runtime is already running")

// Runtime error kinds. A *RuntimeError unwraps to one of these and, when set,
// to its cause.
var (
	ErrInvalidDestination = errors.New("invalid destination")
	ErrUnknownForm        = errors.New("unknown form")
	ErrUnknownAnchor      = errors.New("unknown anchor")
	ErrInvalidDistance    = errors.New("invalid distance")
	ErrInvalidFixPoint    = errors.New("invalid fix point")
	ErrInvalidAngle       = errors.New("invalid angle")
	ErrInvalidFactor      = errors.New("invalid factor")
	ErrInvalidExpression  = errors.New("invalid expression")
	ErrInvalidAxis        = errors.New("invalid axis")
)

// RuntimeError is reported when an instruction cannot apply its effect.
type RuntimeError struct {
	Kind   error
	Form   form.ID
	Detail string
	Cause  error
}

func (e *RuntimeError) Error() string {
	msg := e.Kind.Error()
	if e.Form != 0 {
		msg += fmt.Sprintf(": form %d", e.Form)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewError builds a RuntimeError of the given kind for form id.
func NewError(kind error, id form.ID, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Form: id, Detail: fmt.Sprintf(format, args...)}
}

// WrapError builds a RuntimeError of the given kind caused by err.
func WrapError(kind error, id form.ID, err error) *RuntimeError {
	return &RuntimeError{Kind: kind, Form: id, Cause: err}
}
