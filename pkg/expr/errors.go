package expr

import (
	"errors"
	"fmt"
)

// Parse error kinds. A *ParseError unwraps to exactly one of these.
var (
	ErrInvalidState                = errors.New("invalid parser state")
	ErrUnexpectedEndOfArgumentList = errors.New("unexpected end of argument list")
	ErrMissingOperand              = errors.New("missing operand")
	ErrUnknownOperator             = errors.New("unknown operator")
	ErrUnknownFunction             = errors.New("unknown function")
	ErrUnexpectedToken             = errors.New("unexpected token")
	ErrMismatchedToken             = errors.New("mismatched token")
)

// Evaluation error kinds. An *EvaluationError unwraps to exactly one of these.
var (
	ErrUnresolvedReference    = errors.New("unresolved reference")
	ErrArithmetic             = errors.New("arithmetic error")
	ErrTypeMismatch           = errors.New("type mismatch")
	ErrParameterCountMismatch = errors.New("parameter count mismatch")
	ErrDuplicateDefinition    = errors.New("duplicate definition")
)

// ParseError reports a structural problem in expression source.
type ParseError struct {
	Kind   error
	Token  Token
	Detail string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Token)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Kind }

func parseErr(kind error, tok Token, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Token: tok, Detail: fmt.Sprintf(format, args...)}
}

// EvaluationError reports why an expression could not produce a value.
// Ref is set for reference and definition errors.
type EvaluationError struct {
	Kind   error
	Ref    ReferenceID
	Detail string
}

func (e *EvaluationError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *EvaluationError) Unwrap() error { return e.Kind }

func evalErr(kind error, format string, args ...any) *EvaluationError {
	return &EvaluationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// NewDuplicateDefinitionError reports that more than one definition uses id.
func NewDuplicateDefinitionError(id ReferenceID) *EvaluationError {
	return &EvaluationError{Kind: ErrDuplicateDefinition, Ref: id, Detail: fmt.Sprintf("id %d is defined more than once", id)}
}

// NewUnresolvedReferenceError reports that id has no value.
func NewUnresolvedReferenceError(id ReferenceID) *EvaluationError {
	return &EvaluationError{Kind: ErrUnresolvedReference, Ref: id, Detail: fmt.Sprintf("id %d", id)}
}
