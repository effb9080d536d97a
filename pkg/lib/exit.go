package lib

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// hinted is an error that carries advice for the user.
type hinted struct {
	err  error
	hint string
}

func (h *hinted) Error() string { return h.err.Error() }
func (h *hinted) Unwrap() error { return h.err }
func (h *hinted) Hint() string  { return h.hint }

// WithHint attaches a hint to err. Report prints it below the error.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return &hinted{err: err, hint: hint}
}

// Report prints err, then the hint of the outermost hinted error in its chain.
func Report(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	var h interface{ Hint() string }
	if errors.As(err, &h) {
		fmt.Fprintln(w, "\nhint: "+h.Hint())
	}
}

// Exit reports err on stderr and exits the program with code 1
func Exit(err error) {
	Report(os.Stderr, err)
	os.Exit(1)
}
