package lib

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestReport(t *testing.T) {
	base := errors.New("document \"x\" not found")
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"plain → error line only", base, "Error: document \"x\" not found\n"},
		{"hinted → hint below", WithHint(base, "run `reform list`"), "Error: document \"x\" not found\n\nhint: run `reform list`\n"},
		{"wrapped hint → still found", fmt.Errorf("open: %w", WithHint(base, "check --file")), "Error: open: document \"x\" not found\n\nhint: check --file\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			Report(&buf, tc.err)
			if got := buf.String(); got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestWithHint_Nil(t *testing.T) {
	if WithHint(nil, "x") != nil {
		t.Error("a nil error stays nil")
	}
	err := WithHint(errors.ErrUnsupported, "x")
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Error("hinted errors unwrap")
	}
}
