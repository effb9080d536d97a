package expr

import (
	"testing"
)

func tokenTypes(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func requireTypes(t *testing.T, src string, want ...TokenType) []Token {
	t.Helper()
	toks := ExpressionRules().All(src)
	got := tokenTypes(toks)
	if len(got) != len(want) {
		t.Fatalf("%q: want %d tokens %v, got %d %v", src, len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%q: token %d: want %s, got %s (%q)", src, i, want[i], got[i], toks[i].Text)
		}
	}
	return toks
}

func TestTokenizer_Kinds(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []TokenType
	}{
		{"empty source yields only EOF", "", []TokenType{TokenEOF}},
		{"whitespace only yields only EOF", " \t\n ", []TokenType{TokenEOF}},
		{"identifier with digits", "width2", []TokenType{TokenIdentifier, TokenEOF}},
		{"int and double", "12 3.5 .5 1e3", []TokenType{TokenInt, TokenDouble, TokenDouble, TokenDouble, TokenEOF}},
		{"string literal", `"hello world"`, []TokenType{TokenString, TokenEOF}},
		{"hex color", "#ff00aa", []TokenType{TokenHexColor, TokenEOF}},
		{"two-char operators are one token", "a<=b&&c!=d", []TokenType{
			TokenIdentifier, TokenOperator, TokenIdentifier, TokenOperator,
			TokenIdentifier, TokenOperator, TokenIdentifier, TokenEOF,
		}},
		{"call with separators", "max(1, x)", []TokenType{
			TokenIdentifier, TokenParenOpen, TokenInt, TokenSeparator, TokenIdentifier, TokenParenClose, TokenEOF,
		}},
		{"no whitespace needed between operands and operators", "2+3*4", []TokenType{
			TokenInt, TokenOperator, TokenInt, TokenOperator, TokenInt, TokenEOF,
		}},
		{"unmatched text becomes Unknown", "1 @@ 2", []TokenType{TokenInt, TokenUnknown, TokenInt, TokenEOF}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireTypes(t, tc.src, tc.want...)
		})
	}
}

func TestTokenizer_LongestMatch(t *testing.T) {
	toks := requireTypes(t, "abc>=10.25", TokenIdentifier, TokenOperator, TokenDouble, TokenEOF)
	if toks[0].Text != "abc" || toks[1].Text != ">=" || toks[2].Text != "10.25" {
		t.Errorf("unexpected token texts: %q %q %q", toks[0].Text, toks[1].Text, toks[2].Text)
	}
}

func TestTokenizer_UnknownRunText(t *testing.T) {
	toks := requireTypes(t, "a $$ b", TokenIdentifier, TokenUnknown, TokenIdentifier, TokenEOF)
	if toks[1].Text != "$$" {
		t.Errorf("unknown text: want %q, got %q", "$$", toks[1].Text)
	}
}

func TestTokenizer_Positions(t *testing.T) {
	toks := requireTypes(t, "a +\n  bc", TokenIdentifier, TokenOperator, TokenIdentifier, TokenEOF)

	want := []Pos{
		{Index: 0, Row: 1, Column: 1},
		{Index: 2, Row: 1, Column: 3},
		{Index: 6, Row: 2, Column: 3},
		{Index: 8, Row: 2, Column: 5},
	}
	for i, w := range want {
		if toks[i].Pos != w {
			t.Errorf("token %d (%q): want pos %+v, got %+v", i, toks[i].Text, w, toks[i].Pos)
		}
	}
}

func TestTokenizer_Restartable(t *testing.T) {
	seq := ExpressionRules().Tokens("x * 2")

	var first, second []Token
	for tok := range seq {
		first = append(first, tok)
	}
	for tok := range seq {
		second = append(second, tok)
	}
	if len(first) != len(second) {
		t.Fatalf("traversals differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("token %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestTokenizer_EarlyStop(t *testing.T) {
	n := 0
	for range ExpressionRules().Tokens("a b c d") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to stop after 2 tokens, got %d", n)
	}
}

func TestTokenizer_CustomRules(t *testing.T) {
	tz := &Tokenizer{
		Rules: []Rule{
			NewRule("Word", `[a-z]+`, 1),
			NewRule("Keyword", `if|then`, 2),
		},
		Ignore: []Rule{NewRule(TokenWhitespace, ` +`, 0)},
	}
	toks := tz.All("if x then")
	got := tokenTypes(toks)
	want := []TokenType{"Keyword", "Word", "Keyword", TokenEOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: want %s, got %s", i, want[i], got[i])
		}
	}
}
