package expr

import (
	"iter"
	"regexp"
	"unicode/utf8"
)

// Rule maps a pattern to a token type. Patterns must match the whole
// candidate span and be prefix-closed: every prefix of an acceptable token
// must itself be accepted, since the tokenizer grows spans one rune at a time.
type Rule struct {
	Type     TokenType
	Pattern  *regexp.Regexp
	Priority int
}

// NewRule anchors pattern and compiles it.
func NewRule(tt TokenType, pattern string, priority int) Rule {
	return Rule{Type: tt, Pattern: regexp.MustCompile(`^(?:` + pattern + `)$`), Priority: priority}
}

// Tokenizer splits text into tokens using longest-match, priority-ordered
// rules. Spans accepted by an Ignore rule are dropped.
type Tokenizer struct {
	Rules  []Rule
	Ignore []Rule
}

// ExpressionRules returns the rule set of the expression grammar.
func ExpressionRules() *Tokenizer {
	return &Tokenizer{
		Rules: []Rule{
			NewRule(TokenIdentifier, `[A-Za-z_][A-Za-z0-9_]*`, 10),
			NewRule(TokenInt, `[0-9]+`, 9),
			NewRule(TokenDouble, `[0-9]+\.[0-9]*|[0-9]+(\.[0-9]*)?[eE][-+]?[0-9]*|\.[0-9]*`, 8),
			NewRule(TokenString, `"[^"]*"?`, 7),
			NewRule(TokenHexColor, `#[0-9a-fA-F]{0,8}`, 6),
			NewRule(TokenOperator, `[-+*/%^~]|[<>=!]=?|&&?|\|\|?`, 5),
			NewRule(TokenParenOpen, `\(`, 4),
			NewRule(TokenParenClose, `\)`, 4),
			NewRule(TokenSeparator, `,`, 4),
		},
		Ignore: []Rule{
			NewRule(TokenWhitespace, `\s+`, 0),
		},
	}
}

// Tokens returns a lazy sequence over the tokens of src, always terminated by
// an EOF token. Each range over the sequence tokenizes src from the start.
func (tz *Tokenizer) Tokens(src string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		sc := scanner{tz: tz, src: src, pos: Pos{Row: 1, Column: 1}}
		for sc.pos.Index < len(src) {
			tok, ignored := sc.next()
			if ignored {
				continue
			}
			if !yield(tok) {
				return
			}
		}
		yield(Token{Type: TokenEOF, Pos: sc.pos})
	}
}

// All collects Tokens(src) into a slice.
func (tz *Tokenizer) All(src string) []Token {
	var out []Token
	for t := range tz.Tokens(src) {
		out = append(out, t)
	}
	return out
}

type scanner struct {
	tz  *Tokenizer
	src string
	pos Pos
}

// next consumes one span from the current position. ignored is true when
// the span matched an ignore rule.
func (sc *scanner) next() (tok Token, ignored bool) {
	start := sc.pos
	rest := sc.src[start.Index:]

	end := 0
	for end < len(rest) {
		_, sz := utf8.DecodeRuneInString(rest[end:])
		if !sc.matchesAny(rest[:end+sz]) {
			break
		}
		end += sz
	}

	if end == 0 {
		// Nothing accepts the first rune: collect the run of unmatched runes.
		for end < len(rest) {
			_, sz := utf8.DecodeRuneInString(rest[end:])
			if end > 0 && sc.matchesAny(rest[end:end+sz]) {
				break
			}
			end += sz
		}
		text := rest[:end]
		sc.advance(text)
		return Token{Type: TokenUnknown, Text: text, Pos: start}, false
	}

	text := rest[:end]
	sc.advance(text)
	for _, r := range sc.tz.Ignore {
		if r.Pattern.MatchString(text) {
			return Token{}, true
		}
	}
	return Token{Type: sc.bestRule(text), Text: text, Pos: start}, false
}

func (sc *scanner) matchesAny(s string) bool {
	for _, r := range sc.tz.Ignore {
		if r.Pattern.MatchString(s) {
			return true
		}
	}
	for _, r := range sc.tz.Rules {
		if r.Pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func (sc *scanner) bestRule(s string) TokenType {
	best := -1
	tt := TokenUnknown
	for _, r := range sc.tz.Rules {
		if r.Priority > best && r.Pattern.MatchString(s) {
			best = r.Priority
			tt = r.Type
		}
	}
	return tt
}

func (sc *scanner) advance(text string) {
	for i := 0; i < len(text); {
		r, sz := utf8.DecodeRuneInString(text[i:])
		i += sz
		sc.pos.Index += sz
		if r == '\n' {
			sc.pos.Row++
			sc.pos.Column = 1
		} else {
			sc.pos.Column++
		}
	}
}
