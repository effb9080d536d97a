package expr

import "fmt"

// TokenType classifies a token. Rule sets may define their own types; the
// constants below are the ones the expression grammar uses.
type TokenType string

const (
	TokenEOF        TokenType = "EOF"
	TokenUnknown    TokenType = "Unknown"
	TokenWhitespace TokenType = "Whitespace"
	TokenIdentifier TokenType = "Identifier"
	TokenInt        TokenType = "IntLiteral"
	TokenDouble     TokenType = "DoubleLiteral"
	TokenString     TokenType = "StringLiteral"
	TokenHexColor   TokenType = "HexColor"
	TokenOperator   TokenType = "Operator"
	TokenParenOpen  TokenType = "ParenOpen"
	TokenParenClose TokenType = "ParenClose"
	TokenSeparator  TokenType = "ArgumentSeparator"
)

// Pos is a position in source text. Index is a 0-based byte offset; Row and
// Column are 1-based, Column counts runes.
type Pos struct {
	Index  int
	Row    int
	Column int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Row, p.Column) }

type Token struct {
	Type TokenType
	Text string
	Pos  Pos
}

func (t Token) Is(tt TokenType) bool { return t.Type == tt }

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q at %s", t.Type, t.Text, t.Pos)
}
