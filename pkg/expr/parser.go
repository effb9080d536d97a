package expr

import (
	"strconv"
	"strings"
)

// Resolver maps definition names to reference ids.
type Resolver interface {
	ReferenceFor(name string) (ReferenceID, bool)
}

// Delegate supplies the vocabulary the parser builds nodes from.
type Delegate interface {
	Function(name string) (*Function, bool)
	Constant(name string) (Value, bool)
	Reference(name string) (ReferenceID, bool)
	Binary(name string) (*BinaryOperator, bool)
	Unary(name string) (*UnaryOperator, bool)
	// EmptyNode is returned for a source without any tokens.
	EmptyNode() Expression
}

// TableDelegate is the Delegate backed by an OperatorTable and an optional
// name resolver.
type TableDelegate struct {
	Table    *OperatorTable
	Resolver Resolver
}

func (d TableDelegate) Function(name string) (*Function, bool) { return d.Table.Function(name) }
func (d TableDelegate) Constant(name string) (Value, bool) { return d.Table.Constant(name) }
func (d TableDelegate) Binary(name string) (*BinaryOperator, bool) { return d.Table.Binary(name) }
func (d TableDelegate) Unary(name string) (*UnaryOperator, bool) { return d.Table.Unary(name) }
func (d TableDelegate) EmptyNode() Expression { return Constant{Value: Int(0)} }

func (d TableDelegate) Reference(name string) (ReferenceID, bool) {
	if d.Resolver == nil {
		return 0, false
	}
	return d.Resolver.ReferenceFor(name)
}

// Parser turns expression source into an Expression using a two-stack
// shunting-yard algorithm.
type Parser struct {
	Tokenizer *Tokenizer
	Delegate  Delegate
}

// NewParser returns a parser for the default grammar.
func NewParser(table *OperatorTable, names Resolver) *Parser {
	return &Parser{
		Tokenizer: ExpressionRules(),
		Delegate:  TableDelegate{Table: table, Resolver: names},
	}
}

// Parse parses src with the default operator table and no references.
func Parse(src string) (Expression, error) {
	return NewParser(DefaultTable(), nil).Parse(src)
}

// MustParse is like Parse but panics on error. It is meant for tests and
// static tables.
func MustParse(src string) Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type entryKind int

const (
	entryParen entryKind = iota
	entryFunction
	entryUnary
	entryBinary
)

type opEntry struct {
	kind   entryKind
	tok    Token
	fn     *Function
	unary  *UnaryOperator
	binary *BinaryOperator
}

func (e opEntry) precedence() int {
	if e.kind == entryUnary {
		return e.unary.Precedence
	}
	return e.binary.Precedence
}

type parseState struct {
	d          Delegate
	ops        []opEntry
	out        []Expression
	wereValues []bool
	argCounts  []int
	prev       *Token
	expectCall bool
}

func (p *Parser) Parse(src string) (Expression, error) {
	tokens := p.Tokenizer.All(src)
	if len(tokens) == 1 {
		return p.Delegate.EmptyNode(), nil
	}
	st := &parseState{d: p.Delegate}
	for i, tok := range tokens[:len(tokens)-1] {
		if err := st.consume(tok, tokens[i+1]); err != nil {
			return nil, err
		}
		st.prev = &tokens[i]
	}
	return st.finish(tokens[len(tokens)-1])
}

func (st *parseState) consume(tok, next Token) error {
	if st.expectCall && tok.Type != TokenParenOpen {
		return parseErr(ErrUnexpectedToken, tok, "expected ( after function name")
	}
	switch tok.Type {
	case TokenIdentifier:
		return st.identifier(tok, next)
	case TokenInt, TokenDouble, TokenString, TokenHexColor:
		v, err := literal(tok)
		if err != nil {
			return err
		}
		return st.pushAtom(tok, Constant{Value: v})
	case TokenSeparator:
		return st.separator(tok)
	case TokenOperator:
		return st.operator(tok)
	case TokenParenOpen:
		if st.atomJustEmitted() {
			return parseErr(ErrUnexpectedToken, tok, "( after a value")
		}
		st.expectCall = false
		st.ops = append(st.ops, opEntry{kind: entryParen, tok: tok})
		return nil
	case TokenParenClose:
		return st.closeParen(tok)
	default:
		return parseErr(ErrUnexpectedToken, tok, "")
	}
}

func (st *parseState) identifier(tok, next Token) error {
	name := tok.Text
	if f, ok := st.d.Function(name); ok {
		if st.atomJustEmitted() {
			return parseErr(ErrUnexpectedToken, tok, "function after a value")
		}
		st.ops = append(st.ops, opEntry{kind: entryFunction, tok: tok, fn: f})
		st.argCounts = append(st.argCounts, 0)
		st.markValue()
		st.wereValues = append(st.wereValues, false)
		st.expectCall = true
		return nil
	}
	switch name {
	case "true":
		return st.pushAtom(tok, Constant{Value: Bool(true)})
	case "false":
		return st.pushAtom(tok, Constant{Value: Bool(false)})
	}
	if v, ok := st.d.Constant(name); ok {
		return st.pushAtom(tok, NamedConstant{Name: name, Value: v})
	}
	if id, ok := st.d.Reference(name); ok {
		return st.pushAtom(tok, Reference{ID: id})
	}
	if next.Type == TokenParenOpen {
		return parseErr(ErrUnknownFunction, tok, "%q", name)
	}
	return parseErr(ErrUnexpectedToken, tok, "unknown name %q", name)
}

// atomJustEmitted reports whether the previous token produced a value.
func (st *parseState) atomJustEmitted() bool {
	if st.prev == nil {
		return false
	}
	switch st.prev.Type {
	case TokenInt, TokenDouble, TokenString, TokenHexColor, TokenParenClose:
		return true
	case TokenIdentifier:
		_, isFunc := st.d.Function(st.prev.Text)
		return !isFunc
	}
	return false
}

// markValue records that the innermost argument list received a value.
func (st *parseState) markValue() {
	if n := len(st.wereValues); n > 0 {
		st.wereValues[n-1] = true
	}
}

func (st *parseState) pushAtom(tok Token, e Expression) error {
	if st.atomJustEmitted() {
		return parseErr(ErrUnexpectedToken, tok, "expected an operator")
	}
	st.out = append(st.out, e)
	st.markValue()
	return nil
}

func (st *parseState) separator(tok Token) error {
	for {
		if len(st.ops) == 0 {
			return parseErr(ErrMismatchedToken, tok, "separator outside of an argument list")
		}
		top := st.ops[len(st.ops)-1]
		if top.kind == entryParen {
			break
		}
		if err := st.reduceTop(); err != nil {
			return err
		}
	}
	// The paren must belong to a function call.
	if len(st.ops) < 2 || st.ops[len(st.ops)-2].kind != entryFunction {
		return parseErr(ErrMismatchedToken, tok, "separator outside of an argument list")
	}
	n := len(st.wereValues)
	if n == 0 {
		return parseErr(ErrInvalidState, tok, "no argument list")
	}
	if !st.wereValues[n-1] {
		return parseErr(ErrMissingOperand, tok, "empty argument")
	}
	st.argCounts[len(st.argCounts)-1]++
	st.wereValues[n-1] = false
	return nil
}

func (st *parseState) operator(tok Token) error {
	if st.unaryAllowed() {
		op, ok := st.d.Unary(tok.Text)
		if !ok {
			if _, isBinary := st.d.Binary(tok.Text); isBinary {
				return parseErr(ErrMissingOperand, tok, "no left operand")
			}
			return parseErr(ErrUnknownOperator, tok, "")
		}
		st.ops = append(st.ops, opEntry{kind: entryUnary, tok: tok, unary: op})
		return nil
	}
	op, ok := st.d.Binary(tok.Text)
	if !ok {
		return parseErr(ErrUnknownOperator, tok, "")
	}
	for len(st.ops) > 0 {
		top := st.ops[len(st.ops)-1]
		if top.kind != entryUnary && top.kind != entryBinary {
			break
		}
		tp := top.precedence()
		if tp > op.Precedence || (tp == op.Precedence && op.Assoc == LeftAssoc) {
			if err := st.reduceTop(); err != nil {
				return err
			}
			continue
		}
		break
	}
	st.ops = append(st.ops, opEntry{kind: entryBinary, tok: tok, binary: op})
	return nil
}

// unaryAllowed is true at the start of input and right after an operator, a
// separator or an opening parenthesis.
func (st *parseState) unaryAllowed() bool {
	if st.prev == nil {
		return true
	}
	switch st.prev.Type {
	case TokenOperator, TokenSeparator, TokenParenOpen:
		return true
	}
	return false
}

func (st *parseState) closeParen(tok Token) error {
	for {
		if len(st.ops) == 0 {
			return parseErr(ErrMismatchedToken, tok, "no matching (")
		}
		if st.ops[len(st.ops)-1].kind == entryParen {
			break
		}
		if err := st.reduceTop(); err != nil {
			return err
		}
	}
	open := st.ops[len(st.ops)-1]
	st.ops = st.ops[:len(st.ops)-1]

	if len(st.ops) > 0 && st.ops[len(st.ops)-1].kind == entryFunction {
		fnEntry := st.ops[len(st.ops)-1]
		st.ops = st.ops[:len(st.ops)-1]
		argc := st.argCounts[len(st.argCounts)-1]
		st.argCounts = st.argCounts[:len(st.argCounts)-1]
		if st.wereValues[len(st.wereValues)-1] {
			argc++
		} else if argc > 0 {
			return parseErr(ErrMissingOperand, tok, "empty argument")
		}
		st.wereValues = st.wereValues[:len(st.wereValues)-1]
		if len(st.out) < argc {
			return parseErr(ErrMissingOperand, fnEntry.tok, "")
		}
		args := make([]Expression, argc)
		copy(args, st.out[len(st.out)-argc:])
		st.out = st.out[:len(st.out)-argc]
		st.out = append(st.out, Call{Func: fnEntry.fn, Args: args})
		return nil
	}

	if st.prev != nil && st.prev.Type == TokenParenOpen {
		return parseErr(ErrMissingOperand, open.tok, "empty parentheses")
	}
	return nil
}

// reduceTop pops the top operator and combines it with its operands.
func (st *parseState) reduceTop() error {
	top := st.ops[len(st.ops)-1]
	st.ops = st.ops[:len(st.ops)-1]
	switch top.kind {
	case entryUnary:
		if len(st.out) < 1 {
			return parseErr(ErrMissingOperand, top.tok, "")
		}
		operand := st.out[len(st.out)-1]
		st.out[len(st.out)-1] = Unary{Op: top.unary, Operand: operand}
	case entryBinary:
		if len(st.out) < 2 {
			return parseErr(ErrMissingOperand, top.tok, "")
		}
		l, r := st.out[len(st.out)-2], st.out[len(st.out)-1]
		st.out = st.out[:len(st.out)-2]
		st.out = append(st.out, Binary{Op: top.binary, Left: l, Right: r})
	default:
		return parseErr(ErrInvalidState, top.tok, "cannot reduce")
	}
	return nil
}

func (st *parseState) finish(eof Token) (Expression, error) {
	if st.expectCall {
		return nil, parseErr(ErrUnexpectedEndOfArgumentList, eof, "")
	}
	for len(st.ops) > 0 {
		top := st.ops[len(st.ops)-1]
		switch top.kind {
		case entryParen:
			if len(st.ops) > 1 && st.ops[len(st.ops)-2].kind == entryFunction {
				return nil, parseErr(ErrUnexpectedEndOfArgumentList, eof, "")
			}
			return nil, parseErr(ErrMismatchedToken, top.tok, "unclosed (")
		case entryFunction:
			return nil, parseErr(ErrUnexpectedEndOfArgumentList, eof, "")
		}
		if err := st.reduceTop(); err != nil {
			return nil, err
		}
	}
	switch len(st.out) {
	case 1:
		return st.out[0], nil
	case 0:
		return nil, parseErr(ErrMissingOperand, eof, "")
	default:
		return nil, parseErr(ErrInvalidState, eof, "%d values left on the output stack", len(st.out))
	}
}

func literal(tok Token) (Value, error) {
	switch tok.Type {
	case TokenInt:
		n, err := strconv.Atoi(tok.Text)
		if err != nil {
			f, ferr := strconv.ParseFloat(tok.Text, 64)
			if ferr != nil {
				return Value{}, parseErr(ErrUnexpectedToken, tok, "invalid integer")
			}
			return Double(f), nil
		}
		return Int(n), nil
	case TokenDouble:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return Value{}, parseErr(ErrUnexpectedToken, tok, "invalid number")
		}
		return Double(f), nil
	case TokenString:
		if len(tok.Text) < 2 || !strings.HasSuffix(tok.Text, `"`) {
			return Value{}, parseErr(ErrUnexpectedToken, tok, "unterminated string")
		}
		return String(tok.Text[1 : len(tok.Text)-1]), nil
	case TokenHexColor:
		c, ok := ParseHexColor(tok.Text)
		if !ok {
			return Value{}, parseErr(ErrUnexpectedToken, tok, "invalid color, want #rrggbb or #rrggbbaa")
		}
		return ColorValue(c), nil
	}
	return Value{}, parseErr(ErrUnexpectedToken, tok, "")
}
