/*
expr.go - Derivation expressions

PURPOSE:
  Parses and evaluates the small formula language used by derived fields:

    TaxAmount      = BaseAmount * TaxRate
    TotalValue     = sum(services)
    PendingBalance = if(PaymentStatus == "Received", 0,
                        DiscountedTotal - coalesce(AdvanceAmount, 0))

GRAMMAR:
  expr       := comparison
  comparison := additive [ ("==" | "!=" | "<" | "<=" | ">" | ">=") additive ]
  additive   := term { ("+" | "-") term }
  term       := unary { ("*" | "/") unary }
  unary      := "-" unary | primary
  primary    := number | string | ident | ident "(" [ expr { "," expr } ] ")"
              | "(" expr ")"

BLANK SEMANTICS:
  - Arithmetic with a blank operand is blank.
  - sum() is blank only when every input is blank; otherwise blanks count as 0.
  - Comparisons involving blank are false, except blank == blank.

RECOVERED FAILURES:
  Division by zero yields 0, avg() of nothing yields 0, arithmetic on text
  yields blank. Each is recorded as a DerivationError on the record.

SEE ALSO:
  - schema.go: checks identifiers and arity at build time
  - derive.go: evaluates expressions in dependency order
*/
package engine

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Expr is a parsed derivation expression.
type Expr struct {
	src  string
	root node
}

func (e *Expr) String() string { return e.src }

// ParseExpr parses src. Identifiers are not resolved here; see Schema.
func ParseExpr(src string) (*Expr, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.tok.text, p.tok.pos)
	}
	return &Expr{src: src, root: root}, nil
}

// Refs returns every identifier the expression references, in first-use order.
func (e *Expr) Refs() []string {
	var refs []string
	seen := make(map[string]bool)
	walk(e.root, func(n node) {
		if id, ok := n.(*identNode); ok && !seen[id.name] {
			seen[id.name] = true
			refs = append(refs, id.name)
		}
	})
	return refs
}

// =============================================================================
// LEXER
// =============================================================================

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src)} }

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.src[l.pos]

	switch {
	case unicode.IsDigit(c) || (c == '.' && l.pos+1 < len(l.src) && unicode.IsDigit(l.src[l.pos+1])):
		for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return token{kind: tokNumber, text: string(l.src[start:l.pos]), pos: start}, nil

	case c == '_' || unicode.IsLetter(c):
		for l.pos < len(l.src) && isIdentRune(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos]), pos: start}, nil

	case c == '"':
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
				l.pos++
			}
			sb.WriteRune(l.src[l.pos])
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("unterminated string at offset %d", start)
		}
		l.pos++
		return token{kind: tokString, text: sb.String(), pos: start}, nil
	}

	if l.pos+1 < len(l.src) {
		two := string(l.src[l.pos : l.pos+2])
		switch two {
		case "==", "!=", "<=", ">=":
			l.pos += 2
			return token{kind: tokOp, text: two, pos: start}, nil
		}
	}
	switch c {
	case '+', '-', '*', '/', '(', ')', ',', '<', '>':
		l.pos++
		return token{kind: tokOp, text: string(c), pos: start}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q at offset %d", c, start)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsIdentifier reports whether name can be referenced from an expression.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if !isIdentRune(r) || (i == 0 && unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// =============================================================================
// PARSER
// =============================================================================

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) isOp(ops ...string) bool {
	if p.tok.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if p.tok.text == op {
			return true
		}
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.isOp(op) {
		return fmt.Errorf("expected %q at offset %d, found %q", op, p.tok.pos, p.tok.text)
	}
	return p.advance()
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.isOp("==", "!=", "<", "<=", ">", ">=") {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &cmpNode{op: op, l: left, r: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.tok.text[0]
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binNode{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/") {
		op := p.tok.text[0]
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binNode{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.isOp("-") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negNode{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.tok
	switch tok.kind {
	case tokNumber:
		d, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at offset %d", tok.text, tok.pos)
		}
		return &numLit{val: d}, p.advance()

	case tokString:
		return &strLit{val: tok.text}, p.advance()

	case tokIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isOp("(") {
			return &identNode{name: tok.text}, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		call := &callNode{name: strings.ToLower(tok.text), pos: tok.pos}
		if p.isOp(")") {
			return call, p.advance()
		}
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.args = append(call.args, arg)
			if p.isOp(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		return call, p.expect(")")

	case tokOp:
		if tok.text == "(" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return inner, p.expect(")")
		}
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", tok.text, tok.pos)
}

// =============================================================================
// AST
// =============================================================================

type node interface {
	eval(env *evalEnv) Value
	children() []node
}

type (
	numLit    struct{ val decimal.Decimal }
	strLit    struct{ val string }
	identNode struct{ name string }
	negNode   struct{ x node }
	binNode   struct {
		op   byte
		l, r node
	}
	cmpNode struct {
		op   string
		l, r node
	}
	callNode struct {
		name string
		args []node
		pos  int
	}
)

func (n *numLit) children() []node    { return nil }
func (n *strLit) children() []node    { return nil }
func (n *identNode) children() []node { return nil }
func (n *negNode) children() []node   { return []node{n.x} }
func (n *binNode) children() []node   { return []node{n.l, n.r} }
func (n *cmpNode) children() []node   { return []node{n.l, n.r} }
func (n *callNode) children() []node  { return n.args }

func walk(n node, fn func(node)) {
	fn(n)
	for _, c := range n.children() {
		walk(c, fn)
	}
}

// =============================================================================
// EVALUATION
// =============================================================================

// evalEnv is the per-record evaluation state.
type evalEnv struct {
	values map[string]Value
	slots  map[string][]SubEntry
	groups map[string]*SlotGroup
	seq    RecordID
	field  string
	errs   []DerivationError
}

func (env *evalEnv) fail(cause string, fallback Value) Value {
	env.errs = append(env.errs, DerivationError{
		Field:    env.field,
		Record:   env.seq,
		Cause:    cause,
		Fallback: fallback,
	})
	return fallback
}

func (n *numLit) eval(*evalEnv) Value { return Number(n.val) }
func (n *strLit) eval(*evalEnv) Value { return Text(n.val) }

func (n *identNode) eval(env *evalEnv) Value {
	return env.values[n.name]
}

func (n *negNode) eval(env *evalEnv) Value {
	v := n.x.eval(env)
	switch v.Kind {
	case KindBlank:
		return v
	case KindNumber:
		return Number(v.Num.Neg())
	}
	return env.fail("negation of non-numeric value", Blank())
}

func (n *binNode) eval(env *evalEnv) Value {
	l, r := n.l.eval(env), n.r.eval(env)
	if l.IsBlank() || r.IsBlank() {
		return Blank()
	}
	if !l.IsNumber() || !r.IsNumber() {
		return env.fail(fmt.Sprintf("arithmetic %q on %s and %s", n.op, l.Kind, r.Kind), Blank())
	}
	switch n.op {
	case '+':
		return Number(l.Num.Add(r.Num))
	case '-':
		return Number(l.Num.Sub(r.Num))
	case '*':
		return Number(l.Num.Mul(r.Num))
	default:
		if r.Num.IsZero() {
			return env.fail("division by zero", NumberFromInt(0))
		}
		return Number(l.Num.Div(r.Num))
	}
}

func (n *cmpNode) eval(env *evalEnv) Value {
	return boolValue(compareValues(n.op, n.l.eval(env), n.r.eval(env)))
}

func compareValues(op string, l, r Value) bool {
	switch op {
	case "==":
		return l.Equal(r)
	case "!=":
		return !l.Equal(r)
	}
	if l.Kind != r.Kind || l.IsBlank() {
		return false
	}
	var c int
	switch l.Kind {
	case KindNumber:
		c = l.Num.Cmp(r.Num)
	case KindText:
		c = strings.Compare(l.Text, r.Text)
	case KindDate:
		switch {
		case l.Date.Before(r.Date):
			c = -1
		case l.Date.After(r.Date):
			c = 1
		}
	}
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func boolValue(b bool) Value {
	if b {
		return NumberFromInt(1)
	}
	return NumberFromInt(0)
}

func (n *callNode) eval(env *evalEnv) Value {
	fn, ok := functions[n.name]
	if !ok {
		return env.fail("unknown function "+n.name, Blank())
	}
	return fn.call(env, n.args)
}
