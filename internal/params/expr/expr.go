// Package expr parses and evaluates the arithmetic constraint expressions that
// link parameters together, e.g. "phases.pbso4.cell.length_a" or
// "2*{sample.scale} + sqrt(x.y)".
package expr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Lookup resolves an identifier to its current value.
type Lookup func(id string) (float64, bool)

// Expr is a parsed constraint expression.
type Expr struct {
	src  string
	root node
	vars []string
}

// Parse compiles src into an expression tree.
func Parse(src string) (*Expr, error) {
	p := &parser{lex: lexer{src: src}}
	p.next()
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.errorf("")
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	set := map[string]struct{}{}
	root.collect(set)
	vars := make([]string, 0, len(set))
	for v := range set {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return &Expr{src: strings.TrimSpace(src), root: root, vars: vars}, nil
}

// MustParse is Parse for expressions known at compile time.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the normalized source.
func (e *Expr) String() string { return e.src }

// Vars lists referenced identifiers, sorted and unique.
func (e *Expr) Vars() []string { return append([]string(nil), e.vars...) }

// IsConstant reports whether the expression references no identifiers.
func (e *Expr) IsConstant() bool { return len(e.vars) == 0 }

// Eval evaluates the expression. Unknown identifiers are errors; arithmetic
// that yields NaN or Inf is returned as is and left to the caller to judge.
func (e *Expr) Eval(lookup Lookup) (float64, error) {
	return e.root.eval(lookup)
}

type node interface {
	eval(Lookup) (float64, error)
	collect(map[string]struct{})
}

type numNode float64

func (n numNode) eval(Lookup) (float64, error)  { return float64(n), nil }
func (n numNode) collect(map[string]struct{}) {}

type refNode string

func (r refNode) eval(l Lookup) (float64, error) {
	v, ok := l(string(r))
	if !ok {
		return 0, fmt.Errorf("unknown identifier %q", string(r))
	}
	return v, nil
}
func (r refNode) collect(set map[string]struct{}) { set[string(r)] = struct{}{} }

type negNode struct{ x node }

func (n negNode) eval(l Lookup) (float64, error) {
	v, err := n.x.eval(l)
	return -v, err
}
func (n negNode) collect(set map[string]struct{}) { n.x.collect(set) }

type binNode struct {
	op   byte
	l, r node
}

func (b binNode) eval(l Lookup) (float64, error) {
	x, err := b.l.eval(l)
	if err != nil {
		return 0, err
	}
	y, err := b.r.eval(l)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return x + y, nil
	case '-':
		return x - y, nil
	case '*':
		return x * y, nil
	case '/':
		return x / y, nil
	case '^':
		return math.Pow(x, y), nil
	}
	return 0, fmt.Errorf("unknown operator %q", b.op)
}

func (b binNode) collect(set map[string]struct{}) {
	b.l.collect(set)
	b.r.collect(set)
}

type callNode struct {
	name string
	args []node
}

var unaryFuncs = map[string]func(float64) float64{
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"exp":  math.Exp,
	"log":  math.Log,
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"sind": func(d float64) float64 { return math.Sin(d * math.Pi / 180) },
	"cosd": func(d float64) float64 { return math.Cos(d * math.Pi / 180) },
}

var binaryFuncs = map[string]func(float64, float64) float64{
	"min": math.Min,
	"max": math.Max,
}

func (c callNode) eval(l Lookup) (float64, error) {
	vals := make([]float64, len(c.args))
	for i, a := range c.args {
		v, err := a.eval(l)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	if fn, ok := unaryFuncs[c.name]; ok {
		return fn(vals[0]), nil
	}
	return binaryFuncs[c.name](vals[0], vals[1]), nil
}

func (c callNode) collect(set map[string]struct{}) {
	for _, a := range c.args {
		a.collect(set)
	}
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		for l.pos < len(l.src) {
			ch := l.src[l.pos]
			if (ch >= '0' && ch <= '9') || ch == '.' {
				l.pos++
				continue
			}
			if (ch == 'e' || ch == 'E') && l.pos+1 < len(l.src) {
				nx := l.src[l.pos+1]
				if (nx >= '0' && nx <= '9') || nx == '+' || nx == '-' {
					l.pos += 2
					continue
				}
			}
			break
		}
		return token{kind: tokNum, text: l.src[start:l.pos], pos: start}, nil
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	case c == '{':
		end := strings.IndexByte(l.src[start:], '}')
		if end < 0 {
			return token{}, fmt.Errorf("unterminated identifier at %d", start)
		}
		l.pos = start + end + 1
		id := strings.TrimSpace(l.src[start+1 : start+end])
		if id == "" {
			return token{}, fmt.Errorf("empty identifier at %d", start)
		}
		return token{kind: tokIdent, text: id, pos: start}, nil
	case strings.IndexByte("+-*/^", c) >= 0:
		l.pos++
		return token{kind: tokOp, text: string(c), pos: start}, nil
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q at %d", c, start)
}

type parser struct {
	lex lexer
	tok token
	err error
}

func (p *parser) next() {
	if p.err != nil {
		return
	}
	tok, err := p.lex.next()
	if err != nil {
		p.err = err
		p.tok = token{kind: tokEOF}
		return
	}
	p.tok = tok
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	return fmt.Errorf("expression %q: %s", p.lex.src, fmt.Sprintf(format, args...))
}

// sum := product (("+"|"-") product)*
func (p *parser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text[0]
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, l: left, r: right}
	}
	return left, nil
}

// product := unary (("*"|"/") unary)*
func (p *parser) parseProduct() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text[0]
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, l: left, r: right}
	}
	return left, nil
}

// unary := ("-"|"+") unary | power
func (p *parser) parseUnary() (node, error) {
	if p.tok.kind == tokOp && (p.tok.text == "-" || p.tok.text == "+") {
		neg := p.tok.text == "-"
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if neg {
			return negNode{x: x}, nil
		}
		return x, nil
	}
	return p.parsePower()
}

// power := primary ("^" unary)?   (right associative)
func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokOp && p.tok.text == "^" {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binNode{op: '^', l: base, r: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (node, error) {
	switch p.tok.kind {
	case tokNum:
		v, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, p.errorf("bad number %q", p.tok.text)
		}
		p.next()
		return numNode(v), nil
	case tokIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind != tokLParen {
			return refNode(name), nil
		}
		return p.parseCall(name)
	case tokLParen:
		p.next()
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.next()
		return inner, nil
	case tokEOF:
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", p.tok.text)
}

func (p *parser) parseCall(name string) (node, error) {
	arity := 0
	if _, ok := unaryFuncs[name]; ok {
		arity = 1
	} else if _, ok := binaryFuncs[name]; ok {
		arity = 2
	} else {
		return nil, p.errorf("unknown function %q", name)
	}
	p.next() // consume "("
	var args []node
	for {
		arg, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tok.kind == tokComma {
			p.next()
			continue
		}
		break
	}
	if p.tok.kind != tokRParen {
		return nil, p.errorf("missing closing parenthesis after %s arguments", name)
	}
	p.next()
	if len(args) != arity {
		return nil, p.errorf("%s takes %d argument(s), got %d", name, arity, len(args))
	}
	return callNode{name: name, args: args}, nil
}
