// Package rules implements the Rule Engine: a hand-written
// recursive-descent parser and evaluator for the closed `when`
// grammar (spec §4.3). This is the one place the reasoner does not
// reach for github.com/expr-lang/expr even though the module uses it
// elsewhere (internal/trace) — see DESIGN.md: the spec requires
// rejecting any expression outside its three-atom, three-operator
// grammar, and a general-purpose expression language would happily
// accept syntax the grammar forbids.
package rules

import (
	"fmt"
	"strings"

	"github.com/qualphys/reasoner/internal/domain"
)

// EvalContext supplies the two kinds of facts a `when` expression can
// read: context flags, and the direction of nodes that are currently
// user-supplied seeds (spec §4.3).
type EvalContext interface {
	Flag(name string) bool
	SeedDirection(nodeID string) (domain.Direction, bool)
}

// Expr is a parsed `when` expression.
type Expr interface {
	Eval(ctx EvalContext) bool
	// NodeRefs returns every node id referenced by a `<node>.up` or
	// `<node>.down` atom, used by the loader to drop rules that
	// reference unknown nodes (spec §4.1).
	NodeRefs() []string
}

type literalExpr struct{ value bool }

func (l literalExpr) Eval(EvalContext) bool   { return l.value }
func (l literalExpr) NodeRefs() []string      { return nil }

type ctxAtom struct{ flag string }

func (a ctxAtom) Eval(ctx EvalContext) bool { return ctx.Flag(a.flag) }
func (a ctxAtom) NodeRefs() []string        { return nil }

type nodeAtom struct {
	nodeID    string
	direction domain.Direction
}

func (a nodeAtom) Eval(ctx EvalContext) bool {
	dir, ok := ctx.SeedDirection(a.nodeID)
	return ok && dir == a.direction
}
func (a nodeAtom) NodeRefs() []string { return []string{a.nodeID} }

type notExpr struct{ inner Expr }

func (n notExpr) Eval(ctx EvalContext) bool { return !n.inner.Eval(ctx) }
func (n notExpr) NodeRefs() []string        { return n.inner.NodeRefs() }

type andExpr struct{ left, right Expr }

func (e andExpr) Eval(ctx EvalContext) bool { return e.left.Eval(ctx) && e.right.Eval(ctx) }
func (e andExpr) NodeRefs() []string        { return append(e.left.NodeRefs(), e.right.NodeRefs()...) }

type orExpr struct{ left, right Expr }

func (e orExpr) Eval(ctx EvalContext) bool { return e.left.Eval(ctx) || e.right.Eval(ctx) }
func (e orExpr) NodeRefs() []string        { return append(e.left.NodeRefs(), e.right.NodeRefs()...) }

// tokenKind distinguishes the handful of token shapes the grammar needs.
type tokenKind int

const (
	tokAtom tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(raw string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(raw)
	for i < n {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen})
			i++
		default:
			start := i
			for i < n && raw[i] != ' ' && raw[i] != '\t' && raw[i] != '\n' && raw[i] != '\r' && raw[i] != '(' && raw[i] != ')' {
				i++
			}
			word := raw[start:i]
			switch strings.ToLower(word) {
			case "and":
				tokens = append(tokens, token{kind: tokAnd})
			case "or":
				tokens = append(tokens, token{kind: tokOr})
			case "not":
				tokens = append(tokens, token{kind: tokNot})
			default:
				tokens = append(tokens, token{kind: tokAtom, text: word})
			}
		}
	}
	tokens = append(tokens, token{kind: tokEOF})
	return tokens, nil
}

// parser is a straightforward recursive-descent parser over the
// and/or/not/atom grammar, lowest to highest precedence: or, and, not.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token   { return p.tokens[p.pos] }
func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.peek().kind == tokNot {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notExpr{inner: inner}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	t := p.advance()
	switch t.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ')'")
		}
		p.advance()
		return inner, nil
	case tokAtom:
		return parseAtomWord(t.text)
	default:
		return nil, fmt.Errorf("unexpected token in expression")
	}
}

func parseAtomWord(word string) (Expr, error) {
	switch strings.ToLower(word) {
	case "true":
		return literalExpr{value: true}, nil
	case "false":
		return literalExpr{value: false}, nil
	}
	if strings.HasPrefix(word, "ctx.") {
		flag := strings.TrimPrefix(word, "ctx.")
		if flag == "" {
			return nil, fmt.Errorf("empty context flag in %q", word)
		}
		return ctxAtom{flag: flag}, nil
	}
	if strings.HasSuffix(word, ".up") {
		return nodeAtom{nodeID: strings.TrimSuffix(word, ".up"), direction: domain.Up}, nil
	}
	if strings.HasSuffix(word, ".down") {
		return nodeAtom{nodeID: strings.TrimSuffix(word, ".down"), direction: domain.Down}, nil
	}
	return nil, fmt.Errorf("unrecognized atom %q: expected true, false, ctx.<flag>, or <node_id>.up/.down", word)
}

// Parse compiles a `when` expression. Any syntax outside the grammar
// in spec §4.3 is rejected rather than tolerated.
func Parse(raw string) (Expr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty expression")
	}
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input at %q", p.peek().text)
	}
	return expr, nil
}
