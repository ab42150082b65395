package expr

import (
	"fmt"
	"strconv"
)

// Node is a compiled expression.
type Node interface {
	// Eval evaluates the node against the environment. It never fails; any
	// reference to missing data yields the undefined value.
	Eval(env *Env) Value
}

type numberLit struct {
	val float64
}

type identNode struct {
	name string
}

type unaryNode struct {
	op tokenKind // tokNot or tokMinus
	x  Node
}

type binaryNode struct {
	op   tokenKind
	l, r Node
}

// Parse compiles an expression into an AST.
func Parse(input string) (Node, error) {
	toks, err := scan(input)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", input, err)
	}
	p := &parser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", input, err)
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("parsing %q: unexpected %q at %d", input, p.peek().text, p.peek().pos)
	}
	return node, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: tokOr, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (Node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: tokAnd, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.peek().kind == tokNot {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: tokNot, x: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	l, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch op := p.peek().kind; op {
	case tokLT, tokLE, tokGT, tokGE, tokEQ, tokNE:
		p.next()
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: op, l: l, r: r}, nil
	}
	return l, nil
}

func (p *parser) parseAdditive() (Node, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokPlus && op != tokMinus {
			return l, nil
		}
		p.next()
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokStar && op != tokSlash {
			return l, nil
		}
		p.next()
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().kind == tokMinus {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: tokMinus, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q at %d", t.text, t.pos)
		}
		return &numberLit{val: f}, nil
	case tokIdent:
		return &identNode{name: t.text}, nil
	case tokLParen:
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing ')' at %d", t.pos)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
	}
}

// Identifiers returns every identifier referenced by the expression, in
// first-occurrence order. Used to find indicator references in rule text.
func Identifiers(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch node := n.(type) {
		case *identNode:
			if !seen[node.name] {
				seen[node.name] = true
				names = append(names, node.name)
			}
		case *unaryNode:
			walk(node.x)
		case *binaryNode:
			walk(node.l)
			walk(node.r)
		}
	}
	walk(n)
	return names
}
