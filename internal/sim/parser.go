package sim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/varobj/internal/target"
)

// The expression grammar covers what a debugger front end actually
// sends: variables, member access through . and ->, array indexing,
// dereference, address-of, numeric literals and C-style casts.

type exprNode interface{}

type identNode struct {
	name  string
	block *target.Block // defining block, nil for globals
	typ   *target.Type  // declared type
}

type typeNameNode struct {
	typ *target.Type
}

type intNode struct{ v int64 }

type floatNode struct{ v float64 }

type unaryNode struct {
	op tokenType // tokStar, tokAmp or tokMinus
	x  exprNode
}

type fieldNode struct {
	x     exprNode
	name  string
	arrow bool
}

type indexNode struct {
	x     exprNode
	index exprNode
}

type castNode struct {
	to *target.Type
	x  exprNode
}

type exprParser struct {
	s      *Session
	block  *target.Block
	tokens []exprToken
	pos    int

	// deepest defining block seen among referenced variables
	innermost *target.Block
}

func newExprParser(s *Session, input string, block *target.Block) *exprParser {
	l := newExprLexer(input)
	p := &exprParser{s: s, block: block}
	for {
		t := l.NextToken()
		p.tokens = append(p.tokens, t)
		if t.typ == tokEOF {
			break
		}
	}
	return p
}

func (p *exprParser) cur() exprToken  { return p.tokens[p.pos] }
func (p *exprParser) peek() exprToken { return p.tokens[p.min(p.pos+1)] }

func (p *exprParser) min(i int) int {
	if i >= len(p.tokens) {
		return len(p.tokens) - 1
	}
	return i
}

func (p *exprParser) advance() { p.pos = p.min(p.pos + 1) }

func (p *exprParser) expect(t tokenType, what string) error {
	if p.cur().typ != t {
		return fmt.Errorf("expected %s near %q", what, p.cur().literal)
	}
	p.advance()
	return nil
}

// parse parses the whole input. A bare identifier naming a type is
// accepted and reported as a type name rather than a value.
func (p *exprParser) parse() (exprNode, error) {
	if p.cur().typ == tokIdent && p.peek().typ == tokEOF {
		name := p.cur().literal
		if _, _, ok := p.lookup(name); !ok {
			if t, isType := p.s.types[name]; isType {
				return &typeNameNode{typ: t}, nil
			}
		}
	}
	n, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.cur().typ != tokEOF {
		return nil, fmt.Errorf("junk after expression: %q", p.cur().literal)
	}
	return n, nil
}

func (p *exprParser) parseUnary() (exprNode, error) {
	switch p.cur().typ {
	case tokStar, tokAmp, tokMinus:
		op := p.cur().typ
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, x: x}, nil
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() (exprNode, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().typ {
		case tokDot, tokArrow:
			arrow := p.cur().typ == tokArrow
			p.advance()
			if p.cur().typ != tokIdent {
				return nil, fmt.Errorf("expected member name after %q", map[bool]string{true: "->", false: "."}[arrow])
			}
			x = &fieldNode{x: x, name: p.cur().literal, arrow: arrow}
			p.advance()
		case tokLBracket:
			p.advance()
			idx, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRBracket, "]"); err != nil {
				return nil, err
			}
			x = &indexNode{x: x, index: idx}
		default:
			return x, nil
		}
	}
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	switch p.cur().typ {
	case tokInt:
		lit := p.cur().literal
		p.advance()
		base := 10
		if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
			base = 16
			lit = lit[2:]
		}
		v, err := strconv.ParseInt(lit, base, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer literal %q", p.tokens[p.pos-1].literal)
		}
		return &intNode{v: v}, nil

	case tokFloat:
		v, err := strconv.ParseFloat(p.cur().literal, 64)
		if err != nil {
			return nil, fmt.Errorf("bad float literal %q", p.cur().literal)
		}
		p.advance()
		return &floatNode{v: v}, nil

	case tokIdent:
		name := p.cur().literal
		p.advance()
		block, typ, ok := p.lookup(name)
		if !ok {
			return nil, fmt.Errorf("no symbol %q in current context", name)
		}
		if block != nil && deeper(block, p.innermost) {
			p.innermost = block
		}
		return &identNode{name: name, block: block, typ: typ}, nil

	case tokLParen:
		if t, ok := p.tryCastType(); ok {
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &castNode{to: t, x: x}, nil
		}
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return x, nil
	}
	return nil, fmt.Errorf("unexpected %q in expression", p.cur().literal)
}

// tryCastType recognizes "( TypeName * * ... )" or "( TypeName )" at
// the current position and consumes it, returning the named type with
// pointer or reference qualifiers applied. A name that is shadowed by
// a variable in scope is not a type here.
func (p *exprParser) tryCastType() (*target.Type, bool) {
	if p.cur().typ != tokLParen || p.peek().typ != tokIdent {
		return nil, false
	}
	name := p.peek().literal
	t, isType := p.s.types[name]
	if !isType {
		return nil, false
	}
	if _, _, shadowed := p.lookup(name); shadowed {
		return nil, false
	}

	i := p.pos + 2
	for i < len(p.tokens) && (p.tokens[i].typ == tokStar || p.tokens[i].typ == tokAmp) {
		i++
	}
	if i >= len(p.tokens) || p.tokens[i].typ != tokRParen {
		return nil, false
	}

	p.pos += 2
	for p.cur().typ == tokStar || p.cur().typ == tokAmp {
		if p.cur().typ == tokStar {
			t = target.PointerTo(t)
		} else {
			t = target.ReferenceTo(t)
		}
		p.advance()
	}
	p.advance() // ')'
	return t, true
}

// lookup resolves an identifier against the parse block's chain, then
// the globals.
func (p *exprParser) lookup(name string) (*target.Block, *target.Type, bool) {
	for b := p.block; b != nil; b = b.Parent {
		if d, ok := p.s.decls[b]; ok {
			for _, v := range d.Vars {
				if v.Name == name {
					return b, v.Type, true
				}
			}
		}
	}
	if t, ok := p.s.globalTypes[name]; ok {
		return nil, t, true
	}
	return nil, nil, false
}

// deeper reports whether a is nested inside b (nil b means "no block
// yet", which anything beats).
func deeper(a, b *target.Block) bool {
	if b == nil {
		return true
	}
	for x := a; x != nil; x = x.Parent {
		if x == b {
			return true
		}
	}
	return false
}
