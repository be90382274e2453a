package sim

import (
	"fmt"
	"strconv"

	"github.com/funvibe/varobj/internal/target"
)

// expression is a parsed expression bound to the block it was parsed
// against. It keeps the AST; evaluation just walks it against a frame.
type expression struct {
	s         *Session
	text      string
	root      exprNode
	innermost *target.Block
}

var _ target.Expression = (*expression)(nil)

// Parse parses text against a lexical block (nil for globals only).
// Identifiers are resolved at parse time, so an unknown name is a
// parse error, the same way a symtab lookup failure is.
func (s *Session) Parse(text string, block *target.Block) (target.Expression, error) {
	p := newExprParser(s, text, block)
	n, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &expression{s: s, text: text, root: n, innermost: p.innermost}, nil
}

func (e *expression) Text() string { return e.text }

func (e *expression) Language() target.Language { return e.s.Lang }

func (e *expression) IsTypeName() bool {
	_, ok := e.root.(*typeNameNode)
	return ok
}

func (e *expression) InnermostBlock() *target.Block { return e.innermost }

func (e *expression) Evaluate(f target.Frame) (target.Value, error) {
	v, err := e.s.eval(e.root, f)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (e *expression) EvaluateType() (*target.Type, error) {
	return e.s.evalType(e.root)
}

func (s *Session) eval(n exprNode, f target.Frame) (*simValue, error) {
	switch n := n.(type) {
	case *typeNameNode:
		return nil, fmt.Errorf("attempt to use a type name as an expression")

	case *intNode:
		c := &cell{typ: s.types["int"], scalar: n.v}
		return newSimValue(s, s.types["int"], c), nil

	case *floatNode:
		c := &cell{typ: s.types["double"], fscalar: n.v}
		return newSimValue(s, s.types["double"], c), nil

	case *identNode:
		var c *cell
		if n.block == nil {
			c = s.globals[n.name]
		} else if fr, ok := f.(*frame); ok && fr != nil {
			c = fr.cells[n.name]
		}
		if c == nil {
			return nil, fmt.Errorf("no symbol %q in current context", n.name)
		}
		return newSimValue(s, n.typ, c), nil

	case *unaryNode:
		x, err := s.eval(n.x, f)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case tokStar:
			v, err := x.Deref()
			if err != nil {
				return nil, err
			}
			return v.(*simValue), nil
		case tokAmp:
			st, err := x.storage()
			if err != nil {
				return nil, err
			}
			pt := target.PointerTo(x.typ)
			c := &cell{typ: pt, pointee: st, scalar: int64(st.addr)}
			return newSimValue(s, pt, c), nil
		default: // tokMinus
			r := x.typ.Resolve()
			c := &cell{typ: r}
			if r.Kind == target.KindFloat {
				c.fscalar = -x.snap.fscalar
			} else {
				c.scalar = -x.snap.scalar
			}
			return newSimValue(s, x.typ, c), nil
		}

	case *fieldNode:
		x, err := s.eval(n.x, f)
		if err != nil {
			return nil, err
		}
		if n.arrow {
			r := x.typ.Resolve()
			if r.Kind != target.KindPointer && r.Kind != target.KindReference {
				return nil, fmt.Errorf("-> applied to non-pointer type %s", x.typ)
			}
		}
		v, err := x.Field(n.name)
		if err != nil {
			return nil, err
		}
		return v.(*simValue), nil

	case *indexNode:
		x, err := s.eval(n.x, f)
		if err != nil {
			return nil, err
		}
		iv, err := s.eval(n.index, f)
		if err != nil {
			return nil, err
		}
		r := x.typ.Resolve()
		if r.Kind == target.KindPointer {
			base, err := x.Deref()
			if err != nil {
				return nil, err
			}
			if iv.snap.scalar != 0 {
				return nil, fmt.Errorf("pointer indexing beyond element 0 is not simulated")
			}
			return base.(*simValue), nil
		}
		v, err := x.Index(int(iv.snap.scalar))
		if err != nil {
			return nil, err
		}
		return v.(*simValue), nil

	case *castNode:
		x, err := s.eval(n.x, f)
		if err != nil {
			return nil, err
		}
		v, err := x.Cast(n.to)
		if err != nil {
			return nil, err
		}
		return v.(*simValue), nil
	}
	return nil, fmt.Errorf("cannot evaluate expression")
}

// evalType computes the static type of an expression without touching
// any frame's storage.
func (s *Session) evalType(n exprNode) (*target.Type, error) {
	switch n := n.(type) {
	case *typeNameNode:
		return n.typ, nil
	case *intNode:
		return s.types["int"], nil
	case *floatNode:
		return s.types["double"], nil
	case *identNode:
		return n.typ, nil
	case *unaryNode:
		xt, err := s.evalType(n.x)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case tokStar:
			r := xt.Resolve()
			if r.Kind != target.KindPointer && r.Kind != target.KindReference {
				return nil, fmt.Errorf("cannot dereference type %s", xt)
			}
			return r.Elem, nil
		case tokAmp:
			return target.PointerTo(xt), nil
		default:
			return xt, nil
		}
	case *fieldNode:
		xt, err := s.evalType(n.x)
		if err != nil {
			return nil, err
		}
		r := xt.Resolve()
		if r.Kind == target.KindPointer || r.Kind == target.KindReference {
			r = r.Target()
		}
		if r == nil {
			return nil, fmt.Errorf("no member %q", n.name)
		}
		fld, ok := r.LookupField(n.name)
		if !ok {
			return nil, fmt.Errorf("no member %q in %s", n.name, r)
		}
		return fld.Type, nil
	case *indexNode:
		xt, err := s.evalType(n.x)
		if err != nil {
			return nil, err
		}
		r := xt.Resolve()
		if r.Kind != target.KindArray && r.Kind != target.KindPointer {
			return nil, fmt.Errorf("cannot subscript type %s", xt)
		}
		return r.Elem, nil
	case *castNode:
		return n.to, nil
	}
	return nil, fmt.Errorf("cannot type expression")
}

// Render formats a scalar value the way the console would print it.
// Aggregates render empty; the variable-object layer substitutes its
// own {...} and [N] placeholders for those.
func (s *Session) Render(v target.Value, f target.Format) string {
	sv, ok := v.(*simValue)
	if !ok || sv.c == nil {
		return ""
	}
	r := sv.typ.Resolve()

	switch r.Kind {
	case target.KindPointer, target.KindReference:
		var addr uint64
		if sv.snap.pointee != nil {
			addr = sv.snap.pointee.addr
		}
		return fmt.Sprintf("0x%x", addr)

	case target.KindFloat:
		return strconv.FormatFloat(sv.snap.fscalar, 'g', -1, 64)

	case target.KindBool:
		if sv.snap.scalar != 0 {
			return "true"
		}
		return "false"

	case target.KindChar:
		if f == target.FormatNatural {
			return fmt.Sprintf("%d '%c'", sv.snap.scalar, rune(sv.snap.scalar))
		}
		return formatInt(sv.snap.scalar, f)

	case target.KindInt, target.KindEnum:
		return formatInt(sv.snap.scalar, f)
	}
	return ""
}

func formatInt(v int64, f target.Format) string {
	switch f {
	case target.FormatBinary:
		return strconv.FormatInt(v, 2)
	case target.FormatHexadecimal:
		return "0x" + strconv.FormatUint(uint64(v), 16)
	case target.FormatOctal:
		return "0" + strconv.FormatUint(uint64(v), 8)
	case target.FormatUnsigned:
		return strconv.FormatUint(uint64(v), 10)
	default:
		return strconv.FormatInt(v, 10)
	}
}
