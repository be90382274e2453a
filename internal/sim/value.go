package sim

import (
	"fmt"

	"github.com/funvibe/varobj/internal/target"
)

// cell is one storage location of the simulated target. Aggregates own
// their member cells; pointers link to their pointee cell. A cell's
// typ is always the concrete (resolved) storage type: for a
// polymorphic object that is the most-derived class, whatever static
// type a value views it through.
type cell struct {
	typ        *target.Type
	addr       uint64
	scalar     int64
	fscalar    float64
	sub        []*cell // struct/class/union members (bases included) or array elements
	pointee    *cell   // pointer/reference target; nil = null
	unreadable bool
	lval       bool
}

// isPolymorphic reports whether the class carries a virtual table
// (directly or through a base), i.e. whether RTTI can identify it.
func isPolymorphic(t *target.Type) bool {
	r := t.Resolve()
	if r == nil {
		return false
	}
	for i := range r.Fields {
		if r.Fields[i].IsVTable {
			return true
		}
	}
	for i := 0; i < r.NumBases; i++ {
		if isPolymorphic(r.Fields[i].Type) {
			return true
		}
	}
	return false
}

func (s *Session) alloc(n int) uint64 {
	if n <= 0 {
		n = 1
	}
	a := s.nextAddr
	s.nextAddr += uint64(n)
	return a
}

// newCell allocates storage for typ, initialized from init:
// int/int64/float64/bool for scalars, map[string]any keyed by member
// (or base-class) name for aggregates, []any for arrays. Pointers
// start null; link them afterwards with Session.SetPointer.
func (s *Session) newCell(typ *target.Type, init any) *cell {
	r := typ.Resolve()
	c := &cell{typ: r, lval: true, addr: s.alloc(r.Length)}

	switch r.Kind {
	case target.KindStruct, target.KindUnion, target.KindClass:
		m, _ := init.(map[string]any)
		c.sub = make([]*cell, len(r.Fields))
		for i := range r.Fields {
			f := &r.Fields[i]
			key := f.Name
			if i < r.NumBases {
				key = f.Type.String()
			}
			var sub any
			if m != nil {
				sub = m[key]
			}
			c.sub[i] = s.newCell(f.Type, sub)
		}

	case target.KindArray:
		elem := r.Target()
		n := 0
		if elem != nil && elem.Length > 0 {
			n = r.Length / elem.Length
		}
		list, _ := init.([]any)
		c.sub = make([]*cell, n)
		for i := 0; i < n; i++ {
			var sub any
			if i < len(list) {
				sub = list[i]
			}
			c.sub[i] = s.newCell(r.Elem, sub)
		}

	default:
		switch v := init.(type) {
		case int:
			c.scalar = int64(v)
		case int64:
			c.scalar = v
		case uint64:
			c.scalar = int64(v)
		case float64:
			if r.Kind == target.KindFloat {
				c.fscalar = v
			} else {
				c.scalar = int64(v)
			}
		case bool:
			if v {
				c.scalar = 1
			}
		}
	}

	return c
}

// baseCell locates the sub-object of storage that has the given class
// type: storage itself, or one of its base-class sub-objects.
func baseCell(storage *cell, want *target.Type) *cell {
	w := want.Resolve()
	if storage == nil || w == nil {
		return nil
	}
	if storage.typ == w || (storage.typ.Name != "" && storage.typ.Name == w.Name) {
		return storage
	}
	for i := 0; i < storage.typ.NumBases && i < len(storage.sub); i++ {
		if c := baseCell(storage.sub[i], w); c != nil {
			return c
		}
	}
	return nil
}

// snapshot freezes a scalar cell's contents at fetch time. Values
// must not read through to live memory afterwards: the update engine
// compares a previously fetched value against a fresh one, which only
// means anything if the old value kept what it saw.
type snapshot struct {
	scalar     int64
	fscalar    float64
	pointee    *cell
	unreadable bool
}

// simValue is a view of a cell through a static type, carrying a
// snapshot of the scalar contents as of when it was fetched. The cell
// may be of a more derived class than the view type.
type simValue struct {
	s    *Session
	typ  *target.Type
	c    *cell
	snap snapshot
}

var _ target.Value = (*simValue)(nil)

// newSimValue builds a value view of c, snapshotting its contents.
func newSimValue(s *Session, typ *target.Type, c *cell) *simValue {
	v := &simValue{s: s, typ: typ, c: c}
	if c != nil {
		v.snap = snapshot{
			scalar:     c.scalar,
			fscalar:    c.fscalar,
			pointee:    c.pointee,
			unreadable: c.unreadable,
		}
	}
	return v
}

func (v *simValue) Type() *target.Type { return v.typ }

// storage aligns the view with its cell: for class views of a derived
// object it descends to the matching base sub-object.
func (v *simValue) storage() (*cell, error) {
	r := v.typ.Resolve()
	if v.c == nil {
		return nil, fmt.Errorf("no storage for value of type %s", v.typ)
	}
	if r.Kind == target.KindStruct || r.Kind == target.KindUnion || r.Kind == target.KindClass {
		if c := baseCell(v.c, r); c != nil {
			return c, nil
		}
		return nil, fmt.Errorf("cannot view %s as %s", v.c.typ, r)
	}
	return v.c, nil
}

func (v *simValue) Index(i int) (target.Value, error) {
	r := v.typ.Resolve()
	if r.Kind != target.KindArray {
		return nil, fmt.Errorf("cannot subscript value of type %s", v.typ)
	}
	if v.c == nil || i < 0 || i >= len(v.c.sub) {
		return nil, fmt.Errorf("index %d out of range", i)
	}
	return newSimValue(v.s, r.Elem, v.c.sub[i]), nil
}

// findField resolves name within t (its own members first, then base
// classes) and returns the matching sub-cell.
func findField(storage *cell, t *target.Type, name string) (*cell, *target.Type, bool) {
	r := t.Resolve()
	if storage == nil || r == nil {
		return nil, nil, false
	}
	st := baseCell(storage, r)
	if st == nil {
		return nil, nil, false
	}
	if i := r.FieldIndex(name); i >= 0 && i < len(st.sub) {
		return st.sub[i], r.Fields[i].Type, true
	}
	for i := 0; i < r.NumBases && i < len(st.sub); i++ {
		if c, ft, ok := findField(st.sub[i], r.Fields[i].Type, name); ok {
			return c, ft, ok
		}
	}
	return nil, nil, false
}

func (v *simValue) Field(name string) (target.Value, error) {
	t := v.typ.Resolve()
	c := v.c

	// Pointers to aggregates dereference transparently.
	if t.Kind == target.KindPointer || t.Kind == target.KindReference {
		if v.snap.pointee == nil {
			return nil, fmt.Errorf("cannot access field %q through null pointer", name)
		}
		c = v.snap.pointee
		t = t.Target()
	}

	if t == nil || (t.Kind != target.KindStruct && t.Kind != target.KindUnion && t.Kind != target.KindClass) {
		return nil, fmt.Errorf("type %s has no field %q", v.typ, name)
	}

	sub, ft, ok := findField(c, t, name)
	if !ok {
		return nil, fmt.Errorf("no field %q in %s", name, t)
	}
	return newSimValue(v.s, ft, sub), nil
}

func (v *simValue) Deref() (target.Value, error) {
	r := v.typ.Resolve()
	if r.Kind != target.KindPointer && r.Kind != target.KindReference {
		return nil, fmt.Errorf("cannot dereference value of type %s", v.typ)
	}
	if v.snap.pointee == nil {
		return nil, fmt.Errorf("cannot access memory at address 0x0")
	}
	return newSimValue(v.s, r.Elem, v.snap.pointee), nil
}

func (v *simValue) Cast(to *target.Type) (target.Value, error) {
	from := v.typ.Resolve()
	tor := to.Resolve()
	if tor == nil {
		return nil, fmt.Errorf("cast to unknown type")
	}

	switch tor.Kind {
	case target.KindPointer, target.KindReference:
		// Reinterpreting pointers and references keeps the same
		// storage; the pointee is simply viewed as the new target
		// type on the next dereference.
		if from.Kind == target.KindPointer || from.Kind == target.KindReference {
			if from.Target() != nil && tor.Target() != nil {
				ft, tt := from.Target(), tor.Target()
				compatible := ft.HasBase(tt) || tt.HasBase(ft) ||
					!(isClassKind(ft) && isClassKind(tt))
				if !compatible {
					return nil, fmt.Errorf("cannot cast %s to %s", v.typ, to)
				}
			}
			// Reinterpretation keeps the fetched contents; no re-read.
			return &simValue{s: v.s, typ: to, c: v.c, snap: v.snap}, nil
		}
		return nil, fmt.Errorf("cannot cast %s to %s", v.typ, to)

	case target.KindStruct, target.KindUnion, target.KindClass:
		// Up- or downcast of a class object: the view moves along the
		// base chain of the same storage.
		if v.c == nil {
			return nil, fmt.Errorf("cannot cast value without storage")
		}
		if baseCell(v.c, tor) == nil {
			return nil, fmt.Errorf("cannot cast %s to %s", v.typ, to)
		}
		return &simValue{s: v.s, typ: to, c: v.c, snap: v.snap}, nil

	default:
		// Scalar conversion produces a temporary.
		if v.c == nil {
			return nil, fmt.Errorf("cannot cast value without storage")
		}
		t := &cell{typ: tor}
		if from.Kind == target.KindFloat && tor.Kind != target.KindFloat {
			t.scalar = int64(v.snap.fscalar)
		} else if tor.Kind == target.KindFloat && from.Kind != target.KindFloat {
			t.fscalar = float64(v.snap.scalar)
		} else {
			t.scalar = v.snap.scalar
			t.fscalar = v.snap.fscalar
		}
		return newSimValue(v.s, to, t), nil
	}
}

func isClassKind(t *target.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case target.KindStruct, target.KindUnion, target.KindClass:
		return true
	}
	return false
}

func (v *simValue) Assign(from target.Value) (target.Value, error) {
	st, err := v.storage()
	if err != nil {
		return nil, err
	}
	if !st.lval {
		return nil, fmt.Errorf("left operand is not an lvalue")
	}
	fv, ok := from.(*simValue)
	if !ok || fv.c == nil {
		return nil, fmt.Errorf("cannot assign from foreign value")
	}

	r := v.typ.Resolve()
	switch r.Kind {
	case target.KindStruct, target.KindUnion, target.KindClass, target.KindArray, target.KindFunc:
		return nil, fmt.Errorf("cannot assign to value of type %s", v.typ)
	case target.KindPointer, target.KindReference:
		st.pointee = fv.snap.pointee
		st.scalar = fv.snap.scalar
	case target.KindFloat:
		if fv.typ.Resolve().Kind == target.KindFloat {
			st.fscalar = fv.snap.fscalar
		} else {
			st.fscalar = float64(fv.snap.scalar)
		}
	default:
		if fv.typ.Resolve().Kind == target.KindFloat {
			st.scalar = int64(fv.snap.fscalar)
		} else {
			st.scalar = fv.snap.scalar
		}
	}
	// Re-snapshot so the stored result reflects what was written.
	return newSimValue(v.s, v.typ, v.c), nil
}

func (v *simValue) Equal(other target.Value) (bool, error) {
	ov, ok := other.(*simValue)
	if !ok {
		return false, fmt.Errorf("cannot compare foreign value")
	}
	if v.c == nil || ov.c == nil {
		return false, fmt.Errorf("cannot compare value without storage")
	}
	if v.snap.unreadable || ov.snap.unreadable {
		return false, fmt.Errorf("cannot read value")
	}

	r := v.typ.Resolve()
	or := ov.typ.Resolve()
	if isClassKind(r) || r.Kind == target.KindArray {
		return false, fmt.Errorf("cannot compare non-scalar values")
	}

	switch {
	case r.Kind == target.KindPointer || r.Kind == target.KindReference:
		return v.snap.pointee == ov.snap.pointee && v.snap.scalar == ov.snap.scalar, nil
	case r.Kind == target.KindFloat || or.Kind == target.KindFloat:
		return v.float64() == ov.float64(), nil
	default:
		return v.snap.scalar == ov.snap.scalar, nil
	}
}

func (v *simValue) float64() float64 {
	if v.typ.Resolve().Kind == target.KindFloat {
		return v.snap.fscalar
	}
	return float64(v.snap.scalar)
}
