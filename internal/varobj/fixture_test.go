package varobj

import (
	"testing"

	"github.com/funvibe/varobj/internal/sim"
	"github.com/funvibe/varobj/internal/target"
)

// newWorld builds the simulated program the tests share: a Point
// struct, a polymorphic Base/Derived/Derived2 family, a class with all
// three access levels, a few globals, and main stopped at 0x150 inside
// a nested block. Extra functions exist for scope and type-change
// scenarios but have no frames yet.
func newWorld(t *testing.T, lang target.Language) (*sim.Session, *Manager) {
	t.Helper()
	s := sim.NewSession(lang)
	intT, _ := s.Type("int")
	doubleT, _ := s.Type("double")
	voidT, _ := s.Type("void")

	point := s.DefineType(&target.Type{Name: "Point", Kind: target.KindStruct, Length: 8, Fields: []target.Field{
		{Name: "x", Type: intT},
		{Name: "y", Type: intT},
	}})
	base := s.DefineType(&target.Type{Name: "Base", Kind: target.KindClass, Length: 16, Fields: []target.Field{
		{Name: "_vptr$Base", Type: target.PointerTo(voidT), IsVTable: true},
		{Name: "id", Type: intT, Access: target.AccessPublic},
		{Name: "secret", Type: intT, Access: target.AccessPrivate},
	}})
	s.DefineType(&target.Type{Name: "Derived", Kind: target.KindClass, Length: 20, NumBases: 1, Fields: []target.Field{
		{Name: "Base", Type: base},
		{Name: "extra", Type: intT, Access: target.AccessPublic},
	}})
	s.DefineType(&target.Type{Name: "Derived2", Kind: target.KindClass, Length: 24, NumBases: 1, Fields: []target.Field{
		{Name: "Base", Type: base},
		{Name: "other", Type: intT, Access: target.AccessPublic},
		{Name: "more", Type: intT, Access: target.AccessPublic},
	}})
	s.DefineType(&target.Type{Name: "Mixed", Kind: target.KindClass, Length: 12, Fields: []target.Field{
		{Name: "a", Type: intT, Access: target.AccessPublic},
		{Name: "b", Type: intT, Access: target.AccessPrivate},
		{Name: "c", Type: intT, Access: target.AccessProtected},
	}})

	s.AddGlobal("origin", point, map[string]any{"x": 1, "y": 2})
	s.AddGlobal("grid", target.ArrayOf(point, 2), []any{
		map[string]any{"x": 10, "y": 11},
		map[string]any{"x": 20, "y": 21},
	})
	s.AddGlobal("nums", target.ArrayOf(intT, 3), []any{4, 5, 6})
	s.AddGlobal("obj", mustType(t, s, "Derived"), map[string]any{
		"Base":  map[string]any{"id": 7, "secret": 8},
		"extra": 9,
	})
	s.AddGlobal("obj2", mustType(t, s, "Derived2"), map[string]any{
		"Base":  map[string]any{"id": 70, "secret": 80},
		"other": 90,
		"more":  91,
	})
	s.AddGlobal("mix", mustType(t, s, "Mixed"), map[string]any{"a": 1, "b": 2, "c": 3})
	s.AddGlobal("bp", target.PointerTo(base), nil)
	s.AddGlobal("g", intT, 3)
	s.AddGlobal("ip", target.PointerTo(intT), nil)
	s.AddGlobal("pnull", target.PointerTo(point), nil)

	s.DefineFunction(&sim.Function{Name: "main", Blocks: []sim.BlockDecl{
		{Start: 0x100, End: 0x200, Vars: []sim.VarDecl{
			{Name: "count", Type: intT, Init: 5},
		}},
		{Start: 0x140, End: 0x180, Vars: []sim.VarDecl{
			{Name: "slot", Type: intT, Init: 6},
		}},
	}})
	s.DefineFunction(&sim.Function{Name: "withInt", Blocks: []sim.BlockDecl{
		{Start: 0x300, End: 0x400, Vars: []sim.VarDecl{
			{Name: "shade", Type: intT, Init: 11},
		}},
	}})
	s.DefineFunction(&sim.Function{Name: "withDouble", Blocks: []sim.BlockDecl{
		{Start: 0x500, End: 0x600, Vars: []sim.VarDecl{
			{Name: "shade", Type: doubleT, Init: 2.5},
		}},
	}})
	s.DefineFunction(&sim.Function{Name: "withGhost", Blocks: []sim.BlockDecl{
		{Start: 0x700, End: 0x800, Vars: []sim.VarDecl{
			{Name: "ghost", Type: intT, Init: 1},
		}},
	}})

	if _, err := s.PushFrame("main", 0x150); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	if err := s.SetPointer("ip", "g"); err != nil {
		t.Fatalf("SetPointer: %v", err)
	}

	return s, NewManager(s, DefaultOptions())
}

func mustType(t *testing.T, s *sim.Session, name string) *target.Type {
	t.Helper()
	typ, ok := s.Type(name)
	if !ok {
		t.Fatalf("type %s not registered", name)
	}
	return typ
}

func mustCreate(t *testing.T, m *Manager, expr string) *Object {
	t.Helper()
	obj, err := m.Create(m.GenName(), expr, Binding{Kind: BindSelectedFrame})
	if err != nil {
		t.Fatalf("Create(%s): %v", expr, err)
	}
	return obj
}

func childNames(objs []*Object) []string {
	names := make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Name()
	}
	return names
}

func childByName(t *testing.T, parent *Object, name string) *Object {
	t.Helper()
	for _, c := range parent.ListChildren() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("no child %q under %s", name, parent.Name())
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
