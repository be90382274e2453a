package varobj

import (
	"errors"
	"testing"

	"github.com/funvibe/varobj/internal/config"
	"github.com/funvibe/varobj/internal/target"
)

func TestCreateInstallsUnderGeneratedName(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)

	obj := mustCreate(t, m, "g")
	if obj.ObjName() != "var1" {
		t.Errorf("ObjName = %q, want var1", obj.ObjName())
	}
	got, err := m.Lookup("var1")
	if err != nil || got != obj {
		t.Errorf("Lookup(var1) = %v, %v", got, err)
	}
	if !obj.InScope() {
		t.Error("a resolvable global starts in scope")
	}
	if obj.TypeString() != "int" {
		t.Errorf("TypeString = %q, want int", obj.TypeString())
	}
	if obj.ValueString() != "3" {
		t.Errorf("ValueString = %q, want 3", obj.ValueString())
	}
}

func TestCreateDuplicateNameFails(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	if _, err := m.Create("watch0", "g", Binding{Kind: BindSelectedFrame}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := m.Create("watch0", "origin", Binding{Kind: BindSelectedFrame})
	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateNameError", err)
	}
}

func TestCreateRejectsTypeNames(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	_, err := m.Create(m.GenName(), "Point", Binding{Kind: BindSelectedFrame})
	var inv *InvalidExpressionError
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want InvalidExpressionError", err)
	}
}

func TestCreateParseFailure(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)

	// A frame-bound root fails outright.
	if _, err := m.Create(m.GenName(), "ghost", Binding{Kind: BindSelectedFrame}); err == nil {
		t.Fatal("unparseable expression must fail for a fixed binding")
	}

	// A selected-frame-tracking root survives as a dummy: the name may
	// come into existence once execution reaches another frame.
	obj, err := m.Create(m.GenName(), "ghost", Binding{Kind: BindTrackSelectedFrame})
	if err != nil {
		t.Fatalf("tracking create: %v", err)
	}
	if obj.InScope() {
		t.Error("a dummy starts out of scope")
	}
	if obj.NumChildren() != config.UnknownChildCount {
		t.Errorf("NumChildren = %d, want unknown", obj.NumChildren())
	}
	if obj.ValueString() != "" {
		t.Errorf("ValueString = %q, want empty", obj.ValueString())
	}
}

func TestStructChildrenInC(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "origin")

	if n := obj.NumChildren(); n != 2 {
		t.Fatalf("NumChildren = %d, want 2", n)
	}
	kids := obj.ListChildren()
	if !equalStrings(childNames(kids), []string{"x", "y"}) {
		t.Fatalf("children = %v", childNames(kids))
	}

	x := kids[0]
	if x.ObjName() != obj.ObjName()+".x" {
		t.Errorf("child key = %q", x.ObjName())
	}
	if x.ValueString() != "1" {
		t.Errorf("x = %q, want 1", x.ValueString())
	}
	if x.PathExpr() != "(origin).x" {
		t.Errorf("PathExpr = %q", x.PathExpr())
	}

	// Listing again returns the same handles, not fresh ones.
	again := obj.ListChildren()
	if again[0] != kids[0] || again[1] != kids[1] {
		t.Error("ListChildren must be stable between calls")
	}
}

func TestArrayChildren(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "nums")

	if n := obj.NumChildren(); n != 3 {
		t.Fatalf("NumChildren = %d, want 3", n)
	}
	kids := obj.ListChildren()
	if !equalStrings(childNames(kids), []string{"0", "1", "2"}) {
		t.Fatalf("children = %v", childNames(kids))
	}
	if kids[1].ValueString() != "5" {
		t.Errorf("nums[1] = %q, want 5", kids[1].ValueString())
	}
	if kids[1].PathExpr() != "(nums)[1]" {
		t.Errorf("PathExpr = %q", kids[1].PathExpr())
	}
	if obj.ValueString() != "[3]" {
		t.Errorf("array ValueString = %q, want [3]", obj.ValueString())
	}
}

func TestScalarPointerChild(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "ip")

	if n := obj.NumChildren(); n != 1 {
		t.Fatalf("NumChildren = %d, want 1", n)
	}
	kid := obj.ListChildren()[0]
	if kid.Name() != "*ip" {
		t.Errorf("child name = %q, want *ip", kid.Name())
	}
	if kid.PathExpr() != "*(ip)" {
		t.Errorf("PathExpr = %q, want *(ip)", kid.PathExpr())
	}
	if kid.ValueString() != "3" {
		t.Errorf("*ip = %q, want 3", kid.ValueString())
	}
}

func TestNullPointerToStructChildren(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "pnull")

	// The type still says two members even though the read will fail.
	if n := obj.NumChildren(); n != 2 {
		t.Fatalf("NumChildren = %d, want 2", n)
	}
	kids := obj.ListChildren()
	for _, k := range kids {
		if k.ValueString() != "" {
			t.Errorf("child %s of a null pointer has value %q", k.Name(), k.ValueString())
		}
	}
	// The static type is still known.
	if kids[0].TypeString() != "int" {
		t.Errorf("child type = %q, want int", kids[0].TypeString())
	}
	if kids[0].PathExpr() != "(pnull)->x" {
		t.Errorf("PathExpr = %q", kids[0].PathExpr())
	}
}

func TestRootsListOrder(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	a := mustCreate(t, m, "g")
	b := mustCreate(t, m, "origin")

	roots := m.Roots()
	if len(roots) != 2 || roots[0] != b || roots[1] != a {
		t.Errorf("Roots() order wrong: %v", roots)
	}
	if m.RootCount() != 2 {
		t.Errorf("RootCount = %d", m.RootCount())
	}

	b.Delete(false)
	roots = m.Roots()
	if len(roots) != 1 || roots[0] != a {
		t.Errorf("Roots() after delete: %v", roots)
	}
}

func TestDeleteReportsChildrenBeforeParents(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "origin")
	obj.ListChildren()

	removed := obj.Delete(false)
	want := []string{"var1.y", "var1.x", "var1"}
	if !equalStrings(removed, want) {
		t.Errorf("removed = %v, want %v", removed, want)
	}
	if _, err := m.Lookup("var1"); err == nil {
		t.Error("deleted root still resolvable")
	}
}

func TestDeleteChildrenOnly(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "origin")
	obj.ListChildren()

	removed := obj.Delete(true)
	if !equalStrings(removed, []string{"var1.y", "var1.x"}) {
		t.Errorf("removed = %v", removed)
	}
	if _, err := m.Lookup("var1"); err != nil {
		t.Error("children-only delete must keep the node installed")
	}
	if _, err := m.Lookup("var1.x"); err == nil {
		t.Error("children must be gone from the registry")
	}

	// The count is recomputed and the children rematerialize.
	kids := obj.ListChildren()
	if !equalStrings(childNames(kids), []string{"x", "y"}) {
		t.Errorf("rematerialized children = %v", childNames(kids))
	}
}

func TestDeleteChildrenOnlyManyChildren(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "nums")
	obj.ListChildren()

	removed := obj.Delete(true)
	if !equalStrings(removed, []string{"var1.2", "var1.1", "var1.0"}) {
		t.Errorf("removed = %v", removed)
	}
	for _, key := range []string{"var1.0", "var1.1", "var1.2"} {
		if _, err := m.Lookup(key); err == nil {
			t.Errorf("%s still resolvable after children-only delete", key)
		}
	}

	// Each rematerialized child installs under its old key and the
	// registry resolves to the fresh node, not a stale one.
	kids := obj.ListChildren()
	if !equalStrings(childNames(kids), []string{"0", "1", "2"}) {
		t.Fatalf("rematerialized children = %v", childNames(kids))
	}
	for i, kid := range kids {
		got, err := m.Lookup(kid.ObjName())
		if err != nil {
			t.Fatalf("Lookup(%s): %v", kid.ObjName(), err)
		}
		if got != kid {
			t.Errorf("child %d: registry resolves to a stale node", i)
		}
	}
}

func TestUpdateNonRootFails(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "origin")
	kid := obj.ListChildren()[0]

	_, err := m.Update(kid)
	var nr *NotARootError
	if !errors.As(err, &nr) {
		t.Fatalf("err = %v, want NotARootError", err)
	}
}

func TestAttributes(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	scalar := mustCreate(t, m, "g")
	agg := mustCreate(t, m, "origin")

	if scalar.Attributes()&AttrEditable == 0 {
		t.Error("a scalar is editable")
	}
	if agg.Attributes()&AttrEditable != 0 {
		t.Error("an aggregate is not editable")
	}
}

func TestSetFormat(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "g") // 3

	if f := obj.SetFormat(target.FormatHexadecimal); f != target.FormatHexadecimal {
		t.Fatalf("SetFormat returned %v", f)
	}
	if obj.ValueString() != "0x3" {
		t.Errorf("hex value = %q, want 0x3", obj.ValueString())
	}
	if f := obj.SetFormat(target.Format(99)); f != target.FormatNatural {
		t.Errorf("unknown format should reset to natural, got %v", f)
	}
}

func TestSetValue(t *testing.T) {
	sess, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "count")

	if err := obj.SetValue("41"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if obj.ValueString() != "41" {
		t.Errorf("cached value = %q, want 41", obj.ValueString())
	}
	// The write went through to the target.
	e, err := sess.Parse("count", sess.SelectedFrame().Block())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, err := e.Evaluate(sess.SelectedFrame())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := sess.Render(v, target.FormatNatural); got != "41" {
		t.Errorf("target value = %q, want 41", got)
	}

	if err := obj.SetValue("not an expr ("); err == nil {
		t.Error("junk expression must fail")
	}

	agg := mustCreate(t, m, "origin")
	err = agg.SetValue("1")
	var ae *AssignmentError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AssignmentError", err)
	}
}

func TestSetValueFromFrameLocal(t *testing.T) {
	sess, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "g")

	// The source expression resolves in the selected frame, so locals
	// are usable, not just globals.
	if err := obj.SetValue("count"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if obj.ValueString() != "5" {
		t.Errorf("cached value = %q, want 5", obj.ValueString())
	}
	e, err := sess.Parse("g", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, err := e.Evaluate(sess.SelectedFrame())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := sess.Render(v, target.FormatNatural); got != "5" {
		t.Errorf("target value = %q, want 5", got)
	}
}

func TestSetValueForcesNextUpdateReport(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "count")

	if err := obj.SetValue("99"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	res, err := m.Update(obj)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Kind != OutcomeChanged || res.Changes.Len() != 1 {
		t.Fatalf("first update after edit = %v (%d changes)", res.Kind, res.Changes.Len())
	}

	res, err = m.Update(obj)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Kind != OutcomeUnchanged {
		t.Errorf("second update = %v, want unchanged", res.Kind)
	}
}

func TestSetValueSameValueNotReported(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)
	obj := mustCreate(t, m, "count") // 5

	if err := obj.SetValue("5"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	res, err := m.Update(obj)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Kind != OutcomeUnchanged {
		t.Errorf("writing the current value back = %v, want unchanged", res.Kind)
	}
}

func TestValidBlockBounds(t *testing.T) {
	_, m := newWorld(t, target.LanguageC)

	local := mustCreate(t, m, "slot")
	start, end, ok := local.ValidBlockBounds()
	if !ok || start != 0x140 || end != 0x180 {
		t.Errorf("bounds = %#x..%#x ok=%v, want the inner block", start, end, ok)
	}

	global := mustCreate(t, m, "g")
	if _, _, ok := global.ValidBlockBounds(); ok {
		t.Error("a global has no valid block")
	}
}
