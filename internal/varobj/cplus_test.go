package varobj

import (
	"testing"

	"github.com/funvibe/varobj/internal/sim"
	"github.com/funvibe/varobj/internal/target"
)

func TestClassChildrenAreBasesThenGroups(t *testing.T) {
	_, m := newWorld(t, target.LanguageCPlusPlus)
	obj := mustCreate(t, m, "obj") // Derived: Base + one public member

	kids := obj.ListChildren()
	if !equalStrings(childNames(kids), []string{"Base", "public"}) {
		t.Fatalf("children = %v, want [Base public]", childNames(kids))
	}

	baseKid := kids[0]
	if baseKid.IsGroupNode() {
		t.Error("a base class child is not a group node")
	}
	if baseKid.TypeString() != "Base" {
		t.Errorf("base child type = %q", baseKid.TypeString())
	}
	if baseKid.ValueString() != "{...}" {
		t.Errorf("base child value = %q, want {...}", baseKid.ValueString())
	}

	pub := kids[1]
	if !pub.IsGroupNode() {
		t.Fatal("the access bucket must be a group node")
	}
	if pub.TypeString() != "" || pub.ValueString() != "" {
		t.Error("group nodes carry no type or value")
	}
	if pub.Attributes()&AttrEditable != 0 {
		t.Error("group nodes are never editable")
	}
}

func TestGroupBucketsFixedOrderEmptyOmitted(t *testing.T) {
	_, m := newWorld(t, target.LanguageCPlusPlus)

	mix := mustCreate(t, m, "mix")
	if !equalStrings(childNames(mix.ListChildren()), []string{"public", "private", "protected"}) {
		t.Fatalf("mix children = %v", childNames(mix.ListChildren()))
	}

	// Base has public and private members but nothing protected, and
	// the vtable pointer must not surface anywhere.
	obj := mustCreate(t, m, "obj")
	base := childByName(t, obj, "Base")
	if !equalStrings(childNames(base.ListChildren()), []string{"public", "private"}) {
		t.Fatalf("Base children = %v", childNames(base.ListChildren()))
	}
	pub := childByName(t, base, "public")
	if !equalStrings(childNames(pub.ListChildren()), []string{"id"}) {
		t.Fatalf("Base public members = %v", childNames(pub.ListChildren()))
	}
}

func TestGroupMembersReadThroughGrandparent(t *testing.T) {
	_, m := newWorld(t, target.LanguageCPlusPlus)
	obj := mustCreate(t, m, "obj")

	pub := childByName(t, obj, "public")
	extra := childByName(t, pub, "extra")
	if extra.ValueString() != "9" {
		t.Errorf("extra = %q, want 9", extra.ValueString())
	}
	if extra.Attributes()&AttrEditable == 0 {
		t.Error("a scalar member is editable")
	}
}

func TestGroupNodesTransparentInPathExpressions(t *testing.T) {
	_, m := newWorld(t, target.LanguageCPlusPlus)
	obj := mustCreate(t, m, "obj")

	pub := childByName(t, obj, "public")
	if pub.PathExpr() != "obj" {
		t.Errorf("group path = %q, want obj", pub.PathExpr())
	}
	extra := childByName(t, pub, "extra")
	if extra.PathExpr() != "(obj).extra" {
		t.Errorf("member path = %q, want (obj).extra", extra.PathExpr())
	}
}

func TestBaseClassPathIsAParenthesizedCast(t *testing.T) {
	sess, m := newWorld(t, target.LanguageCPlusPlus)

	obj := mustCreate(t, m, "obj")
	base := childByName(t, obj, "Base")
	if base.PathExpr() != "((Base) obj)" {
		t.Errorf("base path = %q, want ((Base) obj)", base.PathExpr())
	}

	// Through a pointer the cast form is a pointer cast.
	if err := sess.SetPointer("bp", "obj"); err != nil {
		t.Fatalf("SetPointer: %v", err)
	}
	bp := mustCreate(t, m, "bp")
	baseKid := childByName(t, bp, "Base")
	if baseKid.PathExpr() != "((Base *) bp)" {
		t.Errorf("pointer base path = %q, want ((Base *) bp)", baseKid.PathExpr())
	}

	// The synthesized paths must parse and evaluate back to the same
	// member, which is the whole point of path expressions.
	pub := childByName(t, baseKid, "public")
	id := childByName(t, pub, "id")
	e, err := sess.Parse(id.PathExpr(), nil)
	if err != nil {
		t.Fatalf("re-parsing %q: %v", id.PathExpr(), err)
	}
	v, err := e.Evaluate(sess.SelectedFrame())
	if err != nil {
		t.Fatalf("re-evaluating %q: %v", id.PathExpr(), err)
	}
	if got := sess.Render(v, target.FormatNatural); got != "7" {
		t.Errorf("%s = %q, want 7", id.PathExpr(), got)
	}
}

func TestDynamicTypeResolution(t *testing.T) {
	sess, m := newWorld(t, target.LanguageCPlusPlus)
	if err := sess.SetPointer("bp", "obj"); err != nil {
		t.Fatalf("SetPointer: %v", err)
	}

	bp := mustCreate(t, m, "bp")
	if bp.TypeString() != "Base *" {
		t.Errorf("static type = %q, want Base *", bp.TypeString())
	}
	if bp.DynamicTypeString() != "Derived *" {
		t.Errorf("dynamic type = %q, want Derived *", bp.DynamicTypeString())
	}

	// Children come from the dynamic type.
	if !equalStrings(childNames(bp.ListChildren()), []string{"Base", "public"}) {
		t.Fatalf("children = %v", childNames(bp.ListChildren()))
	}
	pub := childByName(t, bp, "public")
	extra := childByName(t, pub, "extra")
	if extra.ValueString() != "9" {
		t.Errorf("extra through dynamic type = %q, want 9", extra.ValueString())
	}
	if extra.PathExpr() != "(bp)->extra" {
		t.Errorf("member path = %q, want (bp)->extra", extra.PathExpr())
	}
}

func TestDynamicResolutionFailureKeepsStaticType(t *testing.T) {
	_, m := newWorld(t, target.LanguageCPlusPlus)

	// Null pointer: identification fails silently.
	bp := mustCreate(t, m, "bp")
	if bp.DynamicTypeString() != "" {
		t.Errorf("dynamic type = %q, want none", bp.DynamicTypeString())
	}
	// Non-polymorphic pointee: same.
	pn := mustCreate(t, m, "pnull")
	if pn.DynamicTypeString() != "" {
		t.Errorf("dynamic type = %q, want none", pn.DynamicTypeString())
	}
}

func TestJavaChildNameDotsEscaped(t *testing.T) {
	s := sim.NewSession(target.LanguageJava)
	intT, _ := s.Type("int")
	object := s.DefineType(&target.Type{Name: "java.lang.Object", Kind: target.KindClass, Length: 8, Fields: []target.Field{
		{Name: "hash", Type: intT, Access: target.AccessPrivate},
	}})
	s.DefineType(&target.Type{Name: "MyString", Kind: target.KindClass, Length: 16, NumBases: 1, Fields: []target.Field{
		{Name: "java.lang.Object", Type: object},
		{Name: "length", Type: intT, Access: target.AccessPublic},
	}})
	s.AddGlobal("str", mustType(t, s, "MyString"), map[string]any{
		"java.lang.Object": map[string]any{"hash": 42},
		"length":           11,
	})
	m := NewManager(s, DefaultOptions())

	obj := mustCreate(t, m, "str")
	kids := obj.ListChildren()
	if !equalStrings(childNames(kids), []string{"java-lang-Object", "public"}) {
		t.Fatalf("children = %v", childNames(kids))
	}
	// Registry keys stay unambiguous against the dot separator.
	if kids[0].ObjName() != "var1.java-lang-Object" {
		t.Errorf("key = %q", kids[0].ObjName())
	}
	// The path expression still uses the real type name.
	if kids[0].PathExpr() != "((java.lang.Object) str)" {
		t.Errorf("path = %q", kids[0].PathExpr())
	}
}
