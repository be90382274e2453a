package varobj

import (
	"fmt"
	"strconv"

	"github.com/funvibe/varobj/internal/config"
	"github.com/funvibe/varobj/internal/target"
)

// langOps is the per-language dispatch table: the eight operations
// that differ between source languages. The closed set of
// implementations (generic/C, C++, Java) is selected once per root
// from the expression's recorded language.
type langOps interface {
	// numberOfChildren counts the children a UI would see, or
	// config.UnknownChildCount when it cannot be determined.
	numberOfChildren(v *Object) int
	// makeNameOfChild names the index'th child of parent.
	makeNameOfChild(parent *Object, index int) string
	// pathExprOfChild builds the rooted expression of the index'th
	// child of parent.
	pathExprOfChild(parent *Object, index int) string
	// valueOfRoot re-fetches a root's value; may flag a dynamic type
	// change.
	valueOfRoot(root *Object, tc *TypeChange) target.Value
	// valueOfChild fetches the index'th child's value from the
	// parent's.
	valueOfChild(parent *Object, index int) target.Value
	// typeOfChild computes the index'th child's static type.
	typeOfChild(parent *Object, index int) *target.Type
	// variableEditable reports whether assignment is allowed.
	variableEditable(v *Object) bool
	// valueOfVariable renders the node's current value.
	valueOfVariable(v *Object) string
}

// opsFor selects the dispatch table for a language. Unknown languages
// are treated as C.
func (m *Manager) opsFor(lang target.Language) langOps {
	switch lang {
	case target.LanguageCPlusPlus:
		return &cplusOps{cOps: cOps{m: m}}
	case target.LanguageJava:
		return &javaOps{cplusOps{cOps: cOps{m: m}}}
	default:
		return &cOps{m: m}
	}
}

func isOOPLanguage(lang target.Language) bool {
	return lang == target.LanguageCPlusPlus || lang == target.LanguageJava
}

// getType returns the node's effective type: the dynamic type when
// resolved and enabled, the static type otherwise, typedefs skipped.
func (m *Manager) getType(v *Object) *target.Type {
	typ := v.typ
	if m.opts.UseDynamicType && v.dynamicType != nil {
		typ = v.dynamicType
	}
	return typ.Resolve()
}

// getTypeDeref is getType with pointers and references skipped too;
// wasPtr reports whether one was skipped.
func (m *Manager) getTypeDeref(v *Object) (typ *target.Type, wasPtr bool) {
	typ = m.getType(v)
	if typ != nil && (typ.Kind == target.KindPointer || typ.Kind == target.KindReference) {
		return typ.Target(), true
	}
	return typ, false
}

// cOps implements the dispatch table for C, and doubles as the
// fallback for unknown languages.
type cOps struct {
	m *Manager
}

func (c *cOps) numberOfChildren(v *Object) int {
	typ := c.m.getType(v)
	if typ == nil {
		return config.UnknownChildCount
	}

	switch typ.Kind {
	case target.KindArray:
		elem := typ.Target()
		if typ.Length > 0 && elem != nil && elem.Length > 0 {
			return typ.Length / elem.Length
		}
		// Indeterminate bounds.
		return config.UnknownChildCount

	case target.KindStruct, target.KindUnion, target.KindClass:
		return len(typ.Fields)

	case target.KindPointer:
		// All pointers have one child, except struct/union pointers
		// which we dereference for the user, and function/void
		// pointers which have nothing to show.
		switch tt := typ.Target(); {
		case tt == nil:
			return 1
		case tt.Kind == target.KindStruct || tt.Kind == target.KindUnion || tt.Kind == target.KindClass:
			return len(tt.Fields)
		case tt.Kind == target.KindFunc || tt.Kind == target.KindVoid:
			return 0
		default:
			return 1
		}

	default:
		return 0
	}
}

func (c *cOps) makeNameOfChild(parent *Object, index int) string {
	typ := c.m.getType(parent)

	switch typ.Kind {
	case target.KindArray:
		return strconv.Itoa(index)

	case target.KindStruct, target.KindUnion, target.KindClass:
		return typ.Fields[index].Name

	case target.KindPointer:
		switch tt := typ.Target(); {
		case tt != nil && (tt.Kind == target.KindStruct || tt.Kind == target.KindUnion || tt.Kind == target.KindClass):
			return tt.Fields[index].Name
		default:
			return "*" + parent.name
		}

	default:
		return "???"
	}
}

func (c *cOps) pathExprOfChild(parent *Object, index int) string {
	child := parent.childByIndex(index)
	if child == nil {
		return ""
	}

	parentExpr := parent.PathExpr()
	typ := c.m.getType(parent)

	switch typ.Kind {
	case target.KindArray:
		return fmt.Sprintf("(%s)[%s]", parentExpr, child.name)

	case target.KindStruct, target.KindUnion, target.KindClass:
		return fmt.Sprintf("(%s).%s", parentExpr, child.name)

	case target.KindPointer:
		switch tt := typ.Target(); {
		case tt != nil && (tt.Kind == target.KindStruct || tt.Kind == target.KindUnion || tt.Kind == target.KindClass):
			return fmt.Sprintf("(%s)->%s", parentExpr, child.name)
		default:
			return fmt.Sprintf("*(%s)", parentExpr)
		}

	default:
		return "????"
	}
}

func (c *cOps) valueOfRoot(root *Object, tc *TypeChange) target.Value {
	m := c.m
	r := root.root
	if r.rootObj != root {
		return nil
	}

	// Determine whether the variable is still around, and select its
	// frame for the evaluation.
	var frame target.Frame
	if r.frameID != target.NullFrameID {
		frame, _ = m.sess.ResolveFrame(r.frameID)
	}
	if r.validBlock != nil {
		if frame == nil {
			return nil
		}
		m.sess.SelectFrame(frame)
	}

	restore := m.lockScheduler()
	defer restore()

	newVal, err := r.expr.Evaluate(frame)
	if err != nil {
		root.err = true
		return nil
	}

	newVal, dynamicType := m.fixupValue(newVal)
	if m.opts.UseDynamicType && !typesEqual(root.dynamicType, dynamicType) {
		if *tc != TypeChanged {
			*tc = DynamicTypeChanged
		}
		root.dynamicType = dynamicType

		// The children were built against the old dynamic type; kill
		// them and recount.
		root.Delete(true)
		root.numChildren = root.root.ops.numberOfChildren(root)
	}
	root.err = false

	return newVal
}

func (c *cOps) valueOfChild(parent *Object, index int) target.Value {
	child := parent.childByIndex(index)
	if child == nil || parent.value == nil {
		return nil
	}

	typ := c.m.getType(parent)

	var value target.Value
	var err error
	switch typ.Kind {
	case target.KindArray:
		value, err = parent.value.Index(index)

	case target.KindStruct, target.KindUnion, target.KindClass:
		value, err = parent.value.Field(child.name)

	case target.KindPointer:
		switch tt := typ.Target(); {
		case tt != nil && (tt.Kind == target.KindStruct || tt.Kind == target.KindUnion || tt.Kind == target.KindClass):
			value, err = parent.value.Field(child.name)
		default:
			value, err = parent.value.Deref()
		}
	}
	if err != nil {
		return nil
	}
	return value
}

func (c *cOps) typeOfChild(parent *Object, index int) *target.Type {
	child := parent.childByIndex(index)
	if child == nil {
		return nil
	}

	parentType := c.m.getType(parent)
	switch parentType.Kind {
	case target.KindArray:
		// Keep the element's typedef name if there is one; resolve
		// only the parent.
		return parentType.Elem

	case target.KindStruct, target.KindUnion, target.KindClass:
		if f, ok := parentType.LookupField(child.name); ok {
			return f.Type
		}
		return nil

	case target.KindPointer:
		tt := parentType.Target()
		if tt != nil && (tt.Kind == target.KindStruct || tt.Kind == target.KindUnion || tt.Kind == target.KindClass) {
			if f, ok := tt.LookupField(child.name); ok {
				return f.Type
			}
			return nil
		}
		return tt

	default:
		return nil
	}
}

func (c *cOps) variableEditable(v *Object) bool {
	typ := c.m.getType(v)
	if typ == nil {
		return false
	}
	switch typ.Kind {
	case target.KindStruct, target.KindUnion, target.KindClass, target.KindArray,
		target.KindFunc, target.KindMember, target.KindMethod:
		return false
	default:
		return true
	}
}

func (c *cOps) valueOfVariable(v *Object) string {
	switch typ := c.m.getType(v); typ.Kind {
	case target.KindStruct, target.KindUnion, target.KindClass:
		return "{...}"
	case target.KindArray:
		return fmt.Sprintf("[%d]", v.NumChildren())
	default:
		if v.value == nil {
			return ""
		}
		return c.m.sess.Render(v.value, v.format)
	}
}
