package target

import (
	"fmt"
	"strings"
)

// Kind classifies a type the way the debug-info reader reports it.
type Kind int

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindChar
	KindInt
	KindFloat
	KindEnum
	KindPointer
	KindReference
	KindArray
	KindStruct
	KindUnion
	KindClass
	KindFunc
	KindMember
	KindMethod
	KindTypedef
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindEnum:
		return "enum"
	case KindPointer:
		return "pointer"
	case KindReference:
		return "reference"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindClass:
		return "class"
	case KindFunc:
		return "function"
	case KindMember:
		return "member"
	case KindMethod:
		return "method"
	case KindTypedef:
		return "typedef"
	default:
		return "invalid"
	}
}

// Access is the member access level of a class field.
type Access int

const (
	AccessPublic Access = iota
	AccessPrivate
	AccessProtected
)

// Field is a member of a struct, union or class. For class types the
// first Type.NumBases fields describe the base classes, in declaration
// order, and a field with IsVTable set is the virtual-table pointer.
type Field struct {
	Name     string
	Type     *Type
	Access   Access
	IsVTable bool
}

// Type describes a target type. Length is the size in bytes; zero means
// the size could not be determined (for example an incomplete array).
type Type struct {
	Name     string
	Kind     Kind
	Length   int
	Elem     *Type // pointer/reference/array/typedef target
	Fields   []Field
	NumBases int
}

// Resolve skips past typedefs and returns the underlying type.
func (t *Type) Resolve() *Type {
	for t != nil && t.Kind == KindTypedef {
		t = t.Elem
	}
	return t
}

// Target returns the resolved element type of a pointer, reference or
// array, or nil.
func (t *Type) Target() *Type {
	if t == nil || t.Elem == nil {
		return nil
	}
	return t.Elem.Resolve()
}

// IsAggregate reports whether the resolved type is a struct, union,
// class or array.
func (t *Type) IsAggregate() bool {
	r := t.Resolve()
	if r == nil {
		return false
	}
	switch r.Kind {
	case KindStruct, KindUnion, KindClass, KindArray:
		return true
	}
	return false
}

// String renders the type the way it would be typed in source.
func (t *Type) String() string {
	if t == nil {
		return ""
	}
	if t.Name != "" {
		return t.Name
	}
	switch t.Kind {
	case KindPointer:
		return t.Elem.String() + " *"
	case KindReference:
		return t.Elem.String() + " &"
	case KindArray:
		n := 0
		if t.Elem != nil && t.Elem.Length > 0 {
			n = t.Length / t.Elem.Length
		}
		if n > 0 {
			return fmt.Sprintf("%s [%d]", t.Elem.String(), n)
		}
		return t.Elem.String() + " []"
	case KindFunc:
		return "function"
	default:
		return t.Kind.String()
	}
}

// PointerTo builds the pointer-qualified form of t.
func PointerTo(t *Type) *Type {
	return &Type{Kind: KindPointer, Length: 8, Elem: t}
}

// ReferenceTo builds the reference-qualified form of t.
func ReferenceTo(t *Type) *Type {
	return &Type{Kind: KindReference, Length: 8, Elem: t}
}

// ArrayOf builds an array of n elements of t.
func ArrayOf(t *Type, n int) *Type {
	return &Type{Kind: KindArray, Length: n * t.Length, Elem: t}
}

// FieldIndex returns the index of the named member, searching only the
// type's own fields (base classes excluded). Returns -1 if absent.
func (t *Type) FieldIndex(name string) int {
	r := t.Resolve()
	if r == nil {
		return -1
	}
	for i := r.NumBases; i < len(r.Fields); i++ {
		if r.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// LookupField finds the named member in the type or any of its base
// classes, innermost declaration first.
func (t *Type) LookupField(name string) (*Field, bool) {
	r := t.Resolve()
	if r == nil {
		return nil, false
	}
	if i := r.FieldIndex(name); i >= 0 {
		return &r.Fields[i], true
	}
	for i := 0; i < r.NumBases; i++ {
		if f, ok := r.Fields[i].Type.LookupField(name); ok {
			return f, true
		}
	}
	return nil, false
}

// HasBase reports whether base occurs in t's base-class chain
// (including t itself).
func (t *Type) HasBase(base *Type) bool {
	r := t.Resolve()
	b := base.Resolve()
	if r == nil || b == nil {
		return false
	}
	if r == b || (r.Name != "" && r.Name == b.Name) {
		return true
	}
	for i := 0; i < r.NumBases; i++ {
		if r.Fields[i].Type.HasBase(b) {
			return true
		}
	}
	return false
}

// DescribeFields is a debugging aid used by the simulator's dump
// output; it is not part of the collaborator contract.
func (t *Type) DescribeFields() string {
	r := t.Resolve()
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		parts = append(parts, f.Name)
	}
	return strings.Join(parts, ",")
}
