package varobj

import (
	"fmt"
	"strings"

	"github.com/funvibe/varobj/internal/config"
	"github.com/funvibe/varobj/internal/target"
)

// cplusOps layers class-aware child handling on top of the C rules:
// base classes become leading children, members are bucketed under
// synthetic public/private/protected group nodes, and the vtable
// pointer is hidden. Anything it does not specifically handle falls
// back to the embedded C implementation.
type cplusOps struct {
	cOps
}

// accessOrder is the fixed presentation order of the group nodes.
var accessOrder = [3]target.Access{target.AccessPublic, target.AccessPrivate, target.AccessProtected}

func groupName(a target.Access) string {
	switch a {
	case target.AccessPrivate:
		return config.GroupPrivate
	case target.AccessProtected:
		return config.GroupProtected
	default:
		return config.GroupPublic
	}
}

func groupAccess(name string) target.Access {
	switch name {
	case config.GroupPrivate:
		return target.AccessPrivate
	case config.GroupProtected:
		return target.AccessProtected
	default:
		return target.AccessPublic
	}
}

// classCounts tallies the class's own members (base classes excluded)
// per access level, omitting the virtual-table pointer.
func classCounts(typ *target.Type) (counts [3]int) {
	for i := typ.NumBases; i < len(typ.Fields); i++ {
		f := &typ.Fields[i]
		if f.IsVTable {
			continue
		}
		counts[f.Access]++
	}
	return counts
}

// isClassLike reports struct/union/class, the aggregate kinds the OOP
// layer takes over.
func isClassLike(typ *target.Type) bool {
	if typ == nil {
		return false
	}
	return typ.Kind == target.KindStruct || typ.Kind == target.KindUnion || typ.Kind == target.KindClass
}

// realFieldIndex maps the num'th member of the given access level back
// to its index in the type's field list, or -1.
func realFieldIndex(typ *target.Type, access target.Access, num int) int {
	found := 0
	for i := typ.NumBases; i < len(typ.Fields); i++ {
		f := &typ.Fields[i]
		if f.IsVTable || f.Access != access {
			continue
		}
		if found == num {
			return i
		}
		found++
	}
	return -1
}

// groupType returns the class type a group node's members come from:
// the group's parent, dereferenced.
func (c *cplusOps) groupType(group *Object) *target.Type {
	typ, _ := c.m.getTypeDeref(group.parent)
	return typ
}

func (c *cplusOps) numberOfChildren(v *Object) int {
	if v.groupNode {
		typ := c.groupType(v)
		if !isClassLike(typ) {
			return 0
		}
		counts := classCounts(typ)
		return counts[groupAccess(v.name)]
	}

	typ, _ := c.m.getTypeDeref(v)
	if typ == nil {
		return config.UnknownChildCount
	}
	if isClassLike(typ) {
		children := typ.NumBases
		for _, n := range classCounts(typ) {
			if n != 0 {
				children++
			}
		}
		return children
	}

	return c.cOps.numberOfChildren(v)
}

func (c *cplusOps) makeNameOfChild(parent *Object, index int) string {
	var typ *target.Type
	if parent.groupNode {
		typ = c.groupType(parent)
	} else {
		typ, _ = c.m.getTypeDeref(parent)
	}

	if isClassLike(typ) {
		if parent.groupNode {
			i := realFieldIndex(typ, groupAccess(parent.name), index)
			if i >= 0 {
				return typ.Fields[i].Name
			}
			return "???"
		}

		if index < typ.NumBases {
			return typ.Fields[index].Type.String()
		}

		// Everything beyond the base classes can only be one of the
		// group nodes, output in fixed order, empty levels skipped.
		counts := classCounts(typ)
		var present []target.Access
		for _, a := range accessOrder {
			if counts[a] > 0 {
				present = append(present, a)
			}
		}
		if i := index - typ.NumBases; i < len(present) {
			return groupName(present[i])
		}
		return "???"
	}

	return c.cOps.makeNameOfChild(parent, index)
}

func (c *cplusOps) pathExprOfChild(parent *Object, index int) string {
	child := parent.childByIndex(index)
	if child == nil {
		return ""
	}

	// Group nodes are transparent for addressing: their path is just
	// the parent's, so their real children concatenate directly.
	if child.groupNode {
		return parent.PathExpr()
	}

	var typ *target.Type
	var wasPtr bool
	if parent.groupNode {
		typ, wasPtr = c.m.getTypeDeref(parent.parent)
	} else {
		typ, wasPtr = c.m.getTypeDeref(parent)
	}

	if isClassLike(typ) {
		parentExpr := parent.PathExpr()

		if parent.groupNode {
			i := realFieldIndex(typ, groupAccess(parent.name), index)
			if i < 0 {
				return ""
			}
			if wasPtr {
				return fmt.Sprintf("(%s)->%s", parentExpr, typ.Fields[i].Name)
			}
			return fmt.Sprintf("(%s).%s", parentExpr, typ.Fields[i].Name)
		}

		if index < typ.NumBases {
			// A parenthesized upcast recreates a base-class child.
			baseName := typ.Fields[index].Type.String()
			if wasPtr {
				return fmt.Sprintf("((%s *) %s)", baseName, parentExpr)
			}
			return fmt.Sprintf("((%s) %s)", baseName, parentExpr)
		}
	}

	return c.cOps.pathExprOfChild(parent, index)
}

func (c *cplusOps) valueOfChild(parent *Object, index int) target.Value {
	var typ *target.Type
	if parent.groupNode {
		typ, _ = c.m.getTypeDeref(parent.parent)
	} else {
		typ, _ = c.m.getTypeDeref(parent)
	}

	if isClassLike(typ) {
		if parent.groupNode {
			grand := parent.parent
			if grand.value == nil {
				return nil
			}
			child := parent.childByIndex(index)
			if child == nil {
				return nil
			}
			value, err := grand.value.Field(child.name)
			if err != nil {
				return nil
			}
			return value
		}

		if index >= typ.NumBases {
			// Group nodes carry no value of their own.
			return nil
		}

		// Base class: cast the (dereferenced) parent to the base type.
		if parent.value == nil {
			return nil
		}
		temp := parent.value
		if pt := parent.value.Type().Resolve(); pt != nil && pt.Kind == target.KindPointer {
			deref, err := parent.value.Deref()
			if err != nil {
				return c.cOps.valueOfChild(parent, index)
			}
			temp = deref
		}
		value, err := temp.Cast(typ.Fields[index].Type)
		if err != nil {
			return nil
		}
		return value
	}

	return c.cOps.valueOfChild(parent, index)
}

func (c *cplusOps) typeOfChild(parent *Object, index int) *target.Type {
	var typ *target.Type
	if parent.groupNode {
		typ, _ = c.m.getTypeDeref(parent.parent)
	} else {
		typ, _ = c.m.getTypeDeref(parent)
	}

	if isClassLike(typ) {
		if parent.groupNode {
			child := parent.childByIndex(index)
			if child == nil {
				return nil
			}
			if f, ok := typ.LookupField(child.name); ok {
				return f.Type
			}
			return nil
		}
		if index < typ.NumBases {
			return typ.Fields[index].Type
		}
		// Group node.
		return nil
	}

	return c.cOps.typeOfChild(parent, index)
}

func (c *cplusOps) variableEditable(v *Object) bool {
	if v.groupNode {
		return false
	}
	return c.cOps.variableEditable(v)
}

func (c *cplusOps) valueOfVariable(v *Object) string {
	if v.groupNode {
		return ""
	}
	return c.cOps.valueOfVariable(v)
}

// javaOps is identical to the C++ table except that dots occurring in
// synthesized child names (qualified class names) are replaced, to
// keep them unambiguous against path-expression separators.
type javaOps struct {
	cplusOps
}

func (j *javaOps) makeNameOfChild(parent *Object, index int) string {
	name := j.cplusOps.makeNameOfChild(parent, index)
	return strings.ReplaceAll(name, ".", string(config.EscapedNameSeparator))
}
