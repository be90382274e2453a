package varobj

import "github.com/funvibe/varobj/internal/target"

// TypeChange classifies how a node's type moved between two updates.
type TypeChange int

const (
	// TypeUnchanged: same static and dynamic type as last update.
	TypeUnchanged TypeChange = iota
	// DynamicTypeChanged: the run-time type resolved differently;
	// the node's existing children are no longer valid.
	DynamicTypeChanged
	// TypeChanged: the static type itself differs; the whole tree was
	// rebuilt and the caller's handle rebound.
	TypeChanged
)

// Change is one entry of a change list.
type Change struct {
	Obj        *Object
	TypeChange TypeChange
}

// ChangeList is the ordered record of nodes that changed during one
// update, drained front-first by Pop.
type ChangeList struct {
	entries []Change
}

func newChangeList() *ChangeList {
	return &ChangeList{}
}

func (l *ChangeList) add(v *Object, tc TypeChange) {
	l.entries = append(l.entries, Change{Obj: v, TypeChange: tc})
}

// Len returns the number of undrained entries.
func (l *ChangeList) Len() int { return len(l.entries) }

// Pop removes and returns the earliest-recorded entry.
func (l *ChangeList) Pop() (Change, bool) {
	if len(l.entries) == 0 {
		return Change{}, false
	}
	c := l.entries[0]
	l.entries = l.entries[1:]
	return c, true
}

// OutcomeKind is the overall result of one update.
type OutcomeKind int

const (
	OutcomeUnchanged OutcomeKind = iota
	OutcomeChanged
	OutcomeTypeChanged
	OutcomeWentOutOfScope
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeChanged:
		return "changed"
	case OutcomeTypeChanged:
		return "type-changed"
	case OutcomeWentOutOfScope:
		return "out-of-scope"
	default:
		return "unchanged"
	}
}

// UpdateResult carries the outcome of Manager.Update. Root is the
// possibly replaced handle: after a type change the old handle is dead
// and Root points at the re-created object under the same registry
// key.
type UpdateResult struct {
	Kind    OutcomeKind
	Root    *Object
	Changes *ChangeList
}

// Update re-evaluates a root's whole tree against the current process
// state and reports which nodes changed. Only roots may be updated.
func (m *Manager) Update(obj *Object) (*UpdateResult, error) {
	if !obj.isRoot() {
		return nil, NewNotARootError(obj.name)
	}

	// Evaluations below re-select frames; put the caller's selection
	// back no matter how we leave. The id is re-resolved because the
	// frame cache may have been rebuilt meanwhile.
	var oldFid target.FrameID
	if f := m.sess.SelectedFrame(); f != nil {
		oldFid = f.ID()
	}
	defer func() {
		if oldFid != target.NullFrameID {
			if fi, ok := m.sess.ResolveFrame(oldFid); ok {
				m.sess.SelectFrame(fi)
			}
		}
	}()

	// Update the root first. A nil value means the variable is no
	// longer around, e.g. we stepped out of the frame in which a
	// local existed.
	tc := TypeUnchanged
	newVal := m.valueOfRoot(&obj, &tc)
	if newVal == nil {
		obj.err = true
		wasInScope := obj.root.inScope
		obj.root.inScope = false
		kind := OutcomeUnchanged
		if wasInScope {
			kind = OutcomeWentOutOfScope
		}
		return &UpdateResult{Kind: kind, Root: obj, Changes: newChangeList()}, nil
	}

	obj.err = false
	cameInScope := !obj.root.inScope
	obj.root.inScope = true

	result := newChangeList()
	changed := 0

	if tc != TypeUnchanged {
		// valueOfRoot already rebuilt or pruned the tree; just note
		// the change.
		result.add(obj, tc)
		changed++
	} else {
		record := cameInScope
		if !record && m.valueIsChangeable(obj) {
			if obj.updated {
				record = true
			} else {
				eq, newErr := threeWayEqual(obj.value, newVal)
				obj.err = newErr
				record = !eq
			}
		}
		if record {
			result.add(obj, TypeUnchanged)
			obj.updated = false
			changed++
		}
	}

	// Always keep the new value, even when unchanged: the children's
	// next comparisons are computed from it.
	obj.value = newVal

	// Walk the existing children without recursion; the tree can be
	// arbitrarily deep.
	stack := make([]*Object, len(obj.children))
	copy(stack, obj.children)

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Re-fetch before deciding whether to push v's children: a
		// dynamic type change invalidates them.
		ctc := TypeUnchanged
		newVal := m.valueOfChild(v.parent, v.index, &ctc)

		newErr := !v.groupNode && newVal == nil
		record := ctc != TypeUnchanged || cameInScope
		if !record && m.valueIsChangeable(v) {
			if v.updated {
				record = true
			} else {
				eq, probeErr := threeWayEqual(v.value, newVal)
				newErr = newErr || probeErr
				record = !eq
			}
		}
		if record {
			result.add(v, ctc)
			v.updated = false
			changed++
		}
		v.err = newErr
		v.value = newVal

		if ctc == TypeUnchanged {
			stack = append(stack, v.children...)
		} else {
			// Descendants were built against the old dynamic type;
			// drop them, they will rematerialize lazily.
			v.Delete(true)
		}
	}

	kind := OutcomeUnchanged
	switch {
	case tc == TypeChanged:
		kind = OutcomeTypeChanged
	case changed > 0:
		kind = OutcomeChanged
	}
	return &UpdateResult{Kind: kind, Root: obj, Changes: result}, nil
}

// valueOfRoot implements the generic half of the root re-fetch: the
// from-scratch re-creation for selected-frame-tracking (or still
// typeless) roots, the valid-region check for fixed-frame roots, and
// then the language dispatch.
func (m *Manager) valueOfRoot(varp **Object, tc *TypeChange) target.Value {
	v := *varp
	if !v.isRoot() {
		return nil
	}

	if v.root.useSelectedFrame || m.getType(v) == nil {
		// Re-create the expression from scratch against the frame
		// selected right now, to see whether it is of a different
		// type (or has become parseable at all).
		tmp, err := m.Create("", v.name, Binding{Kind: BindTrackSelectedFrame})
		if err != nil {
			return nil
		}
		if tmp.root.expr == nil || tmp.typ == nil {
			// No usable type; nothing to update against.
			tmp.Delete(false)
			return nil
		}

		if tmp.sameTypeAs(v) {
			// Same type: keep the existing tree. The variable may now
			// be shadowed by another of the same name and type in a
			// different block, so adopt the fresh valid region.
			ob, nb := v.root.validBlock, tmp.root.validBlock
			if ob != nil && nb != nil && (ob.Start != nb.Start || ob.End != nb.End) {
				v.root.validBlock = nb
			}
			tmp.Delete(false)
			*tc = TypeUnchanged
		} else {
			// Different type: the fresh copy replaces the old tree
			// under the same registry key.
			objName := v.objName
			v.Delete(false)
			if objName != "" {
				tmp.objName = objName
				_ = m.install(tmp)
			}
			*varp = tmp
			v = tmp
			*tc = TypeChanged
		}
	} else {
		*tc = TypeUnchanged

		// The evaluator will happily produce values for variables
		// defined anywhere in the current function, even when the PC
		// is outside their block. Scope-check before evaluating.
		if !m.pcInValidBlock(v.root) {
			return nil
		}
	}

	return v.root.ops.valueOfRoot(v, tc)
}

// valueIsChangeable reports whether a node's value may be reported as
// "changed" by comparison. Aggregates never are: their storage address
// stays put while layout bookkeeping differs, which would read as
// noise. They change only via scope transitions or type changes.
func (m *Manager) valueIsChangeable(v *Object) bool {
	if v.groupNode {
		return false
	}
	typ := m.getType(v)
	if typ == nil {
		return false
	}
	switch typ.Kind {
	case target.KindStruct, target.KindUnion, target.KindClass, target.KindArray:
		return false
	default:
		return true
	}
}

// threeWayEqual compares an old and a new value without letting a
// transient evaluation failure look like a real change. Each value is
// first probed against itself (a failing self-comparison means "this
// value is currently unreadable"); if the probes disagree the value
// changed, if both fail we cannot tell and assume it did not, and
// otherwise the real comparison decides. newErr reports the new
// value's probe result so the caller can mark the node errored.
func threeWayEqual(oldVal, newVal target.Value) (equal bool, newErr bool) {
	if oldVal == nil && newVal == nil {
		return true, false
	}
	if oldVal == nil || newVal == nil {
		return false, false
	}

	_, e1 := oldVal.Equal(oldVal)
	_, e2 := newVal.Equal(newVal)
	err1 := e1 != nil
	err2 := e2 != nil
	if err1 != err2 {
		return false, err2
	}

	eq, err := oldVal.Equal(newVal)
	if err != nil {
		// Both probes failed: indeterminate, call it unchanged. A
		// cross-comparison failure between two readable values is a
		// change.
		return err1 && err2, err2
	}
	return eq, err2
}
