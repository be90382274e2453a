// Package varobj maintains live, named handles onto expressions
// evaluated against a stopped target process. Each handle is a node in
// a tree rooted at a top-level expression; children materialize lazily
// as a UI expands nodes, and Update re-synchronizes a whole tree after
// the target runs and stops again, reporting exactly which nodes
// changed.
package varobj

import (
	"strconv"

	"github.com/funvibe/varobj/internal/config"
	"github.com/funvibe/varobj/internal/target"
)

// Object is one node of a variable-object tree. A node is owned by its
// parent (roots are owned by the Manager's registry); parent and root
// are non-owning back-references.
type Object struct {
	// name is the source-level child name (bar, not foo.bar); for
	// roots, the whole expression text.
	name string

	// pathExpr is the fully rooted expression recreating this node as
	// an independent root. Computed lazily, cached once.
	pathExpr string

	// objName is the registry key. Empty for transient objects that
	// were never installed.
	objName string

	// index is the position among siblings, or -1 for roots.
	index int

	// typ is the static type. Nil only while the root is out of scope.
	typ *target.Type

	// dynamicType is the most specific run-time class type, set only
	// when the resolver identified one.
	dynamicType *target.Type

	// value is the last evaluated snapshot, or nil after a failure.
	value target.Value

	// err records whether the last evaluation failed.
	err bool

	// numChildren is memoized; config.UnknownChildCount until first
	// computed.
	numChildren int

	parent   *Object
	children []*Object // most recently created first, unique by index

	// groupNode marks the synthetic public/private/protected buckets,
	// which carry no type or value of their own.
	groupNode bool

	root *Root

	format target.Format

	// updated is set when a varobj_set_value-style edit touched the
	// value; the next update reports the node changed regardless of
	// the comparison.
	updated bool

	mgr *Manager
}

// Root is the per-tree metadata shared by every node under one
// top-level expression.
type Root struct {
	// expr is the owned parsed expression. Nil when parsing is being
	// retried on the next update.
	expr target.Expression

	// validBlock is the lexical block the expression is meaningful
	// in; nil means globally valid.
	validBlock *target.Block

	// frameID re-resolves to the bound frame on every use.
	frameID target.FrameID

	// useSelectedFrame makes every update re-bind to whichever frame
	// is selected at that moment.
	useSelectedFrame bool

	// inScope is the scope status as of the last evaluation.
	inScope bool

	language target.Language
	ops      langOps

	rootObj *Object
}

// Options tunes a Manager.
type Options struct {
	// UseDynamicType constructs children from a value's most specific
	// run-time class type instead of its declared type.
	UseDynamicType bool

	// RunsAllThreads skips scheduler locking around evaluations,
	// letting every thread of the target run during function-call
	// evaluation.
	RunsAllThreads bool
}

// DefaultOptions returns the options a front end normally wants.
func DefaultOptions() Options {
	return Options{UseDynamicType: config.DefaultUseDynamicType}
}

// Manager owns the registry of variable objects for one debug session.
type Manager struct {
	sess  target.Session
	opts  Options
	table map[string]*Object
	roots []*Root
	next  int
}

// NewManager creates an empty registry bound to a session.
func NewManager(sess target.Session, opts Options) *Manager {
	return &Manager{
		sess:  sess,
		opts:  opts,
		table: make(map[string]*Object),
	}
}

// BindingKind selects how a new root resolves its frame and block.
type BindingKind int

const (
	// BindSelectedFrame evaluates in the frame selected right now and
	// stays bound to it.
	BindSelectedFrame BindingKind = iota
	// BindTrackSelectedFrame re-binds to whichever frame is selected
	// each time the object is updated.
	BindTrackSelectedFrame
	// BindFrame binds to an explicitly supplied frame.
	BindFrame
	// BindBlock parses against an explicit lexical block in the
	// selected frame.
	BindBlock
	// BindNoFrame is for expressions needing no frame (globals);
	// a block must still be supplied for name lookup.
	BindNoFrame
)

// Binding carries the frame/block context for Create.
type Binding struct {
	Kind  BindingKind
	Frame target.Frame
	Block *target.Block
}

func (m *Manager) lockScheduler() func() {
	if m.opts.RunsAllThreads {
		return func() {}
	}
	return m.sess.LockScheduler()
}

// GenName generates a unique registry key (var1, var2, ...).
func (m *Manager) GenName() string {
	m.next++
	return config.GeneratedNamePrefix + strconv.Itoa(m.next)
}

// Create parses and evaluates expression, wires up a new root variable
// object and, unless objName is empty, installs it in the registry.
// With an empty objName the object is transient: fully usable through
// the returned handle but invisible to lookups.
func (m *Manager) Create(objName, expression string, binding Binding) (*Object, error) {
	obj := newRootObject(m)

	// Evaluating the expression can call functions in the target;
	// keep the other threads stopped while it does.
	restore := m.lockScheduler()
	defer restore()

	var fi target.Frame
	switch binding.Kind {
	case BindSelectedFrame, BindTrackSelectedFrame, BindBlock:
		fi = m.sess.SelectedFrame()
	case BindFrame:
		fi = binding.Frame
	case BindNoFrame:
		fi = nil
	}

	if binding.Kind == BindTrackSelectedFrame {
		obj.root.useSelectedFrame = true
	}

	block := binding.Block
	if block == nil {
		switch binding.Kind {
		case BindBlock:
			return nil, NewInvalidExpressionError(expression, "explicit-block binding without a block")
		case BindNoFrame:
			return nil, NewInvalidExpressionError(expression, "no-frame binding without a block")
		default:
			if fi != nil {
				block = fi.Block()
			}
		}
	}

	expr, parseErr := m.sess.Parse(expression, block)
	if parseErr == nil {
		// Don't allow variables to be created for types.
		if expr.IsTypeName() {
			return nil, NewInvalidExpressionError(expression, "type name used as an expression")
		}
		obj.root.expr = expr
	} else if !obj.root.useSelectedFrame {
		return nil, NewInvalidExpressionError(expression, parseErr.Error())
	}
	// A tracking root that failed to parse stays around as a dummy and
	// is re-parsed on each update, once execution reaches a frame that
	// actually has the variable.

	obj.format = target.FormatNatural
	obj.name = expression
	obj.pathExpr = expression

	if obj.root.expr != nil {
		obj.root.validBlock = obj.root.expr.InnermostBlock()
		if fi != nil {
			obj.root.frameID = fi.ID()
		}

		// Evaluate in the bound frame, restoring the caller's frame
		// selection afterwards.
		var oldSelected target.Frame
		if fi != nil {
			oldSelected = m.sess.SelectedFrame()
			m.sess.SelectFrame(fi)
		}

		evaluated := false
		if obj.root.useSelectedFrame || binding.Kind == BindNoFrame || m.pcInValidBlock(obj.root) {
			if val, err := obj.root.expr.Evaluate(fi); err == nil {
				obj.root.inScope = true
				obj.typ = val.Type()
				obj.value, obj.dynamicType = m.fixupValue(val)
				evaluated = true
			}
		}
		if !evaluated {
			// Some evaluators can still report a type when the value
			// is unavailable. If even that fails the expression is
			// probably bogus; discard it so update can remake it.
			if typ, err := obj.root.expr.EvaluateType(); err == nil {
				obj.typ = typ
			} else {
				obj.root.expr = nil
				obj.typ = nil
				obj.value = nil
			}
			obj.root.inScope = false
		}

		obj.root.language = languageOf(obj.root.expr)
		obj.root.ops = m.opsFor(obj.root.language)

		if oldSelected != nil {
			m.sess.SelectFrame(oldSelected)
		}
	} else {
		obj.root.inScope = false
		obj.root.language = target.LanguageUnknown
		obj.root.ops = m.opsFor(target.LanguageUnknown)
	}

	obj.root.rootObj = obj

	if objName != "" {
		obj.objName = objName
		if err := m.install(obj); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func newRootObject(m *Manager) *Object {
	obj := newObject(m)
	obj.root = &Root{}
	return obj
}

func newObject(m *Manager) *Object {
	return &Object{
		mgr:         m,
		index:       -1,
		numChildren: config.UnknownChildCount,
	}
}

func languageOf(expr target.Expression) target.Language {
	if expr == nil {
		return target.LanguageUnknown
	}
	return expr.Language()
}

// isRoot reports whether obj is the root of its tree.
func (v *Object) isRoot() bool {
	return v.root != nil && v.root.rootObj == v
}

// NumChildren returns the memoized child count, computing it on first
// use. Returns config.UnknownChildCount when the expression is gone or
// the count cannot be determined.
func (v *Object) NumChildren() int {
	if v.root.expr == nil {
		return config.UnknownChildCount
	}
	if v.numChildren == config.UnknownChildCount {
		v.numChildren = v.root.ops.numberOfChildren(v)
	}
	return v.numChildren
}

// ListChildren materializes (on first call) and returns the node's
// children in index order. Calling it again without an intervening
// update or delete returns the same handles.
func (v *Object) ListChildren() []*Object {
	n := v.NumChildren()
	if n <= 0 {
		return nil
	}
	list := make([]*Object, 0, n)
	for i := 0; i < n; i++ {
		child := v.childByIndex(i)
		if child == nil {
			child = v.mgr.createChild(v, i, v.root.ops.makeNameOfChild(v, i))
		}
		list = append(list, child)
	}
	return list
}

// childByIndex returns the already materialized child at index, or nil.
func (v *Object) childByIndex(index int) *Object {
	for _, c := range v.children {
		if c.index == index {
			return c
		}
	}
	return nil
}

// createChild allocates, registers and attaches the index'th child.
func (m *Manager) createChild(parent *Object, index int, name string) *Object {
	child := newObject(m)
	child.name = name
	child.index = index
	child.parent = parent
	child.root = parent.root
	child.format = target.FormatNatural

	if isOOPLanguage(parent.root.language) {
		switch name {
		case config.GroupPublic, config.GroupPrivate, config.GroupProtected:
			child.groupNode = true
		}
	}

	if parent.objName != "" {
		child.objName = parent.objName + config.KeySeparator + name
		// The derived key can only collide if the caller installed a
		// conflicting root by hand; the child then stays transient.
		_ = m.install(child)
	}

	// Children are saved most-recently-created first.
	parent.children = append([]*Object{child}, parent.children...)

	child.typ = m.typeOfChild(child)
	var tc TypeChange
	child.value = m.valueOfChild(parent, index, &tc)

	if (!child.groupNode && child.value == nil) || parent.err {
		child.err = true
	}

	return child
}

// typeOfChild computes a freshly created child's static type.
func (m *Manager) typeOfChild(child *Object) *target.Type {
	if child.value != nil {
		return child.value.Type()
	}
	return child.root.ops.typeOfChild(child.parent, child.index)
}

// valueOfChild fetches the index'th child's value through the dispatch
// table and runs it through the dynamic type resolver. tc is set to
// DynamicTypeChanged when the resolved dynamic type differs from the
// child's cached one.
func (m *Manager) valueOfChild(parent *Object, index int, tc *TypeChange) target.Value {
	*tc = TypeUnchanged

	value := parent.root.ops.valueOfChild(parent, index)
	child := parent.childByIndex(index)
	if child == nil || value == nil {
		return value
	}

	if !child.groupNode {
		newValue, dynamicType := m.fixupValue(value)
		value = newValue
		if !typesEqual(dynamicType, child.dynamicType) {
			child.dynamicType = dynamicType
			*tc = DynamicTypeChanged
		}
	}

	return value
}

// Delete destroys the node's subtree, children before parents, and
// returns the registry keys that were removed, in removal order. With
// childrenOnly set, the node itself survives with no children and an
// unknown child count, forcing re-materialization on the next listing.
func (v *Object) Delete(childrenOnly bool) []string {
	var removed []string
	v.mgr.deleteObject(&removed, v, childrenOnly, true)
	return removed
}

// deleteObject removes var and (always) its descendants. When the
// parent itself is being deleted the child skips the parent's child
// list surgery and clears its back-reference instead.
func (m *Manager) deleteObject(removed *[]string, v *Object, childrenOnly, removeFromParent bool) {
	// On the children-only path each child unlinks itself from
	// v.children; walk a copy so the unlinking cannot skip a sibling.
	kids := append([]*Object(nil), v.children...)
	for _, c := range kids {
		if !removeFromParent {
			c.parent = nil
		}
		m.deleteObject(removed, c, false, childrenOnly)
	}
	if childrenOnly {
		v.children = nil
		v.numChildren = config.UnknownChildCount
		return
	}

	// Transient objects were never installed; they belong to the
	// caller and are not reported.
	if v.objName != "" {
		*removed = append(*removed, v.objName)
	}

	if removeFromParent && v.parent != nil {
		v.parent.removeChild(v)
	}
	if v.objName != "" {
		m.uninstall(v)
	}
	v.children = nil
	v.value = nil
	v.parent = nil
}

func (v *Object) removeChild(child *Object) {
	for i, c := range v.children {
		if c == child {
			v.children = append(v.children[:i], v.children[i+1:]...)
			return
		}
	}
}

// Name returns the node's source-level name (the expression text for
// roots).
func (v *Object) Name() string { return v.name }

// ObjName returns the registry key, or "" for transient objects.
func (v *Object) ObjName() string { return v.objName }

// Index returns the node's position among its siblings, -1 for roots.
func (v *Object) Index() int { return v.index }

// IsGroupNode reports whether this is a synthetic access-level bucket.
func (v *Object) IsGroupNode() bool { return v.groupNode }

// Language returns the dispatch language of the node's tree.
func (v *Object) Language() target.Language { return v.root.language }

// InScope reports the scope status as of the last update.
func (v *Object) InScope() bool { return v.root.inScope }

// Format returns the node's display format.
func (v *Object) Format() target.Format { return v.format }

// SetFormat sets the display format; unknown values reset to natural.
func (v *Object) SetFormat(f target.Format) target.Format {
	switch f {
	case target.FormatNatural, target.FormatBinary, target.FormatDecimal,
		target.FormatHexadecimal, target.FormatOctal, target.FormatUnsigned:
		v.format = f
	default:
		v.format = target.FormatNatural
	}
	return v.format
}

// TypeString renders the node's static type. Group nodes have no type.
func (v *Object) TypeString() string {
	if v.groupNode {
		return ""
	}
	if v.typ == nil {
		return "<error getting type>"
	}
	return v.typ.String()
}

// DynamicTypeString renders the resolved run-time type, or "".
func (v *Object) DynamicTypeString() string {
	if v.dynamicType == nil {
		return ""
	}
	return v.dynamicType.String()
}

// StaticType returns the node's static type.
func (v *Object) StaticType() *target.Type { return v.typ }

// PathExpr returns the fully rooted expression string that would
// recreate this node as an independent root.
func (v *Object) PathExpr() string {
	if v.pathExpr != "" {
		return v.pathExpr
	}
	if v.isRoot() {
		return v.name
	}
	v.pathExpr = v.root.ops.pathExprOfChild(v.parent, v.index)
	return v.pathExpr
}

// AttrEditable is the editable bit in the attributes mask.
const AttrEditable = 0x1

// Attributes returns the node's attribute bitmask.
func (v *Object) Attributes() int {
	attrs := 0
	if v.root.ops.variableEditable(v) {
		attrs |= AttrEditable
	}
	return attrs
}

// ValidBlockBounds returns the address range of the defining lexical
// block. ok is false for globally valid expressions.
func (v *Object) ValidBlockBounds() (start, end uint64, ok bool) {
	if v.root.validBlock == nil {
		return 0, 0, false
	}
	return v.root.validBlock.Start, v.root.validBlock.End, true
}

// ValueString renders the node's last known value, or "" when there is
// none.
func (v *Object) ValueString() string {
	if v.root.expr == nil || v.value == nil {
		return ""
	}
	return v.root.ops.valueOfVariable(v)
}

// SetValue assigns the value of expression to an editable node. The
// cached value is updated immediately so the next update does not
// re-report the edit, unless the written value actually differs.
func (v *Object) SetValue(expression string) error {
	m := v.mgr

	restore := m.lockScheduler()
	defer restore()

	if v.value == nil || v.err {
		return NewAssignmentError(v.name, "no current value")
	}
	if !v.root.ops.variableEditable(v) {
		return NewAssignmentError(v.name, "not editable")
	}

	// Parse in the selected frame's context so the source expression
	// can name locals, not just globals.
	var blk *target.Block
	if f := m.sess.SelectedFrame(); f != nil {
		blk = f.Block()
	}
	expr, err := m.sess.Parse(expression, blk)
	if err != nil {
		return NewAssignmentError(v.name, err.Error())
	}
	value, err := expr.Evaluate(m.sess.SelectedFrame())
	if err != nil {
		return NewAssignmentError(v.name, err.Error())
	}

	if eq, _ := threeWayEqual(v.value, value); !eq {
		v.updated = true
	}

	stored, err := v.value.Assign(value)
	if err != nil {
		return NewAssignmentError(v.name, err.Error())
	}
	v.value = stored
	return nil
}

// typesEqual compares two types by their rendered names; the update
// engine uses it to detect dynamic type movement. Two nil types
// compare equal (no dynamic type then and no dynamic type now); nil
// against non-nil does not.
func typesEqual(a, b *target.Type) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.String() == b.String()
}

// sameTypeAs reports whether two objects have the same static type;
// either side missing its type means not equal.
func (v *Object) sameTypeAs(o *Object) bool {
	if v.typ == nil || o.typ == nil {
		return false
	}
	return v.typ.String() == o.typ.String()
}
