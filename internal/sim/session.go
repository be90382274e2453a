// Package sim is a scripted stand-in for a live debug target. It
// keeps a small typed memory, a call stack with lexical blocks, and a
// C-family expression evaluator, which together are enough to drive
// the variable-object layer through creation, stepping and update
// cycles without a real inferior.
package sim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/varobj/internal/target"
)

// VarDecl declares one variable of a lexical block.
type VarDecl struct {
	Name string
	Type *target.Type
	Init any
}

// BlockDecl is a lexical block of a function. Blocks are listed
// outermost first; each one nests inside its predecessor.
type BlockDecl struct {
	Start uint64
	End   uint64
	Vars  []VarDecl
}

// Function is a function the simulated program can have frames of.
type Function struct {
	Name   string
	Blocks []BlockDecl
}

// frame is one live stack frame. It owns the storage cells of every
// variable declared in the function; visibility at a given PC is the
// parser's business, not the frame's.
type frame struct {
	s      *Session
	id     target.FrameID
	fn     *Function
	pc     uint64
	cells  map[string]*cell
	blocks []*target.Block // parallel to fn.Blocks, outermost first
}

var _ target.Frame = (*frame)(nil)

func (f *frame) ID() target.FrameID { return f.id }
func (f *frame) PC() uint64         { return f.pc }

func (f *frame) Block() *target.Block {
	var innermost *target.Block
	for _, b := range f.blocks {
		if b.Contains(f.pc) {
			innermost = b
		}
	}
	if innermost == nil && len(f.blocks) > 0 {
		innermost = f.blocks[0]
	}
	return innermost
}

// Session is the simulated debugger session.
type Session struct {
	Lang target.Language

	types       map[string]*target.Type
	functions   map[string]*Function
	globals     map[string]*cell
	globalTypes map[string]*target.Type
	decls       map[*target.Block]*BlockDecl

	stack    []*frame // outermost first
	selected target.Frame
	byID     map[target.FrameID]*frame

	nextAddr  uint64
	lockDepth int

	// LockAcquired counts scheduler-lock acquisitions; tests use it to
	// check that every acquisition was paired with a release.
	LockAcquired int
}

var _ target.Session = (*Session)(nil)

// NewSession creates an empty session with the built-in scalar types
// pre-registered.
func NewSession(lang target.Language) *Session {
	s := &Session{
		Lang:        lang,
		types:       make(map[string]*target.Type),
		functions:   make(map[string]*Function),
		globals:     make(map[string]*cell),
		globalTypes: make(map[string]*target.Type),
		decls:       make(map[*target.Block]*BlockDecl),
		byID:        make(map[target.FrameID]*frame),
		nextAddr:    0x1000,
	}
	for _, t := range []*target.Type{
		{Name: "void", Kind: target.KindVoid},
		{Name: "bool", Kind: target.KindBool, Length: 1},
		{Name: "char", Kind: target.KindChar, Length: 1},
		{Name: "int", Kind: target.KindInt, Length: 4},
		{Name: "long", Kind: target.KindInt, Length: 8},
		{Name: "unsigned", Kind: target.KindInt, Length: 4},
		{Name: "float", Kind: target.KindFloat, Length: 4},
		{Name: "double", Kind: target.KindFloat, Length: 8},
	} {
		s.types[t.Name] = t
	}
	return s
}

// DefineType registers a named type so that the expression parser can
// use it in casts and declarations.
func (s *Session) DefineType(t *target.Type) *target.Type {
	s.types[t.Name] = t
	return t
}

// Type looks up a registered type by name.
func (s *Session) Type(name string) (*target.Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// DefineFunction registers a function the scenario can push frames of.
func (s *Session) DefineFunction(fn *Function) *Function {
	s.functions[fn.Name] = fn
	return fn
}

// AddGlobal allocates a global variable.
func (s *Session) AddGlobal(name string, t *target.Type, init any) {
	s.globals[name] = s.newCell(t, init)
	s.globalTypes[name] = t
}

// PushFrame pushes a frame of the named function and selects it. All
// variables of all the function's blocks get fresh storage.
func (s *Session) PushFrame(fnName string, pc uint64) (target.Frame, error) {
	fn, ok := s.functions[fnName]
	if !ok {
		return nil, fmt.Errorf("no function %q", fnName)
	}
	f := &frame{
		s:     s,
		id:    target.FrameID(uuid.NewString()),
		fn:    fn,
		pc:    pc,
		cells: make(map[string]*cell),
	}
	var parent *target.Block
	for i := range fn.Blocks {
		bd := &fn.Blocks[i]
		b := &target.Block{Start: bd.Start, End: bd.End, Parent: parent}
		f.blocks = append(f.blocks, b)
		s.decls[b] = bd
		parent = b
		for _, v := range bd.Vars {
			f.cells[v.Name] = s.newCell(v.Type, v.Init)
		}
	}
	s.stack = append(s.stack, f)
	s.byID[f.id] = f
	s.selected = f
	return f, nil
}

// PopFrame removes the innermost frame. Its identifier stops
// resolving, which is how the variable-object layer discovers that a
// fixed-frame root went out of scope.
func (s *Session) PopFrame() {
	if len(s.stack) == 0 {
		return
	}
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.byID, f.id)
	for _, b := range f.blocks {
		delete(s.decls, b)
	}
	if s.selected == target.Frame(f) {
		s.selected = nil
		if len(s.stack) > 0 {
			s.selected = s.stack[len(s.stack)-1]
		}
	}
}

// SetPC moves the program counter of the innermost frame.
func (s *Session) SetPC(pc uint64) {
	if len(s.stack) > 0 {
		s.stack[len(s.stack)-1].pc = pc
	}
}

func (s *Session) SelectedFrame() target.Frame { return s.selected }
func (s *Session) SelectFrame(f target.Frame)  { s.selected = f }

func (s *Session) ResolveFrame(id target.FrameID) (target.Frame, bool) {
	f, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return f, true
}

// RuntimeType identifies the dynamic class of the object a pointer
// value points at. It succeeds only for pointers to polymorphic
// classes whose pointee is live; every other case quietly fails.
func (s *Session) RuntimeType(v target.Value) (*target.Type, bool) {
	sv, ok := v.(*simValue)
	if !ok || sv.c == nil {
		return nil, false
	}
	r := sv.typ.Resolve()
	if r == nil || r.Kind != target.KindPointer {
		return nil, false
	}
	pc := sv.snap.pointee
	if pc == nil || pc.unreadable || !isClassKind(pc.typ) {
		return nil, false
	}
	if !isPolymorphic(pc.typ) {
		return nil, false
	}
	return pc.typ, true
}

// LockScheduler enters only-this-thread-runs mode. The returned
// function restores the previous mode; nesting is counted so the
// outermost release unlocks.
func (s *Session) LockScheduler() func() {
	s.lockDepth++
	s.LockAcquired++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		s.lockDepth--
	}
}

// Locked reports whether the scheduler is currently held.
func (s *Session) Locked() bool { return s.lockDepth > 0 }

// Poke evaluates an expression in the selected frame and stores a new
// scalar into its location.
func (s *Session) Poke(expr string, value any) error {
	v, err := s.evalInSelected(expr)
	if err != nil {
		return err
	}
	tmp := s.newCell(v.typ, value)
	tmp.lval = false
	_, err = v.Assign(newSimValue(s, v.typ, tmp))
	return err
}

// SetPointer points the pointer named by expr at the object named by
// targetExpr, or at null when targetExpr is empty.
func (s *Session) SetPointer(expr, targetExpr string) error {
	pv, err := s.evalInSelected(expr)
	if err != nil {
		return err
	}
	pr := pv.typ.Resolve()
	if pr.Kind != target.KindPointer && pr.Kind != target.KindReference {
		return fmt.Errorf("%s is not a pointer", expr)
	}
	st, err := pv.storage()
	if err != nil {
		return err
	}
	if targetExpr == "" {
		st.pointee = nil
		st.scalar = 0
		return nil
	}
	tv, err := s.evalInSelected(targetExpr)
	if err != nil {
		return err
	}
	tc, err := tv.storage()
	if err != nil {
		return err
	}
	st.pointee = tc
	st.scalar = int64(tc.addr)
	return nil
}

// Retag replaces the object a pointer points at with a fresh object
// of a different class, simulating the pointee's dynamic type
// changing between stops.
func (s *Session) Retag(expr string, className string) error {
	t, ok := s.types[className]
	if !ok {
		return fmt.Errorf("no type %q", className)
	}
	pv, err := s.evalInSelected(expr)
	if err != nil {
		return err
	}
	pr := pv.typ.Resolve()
	if pr.Kind != target.KindPointer && pr.Kind != target.KindReference {
		return fmt.Errorf("%s is not a pointer", expr)
	}
	st, err := pv.storage()
	if err != nil {
		return err
	}
	st.pointee = s.newCell(t, nil)
	st.scalar = int64(st.pointee.addr)
	return nil
}

// Poison marks the storage of an expression unreadable; Unpoison
// reverses it. Reads of a poisoned cell still produce a value, but
// comparing it (including against itself) fails, which is how real
// targets surface unreadable memory to the update engine.
func (s *Session) Poison(expr string) error { return s.setReadable(expr, false) }

// Unpoison makes previously poisoned storage readable again.
func (s *Session) Unpoison(expr string) error { return s.setReadable(expr, true) }

func (s *Session) setReadable(expr string, readable bool) error {
	v, err := s.evalInSelected(expr)
	if err != nil {
		return err
	}
	st, err := v.storage()
	if err != nil {
		return err
	}
	st.unreadable = !readable
	return nil
}

func (s *Session) evalInSelected(text string) (*simValue, error) {
	var block *target.Block
	if s.selected != nil {
		block = s.selected.Block()
	}
	e, err := s.Parse(text, block)
	if err != nil {
		return nil, err
	}
	v, err := e.Evaluate(s.selected)
	if err != nil {
		return nil, err
	}
	return v.(*simValue), nil
}
