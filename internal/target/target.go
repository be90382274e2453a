// Package target defines the narrow surface through which the
// variable-object subsystem talks to the rest of the debugger: the
// type model, values, stack frames, parsed expressions and the
// session. Everything here is a contract; the real debugger supplies
// one implementation, the simulator in internal/sim supplies another.
package target

// Language identifies the source language an expression was parsed
// under. It selects the variable-object dispatch table.
type Language int

const (
	LanguageUnknown Language = iota
	LanguageC
	LanguageCPlusPlus
	LanguageJava
)

func (l Language) String() string {
	switch l {
	case LanguageC:
		return "C"
	case LanguageCPlusPlus:
		return "C++"
	case LanguageJava:
		return "Java"
	default:
		return "unknown"
	}
}

// Format selects how a scalar value is rendered.
type Format int

const (
	FormatNatural Format = iota
	FormatBinary
	FormatDecimal
	FormatHexadecimal
	FormatOctal
	FormatUnsigned
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatDecimal:
		return "decimal"
	case FormatHexadecimal:
		return "hexadecimal"
	case FormatOctal:
		return "octal"
	case FormatUnsigned:
		return "unsigned"
	default:
		return "natural"
	}
}

// FrameID is a reallocation-stable identifier for a stack frame. It is
// never a raw stack address: holders must re-resolve it through
// Session.ResolveFrame on every use, since frame caches are rebuilt
// whenever the target runs.
type FrameID string

// NullFrameID marks "no frame bound".
const NullFrameID FrameID = ""

// Block is the address range of a lexical block. A nil *Block means
// the global scope, which is always valid.
type Block struct {
	Start  uint64
	End    uint64
	Parent *Block
}

// Contains reports whether pc lies within the block's half-open range.
func (b *Block) Contains(pc uint64) bool {
	return pc >= b.Start && pc < b.End
}

// Frame is a live view of one stack frame. It becomes invalid once the
// target resumes; only its ID may be retained.
type Frame interface {
	ID() FrameID
	PC() uint64
	// Block returns the innermost lexical block at the frame's PC.
	Block() *Block
}

// Value is a snapshot of an evaluated expression. Operations may fail
// when the underlying memory is unreadable; failures are ordinary
// errors, never panics.
type Value interface {
	Type() *Type

	// Index fetches element i of an array value.
	Index(i int) (Value, error)
	// Field fetches a named member; pointers to aggregates are
	// dereferenced transparently.
	Field(name string) (Value, error)
	// Deref dereferences a pointer or reference value.
	Deref() (Value, error)
	// Cast reinterprets the value as the given type.
	Cast(to *Type) (Value, error)
	// Assign stores from into this value's location and returns the
	// stored result. Fails for non-lvalues.
	Assign(from Value) (Value, error)
	// Equal compares contents. Comparing a value against itself acts
	// as a readability probe: it fails iff the value is unreadable.
	Equal(other Value) (bool, error)
}

// Expression is a parsed expression bound to the lexical block it was
// parsed against.
type Expression interface {
	Text() string
	Language() Language
	// IsTypeName reports whether the expression denotes a bare type
	// rather than a value.
	IsTypeName() bool
	// InnermostBlock is the defining block of the innermost variable
	// referenced, or nil when only globals are involved.
	InnermostBlock() *Block
	// Evaluate computes the expression's value in the given frame
	// (nil means globals only).
	Evaluate(f Frame) (Value, error)
	// EvaluateType computes the expression's static type without
	// requiring a live value.
	EvaluateType() (*Type, error)
}

// Session is the debugger side of the contract. All methods report
// failure through return values; none may panic into the caller.
type Session interface {
	// Parse parses text against a lexical block (nil for globals).
	Parse(text string, block *Block) (Expression, error)

	SelectedFrame() Frame
	SelectFrame(f Frame)
	// ResolveFrame maps a stable identifier back to a live frame, if
	// the frame still exists.
	ResolveFrame(id FrameID) (Frame, bool)

	// RuntimeType performs run-time type identification on a value of
	// polymorphic class type. Implementations must suppress their own
	// diagnostics on failure and simply report ok=false.
	RuntimeType(v Value) (*Type, bool)

	// Render formats a scalar value.
	Render(v Value, f Format) string

	// LockScheduler puts the target into only-this-thread-runs mode
	// and returns the function that restores the previous mode. The
	// restore function must run on every exit path.
	LockScheduler() func()
}
