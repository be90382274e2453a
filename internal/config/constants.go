package config

// Access-level group node names. These exact strings are what UIs key
// on, so they are fixed for all OOP dispatch tables.
const (
	GroupPublic    = "public"
	GroupPrivate   = "private"
	GroupProtected = "protected"
)

// GeneratedNamePrefix is the prefix of auto-generated registry keys
// (var1, var2, ...).
const GeneratedNamePrefix = "var"

// KeySeparator joins a parent's registry key with a child name.
const KeySeparator = "."

// EscapedNameSeparator replaces '.' in synthesized child names for
// languages whose type names themselves contain dots.
const EscapedNameSeparator = '-'

// UnknownChildCount is the sentinel meaning "not yet computed".
const UnknownChildCount = -1

// DefaultUseDynamicType controls whether children are constructed from
// a value's most specific run-time class type.
const DefaultUseDynamicType = true
