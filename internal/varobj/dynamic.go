package varobj

import "github.com/funvibe/varobj/internal/target"

// fixupValue runs a freshly evaluated value through run-time type
// identification. For pointers and references to polymorphic objects
// it resolves the most-derived class, wraps it back in the original
// pointer/reference qualifier and, when dynamic typing is enabled,
// re-casts the value to it. Identification failure is silent: the
// value keeps its static type and no dynamic type is reported. A
// failed cast likewise reverts to the static type.
func (m *Manager) fixupValue(in target.Value) (target.Value, *target.Type) {
	full := in
	var dynamicType *target.Type

	base := in.Type().Resolve()
	if base == nil {
		return in, nil
	}

	switch base.Kind {
	case target.KindPointer:
		if t, ok := m.sess.RuntimeType(in); ok {
			dynamicType = target.PointerTo(t)
		}

	case target.KindReference:
		// Identification works on pointers; view the same storage
		// through a synthesized pointer type, then re-wrap the result
		// as a reference.
		tt := base.Target()
		if tt != nil {
			if temp, err := in.Cast(target.PointerTo(tt)); err == nil {
				if t, ok := m.sess.RuntimeType(temp); ok {
					dynamicType = target.ReferenceTo(t)
				}
			}
		}
	}

	if dynamicType != nil && m.opts.UseDynamicType {
		cast, err := in.Cast(dynamicType)
		if err != nil {
			// Casting up classes with virtual inheritance can fail;
			// back out silently.
			full = in
			dynamicType = nil
		} else {
			full = cast
		}
	}

	return full, dynamicType
}
