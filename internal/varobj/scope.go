package varobj

// pcInValidBlock reports whether the root's defining lexical block is
// currently live: either the expression is globally valid, or the
// bound frame still exists and its program counter lies within the
// block's range. The frame identifier is re-resolved on every check;
// frame caches are rebuilt whenever the target runs, so a cached frame
// would be stale.
func (m *Manager) pcInValidBlock(r *Root) bool {
	if r.validBlock == nil {
		return true
	}

	fi, ok := m.sess.ResolveFrame(r.frameID)
	if !ok {
		return false
	}
	return r.validBlock.Contains(fi.PC())
}
