package varobj

// The registry indexes every installed variable object by its key and
// keeps the separate list of root objects. It owns no tree memory;
// ownership of nodes stays in the tree itself.

// install adds obj under its registry key. Roots are also prepended to
// the root list.
func (m *Manager) install(obj *Object) error {
	if _, exists := m.table[obj.objName]; exists {
		return NewDuplicateNameError(obj.objName)
	}
	m.table[obj.objName] = obj

	if obj.isRoot() {
		m.roots = append([]*Root{obj.root}, m.roots...)
	}
	return nil
}

// uninstall removes obj from the index and, for roots, unlinks it from
// the root list. The root search is by identity, not key: during a
// type-changing update the replacement root briefly shares the old
// key.
func (m *Manager) uninstall(obj *Object) error {
	if _, ok := m.table[obj.objName]; !ok {
		return NewNotFoundError(obj.objName)
	}
	delete(m.table, obj.objName)

	if obj.isRoot() {
		for i, r := range m.roots {
			if r == obj.root {
				m.roots = append(m.roots[:i], m.roots[i+1:]...)
				return nil
			}
		}
		return NewNotFoundError(obj.objName)
	}
	return nil
}

// Lookup resolves a registry key to its variable object.
func (m *Manager) Lookup(objName string) (*Object, error) {
	obj, ok := m.table[objName]
	if !ok {
		return nil, NewNotFoundError(objName)
	}
	return obj, nil
}

// Roots returns every live root object in current list order (most
// recently installed first).
func (m *Manager) Roots() []*Object {
	list := make([]*Object, 0, len(m.roots))
	for _, r := range m.roots {
		list = append(list, r.rootObj)
	}
	return list
}

// RootCount returns the number of installed roots.
func (m *Manager) RootCount() int {
	return len(m.roots)
}
