package varobj

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/varobj/internal/sim"
)

// TestScriptedSession replays a YAML scenario end to end: a front end
// creating watches at the first stop, then updating them after every
// scripted resume.
func TestScriptedSession(t *testing.T) {
	sc, err := sim.LoadScenario(filepath.Join("testdata", "session.yaml"))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 4)

	sess, err := sc.Build()
	require.NoError(t, err)
	m := NewManager(sess, DefaultOptions())

	objs := make(map[string]*Object, len(sc.Watch))
	for _, w := range sc.Watch {
		obj, err := m.Create(m.GenName(), w, Binding{Kind: BindSelectedFrame})
		require.NoError(t, err, "watch %s", w)
		objs[w] = obj
	}

	// Materialize the struct's members so the update walk covers them.
	for _, row := range objs["origin"].ListChildren() {
		row.ListChildren()
	}

	update := func(w string) *UpdateResult {
		res, err := m.Update(objs[w])
		require.NoError(t, err)
		objs[w] = res.Root
		return res
	}

	// Step 1: count 5 -> 6.
	require.NoError(t, sess.Apply(sc.Steps[0]))
	res := update("count")
	assert.Equal(t, OutcomeChanged, res.Kind)
	assert.Equal(t, "6", objs["count"].ValueString())
	assert.Equal(t, OutcomeUnchanged, update("origin").Kind)
	assert.Equal(t, OutcomeUnchanged, update("handle").Kind)

	// Step 2: the handle acquires a polymorphic pointee.
	require.NoError(t, sess.Apply(sc.Steps[1]))
	res = update("handle")
	assert.Equal(t, OutcomeChanged, res.Kind)
	ch, ok := res.Changes.Pop()
	require.True(t, ok)
	assert.Equal(t, DynamicTypeChanged, ch.TypeChange)
	assert.Equal(t, "Derived *", objs["handle"].DynamicTypeString())

	// Step 3: a member of the watched struct moves; the leaf reports,
	// the aggregate does not.
	require.NoError(t, sess.Apply(sc.Steps[2]))
	res = update("origin")
	assert.Equal(t, OutcomeChanged, res.Kind)
	var names []string
	for {
		c, ok := res.Changes.Pop()
		if !ok {
			break
		}
		names = append(names, c.Obj.Name())
	}
	assert.Equal(t, []string{"x"}, names)

	// Step 4: the frame unwinds; the local leaves scope exactly once.
	require.NoError(t, sess.Apply(sc.Steps[3]))
	assert.Equal(t, OutcomeWentOutOfScope, update("count").Kind)
	assert.Equal(t, OutcomeUnchanged, update("count").Kind)
	// Globals are indifferent to the stack.
	assert.Equal(t, OutcomeUnchanged, update("origin").Kind)
}
