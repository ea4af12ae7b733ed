package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_BasicOperations(t *testing.T) {
	t.Parallel()

	m := new(Memory)

	m.Set("key1", "value1")
	require.Equal(t, "value1", m.Get("key1"))
	require.Nil(t, m.Get("nonexistent"))

	require.True(t, m.Has("key1"))
	require.False(t, m.Has("nonexistent"))

	m.Delete("key1")
	require.False(t, m.Has("key1"))

	m.Set("int", 42)
	m.Set("map", map[string]any{"a": 1})
	require.Equal(t, 42, m.Get("int"))
	require.Equal(t, map[string]any{"a": 1}, m.Get("map"))
}

func TestMemory_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := new(Memory)
	m.Set("a", 1)

	snap := m.Snapshot()
	snap["a"] = 2
	require.Equal(t, 1, m.Get("a"))
}

func TestActor_ResetTransient(t *testing.T) {
	t.Parallel()

	a := NewActor("player")
	a.Mem.Set("score", 10)
	a.Temp.Set("deck:fired", true)

	a.ResetTransient()

	// Only the transient tier is cleared.
	require.Equal(t, 10, a.Mem.Get("score"))
	require.False(t, a.Temp.Has("deck:fired"))
}
