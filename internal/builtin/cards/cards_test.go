package cards

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deckwise/stagescript/internal/deck"
	"github.com/deckwise/stagescript/internal/sim"
)

func newCard(t *testing.T, impl sim.Handler, values map[string]any) *sim.Card {
	t.Helper()
	a := sim.NewActor("holder")
	c := a.AttachCard("native", impl)
	c.Values = values
	return c
}

func check(t *testing.T, c *sim.Card, at float64) any {
	t.Helper()
	res, handled, err := c.Call(sim.Message{Name: sim.MessageCheck, Time: at})
	require.NoError(t, err)
	require.True(t, handled)
	return res
}

func TestExprCondition_Predicate(t *testing.T) {
	t.Parallel()

	cond := &ExprCondition{Source: `mem.health > props.threshold`}
	c := newCard(t, cond, map[string]any{"threshold": 50.0})
	c.Actor.Mem.Set("health", 80.0)

	require.Equal(t, true, check(t, c, 0))

	c.Actor.Mem.Set("health", 30.0)
	require.Equal(t, false, check(t, c, 0))
}

func TestExprCondition_StructuredEvent(t *testing.T) {
	t.Parallel()

	cond := &ExprCondition{Source: `{"source": "expr", "at": time}`}
	c := newCard(t, cond, nil)

	res := check(t, c, 2.5)
	m, ok := res.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "expr", m["source"])
	require.Equal(t, 2.5, m["at"])
}

func TestExprCondition_UndefinedVariablesAreNil(t *testing.T) {
	t.Parallel()

	// Missing keys evaluate as nil rather than failing, so predicates can
	// reference memory not written yet.
	cond := &ExprCondition{Source: `mem.missing == nil`}
	c := newCard(t, cond, nil)
	require.Equal(t, true, check(t, c, 0))
}

func TestExprCondition_Errors(t *testing.T) {
	t.Parallel()

	bad := &ExprCondition{Source: `1 +`}
	c := newCard(t, bad, nil)
	_, handled, err := c.Call(sim.Message{Name: sim.MessageCheck})
	require.True(t, handled)
	require.Error(t, err)

	// Non-Check messages are not handled at all.
	cond := &ExprCondition{Source: `true`}
	c2 := newCard(t, cond, nil)
	_, handled, err = c2.Call(sim.Message{Name: sim.MessageTick})
	require.NoError(t, err)
	require.False(t, handled)
}

func TestExprCondition_InEventDeck(t *testing.T) {
	t.Parallel()

	cond := &ExprCondition{Source: `temp.armed == true`}
	c := newCard(t, cond, nil)
	store := new(sim.Memory)

	ev, err := deck.EvaluateEventDeck([]*sim.Card{c}, "k", true, store, sim.Message{})
	require.NoError(t, err)
	require.Nil(t, ev)

	c.Actor.Temp.Set("armed", true)
	ev, err = deck.EvaluateEventDeck([]*sim.Card{c}, "k", true, store, sim.Message{})
	require.NoError(t, err)
	require.NotNil(t, ev)
}

func TestProgramLRU_Eviction(t *testing.T) {
	t.Parallel()

	lru := newProgramLRU(2)
	p1, err := compileCached("1 + 1")
	require.NoError(t, err)

	lru.put("a", p1)
	lru.put("b", p1)
	// Touch "a" so "b" is the eviction candidate.
	_, ok := lru.get("a")
	require.True(t, ok)
	lru.put("c", p1)

	_, ok = lru.get("b")
	require.False(t, ok)
	_, ok = lru.get("a")
	require.True(t, ok)
	_, ok = lru.get("c")
	require.True(t, ok)
}

func TestCompileCached_ReusesPrograms(t *testing.T) {
	t.Parallel()

	p1, err := compileCached(`props.x * 2`)
	require.NoError(t, err)
	p2, err := compileCached(`props.x * 2`)
	require.NoError(t, err)
	require.Same(t, p1, p2)
}

func TestTimerEvent_FiresAfterDuration(t *testing.T) {
	t.Parallel()

	timer := &TimerEvent{Seconds: 1.0}
	c := newCard(t, timer, nil)

	// First Check arms the timer.
	require.Equal(t, false, check(t, c, 10.0))
	require.Equal(t, false, check(t, c, 10.5))

	res := check(t, c, 11.2)
	ev, ok := res.(sim.Event)
	require.True(t, ok)
	require.InDelta(t, 1.2, ev["elapsed"].(float64), 1e-9)

	// Keeps firing; the deck evaluator's edge filter makes it one-shot.
	require.IsType(t, sim.Event{}, check(t, c, 12.0))
}

func TestTimerEvent_ResetRestarts(t *testing.T) {
	t.Parallel()

	timer := &TimerEvent{Seconds: 1.0}
	c := newCard(t, timer, nil)

	check(t, c, 0)
	require.IsType(t, sim.Event{}, check(t, c, 2.0))

	timer.Reset(c)
	require.Equal(t, false, check(t, c, 2.0))
	require.Equal(t, false, check(t, c, 2.5))
	require.IsType(t, sim.Event{}, check(t, c, 3.0))
}

func TestTimerEvent_TransientTierRestart(t *testing.T) {
	t.Parallel()

	timer := &TimerEvent{Seconds: 1.0}
	c := newCard(t, timer, nil)

	check(t, c, 0)
	// Ownership transfer clears the transient tier; the timer restarts
	// instead of firing with stale elapsed time.
	c.Actor.ResetTransient()
	require.Equal(t, false, check(t, c, 5.0))
	require.IsType(t, sim.Event{}, check(t, c, 6.0))
}

func ExampleExprCondition() {
	a := sim.NewActor("door")
	a.Mem.Set("locked", false)
	cond := &ExprCondition{Source: `mem.locked == false`}
	c := a.AttachCard("condition", cond)

	res, _, _ := c.Call(sim.Message{Name: sim.MessageCheck})
	fmt.Println(res)
	// Output: true
}
