package deck

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deckwise/stagescript/internal/sim"
)

// stubCard is a native handler returning canned Check results and counting
// deliveries.
type stubCard struct {
	result     any
	resultFn   func(call int, payload any) any
	err        error
	checkCalls int
}

func (s *stubCard) HandleMessage(c *sim.Card, msg sim.Message) (any, bool, error) {
	if msg.Name != sim.MessageCheck {
		return nil, false, nil
	}
	s.checkCalls++
	if s.err != nil {
		return nil, true, s.err
	}
	if s.resultFn != nil {
		return s.resultFn(s.checkCalls, msg.Payload), true, nil
	}
	return s.result, true, nil
}

func deckOf(t *testing.T, stubs ...*stubCard) []*sim.Card {
	t.Helper()
	a := sim.NewActor("holder")
	cards := make([]*sim.Card, len(stubs))
	for i, s := range stubs {
		cards[i] = a.AttachCard("stub", s)
	}
	return cards
}

func TestEvaluateEventDeck_AllTrueReturnsEventEveryTick(t *testing.T) {
	t.Parallel()

	stubs := []*stubCard{{result: true}, {result: true}, {result: true}}
	cards := deckOf(t, stubs...)
	store := new(sim.Memory)

	for tick := 0; tick < 4; tick++ {
		ev, err := EvaluateEventDeck(cards, "deck", false, store, sim.Message{})
		require.NoError(t, err)
		require.NotNil(t, ev)
	}
}

func TestEvaluateEventDeck_AnyFalsyFailsRegardlessOfOrder(t *testing.T) {
	t.Parallel()

	for _, failIdx := range []int{0, 1, 2} {
		stubs := []*stubCard{{result: true}, {result: true}, {result: true}}
		stubs[failIdx].result = false
		cards := deckOf(t, stubs...)

		ev, err := EvaluateEventDeck(cards, "deck", false, new(sim.Memory), sim.Message{})
		require.NoError(t, err)
		require.Nil(t, ev)
	}

	// nil results are falsy too.
	cards := deckOf(t, &stubCard{result: true}, &stubCard{result: nil})
	ev, err := EvaluateEventDeck(cards, "deck", false, new(sim.Memory), sim.Message{})
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestEvaluateEventDeck_EveryCardPolledAfterFailure(t *testing.T) {
	t.Parallel()

	stubs := []*stubCard{{result: false}, {result: true}, {result: true}}
	cards := deckOf(t, stubs...)

	_, err := EvaluateEventDeck(cards, "deck", false, new(sim.Memory), sim.Message{})
	require.NoError(t, err)

	// Card 1 fails, yet every card received exactly one Check.
	for i, s := range stubs {
		require.Equal(t, 1, s.checkCalls, "card %d", i)
	}
}

func TestEvaluateEventDeck_FiredEventAdopted(t *testing.T) {
	t.Parallel()

	fired := sim.Event{"key": "pressed"}
	stubs := []*stubCard{
		{result: map[string]any(fired)},
		{resultFn: func(_ int, payload any) any {
			// The accumulated event is carried to later cards.
			return payload
		}},
	}
	cards := deckOf(t, stubs...)

	ev, err := EvaluateEventDeck(cards, "deck", false, new(sim.Memory), sim.Message{})
	require.NoError(t, err)
	require.Equal(t, fired, ev)
}

func TestEvaluateEventDeck_RisingEdgeOnly(t *testing.T) {
	t.Parallel()

	results := []any{false, true, true}
	call := 0
	stub := &stubCard{resultFn: func(_ int, _ any) any {
		r := results[call]
		call++
		return r
	}}
	cards := deckOf(t, stub)
	store := new(sim.Memory)

	// false -> true -> true yields a non-nil result only on the second call.
	ev, err := EvaluateEventDeck(cards, "deck", true, store, sim.Message{})
	require.NoError(t, err)
	require.Nil(t, ev)

	ev, err = EvaluateEventDeck(cards, "deck", true, store, sim.Message{})
	require.NoError(t, err)
	require.NotNil(t, ev)

	ev, err = EvaluateEventDeck(cards, "deck", true, store, sim.Message{})
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestEvaluateEventDeck_EdgeStateIsPerDeck(t *testing.T) {
	t.Parallel()

	store := new(sim.Memory)
	cards := deckOf(t, &stubCard{result: true})

	ev, err := EvaluateEventDeck(cards, "deckA", true, store, sim.Message{})
	require.NoError(t, err)
	require.NotNil(t, ev)

	// deckA fired last tick, but deckB has its own edge state.
	ev, err = EvaluateEventDeck(cards, "deckB", true, store, sim.Message{})
	require.NoError(t, err)
	require.NotNil(t, ev)

	ev, err = EvaluateEventDeck(cards, "deckA", true, store, sim.Message{})
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestEvaluateEventDeck_EmptyDeckAlwaysTrue(t *testing.T) {
	t.Parallel()

	ev, err := EvaluateEventDeck(nil, "deck", false, new(sim.Memory), sim.Message{})
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Empty(t, ev)
}

func TestEvaluateEventDeck_HandlerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	cards := deckOf(t, &stubCard{err: boom})
	_, err := EvaluateEventDeck(cards, "deck", false, new(sim.Memory), sim.Message{})
	require.ErrorIs(t, err, boom)
}

func TestClassifyResult(t *testing.T) {
	t.Parallel()

	require.Equal(t, Failed(), ClassifyResult(nil))
	require.Equal(t, Failed(), ClassifyResult(false))
	require.Equal(t, Satisfied(), ClassifyResult(true))
	require.Equal(t, Satisfied(), ClassifyResult(42))
	require.Equal(t, Satisfied(), ClassifyResult("ok"))
	require.Equal(t, Fired(sim.Event{"a": 1}), ClassifyResult(map[string]any{"a": 1}))
	require.Equal(t, Fired(sim.EmptyEvent()), ClassifyResult(sim.Event{}))

	// Falsy scalars crossing the VM boundary fail the predicate, same as
	// false itself.
	require.Equal(t, Failed(), ClassifyResult(int64(0)))
	require.Equal(t, Failed(), ClassifyResult(0.0))
	require.Equal(t, Failed(), ClassifyResult(math.NaN()))
	require.Equal(t, Failed(), ClassifyResult(""))
}

func TestEvaluateEventDeck_FalsyScalarFails(t *testing.T) {
	t.Parallel()

	cards := deckOf(t, &stubCard{result: int64(0)})
	ev, err := EvaluateEventDeck(cards, "deck", false, new(sim.Memory), sim.Message{})
	require.NoError(t, err)
	require.Nil(t, ev)
}
