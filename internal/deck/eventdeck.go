// Package deck implements the two protocols behind the deck-calling API: the
// action deck activation state machine and the event deck AND/edge evaluator.
//
// Both operate on ordered card lists resolved from a deck-valued property and
// deliver messages synchronously, in deck order, within the current
// simulation tick.
package deck

import (
	"fmt"

	"github.com/deckwise/stagescript/internal/sim"
)

// checkKind discriminates the result of delivering a Check message.
type checkKind int

const (
	checkFailed checkKind = iota
	checkSatisfied
	checkFired
)

// CheckResult is the classified outcome of one event card's Check handler:
// the predicate failed, the predicate held with no new data, or the card
// fired a fresh event.
type CheckResult struct {
	kind  checkKind
	event sim.Event
}

// Failed reports a predicate that did not hold this tick.
func Failed() CheckResult { return CheckResult{kind: checkFailed} }

// Satisfied reports a predicate that held without producing new event data.
func Satisfied() CheckResult { return CheckResult{kind: checkSatisfied} }

// Fired reports a freshly produced event.
func Fired(ev sim.Event) CheckResult {
	if ev == nil {
		ev = sim.EmptyEvent()
	}
	return CheckResult{kind: checkFired, event: ev}
}

// ClassifyResult maps a raw handler return value onto the tagged variant.
// Structured values become Fired; falsy values (nil, false, 0, NaN, "")
// become Failed; any other value counts as Satisfied.
func ClassifyResult(v any) CheckResult {
	switch val := v.(type) {
	case sim.Event:
		return Fired(val)
	case map[string]any:
		return Fired(sim.Event(val))
	default:
		if sim.Falsy(val) {
			return Failed()
		}
		return Satisfied()
	}
}

// edgeKey is the transient-memory key prefix holding the per-deck "fired on
// the previous tick" flag.
const edgeKeyPrefix = "eventDeck:firedLastTick:"

// EdgeStore is the transient per-deck state consulted for rising-edge
// detection. An actor's transient memory tier satisfies it.
type EdgeStore interface {
	Get(key string) any
	Set(key string, value any)
}

// EvaluateEventDeck runs one AND-combinator pass over the deck.
//
// Every card receives exactly one Check delivery carrying the accumulated
// event, in deck order, even after a failure has been detected; stateful
// event cards rely on being polled every tick, so only the result is
// short-circuited, never the delivery. An empty deck trivially succeeds with
// an empty synthesized event.
//
// The per-deck rising-edge flag in store is updated unconditionally. With
// onlyEdge set, the combined event is returned only on a rising edge (fired
// this tick, not fired on the immediately preceding tick); otherwise it is
// returned whenever the deck fired.
func EvaluateEventDeck(cards []*sim.Card, deckKey string, onlyEdge bool, store EdgeStore, msg sim.Message) (sim.Event, error) {
	var accumulated sim.Event
	failed := false

	for i, c := range cards {
		msg.Name = sim.MessageCheck
		msg.Payload = accumulated
		raw, _, err := c.Call(msg)
		if err != nil {
			return nil, fmt.Errorf("event deck %q: card %d (%s) check failed: %w", deckKey, i, c.Behavior, err)
		}
		if failed {
			continue
		}
		switch res := ClassifyResult(raw); res.kind {
		case checkSatisfied:
			if accumulated == nil {
				accumulated = sim.EmptyEvent()
			}
		case checkFailed:
			accumulated = nil
			failed = true
		case checkFired:
			accumulated = res.event
		}
	}

	if len(cards) == 0 && !failed {
		accumulated = sim.EmptyEvent()
	}

	hasEvent := accumulated != nil
	key := edgeKeyPrefix + deckKey
	firedLastTick, _ := store.Get(key).(bool)
	store.Set(key, hasEvent)

	if onlyEdge {
		if hasEvent && !firedLastTick {
			return accumulated, nil
		}
		return nil, nil
	}
	if hasEvent {
		return accumulated, nil
	}
	return nil, nil
}
