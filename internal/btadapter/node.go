// Package btadapter exposes deck evaluation as go-behaviortree leaf nodes,
// letting an embedding game compose card decks into larger trees.
package btadapter

import (
	bt "github.com/joeycumines/go-behaviortree"

	"github.com/deckwise/stagescript/internal/deck"
	"github.com/deckwise/stagescript/internal/sim"
)

// EventDeckCondition returns a leaf that evaluates the card's event deck
// property once per tick. It succeeds when the deck yields an event and
// fails otherwise, including while the card's properties are not yet bound.
//
// The deck's rising-edge state lives in the owning actor's transient tier,
// same as for the scripting API, so tree and script views of a deck agree.
func EventDeckCondition(c *sim.Card, propName string, onlyEdge bool, clock func() float64) bt.Node {
	return bt.New(func(children []bt.Node) (bt.Status, error) {
		cards, bound, err := c.Deck(propName)
		if !bound {
			return bt.Failure, nil
		}
		if err != nil {
			return bt.Failure, err
		}
		ev, err := deck.EvaluateEventDeck(cards, c.ID+":"+propName, onlyEdge, c.Actor.Temp, sim.Message{Time: clock()})
		if err != nil {
			return bt.Failure, err
		}
		if ev != nil {
			return bt.Success, nil
		}
		return bt.Failure, nil
	})
}

// ActionDeckDriver returns a leaf that renews the deck's activation on every
// tick it runs, converting tree liveness into the held-action protocol: the
// deck's cards see ActiveStart when the driver first runs, ActiveTick and
// pulsed Action fires while it keeps running, and ActiveStop once the tree
// stops ticking it for longer than duration.
//
// Expiry is swept by whoever owns the state machine (the host's tick loop);
// the driver itself always succeeds.
func ActionDeckDriver(state *deck.ActionState, c *sim.Card, propName string, msg sim.ActionMessage, duration, pulseInterval float64, clock func() float64) bt.Node {
	return bt.New(func(children []bt.Node) (bt.Status, error) {
		cards, bound, err := c.Deck(propName)
		if !bound {
			return bt.Success, nil
		}
		if err != nil {
			return bt.Failure, err
		}
		if err := state.Activate(propName, cards, msg, duration, pulseInterval, clock(), c.Actor); err != nil {
			return bt.Failure, err
		}
		return bt.Success, nil
	})
}
