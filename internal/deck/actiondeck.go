package deck

import (
	"fmt"

	"github.com/deckwise/stagescript/internal/sim"
)

// Defaults for the activation call, in seconds.
const (
	// DefaultDuration is how long a deck stays active after the last
	// activation call without renewal.
	DefaultDuration = 0.5
	// DefaultPulseInterval is the time between repeated discrete-fire
	// messages while continuously active.
	DefaultPulseInterval = 0.6
)

// activation is the per-deck state while Active.
type activation struct {
	cards        []*sim.Card
	msg          sim.ActionMessage
	lastCall     float64
	pulseElapsed float64
	expiresAt    float64
}

// ActionState drives the per-deck activation state machine for one calling
// card. A deck is Inactive until the first activation call, stays Active
// while renewed within its duration, and delivers exactly one ActiveStop when
// it expires or is explicitly deactivated.
type ActionState struct {
	active map[string]*activation
}

// NewActionState returns a state machine with every deck Inactive.
func NewActionState() *ActionState {
	return &ActionState{active: make(map[string]*activation)}
}

// IsActive reports whether the deck is currently Active.
func (s *ActionState) IsActive(deckKey string) bool {
	_, ok := s.active[deckKey]
	return ok
}

func deliver(cards []*sim.Card, name string, payload any, now float64, sender *sim.Actor) error {
	for i, c := range cards {
		if _, _, err := c.Call(sim.Message{Name: name, Payload: payload, Sender: sender, Time: now}); err != nil {
			return fmt.Errorf("card %d (%s): %s failed: %w", i, c.Behavior, name, err)
		}
	}
	return nil
}

// Activate is the per-tick "this action should be active" call.
//
// The first call while Inactive delivers Action then ActiveStart to every
// card in deck order and starts the timers. Renewal calls deliver ActiveTick,
// refresh the remaining duration, and accumulate the pulse timer by the
// elapsed time since the previous call; when the pulse timer reaches
// pulseInterval an additional Action is delivered and the timer resets.
//
// The cards slice is captured so that expiry can still reach the deck; msg
// must satisfy the action payload shape invariant.
func (s *ActionState) Activate(deckKey string, cards []*sim.Card, msg sim.ActionMessage, duration, pulseInterval, now float64, sender *sim.Actor) error {
	if msg == nil {
		msg = sim.NewActionMessage(nil)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("action deck %q: %w", deckKey, err)
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	if pulseInterval <= 0 {
		pulseInterval = DefaultPulseInterval
	}

	a, ok := s.active[deckKey]
	if !ok {
		if err := deliver(cards, sim.MessageAction, msg, now, sender); err != nil {
			return fmt.Errorf("action deck %q: %w", deckKey, err)
		}
		if err := deliver(cards, sim.MessageActiveStart, msg, now, sender); err != nil {
			return fmt.Errorf("action deck %q: %w", deckKey, err)
		}
		s.active[deckKey] = &activation{
			cards:     cards,
			msg:       msg,
			lastCall:  now,
			expiresAt: now + duration,
		}
		return nil
	}

	a.cards = cards
	a.msg = msg
	a.pulseElapsed += now - a.lastCall
	a.lastCall = now
	a.expiresAt = now + duration

	if err := deliver(cards, sim.MessageActiveTick, msg, now, sender); err != nil {
		return fmt.Errorf("action deck %q: %w", deckKey, err)
	}
	if a.pulseElapsed >= pulseInterval {
		a.pulseElapsed = 0
		if err := deliver(cards, sim.MessageAction, msg, now, sender); err != nil {
			return fmt.Errorf("action deck %q: %w", deckKey, err)
		}
	}
	return nil
}

// Deactivate explicitly returns a deck to Inactive, delivering ActiveStop to
// its cards. Deactivating an Inactive deck is a no-op.
func (s *ActionState) Deactivate(deckKey string, now float64, sender *sim.Actor) error {
	a, ok := s.active[deckKey]
	if !ok {
		return nil
	}
	delete(s.active, deckKey)
	if err := deliver(a.cards, sim.MessageActiveStop, a.msg, now, sender); err != nil {
		return fmt.Errorf("action deck %q: %w", deckKey, err)
	}
	return nil
}

// Advance expires decks whose duration elapsed without renewal, delivering
// ActiveStop exactly once per expired deck. Call once per simulation tick.
func (s *ActionState) Advance(now float64, sender *sim.Actor) error {
	for key, a := range s.active {
		if now <= a.expiresAt {
			continue
		}
		delete(s.active, key)
		if err := deliver(a.cards, sim.MessageActiveStop, a.msg, now, sender); err != nil {
			return fmt.Errorf("action deck %q: %w", key, err)
		}
	}
	return nil
}
