package sim

import (
	"fmt"

	"github.com/google/uuid"
)

// Handler processes messages delivered to a single card. The handled return
// reports whether the card had a handler for the message name at all;
// unhandled messages are not an error.
//
// Implementations are either script-backed (the scripting engine dispatching
// to a JS function) or native Go cards.
type Handler interface {
	HandleMessage(c *Card, msg Message) (result any, handled bool, err error)
}

// Card is one behavior instance composed onto an actor. It owns a private
// persistent memory tier and the values bound to its declared properties.
//
// Values is nil until the host binds properties; deck operations tolerate
// that window as a benign no-op.
type Card struct {
	ID       string
	Behavior string
	Actor    *Actor
	Mem      *Memory
	Values   map[string]any
	Impl     Handler
}

// Call delivers a message to this card and returns the handler's result.
func (c *Card) Call(msg Message) (any, bool, error) {
	if c.Impl == nil {
		return nil, false, nil
	}
	return c.Impl.HandleMessage(c, msg)
}

// Deck resolves an array-valued property on this card into its ordered card
// list. The second return is false when the property map is not yet bound
// (the startup race); a bound property that is missing or not a deck is an
// error.
func (c *Card) Deck(propName string) ([]*Card, bool, error) {
	if c.Values == nil {
		return nil, false, nil
	}
	raw, ok := c.Values[propName]
	if !ok {
		return nil, true, fmt.Errorf("no such deck property: %q", propName)
	}
	cards, ok := raw.([]*Card)
	if !ok {
		return nil, true, fmt.Errorf("property %q is not a card deck", propName)
	}
	return cards, true, nil
}

// Actor is a simulation entity holding behaviors (cards) and receiving
// messages. Mem persists for the actor's lifetime; Temp is the transient tier
// cleared on load or ownership transfer.
type Actor struct {
	ID      string
	Name    string
	OnStage bool
	Mem     *Memory
	Temp    *Memory
	Cards   []*Card
}

// NewActor creates an on-stage actor with a fresh identity.
func NewActor(name string) *Actor {
	return &Actor{
		ID:      uuid.NewString(),
		Name:    name,
		OnStage: true,
		Mem:     new(Memory),
		Temp:    new(Memory),
	}
}

// AttachCard composes a behavior instance onto the actor and returns it.
func (a *Actor) AttachCard(behavior string, impl Handler) *Card {
	c := &Card{
		ID:       uuid.NewString(),
		Behavior: behavior,
		Actor:    a,
		Mem:      new(Memory),
		Impl:     impl,
	}
	a.Cards = append(a.Cards, c)
	return c
}

// ResetTransient clears the transient memory tier, as happens on load and on
// ownership transfer.
func (a *Actor) ResetTransient() {
	a.Temp.Clear()
}

// Stage is the actor registry for one simulation.
type Stage struct {
	actors map[string]*Actor
	order  []string
}

// NewStage returns an empty stage.
func NewStage() *Stage {
	return &Stage{actors: make(map[string]*Actor)}
}

// Add registers an actor. Re-adding the same ID is a no-op.
func (s *Stage) Add(a *Actor) {
	if _, ok := s.actors[a.ID]; ok {
		return
	}
	s.actors[a.ID] = a
	s.order = append(s.order, a.ID)
}

// Remove unregisters an actor by ID.
func (s *Stage) Remove(id string) {
	if _, ok := s.actors[id]; !ok {
		return
	}
	delete(s.actors, id)
	for i, aid := range s.order {
		if aid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Find returns an actor by ID.
func (s *Stage) Find(id string) (*Actor, bool) {
	a, ok := s.actors[id]
	return a, ok
}

// FindByName returns the first actor with the given display name, in
// registration order.
func (s *Stage) FindByName(name string) (*Actor, bool) {
	for _, id := range s.order {
		if a := s.actors[id]; a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Actors returns the actors matched by the broadcast options, in registration
// order.
func (s *Stage) Actors(opts BroadcastOptions) []*Actor {
	var out []*Actor
	for _, id := range s.order {
		a := s.actors[id]
		if (a.OnStage && opts.OnStage) || (!a.OnStage && opts.OffStage) {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of registered actors.
func (s *Stage) Len() int { return len(s.order) }
