package sim

import (
	"errors"
	"fmt"
	"math"
)

// Well-known message names used by the deck protocols.
//
// Action cards receive Action for a discrete fire, and the
// ActiveStart/ActiveTick/ActiveStop triplet while continuously held. Event
// cards receive Check once per deck evaluation. Tick is delivered to every
// card of every on-stage actor once per simulation step.
const (
	MessageAction      = "Action"
	MessageActiveStart = "ActiveStart"
	MessageActiveTick  = "ActiveTick"
	MessageActiveStop  = "ActiveStop"
	MessageCheck       = "Check"
	MessageTick        = "Tick"
)

// Event is the structured payload produced by event cards. A nil Event means
// "no event"; an empty non-nil Event is a real event with no data.
type Event map[string]any

// EmptyEvent returns a fresh event carrying no data.
func EmptyEvent() Event { return Event{} }

// Falsy reports whether an exported script value is falsy under JavaScript
// truthiness: nil, false, numeric zero, NaN and the empty string. Handler
// results cross the VM boundary as nil, bool, int64, float64 or string (plus
// structured values, which are never falsy).
func Falsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case int:
		return val == 0
	case int64:
		return val == 0
	case float64:
		return val == 0 || math.IsNaN(val)
	case string:
		return val == ""
	default:
		return false
	}
}

// ActionMessage is the payload delivered to action cards. Its one shape
// invariant is a truthy "event" member.
type ActionMessage map[string]any

// NewActionMessage wraps an event into an action payload. A nil event is
// replaced with an empty one.
func NewActionMessage(ev Event) ActionMessage {
	if ev == nil {
		ev = EmptyEvent()
	}
	return ActionMessage{"event": ev}
}

// Validate checks the action payload shape invariant.
func (m ActionMessage) Validate() error {
	if m == nil {
		return errors.New("action message must not be nil")
	}
	ev, ok := m["event"]
	if !ok || Falsy(ev) {
		return errors.New("action message must contain a truthy 'event' member")
	}
	return nil
}

// Message is one delivery to an actor or card. Time is the simulation time at
// delivery, in seconds.
type Message struct {
	Name    string
	Payload any
	Sender  *Actor
	Time    float64
}

// BroadcastOptions selects which actors a broadcast reaches. The zero value
// reaches nobody; use DefaultBroadcast for the usual on-stage-only send.
type BroadcastOptions struct {
	OnStage  bool
	OffStage bool
}

// DefaultBroadcast reaches on-stage actors only.
func DefaultBroadcast() BroadcastOptions {
	return BroadcastOptions{OnStage: true}
}

func (o BroadcastOptions) String() string {
	return fmt.Sprintf("{onstage:%v offstage:%v}", o.OnStage, o.OffStage)
}
