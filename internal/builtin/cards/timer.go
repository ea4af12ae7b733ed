package cards

import "github.com/deckwise/stagescript/internal/sim"

// TimerEvent is a native event card that starts counting on its first Check
// and fires once the configured number of stage seconds has elapsed. The
// start time lives in the transient tier, so a load or ownership transfer
// restarts the timer.
//
// After expiry the card keeps reporting the event every tick; combined with
// the deck evaluator's edge filtering that yields a single activation.
type TimerEvent struct {
	Seconds float64
}

func (t *TimerEvent) HandleMessage(c *sim.Card, msg sim.Message) (any, bool, error) {
	if msg.Name != sim.MessageCheck {
		return nil, false, nil
	}
	key := "timer:start:" + c.ID
	start, ok := c.Actor.Temp.Get(key).(float64)
	if !ok {
		c.Actor.Temp.Set(key, msg.Time)
		return t.Seconds <= 0, true, nil
	}
	elapsed := msg.Time - start
	if elapsed >= t.Seconds {
		return sim.Event{"elapsed": elapsed}, true, nil
	}
	return false, true, nil
}

// Reset clears the timer's start time so the next Check restarts the count.
func (t *TimerEvent) Reset(c *sim.Card) {
	c.Actor.Temp.Delete("timer:start:" + c.ID)
}
