// Package host wires the stage, the scheduler and the scripting engine into
// a runnable simulation and implements the host-context operations the
// scripting API delegates to.
package host

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/deckwise/stagescript/internal/deck"
	"github.com/deckwise/stagescript/internal/scripting"
	"github.com/deckwise/stagescript/internal/sim"
)

// Options carries the tunable defaults of a host.
type Options struct {
	// DefaultActionDuration is the activation duration used when
	// callActionDeck doesn't pass one. Zero means deck.DefaultDuration.
	DefaultActionDuration float64
	// DefaultPulseInterval is the pulse interval used when callActionDeck
	// doesn't pass one. Zero means deck.DefaultPulseInterval.
	DefaultPulseInterval float64
}

// Host owns one simulation: its stage, clock, delayed-message scheduler, the
// per-card action deck state machines and the redelivery cooldowns. All
// delivery is synchronous within a tick; there is no parallelism.
type Host struct {
	log    *log.Logger
	stage  *sim.Stage
	engine *scripting.Engine
	sched  sim.Scheduler
	opts   Options

	now           float64
	cooldownUntil map[string]float64
	actions       map[string]*deck.ActionState
}

// New creates a host over the given stage and wires itself into the engine
// as its host context. engine may be nil for purely native scenes.
func New(engine *scripting.Engine, stage *sim.Stage, logger *log.Logger, opts Options) *Host {
	if logger == nil {
		logger = log.Default()
	}
	if stage == nil {
		stage = sim.NewStage()
	}
	if opts.DefaultActionDuration <= 0 {
		opts.DefaultActionDuration = deck.DefaultDuration
	}
	if opts.DefaultPulseInterval <= 0 {
		opts.DefaultPulseInterval = deck.DefaultPulseInterval
	}
	h := &Host{
		log:           logger,
		stage:         stage,
		engine:        engine,
		opts:          opts,
		cooldownUntil: make(map[string]float64),
		actions:       make(map[string]*deck.ActionState),
	}
	if engine != nil {
		engine.SetHost(h)
	}
	return h
}

// Stage returns the actor registry.
func (h *Host) Stage() *sim.Stage { return h.stage }

// Now returns the current simulation time in seconds.
func (h *Host) Now() float64 { return h.now }

// CreateActor creates and registers an on-stage actor.
func (h *Host) CreateActor(name string) *sim.Actor {
	a := sim.NewActor(name)
	h.stage.Add(a)
	return a
}

// AttachBehavior composes a script behavior onto an actor and binds its
// property values (declared defaults overlaid with overrides).
func (h *Host) AttachBehavior(a *sim.Actor, behavior string, overrides map[string]any) (*sim.Card, error) {
	if h.engine == nil {
		return nil, fmt.Errorf("no scripting engine attached")
	}
	handler, err := h.engine.NewHandler(behavior)
	if err != nil {
		return nil, err
	}
	c := a.AttachCard(behavior, handler)
	if err := h.engine.BindCard(c, behavior, overrides); err != nil {
		return nil, err
	}
	return c, nil
}

// AttachNative composes a Go-implemented card onto an actor with the given
// bound values.
func (h *Host) AttachNative(a *sim.Actor, behavior string, impl sim.Handler, values map[string]any) *sim.Card {
	c := a.AttachCard(behavior, impl)
	if values == nil {
		values = map[string]any{}
	}
	c.Values = values
	return c
}

// Load models a session load or ownership transfer: every actor's transient
// tier is cleared, so per-deck edge state starts fresh.
func (h *Host) Load() {
	for _, a := range h.stage.Actors(sim.BroadcastOptions{OnStage: true, OffStage: true}) {
		a.ResetTransient()
	}
}

func cooldownKey(c *sim.Card, message string) string {
	return c.ID + "\x00" + message
}

// SetCooldown suppresses redelivery of the named message to the card for the
// given number of seconds.
func (h *Host) SetCooldown(c *sim.Card, message string, seconds float64) {
	h.cooldownUntil[cooldownKey(c, message)] = h.now + seconds
}

// ActionState returns (creating on first use) the action deck state machine
// owned by the card.
func (h *Host) ActionState(c *sim.Card) *deck.ActionState {
	s, ok := h.actions[c.ID]
	if !ok {
		s = deck.NewActionState()
		h.actions[c.ID] = s
	}
	return s
}

// DefaultActionTiming returns the configured activation duration and pulse
// interval.
func (h *Host) DefaultActionTiming() (duration, pulseInterval float64) {
	return h.opts.DefaultActionDuration, h.opts.DefaultPulseInterval
}

// FindActor resolves an actor reference.
func (h *Host) FindActor(id string) (*sim.Actor, bool) {
	return h.stage.Find(id)
}

// SendTo delivers, or schedules, a message for one actor.
func (h *Host) SendTo(target *sim.Actor, name string, delaySeconds float64, payload map[string]any, sender *sim.Actor) {
	if delaySeconds > 0 {
		h.sched.Schedule(h.now+delaySeconds, func() {
			h.deliver(target, sim.Message{Name: name, Payload: payload, Sender: sender, Time: h.now})
		})
		return
	}
	h.deliver(target, sim.Message{Name: name, Payload: payload, Sender: sender, Time: h.now})
}

// SendToAll delivers, or schedules, a broadcast. The recipient set is
// resolved at delivery time, so actors spawned during the delay are included.
func (h *Host) SendToAll(name string, delaySeconds float64, payload map[string]any, opts sim.BroadcastOptions, sender *sim.Actor) {
	fire := func() {
		for _, a := range h.stage.Actors(opts) {
			h.deliver(a, sim.Message{Name: name, Payload: payload, Sender: sender, Time: h.now})
		}
	}
	if delaySeconds > 0 {
		h.sched.Schedule(h.now+delaySeconds, fire)
		return
	}
	fire()
}

// deliver hands a message to every card of the actor, honoring redelivery
// cooldowns. Handler errors are logged, not propagated: one broken card must
// not take down delivery to its siblings.
func (h *Host) deliver(a *sim.Actor, msg sim.Message) {
	msg.Time = h.now
	for _, c := range append([]*sim.Card(nil), a.Cards...) {
		if until, ok := h.cooldownUntil[cooldownKey(c, msg.Name)]; ok && h.now < until {
			continue
		}
		if _, _, err := c.Call(msg); err != nil {
			h.log.Error("message handler failed",
				"actor", a.Name, "behavior", c.Behavior, "message", msg.Name, "err", err)
		}
	}
}

// Tick advances the simulation by dt seconds: fire due scheduled messages,
// deliver Tick to every card of every on-stage actor, then expire action
// deck activations that were not renewed.
func (h *Host) Tick(dt float64) {
	h.now += dt
	h.sched.Advance(h.now)

	for _, a := range h.stage.Actors(sim.DefaultBroadcast()) {
		h.deliver(a, sim.Message{Name: sim.MessageTick, Time: h.now})
	}

	for id, s := range h.actions {
		if err := s.Advance(h.now, nil); err != nil {
			h.log.Error("action deck expiry failed", "card", id, "err", err)
		}
	}
}

// Run advances the simulation by steps ticks of dt seconds each.
func (h *Host) Run(steps int, dt float64) {
	for i := 0; i < steps; i++ {
		h.Tick(dt)
	}
}
