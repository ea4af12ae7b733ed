package scripting

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/deckwise/stagescript/internal/deck"
	"github.com/deckwise/stagescript/internal/sim"
)

// scopeGlobals are the names installed for the duration of one card-handler
// invocation. Handlers can trigger nested handlers (deck calls), so the
// previous bindings are saved and restored around each installation.
var scopeGlobals = []string{
	"mem", "card", "temp", "props",
	"send", "sendDelayed", "sendToSelf", "sendToSelfDelayed",
	"sendToMany", "sendToAll", "sendToAllDelayed",
	"cooldown", "getMessageSender",
	"callDeck", "callActionDeck", "deactivateActionDeck", "callEventDeck",
}

// memObject exposes a sim.Memory tier as a plain JS object: reads and writes
// of arbitrary keys go straight to the store.
type memObject struct {
	vm *goja.Runtime
	m  *sim.Memory
}

func (o *memObject) Get(key string) goja.Value {
	v := o.m.Get(key)
	if v == nil {
		return goja.Undefined()
	}
	return o.vm.ToValue(v)
}

func (o *memObject) Set(key string, val goja.Value) bool {
	o.m.Set(key, val.Export())
	return true
}

func (o *memObject) Has(key string) bool { return o.m.Has(key) }

func (o *memObject) Delete(key string) bool {
	o.m.Delete(key)
	return true
}

func (o *memObject) Keys() []string { return o.m.Keys() }

// scope is the evaluation context of one handler invocation: the card being
// evaluated, the message that triggered it, and the host the API delegates
// to.
type scope struct {
	e    *Engine
	vm   *goja.Runtime
	card *sim.Card
	msg  sim.Message
}

// installScope binds the per-invocation API into the VM and returns a restore
// function undoing the bindings.
func (e *Engine) installScope(vm *goja.Runtime, c *sim.Card, msg sim.Message) (restore func()) {
	saved := make(map[string]goja.Value, len(scopeGlobals))
	global := vm.GlobalObject()
	for _, name := range scopeGlobals {
		saved[name] = global.Get(name)
	}

	sc := &scope{e: e, vm: vm, card: c, msg: msg}

	_ = vm.Set("mem", vm.NewDynamicObject(&memObject{vm: vm, m: c.Actor.Mem}))
	_ = vm.Set("card", vm.NewDynamicObject(&memObject{vm: vm, m: c.Mem}))
	_ = vm.Set("temp", vm.NewDynamicObject(&memObject{vm: vm, m: c.Actor.Temp}))
	_ = vm.Set("props", c.Values)

	_ = vm.Set("send", sc.jsSend)
	_ = vm.Set("sendDelayed", sc.jsSendDelayed)
	_ = vm.Set("sendToSelf", sc.jsSendToSelf)
	_ = vm.Set("sendToSelfDelayed", sc.jsSendToSelfDelayed)
	_ = vm.Set("sendToMany", sc.jsSendToMany)
	_ = vm.Set("sendToAll", sc.jsSendToAll)
	_ = vm.Set("sendToAllDelayed", sc.jsSendToAllDelayed)
	_ = vm.Set("cooldown", sc.jsCooldown)
	_ = vm.Set("getMessageSender", sc.jsGetMessageSender)
	_ = vm.Set("callDeck", sc.jsCallDeck)
	_ = vm.Set("callActionDeck", sc.jsCallActionDeck)
	_ = vm.Set("deactivateActionDeck", sc.jsDeactivateActionDeck)
	_ = vm.Set("callEventDeck", sc.jsCallEventDeck)

	return func() {
		for _, name := range scopeGlobals {
			if v := saved[name]; v != nil {
				_ = vm.Set(name, v)
			} else {
				_ = vm.Set(name, goja.Undefined())
			}
		}
	}
}

func (sc *scope) host() HostContext {
	h := sc.e.hostContext()
	if h == nil {
		panic(sc.vm.NewGoError(fmt.Errorf("no host context wired; messaging is unavailable")))
	}
	return h
}

// exportPayload converts an optional message payload argument. Absent, null
// and undefined become nil; anything else must be a plain object.
func (sc *scope) exportPayload(v goja.Value, fn string) map[string]any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	m, ok := v.Export().(map[string]any)
	if !ok {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: payload must be an object", fn)))
	}
	return m
}

func (sc *scope) requireString(v goja.Value, fn, what string) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) || v.String() == "" {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: %s must be a non-empty string", fn, what)))
	}
	return v.String()
}

func (sc *scope) resolveActor(v goja.Value, fn string) *sim.Actor {
	id := sc.requireString(v, fn, "target actor")
	a, ok := sc.host().FindActor(id)
	if !ok {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: no such actor: %q", fn, id)))
	}
	return a
}

func (sc *scope) exportBroadcastOptions(v goja.Value, fn string) sim.BroadcastOptions {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return sim.DefaultBroadcast()
	}
	m, ok := v.Export().(map[string]any)
	if !ok {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: options must be an object", fn)))
	}
	opts := sim.DefaultBroadcast()
	if on, ok := m["onstage"].(bool); ok {
		opts.OnStage = on
	}
	if off, ok := m["offstage"].(bool); ok {
		opts.OffStage = off
	}
	return opts
}

func (sc *scope) requireSeconds(v goja.Value, fn, what string) float64 {
	if v == nil || goja.IsUndefined(v) {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: %s must be a number of seconds", fn, what)))
	}
	secs := v.ToFloat()
	if secs < 0 {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: %s must not be negative", fn, what)))
	}
	return secs
}

// jsSend delivers a message to one actor.
//
// JS signature: send(target, messageName, payload?)
func (sc *scope) jsSend(call goja.FunctionCall) goja.Value {
	target := sc.resolveActor(call.Argument(0), "send")
	name := sc.requireString(call.Argument(1), "send", "message name")
	payload := sc.exportPayload(call.Argument(2), "send")
	sc.host().SendTo(target, name, 0, payload, sc.card.Actor)
	return goja.Undefined()
}

// jsSendDelayed schedules a message for an actor at a simulation-time offset.
//
// JS signature: sendDelayed(target, delaySeconds, messageName, payload?)
func (sc *scope) jsSendDelayed(call goja.FunctionCall) goja.Value {
	target := sc.resolveActor(call.Argument(0), "sendDelayed")
	delay := sc.requireSeconds(call.Argument(1), "sendDelayed", "delay")
	name := sc.requireString(call.Argument(2), "sendDelayed", "message name")
	payload := sc.exportPayload(call.Argument(3), "sendDelayed")
	sc.host().SendTo(target, name, delay, payload, sc.card.Actor)
	return goja.Undefined()
}

// jsSendToSelf delivers a message to the current actor.
//
// JS signature: sendToSelf(messageName, payload?)
func (sc *scope) jsSendToSelf(call goja.FunctionCall) goja.Value {
	name := sc.requireString(call.Argument(0), "sendToSelf", "message name")
	payload := sc.exportPayload(call.Argument(1), "sendToSelf")
	sc.host().SendTo(sc.card.Actor, name, 0, payload, sc.card.Actor)
	return goja.Undefined()
}

// jsSendToSelfDelayed schedules a message for the current actor.
//
// JS signature: sendToSelfDelayed(delaySeconds, messageName, payload?)
func (sc *scope) jsSendToSelfDelayed(call goja.FunctionCall) goja.Value {
	delay := sc.requireSeconds(call.Argument(0), "sendToSelfDelayed", "delay")
	name := sc.requireString(call.Argument(1), "sendToSelfDelayed", "message name")
	payload := sc.exportPayload(call.Argument(2), "sendToSelfDelayed")
	sc.host().SendTo(sc.card.Actor, name, delay, payload, sc.card.Actor)
	return goja.Undefined()
}

// jsSendToMany delivers a message to an ordered list of actors.
//
// JS signature: sendToMany(targets, messageName, payload?)
func (sc *scope) jsSendToMany(call goja.FunctionCall) goja.Value {
	raw, ok := call.Argument(0).Export().([]any)
	if !ok {
		panic(sc.vm.NewTypeError("sendToMany: targets must be an array of actor references"))
	}
	name := sc.requireString(call.Argument(1), "sendToMany", "message name")
	payload := sc.exportPayload(call.Argument(2), "sendToMany")
	targets := make([]*sim.Actor, 0, len(raw))
	for i, t := range raw {
		id, ok := t.(string)
		if !ok || id == "" {
			panic(sc.vm.NewTypeError(fmt.Sprintf("sendToMany: targets[%d] must be an actor reference", i)))
		}
		a, ok := sc.host().FindActor(id)
		if !ok {
			panic(sc.vm.NewTypeError(fmt.Sprintf("sendToMany: no such actor: %q", id)))
		}
		targets = append(targets, a)
	}
	for _, a := range targets {
		sc.host().SendTo(a, name, 0, payload, sc.card.Actor)
	}
	return goja.Undefined()
}

// jsSendToAll broadcasts a message.
//
// JS signature: sendToAll(messageName, payload?, {onstage?, offstage?}?)
func (sc *scope) jsSendToAll(call goja.FunctionCall) goja.Value {
	name := sc.requireString(call.Argument(0), "sendToAll", "message name")
	payload := sc.exportPayload(call.Argument(1), "sendToAll")
	opts := sc.exportBroadcastOptions(call.Argument(2), "sendToAll")
	sc.host().SendToAll(name, 0, payload, opts, sc.card.Actor)
	return goja.Undefined()
}

// jsSendToAllDelayed broadcasts a message at a simulation-time offset.
//
// JS signature: sendToAllDelayed(delaySeconds, messageName, payload?, {onstage?, offstage?}?)
func (sc *scope) jsSendToAllDelayed(call goja.FunctionCall) goja.Value {
	delay := sc.requireSeconds(call.Argument(0), "sendToAllDelayed", "delay")
	name := sc.requireString(call.Argument(1), "sendToAllDelayed", "message name")
	payload := sc.exportPayload(call.Argument(2), "sendToAllDelayed")
	opts := sc.exportBroadcastOptions(call.Argument(3), "sendToAllDelayed")
	sc.host().SendToAll(name, delay, payload, opts, sc.card.Actor)
	return goja.Undefined()
}

// jsCooldown suppresses redelivery of the current message type to this card.
//
// JS signature: cooldown(seconds)
func (sc *scope) jsCooldown(call goja.FunctionCall) goja.Value {
	secs := sc.requireSeconds(call.Argument(0), "cooldown", "seconds")
	sc.host().SetCooldown(sc.card, sc.msg.Name, secs)
	return goja.Undefined()
}

// jsGetMessageSender returns the sending actor's reference, or null when the
// message had no sender (host-originated deliveries).
func (sc *scope) jsGetMessageSender(call goja.FunctionCall) goja.Value {
	if sc.msg.Sender == nil {
		return goja.Null()
	}
	return sc.vm.ToValue(sc.msg.Sender.ID)
}

// resolveDeck resolves a deck property for the general calls, where an
// unknown deck is a contract failure.
func (sc *scope) resolveDeck(v goja.Value, fn string) (string, []*sim.Card) {
	name := sc.requireString(v, fn, "deck name")
	cards, bound, err := sc.card.Deck(name)
	if !bound {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: properties are not bound yet", fn)))
	}
	if err != nil {
		panic(sc.vm.NewTypeError(fmt.Sprintf("%s: %v", fn, err)))
	}
	return name, cards
}

// jsCallDeck delivers a message to every card in a deck and returns the
// ordered handler results.
//
// JS signature: callDeck(deckName, messageName, payload?) => any[]
func (sc *scope) jsCallDeck(call goja.FunctionCall) goja.Value {
	_, cards := sc.resolveDeck(call.Argument(0), "callDeck")
	name := sc.requireString(call.Argument(1), "callDeck", "message name")
	var payload any
	if v := call.Argument(2); v != nil && !goja.IsUndefined(v) {
		payload = v.Export()
	}
	results := make([]any, 0, len(cards))
	for _, c := range cards {
		res, _, err := c.Call(sim.Message{Name: name, Payload: payload, Sender: sc.card.Actor, Time: sc.host().Now()})
		if err != nil {
			panic(sc.vm.NewGoError(err))
		}
		results = append(results, res)
	}
	return sc.vm.ToValue(results)
}

// jsCallActionDeck is the per-tick activation call for an action deck.
//
// JS signature: callActionDeck(deckName, actionMessage?, durationSeconds?, pulseIntervalSeconds?)
//
// Calling before properties are bound is a benign no-op: activation is driven
// every tick and there is a window between instantiation and property
// binding.
func (sc *scope) jsCallActionDeck(call goja.FunctionCall) goja.Value {
	name := sc.requireString(call.Argument(0), "callActionDeck", "deck name")
	cards, bound, err := sc.card.Deck(name)
	if !bound {
		return goja.Undefined()
	}
	if err != nil {
		panic(sc.vm.NewTypeError(fmt.Sprintf("callActionDeck: %v", err)))
	}

	var msg sim.ActionMessage
	if m := sc.exportPayload(call.Argument(1), "callActionDeck"); m != nil {
		msg = sim.ActionMessage(m)
		if err := msg.Validate(); err != nil {
			panic(sc.vm.NewTypeError(fmt.Sprintf("callActionDeck: %v", err)))
		}
	} else {
		msg = sim.NewActionMessage(nil)
	}

	duration, pulse := sc.host().DefaultActionTiming()
	if v := call.Argument(2); v != nil && !goja.IsUndefined(v) {
		duration = sc.requireSeconds(v, "callActionDeck", "duration")
	}
	if v := call.Argument(3); v != nil && !goja.IsUndefined(v) {
		pulse = sc.requireSeconds(v, "callActionDeck", "pulse interval")
	}

	state := sc.host().ActionState(sc.card)
	if err := state.Activate(name, cards, msg, duration, pulse, sc.host().Now(), sc.card.Actor); err != nil {
		panic(sc.vm.NewGoError(err))
	}
	return goja.Undefined()
}

// jsDeactivateActionDeck explicitly returns an action deck to inactive,
// delivering its stop message.
//
// JS signature: deactivateActionDeck(deckName)
func (sc *scope) jsDeactivateActionDeck(call goja.FunctionCall) goja.Value {
	name := sc.requireString(call.Argument(0), "deactivateActionDeck", "deck name")
	_, bound, err := sc.card.Deck(name)
	if !bound {
		return goja.Undefined()
	}
	if err != nil {
		panic(sc.vm.NewTypeError(fmt.Sprintf("deactivateActionDeck: %v", err)))
	}
	state := sc.host().ActionState(sc.card)
	if err := state.Deactivate(name, sc.host().Now(), sc.card.Actor); err != nil {
		panic(sc.vm.NewGoError(err))
	}
	return goja.Undefined()
}

// jsCallEventDeck evaluates an event deck and returns the combined event, or
// null.
//
// JS signature: callEventDeck(deckName, onlyEdge?) => object | null
//
// onlyEdge defaults to true: the combined event is reported only on the tick
// it first fires.
func (sc *scope) jsCallEventDeck(call goja.FunctionCall) goja.Value {
	name, cards := sc.resolveDeck(call.Argument(0), "callEventDeck")
	onlyEdge := true
	if v := call.Argument(1); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		onlyEdge = v.ToBoolean()
	}

	// Rising-edge state is per calling card and per deck property, in the
	// transient tier.
	deckKey := sc.card.ID + ":" + name
	ev, err := deck.EvaluateEventDeck(cards, deckKey, onlyEdge, sc.card.Actor.Temp, sim.Message{
		Sender: sc.card.Actor,
		Time:   sc.host().Now(),
	})
	if err != nil {
		panic(sc.vm.NewGoError(err))
	}
	if ev == nil {
		return goja.Null()
	}
	return sc.vm.ToValue(map[string]any(ev))
}
