package scripting

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
	"github.com/mitchellh/mapstructure"

	"github.com/deckwise/stagescript/internal/deck"
	"github.com/deckwise/stagescript/internal/sim"
)

// HostContext is the set of host operations the scripting API delegates to.
// It is supplied explicitly per engine rather than read from ambient state;
// every card-handler invocation receives a scope bound to it.
type HostContext interface {
	// Now returns the current simulation time in seconds.
	Now() float64
	// SendTo schedules a message for an actor after delaySeconds (zero means
	// the current tick's delivery pass).
	SendTo(target *sim.Actor, name string, delaySeconds float64, payload map[string]any, sender *sim.Actor)
	// SendToAll broadcasts to the actors selected by opts.
	SendToAll(name string, delaySeconds float64, payload map[string]any, opts sim.BroadcastOptions, sender *sim.Actor)
	// FindActor resolves an actor reference.
	FindActor(id string) (*sim.Actor, bool)
	// SetCooldown suppresses redelivery of the named message to the card
	// until the given number of seconds has elapsed.
	SetCooldown(c *sim.Card, message string, seconds float64)
	// ActionState returns the action deck state machine owned by the card.
	ActionState(c *sim.Card) *deck.ActionState
	// DefaultActionTiming returns the configured activation duration and
	// pulse interval.
	DefaultActionTiming() (duration, pulseInterval float64)
}

// Behavior is one registered behavior: its declared properties plus the
// handler functions extracted from the registration object.
type Behavior struct {
	Name     string
	Props    []sim.PropDef
	handlers map[string]goja.Callable
}

// HandlesMessage reports whether the behavior declared a handler for the
// message name.
func (b *Behavior) HandlesMessage(name string) bool {
	_, ok := b.handlers[name]
	return ok
}

// Engine binds the scripting API surface into the JavaScript runtime and
// dispatches card messages to registered behavior handlers.
type Engine struct {
	rt   *Runtime
	vm   *goja.Runtime
	log  *log.Logger
	host HostContext

	mu        sync.RWMutex
	behaviors map[string]*Behavior
}

// NewEngine creates an engine on the given runtime and installs the global
// API (registerBehavior and the property declarators).
func NewEngine(rt *Runtime, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		rt:        rt,
		log:       logger,
		behaviors: make(map[string]*Behavior),
	}
	err := rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		e.vm = vm
		return e.setupGlobals(vm)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to install scripting globals: %w", err)
	}
	return e, nil
}

// SetHost wires the host context. Must be called before any handler runs.
func (e *Engine) SetHost(h HostContext) {
	e.mu.Lock()
	e.host = h
	e.mu.Unlock()
}

func (e *Engine) hostContext() HostContext {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.host
}

func (e *Engine) setupGlobals(vm *goja.Runtime) error {
	if err := vm.Set("registerBehavior", e.jsRegisterBehavior); err != nil {
		return err
	}
	return e.setupPropDeclarators(vm)
}

// LoadScript executes behavior script source in the runtime.
func (e *Engine) LoadScript(name, code string) error {
	return e.rt.LoadScript(name, code)
}

// jsRegisterBehavior registers a behavior declared by a script.
//
// JS signature: registerBehavior({name, props: [...], onAction(msg) {...}, ...})
// Handler functions are any properties named on<MessageName>.
func (e *Engine) jsRegisterBehavior(call goja.FunctionCall) goja.Value {
	vm := e.vm
	if len(call.Arguments) == 0 {
		panic(vm.NewTypeError("registerBehavior requires a behavior object"))
	}
	obj := call.Argument(0).ToObject(vm)
	if obj == nil {
		panic(vm.NewTypeError("registerBehavior requires a behavior object"))
	}

	nameVal := obj.Get("name")
	if nameVal == nil || goja.IsUndefined(nameVal) || nameVal.String() == "" {
		panic(vm.NewTypeError("registerBehavior: behavior object must have a non-empty 'name'"))
	}
	b := &Behavior{
		Name:     nameVal.String(),
		handlers: make(map[string]goja.Callable),
	}

	if propsVal := obj.Get("props"); propsVal != nil && !goja.IsUndefined(propsVal) && !goja.IsNull(propsVal) {
		raw, ok := propsVal.Export().([]any)
		if !ok {
			panic(vm.NewTypeError(fmt.Sprintf("registerBehavior: 'props' of %q must be an array of declarations", b.Name)))
		}
		seen := make(map[string]bool, len(raw))
		for i, entry := range raw {
			var def sim.PropDef
			if err := mapstructure.Decode(entry, &def); err != nil {
				panic(vm.NewTypeError(fmt.Sprintf("registerBehavior: props[%d] of %q is not a property declaration: %v", i, b.Name, err)))
			}
			if def.VariableName == "" || def.Type == "" {
				panic(vm.NewTypeError(fmt.Sprintf("registerBehavior: props[%d] of %q is not a property declaration", i, b.Name)))
			}
			if seen[def.VariableName] {
				panic(vm.NewTypeError(fmt.Sprintf("registerBehavior: %q declares property %q twice", b.Name, def.VariableName)))
			}
			seen[def.VariableName] = true
			b.Props = append(b.Props, def)
		}
	}

	for _, key := range obj.Keys() {
		if !strings.HasPrefix(key, "on") || len(key) <= 2 {
			continue
		}
		if fn, ok := goja.AssertFunction(obj.Get(key)); ok {
			b.handlers[strings.TrimPrefix(key, "on")] = fn
		}
	}

	e.mu.Lock()
	if _, exists := e.behaviors[b.Name]; exists {
		e.log.Debug("replacing behavior registration", "behavior", b.Name)
	}
	e.behaviors[b.Name] = b
	e.mu.Unlock()

	e.log.Debug("registered behavior", "behavior", b.Name, "props", len(b.Props), "handlers", len(b.handlers))
	return goja.Undefined()
}

// Behavior returns a registered behavior by name.
func (e *Engine) Behavior(name string) (*Behavior, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.behaviors[name]
	return b, ok
}

// Behaviors returns the registered behavior names, sorted.
func (e *Engine) Behaviors() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.behaviors))
	for n := range e.behaviors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewHandler returns a sim.Handler dispatching to the named behavior.
func (e *Engine) NewHandler(behavior string) (sim.Handler, error) {
	b, ok := e.Behavior(behavior)
	if !ok {
		return nil, fmt.Errorf("no such behavior: %q", behavior)
	}
	return &scriptHandler{e: e, b: b}, nil
}

// BindCard populates a card's property values from the behavior's declared
// defaults, then applies overrides. Deck-typed overrides must already be
// resolved card slices.
func (e *Engine) BindCard(c *sim.Card, behavior string, overrides map[string]any) error {
	b, ok := e.Behavior(behavior)
	if !ok {
		return fmt.Errorf("no such behavior: %q", behavior)
	}
	values := make(map[string]any, len(b.Props))
	for _, def := range b.Props {
		v, err := sim.ParseDefault(def)
		if err != nil {
			return fmt.Errorf("behavior %q: %w", behavior, err)
		}
		values[def.VariableName] = v
	}
	for k, v := range overrides {
		values[k] = v
	}
	c.Values = values
	return nil
}

// scriptHandler dispatches one card's messages to its behavior's JS handlers.
type scriptHandler struct {
	e *Engine
	b *Behavior
}

// HandleMessage runs the behavior's on<Name> handler, if any, inside a scope
// bound to the card. The handler result is the exported JS return value.
func (h *scriptHandler) HandleMessage(c *sim.Card, msg sim.Message) (any, bool, error) {
	fn, ok := h.b.handlers[msg.Name]
	if !ok {
		return nil, false, nil
	}
	var result any
	err := h.e.rt.TryRunOnLoopSync(h.e.vm, func(vm *goja.Runtime) error {
		restore := h.e.installScope(vm, c, msg)
		defer restore()

		v, err := fn(goja.Undefined(), vm.ToValue(msg.Payload))
		if err != nil {
			return fmt.Errorf("behavior %q: on%s failed: %w", h.b.Name, msg.Name, err)
		}
		if v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			result = v.Export()
		}
		return nil
	})
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}
