// Package cards provides Go-implemented behaviors that can be composed onto
// actors alongside script behaviors.
package cards

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/deckwise/stagescript/internal/sim"
)

// DefaultProgramCacheSize bounds the compiled-expression cache.
const DefaultProgramCacheSize = 256

// programCache is a bounded LRU of compiled expr programs, shared by every
// ExprCondition instance. Long-running hosts may evaluate many distinct
// expressions; the bound keeps memory flat.
var programCache = newProgramLRU(DefaultProgramCacheSize)

type programLRU struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	max     int
}

type programEntry struct {
	source  string
	program *vm.Program
}

func newProgramLRU(max int) *programLRU {
	if max < 1 {
		max = DefaultProgramCacheSize
	}
	return &programLRU{
		entries: make(map[string]*list.Element, max),
		order:   list.New(),
		max:     max,
	}
}

func (c *programLRU) get(source string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[source]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*programEntry).program, true
}

func (c *programLRU) put(source string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[source]; ok {
		elem.Value.(*programEntry).program = program
		c.order.MoveToFront(elem)
		return
	}
	c.entries[source] = c.order.PushFront(&programEntry{source: source, program: program})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*programEntry).source)
	}
}

func compileCached(source string) (*vm.Program, error) {
	if p, ok := programCache.get(source); ok {
		return p, nil
	}
	p, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid condition expression %q: %w", source, err)
	}
	programCache.put(source, p)
	return p, nil
}

// ExprCondition is a native event card whose Check predicate is an expr
// expression evaluated over the owning actor's memory tiers and the card's
// property values.
//
// Available environment: mem, card, temp (memory snapshots), props (bound
// values) and time (simulation seconds). The raw evaluation result is
// returned to the deck evaluator, so an expression may yield a boolean
// predicate or a structured event.
type ExprCondition struct {
	Source string
}

func (e *ExprCondition) HandleMessage(c *sim.Card, msg sim.Message) (any, bool, error) {
	if msg.Name != sim.MessageCheck {
		return nil, false, nil
	}
	prog, err := compileCached(e.Source)
	if err != nil {
		return nil, true, err
	}
	env := map[string]any{
		"mem":   c.Actor.Mem.Snapshot(),
		"card":  c.Mem.Snapshot(),
		"temp":  c.Actor.Temp.Snapshot(),
		"props": c.Values,
		"time":  msg.Time,
	}
	out, err := expr.Run(prog, env)
	if err != nil {
		return nil, true, fmt.Errorf("condition expression %q failed: %w", e.Source, err)
	}
	return out, true, nil
}
