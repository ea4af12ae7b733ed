package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/deckwise/stagescript/internal/goroutineid"
)

// Runtime owns the shared goja runtime and event loop. It is the single
// source of truth for goja.Runtime access: the VM is not goroutine-safe, so
// every operation must go through RunOnLoop or one of the Sync variants.
//
// Card handlers, delayed deliveries and host callbacks are all serialized on
// the loop goroutine, which is what gives the scripting API its
// single-threaded cooperative tick semantics.
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	// timeout bounds RunOnLoopSync waits. Zero disables the bound.
	timeout time.Duration

	// loopGoroutineID is captured once at startup so re-entrant calls from
	// handler code back into Go can be executed directly instead of
	// deadlocking on the loop.
	loopGoroutineID atomic.Int64

	mu      sync.RWMutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// DefaultSyncTimeout bounds synchronous loop operations.
const DefaultSyncTimeout = 5 * time.Second

// NewRuntime creates a started Runtime. The provided context controls
// lifecycle: when it is cancelled the runtime stops. Call Close when done.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	registry := require.NewRegistry()
	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(true),
	)

	// The internal lifecycle context is independent of the parent so that
	// the stopped flag and Done() closure stay consistent during shutdown.
	childCtx, cancel := context.WithCancel(context.Background())

	rt := &Runtime{
		loop:     loop,
		registry: registry,
		ctx:      childCtx,
		cancel:   cancel,
		timeout:  DefaultSyncTimeout,
	}

	loop.Start()
	rt.mu.Lock()
	rt.started = true
	rt.mu.Unlock()

	errCh := make(chan error, 1)
	if ok := loop.RunOnLoop(func(vm *goja.Runtime) {
		rt.loopGoroutineID.Store(goroutineid.Get())
		errCh <- nil
	}); !ok {
		cancel()
		return nil, errors.New("failed to initialize: event loop not running")
	}
	<-errCh

	if ctx.Done() != nil {
		context.AfterFunc(ctx, func() {
			_ = rt.Close()
		})
	}

	return rt, nil
}

// Registry returns the CommonJS require registry for native module
// registration.
func (rt *Runtime) Registry() *require.Registry {
	return rt.registry
}

// Close stops the event loop and releases resources. Safe to call multiple
// times.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.stopped = true
	rt.mu.Unlock()

	// Cancel before stopping the loop so goroutines waiting on Done unblock.
	rt.cancel()
	rt.loop.Stop()
	return nil
}

// Done is closed when the runtime has stopped.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.ctx.Done()
}

// IsRunning reports whether the runtime is started and not stopped.
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.started && !rt.stopped
}

// RunOnLoop schedules fn on the event loop goroutine. Returns false if the
// loop is not running.
func (rt *Runtime) RunOnLoop(fn func(*goja.Runtime)) bool {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return false
	}
	rt.mu.RUnlock()
	return rt.loop.RunOnLoop(fn)
}

// RunOnLoopSync schedules fn on the event loop and waits for it to complete.
func (rt *Runtime) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return errors.New("event loop not running")
	}
	timeout := rt.timeout
	rt.mu.RUnlock()

	errCh := make(chan error, 1)
	if ok := rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- fn(vm)
	}); !ok {
		return errors.New("event loop not running")
	}

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case err := <-errCh:
			return err
		case <-rt.Done():
			return errors.New("runtime stopped before completion")
		case <-timer.C:
			return fmt.Errorf("operation timed out after %v", timeout)
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return errors.New("runtime stopped before completion")
	}
}

// TryRunOnLoopSync runs fn on the event loop, executing directly when the
// caller is already on the loop goroutine. Handler code calls back into Go
// (deck calls, sends) which must execute further JS; without the re-entrancy
// check that would deadlock.
func (rt *Runtime) TryRunOnLoopSync(currentVM *goja.Runtime, fn func(*goja.Runtime) error) error {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return errors.New("event loop not running")
	}
	rt.mu.RUnlock()

	if id := rt.loopGoroutineID.Load(); id > 0 && goroutineid.Get() == id {
		return fn(currentVM)
	}
	return rt.RunOnLoopSync(fn)
}

// LoadScript compiles and executes JavaScript source in the runtime.
func (rt *Runtime) LoadScript(name, code string) error {
	return rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, code, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		return nil
	})
}

// SetTimeout adjusts the bound on synchronous loop operations. Zero disables
// it.
func (rt *Runtime) SetTimeout(timeout time.Duration) {
	rt.mu.Lock()
	rt.timeout = timeout
	rt.mu.Unlock()
}
