// Package effect is a small runtime for asynchronous units of work with
// observable start, success and failure channels.
package effect

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler is the asynchronous function an Effect wraps.
type Handler[In, Out any] func(ctx context.Context, in In) (Out, error)

// Effect wraps a Handler and notifies subscribers about each invocation.
// Invocations are independent; nothing is queued or coalesced.
type Effect[In, Out any] struct {
	name    string
	handler Handler[In, Out]

	mu      sync.RWMutex
	nextID  uint64
	started map[uint64]func(In)
	done    map[uint64]func(In, Out)
	failed  map[uint64]func(In, error)

	inFlight atomic.Int64
}

// New wraps h into an Effect.
func New[In, Out any](name string, h Handler[In, Out]) *Effect[In, Out] {
	return &Effect[In, Out]{
		name:    name,
		handler: h,
		started: make(map[uint64]func(In)),
		done:    make(map[uint64]func(In, Out)),
		failed:  make(map[uint64]func(In, error)),
	}
}

// Attach derives an Effect that reads source at call time and hands the value
// to fn together with the caller's input.
func Attach[S, In, Out any](name string, source func() S, fn func(ctx context.Context, s S, in In) (Out, error)) *Effect[In, Out] {
	return New(name, func(ctx context.Context, in In) (Out, error) {
		return fn(ctx, source(), in)
	})
}

// Name returns the label given at construction.
func (e *Effect[In, Out]) Name() string { return e.name }

// InFlight reports how many invocations have started but not settled.
func (e *Effect[In, Out]) InFlight() int64 { return e.inFlight.Load() }

// Run invokes the handler. Subscribers run synchronously on the calling
// goroutine: started before the handler, then exactly one of done or failed.
func (e *Effect[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)

	for _, fn := range e.startedSubscribers() {
		fn(in)
	}

	out, err := e.handler(ctx, in)
	if err != nil {
		for _, fn := range e.failedSubscribers() {
			fn(in, err)
		}
		return out, err
	}

	for _, fn := range e.doneSubscribers() {
		fn(in, out)
	}
	return out, nil
}

// OnStarted subscribes to invocation starts. The returned func unsubscribes.
func (e *Effect[In, Out]) OnStarted(fn func(In)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.started[id] = fn
	return func() { e.unsubscribe(id) }
}

// OnDone subscribes to successful settlements.
func (e *Effect[In, Out]) OnDone(fn func(In, Out)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.done[id] = fn
	return func() { e.unsubscribe(id) }
}

// OnFail subscribes to failed settlements.
func (e *Effect[In, Out]) OnFail(fn func(In, error)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.failed[id] = fn
	return func() { e.unsubscribe(id) }
}

func (e *Effect[In, Out]) unsubscribe(id uint64) {
	e.mu.Lock()
	delete(e.started, id)
	delete(e.done, id)
	delete(e.failed, id)
	e.mu.Unlock()
}

func (e *Effect[In, Out]) startedSubscribers() []func(In) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]func(In), 0, len(e.started))
	for _, fn := range e.started {
		out = append(out, fn)
	}
	return out
}

func (e *Effect[In, Out]) doneSubscribers() []func(In, Out) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]func(In, Out), 0, len(e.done))
	for _, fn := range e.done {
		out = append(out, fn)
	}
	return out
}

func (e *Effect[In, Out]) failedSubscribers() []func(In, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]func(In, error), 0, len(e.failed))
	for _, fn := range e.failed {
		out = append(out, fn)
	}
	return out
}
