package engine

import (
	"context"
	"sync"

	"scoreboard/core"
)

// DispatchMode selects whether Publish runs handlers inline or on a worker pool.
type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

const (
	asyncQueueSize = 2048
	asyncWorkers   = 4
)

// EventHandler receives one published event.
type EventHandler func(context.Context, core.Event)

type queuedEvent struct {
	ctx context.Context
	ev  core.Event
}

// EventBus fans service events out to subscribers. After Close every Publish is
// a no-op; events queued before Close are still delivered.
type EventBus struct {
	mode DispatchMode

	mu       sync.RWMutex
	handlers map[core.EventType]map[int64]EventHandler
	nextID   int64
	closed   bool

	queue   chan queuedEvent
	workers sync.WaitGroup
}

func NewEventBus(mode DispatchMode) *EventBus {
	b := &EventBus{
		mode:     mode,
		handlers: make(map[core.EventType]map[int64]EventHandler),
	}
	if mode == DispatchAsync {
		b.queue = make(chan queuedEvent, asyncQueueSize)
		b.workers.Add(asyncWorkers)
		for i := 0; i < asyncWorkers; i++ {
			go b.work()
		}
	}
	return b
}

func (b *EventBus) work() {
	defer b.workers.Done()
	for q := range b.queue {
		b.deliver(q.ctx, q.ev)
	}
}

// Subscribe registers fn for typ and returns a func that removes it.
func (b *EventBus) Subscribe(typ core.EventType, fn EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.handlers[typ] == nil {
		b.handlers[typ] = make(map[int64]EventHandler)
	}
	b.handlers[typ][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[typ], id)
	}
}

// Publish delivers ev to the handlers of its type. In async mode the handlers
// see ctx without its cancellation, and a full queue drops the event.
func (b *EventBus) Publish(ctx context.Context, ev core.Event) {
	if b.mode != DispatchAsync {
		if b.isClosed() {
			return
		}
		b.deliver(ctx, ev)
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
	}
}

// Close stops accepting events and waits until queued ones were handled. It is
// safe to call more than once.
func (b *EventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.queue != nil {
		close(b.queue)
	}
	b.mu.Unlock()
	b.workers.Wait()
}

func (b *EventBus) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *EventBus) deliver(ctx context.Context, ev core.Event) {
	b.mu.RLock()
	fns := make([]EventHandler, 0, len(b.handlers[ev.Type]))
	for _, fn := range b.handlers[ev.Type] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, ev)
	}
}
