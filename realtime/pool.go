package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"scoreboard/core"
	"scoreboard/metrics"
)

// DefaultQueueSize is the outbound queue capacity of a session.
const DefaultQueueSize = 32

var (
	ErrQueueFull   = errors.New("producer queue full")
	ErrQueueClosed = errors.New("producer queue closed")
)

// Envelope is one unit of outbound work. Message is an inbound request that
// still has to be dispatched by the owning session; Response is an already
// resolved frame (a broadcast) that is written as-is.
type Envelope struct {
	Message  core.ClientMessage
	Response core.ClientResponse
	Origin   uint64
}

// Producer is the sending end of one session's outbound queue.
// mu orders sends against Close only; it is never held across a blocking send.
type Producer struct {
	id uint64
	ch chan Envelope

	mu     sync.RWMutex
	closed bool
	room   atomic.Pointer[uuid.UUID]
}

func (p *Producer) ID() uint64 { return p.id }

// C is the consumer end, read by the session's outbound loop.
func (p *Producer) C() <-chan Envelope { return p.ch }

// TrySend enqueues env without blocking.
func (p *Producer) TrySend(env Envelope) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.ch <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

// Send enqueues env, waiting for room in the queue until ctx is done.
// Only the owning session calls Send and Close, from the same goroutine, so the
// queue cannot be closed while Send blocks.
func (p *Producer) Send(ctx context.Context, env Envelope) error {
	if p.Closed() {
		return ErrQueueClosed
	}
	select {
	case p.ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the queue. Items already queued stay readable from C.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.ch)
}

func (p *Producer) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Join records the room the session acknowledged last.
func (p *Producer) Join(room uuid.UUID) {
	p.room.Store(&room)
}

func (p *Producer) Room() (uuid.UUID, bool) {
	if r := p.room.Load(); r != nil {
		return *r, true
	}
	return uuid.Nil, false
}

// Pool is the process-wide registry of session producers. A single mutex guards
// the list; Broadcast iterates under it using non-blocking sends only, so every
// producer observes broadcasts in the order the pool accepted them.
type Pool struct {
	mu        sync.Mutex
	producers []*Producer
	next      uint64
	idle      []chan struct{}
}

func NewPool() *Pool { return &Pool{} }

// Register allocates a queue of the given capacity and appends its producer.
func (p *Pool) Register(capacity int) *Producer {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	prod := &Producer{id: p.next, ch: make(chan Envelope, capacity)}
	p.producers = append(p.producers, prod)
	metrics.PoolProducers.Inc()
	return prod
}

// Unregister removes prod from the pool. It does not close the queue.
func (p *Pool) Unregister(prod *Producer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.producers {
		if cur == prod {
			p.producers = append(p.producers[:i], p.producers[i+1:]...)
			metrics.PoolProducers.Dec()
			if len(p.producers) == 0 {
				for _, ch := range p.idle {
					close(ch)
				}
				p.idle = nil
			}
			return
		}
	}
}

// Broadcast offers env to every registered producer except the origin and
// returns how many accepted it. Full or closed producers are skipped.
func (p *Pool) Broadcast(env Envelope) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	metrics.PoolBroadcastsTotal.Inc()
	delivered := 0
	for _, prod := range p.producers {
		if env.Origin != 0 && prod.id == env.Origin {
			continue
		}
		switch err := prod.TrySend(env); {
		case err == nil:
			delivered++
		case errors.Is(err, ErrQueueFull):
			metrics.PoolBroadcastSkipped.WithLabelValues("full").Inc()
		default:
			metrics.PoolBroadcastSkipped.WithLabelValues("closed").Inc()
		}
	}
	return delivered
}

// OnEvent broadcasts the response carried by ev to every other session.
// It is meant to be subscribed on the event bus.
func (p *Pool) OnEvent(_ context.Context, ev core.Event) {
	if ev.Response == nil {
		return
	}
	p.Broadcast(Envelope{Response: ev.Response, Origin: ev.Origin})
}

// Wait blocks until every registered producer was unregistered or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	p.mu.Lock()
	if len(p.producers) == 0 {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.idle = append(p.idle, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.producers)
}

// Rooms counts registered producers per joined room.
func (p *Pool) Rooms() map[uuid.UUID]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[uuid.UUID]int{}
	for _, prod := range p.producers {
		if room, ok := prod.Room(); ok {
			out[room]++
		}
	}
	return out
}
