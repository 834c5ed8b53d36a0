package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"scoreboard/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventBoardCreated, func(ctx context.Context, e core.Event) { count++ })
	bus.Subscribe(core.EventRoomJoined, func(ctx context.Context, e core.Event) { t.Fatal("wrong event type delivered") })
	bus.Publish(context.Background(), core.NewBoardCreated(1, uuid.New()))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	unsubscribe := bus.Subscribe(core.EventRoomJoined, func(ctx context.Context, e core.Event) { count++ })
	unsubscribe()
	bus.Publish(context.Background(), core.NewRoomJoined(1, uuid.New()))
	if count != 0 {
		t.Fatalf("handler ran after unsubscribe: %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventBoardCreated, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewBoardCreated(1, uuid.New()))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusCloseDrainsQueue(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	var mu sync.Mutex
	seen := 0
	bus.Subscribe(core.EventBoardCreated, func(ctx context.Context, e core.Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen++
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 50; i++ {
		bus.Publish(ctx, core.NewBoardCreated(1, uuid.New()))
	}
	cancel()
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if seen != 50 {
		t.Fatalf("want 50 delivered before Close returned, got %d", seen)
	}
}

func TestEventBusDropsAfterClose(t *testing.T) {
	for _, mode := range []DispatchMode{DispatchSync, DispatchAsync} {
		bus := NewEventBus(mode)
		var calls atomic.Int32
		bus.Subscribe(core.EventRoomJoined, func(ctx context.Context, e core.Event) { calls.Add(1) })
		bus.Close()
		bus.Close()
		bus.Publish(context.Background(), core.NewRoomJoined(1, uuid.New()))
		if n := calls.Load(); n != 0 {
			t.Fatalf("mode %d: handler ran %d times after Close", mode, n)
		}
	}
}
