package scoreboard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "scoreboard/adapters/memory"
	"scoreboard/core"
	"scoreboard/engine"
	"scoreboard/realtime"
)

type recordingSink struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *recordingSink) OnEvent(_ context.Context, e core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestNewDefaultsAndOptions(t *testing.T) {
	pool := realtime.NewPool()
	observer := pool.Register(4)
	sink := &recordingSink{}
	cache := mem.New()
	svc := New(
		WithRealtime(pool),
		WithCache(cache),
		WithEventSink(sink),
		WithDispatchMode(engine.DispatchSync),
	)
	ctx := context.Background()

	created, err := svc.CreateBoard(ctx)
	require.NoError(t, err)
	_, ok, err := cache.GetBoard(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	env := <-observer.C()
	assert.Equal(t, core.BoardCreated{ID: created.ID}, env.Response)

	_, err = svc.Handle(ctx, 3, core.JoinRoom{ID: created.ID})
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 2)
	assert.Equal(t, core.EventBoardCreated, sink.events[0].Type)
	assert.Equal(t, core.EventRoomJoined, sink.events[1].Type)
	assert.EqualValues(t, 3, sink.events[1].Origin)
}

func TestInMemoryDefault(t *testing.T) {
	svc := New()
	ctx := context.Background()
	created, err := svc.CreateBoard(ctx)
	require.NoError(t, err)
	board, err := svc.GetBoard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, board.ID)
}
