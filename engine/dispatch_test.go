package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "scoreboard/adapters/memory"
	"scoreboard/core"
)

type failingCache struct {
	mem.Store
	err error
}

func (f *failingCache) GetBoard(context.Context, uuid.UUID) (core.ScoreBoard, bool, error) {
	return core.ScoreBoard{}, false, f.err
}

func (f *failingCache) CreateBoard(context.Context) (core.ScoreBoard, error) {
	return core.ScoreBoard{}, f.err
}

func TestDispatchCreateReturnsFreshIDs(t *testing.T) {
	cache := mem.New()
	ctx := context.Background()
	seen := map[uuid.UUID]bool{}
	for i := 0; i < 20; i++ {
		resp, err := Dispatch(ctx, core.CreateScoreBoard{}, cache)
		require.NoError(t, err)
		created, ok := resp.(core.BoardCreated)
		require.True(t, ok)
		assert.False(t, seen[created.ID], "duplicate id %s", created.ID)
		seen[created.ID] = true

		board, ok, err := cache.GetBoard(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Empty(t, board.Users)
	}
}

func TestDispatchGetAfterCreate(t *testing.T) {
	cache := mem.New()
	ctx := context.Background()
	resp, err := Dispatch(ctx, core.CreateScoreBoard{}, cache)
	require.NoError(t, err)
	id := resp.(core.BoardCreated).ID

	resp, err = Dispatch(ctx, core.GetScoreBoard{ID: id}, cache)
	require.NoError(t, err)
	fetched, ok := resp.(core.BoardFetched)
	require.True(t, ok)
	assert.Equal(t, id, fetched.ScoreBoard.ID)
	assert.Empty(t, fetched.ScoreBoard.Users)
}

func TestDispatchGetUnknownIsNotFound(t *testing.T) {
	resp, err := Dispatch(context.Background(), core.GetScoreBoard{ID: uuid.New()}, mem.New())
	assert.Nil(t, resp)
	ce, ok := core.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, core.KindNotFound, ce.Kind)
	assert.Equal(t, "Scoreboard not found", ce.Message)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestDispatchJoinRoomEchoes(t *testing.T) {
	room := uuid.New()
	resp, err := Dispatch(context.Background(), core.JoinRoom{ID: room}, mem.New())
	require.NoError(t, err)
	assert.Equal(t, core.RoomJoined{ID: room}, resp)
}

func TestDispatchRejectsMemberOperations(t *testing.T) {
	msgs := []core.ClientMessage{
		core.AddMember{Name: "alice"},
		core.DeleteMember{Name: "alice"},
		core.UpdateScore{Name: "alice", Score: 10},
	}
	for _, msg := range msgs {
		t.Run(string(msg.Method()), func(t *testing.T) {
			resp, err := Dispatch(context.Background(), msg, mem.New())
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, core.ErrUnsupportedMethod)
		})
	}
}

func TestDispatchPropagatesCacheFaults(t *testing.T) {
	boom := errors.New("connection refused")
	cache := &failingCache{err: boom}

	_, err := Dispatch(context.Background(), core.GetScoreBoard{ID: uuid.New()}, cache)
	assert.ErrorIs(t, err, boom)
	_, isClient := core.AsClientError(err)
	assert.False(t, isClient)

	_, err = Dispatch(context.Background(), core.CreateScoreBoard{}, cache)
	assert.ErrorIs(t, err, boom)
}
