package engine

import (
	"context"
	"fmt"

	"scoreboard/core"
)

// Dispatch resolves one inbound message against the cache. It is total over the
// message union: every variant either yields its response or a typed failure.
func Dispatch(ctx context.Context, msg core.ClientMessage, cache ScoreCache) (core.ClientResponse, error) {
	switch m := msg.(type) {
	case core.CreateScoreBoard:
		board, err := cache.CreateBoard(ctx)
		if err != nil {
			return nil, fmt.Errorf("create scoreboard: %w", err)
		}
		return core.BoardCreated{ID: board.ID}, nil

	case core.GetScoreBoard:
		board, ok, err := cache.GetBoard(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("get scoreboard %s: %w", m.ID, err)
		}
		if !ok {
			return nil, core.NewNotFound("Scoreboard not found")
		}
		return core.BoardFetched{ScoreBoard: board}, nil

	case core.JoinRoom:
		// Room membership is recorded by the session; dispatch only acknowledges.
		return core.RoomJoined{ID: m.ID}, nil

	case core.AddMember, core.DeleteMember, core.UpdateScore:
		return nil, core.NewUnsupported()

	default:
		return nil, fmt.Errorf("%w: %T", core.ErrUnknownMethod, msg)
	}
}
