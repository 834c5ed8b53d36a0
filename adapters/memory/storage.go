package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"scoreboard/core"
)

// Store is a concurrent in-memory score cache. Values are kept per key the same
// way the redis adapter keys them, so a key holding the wrong kind of value reads
// as absent.
type Store struct {
	values sync.Map // map[string]any
}

func New() *Store { return &Store{} }

// Put stores an arbitrary value under key. Used to seed foreign data.
func (s *Store) Put(key string, v any) { s.values.Store(key, v) }

func (s *Store) CreateBoard(ctx context.Context) (core.ScoreBoard, error) {
	board := core.NewScoreBoard()
	if err := s.SetBoard(ctx, board); err != nil {
		return core.ScoreBoard{}, err
	}
	return board, nil
}

func (s *Store) GetBoard(_ context.Context, id uuid.UUID) (core.ScoreBoard, bool, error) {
	v, ok := s.values.Load(core.BoardKey(id))
	if !ok {
		return core.ScoreBoard{}, false, nil
	}
	board, ok := v.(core.ScoreBoard)
	if !ok {
		return core.ScoreBoard{}, false, nil
	}
	return board.Clone(), true, nil
}

func (s *Store) SetBoard(_ context.Context, board core.ScoreBoard) error {
	s.values.Store(core.BoardKey(board.ID), board.Clone())
	return nil
}

func (s *Store) SetUser(_ context.Context, user core.User) error {
	s.values.Store(core.UserKey(user.ID), user.Clone())
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (core.User, bool, error) {
	v, ok := s.values.Load(core.UserKey(id))
	if !ok {
		return core.User{}, false, nil
	}
	user, ok := v.(core.User)
	if !ok {
		return core.User{}, false, nil
	}
	return user.Clone(), true, nil
}

var _ interface {
	CreateBoard(context.Context) (core.ScoreBoard, error)
	GetBoard(context.Context, uuid.UUID) (core.ScoreBoard, bool, error)
	SetBoard(context.Context, core.ScoreBoard) error
	SetUser(context.Context, core.User) error
	GetUser(context.Context, uuid.UUID) (core.User, bool, error)
} = (*Store)(nil)
