package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"scoreboard/core"
)

// Store persists every cache key to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory copy of the file, keyed like the redis adapter
	data map[string]json.RawMessage
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[string]json.RawMessage{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.data[key]
	s.data[key] = raw
	if err := s.persist(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// lookup decodes key into v; unknown fields mean the key holds something else.
func (s *Store) lookup(key string, v any) bool {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v) == nil
}

func (s *Store) CreateBoard(ctx context.Context) (core.ScoreBoard, error) {
	board := core.NewScoreBoard()
	if err := s.SetBoard(ctx, board); err != nil {
		return core.ScoreBoard{}, err
	}
	return board, nil
}

func (s *Store) GetBoard(_ context.Context, id uuid.UUID) (core.ScoreBoard, bool, error) {
	var board core.ScoreBoard
	if !s.lookup(core.BoardKey(id), &board) {
		return core.ScoreBoard{}, false, nil
	}
	if board.Users == nil {
		board.Users = []core.User{}
	}
	return board, true, nil
}

func (s *Store) SetBoard(_ context.Context, board core.ScoreBoard) error {
	return s.put(core.BoardKey(board.ID), board)
}

func (s *Store) SetUser(_ context.Context, user core.User) error {
	return s.put(core.UserKey(user.ID), user)
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (core.User, bool, error) {
	var user core.User
	if !s.lookup(core.UserKey(id), &user) {
		return core.User{}, false, nil
	}
	if user.Scores == nil {
		user.Scores = []core.Score{}
	}
	return user, true, nil
}
