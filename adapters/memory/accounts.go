package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"scoreboard/core"
)

// Accounts is an in-memory relational store for development and tests.
type Accounts struct {
	mu           sync.Mutex
	users        map[uuid.UUID]core.Account
	leaderboards map[int32]core.Leaderboard
	members      map[int32][]core.LeaderboardMember
	nextBoard    int32
	nextMember   int32
}

func NewAccounts() *Accounts {
	return &Accounts{
		users:        map[uuid.UUID]core.Account{},
		leaderboards: map[int32]core.Leaderboard{},
		members:      map[int32][]core.LeaderboardMember{},
	}
}

func (a *Accounts) CreateAnonUser(_ context.Context) (core.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc := core.Account{ID: uuid.New(), CreatedAt: time.Now().UTC(), IsAnonymous: true}
	a.users[acc.ID] = acc
	return acc, nil
}

func (a *Accounts) CreateLeaderboard(_ context.Context, name string) (core.Leaderboard, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextBoard++
	lb := core.Leaderboard{ID: a.nextBoard, Name: name}
	a.leaderboards[lb.ID] = lb
	return lb, nil
}

func (a *Accounts) ListLeaderboards(_ context.Context) ([]core.Leaderboard, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Leaderboard, 0, len(a.leaderboards))
	for _, lb := range a.leaderboards {
		out = append(out, lb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *Accounts) AddMember(_ context.Context, leaderboard int32, player uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.leaderboards[leaderboard]; !ok {
		return fmt.Errorf("leaderboard %d: %w", leaderboard, core.ErrNotFound)
	}
	if _, ok := a.users[player]; !ok {
		return fmt.Errorf("player %s: %w", player, core.ErrNotFound)
	}
	a.nextMember++
	a.members[leaderboard] = append(a.members[leaderboard], core.LeaderboardMember{
		ID:          a.nextMember,
		Leaderboard: leaderboard,
		Player:      player,
	})
	return nil
}

func (a *Accounts) Members(_ context.Context, leaderboard int32) ([]core.LeaderboardMember, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ms := a.members[leaderboard]
	out := make([]core.LeaderboardMember, len(ms))
	copy(out, ms)
	return out, nil
}
