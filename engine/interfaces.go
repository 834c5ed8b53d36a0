package engine

import (
	"context"

	"github.com/google/uuid"

	"scoreboard/core"
)

// ScoreCache abstracts the key-value store holding scoreboards and users.
// Absence is reported through the boolean, never as an error. Setters fully
// overwrite the previous value (last writer wins).
type ScoreCache interface {
	CreateBoard(ctx context.Context) (core.ScoreBoard, error)
	GetBoard(ctx context.Context, id uuid.UUID) (core.ScoreBoard, bool, error)
	SetBoard(ctx context.Context, board core.ScoreBoard) error
	SetUser(ctx context.Context, user core.User) error
	GetUser(ctx context.Context, id uuid.UUID) (core.User, bool, error)
}

// UserStore is the relational collaborator used for anonymous sign-up.
type UserStore interface {
	CreateAnonUser(ctx context.Context) (core.Account, error)
}

// LeaderboardStore is the relational collaborator for named leaderboards.
type LeaderboardStore interface {
	CreateLeaderboard(ctx context.Context, name string) (core.Leaderboard, error)
	ListLeaderboards(ctx context.Context) ([]core.Leaderboard, error)
	AddMember(ctx context.Context, leaderboard int32, player uuid.UUID) error
	Members(ctx context.Context, leaderboard int32) ([]core.LeaderboardMember, error)
}
