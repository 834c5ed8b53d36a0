package leaderboard

import (
	"github.com/google/uuid"

	"scoreboard/core"
)

// Entry is one user's total score.
type Entry struct {
	User  uuid.UUID `json:"user"`
	Score uint64    `json:"score"`
}

// Board abstracts ranking operations.
type Board interface {
	Update(user uuid.UUID, score uint64)
	Remove(user uuid.UUID)
	TopN(n int) []Entry
	Range(offset, n int) []Entry
	Get(user uuid.UUID) (Entry, bool)
	Rank(user uuid.UUID) (int, bool)
	Len() int
}

// FromScoreBoard ranks every user of board by total score.
func FromScoreBoard(board core.ScoreBoard) *SkipList {
	s := NewSkipList()
	for _, u := range board.Users {
		s.Update(u.ID, u.TotalScore())
	}
	return s
}

// Ranking returns the top n users of board; n <= 0 returns all of them.
func Ranking(board core.ScoreBoard, n int) []Entry {
	s := FromScoreBoard(board)
	if n <= 0 {
		n = s.Len()
	}
	out := s.TopN(n)
	if out == nil {
		out = []Entry{}
	}
	return out
}
