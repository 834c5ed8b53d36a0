package core

import (
	"github.com/google/uuid"
)

// Score is a single immutable score entry appended to a user.
type Score struct {
	Value uint64 `json:"value"`
}

// User is a participant of a scoreboard together with every score it collected.
// The total score is derived from Scores and never stored.
type User struct {
	ID     uuid.UUID `json:"id"`
	Scores []Score   `json:"scores"`
}

// NewUser returns a user with a freshly generated id and no scores.
func NewUser() User {
	return User{ID: uuid.New(), Scores: []Score{}}
}

// UserFromID reconstructs an empty user for a known id.
func UserFromID(id uuid.UUID) User {
	return User{ID: id, Scores: []Score{}}
}

// AddScore appends a score. Scores are append-only.
func (u *User) AddScore(value uint64) {
	u.Scores = append(u.Scores, Score{Value: value})
}

// TotalScore sums every appended score value.
func (u User) TotalScore() uint64 {
	var total uint64
	for _, s := range u.Scores {
		total += s.Value
	}
	return total
}

// Clone returns a deep copy so callers cannot mutate cached state.
func (u User) Clone() User {
	cp := User{ID: u.ID, Scores: make([]Score, len(u.Scores))}
	copy(cp.Scores, u.Scores)
	return cp
}

// ScoreBoard is a collection of users identified by an id generated once at creation.
type ScoreBoard struct {
	ID    uuid.UUID `json:"id"`
	Users []User    `json:"users"`
}

// NewScoreBoard returns an empty scoreboard with a fresh id.
func NewScoreBoard() ScoreBoard {
	return ScoreBoard{ID: uuid.New(), Users: []User{}}
}

// Clone returns a deep copy of the board and its users.
func (b ScoreBoard) Clone() ScoreBoard {
	cp := ScoreBoard{ID: b.ID, Users: make([]User, 0, len(b.Users))}
	for _, u := range b.Users {
		cp.Users = append(cp.Users, u.Clone())
	}
	return cp
}

// BoardKey is the cache key owning a scoreboard.
func BoardKey(id uuid.UUID) string {
	return "scoreboard:" + id.String()
}

// UserKey is the cache key owning a user.
func UserKey(id uuid.UUID) string {
	return "user:" + id.String()
}
