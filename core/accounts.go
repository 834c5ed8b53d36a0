package core

import (
	"time"

	"github.com/google/uuid"
)

// Account is a row of the relational users table. Anonymous sign-up only fills
// ID, CreatedAt and IsAnonymous.
type Account struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Email             *string   `json:"email" db:"email"`
	UserName          *string   `json:"user_name" db:"user_name"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	PhoneNumber       *string   `json:"phone_number" db:"phone_number"`
	EncryptedPassword *string   `json:"-" db:"encrypted_password"`
	IsAnonymous       bool      `json:"is_anonymous" db:"is_anonymous"`
}

// Leaderboard is a named, persisted board.
type Leaderboard struct {
	ID   int32  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// LeaderboardMember links a player account to a leaderboard.
type LeaderboardMember struct {
	ID          int32     `json:"id" db:"id"`
	Leaderboard int32     `json:"leaderboard" db:"leaderboard"`
	PlayerAlias *string   `json:"player_alias" db:"player_alias"`
	Player      uuid.UUID `json:"player" db:"player"`
}
