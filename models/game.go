package models

import "time"

// GameStatus is the lifecycle of one externally-hosted game session.
// unstarted and notified exist only between the creation request and the
// engine's acknowledgment; the registry tracks games from waiting onward.
type GameStatus string

const (
	GameStatusUnstarted  GameStatus = "unstarted"
	GameStatusNotified   GameStatus = "notified"
	GameStatusWaiting    GameStatus = "waiting"
	GameStatusLoading    GameStatus = "loading"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusFinished   GameStatus = "finished"
	GameStatusAborted    GameStatus = "aborted"
)

// Terminal reports whether no further transitions are allowed.
func (s GameStatus) Terminal() bool {
	return s == GameStatusFinished || s == GameStatusAborted
}

// Valid reports whether s is one of the known statuses. Bridge messages
// carry statuses verbatim from the engine, so they are checked before use.
func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusUnstarted, GameStatusNotified, GameStatusWaiting,
		GameStatusLoading, GameStatusInProgress, GameStatusFinished, GameStatusAborted:
		return true
	}
	return false
}

// Game is the persisted snapshot of an external game session. The live
// tracking entry (status timer, roster) lives in the in-memory registry;
// this row is what display services read.
type Game struct {
	ID        string     `json:"id" db:"id"`
	GameMode  string     `json:"game_mode" db:"game_mode"`
	Status    GameStatus `json:"status" db:"status"`
	Winner    *string    `json:"winner,omitempty" db:"winner"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`

	Players []string          `json:"players"`
	Teams   map[string]string `json:"teams,omitempty"`
	Scores  map[string]int    `json:"scores,omitempty"`
}

// SpecialID is a private/public id pair letting an AI-controlled player
// authenticate into a game without a human session.
type SpecialID struct {
	Private string `json:"private"`
	Public  string `json:"public"`
}
