package models

import "time"

// PlayerStatus mirrors the status column of the players table. The value is
// also pushed to every service that displays presence, so transitions must
// go through the repository, never raw SQL elsewhere.
type PlayerStatus string

const (
	PlayerStatusIdle     PlayerStatus = "idle"
	PlayerStatusPending  PlayerStatus = "pending"
	PlayerStatusWaiting  PlayerStatus = "waiting_for_players"
	PlayerStatusLoading  PlayerStatus = "loading_game"
	PlayerStatusInGame   PlayerStatus = "in_game"
	PlayerStatusSpectate PlayerStatus = "spectate"
	PlayerStatusInactive PlayerStatus = "inactive"
)

type Player struct {
	ID        int          `json:"id" db:"id"`
	Username  string       `json:"username" db:"username"`
	Nickname  *string      `json:"nickname,omitempty" db:"nickname"`
	Status    PlayerStatus `json:"status" db:"status"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
