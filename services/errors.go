package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки конфигурации: отклоняются синхронно, состояние не создаётся.
	ErrInvalidGameMode   = errors.New("unknown game mode")
	ErrInvalidModifiers  = errors.New("invalid modifier for this game mode")
	ErrInvalidRosterSize = errors.New("player list does not match the game mode roster size")
	ErrMalformedTeams    = errors.New("malformed team partition")

	// Удалённый игровой движок недоступен или ответил отказом.
	ErrRemoteUnavailable = errors.New("game engine unavailable")

	ErrUnauthorized     = errors.New("admin id mismatch")
	ErrAdminNotAttached = errors.New("admin connection not attached yet")

	ErrRoomNotFound = errors.New("tournament room not found")
	ErrRoomConflict = errors.New("tournament room already exists")

	ErrGameNotTracked = errors.New("game is not tracked")
)
