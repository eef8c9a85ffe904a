package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/game-orchestrator/config"
	"github.com/Dosada05/game-orchestrator/models"
)

// statusTimeouts bounds how long a tracked game may sit in one status
// without a genuine transition before the watchdog force-aborts it.
var statusTimeouts = map[models.GameStatus]time.Duration{
	models.GameStatusWaiting:    20 * time.Second,
	models.GameStatusLoading:    60 * time.Second,
	models.GameStatusInProgress: 3600 * time.Second,
}

// parseModifiers splits a comma-separated modifier string and validates
// every entry against the mode's allowed list. The result is sorted so two
// logically equal modifier sets compare equal.
func parseModifiers(modifiers string, mode config.GameMode) ([]string, error) {
	if modifiers == "" {
		return []string{}, nil
	}
	list := strings.Split(modifiers, ",")
	for _, mod := range list {
		if !contains(mode.Modifiers, mod) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidModifiers, mod)
		}
	}
	sort.Strings(list)
	return list, nil
}

// playerStatusForGame maps a game status onto the presence status its
// players should show.
func playerStatusForGame(status models.GameStatus) (models.PlayerStatus, bool) {
	switch status {
	case models.GameStatusLoading:
		return models.PlayerStatusLoading, true
	case models.GameStatusInProgress:
		return models.PlayerStatusInGame, true
	case models.GameStatusFinished, models.GameStatusAborted:
		return models.PlayerStatusInactive, true
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
