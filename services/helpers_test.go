package services

import (
	"testing"

	"github.com/Dosada05/game-orchestrator/models"
	"github.com/stretchr/testify/require"
)

func TestParseModifiers(t *testing.T) {
	mode := testGameMode(1, 4)

	mods, err := parseModifiers("", mode)
	require.NoError(t, err)
	require.Empty(t, mods)

	mods, err = parseModifiers("so_long,invisibility", mode)
	require.NoError(t, err)
	require.Equal(t, []string{"invisibility", "so_long"}, mods)

	_, err = parseModifiers("giant_ball", mode)
	require.ErrorIs(t, err, ErrInvalidModifiers)

	_, err = parseModifiers("shrink,", mode)
	require.ErrorIs(t, err, ErrInvalidModifiers)
}

func TestPlayerStatusForGame(t *testing.T) {
	status, ok := playerStatusForGame(models.GameStatusLoading)
	require.True(t, ok)
	require.Equal(t, models.PlayerStatusLoading, status)

	status, ok = playerStatusForGame(models.GameStatusInProgress)
	require.True(t, ok)
	require.Equal(t, models.PlayerStatusInGame, status)

	for _, terminal := range []models.GameStatus{models.GameStatusFinished, models.GameStatusAborted} {
		status, ok = playerStatusForGame(terminal)
		require.True(t, ok)
		require.Equal(t, models.PlayerStatusInactive, status)
	}

	_, ok = playerStatusForGame(models.GameStatusWaiting)
	require.False(t, ok)
}
