package services

import (
	"context"
	"testing"

	"github.com/Dosada05/game-orchestrator/models"
	"github.com/stretchr/testify/require"
)

func createTestGame(t *testing.T, fx *gameServiceFixture) string {
	t.Helper()
	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)
	return result.GameID
}

func TestSinkStatusReportsFollowPlayers(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	gameID := createTestGame(t, fx)
	sink := fx.service.(*gameService)

	sink.PlayerConnected(gameID, "alice")
	require.Equal(t, models.PlayerStatusWaiting, fx.players.status("alice"))

	sink.GameStatusReported(gameID, models.GameStatusLoading)
	require.Equal(t, models.PlayerStatusLoading, fx.players.status("alice"))
	require.Equal(t, models.GameStatusLoading, fx.games.status(gameID))

	sink.GameStatusReported(gameID, models.GameStatusInProgress)
	require.Equal(t, models.PlayerStatusInGame, fx.players.status("alice"))

	// bob never connected through the bridge, so his presence is untouched
	require.Equal(t, models.PlayerStatusPending, fx.players.status("bob"))
}

func TestSinkFinishRecordsWinnerAndScore(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	gameID := createTestGame(t, fx)
	sink := fx.service.(*gameService)

	sink.ScoreUpdated(gameID, "left", 2)
	sink.GameFinishedReported(gameID, "left", 3)
	sink.GameStatusReported(gameID, models.GameStatusFinished)

	snap, ok := fx.registry.Get(gameID)
	require.True(t, ok)
	require.Equal(t, models.GameStatusFinished, snap.Status)
	require.Equal(t, "left", snap.Winner)
	require.Equal(t, 3, snap.Scores["left"])
	require.Equal(t, models.GameStatusFinished, fx.games.status(gameID))
}

func TestSinkSpectatorsDeactivateOnTerminal(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	gameID := createTestGame(t, fx)
	sink := fx.service.(*gameService)

	sink.SpectatorConnected(gameID, "carol")
	require.Equal(t, models.PlayerStatusSpectate, fx.players.status("carol"))

	sink.GameStatusReported(gameID, models.GameStatusFinished)
	require.Equal(t, models.PlayerStatusInactive, fx.players.status("carol"))
}

func TestSinkClosedAbortsLiveGame(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	gameID := createTestGame(t, fx)
	sink := fx.service.(*gameService)

	sink.Closed(gameID)

	// the game is settled but stays in the registry so the owning match
	// can still observe the terminal status before the watchdog drain
	snap, ok := fx.registry.Get(gameID)
	require.True(t, ok)
	require.Equal(t, models.GameStatusAborted, snap.Status)
	require.Equal(t, models.GameStatusAborted, fx.games.status(gameID))
	require.Equal(t, models.PlayerStatusInactive, fx.players.status("alice"))
}

func TestSinkClosedAfterFinishChangesNothing(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	gameID := createTestGame(t, fx)
	sink := fx.service.(*gameService)

	sink.GameStatusReported(gameID, models.GameStatusFinished)
	sink.Closed(gameID)

	require.Equal(t, models.GameStatusFinished, fx.games.status(gameID))
}

func TestSinkIgnoresUntrackedGames(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	sink := fx.service.(*gameService)

	sink.GameStatusReported("missing", models.GameStatusLoading)
	sink.Closed("missing")

	require.Empty(t, fx.registry.Snapshot())
}
