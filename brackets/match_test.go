package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/game-orchestrator/models"
	"github.com/stretchr/testify/require"
)

func TestMatchCooldownCountdown(t *testing.T) {
	teams := makeTeams("a", "b")
	tree, err := Build(teams, testMode(1), nil, 2)
	require.NoError(t, err)

	launcher := newFakeLauncher()
	m := tree.Matches()[0]
	ctx := context.Background()

	require.Equal(t, "begin in 2s", m.StatusText())

	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusCooldown, m.Status)
	require.Equal(t, 1, m.Cooldown)
	require.Empty(t, launcher.launched)

	m.Update(ctx, launcher)
	require.Equal(t, 0, m.Cooldown)
	require.Empty(t, launcher.launched)

	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusWaiting, m.Status)
	require.Len(t, launcher.launched, 1)
	require.Equal(t, launcher.launched[0], m.GameID)
}

func TestMatchLaunchFailureAborts(t *testing.T) {
	teams := makeTeams("a", "b")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	launcher := newFakeLauncher()
	launcher.fail = true

	tree.Matches()[0].Update(context.Background(), launcher)

	require.Equal(t, MatchStatusAborted, tree.Matches()[0].Status)
	require.True(t, tree.Aborted())
}

func TestMatchMirrorsGameStatus(t *testing.T) {
	teams := makeTeams("a", "b")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	launcher := newFakeLauncher()
	m := tree.Matches()[0]
	ctx := context.Background()

	m.Update(ctx, launcher) // launches
	gameID := m.GameID

	launcher.states[gameID] = GameState{Status: models.GameStatusLoading}
	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusLoading, m.Status)

	launcher.states[gameID] = GameState{
		Status: models.GameStatusInProgress,
		Scores: map[string]int{"left": 1, "right": 0},
	}
	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusInProgress, m.Status)
	require.Equal(t, map[string]int{"left": 1, "right": 0}, m.Score)

	launcher.states[gameID] = GameState{
		Status: models.GameStatusFinished,
		Scores: map[string]int{"left": 3, "right": 0},
		Winner: "left",
	}
	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusFinished, m.Status)
	require.Equal(t, teams[0], m.Winner)
	require.True(t, tree.Finished())
	require.Equal(t, teams[0], tree.Winner())
}

func TestMatchAbortsWhenGameVanishes(t *testing.T) {
	teams := makeTeams("a", "b")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	launcher := newFakeLauncher()
	m := tree.Matches()[0]
	ctx := context.Background()

	m.Update(ctx, launcher)
	delete(launcher.states, m.GameID)

	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusAborted, m.Status)
	require.True(t, tree.Aborted())
}

func TestMatchTerminalIsImmutable(t *testing.T) {
	teams := makeTeams("a", "b")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	launcher := newFakeLauncher()
	m := tree.Matches()[0]
	ctx := context.Background()

	m.Update(ctx, launcher)
	launcher.states[m.GameID] = GameState{Status: models.GameStatusFinished, Winner: "left"}
	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusFinished, m.Status)

	launcher.states[m.GameID] = GameState{Status: models.GameStatusAborted}
	m.Update(ctx, launcher)
	require.Equal(t, MatchStatusFinished, m.Status)
	require.Equal(t, teams[0], m.Winner)
}

func TestMatchUpdateIgnoresPendingNodes(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	launcher := newFakeLauncher()
	tree.Root().Update(context.Background(), launcher)

	require.Equal(t, MatchStatusPending, tree.Root().Status)
	require.Empty(t, launcher.launched)
}
