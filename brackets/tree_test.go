package brackets

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Dosada05/game-orchestrator/config"
	"github.com/Dosada05/game-orchestrator/models"
	"github.com/stretchr/testify/require"
)

func testMode(teamSize int) config.GameMode {
	return config.GameMode{
		Name:        "pong",
		ServiceName: "pong",
		TeamSize:    teamSize,
		TeamCount:   4,
		TeamNames:   [2]string{"left", "right"},
		Modifiers:   []string{"invisibility", "shrink", "so_long"},
	}
}

type nopSender struct{}

func (nopSender) TrySend([]byte) bool { return true }

func makeTeams(names ...string) []*Team {
	teams := make([]*Team, len(names))
	for i, name := range names {
		player := NewPlayer("player_"+name, name, nopSender{})
		teams[i] = NewTeam(name, []*Player{player})
	}
	return teams
}

// fakeLauncher hands out sequential game ids and reports whatever state
// the test has staged for them.
type fakeLauncher struct {
	next     int
	fail     bool
	states   map[string]GameState
	launched []string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{states: make(map[string]GameState)}
}

func (f *fakeLauncher) LaunchGame(_ context.Context, _ string, _ []string, _ []string, _ map[string][]string) (string, error) {
	if f.fail {
		return "", errors.New("engine unavailable")
	}
	f.next++
	id := fmt.Sprintf("game-%d", f.next)
	f.states[id] = GameState{Status: models.GameStatusWaiting, Scores: map[string]int{}}
	f.launched = append(f.launched, id)
	return id, nil
}

func (f *fakeLauncher) GameState(gameID string) (GameState, bool) {
	state, ok := f.states[gameID]
	return state, ok
}

func TestBuildRejectsBadSizes(t *testing.T) {
	for _, n := range []int{0, 1, 3, 6} {
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("t%d", i)
		}
		_, err := Build(makeTeams(names...), testMode(1), nil, 5)
		require.ErrorIs(t, err, ErrInvalidBracketSize, "size %d", n)
	}
}

func TestBuildShape(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "e", "f", "g", "h")
	tree, err := Build(teams, testMode(1), nil, 5)
	require.NoError(t, err)

	require.Len(t, tree.Matches(), 7)
	require.Equal(t, 3, tree.Rounds())

	for i, m := range tree.Matches() {
		if i < 4 {
			require.Equal(t, MatchStatusCooldown, m.Status, "leaf %s", m.ID)
			require.NotNil(t, m.Team1)
			require.NotNil(t, m.Team2)
		} else {
			require.Equal(t, MatchStatusPending, m.Status, "node %s", m.ID)
			require.Nil(t, m.Team1)
			require.Nil(t, m.Team2)
		}
	}
	require.Equal(t, "R3M1", tree.Root().ID)
}

func TestAdvancePropagatesWinner(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	left, right := tree.Matches()[0], tree.Matches()[1]
	final := tree.Root()

	tree.Advance(left, teams[0])
	require.Equal(t, teams[0], final.Team1)
	require.Equal(t, MatchStatusPending, final.Status)

	tree.Advance(right, teams[3])
	require.Equal(t, teams[3], final.Team2)
	require.Equal(t, MatchStatusCooldown, final.Status)

	tree.Advance(final, teams[3])
	require.True(t, tree.Finished())
	require.False(t, tree.Aborted())
	require.Equal(t, teams[3], tree.Winner())
}

func TestAdvanceReportsOnce(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	left := tree.Matches()[0]
	tree.Advance(left, teams[0])
	tree.Advance(left, teams[1])

	require.Equal(t, teams[0], left.Winner)
	require.Equal(t, teams[0], tree.Root().Team1)
}

func TestAbortPropagatesToRoot(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	tree.Advance(tree.Matches()[0], nil)

	require.Equal(t, MatchStatusAborted, tree.Matches()[0].Status)
	require.Equal(t, MatchStatusAborted, tree.Root().Status)
	require.True(t, tree.Finished())
	require.True(t, tree.Aborted())
	require.Nil(t, tree.Winner())
}

func TestAbortInOneBranchDoesNotTouchSiblings(t *testing.T) {
	teams := makeTeams("a", "b", "c", "d", "e", "f", "g", "h")
	tree, err := Build(teams, testMode(1), nil, 0)
	require.NoError(t, err)

	tree.Advance(tree.Matches()[0], nil)

	require.Equal(t, MatchStatusCooldown, tree.Matches()[1].Status)
	require.Equal(t, MatchStatusCooldown, tree.Matches()[2].Status)
	require.True(t, tree.Aborted())
}
