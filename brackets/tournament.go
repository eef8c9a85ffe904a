package brackets

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Dosada05/game-orchestrator/config"
)

// Tournament glues a roster of connected players to a bracket tree. It is
// created by the room gate once the expected roster is complete and updated
// once per orchestration tick.
type Tournament struct {
	Mode      config.GameMode
	Modifiers []string

	Players map[string]*Player
	Teams   []*Team
	Tree    *Tree
}

// RosterEntry is what the room gate knows about one connected player.
type RosterEntry struct {
	Nickname string
	Conn     Sender
}

// NewTournament shuffles the roster, distributes it into teams of the
// mode's size and builds the bracket. The roster size was validated at room
// creation, so a bracket build failure here is a configuration bug.
func NewTournament(roster map[string]RosterEntry, mode config.GameMode, modifiers []string, cooldown int) (*Tournament, error) {
	usernames := make([]string, 0, len(roster))
	for username := range roster {
		usernames = append(usernames, username)
	}
	rand.Shuffle(len(usernames), func(i, j int) {
		usernames[i], usernames[j] = usernames[j], usernames[i]
	})

	players := make(map[string]*Player, len(roster))
	for _, username := range usernames {
		entry := roster[username]
		players[username] = NewPlayer(username, entry.Nickname, entry.Conn)
	}

	teams := distributeTeams(usernames, players, mode.TeamSize)
	tree, err := Build(teams, mode, modifiers, cooldown)
	if err != nil {
		return nil, err
	}

	return &Tournament{
		Mode:      mode,
		Modifiers: modifiers,
		Players:   players,
		Teams:     teams,
		Tree:      tree,
	}, nil
}

// distributeTeams deals the shuffled usernames round-robin into rosters of
// teamSize players.
func distributeTeams(usernames []string, players map[string]*Player, teamSize int) []*Team {
	teamCount := len(usernames) / teamSize
	if teamCount == 0 {
		teamCount = 1
	}
	rosters := make([][]*Player, teamCount)
	for i, username := range usernames {
		slot := i % teamCount
		rosters[slot] = append(rosters[slot], players[username])
	}

	teams := make([]*Team, teamCount)
	for i, roster := range rosters {
		teams[i] = NewTeam(fmt.Sprintf("team%d", i+1), roster)
	}
	return teams
}

// Update advances the whole bracket one tick and returns the payload pushed
// to the room.
func (t *Tournament) Update(ctx context.Context, launcher GameLauncher) map[string]interface{} {
	t.Tree.Update(ctx, launcher)
	return t.ExportUpdate()
}

func (t *Tournament) ExportUpdate() map[string]interface{} {
	teams := make([]TeamExport, len(t.Teams))
	for i, team := range t.Teams {
		teams[i] = team.Export()
	}
	return map[string]interface{}{
		"type":  "tournament_update",
		"tree":  t.Tree.Export(),
		"teams": teams,
	}
}
