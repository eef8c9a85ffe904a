package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/game-orchestrator/models"
)

type MatchStatus string

const (
	// MatchStatusPending: an upper-bracket node still waiting for one or
	// both children to resolve. Not part of the running state machine.
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusCooldown   MatchStatus = "cooldown"
	MatchStatusWaiting    MatchStatus = "waiting"
	MatchStatusLoading    MatchStatus = "loading"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusAborted    MatchStatus = "aborted"
)

func (s MatchStatus) Terminal() bool {
	return s == MatchStatusFinished || s == MatchStatusAborted
}

// GameState is the launcher's view of one external game, assembled from the
// active-game registry. Scores and Winner are keyed by engine team label.
type GameState struct {
	Status models.GameStatus
	Scores map[string]int
	Winner string
}

// GameLauncher creates external game sessions and reports their tracked
// state. Implemented by the game service; the bracket core stays free of
// transport and persistence concerns.
type GameLauncher interface {
	LaunchGame(ctx context.Context, gameMode string, modifiers []string, players []string, teams map[string][]string) (gameID string, err error)
	// GameState returns ok=false when the game id is not tracked anymore,
	// which the caller must treat as already-terminal.
	GameState(gameID string) (GameState, bool)
}

// Match is one best-of-one contest between two teams. It owns at most one
// external game and never outlives its tree. Once Status is terminal the
// match is read-only.
type Match struct {
	ID       string
	Team1    *Team
	Team2    *Team
	Status   MatchStatus
	Cooldown int
	Score    map[string]int
	Winner   *Team
	GameID   string

	tree     *Tree
	parent   *Match
	children [2]*Match
	slot     int // which of the parent's team slots this match feeds
	reported bool
}

// StatusText is what room clients see; during the countdown it mirrors the
// remaining seconds.
func (m *Match) StatusText() string {
	if m.Status == MatchStatusCooldown {
		return fmt.Sprintf("begin in %ds", m.Cooldown)
	}
	return string(m.Status)
}

func (m *Match) activate(cooldown int) {
	m.Status = MatchStatusCooldown
	m.Cooldown = cooldown
}

// Update advances the match state machine by one orchestration tick.
func (m *Match) Update(ctx context.Context, launcher GameLauncher) {
	if m.Status.Terminal() || m.Status == MatchStatusPending {
		return
	}
	if m.Team1 == nil || m.Team2 == nil {
		return
	}

	if m.Status == MatchStatusCooldown {
		if m.Cooldown > 0 {
			m.broadcastCountdown()
			m.Cooldown--
			return
		}
		m.launch(ctx, launcher)
		return
	}

	state, ok := launcher.GameState(m.GameID)
	if !ok {
		// The registry dropped the game before we saw a terminal status;
		// the watchdog already aborted it.
		m.abort()
		return
	}
	for label, score := range state.Scores {
		m.Score[label] = score
	}

	switch state.Status {
	case models.GameStatusFinished:
		m.finish(m.teamByLabel(state.Winner))
	case models.GameStatusAborted:
		m.abort()
	case models.GameStatusLoading:
		m.Status = MatchStatusLoading
	case models.GameStatusInProgress:
		m.Status = MatchStatusInProgress
	default:
		m.Status = MatchStatusWaiting
	}
}

func (m *Match) launch(ctx context.Context, launcher GameLauncher) {
	labels := m.tree.mode.TeamNames
	teams := map[string][]string{
		labels[0]: m.Team1.Usernames(),
		labels[1]: m.Team2.Usernames(),
	}
	players := append(m.Team1.Usernames(), m.Team2.Usernames()...)

	gameID, err := launcher.LaunchGame(ctx, m.tree.mode.Name, m.tree.modifiers, players, teams)
	if err != nil {
		// A failed external create is not treated as transient: there is no
		// independent signal to tell "service down" from "bad request".
		m.abort()
		return
	}
	m.GameID = gameID
	m.Status = MatchStatusWaiting
}

// teamByLabel maps an engine team label back to the bracket team. The
// engine reports the winning label verbatim in export_status.
func (m *Match) teamByLabel(label string) *Team {
	labels := m.tree.mode.TeamNames
	switch label {
	case labels[0]:
		return m.Team1
	case labels[1]:
		return m.Team2
	}
	return nil
}

func (m *Match) finish(winner *Team) {
	m.Status = MatchStatusFinished
	m.tree.Advance(m, winner)
}

func (m *Match) abort() {
	m.Status = MatchStatusAborted
	m.tree.Advance(m, nil)
}

func (m *Match) broadcastCountdown() {
	payload := map[string]interface{}{
		"type":    "match_countdown",
		"match":   m.ID,
		"seconds": m.Cooldown,
	}
	m.Team1.Broadcast(payload)
	m.Team2.Broadcast(payload)
}

type MatchExport struct {
	ID     string         `json:"id"`
	Team1  *string        `json:"team1"`
	Team2  *string        `json:"team2"`
	Status string         `json:"status"`
	Score  map[string]int `json:"score"`
	Winner *string        `json:"winner,omitempty"`
}

func (m *Match) Export() MatchExport {
	e := MatchExport{
		ID:     m.ID,
		Status: m.StatusText(),
		Score:  m.Score,
	}
	if m.Team1 != nil {
		e.Team1 = &m.Team1.Name
	}
	if m.Team2 != nil {
		e.Team2 = &m.Team2.Name
	}
	if m.Winner != nil {
		e.Winner = &m.Winner.Name
	}
	return e
}
