package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/game-orchestrator/config"
)

// Tree is a single-elimination bracket of matches. Leaves pair adjacent
// teams from the build order; every internal node's teams are exactly the
// winners of its two children once both are terminal. The root's winner is
// the tournament winner.
type Tree struct {
	mode      config.GameMode
	modifiers []string
	cooldown  int

	root    *Match
	matches []*Match
	rounds  int

	done   bool
	broken bool
	winner *Team
}

// Build constructs the full bracket bottom-up. The team count must be a
// power of two >= 2, otherwise ErrInvalidBracketSize and no matches are
// created. Leaf matches start their countdown immediately; upper nodes stay
// pending until both children resolve.
func Build(teams []*Team, mode config.GameMode, modifiers []string, cooldown int) (*Tree, error) {
	n := len(teams)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: got %d teams", ErrInvalidBracketSize, n)
	}

	t := &Tree{
		mode:      mode,
		modifiers: modifiers,
		cooldown:  cooldown,
	}

	current := make([]*Match, 0, n/2)
	for i := 0; i < n; i += 2 {
		m := &Match{
			ID:    fmt.Sprintf("R1M%d", i/2+1),
			Team1: teams[i],
			Team2: teams[i+1],
			Score: make(map[string]int),
			tree:  t,
		}
		m.activate(cooldown)
		current = append(current, m)
	}
	t.matches = append(t.matches, current...)
	t.rounds = 1

	for len(current) > 1 {
		t.rounds++
		next := make([]*Match, 0, len(current)/2)
		for i := 0; i < len(current); i += 2 {
			parent := &Match{
				ID:     fmt.Sprintf("R%dM%d", t.rounds, i/2+1),
				Status: MatchStatusPending,
				Score:  make(map[string]int),
				tree:   t,
			}
			parent.children = [2]*Match{current[i], current[i+1]}
			current[i].parent, current[i].slot = parent, 0
			current[i+1].parent, current[i+1].slot = parent, 1
			next = append(next, parent)
		}
		t.matches = append(t.matches, next...)
		current = next
	}
	t.root = current[0]

	return t, nil
}

// Advance records a match result and propagates the winner into the parent
// node. winner == nil means the match was aborted; aborts propagate upward,
// so the tournament itself ends without a winner. Safe to call repeatedly:
// a match reports at most once.
func (t *Tree) Advance(m *Match, winner *Team) {
	if m == nil || m.reported {
		return
	}
	m.reported = true
	m.Winner = winner
	if !m.Status.Terminal() {
		if winner != nil {
			m.Status = MatchStatusFinished
		} else {
			m.Status = MatchStatusAborted
		}
	}

	parent := m.parent
	if parent == nil {
		t.done = true
		t.winner = winner
		t.broken = winner == nil
		return
	}

	if winner == nil {
		parent.Status = MatchStatusAborted
		t.Advance(parent, nil)
		return
	}

	if m.slot == 0 {
		parent.Team1 = winner
	} else {
		parent.Team2 = winner
	}
	if parent.Team1 != nil && parent.Team2 != nil && parent.Status == MatchStatusPending {
		parent.activate(t.cooldown)
	}
}

// Update advances every active match by one tick. Pure delegation; result
// propagation happens through Advance from inside the matches.
func (t *Tree) Update(ctx context.Context, launcher GameLauncher) {
	for _, m := range t.matches {
		m.Update(ctx, launcher)
	}
}

func (t *Tree) Matches() []*Match { return t.matches }
func (t *Tree) Root() *Match     { return t.root }
func (t *Tree) Rounds() int      { return t.rounds }

// Finished reports whether the root match reached a terminal state.
func (t *Tree) Finished() bool { return t.done }

// Aborted reports whether the bracket ended without a winner.
func (t *Tree) Aborted() bool { return t.broken }

// Winner is nil until Finished, and stays nil when Aborted.
func (t *Tree) Winner() *Team { return t.winner }

func (t *Tree) Export() []MatchExport {
	out := make([]MatchExport, len(t.matches))
	for i, m := range t.matches {
		out[i] = m.Export()
	}
	return out
}
