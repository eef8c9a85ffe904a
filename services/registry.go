package services

import (
	"sync"
	"time"

	"github.com/Dosada05/game-orchestrator/models"
	"github.com/Dosada05/game-orchestrator/utils"
)

// registryEntry is the live tracking record of one external game. players
// is the creation roster (what the watchdog marks inactive); connected and
// spectators follow the bridge's connection events.
type registryEntry struct {
	gameMode   string
	adminID    string
	status     models.GameStatus
	timer      *utils.Timer
	players    []string
	connected  []string
	spectators []string
	scores     map[string]int
	winner     string
}

// GameRegistry tracks every currently active game. It is one of the two
// shared mutable structures of the process (the other is the room map);
// every mutation happens under its single mutex, so concurrent bridges and
// the watchdog never observe a half-updated record. It is a tracking index,
// not an owner: an unknown game id is treated as already-terminal.
type GameRegistry struct {
	mu    sync.Mutex
	games map[string]*registryEntry
	clock func() time.Time
}

func NewGameRegistry() *GameRegistry {
	return NewGameRegistryWithClock(time.Now)
}

func NewGameRegistryWithClock(clock func() time.Time) *GameRegistry {
	return &GameRegistry{
		games: make(map[string]*registryEntry),
		clock: clock,
	}
}

// Add starts tracking a freshly created game in waiting state.
func (r *GameRegistry) Add(gameID, gameMode, adminID string, players []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[gameID] = &registryEntry{
		gameMode: gameMode,
		adminID:  adminID,
		status:   models.GameStatusWaiting,
		timer:    utils.NewTimerWithClock(r.clock),
		players:  append([]string(nil), players...),
		scores:   make(map[string]int),
	}
}

// SetStatus records a reported status. The elapsed timer resets only on a
// genuine transition: the same value reported again from a fresh bridge
// message does not buy the game more time. Returns whether the status
// changed; reports against a terminal entry are ignored.
func (r *GameRegistry) SetStatus(gameID string, status models.GameStatus) (changed, tracked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.games[gameID]
	if !ok {
		return false, false
	}
	if entry.status.Terminal() {
		return false, true
	}
	if entry.status == status {
		return false, true
	}
	entry.status = status
	entry.timer.Reset()
	return true, true
}

func (r *GameRegistry) SetScore(gameID, team string, score int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.games[gameID]; ok {
		entry.scores[team] = score
	}
}

// SetWinner keeps the first reported winner.
func (r *GameRegistry) SetWinner(gameID, team string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.games[gameID]; ok && entry.winner == "" {
		entry.winner = team
	}
}

func (r *GameRegistry) AddConnected(gameID, username string, spectator bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.games[gameID]
	if !ok {
		return
	}
	if spectator {
		entry.spectators = appendUnique(entry.spectators, username)
	} else {
		entry.connected = appendUnique(entry.connected, username)
	}
}

func (r *GameRegistry) RemoveConnected(gameID, username string, spectator bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.games[gameID]
	if !ok {
		return
	}
	if spectator {
		entry.spectators = removeString(entry.spectators, username)
	} else {
		entry.connected = removeString(entry.connected, username)
	}
}

func (r *GameRegistry) Remove(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, gameID)
}

// GameSnapshot is a copy of one entry, safe to use without the lock.
type GameSnapshot struct {
	GameID     string
	GameMode   string
	AdminID    string
	Status     models.GameStatus
	Elapsed    time.Duration
	Players    []string
	Connected  []string
	Spectators []string
	Scores     map[string]int
	Winner     string
}

func snapshotEntry(gameID string, entry *registryEntry) GameSnapshot {
	scores := make(map[string]int, len(entry.scores))
	for team, score := range entry.scores {
		scores[team] = score
	}
	return GameSnapshot{
		GameID:     gameID,
		GameMode:   entry.gameMode,
		AdminID:    entry.adminID,
		Status:     entry.status,
		Elapsed:    entry.timer.Elapsed(),
		Players:    append([]string(nil), entry.players...),
		Connected:  append([]string(nil), entry.connected...),
		Spectators: append([]string(nil), entry.spectators...),
		Scores:     scores,
		Winner:     entry.winner,
	}
}

func (r *GameRegistry) Get(gameID string) (GameSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.games[gameID]
	if !ok {
		return GameSnapshot{}, false
	}
	return snapshotEntry(gameID, entry), true
}

// Snapshot copies the whole registry for one watchdog pass.
func (r *GameRegistry) Snapshot() []GameSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GameSnapshot, 0, len(r.games))
	for gameID, entry := range r.games {
		out = append(out, snapshotEntry(gameID, entry))
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
