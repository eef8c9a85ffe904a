package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/game-orchestrator/config"
	"github.com/Dosada05/game-orchestrator/models"
	"github.com/Dosada05/game-orchestrator/repositories"
	"github.com/stretchr/testify/require"
)

func testGameMode(teamSize, teamCount int) config.GameMode {
	return config.GameMode{
		Name:         "pong",
		ServiceName:  "pong",
		TeamSize:     teamSize,
		TeamCount:    teamCount,
		TeamNames:    [2]string{"left", "right"},
		Modifiers:    []string{"invisibility", "shrink", "so_long"},
		NewGameURL:   "http://engine/api/pong/new_game/",
		AbortGameURL: "http://engine/api/pong/abort_game/",
		WebsocketURL: "ws://engine/ws/pong",
	}
}

func testModes(teamSize, teamCount int) map[string]config.GameMode {
	mode := testGameMode(teamSize, teamCount)
	return map[string]config.GameMode{mode.Name: mode}
}

type fakeEngine struct {
	mu        sync.Mutex
	created   []NewGamePayload
	aborted   []string
	aiCreated []models.SpecialID

	failCreate bool
	failAI     bool
}

func (f *fakeEngine) NotifyNewGame(_ context.Context, _ config.GameMode, payload NewGamePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return ErrRemoteUnavailable
	}
	f.created = append(f.created, payload)
	return nil
}

func (f *fakeEngine) NotifyAbort(_ context.Context, _ config.GameMode, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, gameID)
	return nil
}

func (f *fakeEngine) CreateAI(_ context.Context, _ string, id models.SpecialID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAI {
		return errors.New("ai service down")
	}
	f.aiCreated = append(f.aiCreated, id)
	return nil
}

type fakeGameRepo struct {
	mu       sync.Mutex
	games    map[string]*models.Game
	statuses map[string]models.GameStatus
	winners  map[string]string
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{
		games:    make(map[string]*models.Game),
		statuses: make(map[string]models.GameStatus),
		winners:  make(map[string]string),
	}
}

func (f *fakeGameRepo) Create(_ context.Context, game *models.Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games[game.ID] = game
	f.statuses[game.ID] = game.Status
	return nil
}

func (f *fakeGameRepo) GetByID(_ context.Context, id string) (*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	game, ok := f.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	return game, nil
}

func (f *fakeGameRepo) UpdateStatus(_ context.Context, id string, status models.GameStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.games[id]; !ok {
		return repositories.ErrGameNotFound
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeGameRepo) SetWinner(_ context.Context, id string, team string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.winners[id]; !ok {
		f.winners[id] = team
	}
	return nil
}

func (f *fakeGameRepo) UpdateScore(_ context.Context, _ string, _ string, _ int) error {
	return nil
}

func (f *fakeGameRepo) AssignPlayerTeam(_ context.Context, _ string, _ string, _ string) error {
	return nil
}

func (f *fakeGameRepo) AbortAllActive(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, status := range f.statuses {
		if !status.Terminal() {
			f.statuses[id] = models.GameStatusAborted
		}
	}
	return nil
}

func (f *fakeGameRepo) status(id string) models.GameStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

type fakePlayerRepo struct {
	mu        sync.Mutex
	statuses  map[string]models.PlayerStatus
	nicknames map[string]string
	resets    int
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{
		statuses:  make(map[string]models.PlayerStatus),
		nicknames: make(map[string]string),
	}
}

func (f *fakePlayerRepo) GetOrCreate(_ context.Context, username string) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.statuses[username]; !ok {
		f.statuses[username] = models.PlayerStatusInactive
	}
	return &models.Player{Username: username, Status: f.statuses[username]}, nil
}

func (f *fakePlayerRepo) UpdateStatus(_ context.Context, username string, status models.PlayerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[username] = status
	return nil
}

func (f *fakePlayerRepo) UpdateNickname(_ context.Context, username, nickname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames[username] = nickname
	return nil
}

func (f *fakePlayerRepo) nickname(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nicknames[username]
}

func (f *fakePlayerRepo) ResetAllStatuses(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	for username := range f.statuses {
		f.statuses[username] = models.PlayerStatusInactive
	}
	return nil
}

func (f *fakePlayerRepo) status(username string) models.PlayerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[username]
}

type noopBridge struct{}

func (noopBridge) Connect(_ context.Context, _, _, _ string) {}

func (noopBridge) Close(_ string) {}

func (noopBridge) CloseAll(_ time.Duration) {}

type gameServiceFixture struct {
	service  GameService
	registry *GameRegistry
	engine   *fakeEngine
	games    *fakeGameRepo
	players  *fakePlayerRepo
	now      *time.Time
}

func newGameServiceFixture(t *testing.T, teamSize int) *gameServiceFixture {
	t.Helper()
	now := time.Unix(1000, 0)
	registry := NewGameRegistryWithClock(func() time.Time { return now })
	engine := &fakeEngine{}
	games := newFakeGameRepo()
	players := newFakePlayerRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewGameService(testModes(teamSize, 4), registry, engine, games, players, logger)
	service.(*gameService).bridges = noopBridge{}
	return &gameServiceFixture{
		service:  service,
		registry: registry,
		engine:   engine,
		games:    games,
		players:  players,
		now:      &now,
	}
}

func TestCreateGameRejectsUnknownMode(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	_, err := fx.service.CreateGame(context.Background(), CreateGameInput{GameMode: "chess"})
	require.ErrorIs(t, err, ErrInvalidGameMode)
	require.Empty(t, fx.engine.created)
}

func TestCreateGameRejectsBadRoster(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	_, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice"},
		Teams:    [][]string{{"alice"}, {}},
	})
	require.ErrorIs(t, err, ErrInvalidRosterSize)

	_, err = fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob", "carol"},
		Teams:    [][]string{{"alice"}, {"bob"}, {"carol"}},
	})
	require.ErrorIs(t, err, ErrInvalidRosterSize)
}

func TestCreateGameRejectsMalformedTeams(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	// bob rostered but not in any team
	_, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"alice"}},
	})
	require.ErrorIs(t, err, ErrMalformedTeams)

	// team larger than the mode's team size
	_, err = fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice", "bob"}, {}},
	})
	require.ErrorIs(t, err, ErrMalformedTeams)
}

func TestCreateGameRegistersAndNotifies(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode:  "pong",
		Modifiers: "shrink",
		Players:   []string{"alice", "bob"},
		Teams:     [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)
	require.Equal(t, "pong", result.ServiceName)
	require.NotEmpty(t, result.GameID)

	require.Len(t, fx.engine.created, 1)
	require.Equal(t, result.GameID, fx.engine.created[0].GameID)
	require.Equal(t, []string{"shrink"}, fx.engine.created[0].Modifiers)

	snap, ok := fx.registry.Get(result.GameID)
	require.True(t, ok)
	require.Equal(t, models.GameStatusWaiting, snap.Status)
	require.Equal(t, []string{"alice", "bob"}, snap.Players)

	require.Equal(t, models.PlayerStatusPending, fx.players.status("alice"))
	require.Equal(t, models.GameStatusWaiting, fx.games.status(result.GameID))
}

func TestCreateGameFillsRosterWithAI(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode:     "pong",
		Players:      []string{"alice"},
		Teams:        [][]string{{"alice"}, {}},
		AIAuthorized: true,
	})
	require.NoError(t, err)

	require.Len(t, fx.engine.created, 1)
	require.Len(t, fx.engine.created[0].PlayersList, 2)
	require.Len(t, fx.engine.created[0].SpecialID, 1)
	require.Len(t, fx.engine.aiCreated, 1)
	require.Equal(t, fx.engine.created[0].SpecialID[0], fx.engine.aiCreated[0])

	snap, _ := fx.registry.Get(result.GameID)
	require.Len(t, snap.Players, 2)
}

func TestCreateGameAIFailureDoesNotFailGame(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	fx.engine.failAI = true

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode:     "pong",
		Players:      []string{"alice"},
		Teams:        [][]string{{"alice"}, {}},
		AIAuthorized: true,
	})
	require.NoError(t, err)

	_, ok := fx.registry.Get(result.GameID)
	require.True(t, ok)
}

func TestCreateGameEngineFailureCreatesNothing(t *testing.T) {
	fx := newGameServiceFixture(t, 1)
	fx.engine.failCreate = true

	_, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.ErrorIs(t, err, ErrRemoteUnavailable)
	require.Empty(t, fx.registry.Snapshot())
}

func TestAbortGameIsIdempotent(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)

	require.NoError(t, fx.service.AbortGame(context.Background(), result.GameID))
	require.NoError(t, fx.service.AbortGame(context.Background(), result.GameID))

	// only the first call reaches the engine
	require.Equal(t, []string{result.GameID}, fx.engine.aborted)
	require.Equal(t, models.GameStatusAborted, fx.games.status(result.GameID))

	snap, _ := fx.registry.Get(result.GameID)
	require.Equal(t, models.GameStatusAborted, snap.Status)
}

func TestAbortUnknownGameIsNoop(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	require.NoError(t, fx.service.AbortGame(context.Background(), "missing"))
	require.Empty(t, fx.engine.aborted)
}

func TestWatchdogForceAbortsStalledGame(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)

	*fx.now = fx.now.Add(19 * time.Second)
	fx.service.WatchdogTick(context.Background())
	require.Empty(t, fx.engine.aborted)

	*fx.now = fx.now.Add(2 * time.Second)
	fx.service.WatchdogTick(context.Background())

	require.Equal(t, []string{result.GameID}, fx.engine.aborted)
	require.Equal(t, models.GameStatusAborted, fx.games.status(result.GameID))
	require.Equal(t, models.PlayerStatusInactive, fx.players.status("alice"))
	require.Equal(t, models.PlayerStatusInactive, fx.players.status("bob"))

	_, ok := fx.registry.Get(result.GameID)
	require.False(t, ok)
}

func TestWatchdogStatusChangeBuysTime(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)

	*fx.now = fx.now.Add(15 * time.Second)
	fx.registry.SetStatus(result.GameID, models.GameStatusLoading)

	*fx.now = fx.now.Add(10 * time.Second)
	fx.service.WatchdogTick(context.Background())

	// 10s into the 60s loading budget: still alive
	snap, ok := fx.registry.Get(result.GameID)
	require.True(t, ok)
	require.Equal(t, models.GameStatusLoading, snap.Status)
	require.Empty(t, fx.engine.aborted)
}

func TestWatchdogDrainsTerminalEntries(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)

	fx.registry.SetStatus(result.GameID, models.GameStatusFinished)
	fx.service.WatchdogTick(context.Background())
	fx.service.WatchdogTick(context.Background())

	_, ok := fx.registry.Get(result.GameID)
	require.False(t, ok)
	// a finished game is drained without a remote abort
	require.Empty(t, fx.engine.aborted)
	require.Equal(t, models.PlayerStatusInactive, fx.players.status("alice"))
}

func TestWatchdogHoldsFreshTerminalEntryForOnePass(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)

	// a result reported between the tournament step and the watchdog step
	// of the same iteration must survive until the bracket has seen it
	fx.registry.SetWinner(result.GameID, "left")
	fx.registry.SetStatus(result.GameID, models.GameStatusFinished)
	fx.service.WatchdogTick(context.Background())

	state, ok := fx.service.GameState(result.GameID)
	require.True(t, ok)
	require.Equal(t, models.GameStatusFinished, state.Status)
	require.Equal(t, "left", state.Winner)

	fx.service.WatchdogTick(context.Background())
	_, ok = fx.registry.Get(result.GameID)
	require.False(t, ok)
}

func TestLauncherRoundTrip(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	gameID, err := fx.service.LaunchGame(context.Background(), "pong", []string{"shrink"},
		[]string{"alice", "bob"}, map[string][]string{"left": {"alice"}, "right": {"bob"}})
	require.NoError(t, err)

	state, ok := fx.service.GameState(gameID)
	require.True(t, ok)
	require.Equal(t, models.GameStatusWaiting, state.Status)

	fx.registry.SetScore(gameID, "left", 2)
	fx.registry.SetWinner(gameID, "left")
	fx.registry.SetStatus(gameID, models.GameStatusFinished)

	state, ok = fx.service.GameState(gameID)
	require.True(t, ok)
	require.Equal(t, models.GameStatusFinished, state.Status)
	require.Equal(t, "left", state.Winner)
	require.Equal(t, map[string]int{"left": 2}, state.Scores)

	_, ok = fx.service.GameState("missing")
	require.False(t, ok)
}

func TestGetGame(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	result, err := fx.service.CreateGame(context.Background(), CreateGameInput{
		GameMode: "pong",
		Players:  []string{"alice", "bob"},
		Teams:    [][]string{{"alice"}, {"bob"}},
	})
	require.NoError(t, err)

	game, err := fx.service.GetGame(context.Background(), result.GameID)
	require.NoError(t, err)
	require.Equal(t, result.GameID, game.ID)
	require.Equal(t, models.GameStatusWaiting, game.Status)

	_, err = fx.service.GetGame(context.Background(), "missing")
	require.ErrorIs(t, err, ErrGameNotTracked)
}

func TestReconcileOnStartup(t *testing.T) {
	fx := newGameServiceFixture(t, 1)

	fx.players.statuses["alice"] = models.PlayerStatusInGame
	fx.games.games["old"] = &models.Game{ID: "old", Status: models.GameStatusInProgress}
	fx.games.statuses["old"] = models.GameStatusInProgress

	require.NoError(t, fx.service.ReconcileOnStartup(context.Background()))

	require.Equal(t, models.PlayerStatusInactive, fx.players.status("alice"))
	require.Equal(t, models.GameStatusAborted, fx.games.status("old"))
}
