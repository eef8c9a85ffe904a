package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/game-orchestrator/brackets"
	"github.com/Dosada05/game-orchestrator/bridge"
	"github.com/Dosada05/game-orchestrator/config"
	"github.com/Dosada05/game-orchestrator/models"
	"github.com/Dosada05/game-orchestrator/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type CreateGameInput struct {
	GameMode     string
	Modifiers    string
	Players      []string
	Teams        [][]string
	AIAuthorized bool
}

type CreateGameResult struct {
	GameID      string `json:"gameId"`
	ServiceName string `json:"serviceName"`
}

// GameService owns the lifecycle of external game sessions: creation,
// abort, the watchdog pass over the active-game registry, and (through the
// bridge sink) every inbound engine event.
type GameService interface {
	brackets.GameLauncher

	CreateGame(ctx context.Context, input CreateGameInput) (*CreateGameResult, error)
	// GetGame returns the persisted snapshot of a game, live or settled.
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	AbortGame(ctx context.Context, gameID string) error
	// WatchdogTick runs one reconciliation pass over the registry: drains
	// terminal entries and force-aborts games whose status has not changed
	// within its budget.
	WatchdogTick(ctx context.Context)
	// ReconcileOnStartup resets persisted state left behind by a crash.
	ReconcileOnStartup(ctx context.Context) error
	Shutdown(ctx context.Context)
}

// gameBridge is the slice of bridge.Manager the service drives. Narrowed to
// an interface so tests can run without dialing anything.
type gameBridge interface {
	Connect(ctx context.Context, gameID, adminID, wsBase string)
	Close(gameID string)
	CloseAll(grace time.Duration)
}

type gameService struct {
	modes      map[string]config.GameMode
	registry   *GameRegistry
	engine     EngineNotifier
	bridges    gameBridge
	gameRepo   repositories.GameRepository
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger

	// drainable marks terminal entries already seen by one watchdog pass.
	// Only the supervisory goroutine touches it.
	drainable map[string]bool
}

func NewGameService(
	modes map[string]config.GameMode,
	registry *GameRegistry,
	engine EngineNotifier,
	gameRepo repositories.GameRepository,
	playerRepo repositories.PlayerRepository,
	logger *slog.Logger,
) GameService {
	s := &gameService{
		modes:      modes,
		registry:   registry,
		engine:     engine,
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		logger:     logger,
		drainable:  make(map[string]bool),
	}
	s.bridges = bridge.NewManager(s, logger)
	return s
}

func (s *gameService) CreateGame(ctx context.Context, input CreateGameInput) (*CreateGameResult, error) {
	mode, ok := s.modes[input.GameMode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGameMode, input.GameMode)
	}

	modifiers, err := parseModifiers(input.Modifiers, mode)
	if err != nil {
		return nil, err
	}

	needed := mode.PlayersPerGame()
	players := append([]string(nil), input.Players...)
	if len(players) > needed || (!input.AIAuthorized && len(players) < needed) {
		return nil, fmt.Errorf("%w: got %d players, mode %q needs %d", ErrInvalidRosterSize, len(players), mode.Name, needed)
	}

	teams := make([][]string, 0, 2)
	for _, team := range input.Teams {
		teams = append(teams, append([]string(nil), team...))
	}
	for len(teams) < 2 {
		teams = append(teams, []string{})
	}
	if err := validateTeamPartition(teams, players, mode); err != nil {
		return nil, err
	}

	// AI fill: pad the roster with generated id pairs until the mode's
	// player count is reached.
	var specials []models.SpecialID
	for input.AIAuthorized && len(players) < needed {
		id := models.SpecialID{Private: uuid.NewString(), Public: uuid.NewString()}
		specials = append(specials, id)
		players = append(players, id.Public)
		placed := false
		for i := range teams {
			if len(teams[i]) < mode.TeamSize {
				teams[i] = append(teams[i], id.Public)
				placed = true
				break
			}
		}
		if !placed {
			return nil, fmt.Errorf("%w: no team slot left for AI player", ErrMalformedTeams)
		}
	}

	gameID := uuid.NewString()
	adminID := uuid.NewString()

	payload := NewGamePayload{
		GameID:      gameID,
		AdminID:     adminID,
		GameMode:    mode.Name,
		Modifiers:   modifiers,
		PlayersList: players,
		SpecialID:   specials,
	}
	if err := s.engine.NotifyNewGame(ctx, mode, payload); err != nil {
		return nil, err
	}

	game := &models.Game{
		ID:       gameID,
		GameMode: mode.Name,
		Status:   models.GameStatusWaiting,
		Players:  players,
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		// The engine already accepted the game; tell it to drop the session
		// rather than leave an orphan running.
		if abortErr := s.engine.NotifyAbort(ctx, mode, gameID); abortErr != nil {
			s.logger.Error("failed to abort orphaned game", slog.String("game_id", gameID), slog.Any("error", abortErr))
		}
		return nil, fmt.Errorf("failed to persist game %s: %w", gameID, err)
	}

	for _, username := range players {
		if err := s.playerRepo.UpdateStatus(ctx, username, models.PlayerStatusPending); err != nil {
			s.logger.Error("failed to mark player pending", slog.String("username", username), slog.Any("error", err))
		}
	}

	s.registry.Add(gameID, mode.Name, adminID, players)
	s.bridges.Connect(context.Background(), gameID, adminID, mode.WebsocketURL)

	for _, id := range specials {
		if err := s.engine.CreateAI(ctx, gameID, id); err != nil {
			// An unreachable AI service must not take the game down; the
			// seat simply stays idle.
			s.logger.Error("failed to create AI player", slog.String("game_id", gameID), slog.Any("error", err))
		}
	}

	s.logger.Info("game created",
		slog.String("game_id", gameID),
		slog.String("game_mode", mode.Name),
		slog.Int("players", len(players)),
		slog.Int("ai_players", len(specials)))

	return &CreateGameResult{GameID: gameID, ServiceName: mode.ServiceName}, nil
}

func validateTeamPartition(teams [][]string, players []string, mode config.GameMode) error {
	if len(teams) != 2 {
		return fmt.Errorf("%w: expected 2 teams, got %d", ErrMalformedTeams, len(teams))
	}
	total := 0
	for _, team := range teams {
		if len(team) > mode.TeamSize {
			return fmt.Errorf("%w: team of %d exceeds mode team size %d", ErrMalformedTeams, len(team), mode.TeamSize)
		}
		total += len(team)
	}
	if total != len(players) {
		return fmt.Errorf("%w: teams hold %d players, roster has %d", ErrMalformedTeams, total, len(players))
	}
	for _, player := range players {
		found := false
		for _, team := range teams {
			if contains(team, player) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: player %q is not in any team", ErrMalformedTeams, player)
		}
	}
	return nil
}

func (s *gameService) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if errors.Is(err, repositories.ErrGameNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrGameNotTracked, gameID)
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}

// AbortGame locally transitions the game to aborted regardless of the
// remote acknowledgment; the orchestrator must not get stuck waiting on a
// possibly-dead peer. Idempotent: only the first call reaches the engine.
func (s *gameService) AbortGame(ctx context.Context, gameID string) error {
	snap, tracked := s.registry.Get(gameID)
	if !tracked {
		// Unknown id is treated as already-terminal; still settle the
		// persisted snapshot if one exists.
		if err := s.gameRepo.UpdateStatus(ctx, gameID, models.GameStatusAborted); err != nil && !errors.Is(err, repositories.ErrGameNotFound) {
			return err
		}
		return nil
	}

	changed, _ := s.registry.SetStatus(gameID, models.GameStatusAborted)
	if err := s.gameRepo.UpdateStatus(ctx, gameID, models.GameStatusAborted); err != nil && !errors.Is(err, repositories.ErrGameNotFound) {
		s.logger.Error("failed to persist abort", slog.String("game_id", gameID), slog.Any("error", err))
	}
	if !changed {
		return nil
	}

	if mode, ok := s.modes[snap.GameMode]; ok {
		if err := s.engine.NotifyAbort(ctx, mode, gameID); err != nil {
			s.logger.Error("engine abort failed, local state already aborted",
				slog.String("game_id", gameID), slog.Any("error", err))
		}
	}
	s.bridges.Close(gameID)
	return nil
}

func (s *gameService) WatchdogTick(ctx context.Context) {
	for _, snap := range s.registry.Snapshot() {
		if snap.Status.Terminal() {
			// The bridge (or an abort) already settled the game; the entry
			// is held for one extra pass so the owning match observes the
			// terminal status before the registry forgets it, then drained.
			if !s.drainable[snap.GameID] {
				s.drainable[snap.GameID] = true
				continue
			}
			delete(s.drainable, snap.GameID)
			s.deactivateRoster(ctx, snap)
			s.registry.Remove(snap.GameID)
			continue
		}

		timeout, ok := statusTimeouts[snap.Status]
		if !ok || snap.Elapsed < timeout {
			continue
		}

		s.logger.Info("watchdog force-aborting stalled game",
			slog.String("game_id", snap.GameID),
			slog.String("status", string(snap.Status)),
			slog.Duration("elapsed", snap.Elapsed))

		s.registry.SetStatus(snap.GameID, models.GameStatusAborted)
		if err := s.gameRepo.UpdateStatus(ctx, snap.GameID, models.GameStatusAborted); err != nil && !errors.Is(err, repositories.ErrGameNotFound) {
			s.logger.Error("failed to persist watchdog abort", slog.String("game_id", snap.GameID), slog.Any("error", err))
		}
		if mode, ok := s.modes[snap.GameMode]; ok {
			if err := s.engine.NotifyAbort(ctx, mode, snap.GameID); err != nil {
				s.logger.Error("engine abort failed during watchdog pass",
					slog.String("game_id", snap.GameID), slog.Any("error", err))
			}
		}
		s.deactivateRoster(ctx, snap)
		s.registry.Remove(snap.GameID)
		s.bridges.Close(snap.GameID)
	}
}

func (s *gameService) deactivateRoster(ctx context.Context, snap GameSnapshot) {
	seen := make(map[string]bool)
	for _, list := range [][]string{snap.Players, snap.Connected, snap.Spectators} {
		for _, username := range list {
			if seen[username] {
				continue
			}
			seen[username] = true
			if err := s.playerRepo.UpdateStatus(ctx, username, models.PlayerStatusInactive); err != nil {
				s.logger.Error("failed to deactivate player", slog.String("username", username), slog.Any("error", err))
			}
		}
	}
}

func (s *gameService) ReconcileOnStartup(ctx context.Context) error {
	if err := s.playerRepo.ResetAllStatuses(ctx); err != nil {
		return err
	}
	return s.gameRepo.AbortAllActive(ctx)
}

// Shutdown aborts every live game in parallel and gives the bridges a
// bounded grace period to drain.
func (s *gameService) Shutdown(ctx context.Context) {
	g, gCtx := errgroup.WithContext(ctx)
	for _, snap := range s.registry.Snapshot() {
		snap := snap
		if snap.Status.Terminal() {
			continue
		}
		g.Go(func() error {
			if err := s.AbortGame(gCtx, snap.GameID); err != nil {
				s.logger.Error("failed to abort game during shutdown",
					slog.String("game_id", snap.GameID), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	s.bridges.CloseAll(5 * time.Second)
}

// --- brackets.GameLauncher ---

func (s *gameService) LaunchGame(ctx context.Context, gameMode string, modifiers []string, players []string, teams map[string][]string) (string, error) {
	mode, ok := s.modes[gameMode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidGameMode, gameMode)
	}
	partition := [][]string{
		teams[mode.TeamNames[0]],
		teams[mode.TeamNames[1]],
	}
	result, err := s.CreateGame(ctx, CreateGameInput{
		GameMode:  gameMode,
		Modifiers: strings.Join(modifiers, ","),
		Players:   players,
		Teams:     partition,
	})
	if err != nil {
		return "", err
	}
	return result.GameID, nil
}

func (s *gameService) GameState(gameID string) (brackets.GameState, bool) {
	snap, ok := s.registry.Get(gameID)
	if !ok {
		return brackets.GameState{}, false
	}
	return brackets.GameState{
		Status: snap.Status,
		Scores: snap.Scores,
		Winner: snap.Winner,
	}, true
}

// --- bridge.Sink ---
//
// Every sink method runs on a relay goroutine; shared state is only touched
// through the registry's mutex and the repositories.

func (s *gameService) GameStatusReported(gameID string, status models.GameStatus) {
	ctx, cancel := sinkContext()
	defer cancel()

	changed, tracked := s.registry.SetStatus(gameID, status)
	if !tracked {
		return
	}
	if changed {
		if err := s.gameRepo.UpdateStatus(ctx, gameID, status); err != nil && !errors.Is(err, repositories.ErrGameNotFound) {
			s.logger.Error("failed to persist game status", slog.String("game_id", gameID), slog.Any("error", err))
		}
	}

	playerStatus, ok := playerStatusForGame(status)
	if !ok {
		return
	}
	snap, ok := s.registry.Get(gameID)
	if !ok {
		return
	}
	usernames := snap.Connected
	if status.Terminal() {
		usernames = append(usernames, snap.Spectators...)
	}
	for _, username := range usernames {
		if err := s.playerRepo.UpdateStatus(ctx, username, playerStatus); err != nil {
			s.logger.Error("failed to update player status", slog.String("username", username), slog.Any("error", err))
		}
	}
}

func (s *gameService) GameFinishedReported(gameID string, winnerTeam string, score int) {
	ctx, cancel := sinkContext()
	defer cancel()

	if winnerTeam != "" {
		s.registry.SetScore(gameID, winnerTeam, score)
		s.registry.SetWinner(gameID, winnerTeam)
		if err := s.gameRepo.UpdateScore(ctx, gameID, winnerTeam, score); err != nil {
			s.logger.Error("failed to persist final score", slog.String("game_id", gameID), slog.Any("error", err))
		}
		if err := s.gameRepo.SetWinner(ctx, gameID, winnerTeam); err != nil {
			s.logger.Error("failed to persist winner", slog.String("game_id", gameID), slog.Any("error", err))
		}
	}
}

func (s *gameService) TeamsExported(gameID string, teams map[string][]string) {
	ctx, cancel := sinkContext()
	defer cancel()

	for team, members := range teams {
		for _, username := range members {
			if err := s.gameRepo.AssignPlayerTeam(ctx, gameID, username, team); err != nil {
				s.logger.Error("failed to assign player team",
					slog.String("game_id", gameID), slog.String("username", username), slog.Any("error", err))
			}
		}
	}
}

func (s *gameService) ScoreUpdated(gameID string, team string, score int) {
	ctx, cancel := sinkContext()
	defer cancel()

	s.registry.SetScore(gameID, team, score)
	if err := s.gameRepo.UpdateScore(ctx, gameID, team, score); err != nil {
		s.logger.Error("failed to persist score", slog.String("game_id", gameID), slog.Any("error", err))
	}
}

func (s *gameService) PlayerConnected(gameID, username string) {
	ctx, cancel := sinkContext()
	defer cancel()

	s.registry.AddConnected(gameID, username, false)
	if err := s.playerRepo.UpdateStatus(ctx, username, models.PlayerStatusWaiting); err != nil {
		s.logger.Error("failed to update player status", slog.String("username", username), slog.Any("error", err))
	}
}

func (s *gameService) SpectatorConnected(gameID, username string) {
	ctx, cancel := sinkContext()
	defer cancel()

	s.registry.AddConnected(gameID, username, true)
	if err := s.playerRepo.UpdateStatus(ctx, username, models.PlayerStatusSpectate); err != nil {
		s.logger.Error("failed to update spectator status", slog.String("username", username), slog.Any("error", err))
	}
}

func (s *gameService) PlayerDisconnected(gameID, username string) {
	ctx, cancel := sinkContext()
	defer cancel()

	s.registry.RemoveConnected(gameID, username, false)
	if err := s.playerRepo.UpdateStatus(ctx, username, models.PlayerStatusInactive); err != nil {
		s.logger.Error("failed to update player status", slog.String("username", username), slog.Any("error", err))
	}
}

func (s *gameService) SpectatorDisconnected(gameID, username string) {
	ctx, cancel := sinkContext()
	defer cancel()

	s.registry.RemoveConnected(gameID, username, true)
	if err := s.playerRepo.UpdateStatus(ctx, username, models.PlayerStatusInactive); err != nil {
		s.logger.Error("failed to update spectator status", slog.String("username", username), slog.Any("error", err))
	}
}

// Closed is the sole path by which a dropped engine connection becomes
// visible: the game is forced to aborted and its roster deactivated. The
// registry entry stays for the next watchdog drain so the owning match can
// still observe the terminal status.
func (s *gameService) Closed(gameID string) {
	ctx, cancel := sinkContext()
	defer cancel()

	snap, ok := s.registry.Get(gameID)
	if !ok {
		return
	}
	if !snap.Status.Terminal() {
		s.registry.SetStatus(gameID, models.GameStatusAborted)
		if err := s.gameRepo.UpdateStatus(ctx, gameID, models.GameStatusAborted); err != nil && !errors.Is(err, repositories.ErrGameNotFound) {
			s.logger.Error("failed to persist abort after bridge close",
				slog.String("game_id", gameID), slog.Any("error", err))
		}
		s.deactivateRoster(ctx, snap)
	}
}

func sinkContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
