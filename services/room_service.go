package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dosada05/game-orchestrator/brackets"
	"github.com/Dosada05/game-orchestrator/config"
	"github.com/Dosada05/game-orchestrator/models"
	"github.com/Dosada05/game-orchestrator/repositories"
	"github.com/Dosada05/game-orchestrator/storage"
)

type CreateRoomInput struct {
	TournamentID    string
	AdminID         string
	GameMode        string
	Modifiers       string
	ExpectedPlayers []string
	SpecialIDs      []models.SpecialID
}

type RoomSnapshot struct {
	TournamentID    string                 `json:"tournamentId"`
	ServiceName     string                 `json:"serviceName"`
	Status          models.RoomStatus      `json:"status"`
	GameMode        string                 `json:"gameMode"`
	Modifiers       []string               `json:"modifiers"`
	ExpectedPlayers []string               `json:"expectedPlayers"`
	Players         []string               `json:"players"`
	Spectators      []string               `json:"spectators"`
	AdminAttached   bool                   `json:"adminAttached"`
	Bracket         []brackets.MatchExport `json:"bracket,omitempty"`
	Winner          *brackets.TeamExport   `json:"winner,omitempty"`
}

// RoomService gates connections into tournament rooms and drives every
// running bracket forward once per orchestration tick.
type RoomService interface {
	CreateRoom(input CreateRoomInput) (*RoomSnapshot, error)
	// AttachAdmin binds the per-room control connection. Joins are rejected
	// until this has happened.
	AttachAdmin(tournamentID, adminID string, conn brackets.Sender) error
	// JoinUser classifies the connection as player or spectator. The
	// returned flag is true for spectators. Re-joining under the same
	// username overwrites the stored connection.
	JoinUser(tournamentID, username, nickname string, conn brackets.Sender) (spectator bool, err error)
	Leave(tournamentID, username string)
	// SpecialConnection resolves a private AI id to its public roster id.
	SpecialConnection(tournamentID, privateID string) (string, error)
	AbortRoom(ctx context.Context, tournamentID string) error
	RemoveRoom(ctx context.Context, tournamentID string) error
	Snapshot(tournamentID string) (*RoomSnapshot, error)
	// Tick advances every live tournament by one step.
	Tick(ctx context.Context)
}

type room struct {
	id         string
	status     models.RoomStatus
	mode       config.GameMode
	modifiers  []string
	adminID    string
	adminConn  brackets.Sender
	expected   map[string]bool
	players    map[string]brackets.RosterEntry
	spectators map[string]brackets.RosterEntry
	specials   []models.SpecialID
	tournament *brackets.Tournament
}

type roomService struct {
	mu    sync.Mutex
	rooms map[string]*room

	modes    map[string]config.GameMode
	cooldown int
	games    GameService
	hub      *brackets.Hub
	players  repositories.PlayerRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

// NewRoomService wires the room gate. uploader may be nil; finished
// tournaments are then simply not archived.
func NewRoomService(
	modes map[string]config.GameMode,
	cooldown int,
	games GameService,
	hub *brackets.Hub,
	players repositories.PlayerRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) RoomService {
	return &roomService{
		rooms:    make(map[string]*room),
		modes:    modes,
		cooldown: cooldown,
		games:    games,
		hub:      hub,
		players:  players,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *roomService) CreateRoom(input CreateRoomInput) (*RoomSnapshot, error) {
	mode, ok := s.modes[input.GameMode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGameMode, input.GameMode)
	}
	modifiers, err := parseModifiers(input.Modifiers, mode)
	if err != nil {
		return nil, err
	}
	if len(input.ExpectedPlayers) != mode.RosterSize() {
		return nil, fmt.Errorf("%w: got %d players, mode %q expects %d",
			ErrInvalidRosterSize, len(input.ExpectedPlayers), mode.Name, mode.RosterSize())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[input.TournamentID]; exists {
		return nil, fmt.Errorf("%w: tournament %q already exists", ErrRoomConflict, input.TournamentID)
	}

	expected := make(map[string]bool, len(input.ExpectedPlayers))
	for _, username := range input.ExpectedPlayers {
		expected[username] = true
	}
	r := &room{
		id:         input.TournamentID,
		status:     models.RoomStatusWaiting,
		mode:       mode,
		modifiers:  modifiers,
		adminID:    input.AdminID,
		expected:   expected,
		players:    make(map[string]brackets.RosterEntry),
		spectators: make(map[string]brackets.RosterEntry),
		specials:   append([]models.SpecialID(nil), input.SpecialIDs...),
	}
	s.rooms[input.TournamentID] = r

	s.logger.Info("tournament room created",
		slog.String("tournament_id", r.id),
		slog.String("game_mode", mode.Name),
		slog.Int("expected_players", len(expected)))

	return s.snapshotLocked(r), nil
}

func (s *roomService) AttachAdmin(tournamentID, adminID string, conn brackets.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[tournamentID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, tournamentID)
	}
	if adminID != r.adminID {
		return fmt.Errorf("%w: admin id mismatch for tournament %q", ErrUnauthorized, tournamentID)
	}
	r.adminConn = conn
	s.maybeStartLocked(r)
	return nil
}

func (s *roomService) JoinUser(tournamentID, username, nickname string, conn brackets.Sender) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[tournamentID]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrRoomNotFound, tournamentID)
	}
	if r.status.Terminal() {
		return false, fmt.Errorf("%w: tournament %q is over", ErrRoomConflict, tournamentID)
	}
	if r.adminConn == nil {
		return false, fmt.Errorf("%w: tournament %q", ErrAdminNotAttached, tournamentID)
	}

	entry := brackets.RosterEntry{Nickname: nickname, Conn: conn}
	if r.expected[username] {
		r.players[username] = entry
		s.persistIdentity(username, nickname)
		s.maybeStartLocked(r)
		return false, nil
	}
	r.spectators[username] = entry
	return true, nil
}

// persistIdentity records the player row and its display nickname on room
// entry. Best effort: a storage hiccup must not reject the join.
func (s *roomService) persistIdentity(username, nickname string) {
	ctx, cancel := sinkContext()
	defer cancel()
	if _, err := s.players.GetOrCreate(ctx, username); err != nil {
		s.logger.Error("failed to persist player", slog.String("username", username), slog.Any("error", err))
		return
	}
	if err := s.players.UpdateNickname(ctx, username, nickname); err != nil {
		s.logger.Error("failed to persist nickname", slog.String("username", username), slog.Any("error", err))
	}
}

func (s *roomService) Leave(tournamentID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[tournamentID]
	if !ok {
		return
	}
	// Once the bracket is built it holds its own copy of the roster, so a
	// departing connection only affects the lobby view.
	delete(r.players, username)
	delete(r.spectators, username)
}

func (s *roomService) SpecialConnection(tournamentID, privateID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[tournamentID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRoomNotFound, tournamentID)
	}
	for _, id := range r.specials {
		if id.Private == privateID {
			return id.Public, nil
		}
	}
	return "", fmt.Errorf("%w: unknown special id for tournament %q", ErrUnauthorized, tournamentID)
}

func (s *roomService) AbortRoom(ctx context.Context, tournamentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[tournamentID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, tournamentID)
	}
	s.abortLocked(ctx, r)
	return nil
}

func (s *roomService) abortLocked(ctx context.Context, r *room) {
	if r.status.Terminal() {
		return
	}
	r.status = models.RoomStatusAborted
	if r.tournament != nil {
		for _, m := range r.tournament.Tree.Matches() {
			if m.GameID == "" || m.Status.Terminal() {
				continue
			}
			if err := s.games.AbortGame(ctx, m.GameID); err != nil {
				s.logger.Error("failed to abort tournament game",
					slog.String("tournament_id", r.id),
					slog.String("game_id", m.GameID),
					slog.Any("error", err))
			}
		}
	}
	s.hub.BroadcastToRoom(r.id, map[string]interface{}{"type": "tournament_aborted"})
	s.logger.Info("tournament aborted", slog.String("tournament_id", r.id))
}

func (s *roomService) RemoveRoom(ctx context.Context, tournamentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[tournamentID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, tournamentID)
	}
	s.abortLocked(ctx, r)
	delete(s.rooms, tournamentID)

	// A removed tournament also disappears from the archive.
	if s.uploader != nil {
		if err := s.uploader.Delete(ctx, archiveKey(tournamentID)); err != nil {
			s.logger.Error("failed to remove tournament archive",
				slog.String("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *roomService) Snapshot(tournamentID string) (*RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[tournamentID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, tournamentID)
	}
	return s.snapshotLocked(r), nil
}

// maybeStartLocked transitions the room to startup and builds the bracket
// once the admin is attached and every expected player is connected.
func (s *roomService) maybeStartLocked(r *room) {
	if r.status != models.RoomStatusWaiting || r.adminConn == nil || len(r.players) != len(r.expected) {
		return
	}

	roster := make(map[string]brackets.RosterEntry, len(r.players))
	for username, entry := range r.players {
		roster[username] = entry
	}
	t, err := brackets.NewTournament(roster, r.mode, r.modifiers, s.cooldown)
	if err != nil {
		// Roster size was validated at creation, so this is a mode
		// configuration bug rather than user error.
		s.logger.Error("bracket build failed", slog.String("tournament_id", r.id), slog.Any("error", err))
		r.status = models.RoomStatusAborted
		s.hub.BroadcastToRoom(r.id, map[string]interface{}{"type": "tournament_aborted"})
		return
	}
	r.tournament = t
	r.status = models.RoomStatusStartup
	s.hub.BroadcastToRoom(r.id, map[string]interface{}{
		"type":  "tournament_started",
		"tree":  t.Tree.Export(),
		"teams": exportTeams(t),
	})
	s.logger.Info("tournament started",
		slog.String("tournament_id", r.id),
		slog.Int("teams", len(t.Teams)),
		slog.Int("rounds", t.Tree.Rounds()))
}

func (s *roomService) snapshotLocked(r *room) *RoomSnapshot {
	snap := &RoomSnapshot{
		TournamentID:    r.id,
		ServiceName:     r.mode.ServiceName,
		Status:          r.status,
		GameMode:        r.mode.Name,
		Modifiers:       append([]string(nil), r.modifiers...),
		ExpectedPlayers: make([]string, 0, len(r.expected)),
		Players:         make([]string, 0, len(r.players)),
		Spectators:      make([]string, 0, len(r.spectators)),
		AdminAttached:   r.adminConn != nil,
	}
	for username := range r.expected {
		snap.ExpectedPlayers = append(snap.ExpectedPlayers, username)
	}
	for username := range r.players {
		snap.Players = append(snap.Players, username)
	}
	for username := range r.spectators {
		snap.Spectators = append(snap.Spectators, username)
	}
	if r.tournament != nil {
		snap.Bracket = r.tournament.Tree.Export()
		if winner := r.tournament.Tree.Winner(); winner != nil {
			export := winner.Export()
			snap.Winner = &export
		}
	}
	return snap
}

func exportTeams(t *brackets.Tournament) []brackets.TeamExport {
	exports := make([]brackets.TeamExport, 0, len(t.Teams))
	for _, team := range t.Teams {
		exports = append(exports, team.Export())
	}
	return exports
}
