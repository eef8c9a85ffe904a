package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/game-orchestrator/models"
	"github.com/gorilla/websocket"
)

// Sink receives the effects of inbound engine events. The game service
// implements it; every method runs under the service's own locking, so a
// relay goroutine never touches shared state directly.
type Sink interface {
	GameStatusReported(gameID string, status models.GameStatus)
	GameFinishedReported(gameID string, winnerTeam string, score int)
	TeamsExported(gameID string, teams map[string][]string)
	ScoreUpdated(gameID string, team string, score int)
	PlayerConnected(gameID, username string)
	SpectatorConnected(gameID, username string)
	PlayerDisconnected(gameID, username string)
	SpectatorDisconnected(gameID, username string)
	// Closed fires exactly once per bridge, on connect failure or when the
	// connection drops for any reason. It is the sole path by which a dead
	// engine connection becomes visible to the rest of the system.
	Closed(gameID string)
}

// Manager owns one relay goroutine per active external game. Each relay
// holds a single inbound websocket connection for the lifetime of the game.
type Manager struct {
	sink   Sink
	dialer *websocket.Dialer
	logger *slog.Logger

	mu     sync.Mutex
	relays map[string]*relay
}

type relay struct {
	gameID string
	conn   *websocket.Conn
	done   chan struct{}
}

func NewManager(sink Sink, logger *slog.Logger) *Manager {
	return &Manager{
		sink: sink,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
		relays: make(map[string]*relay),
	}
}

// Connect starts the relay for one game. The engine serves the admin stream
// at <wsBase>/<gameID>/<adminID>/.
func (m *Manager) Connect(ctx context.Context, gameID, adminID, wsBase string) {
	url := fmt.Sprintf("%s/%s/%s/", wsBase, gameID, adminID)
	r := &relay{gameID: gameID, done: make(chan struct{})}

	m.mu.Lock()
	m.relays[gameID] = r
	m.mu.Unlock()

	go m.run(ctx, r, url)
}

func (m *Manager) run(ctx context.Context, r *relay, url string) {
	defer func() {
		m.mu.Lock()
		delete(m.relays, r.gameID)
		m.mu.Unlock()
		close(r.done)
		m.sink.Closed(r.gameID)
	}()

	conn, resp, err := m.dialer.DialContext(ctx, url, nil)
	if err != nil {
		m.logger.Error("bridge dial failed",
			slog.String("game_id", r.gameID), slog.String("url", url), slog.Any("error", err))
		return
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	r.conn = conn
	m.mu.Unlock()
	defer conn.Close()

	m.logger.Debug("bridge connected", slog.String("game_id", r.gameID), slog.String("url", url))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Error("bridge closed with error",
					slog.String("game_id", r.gameID), slog.Any("error", err))
			}
			return
		}
		m.handleMessage(r.gameID, data)
	}
}

// handleMessage translates one inbound engine event into sink calls.
// Malformed payloads are logged and ignored; they must never take the relay
// down.
func (m *Manager) handleMessage(gameID string, data []byte) {
	ev, err := decodeEvent(data)
	if err != nil {
		m.logger.Warn("bridge dropped undecodable message",
			slog.String("game_id", gameID), slog.Any("error", err))
		return
	}

	switch ev.Type {
	case EventExportStatus:
		status := models.GameStatus(ev.Status)
		if !status.Valid() {
			m.logger.Warn("bridge dropped unknown game status",
				slog.String("game_id", gameID), slog.String("status", ev.Status))
			return
		}
		if status == models.GameStatusFinished {
			m.sink.GameFinishedReported(gameID, ev.Team, ev.Score)
		}
		m.sink.GameStatusReported(gameID, status)
	case EventExportTeams:
		m.sink.TeamsExported(gameID, ev.Teams)
	case EventUpdateScore:
		m.sink.ScoreUpdated(gameID, ev.Team, ev.Score)
	case EventPlayerConnection:
		m.sink.PlayerConnected(gameID, ev.Username)
	case EventSpectatorConnection:
		m.sink.SpectatorConnected(gameID, ev.Username)
	case EventPlayerDisconnection:
		m.sink.PlayerDisconnected(gameID, ev.Username)
	case EventSpectatorDisconnection:
		m.sink.SpectatorDisconnected(gameID, ev.Username)
	default:
		m.logger.Warn("bridge dropped message with unknown type",
			slog.String("game_id", gameID), slog.String("type", ev.Type))
	}
}

// Close tears down the relay for one game, if any.
func (m *Manager) Close(gameID string) {
	m.mu.Lock()
	var conn *websocket.Conn
	if r, ok := m.relays[gameID]; ok {
		conn = r.conn
	}
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// CloseAll signals every open relay to close and waits up to grace for them
// to drain. A relay that does not close in time is treated as already
// aborted for bookkeeping.
func (m *Manager) CloseAll(grace time.Duration) {
	m.mu.Lock()
	open := make([]*relay, 0, len(m.relays))
	for _, r := range m.relays {
		open = append(open, r)
		if r.conn != nil {
			r.conn.Close()
		}
	}
	m.mu.Unlock()

	deadline := time.After(grace)
	for _, r := range open {
		select {
		case <-r.done:
		case <-deadline:
			m.logger.Warn("bridge did not close within grace period", slog.String("game_id", r.gameID))
			return
		}
	}
}
