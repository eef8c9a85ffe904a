package handlers

import (
	"log"
	"net/http"

	"github.com/Dosada05/game-orchestrator/brackets"
	"github.com/Dosada05/game-orchestrator/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Connections come through the gateway, which already pins Origin.
		return true
	},
}

type WebSocketHandler struct {
	hub   *brackets.Hub
	rooms services.RoomService
}

func NewWebSocketHandler(hub *brackets.Hub, rooms services.RoomService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, rooms: rooms}
}

// ServeRoom handles GET /ws/tournaments/{tournamentID}: a player or
// spectator joining a room. Identity arrives as query parameters because it
// was already authenticated upstream.
func (h *WebSocketHandler) ServeRoom(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")
	username := r.URL.Query().Get("username")
	nickname := r.URL.Query().Get("nickname")
	if tournamentID == "" || username == "" {
		http.Error(w, "missing tournamentID or username", http.StatusBadRequest)
		return
	}
	if nickname == "" {
		nickname = username
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection for tournament %s: %v", tournamentID, err)
		return
	}

	client := &brackets.Client{
		Hub:      h.hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Room:     tournamentID,
		Username: username,
		Role:     brackets.RolePlayer,
	}
	client.OnClose = func() {
		h.rooms.Leave(tournamentID, username)
	}

	spectator, err := h.rooms.JoinUser(tournamentID, username, nickname, client)
	if err != nil {
		log.Printf("join rejected for %s in tournament %s: %v", username, tournamentID, err)
		conn.Close()
		return
	}
	if spectator {
		client.Role = brackets.RoleSpectator
	}

	h.hub.Register <- client
	go client.WritePump()
	go client.ReadPump()
}

// ServeAdmin handles GET /ws/tournaments/{tournamentID}/admin/{adminID}:
// the control connection that gates the room open.
func (h *WebSocketHandler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")
	adminID := chi.URLParam(r, "adminID")
	if tournamentID == "" || adminID == "" {
		http.Error(w, "missing tournamentID or adminID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade admin connection for tournament %s: %v", tournamentID, err)
		return
	}

	client := &brackets.Client{
		Hub:      h.hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Room:     tournamentID,
		Username: adminID,
		Role:     brackets.RoleAdmin,
	}

	if err := h.rooms.AttachAdmin(tournamentID, adminID, client); err != nil {
		log.Printf("admin attach rejected for tournament %s: %v", tournamentID, err)
		conn.Close()
		return
	}

	h.hub.Register <- client
	go client.WritePump()
	go client.ReadPump()
}
