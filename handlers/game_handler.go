package handlers

import (
	"net/http"

	"github.com/Dosada05/game-orchestrator/services"
	"github.com/go-chi/chi/v5"
)

type GameHandler struct {
	games services.GameService
}

func NewGameHandler(games services.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// CreateGame handles POST /games.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var input struct {
		GameMode     string     `json:"gameMode"`
		Modifiers    string     `json:"modifiers"`
		PlayersList  []string   `json:"playersList"`
		TeamsList    [][]string `json:"teamsList"`
		IAAuthorized bool       `json:"iaAuthorized"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	result, err := h.games.CreateGame(r.Context(), services.CreateGameInput{
		GameMode:     input.GameMode,
		Modifiers:    input.Modifiers,
		Players:      input.PlayersList,
		Teams:        input.TeamsList,
		AIAuthorized: input.IAAuthorized,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result); err != nil {
		serverErrorResponse(w, err)
	}
}

// GetGame handles GET /games/{gameID}.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, game); err != nil {
		serverErrorResponse(w, err)
	}
}

// AbortGame handles POST /games/{gameID}/abort.
func (h *GameHandler) AbortGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if gameID == "" {
		errorResponse(w, http.StatusBadRequest, "missing gameID")
		return
	}

	if err := h.games.AbortGame(r.Context(), gameID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
