package handlers

import (
	"net/http"

	"github.com/Dosada05/game-orchestrator/models"
	"github.com/Dosada05/game-orchestrator/services"
	"github.com/go-chi/chi/v5"
)

type TournamentHandler struct {
	rooms services.RoomService
}

func NewTournamentHandler(rooms services.RoomService) *TournamentHandler {
	return &TournamentHandler{rooms: rooms}
}

// CreateTournament handles POST /tournaments.
func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TournamentID string             `json:"tournamentId"`
		AdminID      string             `json:"adminId"`
		GameMode     string             `json:"gameMode"`
		Modifiers    string             `json:"modifiers"`
		PlayersList  []string           `json:"playersList"`
		SpecialIDs   []models.SpecialID `json:"specialIds"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.TournamentID == "" || input.AdminID == "" {
		errorResponse(w, http.StatusBadRequest, "tournamentId and adminId are required")
		return
	}

	snap, err := h.rooms.CreateRoom(services.CreateRoomInput{
		TournamentID:    input.TournamentID,
		AdminID:         input.AdminID,
		GameMode:        input.GameMode,
		Modifiers:       input.Modifiers,
		ExpectedPlayers: input.PlayersList,
		SpecialIDs:      input.SpecialIDs,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{
		"tournamentId": snap.TournamentID,
		"serviceName":  snap.ServiceName,
	}); err != nil {
		serverErrorResponse(w, err)
	}
}

// GetTournament handles GET /tournaments/{tournamentID}.
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	snap, err := h.rooms.Snapshot(chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, snap); err != nil {
		serverErrorResponse(w, err)
	}
}

// DeleteTournament handles DELETE /tournaments/{tournamentID}.
func (h *TournamentHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.RemoveRoom(r.Context(), chi.URLParam(r, "tournamentID")); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AbortTournament handles POST /tournaments/{tournamentID}/abort.
func (h *TournamentHandler) AbortTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.AbortRoom(r.Context(), chi.URLParam(r, "tournamentID")); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SpecialConnection handles POST /tournaments/{tournamentID}/special,
// resolving a private AI id to its public roster id.
func (h *TournamentHandler) SpecialConnection(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PrivateID string `json:"privateId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	publicID, err := h.rooms.SpecialConnection(chi.URLParam(r, "tournamentID"), input.PrivateID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"publicId": publicID}); err != nil {
		serverErrorResponse(w, err)
	}
}
