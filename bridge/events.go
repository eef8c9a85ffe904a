package bridge

import "encoding/json"

// Event is one inbound message from the game engine. The type discriminator
// selects which of the remaining fields are meaningful; unknown types and
// undecodable bodies are dropped without touching any state.
type Event struct {
	Type     string              `json:"type"`
	Status   string              `json:"status,omitempty"`
	Team     string              `json:"team,omitempty"`
	Score    int                 `json:"score,omitempty"`
	Teams    map[string][]string `json:"teams,omitempty"`
	Username string              `json:"username,omitempty"`
}

const (
	EventExportStatus           = "export_status"
	EventExportTeams            = "export_teams"
	EventUpdateScore            = "update_score"
	EventPlayerConnection       = "player_connection"
	EventSpectatorConnection    = "spectator_connection"
	EventPlayerDisconnection    = "player_disconnection"
	EventSpectatorDisconnection = "spectator_disconnection"
)

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
