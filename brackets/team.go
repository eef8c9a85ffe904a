package brackets

import "encoding/json"

// Team is an ordered set of players competing as one bracket entry. Its
// size is fixed by the game mode.
type Team struct {
	Name    string
	Players []*Player
	Status  string
}

func NewTeam(name string, players []*Player) *Team {
	return &Team{
		Name:    name,
		Players: players,
		Status:  "waiting",
	}
}

// Usernames returns the roster in bracket order.
func (t *Team) Usernames() []string {
	names := make([]string, len(t.Players))
	for i, p := range t.Players {
		names[i] = p.Username
	}
	return names
}

// Broadcast pushes a JSON payload to every connected member. Marshal or
// send failures drop the message for that member only.
func (t *Team) Broadcast(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, p := range t.Players {
		if p.Conn != nil {
			p.Conn.TrySend(data)
		}
	}
}

type TeamExport struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`
	Status  string   `json:"status"`
}

func (t *Team) Export() TeamExport {
	return TeamExport{
		Name:    t.Name,
		Players: t.Usernames(),
		Status:  t.Status,
	}
}
