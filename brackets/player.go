package brackets

// Sender is the connection handle attached to a live tournament player.
// The hub's Client implements it; the core never looks inside.
type Sender interface {
	TrySend(message []byte) bool
}

// Player is a member of a tournament roster. It is built from the room's
// connected-players map when the bracket starts; the persisted status row
// for the same username is owned by the repositories layer, not by this.
type Player struct {
	Username string
	Nickname string
	Conn     Sender
}

func NewPlayer(username, nickname string, conn Sender) *Player {
	return &Player{
		Username: username,
		Nickname: nickname,
		Conn:     conn,
	}
}
