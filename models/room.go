package models

// RoomStatus is the lifecycle of a tournament room. aborted and finished
// are terminal; a terminal room is eligible for explicit removal.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusStartup  RoomStatus = "startup"
	RoomStatusLoading  RoomStatus = "loading"
	RoomStatusRunning  RoomStatus = "running"
	RoomStatusFinished RoomStatus = "finished"
	RoomStatusAborted  RoomStatus = "aborted"
)

func (s RoomStatus) Terminal() bool {
	return s == RoomStatusFinished || s == RoomStatusAborted
}
