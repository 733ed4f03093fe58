package room

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room already has two players")
	ErrRoomNotReady = errors.New("room is still waiting for an opponent")
	ErrRoomFinished = errors.New("room is finished")
	ErrNotAPlayer   = errors.New("caller is not a player in this room")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrInvalidMove  = errors.New("invalid move")
	ErrNotCreator   = errors.New("only the creator may abort a waiting room")
	// ErrTimeForfeit is raised internally when the side to move has no time
	// left; the room is finished before the error is returned.
	ErrTimeForfeit = errors.New("time forfeit")
)
