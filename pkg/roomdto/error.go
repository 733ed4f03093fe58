package roomdto

// Rejection codes delivered only to the submitting caller.
const (
	CodeInvalidMove  = "INVALID_MOVE"
	CodeNotYourTurn  = "NOT_YOUR_TURN"
	CodeNotAPlayer   = "NOT_A_PLAYER"
	CodeRoomNotFound = "ROOM_NOT_FOUND"
	CodeRoomFull     = "ROOM_FULL"
	CodeRoomFinished = "ROOM_FINISHED"
	CodeRoomNotReady = "ROOM_NOT_READY"
	CodeNotCreator   = "NOT_CREATOR"
	CodeTimeForfeit  = "TIME_FORFEIT"
	CodeBadRequest   = "BAD_REQUEST"
)

type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "room engine error"
}
