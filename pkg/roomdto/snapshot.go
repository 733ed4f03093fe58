package roomdto

import "time"

// PlayerInfo is one occupied seat in a room.
type PlayerInfo struct {
	Identity string `json:"identity"`
	Color    string `json:"color"`
	Bot      bool   `json:"bot,omitempty"`
}

// ClockInfo carries authoritative remaining time per color. Values are the
// amounts committed at the last move; clients interpolate display time locally.
type ClockInfo struct {
	WhiteMs      int64     `json:"white_ms"`
	BlackMs      int64     `json:"black_ms"`
	LastCommitAt time.Time `json:"last_commit_at"`
}

type TimeControlInfo struct {
	BaseSeconds      int `json:"base_seconds"`
	IncrementSeconds int `json:"increment_seconds"`
}

type MoveInfo struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	SAN         string    `json:"san"`
	UCI         string    `json:"uci"`
	Color       string    `json:"color"`
	CommittedAt time.Time `json:"committed_at"`
}

type ResultInfo struct {
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

// Snapshot is the full authoritative room state. Every broadcast carries a
// complete snapshot, never an incremental delta, so delivery order does not
// matter beyond "latest wins".
type Snapshot struct {
	RoomID      string          `json:"room_id"`
	Status      string          `json:"status"`
	Players     []PlayerInfo    `json:"players"`
	Spectators  []string        `json:"spectators,omitempty"`
	Position    string          `json:"position"`
	MoveHistory []MoveInfo      `json:"move_history"`
	Clocks      ClockInfo       `json:"clocks"`
	TimeControl TimeControlInfo `json:"time_control"`
	Result      *ResultInfo     `json:"result,omitempty"`
	Rated       bool            `json:"rated"`
	DrawOfferBy string          `json:"draw_offer_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Envelope is the websocket frame shape: a snapshot event or a submitter-only
// rejection.
type Envelope struct {
	Type     string       `json:"type"`
	Snapshot *Snapshot    `json:"snapshot,omitempty"`
	Error    *DomainError `json:"error,omitempty"`
}

const (
	EnvelopeSnapshot = "snapshot"
	EnvelopeError    = "error"
)
