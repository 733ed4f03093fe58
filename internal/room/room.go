package room

import (
	"sort"
	"strings"
	"time"

	"github.com/Nateight8/neolink-sub000/internal/clock"
	"github.com/Nateight8/neolink-sub000/internal/rules"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

// Status is the room lifecycle state. Transitions: waiting → ongoing →
// finished, plus waiting → aborted. Nothing else.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
	StatusAborted  Status = "aborted"
)

func (s Status) Terminal() bool { return s == StatusFinished || s == StatusAborted }

// ResultStatus classifies how a room ended.
type ResultStatus string

const (
	ResultCheckmate   ResultStatus = "checkmate"
	ResultStalemate   ResultStatus = "stalemate"
	ResultDraw        ResultStatus = "draw"
	ResultResignation ResultStatus = "resignation"
	ResultTimeForfeit ResultStatus = "time_forfeit"
	ResultAbort       ResultStatus = "abort"
)

// Result is set exactly once, when the room leaves ongoing (or waiting, for
// aborts). Winner is empty for draws, stalemates and aborts.
type Result struct {
	Status ResultStatus `json:"status"`
	Winner string       `json:"winner,omitempty"`
}

// Player is one occupied seat.
type Player struct {
	Identity string      `json:"identity"`
	Color    rules.Color `json:"color"`
	Bot      bool        `json:"bot,omitempty"`
}

// BotSeat marks one color as automated.
type BotSeat struct {
	Color      rules.Color `json:"color"`
	Difficulty int         `json:"difficulty"`
}

// MoveRecord is one committed half-move.
type MoveRecord struct {
	From        string      `json:"from"`
	To          string      `json:"to"`
	Promotion   string      `json:"promotion,omitempty"`
	SAN         string      `json:"san"`
	UCI         string      `json:"uci"`
	Color       rules.Color `json:"color"`
	Captured    string      `json:"captured,omitempty"`
	CommittedAt time.Time   `json:"committed_at"`
}

// Room is the authoritative state of one game. All mutation goes through the
// Store, serialized per room.
type Room struct {
	ID          string              `json:"id"`
	Status      Status              `json:"status"`
	Creator     string              `json:"creator"`
	Players     []Player            `json:"players"`
	Spectators  map[string]struct{} `json:"spectators,omitempty"`
	Position    string              `json:"position"`
	MoveHistory []MoveRecord        `json:"move_history"`
	Clocks      clock.State         `json:"clocks"`
	TimeControl clock.TimeControl   `json:"time_control"`
	Result      *Result             `json:"result,omitempty"`
	BotSeat     *BotSeat            `json:"bot_seat,omitempty"`
	Rated       bool                `json:"rated"`
	DrawOfferBy string              `json:"draw_offer_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (r *Room) PlayerByIdentity(identity string) (Player, bool) {
	for _, p := range r.Players {
		if p.Identity == identity {
			return p, true
		}
	}
	return Player{}, false
}

func (r *Room) PlayerByColor(color rules.Color) (Player, bool) {
	for _, p := range r.Players {
		if p.Color == color {
			return p, true
		}
	}
	return Player{}, false
}

// SideToMove derives the color on turn from the position string.
func (r *Room) SideToMove() (rules.Color, error) {
	return rules.SideToMove(r.Position)
}

// HistoryUCI flattens the move history into long-algebraic strings, the shape
// the engine and the replay check consume.
func (r *Room) HistoryUCI() []string {
	out := make([]string, 0, len(r.MoveHistory))
	for _, mv := range r.MoveHistory {
		out = append(out, mv.UCI)
	}
	return out
}

// HistoryIntents rebuilds the intents for replay verification.
func (r *Room) HistoryIntents() []rules.MoveIntent {
	out := make([]rules.MoveIntent, 0, len(r.MoveHistory))
	for _, mv := range r.MoveHistory {
		out = append(out, rules.MoveIntent{From: mv.From, To: mv.To, Promotion: mv.Promotion})
	}
	return out
}

// Clone returns a deep copy safe to hand outside the store lock.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Players = append([]Player(nil), r.Players...)
	cp.MoveHistory = append([]MoveRecord(nil), r.MoveHistory...)
	if r.Spectators != nil {
		cp.Spectators = make(map[string]struct{}, len(r.Spectators))
		for k := range r.Spectators {
			cp.Spectators[k] = struct{}{}
		}
	}
	if r.Result != nil {
		res := *r.Result
		cp.Result = &res
	}
	if r.BotSeat != nil {
		seat := *r.BotSeat
		cp.BotSeat = &seat
	}
	return &cp
}

// Snapshot renders the full authoritative state for broadcast.
func (r *Room) Snapshot() *roomdto.Snapshot {
	snap := &roomdto.Snapshot{
		RoomID:   r.ID,
		Status:   string(r.Status),
		Position: r.Position,
		Clocks: roomdto.ClockInfo{
			WhiteMs:      r.Clocks.White.Milliseconds(),
			BlackMs:      r.Clocks.Black.Milliseconds(),
			LastCommitAt: r.Clocks.LastCommitAt,
		},
		TimeControl: roomdto.TimeControlInfo{
			BaseSeconds:      r.TimeControl.BaseSeconds,
			IncrementSeconds: r.TimeControl.IncrementSeconds,
		},
		Rated:       r.Rated,
		DrawOfferBy: r.DrawOfferBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, p := range r.Players {
		snap.Players = append(snap.Players, roomdto.PlayerInfo{
			Identity: p.Identity,
			Color:    string(p.Color),
			Bot:      p.Bot,
		})
	}
	for s := range r.Spectators {
		snap.Spectators = append(snap.Spectators, s)
	}
	sort.Strings(snap.Spectators)
	snap.MoveHistory = make([]roomdto.MoveInfo, 0, len(r.MoveHistory))
	for _, mv := range r.MoveHistory {
		snap.MoveHistory = append(snap.MoveHistory, roomdto.MoveInfo{
			From:        mv.From,
			To:          mv.To,
			SAN:         mv.SAN,
			UCI:         mv.UCI,
			Color:       string(mv.Color),
			CommittedAt: mv.CommittedAt,
		})
	}
	if r.Result != nil {
		snap.Result = &roomdto.ResultInfo{Status: string(r.Result.Status), Winner: r.Result.Winner}
	}
	return snap
}

// BotIdentity is the synthetic identity occupying a bot seat. It goes through
// the same role and turn checks as a human player.
func BotIdentity(roomID string) string { return "bot:" + strings.TrimSpace(roomID) }
