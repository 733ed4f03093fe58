// Package reconcile is the client-side half of the sync protocol: an
// optimistic local board that the server's full snapshots always win
// over, plus a REST/WebSocket client to drive it.
package reconcile

import (
	"sync"
	"time"

	"github.com/Nateight8/neolink-sub000/internal/clock"
	"github.com/Nateight8/neolink-sub000/internal/rules"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

// Board tracks the last confirmed server snapshot alongside at most one
// locally predicted move. Confirmation is by snapshot, never by ack:
// whatever the server broadcasts replaces local state wholesale.
type Board struct {
	mu        sync.Mutex
	confirmed *roomdto.Snapshot

	predictedFEN string
	pending      *rules.MoveIntent
	pendingPly   int // history index the prediction claims
}

func NewBoard() *Board { return &Board{} }

// SubmitOptimistic validates the move against the current display
// position and, when legal, shows it immediately. The caller still has
// to send the move to the server; the prediction lives until the next
// snapshot arrives.
func (b *Board) SubmitOptimistic(intent rules.MoveIntent) (rules.MoveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fen := b.displayFENLocked()
	res, err := rules.ApplyMove(fen, intent)
	if err != nil {
		return rules.MoveResult{}, err
	}
	b.predictedFEN = res.FEN
	b.pending = &intent
	b.pendingPly = 0
	if b.confirmed != nil {
		b.pendingPly = len(b.confirmed.MoveHistory)
	}
	return res, nil
}

// ApplySnapshot reconciles a server snapshot. Snapshots may arrive in
// any order; older ones (fewer committed moves) are dropped. The return
// value reports whether a pending prediction matched the confirmed
// history, for callers that want to flag a rollback to the user.
func (b *Board) ApplySnapshot(snap *roomdto.Snapshot) (predictionHeld bool) {
	if snap == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.confirmed != nil && staleSnapshot(b.confirmed, snap) {
		return true
	}

	held := true
	if b.pending != nil {
		held = moveAtPly(snap, b.pendingPly) == b.pending.UCI()
		b.pending = nil
		b.predictedFEN = ""
	}
	b.confirmed = snap
	return held
}

// DisplayFEN is the position to render: the prediction when one is in
// flight, the confirmed position otherwise.
func (b *Board) DisplayFEN() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.displayFENLocked()
}

func (b *Board) displayFENLocked() string {
	if b.pending != nil && b.predictedFEN != "" {
		return b.predictedFEN
	}
	if b.confirmed != nil {
		return b.confirmed.Position
	}
	return rules.InitialFEN
}

// Confirmed exposes the last server snapshot, nil before the first.
func (b *Board) Confirmed() *roomdto.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.confirmed
}

// PendingMove reports the in-flight prediction, if any.
func (b *Board) PendingMove() (rules.MoveIntent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return rules.MoveIntent{}, false
	}
	return *b.pending, true
}

// ClockRemaining interpolates the display clock for a color from the
// commit-stamped snapshot. Only the side to move runs down.
func (b *Board) ClockRemaining(color rules.Color, now time.Time) time.Duration {
	b.mu.Lock()
	snap := b.confirmed
	b.mu.Unlock()

	if snap == nil {
		return 0
	}
	st := clock.State{
		White:        time.Duration(snap.Clocks.WhiteMs) * time.Millisecond,
		Black:        time.Duration(snap.Clocks.BlackMs) * time.Millisecond,
		LastCommitAt: snap.Clocks.LastCommitAt,
	}
	sideToMove, err := rules.SideToMove(snap.Position)
	if err != nil || snap.Status != "ongoing" {
		return st.Remaining(color)
	}
	return st.RemainingAt(color, sideToMove, now)
}

// staleSnapshot reports whether candidate is older than current.
// Move count is the primary order; UpdatedAt breaks ties for
// move-free transitions like a draw agreement.
func staleSnapshot(current, candidate *roomdto.Snapshot) bool {
	if len(candidate.MoveHistory) != len(current.MoveHistory) {
		return len(candidate.MoveHistory) < len(current.MoveHistory)
	}
	return candidate.UpdatedAt.Before(current.UpdatedAt)
}

// moveAtPly returns the committed move at a history index. A prediction held
// only if the server committed the predicted move at the predicted ply; the
// same move appearing earlier in the game does not count.
func moveAtPly(snap *roomdto.Snapshot, ply int) string {
	if ply < 0 || ply >= len(snap.MoveHistory) {
		return ""
	}
	return snap.MoveHistory[ply].UCI
}
