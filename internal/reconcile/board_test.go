package reconcile

import (
	"testing"
	"time"

	"github.com/Nateight8/neolink-sub000/internal/rules"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

func snapWith(moves []roomdto.MoveInfo, position string, updatedAt time.Time) *roomdto.Snapshot {
	return &roomdto.Snapshot{
		RoomID:      "r1",
		Status:      "ongoing",
		Position:    position,
		MoveHistory: moves,
		UpdatedAt:   updatedAt,
	}
}

func TestOptimisticMoveShowsImmediately(t *testing.T) {
	b := NewBoard()

	res, err := b.SubmitOptimistic(rules.MoveIntent{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("SubmitOptimistic: %v", err)
	}
	if b.DisplayFEN() != res.FEN {
		t.Fatalf("display = %q, want predicted %q", b.DisplayFEN(), res.FEN)
	}
	if _, ok := b.PendingMove(); !ok {
		t.Fatal("no pending move recorded")
	}
}

func TestOptimisticMoveRejectsIllegal(t *testing.T) {
	b := NewBoard()

	if _, err := b.SubmitOptimistic(rules.MoveIntent{From: "e2", To: "e5"}); err == nil {
		t.Fatal("illegal move accepted locally")
	}
	if b.DisplayFEN() != rules.InitialFEN {
		t.Fatal("display changed on rejected move")
	}
}

func TestSnapshotConfirmsPrediction(t *testing.T) {
	b := NewBoard()
	res, err := b.SubmitOptimistic(rules.MoveIntent{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("SubmitOptimistic: %v", err)
	}

	held := b.ApplySnapshot(snapWith(
		[]roomdto.MoveInfo{{From: "e2", To: "e4", UCI: "e2e4", SAN: "e4"}},
		res.FEN, time.Now()))
	if !held {
		t.Fatal("matching prediction reported as rollback")
	}
	if b.DisplayFEN() != res.FEN {
		t.Fatalf("display = %q, want confirmed %q", b.DisplayFEN(), res.FEN)
	}
	if _, ok := b.PendingMove(); ok {
		t.Fatal("pending move survived confirmation")
	}
}

func TestSnapshotOverridesDivergentPrediction(t *testing.T) {
	b := NewBoard()
	if _, err := b.SubmitOptimistic(rules.MoveIntent{From: "e2", To: "e4"}); err != nil {
		t.Fatalf("SubmitOptimistic: %v", err)
	}

	// Server committed a different move; confirmed state wins.
	serverRes, err := rules.ApplyMove(rules.InitialFEN, rules.MoveIntent{From: "d2", To: "d4"})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	held := b.ApplySnapshot(snapWith(
		[]roomdto.MoveInfo{{From: "d2", To: "d4", UCI: "d2d4", SAN: "d4"}},
		serverRes.FEN, time.Now()))
	if held {
		t.Fatal("divergent prediction reported as held")
	}
	if b.DisplayFEN() != serverRes.FEN {
		t.Fatalf("display = %q, want server %q", b.DisplayFEN(), serverRes.FEN)
	}
}

func TestRepeatedMoveEarlierInHistoryDoesNotConfirmPrediction(t *testing.T) {
	b := NewBoard()

	// Knights shuffle out and back; g1f3 is already in the history when the
	// client predicts it a second time.
	shuffle := []rules.MoveIntent{
		{From: "g1", To: "f3"},
		{From: "g8", To: "f6"},
		{From: "f3", To: "g1"},
		{From: "f6", To: "g8"},
	}
	fen, err := rules.Replay(shuffle)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	history := []roomdto.MoveInfo{
		{UCI: "g1f3"}, {UCI: "g8f6"}, {UCI: "f3g1"}, {UCI: "f6g8"},
	}
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.ApplySnapshot(snapWith(history, fen, t0))

	if _, err := b.SubmitOptimistic(rules.MoveIntent{From: "g1", To: "f3"}); err != nil {
		t.Fatalf("SubmitOptimistic: %v", err)
	}

	// The server committed e2e4 at that ply instead.
	serverFEN, err := rules.Replay(append(shuffle, rules.MoveIntent{From: "e2", To: "e4"}))
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	held := b.ApplySnapshot(snapWith(
		append(history, roomdto.MoveInfo{UCI: "e2e4"}),
		serverFEN, t0.Add(time.Second)))
	if held {
		t.Fatal("rolled-back prediction reported as held because the move appeared earlier in the game")
	}
	if b.DisplayFEN() != serverFEN {
		t.Fatalf("display = %q, want server %q", b.DisplayFEN(), serverFEN)
	}
}

func TestStaleSnapshotIsIgnored(t *testing.T) {
	b := NewBoard()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := snapWith([]roomdto.MoveInfo{
		{UCI: "e2e4"}, {UCI: "e7e5"},
	}, "pos-after-2", t0.Add(2*time.Second))
	stale := snapWith([]roomdto.MoveInfo{
		{UCI: "e2e4"},
	}, "pos-after-1", t0.Add(time.Second))

	b.ApplySnapshot(fresh)
	b.ApplySnapshot(stale)

	if got := b.Confirmed(); got.Position != "pos-after-2" {
		t.Fatalf("confirmed position = %q, stale snapshot won", got.Position)
	}
}

func TestEqualLengthUsesUpdatedAtTiebreak(t *testing.T) {
	b := NewBoard()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ongoing := snapWith(nil, rules.InitialFEN, t0)
	finished := snapWith(nil, rules.InitialFEN, t0.Add(time.Second))
	finished.Status = "finished"
	finished.Result = &roomdto.ResultInfo{Status: "draw"}

	b.ApplySnapshot(finished)
	b.ApplySnapshot(ongoing)

	if got := b.Confirmed(); got.Status != "finished" {
		t.Fatalf("status = %q, older snapshot won the tiebreak", got.Status)
	}
}

func TestClockRemainingInterpolatesSideToMove(t *testing.T) {
	b := NewBoard()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := snapWith(nil, rules.InitialFEN, t0)
	snap.Clocks = roomdto.ClockInfo{WhiteMs: 60_000, BlackMs: 60_000, LastCommitAt: t0}
	b.ApplySnapshot(snap)

	now := t0.Add(10 * time.Second)
	if got := b.ClockRemaining(rules.White, now); got != 50*time.Second {
		t.Fatalf("white = %v, want 50s", got)
	}
	if got := b.ClockRemaining(rules.Black, now); got != 60*time.Second {
		t.Fatalf("black = %v, want 60s", got)
	}
}
