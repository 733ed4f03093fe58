package rules

import (
	"errors"
	"testing"
)

func TestApplyMoveBasic(t *testing.T) {
	res, err := ApplyMove(InitialFEN, MoveIntent{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if res.SAN != "e4" {
		t.Fatalf("unexpected SAN: %q", res.SAN)
	}
	if res.Terminal != TerminalNone {
		t.Fatalf("unexpected terminal: %q", res.Terminal)
	}
	side, err := SideToMove(res.FEN)
	if err != nil {
		t.Fatalf("SideToMove: %v", err)
	}
	if side != Black {
		t.Fatalf("expected black to move, got %s", side)
	}
}

func TestApplyMoveIllegal(t *testing.T) {
	_, err := ApplyMove(InitialFEN, MoveIntent{From: "e2", To: "e5"})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	_, err = ApplyMove(InitialFEN, MoveIntent{})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove for empty intent, got %v", err)
	}
}

func TestApplyMoveCapture(t *testing.T) {
	moves := []MoveIntent{
		{From: "e2", To: "e4"},
		{From: "d7", To: "d5"},
	}
	fen, err := Replay(moves)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	res, err := ApplyMove(fen, MoveIntent{From: "e4", To: "d5"})
	if err != nil {
		t.Fatalf("ApplyMove capture: %v", err)
	}
	if res.Captured != "p" {
		t.Fatalf("expected captured pawn, got %q", res.Captured)
	}
}

func TestReplayReproducesPosition(t *testing.T) {
	moves := []MoveIntent{
		{From: "e2", To: "e4"},
		{From: "e7", To: "e5"},
		{From: "g1", To: "f3"},
		{From: "b8", To: "c6"},
	}
	fen := InitialFEN
	for _, mv := range moves {
		res, err := ApplyMove(fen, mv)
		if err != nil {
			t.Fatalf("ApplyMove %s: %v", mv.UCI(), err)
		}
		fen = res.FEN
	}
	replayed, err := Replay(moves)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if replayed != fen {
		t.Fatalf("replay mismatch:\n step-by-step %s\n replay       %s", fen, replayed)
	}
}

func TestCheckmateDetection(t *testing.T) {
	// fool's mate
	moves := []MoveIntent{
		{From: "f2", To: "f3"},
		{From: "e7", To: "e5"},
		{From: "g2", To: "g4"},
	}
	fen, err := Replay(moves)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	res, err := ApplyMove(fen, MoveIntent{From: "d8", To: "h4"})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if res.Terminal != TerminalCheckmate {
		t.Fatalf("expected checkmate, got %q", res.Terminal)
	}
}

func TestLegalMovesInitial(t *testing.T) {
	intents, err := LegalMoves(InitialFEN)
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if len(intents) != 20 {
		t.Fatalf("expected 20 legal moves from the start, got %d", len(intents))
	}
}

func TestRandomLegalMoveIsLegal(t *testing.T) {
	for i := 0; i < 10; i++ {
		intent, err := RandomLegalMove(InitialFEN)
		if err != nil {
			t.Fatalf("RandomLegalMove: %v", err)
		}
		if _, err := ApplyMove(InitialFEN, intent); err != nil {
			t.Fatalf("fallback produced illegal move %s: %v", intent.UCI(), err)
		}
	}
}

func TestPromotionIntent(t *testing.T) {
	intent, err := IntentFromUCI("e7e8q")
	if err != nil {
		t.Fatalf("IntentFromUCI: %v", err)
	}
	if intent.Promotion != "q" || intent.UCI() != "e7e8q" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if _, err := IntentFromUCI("nonsense"); err == nil {
		t.Fatalf("expected error for malformed uci")
	}
}
