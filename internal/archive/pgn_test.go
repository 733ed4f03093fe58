package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/Nateight8/neolink-sub000/internal/clock"
	"github.com/Nateight8/neolink-sub000/internal/room"
	"github.com/Nateight8/neolink-sub000/internal/rules"
)

func finishedRoom() *room.Room {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &room.Room{
		ID:     "r1",
		Status: room.StatusFinished,
		Players: []room.Player{
			{Identity: "alice", Color: rules.White},
			{Identity: "bob", Color: rules.Black},
		},
		MoveHistory: []room.MoveRecord{
			{SAN: "f3", UCI: "f2f3", Color: rules.White},
			{SAN: "e5", UCI: "e7e5", Color: rules.Black},
			{SAN: "g4", UCI: "g2g4", Color: rules.White},
			{SAN: "Qh4#", UCI: "d8h4", Color: rules.Black},
		},
		TimeControl: clock.TimeControl{BaseSeconds: 300, IncrementSeconds: 2},
		Result:      &room.Result{Status: room.ResultCheckmate, Winner: "bob"},
		CreatedAt:   now,
		UpdatedAt:   now.Add(2 * time.Minute),
	}
}

func TestBuildPGNFromHistory(t *testing.T) {
	rm := finishedRoom()
	pgn := buildPGN(rm, "alice", "bob", pgnResultFor(rm))

	for _, want := range []string{
		`[White "alice"]`,
		`[Black "bob"]`,
		`[TimeControl "300+2"]`,
		`[Termination "checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Errorf("PGN missing %q:\n%s", want, pgn)
		}
	}
}

func TestPGNResultMapping(t *testing.T) {
	rm := finishedRoom()

	rm.Result = &room.Result{Status: room.ResultCheckmate, Winner: "alice"}
	if got := pgnResultFor(rm); got != "1-0" {
		t.Errorf("white win = %q, want 1-0", got)
	}
	rm.Result = &room.Result{Status: room.ResultTimeForfeit, Winner: "bob"}
	if got := pgnResultFor(rm); got != "0-1" {
		t.Errorf("black win = %q, want 0-1", got)
	}
	rm.Result = &room.Result{Status: room.ResultDraw}
	if got := pgnResultFor(rm); got != "1/2-1/2" {
		t.Errorf("draw = %q, want 1/2-1/2", got)
	}
	rm.Result = &room.Result{Status: room.ResultAbort}
	if got := pgnResultFor(rm); got != "*" {
		t.Errorf("abort = %q, want *", got)
	}
}

func TestSanitizePGNEscapesQuotes(t *testing.T) {
	if got := sanitizePGN(`a"b\c`); got != "a'b c" {
		t.Errorf("sanitizePGN = %q", got)
	}
}
