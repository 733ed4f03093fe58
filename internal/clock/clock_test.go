package clock

import (
	"testing"
	"time"

	"github.com/Nateight8/neolink-sub000/internal/rules"
)

var tc = TimeControl{BaseSeconds: 180, IncrementSeconds: 2}

func TestCommitChargesMoverAndAppliesIncrement(t *testing.T) {
	start := time.Now()
	st := NewState(tc, start)

	moveAt := start.Add(10 * time.Second)
	st = Commit(st, rules.White, moveAt, tc)

	want := 180*time.Second - 10*time.Second + 2*time.Second
	if st.White != want {
		t.Fatalf("white clock: got %v want %v", st.White, want)
	}
	if st.Black != 180*time.Second {
		t.Fatalf("black clock should be untouched, got %v", st.Black)
	}
	if !st.LastCommitAt.Equal(moveAt) {
		t.Fatalf("commit window not re-stamped")
	}
}

func TestCommitClampsAtZeroWithoutIncrement(t *testing.T) {
	start := time.Now()
	st := NewState(tc, start)

	st = Commit(st, rules.White, start.Add(500*time.Second), tc)
	if st.White != 0 {
		t.Fatalf("expected clamped zero clock, got %v", st.White)
	}
}

func TestRemainingAtInterpolatesOnlyForSideToMove(t *testing.T) {
	start := time.Now()
	st := NewState(tc, start)
	now := start.Add(30 * time.Second)

	if got := st.RemainingAt(rules.White, rules.White, now); got != 150*time.Second {
		t.Fatalf("side to move display: got %v", got)
	}
	if got := st.RemainingAt(rules.Black, rules.White, now); got != 180*time.Second {
		t.Fatalf("waiting side display: got %v", got)
	}
}

func TestExpired(t *testing.T) {
	start := time.Now()
	st := NewState(TimeControl{BaseSeconds: 1}, start)

	if st.Expired(rules.White, start.Add(500*time.Millisecond)) {
		t.Fatalf("clock should not be expired yet")
	}
	if !st.Expired(rules.White, start.Add(2*time.Second)) {
		t.Fatalf("clock should be expired")
	}
	// committed zero stays expired regardless of the open window
	st.White = 0
	if !st.Expired(rules.White, start) {
		t.Fatalf("zero committed clock must be expired")
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	start := time.Now()
	st := NewState(tc, start)
	st = Commit(st, rules.White, start.Add(10*time.Minute), tc)
	st = Commit(st, rules.Black, start.Add(20*time.Minute), tc)
	if st.White < 0 || st.Black < 0 {
		t.Fatalf("negative clock: %+v", st)
	}
}
