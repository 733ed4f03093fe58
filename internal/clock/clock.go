// Package clock computes authoritative remaining time from wall-clock deltas
// captured at move commit. There is no server-side ticking: between commits the
// stored values do not change, and display countdown is a client concern.
package clock

import (
	"time"

	"github.com/Nateight8/neolink-sub000/internal/rules"
)

// TimeControl is base time per player plus a per-move increment. Immutable
// after room creation.
type TimeControl struct {
	BaseSeconds      int `json:"base_seconds"`
	IncrementSeconds int `json:"increment_seconds"`
}

func (tc TimeControl) Base() time.Duration {
	return time.Duration(tc.BaseSeconds) * time.Second
}

func (tc TimeControl) Increment() time.Duration {
	return time.Duration(tc.IncrementSeconds) * time.Second
}

// State holds the committed remaining time per color and the wall-clock moment
// of the last commit. The side on turn burns time against LastCommitAt.
type State struct {
	White        time.Duration `json:"white"`
	Black        time.Duration `json:"black"`
	LastCommitAt time.Time     `json:"last_commit_at"`
}

// NewState starts both clocks at the base time. The first commit window opens
// at start (room creation for bot games, second join otherwise).
func NewState(tc TimeControl, start time.Time) State {
	return State{White: tc.Base(), Black: tc.Base(), LastCommitAt: start}
}

// Remaining returns the committed value for color without interpolation.
func (s State) Remaining(color rules.Color) time.Duration {
	if color == rules.White {
		return s.White
	}
	return s.Black
}

// RemainingAt interpolates the display value for color at now: the side on
// turn is charged for the open window, the waiting side is not. Never negative.
func (s State) RemainingAt(color, sideToMove rules.Color, now time.Time) time.Duration {
	remaining := s.Remaining(color)
	if color == sideToMove {
		remaining -= now.Sub(s.LastCommitAt)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the side on turn has already used up its clock. It
// is checked before legality so that a move played after flag fall is never
// applied.
func (s State) Expired(sideToMove rules.Color, now time.Time) bool {
	return s.RemainingAt(sideToMove, sideToMove, now) <= 0
}

// Commit closes the mover's window: elapsed time since the last commit is
// subtracted, the increment is added, and the window re-opens at now for the
// opponent. Values are clamped at zero; a zero clock is a forfeit, not debt.
func Commit(s State, mover rules.Color, now time.Time, tc TimeControl) State {
	elapsed := now.Sub(s.LastCommitAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := s.Remaining(mover) - elapsed
	if remaining < 0 {
		remaining = 0
	} else {
		remaining += tc.Increment()
	}
	next := s
	if mover == rules.White {
		next.White = remaining
	} else {
		next.Black = remaining
	}
	next.LastCommitAt = now
	return next
}
