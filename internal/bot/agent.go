// Package bot hosts the automated opponent. It wraps an engine search
// with a time budget and degrades to a random legal move rather than
// stalling the game.
package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/obslog"
	"github.com/Nateight8/neolink-sub000/internal/rules"
)

// Searcher finds a move in long algebraic form for the given position.
type Searcher interface {
	RequestMove(ctx context.Context, fen string, historyUCI []string, difficulty int) (string, error)
}

type Agent struct {
	searcher Searcher
	budget   time.Duration
}

// NewAgent builds an agent over the given searcher. A nil searcher is
// allowed; the agent then plays random legal moves only.
func NewAgent(searcher Searcher, budget time.Duration) *Agent {
	if budget <= 0 {
		budget = 3 * time.Second
	}
	return &Agent{searcher: searcher, budget: budget}
}

// RequestMove asks the searcher for a move within the budget and
// validates the answer against the current position. Any failure,
// timeout, or illegal suggestion falls back to a random legal move.
func (a *Agent) RequestMove(ctx context.Context, fen string, historyUCI []string, difficulty int) (rules.MoveIntent, error) {
	if a.searcher != nil {
		searchCtx, cancel := context.WithTimeout(ctx, a.budget)
		raw, err := a.searcher.RequestMove(searchCtx, fen, historyUCI, difficulty)
		cancel()

		if err == nil {
			intent, perr := rules.IntentFromUCI(raw)
			if perr == nil {
				if _, aerr := rules.ApplyMove(fen, intent); aerr == nil {
					return intent, nil
				}
				obslog.L().Warn("bot_illegal_suggestion",
					zap.String("move", raw), zap.String("fen", fen))
			} else {
				obslog.L().Warn("bot_unparseable_suggestion",
					zap.String("move", raw), zap.Error(perr))
			}
		} else if ctx.Err() != nil {
			// Room cancelled the search; no move is wanted anymore.
			return rules.MoveIntent{}, ctx.Err()
		} else {
			obslog.L().Warn("bot_search_failed", zap.Error(err))
		}
	}

	intent, err := rules.RandomLegalMove(fen)
	if err != nil {
		return rules.MoveIntent{}, fmt.Errorf("fallback move: %w", err)
	}
	obslog.L().Info("bot_fallback_move",
		zap.String("move", intent.UCI()), zap.Int("difficulty", difficulty))
	return intent, nil
}
