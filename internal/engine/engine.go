// Package engine maps opponent difficulty levels onto UCI engine
// settings and fronts the session pool with a single search call.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/engine/uci"
	"github.com/Nateight8/neolink-sub000/internal/obslog"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 20

	defaultHashMB  = 64
	defaultThreads = 1
)

// Config tunes process-level engine behavior. Zero values fall back to
// sane defaults.
type Config struct {
	BinaryPath  string
	Threads     int
	HashMB      int
	MaxSessions int
	MoveBudget  time.Duration
}

type Engine struct {
	pool       *uci.Pool
	threads    int
	hashMB     int
	moveBudget time.Duration
}

func New(cfg Config) (*Engine, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("engine binary path is empty")
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = defaultThreads
	}
	hashMB := cfg.HashMB
	if hashMB <= 0 {
		hashMB = defaultHashMB
	}
	budget := cfg.MoveBudget
	if budget <= 0 {
		budget = 1500 * time.Millisecond
	}
	return &Engine{
		pool:       uci.NewPool(cfg.BinaryPath, cfg.MaxSessions),
		threads:    threads,
		hashMB:     hashMB,
		moveBudget: budget,
	}, nil
}

// optionsFor translates a 1..20 difficulty into engine settings. Low
// difficulties additionally cap playing strength via UCI_Elo so the
// engine blunders like a club player rather than a throttled master.
func (e *Engine) optionsFor(difficulty int) uci.Options {
	if difficulty < MinDifficulty {
		difficulty = MinDifficulty
	}
	if difficulty > MaxDifficulty {
		difficulty = MaxDifficulty
	}
	opt := uci.Options{
		Threads:    e.threads,
		HashMB:     e.hashMB,
		SkillLevel: difficulty - 1,
	}
	if difficulty <= 8 {
		// 1 -> ~800 Elo, 8 -> ~1850.
		opt.Elo = 800 + (difficulty-1)*150
	}
	return opt
}

func (e *Engine) limitsFor(difficulty int) uci.Limits {
	ms := int(e.moveBudget / time.Millisecond)
	if difficulty <= 5 {
		ms = ms / 3
	} else if difficulty <= 12 {
		ms = ms * 2 / 3
	}
	if ms < 50 {
		ms = 50
	}
	return uci.Limits{MoveTimeMillis: ms}
}

// RequestMove searches the given position and returns the engine's move
// in long algebraic form.
func (e *Engine) RequestMove(ctx context.Context, fen string, historyUCI []string, difficulty int) (string, error) {
	opt := e.optionsFor(difficulty)

	sess, err := e.pool.Acquire(ctx, opt)
	if err != nil {
		return "", fmt.Errorf("acquire engine: %w", err)
	}

	start := time.Now()
	move, err := sess.BestMove(ctx, uci.SearchRequest{
		FEN:    fen,
		Limits: e.limitsFor(difficulty),
	})
	if err != nil {
		e.pool.Discard(sess)
		return "", fmt.Errorf("engine search: %w", err)
	}
	e.pool.Release(opt, sess)

	obslog.L().Debug("engine_move",
		zap.String("move", move),
		zap.Int("difficulty", difficulty),
		zap.Duration("elapsed", time.Since(start)))
	return move, nil
}

func (e *Engine) Close() {
	e.pool.Close()
}
