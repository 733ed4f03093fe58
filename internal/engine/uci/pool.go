package uci

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/obslog"
)

// Pool keeps warm engine sessions keyed by their option set. Startup
// cost for a UCI engine is high enough that reuse matters; sessions
// with different options cannot be shared because setoption is sticky.
type Pool struct {
	binaryPath string
	maxPerKey  int

	mu      sync.Mutex
	idle    map[string][]*Session
	closed  bool
	spawned int
}

func NewPool(binaryPath string, maxPerKey int) *Pool {
	if maxPerKey <= 0 {
		maxPerKey = 2
	}
	return &Pool{
		binaryPath: binaryPath,
		maxPerKey:  maxPerKey,
		idle:       make(map[string][]*Session),
	}
}

func optionKey(opt Options) string {
	return fmt.Sprintf("t%d-s%d-h%d-e%d", opt.Threads, opt.SkillLevel, opt.HashMB, opt.Elo)
}

// Acquire returns a ready session for the given options, starting a new
// process when no idle one matches.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	key := optionKey(opt)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool closed")
	}
	bucket := p.idle[key]
	if n := len(bucket); n > 0 {
		sess := bucket[n-1]
		p.idle[key] = bucket[:n-1]
		p.mu.Unlock()

		if err := sess.EnsureReady(ctx); err != nil {
			obslog.L().Warn("engine_session_stale", zap.Error(err))
			_ = sess.Close()
			return p.spawn(ctx, opt)
		}
		return sess, nil
	}
	p.mu.Unlock()

	return p.spawn(ctx, opt)
}

// Release returns a session to its bucket, or closes it when the bucket
// is full.
func (p *Pool) Release(opt Options, sess *Session) {
	if sess == nil {
		return
	}
	key := optionKey(opt)

	p.mu.Lock()
	if p.closed || len(p.idle[key]) >= p.maxPerKey {
		p.mu.Unlock()
		_ = sess.Close()
		return
	}
	p.idle[key] = append(p.idle[key], sess)
	p.mu.Unlock()
}

// Discard closes a session that failed mid-search instead of pooling it.
func (p *Pool) Discard(sess *Session) {
	if sess != nil {
		_ = sess.Close()
	}
}

func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	buckets := p.idle
	p.idle = make(map[string][]*Session)
	p.mu.Unlock()

	for _, bucket := range buckets {
		for _, sess := range bucket {
			_ = sess.Close()
		}
	}
}

func (p *Pool) spawn(ctx context.Context, opt Options) (*Session, error) {
	sess, err := NewSession(ctx, p.binaryPath, opt)
	if err != nil {
		return nil, fmt.Errorf("spawn engine session: %w", err)
	}
	p.mu.Lock()
	p.spawned++
	count := p.spawned
	p.mu.Unlock()
	obslog.L().Debug("engine_session_spawned",
		zap.String("options", optionKey(opt)),
		zap.Int("total_spawned", count))
	return sess, nil
}
