package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nateight8/neolink-sub000/internal/rules"
)

type stubSearcher struct {
	move  string
	err   error
	delay time.Duration
}

func (s *stubSearcher) RequestMove(ctx context.Context, fen string, historyUCI []string, difficulty int) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.move, s.err
}

func TestAgentUsesSearcherMove(t *testing.T) {
	agent := NewAgent(&stubSearcher{move: "e2e4"}, time.Second)

	intent, err := agent.RequestMove(context.Background(), rules.InitialFEN, nil, 10)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if intent.UCI() != "e2e4" {
		t.Fatalf("got %q, want e2e4", intent.UCI())
	}
}

func TestAgentFallsBackOnSearchError(t *testing.T) {
	agent := NewAgent(&stubSearcher{err: errors.New("engine crashed")}, time.Second)

	intent, err := agent.RequestMove(context.Background(), rules.InitialFEN, nil, 5)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if _, err := rules.ApplyMove(rules.InitialFEN, intent); err != nil {
		t.Fatalf("fallback move %q is not legal: %v", intent.UCI(), err)
	}
}

func TestAgentFallsBackOnTimeout(t *testing.T) {
	agent := NewAgent(&stubSearcher{move: "e2e4", delay: 500 * time.Millisecond}, 20*time.Millisecond)

	start := time.Now()
	intent, err := agent.RequestMove(context.Background(), rules.InitialFEN, nil, 5)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("fallback took too long: %v", elapsed)
	}
	if _, err := rules.ApplyMove(rules.InitialFEN, intent); err != nil {
		t.Fatalf("fallback move %q is not legal: %v", intent.UCI(), err)
	}
}

func TestAgentFallsBackOnIllegalSuggestion(t *testing.T) {
	agent := NewAgent(&stubSearcher{move: "e2e5"}, time.Second)

	intent, err := agent.RequestMove(context.Background(), rules.InitialFEN, nil, 5)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if intent.UCI() == "e2e5" {
		t.Fatal("illegal suggestion was accepted")
	}
	if _, err := rules.ApplyMove(rules.InitialFEN, intent); err != nil {
		t.Fatalf("fallback move %q is not legal: %v", intent.UCI(), err)
	}
}

func TestAgentRespectsCallerCancellation(t *testing.T) {
	agent := NewAgent(&stubSearcher{move: "e2e4", delay: time.Second}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := agent.RequestMove(ctx, rules.InitialFEN, nil, 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestAgentWithoutSearcherPlaysRandomLegal(t *testing.T) {
	agent := NewAgent(nil, time.Second)

	intent, err := agent.RequestMove(context.Background(), rules.InitialFEN, nil, 1)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if _, err := rules.ApplyMove(rules.InitialFEN, intent); err != nil {
		t.Fatalf("random move %q is not legal: %v", intent.UCI(), err)
	}
}
