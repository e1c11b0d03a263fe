package remote

import (
	"context"
	"testing"
	"time"
)

func TestLimiterBlocksOverBudget(t *testing.T) {
	const (
		calls  = 2
		period = 100 * time.Millisecond
		total  = 6
	)
	l := NewLimiter(calls, period)

	start := time.Now()
	for i := 0; i < total; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// 6 calls at 2 per window need at least 2 full windows of waiting.
	min := 2 * period
	if elapsed < min {
		t.Fatalf("elapsed %v, want at least %v", elapsed, min)
	}
}

func TestLimiterWithinBudgetDoesNotBlock(t *testing.T) {
	l := NewLimiter(4, time.Second)

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("4 calls within budget took %v", elapsed)
	}
}

func TestLimiterHonorsContextCancel(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if err == nil {
		t.Fatal("expected context error while blocked")
	}
}
