package exchange

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	for i := 0; i < 150; i++ {
		if err := rl.Book.Wait(ctx); err != nil {
			t.Fatalf("Wait burst token %d: %v", i, err)
		}
	}
	if err := rl.Book.Wait(ctx); err == nil {
		t.Error("expected Wait past the burst to block beyond the 50ms deadline")
	}
}

func TestRateLimiterRespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Exhaust the burst first so the next Wait genuinely has to block on
	// the cancelled context rather than succeeding immediately.
	fresh := NewRateLimiter()
	for i := 0; i < 150; i++ {
		_ = fresh.Book.Wait(context.Background())
	}
	if err := fresh.Book.Wait(ctx); err == nil {
		t.Error("expected Wait to return an error for an already-cancelled context")
	}
}
