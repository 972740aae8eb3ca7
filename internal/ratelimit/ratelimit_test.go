package ratelimit

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{"burst allows initial requests", 1, 3, 3, 3},
		{"exceeding burst blocks", 1, 2, 5, 2},
		{"zero burst blocks everything", 1, 0, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("client") {
					passed++
				}
			}
			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first key denied")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("first key allowed past its burst")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("second key denied by first key's bucket")
	}
	if got := rl.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestKeyedRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	if err := rl.Wait(context.Background(), "k"); err != nil {
		t.Fatalf("first Wait() = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "k"); err == nil {
		t.Error("Wait() succeeded without a token")
	}
}

func TestKeyedRateLimiter_EvictsIdleKeys(t *testing.T) {
	rl := NewWithTTL(1, 1, time.Minute)
	defer rl.Stop()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("stale")
	clock = clock.Add(45 * time.Second)
	rl.Allow("fresh")
	clock = clock.Add(30 * time.Second)

	if removed := rl.evictIdle(); removed != 1 {
		t.Errorf("evictIdle() removed %d, want 1", removed)
	}
	if got := rl.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	// An evicted key starts over with a full bucket.
	if !rl.Allow("stale") {
		t.Error("evicted key did not get a fresh bucket")
	}
}

func TestKeyedRateLimiter_StopEndsGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
	time.Sleep(10 * time.Millisecond)
}
