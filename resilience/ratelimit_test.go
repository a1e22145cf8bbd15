package resilience

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewLimiter_Defaults(t *testing.T) {
	l := NewLimiter(LimiterConfig{})

	if l.config.MaxCalls != 100 {
		t.Errorf("MaxCalls = %d, want 100", l.config.MaxCalls)
	}
	if l.config.Window != time.Minute {
		t.Errorf("Window = %v, want 1m", l.config.Window)
	}
	if l.config.Epsilon != 100*time.Millisecond {
		t.Errorf("Epsilon = %v, want 100ms", l.config.Epsilon)
	}
}

func TestLimiter_GrantsImmediatelyUnderLimit(t *testing.T) {
	l := NewLimiter(LimiterConfig{MaxCalls: 5, Window: time.Second})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("5 acquires under limit took %v, want near-instant", elapsed)
	}

	if got := l.Pending(); got != 5 {
		t.Errorf("Pending = %d, want 5", got)
	}
}

func TestLimiter_BlocksAtLimit(t *testing.T) {
	window := 200 * time.Millisecond
	l := NewLimiter(LimiterConfig{MaxCalls: 2, Window: window, Epsilon: 10 * time.Millisecond})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
	}

	start := time.Now()
	if _, err := l.Acquire(ctx); err != nil {
		t.Fatalf("blocked Acquire failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < window/2 {
		t.Errorf("third Acquire returned after %v, want it to block close to %v", elapsed, window)
	}

	stats := l.Stats()
	if stats.TotalCalls != 3 {
		t.Errorf("TotalCalls = %d, want 3", stats.TotalCalls)
	}
	if stats.Waits != 1 {
		t.Errorf("Waits = %d, want 1", stats.Waits)
	}
	if stats.AvgWait <= 0 {
		t.Errorf("AvgWait = %v, want > 0", stats.AvgWait)
	}
}

// TestLimiter_WindowInvariant verifies that for a burst of concurrent
// callers, no sliding window of the configured length ever contains more
// than MaxCalls grants.
func TestLimiter_WindowInvariant(t *testing.T) {
	const maxCalls = 3
	window := 150 * time.Millisecond
	l := NewLimiter(LimiterConfig{MaxCalls: maxCalls, Window: window, Epsilon: 5 * time.Millisecond})
	ctx := context.Background()

	const callers = 10
	grants := make([]time.Time, 0, callers)
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			at, err := l.Acquire(ctx)
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			mu.Lock()
			grants = append(grants, at)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(grants) != callers {
		t.Fatalf("got %d grants, want %d", len(grants), callers)
	}

	// Every grant must have fewer than maxCalls predecessors within window.
	for i, at := range grants {
		inWindow := 0
		for j, other := range grants {
			if j == i {
				continue
			}
			d := at.Sub(other)
			if d > 0 && d <= window {
				inWindow++
			}
		}
		if inWindow >= maxCalls {
			t.Errorf("grant %d has %d predecessors within window, want < %d", i, inWindow, maxCalls)
		}
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	l := NewLimiter(LimiterConfig{MaxCalls: 1, Window: 10 * time.Second})
	ctx := context.Background()

	if _, err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err := l.Acquire(cancelCtx)
	if err == nil {
		t.Fatal("Acquire with canceled context should fail")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Acquire error = %v, want context.DeadlineExceeded", err)
	}
}

func TestLimiter_PruneReleasesSlots(t *testing.T) {
	window := 100 * time.Millisecond
	l := NewLimiter(LimiterConfig{MaxCalls: 2, Window: window, Epsilon: 5 * time.Millisecond})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
	}

	time.Sleep(window + 20*time.Millisecond)

	if got := l.Pending(); got != 0 {
		t.Errorf("Pending after window elapsed = %d, want 0", got)
	}
}

func BenchmarkLimiter_AcquireUncontended(b *testing.B) {
	l := NewLimiter(LimiterConfig{MaxCalls: 1 << 30, Window: time.Minute})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := l.Acquire(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
