package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonwraymond/gridops/cache"
	"github.com/jonwraymond/gridops/health"
	"github.com/jonwraymond/gridops/resilience"
)

func TestService_InitializeAndShutdown(t *testing.T) {
	fake := newFakeStore()
	snapshotPath := filepath.Join(t.TempDir(), "backup.json")

	mem := cache.NewMemory(cache.MemoryConfig{})
	svc, err := NewService(Config{
		Cache:            mem,
		Store:            fake,
		Limiter:          resilience.NewLimiter(resilience.LimiterConfig{}),
		SweepInterval:    time.Hour,
		SnapshotInterval: time.Hour,
		SnapshotPath:     snapshotPath,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Warm-up primed the long-lived entries.
	if _, ok := mem.Get(ctx, keyUserMetadata); !ok {
		t.Error("metadata not warmed")
	}
	if _, ok := mem.Get(ctx, keyAdminID); !ok {
		t.Error("admin id not warmed")
	}
	if _, ok := mem.Get(ctx, keyAllUserData); !ok {
		t.Error("user data not warmed")
	}

	svc.Shutdown(ctx)

	// Shutdown wrote a final snapshot.
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Errorf("final snapshot missing: %v", err)
	}

	// A fresh service restores the snapshot and serves warm without any
	// store traffic.
	fake2 := newFakeStore()
	mem2 := cache.NewMemory(cache.MemoryConfig{})
	svc2, err := NewService(Config{
		Cache:            mem2,
		Store:            fake2,
		SweepInterval:    time.Hour,
		SnapshotInterval: time.Hour,
		SnapshotPath:     snapshotPath,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc2.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	defer svc2.Shutdown(ctx)

	rec, err := svc2.UserInventory(ctx, "42")
	if err != nil {
		t.Fatalf("UserInventory after restore failed: %v", err)
	}
	if rec.Name != "Alice" {
		t.Errorf("restored rec = %+v", rec)
	}
	if get, _, _ := fake2.calls(); get != 0 {
		t.Errorf("restored service made %d reads, want 0", get)
	}
}

func TestService_InitializeWarmFailureIsNotFatal(t *testing.T) {
	fake := newFakeStore()
	fake.failGets = true
	svc := newTestService(t, fake)

	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize should survive a failed warm-up, got %v", err)
	}
	svc.Shutdown(ctx)
}

func TestService_HealthAggregator(t *testing.T) {
	fake := newFakeStore()
	svc, err := NewService(Config{
		Cache:        cache.NewMemory(cache.MemoryConfig{}),
		Store:        fake,
		Limiter:      resilience.NewLimiter(resilience.LimiterConfig{}),
		SnapshotPath: filepath.Join(t.TempDir(), "backup.json"),
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	agg := svc.HealthAggregator()
	names := agg.CheckerNames()
	want := []string{"cache", "store", "rate_limiter", "snapshot"}
	if len(names) != len(want) {
		t.Fatalf("checkers = %v, want %v", names, want)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("checker[%d] = %q, want %q", i, names[i], n)
		}
	}

	results := agg.CheckAll(context.Background())
	if len(results) != 4 {
		t.Errorf("got %d results", len(results))
	}

	status, folded := svc.Health(context.Background())
	if len(folded) != 4 {
		t.Errorf("Health returned %d results", len(folded))
	}
	if status != health.StatusHealthy {
		t.Errorf("status = %v, want healthy", status)
	}
}

func TestService_SystemStats(t *testing.T) {
	fake := newFakeStore()
	limiter := resilience.NewLimiter(resilience.LimiterConfig{})

	svc, err := NewService(Config{
		Cache:   cache.NewMemory(cache.MemoryConfig{}),
		Store:   fake,
		Limiter: limiter,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	ctx := context.Background()
	if _, err := svc.UserInventory(ctx, "42"); err != nil {
		t.Fatalf("UserInventory failed: %v", err)
	}
	if _, err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Metadata read, admin cell, row read.
	stats := svc.SystemStats()
	if stats.Store.APICalls != 3 {
		t.Errorf("store calls = %d, want 3", stats.Store.APICalls)
	}
	if stats.Cache.Misses == 0 {
		t.Error("expected cache misses to be counted")
	}
	if stats.RateLimiter.TotalCalls != 1 {
		t.Errorf("limiter calls = %d, want 1", stats.RateLimiter.TotalCalls)
	}
}
