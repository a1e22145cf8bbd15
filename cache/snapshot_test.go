package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(MemoryConfig{})

	_ = src.Set(ctx, "user_data:42", []byte(`{"coins":15}`), time.Hour)
	_ = src.Set(ctx, "admin_id", []byte(`"99"`), 24*time.Hour)
	src.Get(ctx, "user_data:42")

	path := filepath.Join(t.TempDir(), "cache_backup.json")
	if err := WriteSnapshotFile(path, src.Snapshot()); err != nil {
		t.Fatalf("WriteSnapshotFile failed: %v", err)
	}

	loaded, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("ReadSnapshotFile failed: %v", err)
	}

	dst := NewMemory(MemoryConfig{})
	admitted := dst.Restore(loaded)
	if admitted != 2 {
		t.Fatalf("Restore admitted %d entries, want 2", admitted)
	}

	got, ok := dst.Get(ctx, "user_data:42")
	if !ok {
		t.Fatal("restored entry missing")
	}
	if !bytes.Equal(got, []byte(`{"coins":15}`)) {
		t.Errorf("restored value = %q, want original", got)
	}
}

func TestSnapshot_OmitsExpired(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(MemoryConfig{})

	_ = src.Set(ctx, "fresh", []byte("a"), time.Hour)
	_ = src.Set(ctx, "stale", []byte("b"), 30*time.Millisecond)

	time.Sleep(60 * time.Millisecond)

	snap := src.Snapshot()
	if len(snap.Entries) != 1 {
		t.Fatalf("Snapshot holds %d entries, want 1", len(snap.Entries))
	}
	if snap.Entries[0].Key != "fresh" {
		t.Errorf("Snapshot kept %q, want fresh", snap.Entries[0].Key)
	}
}

func TestRestore_DropsEntriesExpiredSinceSnapshot(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(MemoryConfig{})

	_ = src.Set(ctx, "short", []byte("a"), 30*time.Millisecond)
	_ = src.Set(ctx, "long", []byte("b"), time.Hour)

	snap := src.Snapshot()

	// The short entry expires between snapshot and restore.
	time.Sleep(60 * time.Millisecond)

	dst := NewMemory(MemoryConfig{})
	admitted := dst.Restore(snap)
	if admitted != 1 {
		t.Fatalf("Restore admitted %d entries, want 1", admitted)
	}
	if _, ok := dst.Get(ctx, "short"); ok {
		t.Error("entry expired since snapshot should not be restored")
	}
	if _, ok := dst.Get(ctx, "long"); !ok {
		t.Error("unexpired entry should be restored")
	}
}

func TestRestore_PreservesAccessCounts(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(MemoryConfig{MaxSize: 2})

	_ = src.Set(ctx, "hot", []byte("h"), time.Hour)
	for i := 0; i < 5; i++ {
		src.Get(ctx, "hot")
	}

	dst := NewMemory(MemoryConfig{MaxSize: 2})
	dst.Restore(src.Snapshot())

	// A new untouched entry must lose the eviction contest against the
	// restored hot entry.
	_ = dst.Set(ctx, "cold", []byte("c"), time.Hour)
	_ = dst.Set(ctx, "new", []byte("n"), time.Hour)

	if _, ok := dst.Get(ctx, "hot"); !ok {
		t.Error("restored hot entry should keep its access count and survive")
	}
}

func TestReadSnapshotFile_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(MemoryConfig{})
	_ = src.Set(ctx, "key", []byte(`"value"`), time.Hour)

	path := filepath.Join(t.TempDir(), "cache_backup.json")
	if err := WriteSnapshotFile(path, src.Snapshot()); err != nil {
		t.Fatalf("WriteSnapshotFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Replace(data, []byte(`"key"`), []byte(`"kez"`), 1)
	if err := os.WriteFile(path, tampered, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = ReadSnapshotFile(path)
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Errorf("ReadSnapshotFile error = %v, want ErrSnapshotCorrupt", err)
	}
}

func TestWriteSnapshotFile_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(MemoryConfig{})
	_ = src.Set(ctx, "key", []byte("v"), time.Hour)

	dir := t.TempDir()
	path := filepath.Join(dir, "cache_backup.json")
	if err := WriteSnapshotFile(path, src.Snapshot()); err != nil {
		t.Fatalf("WriteSnapshotFile failed: %v", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if strings.Contains(f.Name(), ".tmp-") {
			t.Errorf("temp file %q left behind", f.Name())
		}
	}
	if len(files) != 1 {
		t.Errorf("dir holds %d files, want 1", len(files))
	}
}

func TestJanitor_StopWritesFinalSnapshot(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(MemoryConfig{})
	_ = c.Set(ctx, "key", []byte("v"), time.Hour)

	path := filepath.Join(t.TempDir(), "cache_backup.json")
	j := NewJanitor(c, JanitorConfig{
		SweepInterval:    time.Hour,
		SnapshotInterval: time.Hour,
		SnapshotPath:     path,
	})
	j.Start()
	j.Stop()

	snap, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("final snapshot not readable: %v", err)
	}
	if len(snap.Entries) != 1 {
		t.Errorf("final snapshot holds %d entries, want 1", len(snap.Entries))
	}

	// Stop is idempotent.
	j.Stop()
}

func TestJanitor_PeriodicSweep(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(MemoryConfig{})
	_ = c.Set(ctx, "stale", []byte("v"), 10*time.Millisecond)

	swept := make(chan int, 1)
	j := NewJanitor(c, JanitorConfig{
		SweepInterval:    30 * time.Millisecond,
		SnapshotInterval: time.Hour,
		OnSweep: func(removed int) {
			select {
			case swept <- removed:
			default:
			}
		},
	})
	j.Start()
	defer j.Stop()

	select {
	case removed := <-swept:
		if removed != 1 {
			t.Errorf("sweep removed %d, want 1", removed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}
}
