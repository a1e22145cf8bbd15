package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SnapshotEntry is the serialized form of one cache entry.
type SnapshotEntry struct {
	Key         string    `json:"key"`
	Value       []byte    `json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
	TTLSeconds  int64     `json:"ttlSeconds"`
	AccessCount int64     `json:"accessCount"`
	LastAccess  time.Time `json:"lastAccess"`
}

// Snapshot is a serializable projection of all unexpired entries plus
// aggregate statistics. It exists only for crash-recovery seeding and may
// be discarded at any time without correctness loss.
type Snapshot struct {
	Entries    []SnapshotEntry `json:"entries"`
	Stats      Stats           `json:"stats"`
	BackupTime time.Time       `json:"backupTime"`
	Checksum   string          `json:"checksum"`
}

// Snapshot captures every unexpired entry plus current statistics.
// Entries are key-sorted so the checksum is deterministic.
func (c *Memory) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entries := make([]SnapshotEntry, 0, len(c.entries))
	for key, e := range c.entries {
		if e.expired(now) {
			continue
		}
		entries = append(entries, SnapshotEntry{
			Key:         key,
			Value:       e.value,
			CreatedAt:   e.createdAt,
			TTLSeconds:  int64(e.ttl / time.Second),
			AccessCount: e.accessCount,
			LastAccess:  e.lastAccess,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return Snapshot{
		Entries: entries,
		Stats: Stats{
			Size:      len(c.entries),
			Hits:      c.hits,
			Misses:    c.misses,
			Evictions: c.evictions,
			Sweeps:    c.sweeps,
		},
		BackupTime: now,
		Checksum:   digest(entries),
	}
}

// Restore loads snapshot entries that have not expired since the snapshot
// was taken and merges the snapshot's counters into the current ones.
// Returns the number of entries admitted.
func (c *Memory) Restore(s Snapshot) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	admitted := 0
	for _, se := range s.Entries {
		ttl := time.Duration(se.TTLSeconds) * time.Second
		if now.Sub(se.CreatedAt) > ttl {
			continue
		}
		c.entries[se.Key] = &entry{
			value:       se.Value,
			createdAt:   se.CreatedAt,
			ttl:         ttl,
			accessCount: se.AccessCount,
			lastAccess:  se.LastAccess,
		}
		admitted++
	}

	// Counters merge additively so restored history never rewinds the
	// current process's numbers.
	c.hits += s.Stats.Hits
	c.misses += s.Stats.Misses
	c.evictions += s.Stats.Evictions
	c.sweeps += s.Stats.Sweeps

	return admitted
}

// WriteSnapshotFile persists a snapshot as JSON, writing a temp file and
// renaming it over the target so a crash never leaves a torn file.
func WriteSnapshotFile(path string, s Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: replace snapshot: %w", err)
	}
	return nil
}

// ReadSnapshotFile loads and verifies a snapshot file.
func ReadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cache: read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("cache: unmarshal snapshot: %w", err)
	}

	if s.Checksum != "" && s.Checksum != digest(s.Entries) {
		return Snapshot{}, ErrSnapshotCorrupt
	}
	return s, nil
}

// digest returns a hex SHA-256 over the canonical serialization of the
// entries. Entries must already be key-sorted.
func digest(entries []SnapshotEntry) string {
	canonical, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
