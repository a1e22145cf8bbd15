package cache

import (
	"context"
	"sync"
	"time"
)

// JanitorConfig configures the background sweep and snapshot workers.
type JanitorConfig struct {
	// SweepInterval is how often expired entries are physically removed.
	// Default: 15 minutes
	SweepInterval time.Duration

	// SnapshotInterval is how often the cache is persisted to disk.
	// Default: 1 hour
	SnapshotInterval time.Duration

	// SnapshotPath is the snapshot file location. Empty disables snapshots.
	SnapshotPath string

	// OnSweep is invoked after each sweep with the number of entries removed.
	OnSweep func(removed int)

	// OnError is invoked when a snapshot write fails.
	OnError func(err error)
}

// Janitor owns the cache's periodic background work: the expiry sweep and
// the snapshot-to-disk cycle. It is started once at process start and
// joined during shutdown; Stop writes a final snapshot.
type Janitor struct {
	cache  *Memory
	config JanitorConfig

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewJanitor creates a janitor for the given cache.
func NewJanitor(cache *Memory, config JanitorConfig) *Janitor {
	// Apply defaults
	if config.SweepInterval <= 0 {
		config.SweepInterval = 15 * time.Minute
	}
	if config.SnapshotInterval <= 0 {
		config.SnapshotInterval = time.Hour
	}

	return &Janitor{
		cache:  cache,
		config: config,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the background workers.
func (j *Janitor) Start() {
	go j.run()
}

func (j *Janitor) run() {
	defer close(j.done)

	sweep := time.NewTicker(j.config.SweepInterval)
	defer sweep.Stop()
	snapshot := time.NewTicker(j.config.SnapshotInterval)
	defer snapshot.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-sweep.C:
			removed := j.cache.Sweep(context.Background())
			if j.config.OnSweep != nil {
				j.config.OnSweep(removed)
			}
		case <-snapshot.C:
			j.snapshot()
		}
	}
}

func (j *Janitor) snapshot() {
	if j.config.SnapshotPath == "" {
		return
	}
	if err := WriteSnapshotFile(j.config.SnapshotPath, j.cache.Snapshot()); err != nil {
		if j.config.OnError != nil {
			j.config.OnError(err)
		}
	}
}

// Stop halts the workers, waits for them to exit, and writes a final
// snapshot. Safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		<-j.done
		j.snapshot()
	})
}
