package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Tiered keeps raw documents in a memory LRU backed by an optional disk
// cache. Disk hits are promoted to memory.
type Tiered struct {
	memory *LRU[string, []byte]
	disk   *DiskCache
	config Config

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	mu    sync.Mutex
	stats struct {
		MemoryHits  int64
		DiskHits    int64
		Misses      int64
		CleanupRuns int64
		LastCleanup time.Time
	}
}

// NewTiered creates a tiered cache. An empty DiskPath keeps everything in
// memory.
func NewTiered(config Config) (*Tiered, error) {
	t := &Tiered{
		memory:      NewLRU[string, []byte](config.MemoryEntries),
		config:      config,
		cleanupStop: make(chan struct{}),
	}

	if config.DiskPath != "" {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		t.disk = disk

		if config.CleanupInterval > 0 && config.TTL > 0 {
			t.startCleanupRoutine()
		}
	}

	return t, nil
}

// Get looks a document up in memory, then on disk.
func (t *Tiered) Get(key string) ([]byte, bool) {
	if data, ok := t.memory.Get(key); ok {
		t.count(func() { t.stats.MemoryHits++ })
		return data, true
	}

	if t.disk != nil {
		if data, ok := t.disk.Get(key); ok {
			t.count(func() { t.stats.DiskHits++ })
			t.memory.Put(key, data)
			return data, true
		}
	}

	t.count(func() { t.stats.Misses++ })
	return nil, false
}

// Put stores a document in both tiers. Disk failures are logged and do not
// fail the call.
func (t *Tiered) Put(key string, value []byte) {
	t.memory.Put(key, value)
	if t.disk == nil {
		return
	}
	if err := t.disk.Put(key, value); err != nil {
		log.Warn("disk cache write failed", "key", key, "err", err)
	}
}

// Delete removes a document from both tiers.
func (t *Tiered) Delete(key string) {
	t.memory.Delete(key)
	if t.disk != nil {
		t.disk.Delete(key)
	}
}

// Stats returns per-tier statistics keyed by tier name.
func (t *Tiered) Stats() map[string]interface{} {
	t.mu.Lock()
	out := map[string]interface{}{
		"memory_hits":  t.stats.MemoryHits,
		"disk_hits":    t.stats.DiskHits,
		"misses":       t.stats.Misses,
		"cleanup_runs": t.stats.CleanupRuns,
		"last_cleanup": t.stats.LastCleanup,
	}
	t.mu.Unlock()

	out[LevelMemory.String()] = t.memory.Stats()
	if t.disk != nil {
		out[LevelDisk.String()] = t.disk.Stats()
	}
	return out
}

// Close stops the cleanup loop and saves the disk index.
func (t *Tiered) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.cleanupStop)
		t.cleanupWg.Wait()
		if t.disk != nil {
			err = t.disk.Close()
		}
	})
	return err
}

func (t *Tiered) count(fn func()) {
	t.mu.Lock()
	fn()
	t.mu.Unlock()
}

func (t *Tiered) startCleanupRoutine() {
	t.cleanupWg.Add(1)
	go func() {
		defer t.cleanupWg.Done()

		ticker := time.NewTicker(t.config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.performCleanup()
			case <-t.cleanupStop:
				return
			}
		}
	}()
}

func (t *Tiered) performCleanup() {
	removed := t.disk.RemoveOlderThan(time.Now().Add(-t.config.TTL))
	t.count(func() {
		t.stats.CleanupRuns++
		t.stats.LastCleanup = time.Now()
	})
	if removed > 0 {
		log.Debug("pruned disk cache", "removed", removed)
	}
}
