package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cache data is corrupted
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the in-memory LRU
	LevelMemory Level = iota

	// LevelDisk is the persistent disk cache
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache performance metrics
type Stats struct {
	// Configuration
	Capacity int64 // Maximum entries for memory caches, bytes for disk

	// Current state
	Size      int64 // Current size in bytes (disk only)
	ItemCount int64 // Number of items in cache

	// Performance metrics
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastAccess time.Time
	LastEvict  time.Time
}

func (s *Stats) computeHitRate() {
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}

// Config configures a Tiered cache.
type Config struct {
	MemoryEntries    int           // Entries kept in memory
	DiskPath         string        // Directory for the disk cache; empty disables it
	DiskCapacity     int64         // Bytes on disk
	TTL              time.Duration // Disk entries older than this are pruned
	CleanupInterval  time.Duration // How often to prune; zero disables the cleanup loop
	CompressionLevel int           // zstd level
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MemoryEntries:    32,
		DiskCapacity:     100 * 1024 * 1024,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
		CompressionLevel: 3,
	}
}
