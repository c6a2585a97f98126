// Package archivecache implements the bounded LRU of opened ZIP archives
// described in spec.md §4.4: keyed by host path, invalidated by mtime,
// evicted least-recently-used on capacity overflow.
package archivecache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/christophgil/zipvfs/internal/ziparchive"
)

// DefaultCapacity is MAX_CACHE_SIZE's default from spec.md §3.
const DefaultCapacity = 1000

// noExpiry is large enough that ttlcache's time-based expiry never fires
// before capacity-based eviction does; this cache is purely LRU-by-size.
const noExpiry = 24 * 365 * time.Hour

// EvictionLogger is called whenever an archive is evicted, for spec.md §6's
// "cache evictions are logged" requirement.
type EvictionLogger func(hostPath string, reason string)

// Cache is a bounded, mtime-invalidated LRU of [ziparchive.Archive].
type Cache struct {
	mu    sync.Mutex
	items *ttlcache.Cache[string, *ziparchive.Archive]

	onEvict EvictionLogger

	hits   int64
	misses int64
}

// New returns a [Cache] with the given capacity; a capacity below 1
// selects [DefaultCapacity].
func New(capacity int, onEvict EvictionLogger) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	c := &Cache{onEvict: onEvict}

	c.items = ttlcache.New(
		ttlcache.WithTTL[string, *ziparchive.Archive](noExpiry),
		ttlcache.WithCapacity[string, *ziparchive.Archive](uint64(capacity)),
	)

	c.items.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *ziparchive.Archive]) {
		arc := item.Value()
		if arc == nil {
			return
		}

		if err := arc.Release(); err != nil && c.onEvict != nil {
			c.onEvict(arc.HostPath, fmt.Sprintf("close error: %v", err))

			return
		}

		if c.onEvict != nil {
			c.onEvict(arc.HostPath, evictionReasonString(reason))
		}
	})

	go c.items.Start()

	return c
}

// Stop halts the cache's background TTL sweep goroutine.
func (c *Cache) Stop() {
	c.items.Stop()
}

// Get returns the cached, ref-counted archive for hostPath, opening (or
// re-opening, on mtime change) it as needed. The returned [ziparchive.
// Archive] carries a reference the caller must Release() after use.
func (c *Cache) Get(hostPath string) (*ziparchive.Archive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(hostPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive %q: %w", hostPath, err)
	}
	currentMtime := info.ModTime()

	if item := c.items.Get(hostPath); item != nil {
		arc := item.Value()
		if !currentMtime.After(arc.Mtime) {
			arc.Acquire()
			c.hits++

			return arc, nil
		}

		// Stale: drop the old archive (the eviction hook releases and
		// closes it) and fall through to a fresh open below.
		c.items.Delete(hostPath)
	}

	c.misses++

	arc, err := ziparchive.Open(hostPath, currentMtime)
	if err != nil {
		return nil, err
	}

	// The cache holds one reference; the caller's own reference is a
	// second Acquire on top of Open's initial ref-count-of-one.
	arc.Acquire()
	c.items.Set(hostPath, arc, ttlcache.DefaultTTL)

	return arc, nil
}

// Len reports the number of cached archives.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Stats returns cumulative hit/miss counters, for diagnostics.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses
}

func evictionReasonString(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
