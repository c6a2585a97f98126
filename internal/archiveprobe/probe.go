// Package archiveprobe memoizes the decision of whether a host path is a
// valid ZIP archive, keyed by (path, mtime) so that file changes invalidate
// stale results.
package archiveprobe

import (
	"fmt"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/klauspost/compress/zip"
)

// DefaultCapacity is the minimum memo size recommended by spec.md §9: large
// enough to cover the working set of distinct archive paths that directory
// listings repeatedly re-probe.
const DefaultCapacity = 2048

// pruneCount is how many least-recently-used entries ccache evicts at once
// once it crosses its configured size; kept modest relative to capacity.
const pruneCount = 128

// defaultTTL is effectively "forever" for this memo: entries are evicted
// purely by capacity, not by age, so a large duration is used to sidestep
// ccache's decay-free but still time-stamped item model.
const defaultTTL = 365 * 24 * time.Hour

// Prober memoizes ZIP-archive validity checks.
type Prober struct {
	cache *ccache.Cache
}

// New returns a [Prober] with at least capacity entries of headroom.
func New(capacity int) *Prober {
	if capacity < DefaultCapacity {
		capacity = DefaultCapacity
	}

	return &Prober{
		cache: ccache.New(ccache.Configure().MaxSize(int64(capacity)).ItemsToPrune(pruneCount)),
	}
}

// IsArchive reports whether hostPath is a valid ZIP archive as of mtime,
// consulting (and populating) the memo. A changed mtime for the same path
// is a cache miss by construction, since it changes the lookup key.
func (p *Prober) IsArchive(hostPath string, mtime time.Time) bool {
	key := cacheKey(hostPath, mtime)

	item := p.cache.Get(key)
	if item != nil && !item.Expired() {
		result, _ := item.Value().(bool)

		return result
	}

	result := p.probe(hostPath)
	p.cache.Set(key, result, defaultTTL)

	return result
}

// Len reports the number of memoized entries, for diagnostics.
func (p *Prober) Len() int {
	return p.cache.ItemCount()
}

func cacheKey(hostPath string, mtime time.Time) string {
	return fmt.Sprintf("%s\x00%d", hostPath, mtime.UnixNano())
}

// probe performs the actual validation by attempting to read the ZIP
// end-of-central-directory record via [zip.OpenReader].
func (p *Prober) probe(hostPath string) bool {
	rc, err := zip.OpenReader(hostPath)
	if err != nil {
		return false
	}
	defer rc.Close()

	return true
}
