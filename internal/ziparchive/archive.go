// Package ziparchive wraps klauspost/compress/zip with reference-counted
// archive handles and per-entry seekable readers, matching the ownership
// model described in spec.md §9: the cache holds one strong reference,
// each open entry stream holds another, and the archive only closes once
// every reference has been released.
package ziparchive

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zip"
)

// Archive is a reference-counted, opened ZIP archive.
type Archive struct {
	*zip.ReadCloser

	// HostPath is the archive's path on the host filesystem.
	HostPath string

	// Mtime is the modification time observed when the archive was opened.
	Mtime time.Time

	// posMu serializes seek+read across all entry streams of this archive,
	// per spec.md §5 ("Archive positioning token").
	posMu sync.Mutex

	refs atomic.Int32
}

// Open opens the ZIP archive at hostPath and returns an [Archive] with a
// reference count of one (the caller's reference).
func Open(hostPath string, mtime time.Time) (*Archive, error) {
	rc, err := zip.OpenReader(hostPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", hostPath, err)
	}

	a := &Archive{
		ReadCloser: rc,
		HostPath:   hostPath,
		Mtime:      mtime,
	}
	a.refs.Store(1)

	return a, nil
}

// Acquire increments the reference count; call once per additional holder
// (e.g. an entry stream borrowing the archive beyond the cache's own ref).
func (a *Archive) Acquire() {
	a.refs.Add(1)
}

// Release decrements the reference count and closes the underlying archive
// once it reaches zero. Safe to call exactly once per Acquire/Open.
func (a *Archive) Release() error {
	if a.refs.Add(-1) == 0 {
		return a.ReadCloser.Close() //nolint:wrapcheck
	}

	return nil
}

// Lock acquires the archive's positioning token, guarding seek+read on any
// entry stream derived from this archive.
func (a *Archive) Lock() {
	a.posMu.Lock()
}

// Unlock releases the archive's positioning token.
func (a *Archive) Unlock() {
	a.posMu.Unlock()
}

// Find returns the *zip.File entry named name, or nil if absent.
func (a *Archive) Find(name string) *zip.File {
	for _, f := range a.File {
		if f.Name == name {
			return f
		}
	}

	return nil
}

// Lookup classifies name against the archive's central directory, per
// spec.md §4.5's getattr rules: an explicit file entry, an explicit or
// implicit directory (a name that is itself a strict prefix of another
// entry), or neither.
func (a *Archive) Lookup(name string) (file *zip.File, isDir bool, found bool) {
	if name == "" {
		return nil, true, true
	}

	trimmed := strings.TrimSuffix(name, "/")

	if f := a.Find(trimmed); f != nil && !isDirEntry(f) {
		return f, false, true
	}

	if f := a.Find(trimmed + "/"); f != nil {
		return f, true, true
	}

	prefix := trimmed + "/"
	for _, f := range a.File {
		if strings.HasPrefix(f.Name, prefix) {
			return nil, true, true
		}
	}

	return nil, false, false
}

// Child is one immediate directory entry returned by [Archive.Children].
type Child struct {
	Name  string
	IsDir bool
}

// Children enumerates the immediate children of dirPath (empty string for
// the archive root), per spec.md §4.5's readdir rule: direct entries
// become file names, intermediate path segments are deduplicated into
// subdirectory names.
func (a *Archive) Children(dirPath string) []Child {
	prefix := strings.TrimSuffix(dirPath, "/")
	if prefix != "" {
		prefix += "/"
	}

	seen := make(map[string]bool)
	order := make([]string, 0)

	for _, f := range a.File {
		if !strings.HasPrefix(f.Name, prefix) || f.Name == prefix {
			continue
		}

		rest := f.Name[len(prefix):]

		child, _, hasMore := strings.Cut(rest, "/")
		if child == "" {
			continue
		}

		// A name reached through a longer sub-path (hasMore) is a
		// subdirectory; otherwise it's a direct entry classified by the
		// entry's own kind. Directory wins if both are ever seen.
		isDir := hasMore || isDirEntry(f)

		if existing, known := seen[child]; known {
			seen[child] = existing || isDir

			continue
		}

		seen[child] = isDir
		order = append(order, child)
	}

	out := make([]Child, 0, len(order))
	for _, name := range order {
		out = append(out, Child{Name: name, IsDir: seen[name]})
	}

	return out
}

func isDirEntry(f *zip.File) bool {
	return f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/")
}
