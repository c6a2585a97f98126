// Package pathresolve walks a host-rooted virtual path left to right to
// find the first segment boundary that resolves to an archive, splitting
// the path into a host archive path and an intra-archive subpath.
package pathresolve

import (
	"os"
	"strings"

	"github.com/christophgil/zipvfs/internal/archiveprobe"
	"github.com/christophgil/zipvfs/internal/nameremap"
)

// zipSuffixLen is len(".zip") == len(".Zip").
const zipSuffixLen = 4

// Resolver classifies host-rooted paths as pass-through or archive-backed.
type Resolver struct {
	mapper *nameremap.Mapper
	prober *archiveprobe.Prober

	// stat is overridable for tests.
	stat func(string) (os.FileInfo, error)
}

// New returns a [Resolver] built on mapper and prober.
func New(mapper *nameremap.Mapper, prober *archiveprobe.Prober) *Resolver {
	return &Resolver{mapper: mapper, prober: prober, stat: os.Stat}
}

// WithStatFunc overrides the stat function; intended for tests.
func (r *Resolver) WithStatFunc(f func(string) (os.FileInfo, error)) *Resolver {
	r.stat = f

	return r
}

// Result describes a resolved path.
type Result struct {
	// Archive is the host path of the archive, or "" if hpath is not
	// archive-backed.
	Archive string

	// SubPath is the intra-archive subpath, trimmed of its leading slash
	// (empty string denotes the archive root). Only meaningful if Archive
	// is non-empty.
	SubPath string
}

// IsArchiveBacked reports whether the resolution found an archive.
func (res Result) IsArchiveBacked() bool {
	return res.Archive != ""
}

// Resolve walks hpath (an already host-rooted path, see [nameremap.Mapper])
// left to right, returning the shortest prefix that probes as an archive
// (the outermost-archive tie-break from spec.md §4.3).
func (r *Resolver) Resolve(hpath string) Result {
	archive, ok := r.GetArchivePath(hpath)
	if !ok {
		return Result{}
	}

	segLen := r.mapper.VirtualSegmentLength(archive)
	if segLen >= len(hpath) {
		return Result{Archive: archive, SubPath: ""}
	}

	sub := strings.TrimPrefix(hpath[segLen:], "/")

	return Result{Archive: archive, SubPath: sub}
}

// GetArchivePath returns the host path of the archive that the leftmost
// matching prefix of hpath resolves to, and whether any prefix matched.
func (r *Resolver) GetArchivePath(hpath string) (string, bool) {
	n := len(hpath)

	slash := 0
	for slash < n {
		slash2 := strings.IndexByte(hpath[slash+1:], '/')
		if slash2 < 0 {
			slash2 = n
		} else {
			slash2 += slash + 1
		}

		if candidate, ok := r.candidateAt(hpath, slash2); ok {
			if r.probeIsArchive(candidate) {
				return candidate, true
			}
		}

		slash = slash2
	}

	return "", false
}

// candidateAt computes the archive candidate for the prefix ending at
// index end, applying the reverse name-mapping rule first and falling back
// to a literal ".zip"/".Zip" suffix check.
func (r *Resolver) candidateAt(hpath string, end int) (string, bool) {
	if end > len(hpath) {
		end = len(hpath)
	}

	prefix := hpath[:end]

	if real, ok := r.mapper.ReverseSegment(prefix); ok {
		return real, true
	}

	if end >= zipSuffixLen {
		suffix := prefix[end-zipSuffixLen:]
		if suffix == ".zip" || suffix == ".Zip" {
			return prefix, true
		}
	}

	return "", false
}

func (r *Resolver) probeIsArchive(candidate string) bool {
	info, err := r.stat(candidate)
	if err != nil || info.IsDir() {
		return false
	}

	return r.prober.IsArchive(candidate, info.ModTime())
}
