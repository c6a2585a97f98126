// Package nameremap implements the bidirectional rewrite between virtual
// names presented to FUSE clients and the on-disk archive names they map to.
package nameremap

import (
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// stripSuffix is the literal, case-sensitive on-disk suffix that Strip-suffix
// mode hides from clients.
const stripSuffix = ".d.Zip"

// hiddenSuffix is the virtual-side marker left once stripSuffix is hidden.
const hiddenSuffix = ".d"

// Mode selects how on-disk archive names are presented to clients.
type Mode int

const (
	// Identity presents on-disk archive names unchanged.
	Identity Mode = iota

	// StripSuffix hides the ".Zip" of on-disk archives named "*.d.Zip",
	// presenting them as directories ending in ".d".
	StripSuffix
)

// defaultRejectPatterns are glob patterns (matched against the full virtual
// path) that must always be reported as non-existent, to keep auxiliary
// files the read-only layer cannot host from being created by clients.
var defaultRejectPatterns = []string{
	"**/analysis.tdf-journal",
	"**/analysis.tdf-wal",
}

// Mapper applies a configured [Mode] to virtual<->host name translation.
// All methods are pure aside from ReverseSegment's (and so VirtualToHost's)
// use of an injectable file-existence check, so Mapper is safe for
// concurrent use.
type Mapper struct {
	mode Mode

	// exists reports whether a host path exists; overridable for tests.
	exists func(string) bool

	rejectPatterns []string
}

// New returns a [Mapper] configured for mode, with the default reject
// pattern set from spec.
func New(mode Mode) *Mapper {
	return &Mapper{
		mode:           mode,
		exists:         fileExists,
		rejectPatterns: append([]string(nil), defaultRejectPatterns...),
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// WithExistsFunc overrides the file-existence probe used for reverse
// mapping; intended for tests.
func (m *Mapper) WithExistsFunc(f func(string) bool) *Mapper {
	m.exists = f

	return m
}

// Mode reports the configured [Mode].
func (m *Mapper) Mode() Mode {
	return m.mode
}

// AddRejectPattern registers an additional glob pattern (doublestar syntax,
// matched against the full virtual path) that must resolve as non-existent.
func (m *Mapper) AddRejectPattern(pattern string) {
	m.rejectPatterns = append(m.rejectPatterns, pattern)
}

// RejectPath reports whether vpath matches one of the configured
// auxiliary-file reject patterns and must therefore be reported ENOENT
// regardless of what may or may not exist on disk.
func (m *Mapper) RejectPath(vpath string) bool {
	trimmed := strings.TrimPrefix(vpath, "/")
	for _, pattern := range m.rejectPatterns {
		if ok, _ := doublestar.Match(pattern, trimmed); ok {
			return true
		}
		if ok, _ := doublestar.Match(strings.TrimPrefix(pattern, "**/"), trimmed); ok {
			return true
		}
	}

	return false
}

// VirtualToHost rewrites a full virtual path into its host path, applying
// the reverse name-mapping rule segment-wise. If no segment resolves to a
// rewritten archive name, the input is returned unchanged.
func (m *Mapper) VirtualToHost(vpath string) string {
	if m.mode != StripSuffix {
		return vpath
	}

	segments := splitPath(vpath)

	var out strings.Builder

	built := ""
	for i, seg := range segments {
		candidate := built + "/" + seg
		if real, ok := m.ReverseSegment(candidate); ok {
			out.Reset()
			out.WriteString(real)
			// Replace the path built so far with the resolved archive path,
			// then continue appending remaining raw segments untouched.
			for _, rest := range segments[i+1:] {
				out.WriteString("/")
				out.WriteString(rest)
			}

			return out.String()
		}
		built = candidate
	}

	return vpath
}

// ReverseSegment attempts to reverse-map a single virtual path prefix
// ending in the hidden ".d" suffix into its on-disk "*.d.Zip" counterpart,
// returning ok=false if the prefix does not end in ".d" or the candidate
// archive does not exist on disk.
func (m *Mapper) ReverseSegment(vpathPrefix string) (string, bool) {
	if m.mode != StripSuffix {
		return vpathPrefix, false
	}

	if !strings.HasSuffix(vpathPrefix, hiddenSuffix) {
		return vpathPrefix, false
	}

	candidate := strings.TrimSuffix(vpathPrefix, hiddenSuffix) + stripSuffix
	if m.exists(candidate) {
		return candidate, true
	}

	return vpathPrefix, false
}

// VirtualSegmentLength returns the length of the virtual-path prefix that
// corresponds to hostArchivePath, i.e. the length to slice at so that the
// archive's own name is transparent to the client. When Identity mode (or
// the archive does not end in stripSuffix) is in effect, the host length is
// returned unchanged.
func (m *Mapper) VirtualSegmentLength(hostArchivePath string) int {
	if m.mode == StripSuffix && strings.HasSuffix(hostArchivePath, stripSuffix) {
		return len(hostArchivePath) - len(stripSuffix) + len(hiddenSuffix)
	}

	return len(hostArchivePath)
}

// HostNameToVirtual strips the hidden on-disk suffix from a single
// directory-entry basename, for use while enumerating a pass-through
// directory.
func (m *Mapper) HostNameToVirtual(name string) string {
	if m.mode == StripSuffix && strings.HasSuffix(name, stripSuffix) {
		return strings.TrimSuffix(name, stripSuffix) + hiddenSuffix
	}

	return name
}

// splitPath splits an absolute slash-separated path into its non-empty
// segments.
func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
