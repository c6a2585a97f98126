// Package handletable implements the per-open file descriptor table
// described in spec.md §4.5 and §9: archive-entry streams keyed by odd
// identifiers, passthrough OS descriptors encoded as (fd << 1), with a
// free-id allocator that starts at 5 to avoid colliding with the standard
// streams.
package handletable

import (
	"fmt"
	"os"
	"sync"

	"github.com/christophgil/zipvfs/internal/ziparchive"
)

// firstArchiveHandleID is the lowest id the allocator hands out, chosen to
// avoid confusion with stdin/stdout/stderr (0, 1, 2) and a conventional
// reserved slot (3, 4).
const firstArchiveHandleID = 5

// ArchiveStream is an open archive-entry stream: a borrowed reference to
// its [ziparchive.Archive] plus a positioned [ziparchive.EntryReader].
type ArchiveStream struct {
	Archive *ziparchive.Archive
	Reader  *ziparchive.EntryReader
	Path    string // the entry's name within Archive, for diagnostics/reopen.
}

// Passthrough is an open host OS file descriptor, with its own mutex since
// spec.md §5 requires per-fd serialization of seek+read.
type Passthrough struct {
	mu sync.Mutex
	F  *os.File
}

// Lock acquires the passthrough descriptor's serialization lock.
func (p *Passthrough) Lock() { p.mu.Lock() }

// Unlock releases the passthrough descriptor's serialization lock.
func (p *Passthrough) Unlock() { p.mu.Unlock() }

// Table is the process-wide (per-mount) table of open handles.
type Table struct {
	mu sync.Mutex

	nextArchiveID uint64
	archives      map[uint64]*ArchiveStream
	passthroughs  map[uint64]*Passthrough
}

// New returns an empty [Table].
func New() *Table {
	return &Table{
		nextArchiveID: firstArchiveHandleID,
		archives:      make(map[uint64]*ArchiveStream),
		passthroughs:  make(map[uint64]*Passthrough),
	}
}

// IsArchiveHandle reports whether id denotes an archive-entry stream (the
// odd-id convention from spec.md's data model).
func IsArchiveHandle(id uint64) bool {
	return id%2 == 1
}

// EncodePassthrough encodes a host file descriptor as an even handle id.
func EncodePassthrough(fd uintptr) uint64 {
	return uint64(fd) << 1
}

// DecodePassthrough recovers the host file descriptor from an even handle
// id produced by [EncodePassthrough].
func DecodePassthrough(id uint64) uintptr {
	return uintptr(id >> 1)
}

// OpenArchiveStream allocates a fresh odd handle id and stores stream under
// it.
func (t *Table) OpenArchiveStream(stream *ArchiveStream) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		id := t.nextArchiveID
		t.nextArchiveID += 2

		if _, taken := t.archives[id]; !taken {
			t.archives[id] = stream

			return id
		}
	}
}

// OpenPassthrough registers f under its encoded handle id.
func (t *Table) OpenPassthrough(f *os.File) uint64 {
	id := EncodePassthrough(f.Fd())

	t.mu.Lock()
	defer t.mu.Unlock()

	t.passthroughs[id] = &Passthrough{F: f}

	return id
}

// ArchiveStream returns the archive-entry stream for id, if present.
func (t *Table) ArchiveStream(id uint64) (*ArchiveStream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.archives[id]

	return s, ok
}

// Passthrough returns the passthrough descriptor for id, if present.
func (t *Table) Passthrough(id uint64) (*Passthrough, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.passthroughs[id]

	return p, ok
}

// ReplaceArchiveStream atomically swaps the stream stored at id, used when
// a non-seekable rewind forces a reopen of the underlying entry (spec.md
// §9's reopen path).
func (t *Table) ReplaceArchiveStream(id uint64, stream *ArchiveStream) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.archives[id] = stream
}

// Release drops the handle-table entry for id and returns it, so the
// caller can close whatever resources it owns. It never errors: per
// spec.md §4.5, release must never fail the client operation.
func (t *Table) Release(id uint64) (archiveStream *ArchiveStream, passthrough *Passthrough) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if IsArchiveHandle(id) {
		s := t.archives[id]
		delete(t.archives, id)

		return s, nil
	}

	p := t.passthroughs[id]
	delete(t.passthroughs, id)

	return nil, p
}

// Counts reports the number of each handle class currently open, for
// diagnostics.
func (t *Table) Counts() (archiveStreams, passthroughs int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.archives), len(t.passthroughs)
}

// String implements fmt.Stringer for debug logging.
func (t *Table) String() string {
	a, p := t.Counts()

	return fmt.Sprintf("handles{archive=%d passthrough=%d}", a, p)
}
