// Package zipvfs wires the Name Mapper, Archive Probe, Path Resolver,
// Archive Cache and Handle Table into the FS Operations and Mount Bootstrap
// components described in spec.md §4.5/§4.6, serving them over
// bazil.org/fuse's high-level node/handle tree.
package zipvfs

import (
	"errors"
	"io"
	"os"
	"path"
	"sync/atomic"
	"time"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"

	"github.com/christophgil/zipvfs/internal/archivecache"
	"github.com/christophgil/zipvfs/internal/archiveprobe"
	"github.com/christophgil/zipvfs/internal/handletable"
	"github.com/christophgil/zipvfs/internal/nameremap"
	"github.com/christophgil/zipvfs/internal/pathresolve"
	"github.com/christophgil/zipvfs/internal/ziparchive"
)

// Stats is a read-only snapshot of the engine's counters, used by the
// diagnostics server (SPEC_FULL.md §2 expansion). It never mutates engine
// state.
type Stats struct {
	CacheLen, CacheCap   int
	CacheHits, CacheMiss int64
	ProbeLen             int
	ArchiveHandles       int
	PassthroughHandles   int
	Opens, Reads         int64
	BytesRead            int64
}

// FS is the ZIP-browsing filesystem engine: everything needed to answer an
// FS Operation for a given virtual path, independent of the FUSE transport.
// Methods take a mount-relative virtual path and join it onto Root, matching
// spec.md §4.5's op(vpath) signatures directly, so they can be (and are)
// tested without a mounted filesystem.
type FS struct {
	Root     string
	Mapper   *nameremap.Mapper
	Prober   *archiveprobe.Prober
	Resolver *pathresolve.Resolver
	Cache    *archivecache.Cache
	Handles  *handletable.Table

	onLog func(format string, args ...any)

	cacheCapacity int

	opens, reads, bytesRead atomic.Int64
}

// New builds an [FS] rooted at rootDir, per SPEC_FULL.md §4.6's
// cachesize-derived probe-memo floor.
func New(rootDir string, mode nameremap.Mode, cacheSize int, onLog func(string, ...any)) *FS {
	if cacheSize < 1 {
		cacheSize = archivecache.DefaultCapacity
	}

	probeCapacity := archiveprobe.DefaultCapacity
	if twice := 2 * cacheSize; twice > probeCapacity {
		probeCapacity = twice
	}

	mapper := nameremap.New(mode)
	prober := archiveprobe.New(probeCapacity)

	fsys := &FS{
		Root:          rootDir,
		Mapper:        mapper,
		Prober:        prober,
		Resolver:      pathresolve.New(mapper, prober),
		Handles:       handletable.New(),
		onLog:         onLog,
		cacheCapacity: cacheSize,
	}

	fsys.Cache = archivecache.New(cacheSize, func(hostPath, reason string) {
		fsys.logf("archive cache evicted %s (%s)", hostPath, reason)
	})

	return fsys
}

// Close releases background resources (the archive cache's sweep
// goroutine). It does not close any still-open handle; the caller is
// expected to have already drained those via normal Release calls.
func (fsys *FS) Close() {
	fsys.Cache.Stop()
}

func (fsys *FS) logf(format string, args ...any) {
	if fsys.onLog != nil {
		fsys.onLog(format, args...)
	}
}

// Snapshot returns the current [Stats].
func (fsys *FS) Snapshot() Stats {
	hits, misses := fsys.Cache.Stats()
	archives, passthroughs := fsys.Handles.Counts()

	return Stats{
		CacheLen:           fsys.Cache.Len(),
		CacheCap:           fsys.cacheCapacity,
		CacheHits:          hits,
		CacheMiss:          misses,
		ProbeLen:           fsys.Prober.Len(),
		ArchiveHandles:     archives,
		PassthroughHandles: passthroughs,
		Opens:              fsys.opens.Load(),
		Reads:              fsys.reads.Load(),
		BytesRead:          fsys.bytesRead.Load(),
	}
}

// hostPath joins vpath onto the filesystem's root. Archive-name rewriting
// is resolved separately by the Path Resolver (via the Name Mapper's
// ReverseSegment), not here: a plain directory that happens to be named
// "foo.d" with no "foo.d.Zip" sibling must lstat unchanged, which a naive
// eager rewrite of this join would break.
func (fsys *FS) hostPath(vpath string) string {
	return path.Join(fsys.Root, vpath)
}

// Attr describes a resolved virtual path's metadata, independent of any
// FUSE type.
type Attr struct {
	Mode    os.FileMode
	Size    uint64
	ModTime time.Time
}

// Getattr implements spec.md §4.5's getattr rule.
func (fsys *FS) Getattr(vpath string) (Attr, error) {
	if fsys.Mapper.RejectPath(vpath) {
		return Attr{}, ErrNotExist
	}

	hpath := fsys.hostPath(vpath)

	res := fsys.Resolver.Resolve(hpath)
	if !res.IsArchiveBacked() {
		info, err := os.Lstat(hpath)
		if err != nil {
			return Attr{}, hostStatErr(err)
		}

		return Attr{Mode: info.Mode(), Size: uint64(info.Size()), ModTime: info.ModTime()}, nil
	}

	if res.SubPath == "" {
		info, err := os.Lstat(res.Archive)
		if err != nil {
			return Attr{}, hostStatErr(err)
		}

		return Attr{
			Mode:    os.ModeDir | (info.Mode().Perm() & 0o555),
			Size:    uint64(info.Size()),
			ModTime: info.ModTime(),
		}, nil
	}

	arc, err := fsys.Cache.Get(res.Archive)
	if err != nil {
		return Attr{}, ErrIO
	}
	defer arc.Release() //nolint:errcheck

	file, isDir, found := arc.Lookup(res.SubPath)
	if !found {
		return Attr{}, ErrNotExist
	}

	if isDir {
		size := uint64(0)
		mtime := arc.Mtime

		if file != nil {
			size = file.UncompressedSize64
			mtime = ziparchive.EntryModTime(file, arc.Mtime)
		}

		return Attr{Mode: os.ModeDir | 0o555, Size: size, ModTime: mtime}, nil
	}

	return Attr{
		Mode:    0o555, //nolint:mnd
		Size:    file.UncompressedSize64,
		ModTime: ziparchive.EntryModTime(file, arc.Mtime),
	}, nil
}

// Access implements spec.md §4.5's access rule: every write bit is denied
// for an archive-backed path, and a pass-through path defers to the host.
func (fsys *FS) Access(vpath string, mask uint32) error {
	if fsys.Mapper.RejectPath(vpath) {
		return ErrNotExist
	}

	hpath := fsys.hostPath(vpath)

	res := fsys.Resolver.Resolve(hpath)
	if res.IsArchiveBacked() {
		if mask&unix.W_OK != 0 {
			return ErrReadOnly
		}

		return nil
	}

	if err := unix.Access(hpath, mask); err != nil {
		return ErrPermission
	}

	return nil
}

// DirEntry is one entry returned by [FS.Readdir].
type DirEntry struct {
	Name  string
	IsDir bool
}

// Readdir implements spec.md §4.5's readdir rule.
func (fsys *FS) Readdir(vpath string) ([]DirEntry, error) {
	if fsys.Mapper.RejectPath(vpath) {
		return nil, ErrNotExist
	}

	hpath := fsys.hostPath(vpath)

	res := fsys.Resolver.Resolve(hpath)
	if !res.IsArchiveBacked() {
		entries, err := os.ReadDir(hpath)
		if err != nil {
			return nil, hostStatErr(err)
		}

		out := make([]DirEntry, 0, len(entries))

		for _, e := range entries {
			name := fsys.Mapper.HostNameToVirtual(e.Name())
			isDir := e.IsDir() || name != e.Name() // a rewritten archive always presents as a directory

			out = append(out, DirEntry{Name: name, IsDir: isDir})
		}

		return out, nil
	}

	arc, err := fsys.Cache.Get(res.Archive)
	if err != nil {
		return nil, ErrIO
	}
	defer arc.Release() //nolint:errcheck

	children := arc.Children(res.SubPath)
	out := make([]DirEntry, 0, len(children))

	for _, c := range children {
		out = append(out, DirEntry{Name: c.Name, IsDir: c.IsDir})
	}

	return out, nil
}

// Open implements spec.md §4.5's open rule, allocating a handle-table
// entry and returning its id.
func (fsys *FS) Open(vpath string, flags fuse.OpenFlags) (uint64, error) {
	if fsys.Mapper.RejectPath(vpath) {
		return 0, ErrNotExist
	}

	if isWriteIntent(flags) {
		return 0, ErrReadOnly
	}

	hpath := fsys.hostPath(vpath)

	res := fsys.Resolver.Resolve(hpath)
	if res.IsArchiveBacked() {
		id, err := fsys.openArchiveEntry(res)
		if err == nil {
			fsys.opens.Add(1)
		}

		return id, err
	}

	f, err := os.OpenFile(hpath, os.O_RDONLY, 0)
	if err != nil {
		return 0, hostStatErr(err)
	}

	fsys.opens.Add(1)

	return fsys.Handles.OpenPassthrough(f), nil
}

func (fsys *FS) openArchiveEntry(res pathresolve.Result) (uint64, error) {
	arc, err := fsys.Cache.Get(res.Archive)
	if err != nil {
		return 0, ErrIO
	}

	file, isDir, found := arc.Lookup(res.SubPath)
	if !found || isDir {
		_ = arc.Release()

		return 0, ErrNotExist
	}

	reader, err := ziparchive.OpenEntry(file)
	if err != nil {
		_ = arc.Release()

		return 0, ErrIO
	}

	id := fsys.Handles.OpenArchiveStream(&handletable.ArchiveStream{
		Archive: arc,
		Reader:  reader,
		Path:    file.Name,
	})

	return id, nil
}

// Read implements spec.md §4.5's read rule, including the non-seekable
// rewind-and-reopen fallback from spec.md §9.
func (fsys *FS) Read(fh uint64, offset int64, size int) ([]byte, error) {
	if handletable.IsArchiveHandle(fh) {
		data, err := fsys.readArchive(fh, offset, size)
		if err == nil {
			fsys.reads.Add(1)
			fsys.bytesRead.Add(int64(len(data)))
		}

		return data, err
	}

	pt, ok := fsys.Handles.Passthrough(fh)
	if !ok {
		return nil, ErrBadFD
	}

	pt.Lock()
	defer pt.Unlock()

	buf := make([]byte, size)

	n, err := pt.F.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ErrIO
	}

	fsys.reads.Add(1)
	fsys.bytesRead.Add(int64(n))

	return buf[:n], nil
}

func (fsys *FS) readArchive(fh uint64, offset int64, size int) ([]byte, error) {
	stream, ok := fsys.Handles.ArchiveStream(fh)
	if !ok {
		return nil, ErrBadFD
	}

	stream.Archive.Lock()
	defer stream.Archive.Unlock()

	if stream.Reader.Offset() != offset {
		if _, err := stream.Reader.ForwardTo(offset); err != nil {
			if !errors.Is(err, ziparchive.ErrNonSeekableRewind) {
				return nil, ErrIO
			}

			if err := fsys.reopenStream(fh, stream, offset); err != nil {
				return nil, err
			}
		}
	}

	buf := make([]byte, size)

	n, err := stream.Reader.ReadAt(buf)
	if err != nil {
		return nil, ErrIO
	}

	return buf[:n], nil
}

// reopenStream reopens a non-seekable entry stream from the start and
// forwards it to offset, replacing the handle-table entry in place.
func (fsys *FS) reopenStream(fh uint64, stream *handletable.ArchiveStream, offset int64) error {
	file := stream.Archive.Find(stream.Path)
	if file == nil {
		return ErrIO
	}

	_ = stream.Reader.Close()

	newReader, err := ziparchive.OpenEntry(file)
	if err != nil {
		return ErrIO
	}

	stream.Reader = newReader
	fsys.Handles.ReplaceArchiveStream(fh, stream)

	if _, err := stream.Reader.ForwardTo(offset); err != nil {
		return ErrIO
	}

	return nil
}

// Release implements spec.md §4.5's release rule: it never fails the
// caller, regardless of what closing the underlying resource returns.
func (fsys *FS) Release(fh uint64) {
	stream, pt := fsys.Handles.Release(fh)

	switch {
	case stream != nil:
		stream.Archive.Lock()
		_ = stream.Reader.Close()
		stream.Archive.Unlock()
		_ = stream.Archive.Release()
	case pt != nil:
		pt.Lock()
		_ = pt.F.Close()
		pt.Unlock()
	}
}

// Statfs implements spec.md §4.5's statfs rule: it always reports the host
// filesystem underneath vpath, whether or not vpath is archive-backed.
func (fsys *FS) Statfs(vpath string) (unix.Statfs_t, error) {
	hpath := fsys.hostPath(vpath)
	if res := fsys.Resolver.Resolve(hpath); res.IsArchiveBacked() {
		hpath = res.Archive
	}

	var st unix.Statfs_t
	if err := unix.Statfs(hpath, &st); err != nil {
		return unix.Statfs_t{}, ErrIO
	}

	return st, nil
}

// isWriteIntent reports whether flags request anything beyond a read-only
// open, per spec.md §4.5's open rule.
func isWriteIntent(flags fuse.OpenFlags) bool {
	return !flags.IsReadOnly() || flags&fuse.OpenTruncate != 0 || flags&fuse.OpenAppend != 0
}

// hostStatErr maps a host-filesystem error from a pass-through stat/open/
// readdir call onto the zipvfs error taxonomy.
func hostStatErr(err error) error {
	switch {
	case os.IsNotExist(err):
		return ErrNotExist
	case os.IsPermission(err):
		return ErrPermission
	default:
		return ErrIO
	}
}
