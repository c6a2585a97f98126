package zipvfs

import (
	"errors"
	"syscall"

	"bazil.org/fuse"
)

// Sentinel errors returned by the FS Operations (ops.go), mapped onto
// fuse.Errno at the bazil glue boundary (node.go, handle.go) via [ToErrno].
// This mirrors spec.md §7's error taxonomy without threading fuse.Errno
// through code that is otherwise framework-agnostic.
var (
	// ErrNotExist is returned for a path that does not resolve to anything,
	// or that a reject pattern hides (ENOENT).
	ErrNotExist = errors.New("zipvfs: no such file or directory")

	// ErrReadOnly is returned for any operation that implies a write,
	// including opening with a write-capable flag (EROFS).
	ErrReadOnly = errors.New("zipvfs: read-only filesystem")

	// ErrPermission is returned when the host filesystem denies access
	// (EACCES).
	ErrPermission = errors.New("zipvfs: permission denied")

	// ErrBadFD is returned for an operation against an unknown handle id
	// (EBADF).
	ErrBadFD = errors.New("zipvfs: bad file descriptor")

	// ErrIO covers every other failure: a corrupt archive, a host I/O
	// error, or anything else unexpected (EIO).
	ErrIO = errors.New("zipvfs: input/output error")
)

// ToErrno maps a zipvfs sentinel error to the fuse.Errno the kernel bridge
// expects, defaulting to EIO for anything unrecognized (spec.md §7's "never
// crash the process" policy: an unmapped error still fails the single
// syscall, not the mount).
func ToErrno(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotExist):
		return fuse.ENOENT
	case errors.Is(err, ErrReadOnly):
		return fuse.Errno(syscall.EROFS)
	case errors.Is(err, ErrPermission):
		return fuse.Errno(syscall.EACCES)
	case errors.Is(err, ErrBadFD):
		return fuse.Errno(syscall.EBADF)
	default:
		return fuse.EIO
	}
}
