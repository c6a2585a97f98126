package zipvfs

import (
	"context"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

var (
	_ fs.Handle         = (*handle)(nil)
	_ fs.HandleReader   = (*handle)(nil)
	_ fs.HandleReleaser = (*handle)(nil)
)

// handle bridges a handletable entry (identified by id) to bazil.org/
// fuse's Handle interfaces. The handletable id has nothing to do with the
// opaque fuse.HandleID bazil assigns this value when the kernel opens it;
// the two id spaces are unrelated.
type handle struct {
	fsys *FS
	id   uint64
}

func (h *handle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := h.fsys.Read(h.id, req.Offset, req.Size)
	if err != nil {
		return ToErrno(err)
	}

	resp.Data = data

	return nil
}

func (h *handle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	h.fsys.Release(h.id)

	return nil
}
