package zipvfs

import (
	"context"
	"os"
	"syscall"
	"testing"

	"bazil.org/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HandleRead_ArchiveEntry(t *testing.T) {
	fsys := newTestFS(t)

	fh, err := fsys.Open("/archive.zip/inner/file.txt", fuse.OpenFlags(os.O_RDONLY))
	require.NoError(t, err)

	h := &handle{fsys: fsys, id: fh}
	defer func() {
		require.NoError(t, h.Release(context.Background(), &fuse.ReleaseRequest{}))
	}()

	var resp fuse.ReadResponse
	err = h.Read(context.Background(), &fuse.ReadRequest{Offset: 0, Size: 64}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "hello from zip", string(resp.Data))
}

func Test_HandleRead_BadFD(t *testing.T) {
	fsys := newTestFS(t)
	h := &handle{fsys: fsys, id: 999999}

	var resp fuse.ReadResponse
	err := h.Read(context.Background(), &fuse.ReadRequest{Offset: 0, Size: 16}, &resp)
	assert.ErrorIs(t, err, fuse.Errno(syscall.EBADF))
}

func Test_HandleRelease_NeverErrors(t *testing.T) {
	fsys := newTestFS(t)
	h := &handle{fsys: fsys, id: 42}

	assert.NoError(t, h.Release(context.Background(), &fuse.ReleaseRequest{}))
}
