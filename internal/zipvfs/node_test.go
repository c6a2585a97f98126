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

func Test_Root(t *testing.T) {
	fsys := newTestFS(t)

	n, err := fsys.Root()
	require.NoError(t, err)
	assert.IsType(t, &node{}, n)
}

func Test_GenerateInode_Panics(t *testing.T) {
	fsys := newTestFS(t)

	assert.Panics(t, func() {
		fsys.GenerateInode(1, "whatever")
	})
}

func Test_NodeAttr_PlainFile(t *testing.T) {
	fsys := newTestFS(t)
	n := &node{fsys: fsys, inode: 1, vpath: "/plain.txt"}

	var a fuse.Attr
	require.NoError(t, n.Attr(context.Background(), &a))
	assert.Equal(t, uint64(len("plain")), a.Size)
}

func Test_NodeLookup_FindsChild(t *testing.T) {
	fsys := newTestFS(t)
	root := &node{fsys: fsys, inode: 1, vpath: "/"}

	child, err := root.Lookup(context.Background(), "plain.txt")
	require.NoError(t, err)

	childNode, ok := child.(*node)
	require.True(t, ok)
	assert.Equal(t, "/plain.txt", childNode.vpath)
}

func Test_NodeLookup_Missing(t *testing.T) {
	fsys := newTestFS(t)
	root := &node{fsys: fsys, inode: 1, vpath: "/"}

	_, err := root.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, fuse.ENOENT)
}

func Test_NodeReadDirAll_SortedByName(t *testing.T) {
	fsys := newTestFS(t)
	n := &node{fsys: fsys, inode: 1, vpath: "/"}

	dirents, err := n.ReadDirAll(context.Background())
	require.NoError(t, err)
	require.True(t, len(dirents) >= 2) //nolint:testifylint

	for i := 1; i < len(dirents); i++ {
		assert.LessOrEqual(t, dirents[i-1].Name, dirents[i].Name)
	}
}

func Test_NodeAccess_Delegates(t *testing.T) {
	fsys := newTestFS(t)
	n := &node{fsys: fsys, inode: 1, vpath: "/archive.zip/inner/file.txt"}

	err := n.Access(context.Background(), &fuse.AccessRequest{Mask: 2}) //nolint:mnd // W_OK
	assert.ErrorIs(t, err, fuse.Errno(syscall.EROFS))
}

func Test_NodeStatfs_PopulatesResponse(t *testing.T) {
	fsys := newTestFS(t)
	n := &node{fsys: fsys, inode: 1, vpath: "/"}

	var resp fuse.StatfsResponse
	require.NoError(t, n.Statfs(context.Background(), &fuse.StatfsRequest{}, &resp))
	assert.Positive(t, resp.Bsize)
}

func Test_NodeOpen_SetsKeepCacheFlag(t *testing.T) {
	fsys := newTestFS(t)
	n := &node{fsys: fsys, inode: 1, vpath: "/plain.txt"}

	var resp fuse.OpenResponse

	h, err := n.Open(context.Background(), &fuse.OpenRequest{Flags: fuse.OpenFlags(os.O_RDONLY)}, &resp)
	require.NoError(t, err)
	assert.NotZero(t, resp.Flags&fuse.OpenKeepCache)

	hd, ok := h.(*handle)
	require.True(t, ok)
	fsys.Release(hd.id)
}
