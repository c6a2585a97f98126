package zipvfs

import (
	"context"
	"path"
	"sort"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

var (
	_ fs.FS               = (*FS)(nil)
	_ fs.FSInodeGenerator = (*FS)(nil)

	_ fs.Node              = (*node)(nil)
	_ fs.NodeStringLookuper = (*node)(nil)
	_ fs.HandleReadDirAller = (*node)(nil)
	_ fs.NodeAccesser       = (*node)(nil)
	_ fs.NodeStatfser       = (*node)(nil)
	_ fs.NodeOpener         = (*node)(nil)
)

// Root returns the mount's root node, satisfying fs.FS.
func (fsys *FS) Root() (fs.Node, error) {
	return &node{fsys: fsys, inode: 1, vpath: "/"}, nil
}

// GenerateInode is bazil.org/fuse's fallback for an Attr with a zero
// Inode; every node here sets one explicitly via fs.GenerateDynamicInode
// (see node.Lookup), so this path should be unreachable.
func (fsys *FS) GenerateInode(_ uint64, _ string) uint64 {
	panic("unhandled zero inode triggered an illegal dynamic generation")
}

// node is one resolved point in the virtual tree: a full virtual path plus
// the engine it was resolved against. All actual resolution logic lives in
// [FS]'s methods (ops.go); node only translates to and from bazil.org/
// fuse's types.
type node struct {
	fsys  *FS
	inode uint64
	vpath string
}

func (n *node) Attr(_ context.Context, a *fuse.Attr) error {
	attr, err := n.fsys.Getattr(n.vpath)
	if err != nil {
		return ToErrno(err)
	}

	a.Inode = n.inode
	a.Mode = attr.Mode
	a.Size = attr.Size
	a.Mtime = attr.ModTime
	a.Atime = attr.ModTime
	a.Ctime = attr.ModTime

	return nil
}

func (n *node) Lookup(_ context.Context, name string) (fs.Node, error) {
	child := path.Join(n.vpath, name)

	if _, err := n.fsys.Getattr(child); err != nil {
		return nil, ToErrno(err)
	}

	return &node{
		fsys:  n.fsys,
		inode: fs.GenerateDynamicInode(n.inode, name),
		vpath: child,
	}, nil
}

func (n *node) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	entries, err := n.fsys.Readdir(n.vpath)
	if err != nil {
		return nil, ToErrno(err)
	}

	out := make([]fuse.Dirent, 0, len(entries))

	for _, e := range entries {
		dt := fuse.DT_File
		if e.IsDir {
			dt = fuse.DT_Dir
		}

		out = append(out, fuse.Dirent{
			Inode: fs.GenerateDynamicInode(n.inode, e.Name),
			Type:  dt,
			Name:  e.Name,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (n *node) Access(_ context.Context, req *fuse.AccessRequest) error {
	return ToErrno(n.fsys.Access(n.vpath, req.Mask))
}

func (n *node) Statfs(_ context.Context, _ *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	st, err := n.fsys.Statfs(n.vpath)
	if err != nil {
		return ToErrno(err)
	}

	resp.Blocks = st.Blocks
	resp.Bfree = st.Bfree
	resp.Bavail = st.Bavail
	resp.Files = st.Files
	resp.Ffree = st.Ffree
	resp.Bsize = uint32(st.Bsize)   //nolint:gosec
	resp.Namelen = uint32(st.Namelen) //nolint:gosec
	resp.Frsize = uint32(st.Frsize) //nolint:gosec

	return nil
}

func (n *node) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	id, err := n.fsys.Open(n.vpath, req.Flags)
	if err != nil {
		return nil, ToErrno(err)
	}

	resp.Flags |= fuse.OpenKeepCache

	return &handle{fsys: n.fsys, id: id}, nil
}
