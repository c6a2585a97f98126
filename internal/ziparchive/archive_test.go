package ziparchive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchiveFile(t *testing.T, names []string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

func Test_Open_RefcountStartsAtOne(t *testing.T) {
	path := buildArchiveFile(t, []string{"a.txt"})

	a, err := Open(path, time.Now())
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck

	assert.Equal(t, int32(1), a.refs.Load())
}

func Test_AcquireRelease_ClosesAtZero(t *testing.T) {
	path := buildArchiveFile(t, []string{"a.txt"})

	a, err := Open(path, time.Now())
	require.NoError(t, err)

	a.Acquire()
	assert.Equal(t, int32(2), a.refs.Load())

	require.NoError(t, a.Release())
	assert.Equal(t, int32(1), a.refs.Load())

	require.NoError(t, a.Release())
	assert.Equal(t, int32(0), a.refs.Load())
}

func Test_Lookup_File(t *testing.T) {
	path := buildArchiveFile(t, []string{"dir/file.txt"})
	a, err := Open(path, time.Now())
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck

	f, isDir, found := a.Lookup("dir/file.txt")
	require.True(t, found)
	assert.False(t, isDir)
	assert.NotNil(t, f)
}

func Test_Lookup_ImplicitDir(t *testing.T) {
	path := buildArchiveFile(t, []string{"dir/file.txt"})
	a, err := Open(path, time.Now())
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck

	f, isDir, found := a.Lookup("dir")
	require.True(t, found)
	assert.True(t, isDir)
	assert.Nil(t, f)
}

func Test_Lookup_Root(t *testing.T) {
	path := buildArchiveFile(t, []string{"dir/file.txt"})
	a, err := Open(path, time.Now())
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck

	_, isDir, found := a.Lookup("")
	require.True(t, found)
	assert.True(t, isDir)
}

func Test_Lookup_NotFound(t *testing.T) {
	path := buildArchiveFile(t, []string{"dir/file.txt"})
	a, err := Open(path, time.Now())
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck

	_, _, found := a.Lookup("does/not/exist")
	assert.False(t, found)
}

func Test_Children_MixedDepth(t *testing.T) {
	path := buildArchiveFile(t, []string{
		"top.txt",
		"sub/a.txt",
		"sub/b.txt",
		"sub/nested/c.txt",
	})
	a, err := Open(path, time.Now())
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck

	children := a.Children("")
	byName := map[string]bool{}
	for _, c := range children {
		byName[c.Name] = c.IsDir
	}

	assert.Len(t, children, 2)
	assert.False(t, byName["top.txt"])
	assert.True(t, byName["sub"])
}

func Test_Children_Subdir(t *testing.T) {
	path := buildArchiveFile(t, []string{
		"sub/a.txt",
		"sub/nested/c.txt",
	})
	a, err := Open(path, time.Now())
	require.NoError(t, err)
	defer a.Release() //nolint:errcheck

	children := a.Children("sub")
	byName := map[string]bool{}
	for _, c := range children {
		byName[c.Name] = c.IsDir
	}

	assert.Len(t, children, 2)
	assert.False(t, byName["a.txt"])
	assert.True(t, byName["nested"])
}
