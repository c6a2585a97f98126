package archiveprobe

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, dir, name string) string {
	t.Helper()

	p := filepath.Join(dir, name)

	f, err := os.Create(p)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("hello.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return p
}

func Test_New_ClampsBelowDefaultCapacity(t *testing.T) {
	p := New(1)
	require.NotNil(t, p.cache)
}

func Test_IsArchive_ValidZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeTestZip(t, dir, "archive.zip")

	info, err := os.Stat(zipPath)
	require.NoError(t, err)

	p := New(DefaultCapacity)
	require.True(t, p.IsArchive(zipPath, info.ModTime()))
	require.Equal(t, 1, p.Len())
}

func Test_IsArchive_NotAZip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	p := New(DefaultCapacity)
	require.False(t, p.IsArchive(path, info.ModTime()))
}

func Test_IsArchive_CachesByMtime(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeTestZip(t, dir, "archive.zip")

	p := New(DefaultCapacity)

	mtime := time.Now()
	require.True(t, p.IsArchive(zipPath, mtime))
	require.Equal(t, 1, p.Len())

	// Same key hits the memo rather than re-probing.
	require.True(t, p.IsArchive(zipPath, mtime))
	require.Equal(t, 1, p.Len())

	// A different mtime is a different key (e.g. after the file changed).
	require.True(t, p.IsArchive(zipPath, mtime.Add(time.Second)))
	require.Equal(t, 2, p.Len())
}

func Test_IsArchive_MissingFile(t *testing.T) {
	p := New(DefaultCapacity)
	require.False(t, p.IsArchive("/does/not/exist.zip", time.Now()))
}
