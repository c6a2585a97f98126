package pathresolve

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophgil/zipvfs/internal/archiveprobe"
	"github.com/christophgil/zipvfs/internal/nameremap"
)

type fakeInfo struct {
	isDir bool
}

func (fakeInfo) Name() string       { return "" }
func (fakeInfo) Size() int64        { return 0 }
func (fakeInfo) Mode() os.FileMode  { return 0 }
func (fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool      { return f.isDir }
func (fakeInfo) Sys() any           { return nil }

func newResolver(t *testing.T, existingPaths map[string]bool) *Resolver {
	t.Helper()

	mapper := nameremap.New(nameremap.Identity)
	prober := archiveprobe.New(archiveprobe.DefaultCapacity)

	r := New(mapper, prober)
	r.WithStatFunc(func(p string) (os.FileInfo, error) {
		if existingPaths[p] {
			return fakeInfo{isDir: false}, nil
		}

		return nil, os.ErrNotExist
	})

	// Replace the prober's probe logic indirectly: since archiveprobe.New
	// only recognizes real ZIP files, tests instead rely on real archive
	// fixtures via writeTestZip-style helpers where IsArchive matters;
	// here we only test the structural resolution (suffix detection).
	return r
}

func Test_GetArchivePath_LiteralZipSuffix(t *testing.T) {
	r := newResolver(t, map[string]bool{})

	// candidateAt recognizes the literal .zip/.Zip suffix even before
	// consulting the prober, but probeIsArchive still requires a stat hit
	// and a true IsArchive result. This resolver's stat finds no path at
	// all, so a ".zip"-suffixed path with no archive behind it does not
	// resolve.
	archive, ok := r.GetArchivePath("/root/plain/archive.zip")
	assert.False(t, ok)
	assert.Empty(t, archive)
}

func Test_Resolve_NotArchiveBacked(t *testing.T) {
	r := newResolver(t, map[string]bool{})

	res := r.Resolve("/root/plain/file.txt")
	assert.False(t, res.IsArchiveBacked())
	assert.Empty(t, res.Archive)
}

func Test_candidateAt_ReverseSegmentTakesPriority(t *testing.T) {
	mapper := nameremap.New(nameremap.StripSuffix).WithExistsFunc(func(p string) bool {
		return p == "/root/archive.d.Zip"
	})
	prober := archiveprobe.New(archiveprobe.DefaultCapacity)
	r := New(mapper, prober)

	candidate, ok := r.candidateAt("/root/archive.d", len("/root/archive.d"))
	require.True(t, ok)
	assert.Equal(t, "/root/archive.d.Zip", candidate)
}

func Test_candidateAt_LiteralSuffixFallback(t *testing.T) {
	mapper := nameremap.New(nameremap.Identity)
	prober := archiveprobe.New(archiveprobe.DefaultCapacity)
	r := New(mapper, prober)

	candidate, ok := r.candidateAt("/root/archive.zip", len("/root/archive.zip"))
	require.True(t, ok)
	assert.Equal(t, "/root/archive.zip", candidate)
}

func Test_candidateAt_NoMatch(t *testing.T) {
	mapper := nameremap.New(nameremap.Identity)
	prober := archiveprobe.New(archiveprobe.DefaultCapacity)
	r := New(mapper, prober)

	_, ok := r.candidateAt("/root/plain", len("/root/plain"))
	assert.False(t, ok)
}

func Test_Resolve_EndToEnd_ArchiveBacked(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "archive.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner/file.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	mapper := nameremap.New(nameremap.Identity)
	prober := archiveprobe.New(archiveprobe.DefaultCapacity)
	r := New(mapper, prober)

	res := r.Resolve(zipPath + "/inner/file.txt")
	require.True(t, res.IsArchiveBacked())
	assert.Equal(t, zipPath, res.Archive)
	assert.Equal(t, "inner/file.txt", res.SubPath)

	rootRes := r.Resolve(zipPath)
	require.True(t, rootRes.IsArchiveBacked())
	assert.Empty(t, rootRes.SubPath)
}
