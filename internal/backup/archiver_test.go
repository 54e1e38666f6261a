package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSourceTree builds a small directory tree to archive
func makeSourceTree(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "photos")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "2024", "trip"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "readme.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "2024", "a.jpg"), []byte("jpeg-a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "2024", "trip", "b.jpg"), []byte("jpeg-b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "skip.tmp"), []byte("scratch"), 0o644))
	return src
}

func newTestBuilder(destDir string, excludes []string, dryRun bool) *ArchiveBuilder {
	b := NewArchiveBuilder(BuilderConfig{
		DestDir:         destDir,
		ArchivePrefix:   "backup",
		Compression:     CompressionGzip,
		ChecksumAlgo:    ChecksumSHA256,
		ExcludePatterns: excludes,
		DryRun:          dryRun,
	}, nil)
	b.now = func() time.Time {
		return time.Date(2024, 1, 10, 3, 0, 0, 0, time.Local)
	}
	return b
}

// tarEntries lists member names of a gzip tar archive
func tarEntries(t *testing.T, archivePath string) []string {
	t.Helper()
	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
		_, err = io.Copy(io.Discard, tr)
		require.NoError(t, err)
	}
	sort.Strings(names)
	return names
}

func TestBuild_CreatesTimestampedArchive(t *testing.T) {
	src := makeSourceTree(t)
	dest := t.TempDir()

	archive, err := newTestBuilder(dest, nil, false).Build(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "backup-2024-01-10-030000.tar.gz", archive.Name)
	assert.Equal(t, filepath.Join(dest, archive.Name), archive.Path)
	assert.Positive(t, archive.Size)

	names := tarEntries(t, archive.Path)
	assert.Equal(t, []string{
		"photos/",
		"photos/2024/",
		"photos/2024/a.jpg",
		"photos/2024/trip/",
		"photos/2024/trip/b.jpg",
		"photos/readme.txt",
		"photos/skip.tmp",
	}, names)
}

func TestBuild_ExcludePatterns(t *testing.T) {
	src := makeSourceTree(t)
	dest := t.TempDir()

	archive, err := newTestBuilder(dest, []string{"*.tmp", "trip"}, false).Build(context.Background(), src)
	require.NoError(t, err)

	names := tarEntries(t, archive.Path)
	assert.NotContains(t, names, "photos/skip.tmp")
	assert.NotContains(t, names, "photos/2024/trip/")
	assert.NotContains(t, names, "photos/2024/trip/b.jpg")
	assert.Contains(t, names, "photos/2024/a.jpg")
}

func TestBuild_ExcludeRelativePath(t *testing.T) {
	src := makeSourceTree(t)
	dest := t.TempDir()

	archive, err := newTestBuilder(dest, []string{"2024/a.jpg"}, false).Build(context.Background(), src)
	require.NoError(t, err)

	names := tarEntries(t, archive.Path)
	assert.NotContains(t, names, "photos/2024/a.jpg")
	assert.Contains(t, names, "photos/2024/trip/b.jpg")
}

func TestBuild_SymlinkPreserved(t *testing.T) {
	src := makeSourceTree(t)
	require.NoError(t, os.Symlink("readme.txt", filepath.Join(src, "link")))
	dest := t.TempDir()

	archive, err := newTestBuilder(dest, nil, false).Build(context.Background(), src)
	require.NoError(t, err)

	f, err := os.Open(archive.Path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	found := false
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if header.Name == "photos/link" {
			found = true
			assert.Equal(t, byte(tar.TypeSymlink), header.Typeflag)
			assert.Equal(t, "readme.txt", header.Linkname)
		}
	}
	assert.True(t, found, "symlink member missing from archive")
}

func TestBuild_MissingSource(t *testing.T) {
	builder := newTestBuilder(t.TempDir(), nil, false)
	_, err := builder.Build(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuild_SourceIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := newTestBuilder(t.TempDir(), nil, false).Build(context.Background(), file)
	assert.ErrorIs(t, err, ErrBuild)
}

func TestBuild_DryRunWritesNothing(t *testing.T) {
	src := makeSourceTree(t)
	dest := t.TempDir()

	archive, err := newTestBuilder(dest, nil, true).Build(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "backup-2024-01-10-030000.tar.gz", archive.Name)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuild_CancelledContext(t *testing.T) {
	src := makeSourceTree(t)
	dest := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBuilder(dest, nil, false).Build(ctx, src)
	require.Error(t, err)

	// No partial artifact left behind.
	entries, readErr := os.ReadDir(dest)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestParseExcludePatterns(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "*.tmp", []string{"*.tmp"}},
		{"multiple with spaces", " *.tmp, cache , *.log", []string{"*.tmp", "cache", "*.log"}},
		{"trailing comma", "*.tmp,", []string{"*.tmp"}},
		{"only commas", ",,,", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseExcludePatterns(tt.raw))
		})
	}
}
