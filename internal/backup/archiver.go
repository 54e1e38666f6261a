package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"tarkeep/internal/logging"
)

// ArchiveBuilder packages a source directory into a compressed, sealed,
// timestamp-named tar archive in the destination directory.
type ArchiveBuilder struct {
	destDir     string
	prefix      string
	codec       CompressionType
	algo        ChecksumAlgo
	excludes    []string
	minFreeMB   uint64
	dryRun      bool
	logger      *logging.Logger
	compression *CompressionManager

	// now is swappable so tests control the embedded timestamp
	now func() time.Time
}

// BuilderConfig holds archive builder configuration
type BuilderConfig struct {
	DestDir         string
	ArchivePrefix   string
	Compression     CompressionType
	ChecksumAlgo    ChecksumAlgo
	ExcludePatterns []string
	MinFreeMB       uint64
	DryRun          bool
}

// NewArchiveBuilder creates a new archive builder
func NewArchiveBuilder(config BuilderConfig, logger *logging.Logger) *ArchiveBuilder {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ArchiveBuilder{
		destDir:     config.DestDir,
		prefix:      config.ArchivePrefix,
		codec:       config.Compression,
		algo:        config.ChecksumAlgo,
		excludes:    config.ExcludePatterns,
		minFreeMB:   config.MinFreeMB,
		dryRun:      config.DryRun,
		logger:      logger,
		compression: NewCompressionManager(),
	}
}

// ParseExcludePatterns splits a comma-separated glob list into patterns,
// trimming surrounding whitespace and dropping empty entries.
func ParseExcludePatterns(raw string) []string {
	var patterns []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			patterns = append(patterns, entry)
		}
	}
	return patterns
}

// Build archives sourceDir into a new archive artifact. The source directory
// itself is the single top-level member of the container. Any archiving
// failure is fatal for the run and surfaces as ErrBuild.
func (b *ArchiveBuilder) Build(ctx context.Context, sourceDir string) (*Archive, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("source directory %s does not exist", sourceDir), err)
		}
		if os.IsPermission(err) {
			return nil, NewPermissionError(fmt.Sprintf("source directory %s is not readable", sourceDir), err)
		}
		return nil, NewBuildError(fmt.Sprintf("failed to stat source directory %s", sourceDir), err)
	}
	if !info.IsDir() {
		return nil, NewBuildError(fmt.Sprintf("source %s is not a directory", sourceDir), nil)
	}

	b.checkFreeSpace()

	ts := b.now
	if ts == nil {
		ts = time.Now
	}
	createdAt := ts()
	name := ArchiveName(b.prefix, createdAt, b.codec)
	target := filepath.Join(b.destDir, name)

	archive := &Archive{
		Path:      target,
		Name:      name,
		CreatedAt: createdAt.Truncate(time.Second),
		Algo:      b.algo,
		Codec:     b.codec,
	}

	if len(b.excludes) > 0 {
		b.logger.Infof("Exclude patterns: %s", strings.Join(b.excludes, ", "))
	}

	if b.dryRun {
		b.logger.Infof("Dry run: would archive %s to %s", sourceDir, target)
		return archive, nil
	}

	b.logger.Infof("Archiving %s to %s", sourceDir, target)

	if err := b.writeArchive(ctx, sourceDir, target); err != nil {
		// Leave no partial artifact behind on failure.
		os.Remove(target)
		return nil, err
	}

	written, err := os.Stat(target)
	if err != nil {
		return nil, NewBuildError(fmt.Sprintf("failed to stat created archive %s", target), err)
	}
	archive.Size = written.Size()

	return archive, nil
}

// checkFreeSpace warns or fails fast before any write. An unanswerable probe
// is non-fatal; a determinate shortfall is.
func (b *ArchiveBuilder) checkFreeSpace() {
	if b.minFreeMB == 0 {
		return
	}
	free, err := freeSpaceMB(b.destDir)
	if err != nil {
		b.logger.Warnf("Could not determine free space for %s: %v", b.destDir, err)
		return
	}
	if free < b.minFreeMB {
		b.logger.Warnf("Destination %s has %d MB free, below the configured %d MB minimum", b.destDir, free, b.minFreeMB)
	}
}

// EnsureFreeSpace is the fatal variant of the advisory probe, run by the
// pipeline before the first destination write.
func (b *ArchiveBuilder) EnsureFreeSpace() error {
	if b.minFreeMB == 0 {
		return nil
	}
	free, err := freeSpaceMB(b.destDir)
	if err != nil {
		b.logger.Warnf("Could not determine free space for %s: %v", b.destDir, err)
		return nil
	}
	if free < b.minFreeMB {
		return NewInsufficientSpaceError(fmt.Sprintf("destination %s has %d MB free, need %d MB", b.destDir, free, b.minFreeMB))
	}
	return nil
}

func (b *ArchiveBuilder) writeArchive(ctx context.Context, sourceDir, target string) error {
	compressor, err := b.compression.GetCompressor(b.codec)
	if err != nil {
		return err
	}

	out, err := os.Create(target)
	if err != nil {
		return NewBuildError(fmt.Sprintf("failed to create archive %s", target), err)
	}
	defer out.Close()

	cw, err := compressor.NewWriter(out)
	if err != nil {
		return NewBuildError("failed to initialize compression", err)
	}

	tw := tar.NewWriter(cw)
	base := filepath.Base(filepath.Clean(sourceDir))

	walkErr := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		entry := base
		if rel != "." {
			entry = path.Join(base, filepath.ToSlash(rel))
		}

		if rel != "." && b.excluded(filepath.ToSlash(rel), d.Name()) {
			b.logger.Debugf("Excluding %s", entry)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return b.writeEntry(tw, p, entry, d)
	})
	if walkErr != nil {
		tw.Close()
		cw.Close()
		return NewBuildError(fmt.Sprintf("failed to archive %s", sourceDir), walkErr)
	}

	if err := tw.Close(); err != nil {
		cw.Close()
		return NewBuildError("failed to finalize tar stream", err)
	}
	if err := cw.Close(); err != nil {
		return NewBuildError("failed to finalize compressed stream", err)
	}
	if err := out.Close(); err != nil {
		return NewBuildError(fmt.Sprintf("failed to flush archive %s", target), err)
	}
	return nil
}

func (b *ArchiveBuilder) writeEntry(tw *tar.Writer, p, entry string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(p); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = entry
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	file, err := os.Open(p)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(tw, file)
	return err
}

// excluded matches an archive-relative slash path and its basename against
// the configured glob patterns.
func (b *ArchiveBuilder) excluded(rel, name string) bool {
	for _, pattern := range b.excludes {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
