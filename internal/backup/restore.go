package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tarkeep/internal/logging"
)

// RestoreExecutor extracts a chosen archive into a target directory,
// preserving relative paths and overwriting colliding entries.
type RestoreExecutor struct {
	dryRun      bool
	logger      *logging.Logger
	compression *CompressionManager
}

// NewRestoreExecutor creates a new restore executor
func NewRestoreExecutor(dryRun bool, logger *logging.Logger) *RestoreExecutor {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RestoreExecutor{
		dryRun:      dryRun,
		logger:      logger,
		compression: NewCompressionManager(),
	}
}

// Restore extracts archivePath into targetDir, creating it if absent.
// Extraction failure is fatal for the restore.
func (r *RestoreExecutor) Restore(ctx context.Context, archivePath, targetDir string) error {
	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return NewNotFoundError(fmt.Sprintf("archive %s does not exist", archivePath), err)
		}
		return NewExtractError(fmt.Sprintf("failed to stat archive %s", archivePath), err)
	}

	codec, ok := codecForName(filepath.Base(archivePath))
	if !ok {
		return NewExtractError(fmt.Sprintf("unrecognized archive extension on %s", archivePath), nil)
	}

	if r.dryRun {
		r.logger.Infof("Dry run: would extract %s to %s", archivePath, targetDir)
		return nil
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return NewExtractError(fmt.Sprintf("failed to create target directory %s", targetDir), err)
	}

	r.logger.Infof("Extracting %s to %s", archivePath, targetDir)

	compressor, err := r.compression.GetCompressor(codec)
	if err != nil {
		return NewExtractError("unsupported archive codec", err)
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return NewExtractError(fmt.Sprintf("failed to open archive %s", archivePath), err)
	}
	defer file.Close()

	cr, err := compressor.NewReader(file)
	if err != nil {
		return NewExtractError(fmt.Sprintf("failed to open compressed stream of %s", archivePath), err)
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	entries := 0
	for {
		select {
		case <-ctx.Done():
			return NewExtractError("restore canceled", ctx.Err())
		default:
		}

		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return NewExtractError(fmt.Sprintf("failed to read archive %s", archivePath), err)
		}

		if err := extractEntry(tr, header, targetDir); err != nil {
			return NewExtractError(fmt.Sprintf("failed to extract %s", header.Name), err)
		}
		entries++
	}

	r.logger.Infof("Extracted %d entries to %s", entries, targetDir)
	return nil
}

// extractEntry writes one tar entry under dir. Entries that would escape dir
// are rejected.
func extractEntry(tr *tar.Reader, header *tar.Header, dir string) error {
	name := filepath.FromSlash(header.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("archive entry %q escapes the target directory", header.Name)
	}
	target := filepath.Join(dir, name)

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, os.FileMode(header.Mode).Perm()|0o100)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		os.Remove(target)
		return os.Symlink(header.Linkname, target)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	default:
		// Device nodes and the like are skipped, not fatal.
		return nil
	}
}
