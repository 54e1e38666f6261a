package backup

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tarkeep/internal/logging"
)

// IntegritySealer computes content digests for archives and persists them as
// sidecar digest records. The sidecar format matches the coreutils checksum
// tools: "<hex digest>  <basename>".
type IntegritySealer struct {
	algo   ChecksumAlgo
	dryRun bool
	logger *logging.Logger
}

// NewIntegritySealer creates a sealer for the given algorithm
func NewIntegritySealer(algo ChecksumAlgo, dryRun bool, logger *logging.Logger) *IntegritySealer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &IntegritySealer{algo: algo, dryRun: dryRun, logger: logger}
}

// newHash returns a fresh hash for the algorithm
func newHash(algo ChecksumAlgo) (hash.Hash, error) {
	switch algo {
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumMD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", algo)
	}
}

// DigestFile computes the hex digest of a file's full contents
func DigestFile(path string, algo ChecksumAlgo) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Seal computes the archive digest and writes the sidecar record
func (s *IntegritySealer) Seal(archivePath string) (*DigestRecord, error) {
	sidecar := archivePath + "." + string(s.algo)
	record := &DigestRecord{
		Path:    sidecar,
		Archive: filepath.Base(archivePath),
		Algo:    s.algo,
	}

	if s.dryRun {
		s.logger.Infof("Dry run: would seal %s with %s digest %s", filepath.Base(archivePath), s.algo, sidecar)
		return record, nil
	}

	digest, err := DigestFile(archivePath, s.algo)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("archive %s does not exist", archivePath), err)
		}
		return nil, NewBuildError(fmt.Sprintf("failed to digest archive %s", archivePath), err)
	}
	record.Digest = digest

	line := fmt.Sprintf("%s  %s\n", digest, record.Archive)
	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil {
		return nil, NewBuildError(fmt.Sprintf("failed to write digest record %s", sidecar), err)
	}

	s.logger.Infof("Sealed %s (%s: %s)", record.Archive, s.algo, digest)
	return record, nil
}

// ReadDigestRecord parses a digest sidecar file
func ReadDigestRecord(path string, algo ChecksumAlgo) (*DigestRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return nil, fmt.Errorf("digest record %s is empty", path)
	}

	record := &DigestRecord{
		Path:   path,
		Digest: fields[0],
		Algo:   algo,
	}
	if len(fields) > 1 {
		record.Archive = fields[1]
	}
	return record, nil
}
