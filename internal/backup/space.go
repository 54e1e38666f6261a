package backup

import (
	"golang.org/x/sys/unix"
)

// freeSpaceMB reports the space (in MiB) available to unprivileged writers on
// the filesystem holding path. The probe is advisory: an error means the
// caller should warn and proceed, not abort.
func freeSpaceMB(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize) / (1024 * 1024), nil
}
