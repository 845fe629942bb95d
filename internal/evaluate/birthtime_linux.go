//go:build linux

package evaluate

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// FileCreationTime returns the file's birth time, falling back to the
// modification time when the filesystem does not record one.
func FileCreationTime(path string) (time.Time, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME|unix.STATX_MTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, statErr)
	}
	return info.ModTime(), nil
}
