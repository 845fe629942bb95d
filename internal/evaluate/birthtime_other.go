//go:build !linux

package evaluate

import (
	"fmt"
	"os"
	"time"
)

// FileCreationTime returns the file's modification time.
func FileCreationTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
