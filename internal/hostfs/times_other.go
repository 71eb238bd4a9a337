//go:build !linux && !darwin

package hostfs

import (
	"os"
	"time"
)

func fileTimes(path string) (modified, accessed, created time.Time, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return modified, accessed, created, err
	}
	return info.ModTime(), info.ModTime(), time.Time{}, nil
}
