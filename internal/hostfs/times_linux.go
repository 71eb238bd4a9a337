package hostfs

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func fileTimes(path string) (modified, accessed, created time.Time, err error) {
	var st unix.Statx_t
	mask := unix.STATX_MTIME | unix.STATX_ATIME | unix.STATX_BTIME
	if err = unix.Statx(unix.AT_FDCWD, path, 0, mask, &st); err != nil {
		return modified, accessed, created, &os.PathError{Op: "statx", Path: path, Err: err}
	}
	modified = time.Unix(st.Mtime.Sec, int64(st.Mtime.Nsec))
	accessed = time.Unix(st.Atime.Sec, int64(st.Atime.Nsec))
	if st.Mask&unix.STATX_BTIME != 0 {
		created = time.Unix(st.Btime.Sec, int64(st.Btime.Nsec))
	}
	return modified, accessed, created, nil
}
