package hostfs

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func fileTimes(path string) (modified, accessed, created time.Time, err error) {
	var st unix.Stat_t
	if err = unix.Stat(path, &st); err != nil {
		return modified, accessed, created, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	modified = time.Unix(st.Mtimespec.Unix())
	accessed = time.Unix(st.Atimespec.Unix())
	if st.Birthtimespec.Sec != 0 {
		created = time.Unix(st.Birthtimespec.Unix())
	}
	return modified, accessed, created, nil
}
