package extract

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the inode change time, the closest Linux has to a
// creation time without statx.
func createdTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	}
	return info.ModTime()
}
