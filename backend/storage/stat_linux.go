//go:build linux

package storage

import (
	"os"
	"syscall"
	"time"
)

// fileCreatedAt approximates the creation time from the inode change time.
// Linux does not expose a birth time through os.FileInfo.
func fileCreatedAt(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
