//go:build linux

package ingest

import (
	"os"
	"syscall"
)

// changeTime returns the inode change time, which is what the platform
// reports as creation time.
func changeTime(info os.FileInfo) float64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return float64(info.ModTime().UnixNano()) / 1e9
	}
	return float64(st.Ctim.Sec) + float64(st.Ctim.Nsec)/1e9
}
