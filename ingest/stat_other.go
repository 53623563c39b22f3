//go:build !linux

package ingest

import "os"

func changeTime(info os.FileInfo) float64 {
	return float64(info.ModTime().UnixNano()) / 1e9
}
