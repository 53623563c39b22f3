package ingest

import (
	"fmt"
	"os"

	"github.com/mwantia/metacat/data"
)

// fileInfo describes a file on disk. Timestamps are fractional Unix seconds
// of the link target; Symlink holds the raw link target when path is a link.
type fileInfo struct {
	Symlink  string
	Created  float64
	Modified float64
}

func statFile(path string) (*fileInfo, error) {
	info := &fileInfo{}

	link, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if link.Mode()&os.ModeSymlink != 0 {
		if info.Symlink, err = os.Readlink(path); err != nil {
			return nil, fmt.Errorf("failed to read link '%s': %w", path, err)
		}
	}

	target, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	info.Modified = data.UnixFloat(target.ModTime())
	info.Created = changeTime(target)

	return info, nil
}
