package data

import (
	"path/filepath"
	"time"
)

type Directory struct {
	ID   int64
	Path string
}

type File struct {
	ID          int64
	DirectoryID int64
	Directory   string
	Filename    string
	Symlink     string
	Created     float64
	Modified    float64
	Attributes  Attributes
}

func (f *File) Path() string {
	return filepath.Join(f.Directory, f.Filename)
}

func (f *File) CreatedTime() time.Time {
	return unixFloat(f.Created)
}

func (f *File) ModifiedTime() time.Time {
	return unixFloat(f.Modified)
}

func unixFloat(seconds float64) time.Time {
	whole := int64(seconds)
	return time.Unix(whole, int64((seconds-float64(whole))*1e9)).UTC()
}

// UnixFloat converts t into fractional seconds since the Unix epoch.
func UnixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
