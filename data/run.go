package data

import "time"

// IngestRun summarizes one catalog build.
type IngestRun struct {
	ID          string
	Root        string
	FileType    string
	Started     time.Time
	Finished    time.Time
	Directories int
	Files       int
	Coordinates int
	Variables   int
}

func (r *IngestRun) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
