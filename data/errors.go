package data

import (
	"errors"
	"fmt"
	"sync"
)

// Standard catalog errors shared by registries, stores and the ingestion pipeline.
var (
	// Catalog lifecycle errors
	ErrCatalogNotEmpty = errors.New("metacat: catalog already contains data")
	ErrCorruptCatalog  = errors.New("metacat: catalog rows are inconsistent")
	ErrNotExist        = errors.New("metacat: entry does not exist")

	// Structural errors that abort an ingestion run
	ErrUnresolvedDimension        = errors.New("metacat: dimension reference cannot be resolved")
	ErrMultipleVaryingDimensions  = errors.New("metacat: more than one dimension varies across merged files")
	ErrDimensionCountMismatch     = errors.New("metacat: coordinate ids do not match dimension count")
	ErrUnknownCoordinateReference = errors.New("metacat: coordinate id is not registered")
)

func UnresolvedDimension(variable, dimension string) error {
	return newError(ErrUnresolvedDimension, "variable '%s' references dimension '%s'", variable, dimension)
}

func MultipleVaryingDimensions(variable string, current, next int) error {
	return newError(ErrMultipleVaryingDimensions, "variable '%s' varies in dimension %d and %d", variable, current, next)
}

func DimensionCountMismatch(variable string, want, got int) error {
	return newError(ErrDimensionCountMismatch, "variable '%s' has %d dimensions, got %d ids", variable, want, got)
}

func UnknownCoordinateReference(variable string, id int64) error {
	return newError(ErrUnknownCoordinateReference, "variable '%s' references coordinate %d", variable, id)
}

func CorruptCatalog(format string, args ...any) error {
	return newError(ErrCorruptCatalog, format, args...)
}

func newError(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
}

// Failure records a file that could not be ingested.
type Failure struct {
	Path   string
	Reason string
}

// Failures is a thread-safe list of per-file failures.
type Failures struct {
	mu    sync.RWMutex
	items []Failure
}

func (f *Failures) Add(path string, err error) {
	if err == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, Failure{Path: path, Reason: err.Error()})
}

func (f *Failures) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.items)
}

func (f *Failures) List() []Failure {
	f.mu.RLock()
	defer f.mu.RUnlock()

	items := make([]Failure, len(f.items))
	copy(items, f.items)
	return items
}
