package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
	"github.com/tidwall/btree"
)

// MemoryBackend keeps a catalog in ordered in-memory maps. Every entry is
// copied on the way in and out.
type MemoryBackend struct {
	mu sync.RWMutex

	schema       bool
	directories  *btree.Map[int64, data.Directory]
	files        *btree.Map[int64, *data.File]
	coordinates  *btree.Map[int64, *data.Coordinate]
	variables    *btree.Map[int64, *backend.VariableHeader]
	associations map[int64][]data.Association
	runs         *btree.Map[string, data.IngestRun]
	failures     map[string][]data.Failure
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		directories:  btree.NewMap[int64, data.Directory](0),
		files:        btree.NewMap[int64, *data.File](0),
		coordinates:  btree.NewMap[int64, *data.Coordinate](0),
		variables:    btree.NewMap[int64, *backend.VariableHeader](0),
		associations: make(map[int64][]data.Association),
		runs:         btree.NewMap[string, data.IngestRun](0),
		failures:     make(map[string][]data.Failure),
	}
}

// Name returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.directories.Clear()
	mb.files.Clear()
	mb.coordinates.Clear()
	mb.variables.Clear()
	mb.runs.Clear()
	clear(mb.associations)
	clear(mb.failures)
	mb.schema = false

	return nil
}

func (mb *MemoryBackend) InitSchema(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.schema = true
	return nil
}

func (mb *MemoryBackend) IsEmpty(ctx context.Context) (bool, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return mb.directories.Len() == 0 && mb.files.Len() == 0 &&
		mb.coordinates.Len() == 0 && mb.variables.Len() == 0, nil
}

func cloneFile(f *data.File) *data.File {
	clone := *f
	clone.Attributes = f.Attributes.Clone()
	return &clone
}

func cloneCoordinate(c *data.Coordinate) *data.Coordinate {
	clone := *c
	clone.Values = slices.Clone(c.Values)
	clone.Attributes = c.Attributes.Clone()
	return &clone
}

func cloneHeader(h *backend.VariableHeader) *backend.VariableHeader {
	clone := *h
	clone.Attributes = h.Attributes.Clone()
	return &clone
}
