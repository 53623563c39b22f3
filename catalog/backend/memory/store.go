package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
)

var errNoSchema = errors.New("memory: schema is not initialized")

func (mb *MemoryBackend) CreateDirectory(ctx context.Context, dir *data.Directory) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.schema {
		return errNoSchema
	}
	if _, exists := mb.directories.Get(dir.ID); exists {
		return fmt.Errorf("directory %d already exists", dir.ID)
	}

	mb.directories.Set(dir.ID, *dir)
	return nil
}

func (mb *MemoryBackend) CreateFile(ctx context.Context, file *data.File) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.schema {
		return errNoSchema
	}
	if _, exists := mb.files.Get(file.ID); exists {
		return fmt.Errorf("file %d already exists", file.ID)
	}
	dir, ok := mb.directories.Get(file.DirectoryID)
	if !ok {
		return fmt.Errorf("file %d references unknown directory %d", file.ID, file.DirectoryID)
	}

	clone := cloneFile(file)
	clone.Directory = dir.Path
	mb.files.Set(file.ID, clone)
	return nil
}

func (mb *MemoryBackend) CreateCoordinate(ctx context.Context, coord *data.Coordinate) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.schema {
		return errNoSchema
	}
	if _, exists := mb.coordinates.Get(coord.ID); exists {
		return fmt.Errorf("coordinate %d already exists", coord.ID)
	}

	mb.coordinates.Set(coord.ID, cloneCoordinate(coord))
	return nil
}

func (mb *MemoryBackend) CreateRun(ctx context.Context, run *data.IngestRun) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.schema {
		return errNoSchema
	}
	mb.runs.Set(run.ID, *run)
	return nil
}

func (mb *MemoryBackend) FinishRun(ctx context.Context, run *data.IngestRun, failures []data.Failure) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.runs.Get(run.ID); !exists {
		return data.ErrNotExist
	}

	mb.runs.Set(run.ID, *run)
	mb.failures[run.ID] = append(mb.failures[run.ID], failures...)
	return nil
}

// WriteVariables validates every record before storing any of them.
func (mb *MemoryBackend) WriteVariables(ctx context.Context, records []*backend.VariableRecord) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.schema {
		return errNoSchema
	}

	seen := make(map[int64]struct{}, len(records))
	for _, record := range records {
		if _, exists := mb.variables.Get(record.ID); exists {
			return fmt.Errorf("variable %d already exists", record.ID)
		}
		if _, exists := seen[record.ID]; exists {
			return fmt.Errorf("variable %d written twice", record.ID)
		}
		seen[record.ID] = struct{}{}
	}

	for _, record := range records {
		mb.variables.Set(record.ID, cloneHeader(&record.VariableHeader))
		mb.associations[record.ID] = slices.Clone(record.Associations)
	}
	return nil
}

func (mb *MemoryBackend) ListDirectories(ctx context.Context) ([]*data.Directory, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	dirs := make([]*data.Directory, 0, mb.directories.Len())
	mb.directories.Scan(func(_ int64, dir data.Directory) bool {
		dirs = append(dirs, &dir)
		return true
	})
	return dirs, nil
}

func (mb *MemoryBackend) ListFiles(ctx context.Context) ([]*data.File, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	files := make([]*data.File, 0, mb.files.Len())
	mb.files.Scan(func(_ int64, f *data.File) bool {
		files = append(files, cloneFile(f))
		return true
	})
	return files, nil
}

func (mb *MemoryBackend) ReadFile(ctx context.Context, id int64) (*data.File, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	f, ok := mb.files.Get(id)
	if !ok {
		return nil, data.ErrNotExist
	}
	return cloneFile(f), nil
}

func (mb *MemoryBackend) ListCoordinates(ctx context.Context) ([]*data.Coordinate, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	coords := make([]*data.Coordinate, 0, mb.coordinates.Len())
	mb.coordinates.Scan(func(_ int64, c *data.Coordinate) bool {
		coords = append(coords, cloneCoordinate(c))
		return true
	})
	return coords, nil
}

func (mb *MemoryBackend) ReadCoordinate(ctx context.Context, id int64) (*data.Coordinate, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	c, ok := mb.coordinates.Get(id)
	if !ok {
		return nil, data.ErrNotExist
	}
	return cloneCoordinate(c), nil
}

func (mb *MemoryBackend) ListVariables(ctx context.Context) ([]*backend.VariableHeader, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	headers := make([]*backend.VariableHeader, 0, mb.variables.Len())
	mb.variables.Scan(func(_ int64, h *backend.VariableHeader) bool {
		headers = append(headers, cloneHeader(h))
		return true
	})
	return headers, nil
}

func (mb *MemoryBackend) ReadVariable(ctx context.Context, id int64) (*backend.VariableHeader, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	h, ok := mb.variables.Get(id)
	if !ok {
		return nil, data.ErrNotExist
	}
	return cloneHeader(h), nil
}

func (mb *MemoryBackend) ReadAssociations(ctx context.Context, variableID int64) ([]data.Association, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return slices.Clone(mb.associations[variableID]), nil
}

func (mb *MemoryBackend) ListRuns(ctx context.Context) ([]*data.IngestRun, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	runs := make([]*data.IngestRun, 0, mb.runs.Len())
	mb.runs.Scan(func(_ string, run data.IngestRun) bool {
		runs = append(runs, &run)
		return true
	})
	slices.SortFunc(runs, func(a, b *data.IngestRun) int {
		return a.Started.Compare(b.Started)
	})
	return runs, nil
}

func (mb *MemoryBackend) ListFailures(ctx context.Context, runID string) ([]data.Failure, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return slices.Clone(mb.failures[runID]), nil
}

var _ backend.Store = (*MemoryBackend)(nil)
