package catalog

import (
	"context"
	"fmt"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
)

// Reader answers queries against a finished catalog.
type Reader struct {
	store backend.Store
}

func NewReader(store backend.Store) *Reader {
	return &Reader{store: store}
}

// Summary counts the content of a catalog.
type Summary struct {
	Directories int
	Files       int
	Coordinates int
	Variables   int
	Runs        []*data.IngestRun
}

func (r *Reader) Summary(ctx context.Context) (*Summary, error) {
	dirs, err := r.store.ListDirectories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	files, err := r.store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	coords, err := r.store.ListCoordinates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list coordinates: %w", err)
	}
	vars, err := r.store.ListVariables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}
	runs, err := r.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return &Summary{
		Directories: len(dirs),
		Files:       len(files),
		Coordinates: len(coords),
		Variables:   len(vars),
		Runs:        runs,
	}, nil
}

// LoadVariable reads a variable with its per-file coordinates.
func (r *Reader) LoadVariable(ctx context.Context, id int64) (*data.Variable, error) {
	header, err := r.store.ReadVariable(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.ReadAssociations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read associations of variable %d: %w", id, err)
	}
	return Decode(header, rows)
}

// Variables loads every variable of the catalog.
func (r *Reader) Variables(ctx context.Context) ([]*data.Variable, error) {
	headers, err := r.store.ListVariables(ctx)
	if err != nil {
		return nil, err
	}

	vars := make([]*data.Variable, 0, len(headers))
	for _, header := range headers {
		rows, err := r.store.ReadAssociations(ctx, header.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read associations of variable %d: %w", header.ID, err)
		}
		v, err := Decode(header, rows)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func (r *Reader) Coordinates(ctx context.Context) ([]*data.Coordinate, error) {
	return r.store.ListCoordinates(ctx)
}

func (r *Reader) Coordinate(ctx context.Context, id int64) (*data.Coordinate, error) {
	return r.store.ReadCoordinate(ctx, id)
}

func (r *Reader) Directories(ctx context.Context) ([]*data.Directory, error) {
	return r.store.ListDirectories(ctx)
}

func (r *Reader) Files(ctx context.Context) ([]*data.File, error) {
	return r.store.ListFiles(ctx)
}

func (r *Reader) File(ctx context.Context, id int64) (*data.File, error) {
	return r.store.ReadFile(ctx, id)
}

func (r *Reader) Failures(ctx context.Context, runID string) ([]data.Failure, error) {
	return r.store.ListFailures(ctx, runID)
}
