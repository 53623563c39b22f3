package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/registry"
)

// Session holds the shared state of one ingestion run. A single mutex guards
// the registries, the id counters, the failure list and every store write.
type Session struct {
	mu    sync.Mutex
	store backend.Store
	run   *data.IngestRun

	coords *registry.Coordinates
	vars   *registry.Variables

	nextDirectory int64
	nextFile      int64
	failures      data.Failures
}

func NewSession(store backend.Store, run *data.IngestRun) *Session {
	coords := registry.NewCoordinates()
	return &Session{
		store:  store,
		run:    run,
		coords: coords,
		vars:   registry.NewVariables(coords),
	}
}

func (s *Session) Run() *data.IngestRun {
	return s.run
}

// RegisterDirectory assigns the next directory id and persists the row.
func (s *Session) RegisterDirectory(ctx context.Context, path string) (*data.Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := &data.Directory{ID: s.nextDirectory, Path: path}
	if err := s.store.CreateDirectory(ctx, dir); err != nil {
		return nil, fmt.Errorf("failed to store directory '%s': %w", path, err)
	}
	s.nextDirectory++

	return dir, nil
}

// RegisterFile assigns the next file id to file and persists it with its
// global attributes.
func (s *Session) RegisterFile(ctx context.Context, file *data.File) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file.ID = s.nextFile
	if err := s.store.CreateFile(ctx, file); err != nil {
		file.ID = -1
		return -1, fmt.Errorf("failed to store file '%s': %w", file.Path(), err)
	}
	s.nextFile++

	return file.ID, nil
}

// ResolveCoordinate returns the id of the registered coordinate matching
// candidate, registering and persisting candidate when there is none.
func (s *Session) ResolveCoordinate(ctx context.Context, candidate *data.Coordinate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.coords.Lookup(candidate); ok {
		return id, nil
	}

	candidate.ID = s.coords.NextID()
	if err := s.store.CreateCoordinate(ctx, candidate); err != nil {
		candidate.ID = -1
		return -1, fmt.Errorf("failed to store coordinate '%s': %w", candidate.Name, err)
	}
	return s.coords.Register(candidate), nil
}

// MergeVariable folds one observation of candidate into the variable registry.
func (s *Session) MergeVariable(candidate *data.Variable, coordIDs []int64, fileID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.vars.ResolveAndMerge(candidate, coordIDs, fileID)
}

// RecordFailure adds path to the failure list of the run.
func (s *Session) RecordFailure(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures.Add(path, err)
}

func (s *Session) Failures() []data.Failure {
	return s.failures.List()
}

// Variables returns the merged variables in id order.
func (s *Session) Variables() []*data.Variable {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.vars.All()
}

// Counts returns the number of directories, files, coordinates and variables
// registered so far.
func (s *Session) Counts() (directories, files, coordinates, variables int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int(s.nextDirectory), int(s.nextFile), s.coords.Len(), s.vars.Len()
}
