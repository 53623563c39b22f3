package backend

import (
	"context"

	"github.com/mwantia/metacat/data"
)

// Backend is used as lifecycle entrypoint for catalog store implementations.
type Backend interface {
	// Name returns the identifier name defined for this backend
	Name() string
	// Open is part of the lifecycle behaviour and gets called when opening this backend.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and gets called when closing this backend.
	Close(ctx context.Context) error
}

// Store persists a catalog. Writers are serialized by the caller; reads may
// run concurrently once ingestion has finished.
type Store interface {
	Backend

	// InitSchema creates all catalog tables if they do not exist yet.
	InitSchema(ctx context.Context) error
	// IsEmpty reports whether the catalog holds no directories, files,
	// coordinates or variables. A store without tables is empty.
	IsEmpty(ctx context.Context) (bool, error)

	CreateDirectory(ctx context.Context, dir *data.Directory) error
	CreateFile(ctx context.Context, file *data.File) error
	CreateCoordinate(ctx context.Context, coord *data.Coordinate) error
	CreateRun(ctx context.Context, run *data.IngestRun) error
	// FinishRun stores the final counters of run and its failed files.
	FinishRun(ctx context.Context, run *data.IngestRun, failures []data.Failure) error
	// WriteVariables persists every record in a single transaction.
	WriteVariables(ctx context.Context, records []*VariableRecord) error

	ListDirectories(ctx context.Context) ([]*data.Directory, error)
	ListFiles(ctx context.Context) ([]*data.File, error)
	ReadFile(ctx context.Context, id int64) (*data.File, error)
	ListCoordinates(ctx context.Context) ([]*data.Coordinate, error)
	ReadCoordinate(ctx context.Context, id int64) (*data.Coordinate, error)
	ListVariables(ctx context.Context) ([]*VariableHeader, error)
	ReadVariable(ctx context.Context, id int64) (*VariableHeader, error)
	// ReadAssociations returns the rows of a variable in write order.
	ReadAssociations(ctx context.Context, variableID int64) ([]data.Association, error)
	ListRuns(ctx context.Context) ([]*data.IngestRun, error)
	ListFailures(ctx context.Context, runID string) ([]data.Failure, error)
}

// VariableHeader is the persisted row of a variable without its associations.
type VariableHeader struct {
	ID         int64
	Name       string
	NDims      int
	Attributes data.Attributes
}

// VariableRecord is everything written for one variable.
type VariableRecord struct {
	VariableHeader
	Associations []data.Association
}
