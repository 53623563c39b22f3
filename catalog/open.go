package catalog

import (
	"context"
	"fmt"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/catalog/backend/memory"
	"github.com/mwantia/metacat/catalog/backend/postgres"
	"github.com/mwantia/metacat/catalog/backend/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open creates and opens the store for driver. dsn is a database path for
// sqlite and a connection URL for postgres; memory ignores it.
func Open(ctx context.Context, driver, dsn string) (backend.Store, error) {
	var store backend.Store

	switch driver {
	case DriverSQLite:
		sb, err := sqlite.NewSQLiteBackend(dsn)
		if err != nil {
			return nil, err
		}
		store = sb
	case DriverPostgres:
		pb, err := postgres.NewPostgresBackend(ctx, dsn)
		if err != nil {
			return nil, err
		}
		store = pb
	case DriverMemory:
		store = memory.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown catalog driver '%s'", driver)
	}

	if err := store.Open(ctx); err != nil {
		store.Close(ctx)
		return nil, fmt.Errorf("failed to open %s catalog: %w", driver, err)
	}
	return store, nil
}
