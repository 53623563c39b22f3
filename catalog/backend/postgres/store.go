package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
)

func (pb *PostgresBackend) CreateDirectory(ctx context.Context, dir *data.Directory) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	_, err := pb.pool.Exec(ctx, "INSERT INTO Directories (directory_id, path) VALUES ($1, $2)", dir.ID, dir.Path)
	if err != nil {
		return fmt.Errorf("failed to insert directory: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) CreateFile(ctx context.Context, file *data.File) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO Files (file_id, directory_id, filename, symlink_target, created, modified)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, file.ID, file.DirectoryID, file.Filename, nullString(file.Symlink), file.Created, file.Modified)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	if err := insertAttributesUnsafe(ctx, tx, "GlobalAttributes", "file_id", file.ID, file.Attributes); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) CreateCoordinate(ctx context.Context, coord *data.Coordinate) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO Coordinates (coord_id, name, value_count, min, max, delta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, coord.ID, coord.Name, coord.Count, nullFloat(coord.Min), nullFloat(coord.Max), coord.Delta)
	if err != nil {
		return fmt.Errorf("failed to insert coordinate: %w", err)
	}

	if len(coord.Values) > 0 {
		batch := &pgx.Batch{}
		for i, v := range coord.Values {
			batch.Queue("INSERT INTO DiscreteCoordinateValues (coord_id, ordinal, value) VALUES ($1, $2, $3)", coord.ID, i, v)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert discrete values: %w", err)
		}
	}

	if err := insertAttributesUnsafe(ctx, tx, "CoordinateAttributes", "coord_id", coord.ID, coord.Attributes); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) CreateRun(ctx context.Context, run *data.IngestRun) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	_, err := pb.pool.Exec(ctx, `
		INSERT INTO IngestRuns (run_id, root, file_type, started) VALUES ($1, $2, $3, $4)
	`, run.ID, run.Root, run.FileType, run.Started.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) FinishRun(ctx context.Context, run *data.IngestRun, failures []data.Failure) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE IngestRuns
		SET finished = $1, directories = $2, files = $3, coordinates = $4, variables = $5
		WHERE run_id = $6
	`, run.Finished.UnixNano(), run.Directories, run.Files, run.Coordinates, run.Variables, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return data.ErrNotExist
	}

	for _, failure := range failures {
		_, err := tx.Exec(ctx, "INSERT INTO FailedFiles (run_id, path, reason) VALUES ($1, $2, $3)", run.ID, failure.Path, failure.Reason)
		if err != nil {
			return fmt.Errorf("failed to insert failed file: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) WriteVariables(ctx context.Context, records []*backend.VariableRecord) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, record := range records {
		_, err := tx.Exec(ctx, "INSERT INTO Variables (var_id, name, dimension_count) VALUES ($1, $2, $3)",
			record.ID, record.Name, record.NDims)
		if err != nil {
			return fmt.Errorf("failed to insert variable '%s': %w", record.Name, err)
		}

		if err := insertAttributesUnsafe(ctx, tx, "VariableAttributes", "var_id", record.ID, record.Attributes); err != nil {
			return err
		}

		if len(record.Associations) == 0 {
			continue
		}
		batch := &pgx.Batch{}
		for i, a := range record.Associations {
			batch.Queue(`
				INSERT INTO VariableCoordinateFileAssociations (var_id, ordinal, coord_id, file_id, dimension_index)
				VALUES ($1, $2, $3, $4, $5)
			`, a.VariableID, i, a.CoordinateID, a.FileID, a.DimensionIndex)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert associations of '%s': %w", record.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) ListDirectories(ctx context.Context) ([]*data.Directory, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	rows, err := pb.pool.Query(ctx, "SELECT directory_id, path FROM Directories ORDER BY directory_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query directories: %w", err)
	}

	dirs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*data.Directory, error) {
		var dir data.Directory
		err := row.Scan(&dir.ID, &dir.Path)
		return &dir, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directories: %w", err)
	}
	return dirs, nil
}

func (pb *PostgresBackend) ListFiles(ctx context.Context) ([]*data.File, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	return pb.readFilesUnsafe(ctx, nil)
}

func (pb *PostgresBackend) ReadFile(ctx context.Context, id int64) (*data.File, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	files, err := pb.readFilesUnsafe(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, data.ErrNotExist
	}
	return files[0], nil
}

func (pb *PostgresBackend) ListCoordinates(ctx context.Context) ([]*data.Coordinate, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	return pb.readCoordinatesUnsafe(ctx, nil)
}

func (pb *PostgresBackend) ReadCoordinate(ctx context.Context, id int64) (*data.Coordinate, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	coords, err := pb.readCoordinatesUnsafe(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return nil, data.ErrNotExist
	}
	return coords[0], nil
}

func (pb *PostgresBackend) ListVariables(ctx context.Context) ([]*backend.VariableHeader, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	return pb.readVariablesUnsafe(ctx, nil)
}

func (pb *PostgresBackend) ReadVariable(ctx context.Context, id int64) (*backend.VariableHeader, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	headers, err := pb.readVariablesUnsafe(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, data.ErrNotExist
	}
	return headers[0], nil
}

func (pb *PostgresBackend) readVariablesUnsafe(ctx context.Context, ids []int64) ([]*backend.VariableHeader, error) {
	query, args := filter("SELECT var_id, name, dimension_count FROM Variables", "var_id", ids)
	rows, err := pb.pool.Query(ctx, query+" ORDER BY var_id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}

	headers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*backend.VariableHeader, error) {
		var h backend.VariableHeader
		err := row.Scan(&h.ID, &h.Name, &h.NDims)
		return &h, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan variables: %w", err)
	}

	attrs, err := readAttributesUnsafe(ctx, pb.pool, "VariableAttributes", "var_id", ids)
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		h.Attributes = attrs[h.ID]
	}

	return headers, nil
}

func (pb *PostgresBackend) ReadAssociations(ctx context.Context, variableID int64) ([]data.Association, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	rows, err := pb.pool.Query(ctx, `
		SELECT var_id, coord_id, file_id, dimension_index
		FROM VariableCoordinateFileAssociations
		WHERE var_id = $1 ORDER BY ordinal
	`, variableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query associations: %w", err)
	}

	associations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (data.Association, error) {
		var a data.Association
		err := row.Scan(&a.VariableID, &a.CoordinateID, &a.FileID, &a.DimensionIndex)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan associations: %w", err)
	}
	return associations, nil
}

func (pb *PostgresBackend) ListRuns(ctx context.Context) ([]*data.IngestRun, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	rows, err := pb.pool.Query(ctx, `
		SELECT run_id, root, file_type, started, finished, directories, files, coordinates, variables
		FROM IngestRuns ORDER BY started
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*data.IngestRun, error) {
		var run data.IngestRun
		var started int64
		var finished *int64
		if err := row.Scan(&run.ID, &run.Root, &run.FileType, &started, &finished,
			&run.Directories, &run.Files, &run.Coordinates, &run.Variables); err != nil {
			return nil, err
		}

		run.Started = time.Unix(0, started)
		if finished != nil {
			run.Finished = time.Unix(0, *finished)
		}
		return &run, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}
	return runs, nil
}

func (pb *PostgresBackend) ListFailures(ctx context.Context, runID string) ([]data.Failure, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	rows, err := pb.pool.Query(ctx, "SELECT path, reason FROM FailedFiles WHERE run_id = $1 ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed files: %w", err)
	}

	failures, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (data.Failure, error) {
		var f data.Failure
		err := row.Scan(&f.Path, &f.Reason)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan failed files: %w", err)
	}
	return failures, nil
}

var _ backend.Store = (*PostgresBackend)(nil)
