package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
)

func (sb *SQLiteBackend) CreateDirectory(ctx context.Context, dir *data.Directory) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	_, err := sb.db.ExecContext(ctx, "INSERT INTO Directories (directory_id, path) VALUES (?, ?)", dir.ID, dir.Path)
	if err != nil {
		return fmt.Errorf("failed to insert directory: %w", err)
	}
	return nil
}

func (sb *SQLiteBackend) CreateFile(ctx context.Context, file *data.File) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO Files (file_id, directory_id, filename, symlink_target, created, modified)
		VALUES (?, ?, ?, ?, ?, ?)
	`, file.ID, file.DirectoryID, file.Filename, nullString(file.Symlink), file.Created, file.Modified)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	if err := insertAttributesUnsafe(ctx, tx, "GlobalAttributes", "file_id", file.ID, file.Attributes); err != nil {
		return err
	}

	return tx.Commit()
}

func (sb *SQLiteBackend) CreateCoordinate(ctx context.Context, coord *data.Coordinate) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO Coordinates (coord_id, name, value_count, min, max, delta)
		VALUES (?, ?, ?, ?, ?, ?)
	`, coord.ID, coord.Name, coord.Count, nullFloat(coord.Min), nullFloat(coord.Max), coord.Delta)
	if err != nil {
		return fmt.Errorf("failed to insert coordinate: %w", err)
	}

	for i, v := range coord.Values {
		_, err := tx.ExecContext(ctx, "INSERT INTO DiscreteCoordinateValues (coord_id, ordinal, value) VALUES (?, ?, ?)", coord.ID, i, v)
		if err != nil {
			return fmt.Errorf("failed to insert discrete value: %w", err)
		}
	}

	if err := insertAttributesUnsafe(ctx, tx, "CoordinateAttributes", "coord_id", coord.ID, coord.Attributes); err != nil {
		return err
	}

	return tx.Commit()
}

func (sb *SQLiteBackend) CreateRun(ctx context.Context, run *data.IngestRun) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	_, err := sb.db.ExecContext(ctx, `
		INSERT INTO IngestRuns (run_id, root, file_type, started) VALUES (?, ?, ?, ?)
	`, run.ID, run.Root, run.FileType, run.Started.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (sb *SQLiteBackend) FinishRun(ctx context.Context, run *data.IngestRun, failures []data.Failure) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE IngestRuns
		SET finished = ?, directories = ?, files = ?, coordinates = ?, variables = ?
		WHERE run_id = ?
	`, run.Finished.UnixNano(), run.Directories, run.Files, run.Coordinates, run.Variables, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return data.ErrNotExist
	}

	for _, failure := range failures {
		_, err := tx.ExecContext(ctx, "INSERT INTO FailedFiles (run_id, path, reason) VALUES (?, ?, ?)", run.ID, failure.Path, failure.Reason)
		if err != nil {
			return fmt.Errorf("failed to insert failed file: %w", err)
		}
	}

	return tx.Commit()
}

func (sb *SQLiteBackend) WriteVariables(ctx context.Context, records []*backend.VariableRecord) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertVariable, err := tx.PrepareContext(ctx, "INSERT INTO Variables (var_id, name, dimension_count) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer insertVariable.Close()

	insertAssociation, err := tx.PrepareContext(ctx, `
		INSERT INTO VariableCoordinateFileAssociations (var_id, ordinal, coord_id, file_id, dimension_index)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer insertAssociation.Close()

	for _, record := range records {
		if _, err := insertVariable.ExecContext(ctx, record.ID, record.Name, record.NDims); err != nil {
			return fmt.Errorf("failed to insert variable '%s': %w", record.Name, err)
		}
		if err := insertAttributesUnsafe(ctx, tx, "VariableAttributes", "var_id", record.ID, record.Attributes); err != nil {
			return err
		}
		for i, a := range record.Associations {
			if _, err := insertAssociation.ExecContext(ctx, a.VariableID, i, a.CoordinateID, a.FileID, a.DimensionIndex); err != nil {
				return fmt.Errorf("failed to insert association of '%s': %w", record.Name, err)
			}
		}
	}

	return tx.Commit()
}

func (sb *SQLiteBackend) ListDirectories(ctx context.Context) ([]*data.Directory, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	rows, err := sb.db.QueryContext(ctx, "SELECT directory_id, path FROM Directories ORDER BY directory_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dirs []*data.Directory
	for rows.Next() {
		var dir data.Directory
		if err := rows.Scan(&dir.ID, &dir.Path); err != nil {
			return nil, err
		}
		dirs = append(dirs, &dir)
	}
	return dirs, rows.Err()
}

func (sb *SQLiteBackend) ListFiles(ctx context.Context) ([]*data.File, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.readFilesUnsafe(ctx)
}

func (sb *SQLiteBackend) ReadFile(ctx context.Context, id int64) (*data.File, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	files, err := sb.readFilesUnsafe(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, data.ErrNotExist
	}
	return files[0], nil
}

func (sb *SQLiteBackend) ListCoordinates(ctx context.Context) ([]*data.Coordinate, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.readCoordinatesUnsafe(ctx)
}

func (sb *SQLiteBackend) ReadCoordinate(ctx context.Context, id int64) (*data.Coordinate, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	coords, err := sb.readCoordinatesUnsafe(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return nil, data.ErrNotExist
	}
	return coords[0], nil
}

func (sb *SQLiteBackend) ListVariables(ctx context.Context) ([]*backend.VariableHeader, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.readVariablesUnsafe(ctx)
}

func (sb *SQLiteBackend) ReadVariable(ctx context.Context, id int64) (*backend.VariableHeader, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	headers, err := sb.readVariablesUnsafe(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, data.ErrNotExist
	}
	return headers[0], nil
}

func (sb *SQLiteBackend) readVariablesUnsafe(ctx context.Context, ids ...int64) ([]*backend.VariableHeader, error) {
	query := "SELECT var_id, name, dimension_count FROM Variables"
	args := make([]any, len(ids))
	if len(ids) > 0 {
		query += fmt.Sprintf(" WHERE var_id IN (%s)", placeholders(len(ids)))
		for i, id := range ids {
			args[i] = id
		}
	}
	query += " ORDER BY var_id"

	rows, err := sb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []*backend.VariableHeader
	byID := make(map[int64]*backend.VariableHeader)
	for rows.Next() {
		var h backend.VariableHeader
		if err := rows.Scan(&h.ID, &h.Name, &h.NDims); err != nil {
			return nil, err
		}
		headers = append(headers, &h)
		byID[h.ID] = &h
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attrs, err := readAttributesUnsafe(ctx, sb.db, "VariableAttributes", "var_id", ids...)
	if err != nil {
		return nil, err
	}
	for id, list := range attrs {
		if h, ok := byID[id]; ok {
			h.Attributes = list
		}
	}

	return headers, nil
}

func (sb *SQLiteBackend) ReadAssociations(ctx context.Context, variableID int64) ([]data.Association, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	rows, err := sb.db.QueryContext(ctx, `
		SELECT var_id, coord_id, file_id, dimension_index
		FROM VariableCoordinateFileAssociations
		WHERE var_id = ? ORDER BY ordinal
	`, variableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var associations []data.Association
	for rows.Next() {
		var a data.Association
		if err := rows.Scan(&a.VariableID, &a.CoordinateID, &a.FileID, &a.DimensionIndex); err != nil {
			return nil, err
		}
		associations = append(associations, a)
	}
	return associations, rows.Err()
}

func (sb *SQLiteBackend) ListRuns(ctx context.Context) ([]*data.IngestRun, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	rows, err := sb.db.QueryContext(ctx, `
		SELECT run_id, root, file_type, started, finished, directories, files, coordinates, variables
		FROM IngestRuns ORDER BY started
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*data.IngestRun
	for rows.Next() {
		var run data.IngestRun
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&run.ID, &run.Root, &run.FileType, &started, &finished,
			&run.Directories, &run.Files, &run.Coordinates, &run.Variables); err != nil {
			return nil, err
		}

		run.Started = time.Unix(0, started)
		if finished.Valid {
			run.Finished = time.Unix(0, finished.Int64)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (sb *SQLiteBackend) ListFailures(ctx context.Context, runID string) ([]data.Failure, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	rows, err := sb.db.QueryContext(ctx, "SELECT path, reason FROM FailedFiles WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []data.Failure
	for rows.Next() {
		var f data.Failure
		if err := rows.Scan(&f.Path, &f.Reason); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

var _ backend.Store = (*SQLiteBackend)(nil)
