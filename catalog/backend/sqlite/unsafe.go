package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/mwantia/metacat/data"
)

// This file contains internal "unsafe" helpers that perform operations without acquiring locks.
// These methods MUST only be called when the caller already holds the appropriate lock.

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// insertAttributesUnsafe writes attrs into table keyed by owner column and id.
func insertAttributesUnsafe(ctx context.Context, ex execer, table, owner string, id int64, attrs data.Attributes) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, ordinal, name, kind, value) VALUES (%s)", table, owner, placeholders(5))
	for i, attr := range attrs {
		if _, err := ex.ExecContext(ctx, query, id, i, attr.Name, attr.Value.Kind.String(), attr.Value.Encode()); err != nil {
			return fmt.Errorf("failed to insert attribute '%s' into %s: %w", attr.Name, table, err)
		}
	}
	return nil
}

// readAttributesUnsafe groups attribute rows of table by owner id.
// MUST be called while holding at least a read lock.
func readAttributesUnsafe(ctx context.Context, q querier, table, owner string, ids ...int64) (map[int64]data.Attributes, error) {
	query := fmt.Sprintf("SELECT %s, name, kind, value FROM %s", owner, table)
	args := make([]any, len(ids))
	if len(ids) > 0 {
		query += fmt.Sprintf(" WHERE %s IN (%s)", owner, placeholders(len(ids)))
		for i, id := range ids {
			args[i] = id
		}
	}
	query += fmt.Sprintf(" ORDER BY %s, ordinal", owner)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]data.Attributes)
	for rows.Next() {
		var id int64
		var name, kind, value string
		if err := rows.Scan(&id, &name, &kind, &value); err != nil {
			return nil, err
		}

		attr, err := decodeAttribute(name, kind, value)
		if err != nil {
			return nil, data.CorruptCatalog("%s row of %d: %v", table, id, err)
		}
		result[id] = append(result[id], attr)
	}

	return result, rows.Err()
}

// readCoordinatesUnsafe loads coordinates with their discrete values and attributes.
// MUST be called while holding at least a read lock.
func (sb *SQLiteBackend) readCoordinatesUnsafe(ctx context.Context, ids ...int64) ([]*data.Coordinate, error) {
	query := "SELECT coord_id, name, value_count, min, max, delta FROM Coordinates"
	args := make([]any, len(ids))
	if len(ids) > 0 {
		query += fmt.Sprintf(" WHERE coord_id IN (%s)", placeholders(len(ids)))
		for i, id := range ids {
			args[i] = id
		}
	}
	query += " ORDER BY coord_id"

	rows, err := sb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coords []*data.Coordinate
	byID := make(map[int64]*data.Coordinate)
	for rows.Next() {
		var c data.Coordinate
		var lo, hi sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Name, &c.Count, &lo, &hi, &c.Delta); err != nil {
			return nil, err
		}
		c.Min = floatOrNaN(lo)
		c.Max = floatOrNaN(hi)

		coords = append(coords, &c)
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	valuesQuery := "SELECT coord_id, value FROM DiscreteCoordinateValues"
	if len(ids) > 0 {
		valuesQuery += fmt.Sprintf(" WHERE coord_id IN (%s)", placeholders(len(ids)))
	}
	valuesQuery += " ORDER BY coord_id, ordinal"

	values, err := sb.db.QueryContext(ctx, valuesQuery, args...)
	if err != nil {
		return nil, err
	}
	defer values.Close()

	for values.Next() {
		var id int64
		var v float64
		if err := values.Scan(&id, &v); err != nil {
			return nil, err
		}
		c, ok := byID[id]
		if !ok {
			return nil, data.CorruptCatalog("discrete value references unknown coordinate %d", id)
		}
		c.Values = append(c.Values, v)
	}
	if err := values.Err(); err != nil {
		return nil, err
	}

	attrs, err := readAttributesUnsafe(ctx, sb.db, "CoordinateAttributes", "coord_id", ids...)
	if err != nil {
		return nil, err
	}
	for id, list := range attrs {
		if c, ok := byID[id]; ok {
			c.Attributes = list
		}
	}

	return coords, nil
}

// readFilesUnsafe loads files with their directory path and global attributes.
// MUST be called while holding at least a read lock.
func (sb *SQLiteBackend) readFilesUnsafe(ctx context.Context, ids ...int64) ([]*data.File, error) {
	query := `
		SELECT f.file_id, f.directory_id, d.path, f.filename, f.symlink_target, f.created, f.modified
		FROM Files f JOIN Directories d ON d.directory_id = f.directory_id`
	args := make([]any, len(ids))
	if len(ids) > 0 {
		query += fmt.Sprintf(" WHERE f.file_id IN (%s)", placeholders(len(ids)))
		for i, id := range ids {
			args[i] = id
		}
	}
	query += " ORDER BY f.file_id"

	rows, err := sb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*data.File
	byID := make(map[int64]*data.File)
	for rows.Next() {
		var f data.File
		var symlink sql.NullString
		if err := rows.Scan(&f.ID, &f.DirectoryID, &f.Directory, &f.Filename, &symlink, &f.Created, &f.Modified); err != nil {
			return nil, err
		}
		f.Symlink = symlink.String

		files = append(files, &f)
		byID[f.ID] = &f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attrs, err := readAttributesUnsafe(ctx, sb.db, "GlobalAttributes", "file_id", ids...)
	if err != nil {
		return nil, err
	}
	for id, list := range attrs {
		if f, ok := byID[id]; ok {
			f.Attributes = list
		}
	}

	return files, nil
}

func decodeAttribute(name, kind, value string) (data.Attribute, error) {
	k, err := data.ParseAttributeKind(kind)
	if err != nil {
		return data.Attribute{}, err
	}
	v, err := data.DecodeAttributeValue(k, value)
	if err != nil {
		return data.Attribute{}, err
	}
	return data.Attribute{Name: name, Value: v}, nil
}

func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func floatOrNaN(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
