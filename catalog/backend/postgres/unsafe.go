package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mwantia/metacat/data"
)

// This file contains internal "unsafe" helpers that perform operations without acquiring locks.
// These methods MUST only be called when the caller already holds the appropriate lock.

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func insertAttributesUnsafe(ctx context.Context, ex execer, table, owner string, id int64, attrs data.Attributes) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, ordinal, name, kind, value) VALUES ($1, $2, $3, $4, $5)", table, owner)
	for i, attr := range attrs {
		if _, err := ex.Exec(ctx, query, id, i, attr.Name, attr.Value.Kind.String(), attr.Value.Encode()); err != nil {
			return fmt.Errorf("failed to insert attribute '%s' into %s: %w", attr.Name, table, err)
		}
	}
	return nil
}

// filter appends an "owner = ANY(ids)" clause when ids are given.
func filter(query, column string, ids []int64) (string, []any) {
	if len(ids) == 0 {
		return query, nil
	}
	return query + fmt.Sprintf(" WHERE %s = ANY($1)", column), []any{ids}
}

func readAttributesUnsafe(ctx context.Context, q querier, table, owner string, ids []int64) (map[int64]data.Attributes, error) {
	query, args := filter(fmt.Sprintf("SELECT %s, name, kind, value FROM %s", owner, table), owner, ids)
	query += fmt.Sprintf(" ORDER BY %s, ordinal", owner)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	result := make(map[int64]data.Attributes)
	for rows.Next() {
		var id int64
		var name, kind, value string
		if err := rows.Scan(&id, &name, &kind, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}

		k, err := data.ParseAttributeKind(kind)
		if err != nil {
			return nil, data.CorruptCatalog("%s row of %d: %v", table, id, err)
		}
		v, err := data.DecodeAttributeValue(k, value)
		if err != nil {
			return nil, data.CorruptCatalog("%s row of %d: %v", table, id, err)
		}
		result[id] = append(result[id], data.Attribute{Name: name, Value: v})
	}

	return result, rows.Err()
}

func (pb *PostgresBackend) readCoordinatesUnsafe(ctx context.Context, ids []int64) ([]*data.Coordinate, error) {
	query, args := filter("SELECT coord_id, name, value_count, min, max, delta FROM Coordinates", "coord_id", ids)
	rows, err := pb.pool.Query(ctx, query+" ORDER BY coord_id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query coordinates: %w", err)
	}

	var coords []*data.Coordinate
	byID := make(map[int64]*data.Coordinate)
	for rows.Next() {
		var c data.Coordinate
		var lo, hi *float64
		if err := rows.Scan(&c.ID, &c.Name, &c.Count, &lo, &hi, &c.Delta); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan coordinate: %w", err)
		}
		c.Min = floatOrNaN(lo)
		c.Max = floatOrNaN(hi)

		coords = append(coords, &c)
		byID[c.ID] = &c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query, args = filter("SELECT coord_id, value FROM DiscreteCoordinateValues", "coord_id", ids)
	values, err := pb.pool.Query(ctx, query+" ORDER BY coord_id, ordinal", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query discrete values: %w", err)
	}
	defer values.Close()

	for values.Next() {
		var id int64
		var v float64
		if err := values.Scan(&id, &v); err != nil {
			return nil, fmt.Errorf("failed to scan discrete value: %w", err)
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

	attrs, err := readAttributesUnsafe(ctx, pb.pool, "CoordinateAttributes", "coord_id", ids)
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

func (pb *PostgresBackend) readFilesUnsafe(ctx context.Context, ids []int64) ([]*data.File, error) {
	query, args := filter(`
		SELECT f.file_id, f.directory_id, d.path, f.filename, f.symlink_target, f.created, f.modified
		FROM Files f JOIN Directories d ON d.directory_id = f.directory_id`, "f.file_id", ids)
	rows, err := pb.pool.Query(ctx, query+" ORDER BY f.file_id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}

	var files []*data.File
	byID := make(map[int64]*data.File)
	for rows.Next() {
		var f data.File
		var symlink *string
		if err := rows.Scan(&f.ID, &f.DirectoryID, &f.Directory, &f.Filename, &symlink, &f.Created, &f.Modified); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		if symlink != nil {
			f.Symlink = *symlink
		}

		files = append(files, &f)
		byID[f.ID] = &f
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attrs, err := readAttributesUnsafe(ctx, pb.pool, "GlobalAttributes", "file_id", ids)
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

func nullFloat(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

func floatOrNaN(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
