package catalog

import (
	"slices"

	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/data"
)

// Encode returns the association rows of v in write order. A dimension whose
// coordinate is shared by every file of a variable with a multi-dimension
// collapses to one row with file id AllFiles.
func Encode(v *data.Variable) []data.Association {
	var rows []data.Association

	if v.NDims == 0 {
		for _, fileID := range v.FileIDs {
			rows = append(rows, data.Association{
				VariableID:     v.ID,
				CoordinateID:   data.NoCoordinate,
				FileID:         fileID,
				DimensionIndex: data.NoDimension,
			})
		}
		return rows
	}

	for d := 0; d < v.NDims; d++ {
		unique := v.UniqueCoords(d)
		if len(unique) == 1 && v.FileCount() > 1 && v.HasMultiDim() {
			rows = append(rows, data.Association{
				VariableID:     v.ID,
				CoordinateID:   unique[0],
				FileID:         data.AllFiles,
				DimensionIndex: d,
			})
			continue
		}

		for f, fileID := range v.FileIDs {
			rows = append(rows, data.Association{
				VariableID:     v.ID,
				CoordinateID:   v.CoordIDs[d][f],
				FileID:         fileID,
				DimensionIndex: d,
			})
		}
	}

	return rows
}

// Decode rebuilds a variable from its header and association rows.
func Decode(header *backend.VariableHeader, rows []data.Association) (*data.Variable, error) {
	v := data.NewVariable(header.Name, header.NDims, header.Attributes.Clone())
	v.ID = header.ID

	if header.NDims == 0 {
		for _, row := range rows {
			if row.CoordinateID != data.NoCoordinate || row.DimensionIndex != data.NoDimension {
				return nil, data.CorruptCatalog("zero-dimension variable %d has a row for dimension %d", v.ID, row.DimensionIndex)
			}
			v.FileIDs = append(v.FileIDs, row.FileID)
		}
		return v, nil
	}

	perDim := make([][]data.Association, header.NDims)
	for _, row := range rows {
		if row.DimensionIndex < 0 || row.DimensionIndex >= header.NDims {
			return nil, data.CorruptCatalog("variable %d has a row for dimension %d of %d", v.ID, row.DimensionIndex, header.NDims)
		}
		perDim[row.DimensionIndex] = append(perDim[row.DimensionIndex], row)
	}

	var files []int64
	for d, dimRows := range perDim {
		if len(dimRows) == 0 {
			return nil, data.CorruptCatalog("variable %d has no rows for dimension %d", v.ID, d)
		}
		if dimRows[0].FileID == data.AllFiles {
			if len(dimRows) != 1 {
				return nil, data.CorruptCatalog("variable %d mixes shared and per-file rows in dimension %d", v.ID, d)
			}
			continue
		}

		ids := make([]int64, len(dimRows))
		for i, row := range dimRows {
			if row.FileID == data.AllFiles {
				return nil, data.CorruptCatalog("variable %d mixes shared and per-file rows in dimension %d", v.ID, d)
			}
			ids[i] = row.FileID
		}

		if files == nil {
			files = ids
		} else if !slices.Equal(files, ids) {
			return nil, data.CorruptCatalog("variable %d lists different files in dimension %d", v.ID, d)
		}
	}
	if files == nil {
		return nil, data.CorruptCatalog("variable %d has only shared rows", v.ID)
	}

	v.FileIDs = files
	for d, dimRows := range perDim {
		coords := make([]int64, len(files))
		for f := range files {
			if len(dimRows) == 1 && dimRows[0].FileID == data.AllFiles {
				coords[f] = dimRows[0].CoordinateID
			} else {
				coords[f] = dimRows[f].CoordinateID
			}
		}
		v.CoordIDs[d] = coords

		if len(v.UniqueCoords(d)) > 1 {
			if v.HasMultiDim() {
				return nil, data.CorruptCatalog("variable %d varies in dimensions %d and %d", v.ID, v.MultiDim, d)
			}
			v.MultiDim = d
		}
	}

	return v, nil
}

// Records converts variables into the records a store writes.
func Records(vars []*data.Variable) []*backend.VariableRecord {
	records := make([]*backend.VariableRecord, len(vars))
	for i, v := range vars {
		records[i] = &backend.VariableRecord{
			VariableHeader: backend.VariableHeader{
				ID:         v.ID,
				Name:       v.Name,
				NDims:      v.NDims,
				Attributes: v.Attributes,
			},
			Associations: Encode(v),
		}
	}
	return records
}
