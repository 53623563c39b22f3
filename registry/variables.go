package registry

import (
	"github.com/mwantia/metacat/data"
	"github.com/tidwall/btree"
)

// Variables merges observations of the same variable across files. It reads
// coordinates from the registry it was created with. Callers serialize access.
type Variables struct {
	coords *Coordinates
	arena  []*data.Variable
	names  *btree.Map[string, []int64]
}

func NewVariables(coords *Coordinates) *Variables {
	return &Variables{
		coords: coords,
		names:  btree.NewMap[string, []int64](0),
	}
}

// merge is the outcome of comparing a candidate against one variable.
type merge struct {
	accepted bool
	varying  int
	specific []string
}

// ResolveAndMerge folds one observation of candidate in file fileID into the
// first compatible variable, or registers candidate as a new variable. It
// returns the id of the variable the observation was recorded in.
func (r *Variables) ResolveAndMerge(candidate *data.Variable, coordIDs []int64, fileID int64) (int64, error) {
	if len(coordIDs) != candidate.NDims {
		return -1, data.DimensionCountMismatch(candidate.Name, candidate.NDims, len(coordIDs))
	}

	ids, _ := r.names.Get(candidate.Name)
	for _, id := range ids {
		existing := r.arena[id]

		m, err := r.compare(existing, candidate, coordIDs)
		if err != nil {
			return -1, err
		}
		if !m.accepted {
			continue
		}

		if m.varying != data.NoMultiDimension {
			if existing.HasMultiDim() && existing.MultiDim != m.varying {
				return -1, data.MultipleVaryingDimensions(existing.Name, existing.MultiDim, m.varying)
			}
			existing.MultiDim = m.varying
		}
		if err := existing.AddFile(fileID, coordIDs); err != nil {
			return -1, err
		}
		for _, name := range m.specific {
			existing.Attributes.Set(name, data.TextValue(data.FileSpecific))
		}

		return existing.ID, nil
	}

	return r.register(candidate, coordIDs, fileID)
}

func (r *Variables) register(v *data.Variable, coordIDs []int64, fileID int64) (int64, error) {
	v.ID = int64(len(r.arena))
	if err := v.AddFile(fileID, coordIDs); err != nil {
		return -1, err
	}
	r.arena = append(r.arena, v)

	ids, _ := r.names.Get(v.Name)
	r.names.Set(v.Name, append(ids, v.ID))

	return v.ID, nil
}

func (r *Variables) compare(existing, candidate *data.Variable, coordIDs []int64) (merge, error) {
	m := merge{varying: data.NoMultiDimension}

	if existing.Name != candidate.Name || existing.NDims != candidate.NDims {
		return m, nil
	}

	if !existing.Attributes.SameNames(candidate.Attributes) {
		return m, nil
	}
	for _, attr := range candidate.Attributes {
		value, _ := existing.Attributes.Get(attr.Name)
		if value.Equal(attr.Value) {
			continue
		}
		if _, ok := data.MustMatchAttributes[attr.Name]; ok {
			return m, nil
		}
		if value.Kind == data.AttributeText && value.Text == data.FileSpecific {
			continue
		}
		m.specific = append(m.specific, attr.Name)
	}

	mismatches := 0
	for d, id := range coordIDs {
		reference, ok := r.coords.Get(existing.ReferenceCoord(d))
		if !ok {
			return m, data.UnknownCoordinateReference(existing.Name, existing.ReferenceCoord(d))
		}
		coord, ok := r.coords.Get(id)
		if !ok {
			return m, data.UnknownCoordinateReference(candidate.Name, id)
		}

		if !reference.MatchesType(coord) {
			return m, nil
		}
		if !existing.HasCoord(d, id) {
			mismatches++
			m.varying = d
		}
	}
	if mismatches > 1 {
		return merge{varying: data.NoMultiDimension}, nil
	}

	m.accepted = true
	return m, nil
}

func (r *Variables) Get(id int64) (*data.Variable, bool) {
	if id < 0 || id >= int64(len(r.arena)) {
		return nil, false
	}
	return r.arena[id], true
}

func (r *Variables) Len() int {
	return len(r.arena)
}

// All returns the registered variables in id order.
func (r *Variables) All() []*data.Variable {
	all := make([]*data.Variable, len(r.arena))
	copy(all, r.arena)
	return all
}
