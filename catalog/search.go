package catalog

import (
	"context"
	"fmt"
	"math"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/timeaxis"
)

// RangeFilter restricts a coordinate to [Min, Max] in canonical units, which
// are seconds since 1970-01-01 for time axes. A nil bound is open.
type RangeFilter struct {
	Coordinate string
	Min        *float64
	Max        *float64
}

func (f RangeFilter) bounds() (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if f.Min != nil {
		lo = *f.Min
	}
	if f.Max != nil {
		hi = *f.Max
	}
	return lo, hi
}

// Query selects variables by name and coordinate ranges. Files, when set,
// limits the files a variable may be served from.
type Query struct {
	Variable string
	Files    []int64
	Ranges   []RangeFilter
}

// Match is a variable satisfying a query together with the files that
// contribute to the requested range.
type Match struct {
	Variable *data.Variable
	Files    []int64
}

// Search returns every variable whose coordinates cover the requested ranges.
// For the multi-dimension files outside a range are dropped and the remaining
// files together must cover it.
func (r *Reader) Search(ctx context.Context, q Query) ([]Match, error) {
	vars, err := r.Variables(ctx)
	if err != nil {
		return nil, err
	}

	coords := make(map[int64]*data.Coordinate)
	coordOf := func(id int64) (*data.Coordinate, error) {
		if c, ok := coords[id]; ok {
			return c, nil
		}
		c, err := r.store.ReadCoordinate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read coordinate %d: %w", id, err)
		}
		coords[id] = c
		return c, nil
	}
	extents := make(map[int64]timeaxis.Extent)
	extentOf := func(id int64) (timeaxis.Extent, error) {
		if e, ok := extents[id]; ok {
			return e, nil
		}
		c, err := coordOf(id)
		if err != nil {
			return timeaxis.Extent{}, err
		}
		e, err := timeaxis.CanonicalExtent(c)
		if err != nil {
			return timeaxis.Extent{}, fmt.Errorf("coordinate %d: %w", id, err)
		}
		extents[id] = e
		return e, nil
	}

	var matches []Match
	for _, v := range vars {
		if q.Variable != "" && v.Name != q.Variable {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		allowed := allowedFiles(v, q.Files)
		inRange := true

		for d := 0; d < v.NDims && inRange; d++ {
			reference, err := coordOf(v.ReferenceCoord(d))
			if err != nil {
				return nil, err
			}

			for _, filter := range q.Ranges {
				if filter.Coordinate != reference.Name || (filter.Min == nil && filter.Max == nil) {
					continue
				}
				lo, hi := filter.bounds()

				unique := v.UniqueCoords(d)
				if len(unique) == 1 {
					e, err := extentOf(unique[0])
					if err != nil {
						return nil, err
					}
					inRange = covers(e.Min, e.Max, lo, hi)
					break
				}

				cmin, cmax := math.NaN(), math.NaN()
				for f, fileID := range v.FileIDs {
					if !allowed[fileID] {
						continue
					}
					e, err := extentOf(v.CoordIDs[d][f])
					if err != nil {
						return nil, err
					}
					if !e.Overlaps(lo, hi) {
						allowed[fileID] = false
						continue
					}
					if math.IsNaN(cmin) || e.Min < cmin {
						cmin = e.Min
					}
					if math.IsNaN(cmax) || e.Max > cmax {
						cmax = e.Max
					}
				}
				inRange = covers(cmin, cmax, lo, hi)
				break
			}
		}

		if !inRange {
			continue
		}

		var files []int64
		for _, fileID := range v.FileIDs {
			if allowed[fileID] {
				files = append(files, fileID)
			}
		}
		if len(files) > 0 {
			matches = append(matches, Match{Variable: v, Files: files})
		}
	}

	return matches, nil
}

func allowedFiles(v *data.Variable, restrict []int64) map[int64]bool {
	allowed := make(map[int64]bool, len(v.FileIDs))
	if len(restrict) == 0 {
		for _, id := range v.FileIDs {
			allowed[id] = true
		}
		return allowed
	}

	for _, id := range restrict {
		allowed[id] = true
	}
	return allowed
}

// covers reports whether [cmin, cmax] contains the bounded ends of [lo, hi].
func covers(cmin, cmax, lo, hi float64) bool {
	if math.IsNaN(cmin) || math.IsNaN(cmax) {
		return false
	}
	return (math.IsInf(lo, -1) || cmin <= lo) && (math.IsInf(hi, 1) || cmax >= hi)
}
