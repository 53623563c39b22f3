package data

// Attributes whose values must agree for two observations to be merged.
var MustMatchAttributes = map[string]struct{}{
	"long_name":     {},
	"standard_name": {},
	"units":         {},
	"dataset":       {},
	"statistic":     {},
	"time_step":     {},
	"var_desc":      {},
}

// NoMultiDimension marks a variable whose coordinates agree across all files.
const NoMultiDimension = -1

// Variable is a catalog variable merged from one or more files. FileIDs and
// every CoordIDs[d] are parallel: CoordIDs[d][f] is the coordinate of
// dimension d in file FileIDs[f].
type Variable struct {
	ID         int64
	Name       string
	NDims      int
	FileIDs    []int64
	CoordIDs   [][]int64
	MultiDim   int
	Attributes Attributes
}

func NewVariable(name string, ndims int, attrs Attributes) *Variable {
	return &Variable{
		ID:         -1,
		Name:       name,
		NDims:      ndims,
		CoordIDs:   make([][]int64, ndims),
		MultiDim:   NoMultiDimension,
		Attributes: attrs,
	}
}

func (v *Variable) FileCount() int {
	return len(v.FileIDs)
}

func (v *Variable) HasMultiDim() bool {
	return v.MultiDim != NoMultiDimension
}

// AddFile appends one observation. coordIDs must hold one id per dimension.
func (v *Variable) AddFile(fileID int64, coordIDs []int64) error {
	if len(coordIDs) != v.NDims {
		return DimensionCountMismatch(v.Name, v.NDims, len(coordIDs))
	}
	v.FileIDs = append(v.FileIDs, fileID)
	for d, id := range coordIDs {
		v.CoordIDs[d] = append(v.CoordIDs[d], id)
	}
	return nil
}

// ReferenceCoord returns the first coordinate recorded for dimension d.
func (v *Variable) ReferenceCoord(d int) int64 {
	if d >= len(v.CoordIDs) || len(v.CoordIDs[d]) == 0 {
		return -1
	}
	return v.CoordIDs[d][0]
}

// HasCoord reports whether id was already recorded for dimension d.
func (v *Variable) HasCoord(d int, id int64) bool {
	for _, existing := range v.CoordIDs[d] {
		if existing == id {
			return true
		}
	}
	return false
}

// CoordForFile returns the coordinate of dimension d in file fileID.
func (v *Variable) CoordForFile(d int, fileID int64) (int64, bool) {
	for f, id := range v.FileIDs {
		if id == fileID {
			return v.CoordIDs[d][f], true
		}
	}
	return -1, false
}

// UniqueCoords returns the distinct ids of dimension d in first-seen order.
func (v *Variable) UniqueCoords(d int) []int64 {
	seen := make(map[int64]struct{}, len(v.CoordIDs[d]))
	unique := make([]int64, 0, 1)
	for _, id := range v.CoordIDs[d] {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// AllFiles is the file id of an association that applies to every file of
// the variable; NoCoordinate and NoDimension mark zero-dimension membership.
const (
	AllFiles     int64 = -1
	NoCoordinate int64 = -1
	NoDimension        = -1
)

// Association is one persisted (variable, coordinate, file, dimension) row.
type Association struct {
	VariableID     int64
	CoordinateID   int64
	FileID         int64
	DimensionIndex int
}
