package registry

import (
	"github.com/mwantia/metacat/data"
	"github.com/tidwall/btree"
)

// Coordinates is an append-only arena of deduplicated coordinates. Ids are
// arena indices. Callers serialize access.
type Coordinates struct {
	arena []*data.Coordinate
	names *btree.Map[string, []int64]
}

func NewCoordinates() *Coordinates {
	return &Coordinates{
		names: btree.NewMap[string, []int64](0),
	}
}

// Lookup returns the id of the first registered coordinate that matches candidate.
func (r *Coordinates) Lookup(candidate *data.Coordinate) (int64, bool) {
	ids, _ := r.names.Get(candidate.Name)
	for _, id := range ids {
		if r.arena[id].Matches(candidate) {
			return id, true
		}
	}
	return -1, false
}

// NextID returns the id the next registered coordinate will receive.
func (r *Coordinates) NextID() int64 {
	return int64(len(r.arena))
}

// Register assigns the next id to c and appends it. It does not deduplicate.
func (r *Coordinates) Register(c *data.Coordinate) int64 {
	c.ID = r.NextID()
	r.arena = append(r.arena, c)

	ids, _ := r.names.Get(c.Name)
	r.names.Set(c.Name, append(ids, c.ID))

	return c.ID
}

func (r *Coordinates) Get(id int64) (*data.Coordinate, bool) {
	if id < 0 || id >= int64(len(r.arena)) {
		return nil, false
	}
	return r.arena[id], true
}

func (r *Coordinates) Len() int {
	return len(r.arena)
}

// All returns the registered coordinates in id order.
func (r *Coordinates) All() []*data.Coordinate {
	all := make([]*data.Coordinate, len(r.arena))
	copy(all, r.arena)
	return all
}

// Names returns every registered coordinate name in sorted order.
func (r *Coordinates) Names() []string {
	return r.names.Keys()
}
