package registry

import (
	"testing"

	"github.com/mwantia/metacat/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeCoordinate(values ...int) *data.Coordinate {
	return data.NewCoordinate("time", data.SamplesOf(values), data.Attributes{
		data.NewAttribute("units", "hours since 2000-01-01"),
		data.NewAttribute("calendar", "julian"),
	})
}

func latCoordinate(values ...float64) *data.Coordinate {
	return data.NewCoordinate("lat", data.SamplesOf(values), data.Attributes{
		data.NewAttribute("units", "degrees_north"),
	})
}

func resolve(r *Coordinates, c *data.Coordinate) int64 {
	if id, ok := r.Lookup(c); ok {
		return id
	}
	return r.Register(c)
}

func temperature(ndims int, extra ...data.Attribute) *data.Variable {
	attrs := append(data.Attributes{data.NewAttribute("long_name", "Temperature")}, extra...)
	return data.NewVariable("temp", ndims, attrs)
}

func TestCoordinates_Idempotence(t *testing.T) {
	r := NewCoordinates()

	first := resolve(r, timeCoordinate(0, 24, 48))
	second := resolve(r, timeCoordinate(0, 24, 48))
	other := resolve(r, timeCoordinate(24, 48, 72))

	assert.Equal(t, int64(0), first)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), other)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int64(2), r.NextID())
	assert.Equal(t, []string{"time"}, r.Names())

	c, ok := r.Get(other)
	require.True(t, ok)
	assert.Equal(t, 24.0, c.Min)

	_, ok = r.Get(5)
	assert.False(t, ok)
}

func TestCoordinates_LookupIsScopedByName(t *testing.T) {
	r := NewCoordinates()
	r.Register(latCoordinate(0, 1, 2))

	lon := data.NewCoordinate("lon", data.SamplesOf([]float64{0, 1, 2}), data.Attributes{
		data.NewAttribute("units", "degrees_north"),
	})
	_, ok := r.Lookup(lon)
	assert.False(t, ok)
}

func TestVariables_ScenarioTimeMerge(t *testing.T) {
	coords := NewCoordinates()
	vars := NewVariables(coords)

	timeA := resolve(coords, timeCoordinate(0, 24, 48))
	timeB := resolve(coords, timeCoordinate(24, 48, 72))

	idA, err := vars.ResolveAndMerge(temperature(1), []int64{timeA}, 0)
	require.NoError(t, err)
	idB, err := vars.ResolveAndMerge(temperature(1), []int64{timeB}, 1)
	require.NoError(t, err)

	assert.Equal(t, idA, idB)
	require.Equal(t, 1, vars.Len())

	v, ok := vars.Get(idA)
	require.True(t, ok)
	assert.Equal(t, 0, v.MultiDim)
	assert.Equal(t, []int64{0, 1}, v.FileIDs)
	assert.Equal(t, []int64{timeA, timeB}, v.CoordIDs[0])
}

func TestVariables_MergeSoundness(t *testing.T) {
	coords := NewCoordinates()
	vars := NewVariables(coords)

	time := resolve(coords, timeCoordinate(0, 24))
	lat := resolve(coords, latCoordinate(0, 1))

	id, err := vars.ResolveAndMerge(temperature(2, data.NewAttribute("history", "run 1")), []int64{time, lat}, 0)
	require.NoError(t, err)

	// Must-match attribute differs.
	other, err := vars.ResolveAndMerge(data.NewVariable("temp", 2, data.Attributes{
		data.NewAttribute("long_name", "Sea temperature"),
		data.NewAttribute("history", "run 1"),
	}), []int64{time, lat}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	// Attribute name sets differ.
	third, err := vars.ResolveAndMerge(temperature(2), []int64{time, lat}, 2)
	require.NoError(t, err)
	assert.NotEqual(t, id, third)
	assert.NotEqual(t, other, third)

	// Different dimension count.
	fourth, err := vars.ResolveAndMerge(temperature(1, data.NewAttribute("history", "run 1")), []int64{time}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fourth)

	// Coordinate of a different kind in dimension 1.
	depth := resolve(coords, data.NewCoordinate("depth", data.SamplesOf([]float64{5}), nil))
	fifth, err := vars.ResolveAndMerge(temperature(2, data.NewAttribute("history", "run 1")), []int64{time, depth}, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), fifth)

	// Only a free-form attribute differs: merged and marked as file specific.
	merged, err := vars.ResolveAndMerge(temperature(2, data.NewAttribute("history", "run 2")), []int64{time, lat}, 5)
	require.NoError(t, err)
	assert.Equal(t, id, merged)

	v, _ := vars.Get(id)
	history, ok := v.Attributes.Get("history")
	require.True(t, ok)
	assert.Equal(t, data.FileSpecific, history.Text)
	assert.False(t, v.HasMultiDim())
	assert.Equal(t, []int64{0, 5}, v.FileIDs)

	// A later file with yet another value keeps the sentinel.
	_, err = vars.ResolveAndMerge(temperature(2, data.NewAttribute("history", "run 3")), []int64{time, lat}, 6)
	require.NoError(t, err)
	history, _ = v.Attributes.Get("history")
	assert.Equal(t, data.FileSpecific, history.Text)
	assert.Len(t, v.Attributes, 2)
}

func TestVariables_SingleVaryingDimension(t *testing.T) {
	coords := NewCoordinates()
	vars := NewVariables(coords)

	lat := resolve(coords, latCoordinate(0, 1))
	t0 := resolve(coords, timeCoordinate(0, 24))
	t1 := resolve(coords, timeCoordinate(48, 72))
	t2 := resolve(coords, timeCoordinate(96, 120))

	for f, time := range []int64{t0, t1, t2} {
		_, err := vars.ResolveAndMerge(temperature(2), []int64{lat, time}, int64(f))
		require.NoError(t, err)
	}

	require.Equal(t, 1, vars.Len())
	v, _ := vars.Get(0)
	assert.Equal(t, 1, v.MultiDim)
	assert.Equal(t, []int64{lat}, v.UniqueCoords(0))
	assert.Equal(t, []int64{t0, t1, t2}, v.UniqueCoords(1))
}

func TestVariables_TwoDimensionsDifferingIsNotMerged(t *testing.T) {
	coords := NewCoordinates()
	vars := NewVariables(coords)

	lat0 := resolve(coords, latCoordinate(0, 1))
	lat1 := resolve(coords, latCoordinate(2, 3))
	t0 := resolve(coords, timeCoordinate(0, 24))
	t1 := resolve(coords, timeCoordinate(48, 72))

	first, err := vars.ResolveAndMerge(temperature(2), []int64{lat0, t0}, 0)
	require.NoError(t, err)
	second, err := vars.ResolveAndMerge(temperature(2), []int64{lat1, t1}, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, vars.Len())
}

func TestVariables_SecondVaryingDimensionIsFatal(t *testing.T) {
	coords := NewCoordinates()
	vars := NewVariables(coords)

	lat0 := resolve(coords, latCoordinate(0, 1))
	lat1 := resolve(coords, latCoordinate(2, 3))
	t0 := resolve(coords, timeCoordinate(0, 24))
	t1 := resolve(coords, timeCoordinate(48, 72))

	_, err := vars.ResolveAndMerge(temperature(2), []int64{lat0, t0}, 0)
	require.NoError(t, err)
	_, err = vars.ResolveAndMerge(temperature(2), []int64{lat0, t1}, 1)
	require.NoError(t, err)

	_, err = vars.ResolveAndMerge(temperature(2), []int64{lat1, t0}, 2)
	assert.ErrorIs(t, err, data.ErrMultipleVaryingDimensions)

	v, _ := vars.Get(0)
	assert.Equal(t, 2, v.FileCount())
}

func TestVariables_ZeroDimension(t *testing.T) {
	vars := NewVariables(NewCoordinates())

	for f := int64(0); f < 3; f++ {
		id, err := vars.ResolveAndMerge(data.NewVariable("crs", 0, data.Attributes{
			data.NewAttribute("grid_mapping_name", "latitude_longitude"),
		}), nil, f)
		require.NoError(t, err)
		assert.Equal(t, int64(0), id)
	}

	v, _ := vars.Get(0)
	assert.Equal(t, []int64{0, 1, 2}, v.FileIDs)
	assert.Empty(t, v.CoordIDs)
	assert.False(t, v.HasMultiDim())
}

func TestVariables_Errors(t *testing.T) {
	vars := NewVariables(NewCoordinates())

	_, err := vars.ResolveAndMerge(temperature(1), []int64{0, 1}, 0)
	assert.ErrorIs(t, err, data.ErrDimensionCountMismatch)

	_, err = vars.ResolveAndMerge(temperature(1), []int64{7}, 0)
	require.NoError(t, err)
	_, err = vars.ResolveAndMerge(temperature(1), []int64{7}, 1)
	assert.ErrorIs(t, err, data.ErrUnknownCoordinateReference)
}
