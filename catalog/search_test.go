package catalog_test

import (
	"testing"

	"github.com/mwantia/metacat/catalog"
	"github.com/mwantia/metacat/catalog/backend/memory"
	"github.com/mwantia/metacat/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2000-01-01T00:00:00Z
const epoch2000 = 946684800.0

func bound(hours float64) *float64 {
	v := epoch2000 + hours*3600
	return &v
}

func value(v float64) *float64 {
	return &v
}

func searchCatalog(t *testing.T) *catalog.Reader {
	t.Helper()
	ctx := t.Context()

	store := memory.NewMemoryBackend()
	require.NoError(t, store.InitSchema(ctx))

	units := func() data.Attributes {
		return data.Attributes{data.NewAttribute("units", "hours since 2000-01-01")}
	}
	coords := []*data.Coordinate{
		data.NewCoordinate("lat", data.SamplesOf([]float64{0, 5, 10}), data.Attributes{data.NewAttribute("units", "degrees_north")}),
		data.NewCoordinate("time", data.SamplesOf([]int{0, 24, 48}), units()),
		data.NewCoordinate("time", data.SamplesOf([]int{72, 96, 120}), units()),
	}
	for i, c := range coords {
		c.ID = int64(i)
		require.NoError(t, store.CreateCoordinate(ctx, c))
	}

	temp := data.NewVariable("temp", 2, nil)
	temp.ID = 0
	require.NoError(t, temp.AddFile(0, []int64{0, 1}))
	require.NoError(t, temp.AddFile(1, []int64{0, 2}))
	temp.MultiDim = 1

	crs := data.NewVariable("crs", 0, nil)
	crs.ID = 1
	require.NoError(t, crs.AddFile(0, nil))

	require.NoError(t, catalog.FlushVariables(ctx, store, []*data.Variable{temp, crs}))
	return catalog.NewReader(store)
}

func TestSearch_Ranges(t *testing.T) {
	reader := searchCatalog(t)

	tests := []struct {
		name  string
		query catalog.Query
		files []int64
	}{
		{
			name:  "union of files covers range",
			query: catalog.Query{Variable: "temp", Ranges: []catalog.RangeFilter{{Coordinate: "time", Min: bound(24), Max: bound(100)}}},
			files: []int64{0, 1},
		},
		{
			name:  "files outside range are dropped",
			query: catalog.Query{Variable: "temp", Ranges: []catalog.RangeFilter{{Coordinate: "time", Min: bound(72), Max: bound(100)}}},
			files: []int64{1},
		},
		{
			name:  "open upper bound",
			query: catalog.Query{Variable: "temp", Ranges: []catalog.RangeFilter{{Coordinate: "time", Min: bound(80)}}},
			files: []int64{1},
		},
		{
			name:  "range starts before data",
			query: catalog.Query{Variable: "temp", Ranges: []catalog.RangeFilter{{Coordinate: "time", Min: bound(-10)}}},
		},
		{
			name:  "shared coordinate covers range",
			query: catalog.Query{Variable: "temp", Ranges: []catalog.RangeFilter{{Coordinate: "lat", Min: value(0), Max: value(10)}}},
			files: []int64{0, 1},
		},
		{
			name:  "shared coordinate too small",
			query: catalog.Query{Variable: "temp", Ranges: []catalog.RangeFilter{{Coordinate: "lat", Min: value(0), Max: value(20)}}},
		},
		{
			name:  "restricted files",
			query: catalog.Query{Variable: "temp", Files: []int64{1}},
			files: []int64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := reader.Search(t.Context(), tt.query)
			require.NoError(t, err)

			if tt.files == nil {
				assert.Empty(t, matches)
				return
			}
			require.Len(t, matches, 1)
			assert.Equal(t, "temp", matches[0].Variable.Name)
			assert.Equal(t, tt.files, matches[0].Files)
		})
	}
}

func TestSearch_AllVariables(t *testing.T) {
	reader := searchCatalog(t)

	matches, err := reader.Search(t.Context(), catalog.Query{
		Ranges: []catalog.RangeFilter{{Coordinate: "time", Min: bound(0), Max: bound(120)}},
	})
	require.NoError(t, err)

	// The zero-dimension variable has no time axis to filter on.
	require.Len(t, matches, 2)
	assert.Equal(t, "temp", matches[0].Variable.Name)
	assert.Equal(t, "crs", matches[1].Variable.Name)
	assert.Equal(t, []int64{0}, matches[1].Files)
}
