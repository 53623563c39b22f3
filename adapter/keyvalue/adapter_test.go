package keyvalue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/metacat/adapter"
	"github.com/mwantia/metacat/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocument(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}
	return path
}

const surfaceDocument = `
attributes:
  title: Surface fields
  version: 3
keys:
  temp:
    shape: [3, 2]
    attributes:
      long_name: Temperature
      DimensionNames: time,lat
      DIMENSION_LIST: ignored
  lat:
    values: [-45, 45]
    attributes:
      units: degrees_north
      REFERENCE_LIST: ignored
  time:
    values: [0, 24, null]
    attributes:
      units: hours since 2000-01-01
      calendar: julian
  pressure:
    values: [[1, 2], [3, 4], [5, 6]]
  ocean:
    keys:
      depth:
        values: [5, 10, 20, 50]
      salinity:
        shape: [4, 2]
        attributes:
          coordinates: depth lat
      scalar:
        values: 7
`

func TestAdapter_Document(t *testing.T) {
	path := writeDocument(t, "surface.yaml", surfaceDocument)

	contents, err := New([]string{"time", "lat", "depth"}).Open(t.Context(), path)
	require.NoError(t, err)

	title, _ := contents.Attributes.Get("title")
	assert.Equal(t, "Surface fields", title.Text)
	version, _ := contents.Attributes.Get("version")
	assert.Equal(t, data.NumberValue(3), version)

	// Coordinates follow the order of the configured names.
	require.Len(t, contents.Dimensions, 3)
	assert.Equal(t, "/time", contents.Dimensions[0].Ref)
	assert.Equal(t, []data.Sample{data.Present(0), data.Present(24), data.Missing()}, contents.Dimensions[0].Samples)
	assert.Equal(t, "/lat", contents.Dimensions[1].Ref)
	assert.False(t, contents.Dimensions[1].Attributes.Has("REFERENCE_LIST"))
	assert.Equal(t, "depth", contents.Dimensions[2].Name)
	assert.Equal(t, "/ocean/depth", contents.Dimensions[2].Ref)

	require.Len(t, contents.Variables, 4)

	temp := contents.Variables[0]
	assert.Equal(t, "/temp", temp.Name)
	assert.Equal(t, []string{"/time", "/lat"}, temp.DimensionRefs)
	assert.True(t, temp.Attributes.Has("long_name"))
	assert.False(t, temp.Attributes.Has("DimensionNames"))
	assert.False(t, temp.Attributes.Has("DIMENSION_LIST"))

	// Shape inferred from nested values, dimensions matched by length.
	pressure := contents.Variables[1]
	assert.Equal(t, []string{"/time", "/lat"}, pressure.DimensionRefs)

	salinity := contents.Variables[2]
	assert.Equal(t, "/ocean/salinity", salinity.Name)
	assert.Equal(t, []string{"/ocean/depth", "/lat"}, salinity.DimensionRefs)
	assert.Empty(t, salinity.Attributes)

	scalar := contents.Variables[3]
	assert.Empty(t, scalar.DimensionRefs)
}

func TestAdapter_JSONDocument(t *testing.T) {
	path := writeDocument(t, "fields.json", `{
		"attributes": {"title": "json"},
		"keys": {
			"x": {"values": [1, 2, 4], "attributes": {"_FillValue": 4}},
			"v": {"shape": [3]}
		}
	}`)

	contents, err := New([]string{"x"}).Open(t.Context(), path)
	require.NoError(t, err)

	require.Len(t, contents.Dimensions, 1)
	assert.Equal(t, data.SamplesOf([]float64{1, 2, 4}, 4), contents.Dimensions[0].Samples)
	require.Len(t, contents.Variables, 1)
	assert.Equal(t, []string{"/x"}, contents.Variables[0].DimensionRefs)
}

func TestAdapter_UnresolvedDimensions(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{
			name: "unknown dimension name",
			document: `
keys:
  time: {values: [0, 1]}
  temp: {shape: [2], attributes: {DimensionNames: level}}
`,
		},
		{
			name: "ambiguous length",
			document: `
keys:
  time: {values: [0, 1]}
  lat: {values: [10, 20]}
  temp: {shape: [2]}
`,
		},
		{
			name: "no matching length",
			document: `
keys:
  time: {values: [0, 1]}
  temp: {shape: [5]}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDocument(t, "doc.yaml", tt.document)

			_, err := New([]string{"time", "lat"}).Open(t.Context(), path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, data.ErrUnresolvedDimension), "got %v", err)
			assert.False(t, errors.Is(err, adapter.ErrUnreadable))
		})
	}
}

func TestAdapter_Unreadable(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{name: "empty", document: ""},
		{name: "not a mapping", document: "- 1\n- 2\n"},
		{name: "broken yaml", document: "keys: [unterminated"},
		{name: "coordinate without values", document: "keys:\n  time: {shape: [2]}\n"},
		{name: "non numeric coordinate", document: "keys:\n  time: {values: [a, b]}\n"},
		{name: "ragged values", document: "keys:\n  v: {values: [[1, 2], [3]]}\n"},
		{name: "plain key", document: "keys:\n  v: 3\n"},
		{name: "nested attribute", document: "keys:\n  v: {shape: [], attributes: {a: {b: c}}}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDocument(t, "doc.yaml", tt.document)

			_, err := New([]string{"time"}).Open(t.Context(), path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, adapter.ErrUnreadable), "got %v", err)
		})
	}

	_, err := New(nil).Open(t.Context(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, adapter.ErrUnreadable))
}

func TestAdapter_Accepts(t *testing.T) {
	a := New(nil)
	assert.True(t, adapter.Accepts(a, "/data/a.yaml"))
	assert.True(t, adapter.Accepts(a, "/data/a.json"))
	assert.False(t, adapter.Accepts(a, "/data/a.nc"))
}
