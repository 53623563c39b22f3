package builtin

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/metacat/adapter/netcdf/netcdftest"
	"github.com/mwantia/metacat/cmd"
	"github.com/mwantia/metacat/timeaxis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(times []float64) netcdftest.File {
	return netcdftest.File{
		Version: 1,
		Dims:    []netcdftest.Dim{{Name: "time", Length: int64(len(times))}},
		Vars: []netcdftest.Var{
			{Name: "time", Dims: []int{0}, Data: times, Attrs: []netcdftest.Attr{
				{Name: "units", Value: "hours since 2000-01-01"},
				{Name: "calendar", Value: "proleptic_gregorian"},
			}},
			{Name: "temp", Dims: []int{0}, Data: make([]float32, len(times)), Attrs: []netcdftest.Attr{
				{Name: "long_name", Value: "Temperature"},
			}},
		},
	}
}

func newManager(t *testing.T) *cmd.Manager {
	t.Helper()

	m := cmd.NewManager("metacat")
	require.NoError(t, InitBuiltin(m))
	return m
}

func execute(t *testing.T, m *cmd.Manager, args ...string) (string, int, error) {
	t.Helper()

	var out bytes.Buffer
	code, err := m.Execute(t.Context(), &out, args...)
	return out.String(), code, err
}

func TestBuildSearchShow(t *testing.T) {
	t.Setenv("METACAT_LOGGING_LEVEL", "ERROR")

	root := t.TempDir()
	netcdftest.Write(t, root, "a.nc", series([]float64{0, 24, 48}))
	netcdftest.Write(t, filepath.Join(root, "later"), "b.nc", series([]float64{72, 96, 120}))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.nc"), []byte("garbage"), 0o644))
	db := filepath.Join(t.TempDir(), "catalog.db")

	m := newManager(t)

	out, code, err := execute(t, m, "build", root, "nc", db, "--batch-size", "1")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "2 files")
	assert.Contains(t, out, "broken.nc")

	// A second build into the same catalog is refused.
	_, code, err = execute(t, m, "build", root, "nc", db)
	assert.Equal(t, 1, code)
	assert.Error(t, err)

	out, code, err = execute(t, m, "search", db, "--var", "temp", "--range", "time:2000-01-04:2000-01-05", "-v")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "1 variables found")
	assert.Contains(t, out, filepath.Join(root, "later", "b.nc"))
	assert.NotContains(t, out, filepath.Join(root, "a.nc"))

	out, _, err = execute(t, m, "search", db, "--range", "time:2001-01-01:")
	require.NoError(t, err)
	assert.Contains(t, out, "0 variables found")

	out, code, err = execute(t, m, "show", db, "--files", "--failures")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "2 directories, 2 files, 2 coordinates, 1 variables")
	assert.Contains(t, out, "2000/01/01 00:00")
	assert.Contains(t, out, "broken.nc")
}

func TestBuild_UsageErrors(t *testing.T) {
	m := newManager(t)

	_, code, err := execute(t, m, "build")
	assert.Equal(t, 2, code)
	assert.True(t, errors.Is(err, cmd.ErrUsage), "got %v", err)

	// The key-value format needs coordinate names.
	_, code, err = execute(t, m, "build", t.TempDir(), "kv", filepath.Join(t.TempDir(), "c.db"))
	assert.Equal(t, 2, code)
	assert.Error(t, err)

	_, code, err = execute(t, m, "build", t.TempDir(), "grib", filepath.Join(t.TempDir(), "c.db"))
	assert.Equal(t, 2, code)
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	day, err := timeaxis.ParseInstant("2000-01-02")
	require.NoError(t, err)
	noon, err := timeaxis.ParseInstant("2000-01-01 12:00")
	require.NoError(t, err)

	tests := []struct {
		input   string
		name    string
		min     *float64
		max     *float64
		wantErr bool
	}{
		{input: "lat:-10:10", name: "lat", min: ptr(-10), max: ptr(10)},
		{input: "lat::10", name: "lat", max: ptr(10)},
		{input: "lat:-10:", name: "lat", min: ptr(-10)},
		{input: "time:2000-01-01 12:00:2000-01-02", name: "time", min: &noon, max: &day},
		{input: "lat", wantErr: true},
		{input: ":1:2", wantErr: true},
		{input: "lat:a:b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			filter, err := ParseRange(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, filter.Coordinate)
			assert.Equal(t, tt.min, filter.Min)
			assert.Equal(t, tt.max, filter.Max)
		})
	}
}

func ptr(f float64) *float64 {
	return &f
}

func TestInitBuiltin(t *testing.T) {
	m := newManager(t)

	names := make([]string, 0)
	for _, c := range m.List() {
		names = append(names, c.Name())
	}
	assert.Equal(t, "build,search,show", strings.Join(names, ","))
	assert.Error(t, InitBuiltin(m))
}
