package catalog_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/mwantia/metacat/catalog"
	"github.com/mwantia/metacat/catalog/backend"
	"github.com/mwantia/metacat/catalog/backend/memory"
	"github.com/mwantia/metacat/catalog/backend/postgres"
	"github.com/mwantia/metacat/catalog/backend/sqlite"
	"github.com/mwantia/metacat/data"
)

// TestStoreFactory creates a new, empty store instance for testing.
type TestStoreFactory func(t *testing.T) (backend.Store, error)

// GetTestStoreFactories returns all store implementations to test. The
// postgres store is only included when METACAT_POSTGRES_URL is set.
func GetTestStoreFactories() map[string]TestStoreFactory {
	factories := map[string]TestStoreFactory{
		"memory": func(t *testing.T) (backend.Store, error) {
			return memory.NewMemoryBackend(), nil
		},
		"sqlite": func(t *testing.T) (backend.Store, error) {
			return sqlite.NewSQLiteBackend(":memory:")
		},
	}

	if url := os.Getenv("METACAT_POSTGRES_URL"); url != "" {
		factories["postgres"] = func(t *testing.T) (backend.Store, error) {
			pb, err := postgres.NewPostgresBackend(t.Context(), url)
			if err != nil {
				return nil, err
			}
			// Start from a clean database for every test
			for _, table := range []string{"FailedFiles", "IngestRuns", "VariableAttributes", "VariableCoordinateFileAssociations",
				"Variables", "CoordinateAttributes", "DiscreteCoordinateValues", "Coordinates", "GlobalAttributes", "Files", "Directories"} {
				if err := dropTable(t.Context(), url, table); err != nil {
					return nil, err
				}
			}
			return pb, nil
		}
	}

	return factories
}

func openStore(t *testing.T, factory TestStoreFactory) backend.Store {
	t.Helper()

	store, err := factory(t)
	if err != nil {
		t.Fatalf("Store init failed: %v", err)
	}
	if err := store.Open(t.Context()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		store.Close(context.Background())
	})

	if err := store.InitSchema(t.Context()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return store
}

// TestAllStores_IsEmpty verifies that a catalog reports content once a directory is written.
func TestAllStores_IsEmpty(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := openStore(t, factory)

			empty, err := store.IsEmpty(ctx)
			if err != nil {
				t.Fatalf("IsEmpty failed: %v", err)
			}
			if !empty {
				t.Fatalf("Expected new catalog to be empty")
			}

			if err := store.CreateDirectory(ctx, &data.Directory{ID: 0, Path: "/data"}); err != nil {
				t.Fatalf("CreateDirectory failed: %v", err)
			}

			empty, err = store.IsEmpty(ctx)
			if err != nil {
				t.Fatalf("IsEmpty failed: %v", err)
			}
			if empty {
				t.Errorf("Expected catalog with a directory to be non-empty")
			}
		})
	}
}

// TestAllStores_FilesAndCoordinates verifies that files and coordinates survive a round trip.
func TestAllStores_FilesAndCoordinates(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := openStore(t, factory)

			if err := store.CreateDirectory(ctx, &data.Directory{ID: 0, Path: "/data/run1"}); err != nil {
				t.Fatalf("CreateDirectory failed: %v", err)
			}

			file := &data.File{
				ID:          0,
				DirectoryID: 0,
				Filename:    "a.nc",
				Symlink:     "/archive/a.nc",
				Created:     1700000000.5,
				Modified:    1700000100.25,
				Attributes: data.Attributes{
					data.NewAttribute("title", "Run 1"),
					data.NewAttribute("version", 3),
					data.NewAttribute("bounds", []float64{0, 90}),
				},
			}
			if err := store.CreateFile(ctx, file); err != nil {
				t.Fatalf("CreateFile failed: %v", err)
			}

			discrete := data.NewCoordinate("time", data.SamplesOf([]float64{0, 24, 40, 36}), data.Attributes{
				data.NewAttribute("units", "hours since 2000-01-01"),
				data.NewAttribute("calendar", "gregorian"),
			})
			discrete.ID = 0
			empty := data.NewCoordinate("coord_no_data", nil, data.Attributes{
				data.NewAttribute("dimension_attr", "no values in this dimension"),
			})
			empty.ID = 1
			for _, c := range []*data.Coordinate{discrete, empty} {
				if err := store.CreateCoordinate(ctx, c); err != nil {
					t.Fatalf("CreateCoordinate failed: %v", err)
				}
			}

			got, err := store.ReadFile(ctx, 0)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if got.Path() != "/data/run1/a.nc" || got.Symlink != "/archive/a.nc" {
				t.Errorf("Unexpected file %+v", got)
			}
			if got.Created != file.Created || got.Modified != file.Modified {
				t.Errorf("Expected timestamps %v/%v, got %v/%v", file.Created, file.Modified, got.Created, got.Modified)
			}
			if !got.Attributes.EqualSet(file.Attributes) || got.Attributes[0].Name != "title" {
				t.Errorf("Expected attributes %v, got %v", file.Attributes, got.Attributes)
			}

			coords, err := store.ListCoordinates(ctx)
			if err != nil {
				t.Fatalf("ListCoordinates failed: %v", err)
			}
			if len(coords) != 2 {
				t.Fatalf("Expected 2 coordinates, got %d", len(coords))
			}
			if !coords[0].Matches(discrete) {
				t.Errorf("Expected %+v, got %+v", discrete, coords[0])
			}
			if !coords[1].Matches(empty) || !math.IsNaN(coords[1].Min) {
				t.Errorf("Expected %+v, got %+v", empty, coords[1])
			}

			if _, err := store.ReadCoordinate(ctx, 9); !errors.Is(err, data.ErrNotExist) {
				t.Errorf("Expected ErrNotExist, got %v", err)
			}
			if _, err := store.ReadFile(ctx, 9); !errors.Is(err, data.ErrNotExist) {
				t.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

// TestAllStores_FlushAndLoadVariables verifies the compact encoding through every store.
func TestAllStores_FlushAndLoadVariables(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := openStore(t, factory)

			temp := data.NewVariable("temp", 2, data.Attributes{
				data.NewAttribute("long_name", "Temperature"),
				data.NewAttribute("history", data.FileSpecific),
			})
			temp.ID = 0
			for f, coord := range []int64{1, 2, 3} {
				if err := temp.AddFile(int64(f), []int64{0, coord}); err != nil {
					t.Fatalf("AddFile failed: %v", err)
				}
			}
			temp.MultiDim = 1

			crs := data.NewVariable("crs", 0, nil)
			crs.ID = 1
			for f := int64(0); f < 3; f++ {
				if err := crs.AddFile(f, nil); err != nil {
					t.Fatalf("AddFile failed: %v", err)
				}
			}

			if err := catalog.FlushVariables(ctx, store, []*data.Variable{temp, crs}); err != nil {
				t.Fatalf("FlushVariables failed: %v", err)
			}

			rows, err := store.ReadAssociations(ctx, 0)
			if err != nil {
				t.Fatalf("ReadAssociations failed: %v", err)
			}
			shared, perFile := 0, 0
			for _, row := range rows {
				switch {
				case row.DimensionIndex == 0 && row.FileID == data.AllFiles:
					shared++
				case row.DimensionIndex == 1:
					perFile++
				default:
					t.Errorf("Unexpected row %+v", row)
				}
			}
			if shared != 1 || perFile != 3 {
				t.Errorf("Expected 1 shared and 3 per-file rows, got %d and %d", shared, perFile)
			}

			reader := catalog.NewReader(store)
			loaded, err := reader.LoadVariable(ctx, 0)
			if err != nil {
				t.Fatalf("LoadVariable failed: %v", err)
			}
			if loaded.MultiDim != 1 || len(loaded.FileIDs) != 3 {
				t.Errorf("Unexpected variable %+v", loaded)
			}
			if history, _ := loaded.Attributes.Get("history"); history.Text != data.FileSpecific {
				t.Errorf("Expected file specific history, got %v", history)
			}

			vars, err := reader.Variables(ctx)
			if err != nil {
				t.Fatalf("Variables failed: %v", err)
			}
			if len(vars) != 2 || vars[1].Name != "crs" || len(vars[1].FileIDs) != 3 {
				t.Errorf("Unexpected variables %+v", vars)
			}

			if _, err := reader.LoadVariable(ctx, 5); !errors.Is(err, data.ErrNotExist) {
				t.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

// TestAllStores_Runs verifies that run summaries and failed files are recorded.
func TestAllStores_Runs(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			store := openStore(t, factory)

			run := &data.IngestRun{
				ID:       "3f1c2a4e-0000-4000-8000-000000000001",
				Root:     "/data",
				FileType: "nc",
				Started:  time.Unix(1700000000, 0),
			}
			if err := store.CreateRun(ctx, run); err != nil {
				t.Fatalf("CreateRun failed: %v", err)
			}

			run.Finished = run.Started.Add(90 * time.Second)
			run.Files = 4
			failures := []data.Failure{{Path: "/data/broken.nc", Reason: "not a netCDF file"}}
			if err := store.FinishRun(ctx, run, failures); err != nil {
				t.Fatalf("FinishRun failed: %v", err)
			}

			runs, err := store.ListRuns(ctx)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(runs) != 1 || runs[0].Files != 4 || runs[0].Duration() != 90*time.Second {
				t.Errorf("Unexpected runs %+v", runs)
			}

			got, err := store.ListFailures(ctx, run.ID)
			if err != nil {
				t.Fatalf("ListFailures failed: %v", err)
			}
			if len(got) != 1 || got[0] != failures[0] {
				t.Errorf("Expected %v, got %v", failures, got)
			}

			unknown := &data.IngestRun{ID: "missing"}
			if err := store.FinishRun(ctx, unknown, nil); !errors.Is(err, data.ErrNotExist) {
				t.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}
