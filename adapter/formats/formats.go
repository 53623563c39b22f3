// Package formats selects the format adapter for a file type identifier.
package formats

import (
	"errors"
	"fmt"

	"github.com/mwantia/metacat/adapter"
	"github.com/mwantia/metacat/adapter/keyvalue"
	"github.com/mwantia/metacat/adapter/netcdf"
)

var (
	ErrUnknownFileType    = errors.New("formats: unknown file type")
	ErrMissingCoordinates = errors.New("formats: coordinate names are required")
)

// FileTypes lists the supported identifiers.
func FileTypes() []string {
	return []string{netcdf.FileType, keyvalue.FileType}
}

// ForFileType returns the adapter for fileType. The key-value adapter needs
// at least one coordinate name; the netCDF adapter ignores them.
func ForFileType(fileType string, coordNames []string) (adapter.Adapter, error) {
	switch fileType {
	case netcdf.FileType:
		return netcdf.New(), nil
	case keyvalue.FileType:
		if len(coordNames) == 0 {
			return nil, fmt.Errorf("%w for file type '%s'", ErrMissingCoordinates, fileType)
		}
		return keyvalue.New(coordNames), nil
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnknownFileType, fileType)
	}
}
