package adapter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mwantia/metacat/data"
)

// ErrUnreadable is wrapped by every error an adapter returns for a file it
// cannot open or parse.
var ErrUnreadable = errors.New("adapter: file cannot be read")

// Unreadable wraps cause with ErrUnreadable for path.
func Unreadable(path string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnreadable, path, cause)
}

// Adapter extracts catalog metadata from one file format.
type Adapter interface {
	// Name returns the file type identifier of this adapter
	Name() string
	// Extensions returns the file extensions handled, without leading dot
	Extensions() []string
	// Open reads the metadata of the file at path.
	Open(ctx context.Context, path string) (*Contents, error)
}

// Contents is the metadata of one file.
type Contents struct {
	Attributes data.Attributes
	Dimensions []Dimension
	Variables  []Variable
}

// Dimension is a named axis. Ref is the identifier variables use to
// reference it; Samples are empty for an axis without coordinate values.
type Dimension struct {
	Name       string
	Ref        string
	Samples    []data.Sample
	Attributes data.Attributes
}

// Variable is a data field over the dimensions named by DimensionRefs.
type Variable struct {
	Name          string
	DimensionRefs []string
	Attributes    data.Attributes
}

// Dimension returns the dimension referenced by ref.
func (c *Contents) Dimension(ref string) (*Dimension, bool) {
	for i := range c.Dimensions {
		if c.Dimensions[i].Ref == ref {
			return &c.Dimensions[i], true
		}
	}
	return nil, false
}

// Accepts reports whether the extension of path is handled by a.
func Accepts(a Adapter, path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, candidate := range a.Extensions() {
		if ext == candidate {
			return true
		}
	}
	return false
}

// FillValues returns the _FillValue and missing_value numbers of attrs.
func FillValues(attrs data.Attributes) []float64 {
	var fills []float64
	for _, name := range []string{"_FillValue", "missing_value"} {
		if v, ok := attrs.Get(name); ok && v.Kind == data.AttributeNumber {
			fills = append(fills, v.Number)
		}
	}
	return fills
}
