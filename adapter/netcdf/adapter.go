package netcdf

import (
	"context"

	"github.com/mwantia/metacat/adapter"
	"github.com/mwantia/metacat/data"
)

// FileType is the identifier of the netCDF adapter.
const FileType = "nc"

// Adapter reads netCDF classic files (CDF-1, CDF-2 and CDF-5). Dimension
// samples come from the variable sharing the dimension name. Corrupt or
// truncated files fail with adapter.ErrUnreadable.
type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (*Adapter) Name() string {
	return FileType
}

func (*Adapter) Extensions() []string {
	return []string{"nc", "NC"}
}

func (a *Adapter) Open(ctx context.Context, path string) (*adapter.Contents, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := openFile(path)
	if err != nil {
		return nil, adapter.Unreadable(path, err)
	}
	defer f.Close()

	h := f.header
	contents := &adapter.Contents{
		Attributes: attributes(h.attrs),
	}

	// Any variable named after a dimension is that dimension's coordinate,
	// whatever its shape, and is not cataloged as a variable.
	dimensions := make(map[string]struct{}, len(h.dims))
	for _, dim := range h.dims {
		dimensions[dim.name] = struct{}{}
	}
	coordinates := make(map[string]*variable)
	for i := range h.vars {
		v := &h.vars[i]
		if _, ok := dimensions[v.name]; ok {
			coordinates[v.name] = v
		}
	}

	for _, dim := range h.dims {
		d := adapter.Dimension{Name: dim.name, Ref: dim.name}

		if v, ok := coordinates[dim.name]; ok {
			d.Attributes = attributes(v.attrs)

			values, err := f.read(v)
			if err != nil {
				return nil, adapter.Unreadable(path, err)
			}
			if s, ok := samples(values, adapter.FillValues(d.Attributes)); ok {
				d.Samples = s
			}
		}

		contents.Dimensions = append(contents.Dimensions, d)
	}

	for i := range h.vars {
		v := &h.vars[i]
		if _, ok := coordinates[v.name]; ok {
			continue
		}

		refs := make([]string, len(v.dimIDs))
		for j, id := range v.dimIDs {
			refs[j] = h.dims[id].name
		}
		contents.Variables = append(contents.Variables, adapter.Variable{
			Name:          v.name,
			DimensionRefs: refs,
			Attributes:    attributes(v.attrs),
		})
	}

	return contents, nil
}

func attributes(attrs []attribute) data.Attributes {
	if len(attrs) == 0 {
		return nil
	}
	result := make(data.Attributes, len(attrs))
	for i, attr := range attrs {
		result[i] = data.NewAttribute(attr.name, attr.values)
	}
	return result
}

var _ adapter.Adapter = (*Adapter)(nil)
