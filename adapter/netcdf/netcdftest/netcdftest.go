// Package netcdftest writes small netCDF classic files for tests.
package netcdftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Dim is a dimension; a zero Length declares the record dimension.
type Dim struct {
	Name   string
	Length int64
}

// Attr is an attribute. Value is a string or a slice of int8, int16, int32,
// float32 or float64.
type Attr struct {
	Name  string
	Value any
}

// Var is a variable over the dimensions at index Dims. Data is a slice of
// the same types as Attr values, holding all values in row-major order.
type Var struct {
	Name  string
	Dims  []int
	Attrs []Attr
	Data  any
}

// File describes a netCDF file. Version is 1 (classic) or 2 (64-bit offset).
type File struct {
	Version    byte
	NumRecords int64
	Dims       []Dim
	Attrs      []Attr
	Vars       []Var
}

// Write encodes f into dir/name and returns the file path.
func Write(t testing.TB, dir, name string, f File) string {
	t.Helper()

	raw, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode %s failed: %v", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func typeOf(value any) (uint32, int64, error) {
	switch v := value.(type) {
	case []int8:
		return 1, int64(len(v)), nil
	case string:
		return 2, int64(len(v)), nil
	case []int16:
		return 3, int64(len(v)), nil
	case []int32:
		return 4, int64(len(v)), nil
	case []float32:
		return 5, int64(len(v)), nil
	case []float64:
		return 6, int64(len(v)), nil
	}
	return 0, 0, fmt.Errorf("unsupported value type %T", value)
}

func sizeOf(typ uint32) int64 {
	switch typ {
	case 1, 2:
		return 1
	case 3:
		return 2
	case 6:
		return 8
	}
	return 4
}

func pad(n int64) int64 {
	return (4 - n%4) % 4
}

type encoder struct {
	buf     bytes.Buffer
	version byte
	err     error
}

func (e *encoder) write(v any) {
	if e.err == nil {
		e.err = binary.Write(&e.buf, binary.BigEndian, v)
	}
}

func (e *encoder) padding(n int64) {
	e.buf.Write(make([]byte, pad(n)))
}

func (e *encoder) name(s string) {
	e.write(uint32(len(s)))
	e.buf.WriteString(s)
	e.padding(int64(len(s)))
}

func (e *encoder) attrs(attrs []Attr) {
	if len(attrs) == 0 {
		e.write([2]uint32{0, 0})
		return
	}
	e.write([2]uint32{0x0C, uint32(len(attrs))})
	for _, attr := range attrs {
		typ, n, err := typeOf(attr.Value)
		if err != nil {
			e.err = err
			return
		}
		e.name(attr.Name)
		e.write(typ)
		e.write(uint32(n))
		e.values(attr.Value)
		e.padding(n * sizeOf(typ))
	}
}

func (e *encoder) values(value any) {
	if s, ok := value.(string); ok {
		e.buf.WriteString(s)
		return
	}
	e.write(value)
}

func (e *encoder) offset(v int64) {
	if e.version == 1 {
		e.write(uint32(v))
		return
	}
	e.write(uint64(v))
}

func (f File) isRecord(v Var) bool {
	return len(v.Dims) > 0 && f.Dims[v.Dims[0]].Length == 0
}

// perRecord counts the values of v in one record, or all values of a fixed variable.
func (f File) perRecord(v Var) int64 {
	n := int64(1)
	for i, id := range v.Dims {
		if i == 0 && f.Dims[id].Length == 0 {
			continue
		}
		n *= f.Dims[id].Length
	}
	return n
}

func (f File) header(begins []int64) ([]byte, error) {
	e := &encoder{version: f.Version}
	e.buf.WriteString("CDF")
	e.buf.WriteByte(f.Version)
	e.write(uint32(f.NumRecords))

	if len(f.Dims) == 0 {
		e.write([2]uint32{0, 0})
	} else {
		e.write([2]uint32{0x0A, uint32(len(f.Dims))})
		for _, dim := range f.Dims {
			e.name(dim.Name)
			e.write(uint32(dim.Length))
		}
	}

	e.attrs(f.Attrs)

	if len(f.Vars) == 0 {
		e.write([2]uint32{0, 0})
	} else {
		e.write([2]uint32{0x0B, uint32(len(f.Vars))})
		for i, v := range f.Vars {
			typ, _, err := typeOf(v.Data)
			if err != nil {
				return nil, fmt.Errorf("variable %s: %w", v.Name, err)
			}
			e.name(v.Name)
			e.write(uint32(len(v.Dims)))
			for _, id := range v.Dims {
				e.write(uint32(id))
			}
			e.attrs(v.Attrs)
			e.write(typ)
			size := f.perRecord(v) * sizeOf(typ)
			e.write(uint32(size + pad(size)))
			e.offset(begins[i])
		}
	}

	return e.buf.Bytes(), e.err
}

// Encode returns the encoded file.
func (f File) Encode() ([]byte, error) {
	begins := make([]int64, len(f.Vars))
	head, err := f.header(begins)
	if err != nil {
		return nil, err
	}

	records := 0
	for _, v := range f.Vars {
		if f.isRecord(v) {
			records++
		}
	}

	// Fixed variables first, then the interleaved record section.
	offset := int64(len(head))
	for i, v := range f.Vars {
		if f.isRecord(v) {
			continue
		}
		typ, _, _ := typeOf(v.Data)
		begins[i] = offset
		size := f.perRecord(v) * sizeOf(typ)
		offset += size + pad(size)
	}
	for i, v := range f.Vars {
		if !f.isRecord(v) {
			continue
		}
		typ, _, _ := typeOf(v.Data)
		begins[i] = offset
		size := f.perRecord(v) * sizeOf(typ)
		if records > 1 {
			size += pad(size)
		}
		offset += size
	}

	head, err = f.header(begins)
	if err != nil {
		return nil, err
	}

	e := &encoder{version: f.Version}
	e.buf.Write(head)
	for _, v := range f.Vars {
		if f.isRecord(v) {
			continue
		}
		typ, n, _ := typeOf(v.Data)
		e.values(v.Data)
		e.padding(n * sizeOf(typ))
	}

	for r := int64(0); r < f.NumRecords; r++ {
		for _, v := range f.Vars {
			if !f.isRecord(v) {
				continue
			}
			typ, _, _ := typeOf(v.Data)
			per := f.perRecord(v)
			e.values(slice(v.Data, r*per, (r+1)*per))
			if records > 1 {
				e.padding(per * sizeOf(typ))
			}
		}
	}

	return e.buf.Bytes(), e.err
}

func slice(value any, from, to int64) any {
	switch v := value.(type) {
	case []int8:
		return v[from:to]
	case string:
		return v[from:to]
	case []int16:
		return v[from:to]
	case []int32:
		return v[from:to]
	case []float32:
		return v[from:to]
	case []float64:
		return v[from:to]
	}
	return nil
}
