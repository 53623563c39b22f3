package netcdf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mwantia/metacat/data"
)

var errTooLarge = errors.New("variable does not fit in the file")

// File is an open netCDF classic file with a parsed header.
type File struct {
	f      *os.File
	size   int64
	header *header
}

func openFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	h, err := readHeader(bufio.NewReader(f), stat.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	file := &File{f: f, size: stat.Size(), header: h}
	if h.numRecords < 0 {
		if err := file.countRecords(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return file, nil
}

func (f *File) Close() error {
	return f.f.Close()
}

// countRecords derives the record count of a file written in streaming mode
// from its size.
func (f *File) countRecords() error {
	h := f.header
	h.numRecords = 0
	stride, ok := h.recordSize()
	if !ok {
		return fmt.Errorf("%w: record size overflows", errFormat)
	}
	if stride == 0 {
		return nil
	}

	first := int64(-1)
	for i := range h.vars {
		if h.isRecordVariable(&h.vars[i]) && (first < 0 || h.vars[i].begin < first) {
			first = h.vars[i].begin
		}
	}
	if first >= 0 && f.size > first {
		h.numRecords = (f.size - first) / stride
	}
	return nil
}

// within reports whether length bytes starting at offset lie inside the file.
func (f *File) within(offset, length int64) bool {
	return offset >= 0 && length >= 0 && offset <= f.size && length <= f.size-offset
}

// readAt fills buf completely or fails with io.ErrUnexpectedEOF.
func (f *File) readAt(buf []byte, offset int64) error {
	n, err := f.f.ReadAt(buf, offset)
	if n < len(buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// read returns every value of v as a typed slice. Sizes declared in the
// header are checked against the file before anything is allocated.
func (f *File) read(v *variable) (any, error) {
	h := f.header
	record := h.isRecordVariable(v)

	n, ok := h.elements(v, record)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", errTooLarge, v.name)
	}
	chunkSize, ok := multiply(n, v.typ.Size())
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", errTooLarge, v.name)
	}

	if !record {
		if !f.within(v.begin, chunkSize) {
			return nil, fmt.Errorf("%w: '%s' needs %d bytes at offset %d", errTooLarge, v.name, chunkSize, v.begin)
		}
		buf := make([]byte, chunkSize)
		if err := f.readAt(buf, v.begin); err != nil {
			return nil, fmt.Errorf("failed to read variable '%s': %w", v.name, err)
		}
		return decodeValues(v.typ, buf, n)
	}

	records := h.records()
	stride, ok := h.recordSize()
	if !ok {
		return nil, fmt.Errorf("%w: record size overflows", errFormat)
	}
	if records == 0 {
		return decodeValues(v.typ, nil, 0)
	}

	last, ok := multiply(records-1, stride)
	if !ok || !f.within(v.begin, last) || !f.within(v.begin+last, chunkSize) {
		return nil, fmt.Errorf("%w: %d records of '%s'", errTooLarge, records, v.name)
	}
	total, ok := multiply(records, chunkSize)
	if !ok || total > f.size {
		return nil, fmt.Errorf("%w: %d records of '%s'", errTooLarge, records, v.name)
	}

	buf := make([]byte, 0, total)
	chunk := make([]byte, chunkSize)
	for r := int64(0); r < records; r++ {
		if err := f.readAt(chunk, v.begin+r*stride); err != nil {
			return nil, fmt.Errorf("failed to read record %d of '%s': %w", r, v.name, err)
		}
		buf = append(buf, chunk...)
	}
	return decodeValues(v.typ, buf, records*n)
}

// multiply returns a*b for non-negative operands, or false on overflow.
func multiply(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func decodeValues(typ Type, buf []byte, count int64) (any, error) {
	d := &decoder{r: bytes.NewReader(buf)}
	values := d.values(typ, count)
	if d.err != nil {
		return nil, d.err
	}
	return values, nil
}

// samples converts numeric values read from a file into coordinate samples,
// masking every fill value.
func samples(values any, fills []float64) ([]data.Sample, bool) {
	switch v := values.(type) {
	case []int8:
		return data.SamplesOf(v, fills...), true
	case []uint8:
		return data.SamplesOf(v, fills...), true
	case []int16:
		return data.SamplesOf(v, fills...), true
	case []uint16:
		return data.SamplesOf(v, fills...), true
	case []int32:
		return data.SamplesOf(v, fills...), true
	case []uint32:
		return data.SamplesOf(v, fills...), true
	case []int64:
		return data.SamplesOf(v, fills...), true
	case []uint64:
		return data.SamplesOf(v, fills...), true
	case []float32:
		return data.SamplesOf(v, fills...), true
	case []float64:
		return data.SamplesOf(v, fills...), true
	}
	return nil, false
}
