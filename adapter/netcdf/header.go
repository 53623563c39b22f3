package netcdf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Format versions of the classic file format.
const (
	versionClassic  = 1
	version64Offset = 2
	version64Data   = 5
)

const (
	tagAbsent    = 0x00
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C

	streamingRecords = 0xFFFFFFFF
)

// Type is a netCDF external data type.
type Type uint32

const (
	TypeByte Type = iota + 1
	TypeChar
	TypeShort
	TypeInt
	TypeFloat
	TypeDouble
	TypeUByte
	TypeUShort
	TypeUInt
	TypeInt64
	TypeUInt64
)

// Size returns the encoded size of one element.
func (t Type) Size() int64 {
	switch t {
	case TypeByte, TypeChar, TypeUByte:
		return 1
	case TypeShort, TypeUShort:
		return 2
	case TypeInt, TypeFloat, TypeUInt:
		return 4
	case TypeDouble, TypeInt64, TypeUInt64:
		return 8
	}
	return 0
}

var errFormat = errors.New("not a netCDF classic file")

type dimension struct {
	name   string
	length int64
}

func (d dimension) isRecord() bool {
	return d.length == 0
}

type attribute struct {
	name   string
	typ    Type
	values any
}

type variable struct {
	name   string
	dimIDs []int64
	attrs  []attribute
	typ    Type
	vsize  int64
	begin  int64
}

type header struct {
	version    byte
	numRecords int64
	dims       []dimension
	attrs      []attribute
	vars       []variable
}

// decoder reads big-endian header fields whose widths depend on the version.
type decoder struct {
	r       io.Reader
	version byte
	// limit is the file size; no single header field can describe more bytes
	limit int64
	err   error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, binary.BigEndian, v)
}

func (d *decoder) uint32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *decoder) uint64() uint64 {
	var v uint64
	d.read(&v)
	return v
}

// nonNeg reads a count, which is 64-bit in the 64-bit data format.
func (d *decoder) nonNeg() int64 {
	if d.version == version64Data {
		v := d.uint64()
		if v > math.MaxInt64 {
			d.fail("count %d out of range", v)
		}
		return int64(v)
	}
	return int64(d.uint32())
}

// offset reads a file offset, which is 32-bit only in the classic format.
func (d *decoder) offset() int64 {
	if d.version == versionClassic {
		return int64(d.uint32())
	}
	return int64(d.uint64())
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
	}
}

func (d *decoder) skipPadding(n int64) {
	if pad := padding(n); pad > 0 && d.err == nil {
		_, d.err = io.CopyN(io.Discard, d.r, pad)
	}
}

func padding(n int64) int64 {
	return (4 - n%4) % 4
}

func (d *decoder) name() string {
	n := d.nonNeg()
	if d.err != nil {
		return ""
	}
	if n > 1<<16 || n > d.limit {
		d.fail("name length %d out of range", n)
		return ""
	}
	buf := make([]byte, n)
	d.read(buf)
	d.skipPadding(n)
	return string(buf)
}

// list reads a tagged list header and returns its element count.
func (d *decoder) list(tag uint32) int64 {
	got := d.uint32()
	n := d.nonNeg()
	if d.err != nil {
		return 0
	}
	if got == tagAbsent && n == 0 {
		return 0
	}
	if got != tag {
		d.fail("unexpected tag 0x%x, want 0x%x", got, tag)
		return 0
	}
	if n > 1<<24 || n > d.limit {
		d.fail("list length %d out of range", n)
		return 0
	}
	return n
}

func (d *decoder) attributes() []attribute {
	n := d.list(tagAttribute)
	attrs := make([]attribute, 0, n)
	for i := int64(0); i < n && d.err == nil; i++ {
		name := d.name()
		typ := Type(d.uint32())
		count := d.nonNeg()
		if d.err != nil {
			break
		}
		if typ.Size() == 0 {
			d.fail("attribute '%s' has unknown type %d", name, typ)
			break
		}
		if count > 1<<24 || count*typ.Size() > d.limit {
			d.fail("attribute '%s' length %d out of range", name, count)
			break
		}

		values := d.values(typ, count)
		d.skipPadding(count * typ.Size())
		attrs = append(attrs, attribute{name: name, typ: typ, values: values})
	}
	return attrs
}

// values decodes count elements of typ. Characters decode into a string.
func (d *decoder) values(typ Type, count int64) any {
	var v any
	switch typ {
	case TypeChar:
		buf := make([]byte, count)
		d.read(buf)
		return string(trimNul(buf))
	case TypeByte:
		v = make([]int8, count)
	case TypeUByte:
		v = make([]uint8, count)
	case TypeShort:
		v = make([]int16, count)
	case TypeUShort:
		v = make([]uint16, count)
	case TypeInt:
		v = make([]int32, count)
	case TypeUInt:
		v = make([]uint32, count)
	case TypeFloat:
		v = make([]float32, count)
	case TypeDouble:
		v = make([]float64, count)
	case TypeInt64:
		v = make([]int64, count)
	case TypeUInt64:
		v = make([]uint64, count)
	}
	d.read(v)
	return v
}

func trimNul(buf []byte) []byte {
	for len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return buf
}

func readHeader(r io.Reader, size int64) (*header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errFormat
	}
	if string(magic[:3]) != "CDF" {
		return nil, errFormat
	}

	h := &header{version: magic[3]}
	switch h.version {
	case versionClassic, version64Offset, version64Data:
	default:
		return nil, fmt.Errorf("%w: unsupported version %d", errFormat, h.version)
	}

	d := &decoder{r: r, version: h.version, limit: size}
	if h.version == version64Data {
		h.numRecords = d.nonNeg()
	} else if n := d.uint32(); n == streamingRecords {
		h.numRecords = -1
	} else {
		h.numRecords = int64(n)
	}

	ndims := d.list(tagDimension)
	for i := int64(0); i < ndims && d.err == nil; i++ {
		h.dims = append(h.dims, dimension{name: d.name(), length: d.nonNeg()})
	}

	h.attrs = d.attributes()

	nvars := d.list(tagVariable)
	for i := int64(0); i < nvars && d.err == nil; i++ {
		v := variable{name: d.name()}
		rank := d.nonNeg()
		if rank > int64(len(h.dims)) {
			d.fail("variable '%s' has %d dimensions", v.name, rank)
			break
		}
		for j := int64(0); j < rank && d.err == nil; j++ {
			id := d.nonNeg()
			if id >= int64(len(h.dims)) {
				d.fail("variable '%s' references dimension %d", v.name, id)
				break
			}
			v.dimIDs = append(v.dimIDs, id)
		}
		v.attrs = d.attributes()
		v.typ = Type(d.uint32())
		v.vsize = d.nonNeg()
		v.begin = d.offset()
		if d.err == nil && v.typ.Size() == 0 {
			d.fail("variable '%s' has unknown type %d", v.name, v.typ)
		}
		h.vars = append(h.vars, v)
	}

	if d.err != nil {
		return nil, fmt.Errorf("%w: %v", errFormat, d.err)
	}
	return h, nil
}

func (h *header) isRecordVariable(v *variable) bool {
	return len(v.dimIDs) > 0 && h.dims[v.dimIDs[0]].isRecord()
}

// recordSize is the stride between records of a record variable. It
// reports false when the declared sizes overflow.
func (h *header) recordSize() (int64, bool) {
	var size int64
	var count int
	var last *variable
	for i := range h.vars {
		if !h.isRecordVariable(&h.vars[i]) {
			continue
		}
		if h.vars[i].vsize > math.MaxInt64-size {
			return 0, false
		}
		size += h.vars[i].vsize
		count++
		last = &h.vars[i]
	}
	// A single record variable is stored without padding between records
	if count == 1 {
		n, ok := h.elements(last, true)
		if !ok {
			return 0, false
		}
		return multiply(n, last.typ.Size())
	}
	return size, true
}

// elements counts the values of v, or of one record when perRecord is set.
// It reports false when the count overflows.
func (h *header) elements(v *variable, perRecord bool) (int64, bool) {
	n := int64(1)
	for i, id := range v.dimIDs {
		length := h.dims[id].length
		if h.dims[id].isRecord() {
			if perRecord && i == 0 {
				continue
			}
			length = h.records()
		}

		var ok bool
		if n, ok = multiply(n, length); !ok {
			return 0, false
		}
	}
	return n, true
}

func (h *header) records() int64 {
	if h.numRecords < 0 {
		return 0
	}
	return h.numRecords
}
